package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hmoreno/cierre-fiscal/internal/domain"
)

// ============================================================
// Canonical financial records — implements port.RecordStore
// ============================================================

// recordRow maps the financial_records table columns to the domain record.
// Links are flattened into columns so they stay queryable for reconciliation.
type recordRow struct {
	ID             string          `json:"id"`
	ProfileID      string          `json:"profile_id"`
	Date           string          `json:"date"`
	Concept        string          `json:"concept"`
	Amount         float64         `json:"amount"`
	Type           string          `json:"type"`
	Source         string          `json:"source"`
	Taxability     string          `json:"taxability"`
	InvoiceID      string          `json:"invoice_id,omitempty"`
	DocumentUUID   string          `json:"document_uuid,omitempty"`
	BankMovementID string          `json:"bank_movement_id,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toRow(profileID string, rec domain.FinancialRecord) recordRow {
	row := recordRow{
		ID:             rec.ID,
		ProfileID:      profileID,
		Date:           rec.Date,
		Concept:        rec.Concept,
		Amount:         rec.Amount,
		Type:           string(rec.Type),
		Source:         string(rec.Source),
		Taxability:     string(rec.Taxability),
		InvoiceID:      rec.Links.InvoiceID,
		DocumentUUID:   rec.Links.DocumentUUID,
		BankMovementID: rec.Links.BankMovementID,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
	if len(rec.Metadata) > 0 {
		if b, err := json.Marshal(rec.Metadata); err == nil {
			row.Metadata = b
		}
	}
	return row
}

func (r recordRow) toDomain() domain.FinancialRecord {
	rec := domain.FinancialRecord{
		ID:         r.ID,
		Date:       r.Date,
		Concept:    r.Concept,
		Amount:     r.Amount,
		Type:       domain.RecordType(r.Type),
		Source:     domain.RecordSource(r.Source),
		Taxability: domain.Taxability(r.Taxability),
		Links: domain.RecordLinks{
			InvoiceID:      r.InvoiceID,
			DocumentUUID:   r.DocumentUUID,
			BankMovementID: r.BankMovementID,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if len(r.Metadata) > 0 {
		var meta map[string]any
		if err := json.Unmarshal(r.Metadata, &meta); err == nil {
			rec.Metadata = meta
		}
	}
	return rec
}

// GetAll returns every canonical record for a profile.
func (c *Client) GetAll(ctx context.Context, profileID string) ([]domain.FinancialRecord, error) {
	path := fmt.Sprintf("financial_records?profile_id=eq.%s&order=date.asc", url.QueryEscape(profileID))
	body, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var rows []recordRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode financial_records: %w", err)
	}
	recs := make([]domain.FinancialRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.toDomain())
	}
	return recs, nil
}

// Add inserts one record.
func (c *Client) Add(ctx context.Context, profileID string, rec domain.FinancialRecord) error {
	_, err := c.do(ctx, http.MethodPost, "financial_records", toRow(profileID, rec), "return=minimal")
	return err
}

// PutMany upserts a batch of records keyed by id.
func (c *Client) PutMany(ctx context.Context, profileID string, recs []domain.FinancialRecord) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([]recordRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, toRow(profileID, rec))
	}
	_, err := c.do(ctx, http.MethodPost, "financial_records", rows, "resolution=merge-duplicates,return=minimal")
	return err
}

// Delete removes one record by id.
func (c *Client) Delete(ctx context.Context, profileID, recordID string) error {
	path := fmt.Sprintf("financial_records?profile_id=eq.%s&id=eq.%s",
		url.QueryEscape(profileID), url.QueryEscape(recordID))
	_, err := c.do(ctx, http.MethodDelete, path, nil, "")
	return err
}
