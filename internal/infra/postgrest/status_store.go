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
// Migration status — implements port.MigrationStatusStore
// ============================================================
//
// The consolidation flag lives in its own table, keyed by profile,
// independent of any entity collection. It is written exactly once per
// successful run.

type statusRow struct {
	ProfileID   string     `json:"profile_id"`
	Complete    bool       `json:"complete"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// GetStatus returns the migration status for a profile, or nil when no run
// has ever completed (callers treat nil as "retry").
func (c *Client) GetStatus(ctx context.Context, profileID string) (*domain.MigrationStatus, error) {
	path := fmt.Sprintf("migration_status?profile_id=eq.%s&limit=1", url.QueryEscape(profileID))
	body, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return nil, nil
	}

	var rows []statusRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode migration_status: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	status := domain.MigrationStatus{Complete: rows[0].Complete}
	if rows[0].CompletedAt != nil {
		status.CompletedAt = *rows[0].CompletedAt
	}
	return &status, nil
}

// SetStatus upserts the migration status for a profile.
func (c *Client) SetStatus(ctx context.Context, profileID string, status domain.MigrationStatus) error {
	row := statusRow{ProfileID: profileID, Complete: status.Complete}
	if !status.CompletedAt.IsZero() {
		t := status.CompletedAt
		row.CompletedAt = &t
	}
	_, err := c.do(ctx, http.MethodPost, "migration_status", row, "resolution=merge-duplicates,return=minimal")
	return err
}
