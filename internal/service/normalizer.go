package service

import (
	"strings"
	"time"

	"github.com/hmoreno/cierre-fiscal/internal/domain"

	"github.com/google/uuid"
)

// ============================================================
// Normalizer
// ============================================================
//
// Normalize sits on the ingestion hot path: it must never block a save, so
// it never fails. Malformed or missing input degrades to the default record
// (amount 0, expense, manual, unknown taxability) instead of erroring.

// NormalizeOptions are caller-supplied hints. DefaultType matters mostly for
// invoices: the same CFDI shape serves issued and received documents, so the
// caller decides income vs. expense.
type NormalizeOptions struct {
	DefaultType   domain.RecordType
	DefaultSource domain.RecordSource

	// Now overrides the clock for created/updated timestamps. Nil uses
	// time.Now.
	Now func() time.Time
}

func (o NormalizeOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Normalize converts one tagged raw input into a structurally valid
// canonical record. A nil input yields the default record.
func Normalize(in domain.RawInput, opts NormalizeOptions) domain.FinancialRecord {
	now := opts.now()
	rec := domain.FinancialRecord{
		ID:         uuid.NewString(),
		Amount:     0,
		Type:       domain.TypeExpense,
		Source:     domain.SourceManual,
		Taxability: domain.TaxabilityUnknown,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	switch v := in.(type) {
	case domain.RawBankMovement:
		normalizeBank(&rec, v)
	case *domain.RawBankMovement:
		if v != nil {
			normalizeBank(&rec, *v)
		}
	case domain.RawInvoice:
		normalizeInvoice(&rec, v, opts)
	case *domain.RawInvoice:
		if v != nil {
			normalizeInvoice(&rec, *v, opts)
		}
	case domain.RawManualEntry:
		normalizeManual(&rec, v, opts)
	case *domain.RawManualEntry:
		if v != nil {
			normalizeManual(&rec, *v, opts)
		}
	}

	if rec.Amount < 0 {
		rec.Amount = -rec.Amount // direction lives in Type, never in sign
	}
	if strings.TrimSpace(rec.Concept) == "" {
		rec.Concept = conceptFromMetadata(rec.Metadata)
	}
	if strings.TrimSpace(rec.Concept) == "" {
		rec.Concept = domain.DefaultConcept(rec.Type)
	}
	return rec
}

func normalizeBank(rec *domain.FinancialRecord, m domain.RawBankMovement) {
	rec.Source = domain.SourceBank
	rec.Date = strings.TrimSpace(m.Date)
	rec.Amount = m.Amount

	switch m.Direction {
	case domain.DirectionCredit:
		rec.Type = domain.TypeIncome
	case domain.DirectionDebit:
		rec.Type = domain.TypeExpense
	}

	if m.MovementID != "" {
		rec.Links.BankMovementID = m.MovementID
	}

	meta := map[string]any{}
	if m.Description != "" {
		meta["description"] = m.Description
		rec.Concept = m.Description
	}
	if m.Reference != "" {
		meta["reference"] = m.Reference
	}
	if len(meta) > 0 {
		rec.Metadata = meta
	}
}

func normalizeInvoice(rec *domain.FinancialRecord, inv domain.RawInvoice, opts NormalizeOptions) {
	rec.Source = domain.SourceInvoice
	rec.Date = strings.TrimSpace(inv.IssuedAt)
	rec.Amount = inv.Total
	rec.Concept = inv.Concept

	// Issued vs. received is the caller's call; without a hint the record
	// stays at the expense default rather than guessing income.
	if domain.ValidRecordType(opts.DefaultType) {
		rec.Type = opts.DefaultType
	}

	if inv.DocumentUUID != "" {
		rec.Links.DocumentUUID = inv.DocumentUUID
	}
	if inv.InvoiceID != "" {
		rec.Links.InvoiceID = inv.InvoiceID
	}

	meta := map[string]any{}
	if inv.IssuerTaxID != "" {
		meta["issuer_tax_id"] = inv.IssuerTaxID
	}
	if inv.Folio != "" {
		meta["folio"] = inv.Folio
	}
	if inv.Status != "" {
		meta["status"] = inv.Status
	}
	if inv.Concept != "" {
		meta["concept"] = inv.Concept
	}
	if len(meta) > 0 {
		rec.Metadata = meta
	}
}

func normalizeManual(rec *domain.FinancialRecord, m domain.RawManualEntry, opts NormalizeOptions) {
	if id := strings.TrimSpace(m.ID); id != "" {
		rec.ID = id // manual entries keep stable caller-supplied identifiers
	}
	rec.Date = strings.TrimSpace(m.Date)
	rec.Amount = m.Amount
	rec.Concept = m.Concept

	if domain.ValidRecordSource(opts.DefaultSource) {
		rec.Source = opts.DefaultSource
	}
	if domain.ValidRecordType(opts.DefaultType) {
		rec.Type = opts.DefaultType
	}

	// Explicit values win over the caller defaults, but only when they are
	// members of the closed enums; anything else is ignored.
	if t := domain.RecordType(m.Type); domain.ValidRecordType(t) {
		rec.Type = t
	}
	if s := domain.RecordSource(m.Source); domain.ValidRecordSource(s) {
		rec.Source = s
	}
	if tx := domain.Taxability(m.Taxability); domain.ValidTaxability(tx) {
		rec.Taxability = tx
	}

	if len(m.Metadata) > 0 {
		rec.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			rec.Metadata[k] = v
		}
	}
}

func conceptFromMetadata(meta map[string]any) string {
	if meta == nil {
		return ""
	}
	if c, ok := meta["concept"].(string); ok {
		return strings.TrimSpace(c)
	}
	return ""
}
