package service

import (
	"encoding/json"
	"fmt"

	"github.com/hmoreno/cierre-fiscal/internal/domain"
)

// ============================================================
// Legacy source adapters
// ============================================================
//
// Each legacy source declares how its payload unwraps and how its items map
// to tagged raw inputs. Selection is by source key, never by sniffing the
// payload shape at runtime.

// Legacy source keys as written by the old per-source data paths.
const (
	LegacySourceBank     = "bank_movements"
	LegacySourceInvoices = "invoices"
	LegacySourceManual   = "manual_entries"
	LegacySourceTaxes    = "tax_payments"
)

// LegacyAdapter extracts tagged raw inputs from one legacy source's payload.
type LegacyAdapter struct {
	SourceKey string
	Options   NormalizeOptions
	Extract   func(payload json.RawMessage) ([]domain.RawInput, error)
}

// LegacyAdapterRegistry is built once at startup and passed by reference to
// the migration engine; there is no package-level registry.
type LegacyAdapterRegistry struct {
	adapters []LegacyAdapter
}

// NewLegacyAdapterRegistry returns the registry covering the four known
// legacy sources.
func NewLegacyAdapterRegistry() *LegacyAdapterRegistry {
	return &LegacyAdapterRegistry{adapters: []LegacyAdapter{
		{
			SourceKey: LegacySourceBank,
			Options:   NormalizeOptions{DefaultSource: domain.SourceBank},
			Extract:   extractBankMovements,
		},
		{
			SourceKey: LegacySourceInvoices,
			// Legacy invoices were all received documents; issued ones lived
			// in a separate system that never shipped.
			Options: NormalizeOptions{DefaultType: domain.TypeExpense, DefaultSource: domain.SourceInvoice},
			Extract: extractInvoices,
		},
		{
			SourceKey: LegacySourceManual,
			Options:   NormalizeOptions{DefaultSource: domain.SourceManual},
			Extract:   extractManualEntries,
		},
		{
			SourceKey: LegacySourceTaxes,
			Options:   NormalizeOptions{DefaultType: domain.TypeTax, DefaultSource: domain.SourceTax},
			Extract:   extractTaxPayments,
		},
	}}
}

// All returns the adapters in their declared order.
func (r *LegacyAdapterRegistry) All() []LegacyAdapter {
	return r.adapters
}

// The old bank importer wrapped its list under "movements".
func extractBankMovements(payload json.RawMessage) ([]domain.RawInput, error) {
	var wrapper struct {
		Movements []domain.RawBankMovement `json:"movements"`
	}
	if err := json.Unmarshal(payload, &wrapper); err != nil || wrapper.Movements == nil {
		// Early exports were bare arrays.
		var bare []domain.RawBankMovement
		if err2 := json.Unmarshal(payload, &bare); err2 != nil {
			return nil, fmt.Errorf("bank payload: %w", firstErr(err, err2))
		}
		wrapper.Movements = bare
	}
	out := make([]domain.RawInput, 0, len(wrapper.Movements))
	for _, m := range wrapper.Movements {
		out = append(out, m)
	}
	return out, nil
}

// The old invoice sync wrote {"items": [...]}.
func extractInvoices(payload json.RawMessage) ([]domain.RawInput, error) {
	var wrapper struct {
		Items []domain.RawInvoice `json:"items"`
	}
	if err := json.Unmarshal(payload, &wrapper); err != nil {
		return nil, fmt.Errorf("invoice payload: %w", err)
	}
	out := make([]domain.RawInput, 0, len(wrapper.Items))
	for _, inv := range wrapper.Items {
		out = append(out, inv)
	}
	return out, nil
}

// Manual entries were always stored as a bare array.
func extractManualEntries(payload json.RawMessage) ([]domain.RawInput, error) {
	var entries []domain.RawManualEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("manual payload: %w", err)
	}
	out := make([]domain.RawInput, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	return out, nil
}

// Tax payments reuse the manual entry shape under {"payments": [...]}.
func extractTaxPayments(payload json.RawMessage) ([]domain.RawInput, error) {
	var wrapper struct {
		Payments []domain.RawManualEntry `json:"payments"`
	}
	if err := json.Unmarshal(payload, &wrapper); err != nil {
		return nil, fmt.Errorf("tax payload: %w", err)
	}
	out := make([]domain.RawInput, 0, len(wrapper.Payments))
	for _, p := range wrapper.Payments {
		out = append(out, p)
	}
	return out, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
