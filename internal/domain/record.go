// Package domain defines the core business entities for the fiscal close
// assistant. These models are independent of external services and represent
// the canonical data structures used throughout the backend.
package domain

import "time"

// ============================================================
// Canonical financial record
// ============================================================

// RecordType classifies the direction of a financial record. Direction is
// always implied by the type, never by the sign of the amount.
type RecordType string

const (
	TypeIncome  RecordType = "income"
	TypeExpense RecordType = "expense"
	TypeTax     RecordType = "tax"
)

// ValidRecordType reports whether t is one of the closed set of types.
func ValidRecordType(t RecordType) bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTax:
		return true
	}
	return false
}

// RecordSource classifies where a record originated.
type RecordSource string

const (
	SourceBank    RecordSource = "bank"
	SourceInvoice RecordSource = "invoice"
	SourceManual  RecordSource = "manual"
	SourceTax     RecordSource = "tax"
)

// ValidRecordSource reports whether s is one of the closed set of sources.
func ValidRecordSource(s RecordSource) bool {
	switch s {
	case SourceBank, SourceInvoice, SourceManual, SourceTax:
		return true
	}
	return false
}

// Taxability marks whether an expense is deductible for tax purposes.
type Taxability string

const (
	TaxabilityDeductible    Taxability = "deductible"
	TaxabilityNonDeductible Taxability = "non_deductible"
	TaxabilityUnknown       Taxability = "unknown"
)

// ValidTaxability reports whether t is one of the closed set of values.
func ValidTaxability(t Taxability) bool {
	switch t {
	case TaxabilityDeductible, TaxabilityNonDeductible, TaxabilityUnknown:
		return true
	}
	return false
}

// RecordLinks cross-references a record to its originating document or
// movement. At most one of these is expected to be set; they double as
// deduplication keys during consolidation (DocumentUUID strongest, then
// BankMovementID).
type RecordLinks struct {
	InvoiceID      string `json:"invoice_id,omitempty"`
	DocumentUUID   string `json:"document_uuid,omitempty"`
	BankMovementID string `json:"bank_movement_id,omitempty"`
}

// FinancialRecord is the single unified representation of a financial event,
// independent of originating source. Exactly one canonical record exists per
// real-world event; the aggregator and journey only ever read it.
type FinancialRecord struct {
	ID      string  `json:"id"`
	Date    string  `json:"date"` // ISO date; full timestamps tolerated
	Concept string  `json:"concept"`
	Amount  float64 `json:"amount"` // non-negative, direction from Type

	Type       RecordType   `json:"type"`
	Source     RecordSource `json:"source"`
	Taxability Taxability   `json:"taxability"`

	Links    RecordLinks    `json:"links"`
	Metadata map[string]any `json:"metadata,omitempty"` // carried through, never interpreted

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"` // tiebreaker in conflict resolution
}

// DefaultConcept returns the fallback description for a record type, used
// when a source provides no usable concept.
func DefaultConcept(t RecordType) string {
	switch t {
	case TypeIncome:
		return "Income"
	case TypeExpense:
		return "Expense"
	case TypeTax:
		return "Tax"
	}
	return "Movement"
}
