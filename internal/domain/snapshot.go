package domain

// ============================================================
// Monthly snapshot (derived, never the source of truth)
// ============================================================

// MonthlyStats are the raw totals for one month of canonical records.
type MonthlyStats struct {
	TotalIncome   float64 `json:"total_income"`
	TotalExpenses float64 `json:"total_expenses"`
	TotalTaxes    float64 `json:"total_taxes"`

	DeductibleExpenses     float64 `json:"deductible_expenses"`
	NonDeductibleExpenses  float64 `json:"non_deductible_expenses"`
	UnknownClassifications int     `json:"unknown_classifications"`

	SourcesCount map[RecordSource]int `json:"sources_count"`
	RecordCount  int                  `json:"record_count"`
}

// MonthlySignals are readiness booleans derived from the stats. They drive
// the journey step derivation.
type MonthlySignals struct {
	NeedsBankImport     bool `json:"needs_bank_import"`
	NeedsInvoiceImport  bool `json:"needs_invoice_import"`
	NeedsClassification bool `json:"needs_classification"`
	// NeedsReconciliation is reserved for bank-to-invoice matching and is
	// always false until that feature lands.
	NeedsReconciliation bool `json:"needs_reconciliation"`
}

// MonthlySnapshot is a recomputable read-only summary of one month. It is
// derived from the canonical store on demand and safe to throw away.
type MonthlySnapshot struct {
	Month      string         `json:"month"` // YYYY-MM
	Stats      MonthlyStats   `json:"stats"`
	Signals    MonthlySignals `json:"signals"`
	TaxSummary *TaxEstimate   `json:"tax_summary,omitempty"` // only when the tax engine is enabled
}
