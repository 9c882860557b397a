package domain

// ============================================================
// Tax estimation
// ============================================================

// TaxRegime identifies the fiscal regime a profile declared.
type TaxRegime string

const (
	// RegimeSimplified is the simplified individual regime (RESICO-like):
	// bracketed rate over gross income.
	RegimeSimplified TaxRegime = "simplified"
	// RegimeGeneral is the corporate/general regime: flat estimated rate
	// over income minus deductible expenses.
	RegimeGeneral TaxRegime = "general"
)

// Bracket is one row of an ascending rate table.
type Bracket struct {
	UpperLimit float64 `json:"upper_limit" yaml:"upper_limit"`
	Rate       float64 `json:"rate" yaml:"rate"`
}

// BracketTable is an ordered list of brackets, ascending by upper limit.
// The applicable rate for a base is the first bracket whose upper limit is
// >= the base; a base above the whole table uses the top bracket's rate.
type BracketTable []Bracket

// RateFor looks up the applicable rate for a taxable base.
func (t BracketTable) RateFor(base float64) float64 {
	if len(t) == 0 {
		return 0
	}
	for _, b := range t {
		if base <= b.UpperLimit {
			return b.Rate
		}
	}
	return t[len(t)-1].Rate
}

// TaxEstimate is the outcome of a regime estimation. A disabled tax engine
// yields a zeroed estimate with a warning; callers must treat that as a
// valid outcome, not a failure.
type TaxEstimate struct {
	Regime       TaxRegime `json:"regime"`
	TaxableBase  float64   `json:"taxable_base"`
	AppliedRate  float64   `json:"applied_rate"`
	EstimatedTax float64   `json:"estimated_tax"`
	Confidence   float64   `json:"confidence"` // 0.0 - 1.0, two decimals
	Warnings     []string  `json:"warnings,omitempty"`
}
