package service

import (
	"github.com/hmoreno/cierre-fiscal/internal/domain"

	"github.com/shopspring/decimal"
)

// ============================================================
// Tax estimator
// ============================================================
//
// Regime-based estimation over one month's records. Estimates only: the
// result carries warnings instead of pretending regulatory precision, and a
// disabled tax engine is a valid outcome, never an error.

const (
	// confidenceThreshold is the score below which the estimate warns about
	// data quality.
	confidenceThreshold = 0.7

	taxabilityWeight = 0.6
	sourceWeight     = 0.4
)

// Estimate result warnings. Kept as fixed strings so callers can test for
// them.
const (
	WarnTaxEngineDisabled  = "tax estimation is disabled for this profile"
	WarnUnknownRegime      = "no estimation strategy for the declared tax regime"
	WarnLowConfidence      = "estimate confidence is low; classify more records or import verified sources"
	WarnUnknownTaxability  = "some records have unknown taxability and were not considered deductible"
	WarnGeneralRegimeRough = "general regime estimate ignores prior-period losses, profit-coefficient provisional payments and annual adjustments"
)

// RegimeStrategy computes base, rate and tax for one regime.
type RegimeStrategy func(records []domain.FinancialRecord) (base, rate, tax decimal.Decimal, warnings []string)

// RegimeRegistry maps declared tax regimes to strategies. Built once at
// startup and passed by reference; add regimes by registering them there.
type RegimeRegistry struct {
	strategies map[domain.TaxRegime]RegimeStrategy
}

// NewRegimeRegistry returns a registry with the two built-in regimes.
func NewRegimeRegistry(brackets domain.BracketTable, generalRate float64) *RegimeRegistry {
	r := &RegimeRegistry{strategies: make(map[domain.TaxRegime]RegimeStrategy)}
	r.Register(domain.RegimeSimplified, simplifiedStrategy(brackets))
	r.Register(domain.RegimeGeneral, generalStrategy(generalRate))
	return r
}

// Register adds or replaces the strategy for a regime.
func (r *RegimeRegistry) Register(regime domain.TaxRegime, s RegimeStrategy) {
	r.strategies[regime] = s
}

// TaxEstimator estimates monthly tax for a profile's declared regime.
type TaxEstimator struct {
	registry *RegimeRegistry
}

// NewTaxEstimator wires the estimator to a regime registry.
func NewTaxEstimator(registry *RegimeRegistry) *TaxEstimator {
	return &TaxEstimator{registry: registry}
}

// Estimate computes the tax estimate for one month's records. When enabled
// is false the result is zeroed and carries a warning; callers must branch
// on that, not treat it as a failure.
func (e *TaxEstimator) Estimate(records []domain.FinancialRecord, regime domain.TaxRegime, enabled bool) domain.TaxEstimate {
	if !enabled {
		return domain.TaxEstimate{Regime: regime, Warnings: []string{WarnTaxEngineDisabled}}
	}

	strategy, ok := e.registry.strategies[regime]
	if !ok {
		return domain.TaxEstimate{Regime: regime, Warnings: []string{WarnUnknownRegime}}
	}

	base, rate, tax, warnings := strategy(records)
	confidence := ConfidenceScore(records)

	if confidence < confidenceThreshold {
		warnings = append(warnings, WarnLowConfidence)
	}
	if hasUnknownTaxability(records) {
		warnings = append(warnings, WarnUnknownTaxability)
	}

	return domain.TaxEstimate{
		Regime:       regime,
		TaxableBase:  base.Round(2).InexactFloat64(),
		AppliedRate:  rate.InexactFloat64(),
		EstimatedTax: tax.Round(2).InexactFloat64(),
		Confidence:   confidence,
		Warnings:     warnings,
	}
}

// simplifiedStrategy: taxable base is gross income (tax-type records
// excluded); the rate comes from the ascending bracket table.
func simplifiedStrategy(brackets domain.BracketTable) RegimeStrategy {
	return func(records []domain.FinancialRecord) (decimal.Decimal, decimal.Decimal, decimal.Decimal, []string) {
		base := decimal.Zero
		for _, rec := range records {
			if rec.Type == domain.TypeIncome {
				base = base.Add(decimal.NewFromFloat(rec.Amount))
			}
		}
		rate := decimal.NewFromFloat(brackets.RateFor(base.InexactFloat64()))
		return base, rate, base.Mul(rate), nil
	}
}

// generalStrategy: taxable base is income minus deductible expenses, floored
// at zero, times one flat estimated rate. Always flags its roughness.
func generalStrategy(flatRate float64) RegimeStrategy {
	return func(records []domain.FinancialRecord) (decimal.Decimal, decimal.Decimal, decimal.Decimal, []string) {
		income := decimal.Zero
		deductible := decimal.Zero
		for _, rec := range records {
			switch {
			case rec.Type == domain.TypeIncome:
				income = income.Add(decimal.NewFromFloat(rec.Amount))
			case rec.Type == domain.TypeExpense && rec.Taxability == domain.TaxabilityDeductible:
				deductible = deductible.Add(decimal.NewFromFloat(rec.Amount))
			}
		}
		base := income.Sub(deductible)
		if base.IsNegative() {
			base = decimal.Zero
		}
		rate := decimal.NewFromFloat(flatRate)
		return base, rate, base.Mul(rate), []string{WarnGeneralRegimeRough}
	}
}

// ConfidenceScore is a 0..1 data-quality score: the fraction of records with
// known taxability (weight 0.6) plus the fraction from a verified source,
// meaning bank, invoice or tax rather than manual (weight 0.4). Rounded to
// two decimals. An empty record set scores a full 1.0 on both fractions.
func ConfidenceScore(records []domain.FinancialRecord) float64 {
	if len(records) == 0 {
		return 1.0
	}

	known := 0
	verified := 0
	for _, rec := range records {
		if rec.Taxability != domain.TaxabilityUnknown {
			known++
		}
		switch rec.Source {
		case domain.SourceBank, domain.SourceInvoice, domain.SourceTax:
			verified++
		}
	}

	total := decimal.NewFromInt(int64(len(records)))
	knownFrac := decimal.NewFromInt(int64(known)).Div(total)
	verifiedFrac := decimal.NewFromInt(int64(verified)).Div(total)

	score := knownFrac.Mul(decimal.NewFromFloat(taxabilityWeight)).
		Add(verifiedFrac.Mul(decimal.NewFromFloat(sourceWeight)))
	return score.Round(2).InexactFloat64()
}

func hasUnknownTaxability(records []domain.FinancialRecord) bool {
	for _, rec := range records {
		if rec.Taxability == domain.TaxabilityUnknown {
			return true
		}
	}
	return false
}
