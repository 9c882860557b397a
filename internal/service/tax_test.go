package service_test

import (
	"slices"
	"testing"

	"github.com/hmoreno/cierre-fiscal/internal/domain"
	"github.com/hmoreno/cierre-fiscal/internal/service"
)

var testBrackets = domain.BracketTable{
	{UpperLimit: 25000, Rate: 0.010},
	{UpperLimit: 50000, Rate: 0.011},
	{UpperLimit: 83333.33, Rate: 0.015},
}

func newEstimator() *service.TaxEstimator {
	return service.NewTaxEstimator(service.NewRegimeRegistry(testBrackets, 0.30))
}

func TestEstimate_SimplifiedBracketLookup(t *testing.T) {
	records := []domain.FinancialRecord{
		{Date: "2025-03-01", Amount: 15000, Type: domain.TypeIncome, Source: domain.SourceBank, Taxability: domain.TaxabilityNonDeductible},
		// Expenses do not enter the simplified base.
		{Date: "2025-03-02", Amount: 4000, Type: domain.TypeExpense, Source: domain.SourceInvoice, Taxability: domain.TaxabilityDeductible},
	}

	est := newEstimator().Estimate(records, domain.RegimeSimplified, true)

	if est.TaxableBase != 15000 {
		t.Errorf("expected base 15000, got %v", est.TaxableBase)
	}
	if est.AppliedRate != 0.010 {
		t.Errorf("expected first bracket rate, got %v", est.AppliedRate)
	}
	if est.EstimatedTax != 150 {
		t.Errorf("expected tax 150, got %v", est.EstimatedTax)
	}
	if est.Confidence != 1.0 {
		t.Errorf("expected full confidence, got %v", est.Confidence)
	}
	if len(est.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", est.Warnings)
	}
}

func TestEstimate_SimplifiedAboveTableUsesTopRate(t *testing.T) {
	records := []domain.FinancialRecord{
		{Date: "2025-03-01", Amount: 90000, Type: domain.TypeIncome, Source: domain.SourceBank, Taxability: domain.TaxabilityNonDeductible},
	}

	est := newEstimator().Estimate(records, domain.RegimeSimplified, true)
	if est.AppliedRate != 0.015 {
		t.Errorf("expected top bracket rate, got %v", est.AppliedRate)
	}
}

func TestEstimate_GeneralRegime(t *testing.T) {
	records := []domain.FinancialRecord{
		{Date: "2025-03-01", Amount: 20000, Type: domain.TypeIncome, Source: domain.SourceBank, Taxability: domain.TaxabilityNonDeductible},
		{Date: "2025-03-02", Amount: 5000, Type: domain.TypeExpense, Source: domain.SourceInvoice, Taxability: domain.TaxabilityDeductible},
		// Non-deductible and unknown expenses never reduce the base.
		{Date: "2025-03-03", Amount: 3000, Type: domain.TypeExpense, Source: domain.SourceInvoice, Taxability: domain.TaxabilityNonDeductible},
	}

	est := newEstimator().Estimate(records, domain.RegimeGeneral, true)

	if est.TaxableBase != 15000 {
		t.Errorf("expected base 15000, got %v", est.TaxableBase)
	}
	if est.EstimatedTax != 4500 {
		t.Errorf("expected tax 4500, got %v", est.EstimatedTax)
	}
	if !slices.Contains(est.Warnings, service.WarnGeneralRegimeRough) {
		t.Errorf("expected roughness warning, got %v", est.Warnings)
	}
}

func TestEstimate_GeneralRegimeFloorsNegativeBase(t *testing.T) {
	records := []domain.FinancialRecord{
		{Date: "2025-03-01", Amount: 1000, Type: domain.TypeIncome, Source: domain.SourceBank, Taxability: domain.TaxabilityNonDeductible},
		{Date: "2025-03-02", Amount: 5000, Type: domain.TypeExpense, Source: domain.SourceInvoice, Taxability: domain.TaxabilityDeductible},
	}

	est := newEstimator().Estimate(records, domain.RegimeGeneral, true)
	if est.TaxableBase != 0 || est.EstimatedTax != 0 {
		t.Errorf("expected zero base and tax, got %v / %v", est.TaxableBase, est.EstimatedTax)
	}
}

func TestEstimate_DisabledIsAValidOutcome(t *testing.T) {
	records := []domain.FinancialRecord{
		{Date: "2025-03-01", Amount: 15000, Type: domain.TypeIncome, Source: domain.SourceBank},
	}

	est := newEstimator().Estimate(records, domain.RegimeSimplified, false)

	if est.TaxableBase != 0 || est.EstimatedTax != 0 || est.Confidence != 0 {
		t.Errorf("expected zeroed estimate, got %+v", est)
	}
	if !slices.Contains(est.Warnings, service.WarnTaxEngineDisabled) {
		t.Errorf("expected disabled warning, got %v", est.Warnings)
	}
}

func TestEstimate_UnknownRegime(t *testing.T) {
	est := newEstimator().Estimate(nil, domain.TaxRegime("cooperative"), true)
	if !slices.Contains(est.Warnings, service.WarnUnknownRegime) {
		t.Errorf("expected unknown regime warning, got %v", est.Warnings)
	}
}

func TestEstimate_WarnsOnUnknownTaxabilityAndLowConfidence(t *testing.T) {
	records := []domain.FinancialRecord{
		{Date: "2025-03-01", Amount: 15000, Type: domain.TypeIncome, Source: domain.SourceManual, Taxability: domain.TaxabilityUnknown},
		{Date: "2025-03-02", Amount: 500, Type: domain.TypeExpense, Source: domain.SourceManual, Taxability: domain.TaxabilityUnknown},
	}

	est := newEstimator().Estimate(records, domain.RegimeSimplified, true)

	// All unknown, all manual: confidence 0.
	if est.Confidence != 0 {
		t.Errorf("expected zero confidence, got %v", est.Confidence)
	}
	if !slices.Contains(est.Warnings, service.WarnLowConfidence) {
		t.Errorf("expected low confidence warning, got %v", est.Warnings)
	}
	if !slices.Contains(est.Warnings, service.WarnUnknownTaxability) {
		t.Errorf("expected unknown taxability warning, got %v", est.Warnings)
	}
}

func TestConfidenceScore(t *testing.T) {
	if got := service.ConfidenceScore(nil); got != 1.0 {
		t.Errorf("expected 1.0 for empty set, got %v", got)
	}

	// 2 of 4 known taxability, 3 of 4 verified source:
	// 0.5*0.6 + 0.75*0.4 = 0.60.
	records := []domain.FinancialRecord{
		{Source: domain.SourceBank, Taxability: domain.TaxabilityDeductible},
		{Source: domain.SourceInvoice, Taxability: domain.TaxabilityNonDeductible},
		{Source: domain.SourceTax, Taxability: domain.TaxabilityUnknown},
		{Source: domain.SourceManual, Taxability: domain.TaxabilityUnknown},
	}
	if got := service.ConfidenceScore(records); got != 0.60 {
		t.Errorf("expected 0.60, got %v", got)
	}
}

func TestConfidenceScore_MonotoneInClassification(t *testing.T) {
	records := []domain.FinancialRecord{
		{Source: domain.SourceManual, Taxability: domain.TaxabilityUnknown},
		{Source: domain.SourceManual, Taxability: domain.TaxabilityUnknown},
		{Source: domain.SourceManual, Taxability: domain.TaxabilityUnknown},
	}

	prev := service.ConfidenceScore(records)
	for i := range records {
		records[i].Taxability = domain.TaxabilityDeductible
		cur := service.ConfidenceScore(records)
		if cur < prev {
			t.Fatalf("classifying a record lowered confidence: %v -> %v", prev, cur)
		}
		prev = cur
	}
	if prev != 0.60 {
		t.Errorf("expected 0.60 with all classified but all manual, got %v", prev)
	}
}
