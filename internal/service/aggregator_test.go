package service_test

import (
	"testing"

	"github.com/hmoreno/cierre-fiscal/internal/domain"
	"github.com/hmoreno/cierre-fiscal/internal/service"
)

func TestMonthKey(t *testing.T) {
	cases := []struct {
		date string
		want string
		ok   bool
	}{
		{"2025-03-05T14:30:00Z", "2025-03", true},
		{"2025-03-05T14:30:00", "2025-03", true},
		{"2025-03-05", "2025-03", true},
		{"2025-03", "2025-03", true},
		{"  2025-03-05  ", "2025-03", true},
		{"", "", false},
		{"05/03/2025", "", false},
		{"not a date", "", false},
	}

	for _, c := range cases {
		got, ok := service.MonthKey(c.date)
		if ok != c.ok || got != c.want {
			t.Errorf("MonthKey(%q) = (%q, %v), want (%q, %v)", c.date, got, ok, c.want, c.ok)
		}
	}
}

func TestBuildSnapshot_Totals(t *testing.T) {
	records := []domain.FinancialRecord{
		{Date: "2025-03-01", Amount: 10000, Type: domain.TypeIncome, Source: domain.SourceBank, Taxability: domain.TaxabilityNonDeductible},
		{Date: "2025-03-05T10:00:00Z", Amount: 2000, Type: domain.TypeExpense, Source: domain.SourceInvoice, Taxability: domain.TaxabilityDeductible},
		{Date: "2025-03-09", Amount: 500, Type: domain.TypeExpense, Source: domain.SourceManual, Taxability: domain.TaxabilityNonDeductible},
		{Date: "2025-03-15", Amount: 300, Type: domain.TypeExpense, Source: domain.SourceManual, Taxability: domain.TaxabilityUnknown},
		{Date: "2025-03-17", Amount: 1200, Type: domain.TypeTax, Source: domain.SourceTax, Taxability: domain.TaxabilityNonDeductible},
		// Outside the month, or unusable date: excluded.
		{Date: "2025-04-01", Amount: 999, Type: domain.TypeIncome, Source: domain.SourceBank},
		{Date: "garbage", Amount: 999, Type: domain.TypeIncome, Source: domain.SourceBank},
	}

	snap := service.BuildSnapshot("2025-03", records)
	stats := snap.Stats

	if snap.Month != "2025-03" {
		t.Errorf("expected month 2025-03, got %q", snap.Month)
	}
	if stats.RecordCount != 5 {
		t.Errorf("expected 5 records in month, got %d", stats.RecordCount)
	}
	if stats.TotalIncome != 10000 {
		t.Errorf("expected income 10000, got %v", stats.TotalIncome)
	}
	if stats.TotalExpenses != 2800 {
		t.Errorf("expected expenses 2800, got %v", stats.TotalExpenses)
	}
	if stats.TotalTaxes != 1200 {
		t.Errorf("expected taxes 1200, got %v", stats.TotalTaxes)
	}
	if stats.DeductibleExpenses != 2000 || stats.NonDeductibleExpenses != 500 {
		t.Errorf("expected deductible 2000 / non-deductible 500, got %v / %v",
			stats.DeductibleExpenses, stats.NonDeductibleExpenses)
	}
	if stats.UnknownClassifications != 1 {
		t.Errorf("expected 1 unknown classification, got %d", stats.UnknownClassifications)
	}
	if stats.SourcesCount[domain.SourceBank] != 1 || stats.SourcesCount[domain.SourceInvoice] != 1 ||
		stats.SourcesCount[domain.SourceManual] != 2 || stats.SourcesCount[domain.SourceTax] != 1 {
		t.Errorf("unexpected sources count: %v", stats.SourcesCount)
	}
}

func TestBuildSnapshot_Signals(t *testing.T) {
	empty := service.BuildSnapshot("2025-03", nil)
	if !empty.Signals.NeedsBankImport || !empty.Signals.NeedsInvoiceImport {
		t.Error("expected import signals for an empty month")
	}
	if empty.Signals.NeedsClassification {
		t.Error("expected no classification signal without records")
	}
	if empty.Signals.NeedsReconciliation {
		t.Error("reconciliation signal is reserved and must stay false")
	}
	if empty.Stats.SourcesCount == nil {
		t.Fatal("expected sources map to be pre-seeded")
	}
	for _, src := range []domain.RecordSource{domain.SourceBank, domain.SourceInvoice, domain.SourceManual, domain.SourceTax} {
		if _, ok := empty.Stats.SourcesCount[src]; !ok {
			t.Errorf("expected source %q pre-seeded", src)
		}
	}

	full := service.BuildSnapshot("2025-03", []domain.FinancialRecord{
		{Date: "2025-03-01", Amount: 1, Type: domain.TypeIncome, Source: domain.SourceBank, Taxability: domain.TaxabilityNonDeductible},
		{Date: "2025-03-02", Amount: 1, Type: domain.TypeExpense, Source: domain.SourceInvoice, Taxability: domain.TaxabilityUnknown},
	})
	if full.Signals.NeedsBankImport || full.Signals.NeedsInvoiceImport {
		t.Error("expected import signals cleared when both sources present")
	}
	if !full.Signals.NeedsClassification {
		t.Error("expected classification signal with an unknown record")
	}
}

func TestBuildSnapshot_UnrecognizedSourceCountsAsManual(t *testing.T) {
	snap := service.BuildSnapshot("2025-03", []domain.FinancialRecord{
		{Date: "2025-03-01", Amount: 1, Type: domain.TypeIncome, Source: domain.RecordSource("spreadsheet")},
	})
	if snap.Stats.SourcesCount[domain.SourceManual] != 1 {
		t.Errorf("expected unrecognized source counted as manual, got %v", snap.Stats.SourcesCount)
	}
}

func TestFilterMonth(t *testing.T) {
	records := []domain.FinancialRecord{
		{ID: "in", Date: "2025-03-10"},
		{ID: "out", Date: "2025-02-10"},
		{ID: "bad", Date: "nope"},
	}

	got := service.FilterMonth("2025-03", records)
	if len(got) != 1 || got[0].ID != "in" {
		t.Errorf("expected only the in-month record, got %v", got)
	}
}
