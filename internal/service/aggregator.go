package service

import (
	"strings"
	"time"

	"github.com/hmoreno/cierre-fiscal/internal/domain"
)

// ============================================================
// Monthly aggregator
// ============================================================
//
// Pure derivation over the full canonical record set. Filtering down to the
// month is the aggregator's job, not the caller's, and dates show up in
// several shapes (full timestamps, date-only, month-only), so comparison
// always happens on a normalized YYYY-MM prefix.

// dateLayouts are tried in order when normalizing a record date.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
}

// MonthKey normalizes a date string to its YYYY-MM key. Unparseable dates
// return ok=false and are excluded from aggregation.
func MonthKey(date string) (string, bool) {
	s := strings.TrimSpace(date)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01"), true
		}
	}
	return "", false
}

// BuildSnapshot computes the monthly snapshot for the given YYYY-MM month
// over the full record set. It never attaches a tax summary; that is the
// close service's call, gated by the profile's tax engine flag.
func BuildSnapshot(month string, records []domain.FinancialRecord) domain.MonthlySnapshot {
	stats := domain.MonthlyStats{
		SourcesCount: map[domain.RecordSource]int{
			domain.SourceBank:    0,
			domain.SourceInvoice: 0,
			domain.SourceManual:  0,
			domain.SourceTax:     0,
		},
	}

	for _, rec := range records {
		key, ok := MonthKey(rec.Date)
		if !ok || key != month {
			continue
		}

		stats.RecordCount++
		switch rec.Type {
		case domain.TypeIncome:
			stats.TotalIncome += rec.Amount
		case domain.TypeExpense:
			stats.TotalExpenses += rec.Amount
			switch rec.Taxability {
			case domain.TaxabilityDeductible:
				stats.DeductibleExpenses += rec.Amount
			case domain.TaxabilityNonDeductible:
				stats.NonDeductibleExpenses += rec.Amount
			}
		case domain.TypeTax:
			stats.TotalTaxes += rec.Amount
		}

		if rec.Taxability == domain.TaxabilityUnknown {
			stats.UnknownClassifications++
		}

		switch rec.Source {
		case domain.SourceBank, domain.SourceInvoice, domain.SourceTax:
			stats.SourcesCount[rec.Source]++
		default:
			// Everything unrecognized counts as manual. Deliberate catch-all.
			stats.SourcesCount[domain.SourceManual]++
		}
	}

	return domain.MonthlySnapshot{
		Month: month,
		Stats: stats,
		Signals: domain.MonthlySignals{
			NeedsBankImport:     stats.SourcesCount[domain.SourceBank] == 0,
			NeedsInvoiceImport:  stats.SourcesCount[domain.SourceInvoice] == 0,
			NeedsClassification: stats.UnknownClassifications > 0,
			NeedsReconciliation: false, // reserved for bank-to-invoice matching
		},
	}
}

// FilterMonth returns the subset of records belonging to the given month.
// Used by the tax estimator path, which works over the month's records only.
func FilterMonth(month string, records []domain.FinancialRecord) []domain.FinancialRecord {
	out := make([]domain.FinancialRecord, 0, len(records))
	for _, rec := range records {
		if key, ok := MonthKey(rec.Date); ok && key == month {
			out = append(out, rec)
		}
	}
	return out
}
