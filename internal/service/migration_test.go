package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hmoreno/cierre-fiscal/internal/domain"
	"github.com/hmoreno/cierre-fiscal/internal/infra/observability"
	"github.com/hmoreno/cierre-fiscal/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockLegacyStore struct {
	records map[string][]domain.LegacyRecord
	err     error
}

func (m *mockLegacyStore) ListRecords(_ context.Context, sourceKey string) ([]domain.LegacyRecord, error) {
	return m.records[sourceKey], m.err
}

func (m *mockLegacyStore) GetSnapshot(_ context.Context, _ string) ([]byte, error) {
	return nil, nil
}

func (m *mockLegacyStore) SetSnapshot(_ context.Context, _ string, _ []byte) error {
	return nil
}

type mockRecordStore struct {
	stored   []domain.FinancialRecord
	putCalls [][]domain.FinancialRecord
	putErr   error
}

func (m *mockRecordStore) GetAll(_ context.Context, _ string) ([]domain.FinancialRecord, error) {
	return m.stored, nil
}

func (m *mockRecordStore) Add(_ context.Context, _ string, rec domain.FinancialRecord) error {
	m.stored = append(m.stored, rec)
	return nil
}

// PutMany mirrors the canonical store's id-keyed upsert: an incoming record
// replaces the stored row with the same id, otherwise it inserts.
func (m *mockRecordStore) PutMany(_ context.Context, _ string, recs []domain.FinancialRecord) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.putCalls = append(m.putCalls, recs)
	for _, rec := range recs {
		replaced := false
		for i := range m.stored {
			if m.stored[i].ID == rec.ID {
				m.stored[i] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			m.stored = append(m.stored, rec)
		}
	}
	return nil
}

func (m *mockRecordStore) Delete(_ context.Context, _, _ string) error {
	return nil
}

type mockStatusStore struct {
	status   *domain.MigrationStatus
	setCalls int
	getErr   error
	setErr   error
}

func (m *mockStatusStore) GetStatus(_ context.Context, _ string) (*domain.MigrationStatus, error) {
	return m.status, m.getErr
}

func (m *mockStatusStore) SetStatus(_ context.Context, _ string, status domain.MigrationStatus) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.setCalls++
	m.status = &status
	return nil
}

// --- Fixtures ---

func legacyRec(sourceKey string, createdAt time.Time, payload string) domain.LegacyRecord {
	return domain.LegacyRecord{
		ID:        sourceKey + "-" + createdAt.Format("20060102"),
		SourceKey: sourceKey,
		CreatedAt: createdAt,
		Payload:   json.RawMessage(payload),
	}
}

func newEngine(legacy *mockLegacyStore, records *mockRecordStore, status *mockStatusStore) *service.MigrationEngine {
	return service.NewMigrationEngine(
		legacy,
		records,
		status,
		service.NewLegacyAdapterRegistry(),
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

// --- Tests ---

func TestMigrationRun_ConsolidatesAllSources(t *testing.T) {
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	legacy := &mockLegacyStore{records: map[string][]domain.LegacyRecord{
		service.LegacySourceBank: {
			legacyRec(service.LegacySourceBank, ts,
				`{"movements":[{"movement_id":"mov-1","date":"2025-03-05","amount":5000,"direction":"credit","description":"Client payment"}]}`),
		},
		service.LegacySourceInvoices: {
			legacyRec(service.LegacySourceInvoices, ts,
				`{"items":[
					{"invoice_id":"inv-1","document_uuid":"uuid-1","issued_at":"2025-03-06","total":1160,"concept":"Hosting"},
					{"invoice_id":"inv-1b","document_uuid":"uuid-1","issued_at":"2025-03-06","total":1160,"concept":"Hosting (resync)"}
				]}`),
		},
		service.LegacySourceManual: {
			legacyRec(service.LegacySourceManual, ts,
				`[{"id":"man-1","date":"2025-03-07","amount":200,"concept":"Stamps","type":"expense"}]`),
		},
		service.LegacySourceTaxes: {
			legacyRec(service.LegacySourceTaxes, ts,
				`{"payments":[{"id":"tax-1","date":"2025-03-17","amount":900,"concept":"Provisional payment"}]}`),
		},
	}}
	records := &mockRecordStore{}
	status := &mockStatusStore{}

	report, err := newEngine(legacy, records, status).Run(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if report.Extracted != 5 {
		t.Errorf("expected 5 extracted, got %d", report.Extracted)
	}
	if report.Migrated != 4 {
		t.Errorf("expected 4 migrated after dedup, got %d", report.Migrated)
	}
	if report.Collapsed != 1 {
		t.Errorf("expected 1 collapsed duplicate, got %d", report.Collapsed)
	}
	if report.Skipped {
		t.Error("expected a real run, not a skip")
	}

	if len(records.putCalls) != 1 || len(records.putCalls[0]) != 4 {
		t.Fatalf("expected one batch of 4 records, got %v", records.putCalls)
	}
	if status.status == nil || !status.status.Complete {
		t.Error("expected status marked complete")
	}

	// Source defaults applied through the per-source adapters.
	bySource := map[domain.RecordSource]int{}
	for _, rec := range records.putCalls[0] {
		bySource[rec.Source]++
	}
	if bySource[domain.SourceBank] != 1 || bySource[domain.SourceInvoice] != 1 ||
		bySource[domain.SourceManual] != 1 || bySource[domain.SourceTax] != 1 {
		t.Errorf("unexpected source spread: %v", bySource)
	}
}

func TestMigrationRun_SecondRunSkips(t *testing.T) {
	legacy := &mockLegacyStore{records: map[string][]domain.LegacyRecord{}}
	records := &mockRecordStore{}
	status := &mockStatusStore{}
	engine := newEngine(legacy, records, status)

	if _, err := engine.Run(context.Background(), "p-1"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	report, err := engine.Run(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !report.Skipped {
		t.Error("expected second run skipped")
	}
	if status.setCalls != 1 {
		t.Errorf("expected status written once, got %d", status.setCalls)
	}
}

func TestMigrationRun_PicksLatestLegacySnapshot(t *testing.T) {
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	legacy := &mockLegacyStore{records: map[string][]domain.LegacyRecord{
		service.LegacySourceManual: {
			legacyRec(service.LegacySourceManual, ts,
				`[{"id":"old","date":"2025-02-01","amount":1,"concept":"Old export"}]`),
			legacyRec(service.LegacySourceManual, ts.Add(48*time.Hour),
				`[{"id":"new","date":"2025-03-01","amount":2,"concept":"New export"}]`),
		},
	}}
	records := &mockRecordStore{}
	status := &mockStatusStore{}

	report, err := newEngine(legacy, records, status).Run(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.Migrated != 1 {
		t.Fatalf("expected 1 migrated, got %d", report.Migrated)
	}
	if got := records.putCalls[0][0].ID; got != "new" {
		t.Errorf("expected the later export to win, got %q", got)
	}
}

func TestMigrationRun_UnreadablePayloadSkipsSource(t *testing.T) {
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	legacy := &mockLegacyStore{records: map[string][]domain.LegacyRecord{
		service.LegacySourceBank: {
			legacyRec(service.LegacySourceBank, ts, `{{{not json`),
		},
		service.LegacySourceManual: {
			legacyRec(service.LegacySourceManual, ts,
				`[{"id":"man-1","date":"2025-03-07","amount":200,"concept":"Stamps"}]`),
		},
	}}
	records := &mockRecordStore{}
	status := &mockStatusStore{}

	report, err := newEngine(legacy, records, status).Run(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("expected run to survive an unreadable source, got %v", err)
	}
	if report.Migrated != 1 {
		t.Errorf("expected only the readable source migrated, got %d", report.Migrated)
	}
	if status.status == nil || !status.status.Complete {
		t.Error("expected status marked complete despite the skipped source")
	}
}

func TestMigrationRun_BareArrayBankFallback(t *testing.T) {
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	legacy := &mockLegacyStore{records: map[string][]domain.LegacyRecord{
		service.LegacySourceBank: {
			legacyRec(service.LegacySourceBank, ts,
				`[{"movement_id":"mov-9","date":"2025-03-09","amount":100,"direction":"debit"}]`),
		},
	}}
	records := &mockRecordStore{}
	status := &mockStatusStore{}

	report, err := newEngine(legacy, records, status).Run(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.Migrated != 1 {
		t.Errorf("expected the bare-array export read, got %d migrated", report.Migrated)
	}
}

func TestMigrationRun_StoreFailureLeavesStatusIncomplete(t *testing.T) {
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	legacy := &mockLegacyStore{records: map[string][]domain.LegacyRecord{
		service.LegacySourceManual: {
			legacyRec(service.LegacySourceManual, ts,
				`[{"id":"man-1","date":"2025-03-07","amount":200,"concept":"Stamps"}]`),
		},
	}}
	records := &mockRecordStore{putErr: errors.New("store down")}
	status := &mockStatusStore{}

	_, err := newEngine(legacy, records, status).Run(context.Background(), "p-1")
	if err == nil {
		t.Fatal("expected an error")
	}
	if status.setCalls != 0 {
		t.Error("expected status untouched after a failed write")
	}
}

func TestMigrationRun_StatusWriteFailureRetriesNextRun(t *testing.T) {
	legacy := &mockLegacyStore{records: map[string][]domain.LegacyRecord{}}
	records := &mockRecordStore{}
	status := &mockStatusStore{setErr: errors.New("store down")}
	engine := newEngine(legacy, records, status)

	if _, err := engine.Run(context.Background(), "p-1"); err == nil {
		t.Fatal("expected an error when the flag cannot be written")
	}

	status.setErr = nil
	report, err := engine.Run(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if report.Skipped {
		t.Error("expected a real run on retry")
	}
}

func TestMigrationRun_RetryAfterStatusFailureDoesNotDuplicate(t *testing.T) {
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	legacy := &mockLegacyStore{records: map[string][]domain.LegacyRecord{
		service.LegacySourceManual: {
			// No caller id, so normalization mints a fresh one per run.
			legacyRec(service.LegacySourceManual, ts,
				`[{"date":"2025-03-07","amount":200,"concept":"Stamps"}]`),
		},
	}}
	records := &mockRecordStore{}
	status := &mockStatusStore{setErr: errors.New("store down")}
	engine := newEngine(legacy, records, status)

	if _, err := engine.Run(context.Background(), "p-1"); err == nil {
		t.Fatal("expected an error when the flag cannot be written")
	}
	if len(records.stored) != 1 {
		t.Fatalf("expected the batch written before the flag failure, got %d records", len(records.stored))
	}

	status.setErr = nil
	report, err := engine.Run(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if report.Migrated != 1 {
		t.Errorf("expected 1 migrated on retry, got %d", report.Migrated)
	}
	if len(records.stored) != 1 {
		t.Errorf("expected the retry to land on the existing row, got %d records", len(records.stored))
	}
	if status.status == nil || !status.status.Complete {
		t.Error("expected status marked complete after retry")
	}
}

func TestMigrationRun_DetachesFromCallerCancellation(t *testing.T) {
	legacy := &mockLegacyStore{records: map[string][]domain.LegacyRecord{}}
	records := &mockRecordStore{}
	status := &mockStatusStore{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newEngine(legacy, records, status).Run(ctx, "p-1")
	if err != nil {
		t.Fatalf("expected run to finish despite cancelled caller, got %v", err)
	}
	if report.Skipped {
		t.Error("expected a real run")
	}
}
