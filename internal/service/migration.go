package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hmoreno/cierre-fiscal/internal/domain"
	"github.com/hmoreno/cierre-fiscal/internal/infra/observability"
	"github.com/hmoreno/cierre-fiscal/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var migrationTracer = otel.Tracer("migration")

// ============================================================
// Migration engine
// ============================================================
//
// One-time consolidation of legacy per-source data into the canonical store.
// Safe to call on every startup: a persisted status flag short-circuits
// completed runs, and survivors merge onto already-stored rows by identity
// key, so partial writes from a failed run are harmless on retry.

// MigrationEngine performs the idempotent legacy consolidation.
type MigrationEngine struct {
	legacy   port.LegacyStore
	records  port.RecordStore
	status   port.MigrationStatusStore
	registry *LegacyAdapterRegistry

	group   singleflight.Group
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewMigrationEngine wires the engine. The adapter registry is constructed
// by the caller at startup and shared by reference.
func NewMigrationEngine(
	legacy port.LegacyStore,
	records port.RecordStore,
	status port.MigrationStatusStore,
	registry *LegacyAdapterRegistry,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *MigrationEngine {
	return &MigrationEngine{
		legacy:   legacy,
		records:  records,
		status:   status,
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run consolidates all legacy sources for one profile. Concurrent calls for
// the same profile share a single in-flight run. The run detaches from the
// caller's cancellation: aborting a consolidation halfway would strand the
// status flag incomplete, and finishing is cheap.
func (e *MigrationEngine) Run(ctx context.Context, profileID string) (*domain.MigrationReport, error) {
	v, err, _ := e.group.Do(profileID, func() (any, error) {
		return e.run(context.WithoutCancel(ctx), profileID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.MigrationReport), nil
}

// Status reads the persisted consolidation flag for a profile. A nil status
// means no run has completed yet.
func (e *MigrationEngine) Status(ctx context.Context, profileID string) (*domain.MigrationStatus, error) {
	return e.status.GetStatus(ctx, profileID)
}

func (e *MigrationEngine) run(ctx context.Context, profileID string) (*domain.MigrationReport, error) {
	ctx, span := migrationTracer.Start(ctx, "MigrationEngine.Run")
	defer span.End()
	span.SetAttributes(attribute.String("profile_id", profileID))

	start := time.Now()
	defer func() { e.metrics.RecordRequestDuration("migration", time.Since(start)) }()

	status, err := e.status.GetStatus(ctx, profileID)
	if err != nil {
		e.metrics.IncrMigrationRun("failed")
		return nil, fmt.Errorf("migration: read status: %w", err)
	}
	if status != nil && status.Complete {
		e.metrics.IncrMigrationRun("skipped")
		return &domain.MigrationReport{Skipped: true, FinishedAt: status.CompletedAt}, nil
	}

	var normalized []domain.FinancialRecord
	extracted := 0
	for _, adapter := range e.registry.All() {
		items, err := e.extractSource(ctx, adapter)
		if err != nil {
			e.metrics.IncrMigrationRun("failed")
			return nil, err
		}
		extracted += len(items)
		for _, item := range items {
			normalized = append(normalized, Normalize(item, adapter.Options))
		}
	}

	survivors := Deduplicate(normalized)
	collapsed := len(normalized) - len(survivors)

	if len(survivors) > 0 {
		// The canonical upsert is keyed by record id, but normalization mints
		// fresh ids. A retry after a partial failure (batch written, flag
		// not) must land on the rows it already wrote, so survivors adopt
		// the id of any stored row sharing their identity key.
		existing, err := e.records.GetAll(ctx, profileID)
		if err != nil {
			e.metrics.IncrMigrationRun("failed")
			return nil, fmt.Errorf("migration: read canonical records: %w", err)
		}
		idByKey := make(map[string]string, len(existing))
		for _, rec := range existing {
			idByKey[IdentityKey(rec)] = rec.ID
		}
		for i := range survivors {
			if id, ok := idByKey[IdentityKey(survivors[i])]; ok {
				survivors[i].ID = id
			}
		}

		if err := e.records.PutMany(ctx, profileID, survivors); err != nil {
			e.metrics.IncrMigrationRun("failed")
			return nil, fmt.Errorf("migration: write canonical batch: %w", err)
		}
	}

	finished := time.Now()
	if err := e.status.SetStatus(ctx, profileID, domain.MigrationStatus{Complete: true, CompletedAt: finished}); err != nil {
		// Not marked complete: the whole run retries on next startup, which
		// the keyed upsert tolerates.
		e.metrics.IncrMigrationRun("failed")
		return nil, fmt.Errorf("migration: mark complete: %w", err)
	}

	e.metrics.IncrMigrationRun("success")
	e.metrics.AddRecordsMigrated(len(survivors))
	e.metrics.AddRecordsCollapsed(collapsed)
	e.logger.Info("legacy consolidation complete",
		zap.String("profile_id", profileID),
		zap.Int("extracted", extracted),
		zap.Int("migrated", len(survivors)),
		zap.Int("collapsed", collapsed),
	)

	return &domain.MigrationReport{
		Extracted:  extracted,
		Migrated:   len(survivors),
		Collapsed:  collapsed,
		FinishedAt: finished,
	}, nil
}

// extractSource loads the most recent legacy record for one source and runs
// the adapter's extraction over its payload. A source with no legacy data,
// or whose payload the adapter cannot read, contributes nothing; an
// unreadable payload is logged but does not fail the run (there is nothing
// to recover from it, now or on any retry).
func (e *MigrationEngine) extractSource(ctx context.Context, adapter LegacyAdapter) ([]domain.RawInput, error) {
	ctx, span := migrationTracer.Start(ctx, "MigrationEngine.extractSource")
	defer span.End()
	span.SetAttributes(attribute.String("source_key", adapter.SourceKey))

	legacyRecs, err := e.legacy.ListRecords(ctx, adapter.SourceKey)
	if err != nil {
		return nil, fmt.Errorf("migration: list legacy %q: %w", adapter.SourceKey, err)
	}
	if len(legacyRecs) == 0 {
		return nil, nil
	}

	latest := legacyRecs[0]
	for _, rec := range legacyRecs[1:] {
		if rec.CreatedAt.After(latest.CreatedAt) {
			latest = rec
		}
	}

	items, err := adapter.Extract(latest.Payload)
	if err != nil {
		e.logger.Warn("skipping unreadable legacy payload",
			zap.String("source_key", adapter.SourceKey),
			zap.String("legacy_id", latest.ID),
			zap.Error(err),
		)
		return nil, nil
	}
	return items, nil
}
