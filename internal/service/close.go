package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hmoreno/cierre-fiscal/internal/domain"
	"github.com/hmoreno/cierre-fiscal/internal/infra/observability"
	"github.com/hmoreno/cierre-fiscal/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var closeTracer = otel.Tracer("close")

// CloseService is the store-facing surface over the pure derivations:
// record ingestion, monthly snapshots (cached), tax estimates and journey
// evaluation for one canonical store.
type CloseService struct {
	records   port.RecordStore
	journeys  port.JourneyStore
	estimator *TaxEstimator

	defaults domain.ResolvedFlags
	cache    port.Cache[domain.MonthlySnapshot]
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewCloseService wires the close service.
func NewCloseService(
	records port.RecordStore,
	journeys port.JourneyStore,
	estimator *TaxEstimator,
	defaults domain.ResolvedFlags,
	cache port.Cache[domain.MonthlySnapshot],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *CloseService {
	return &CloseService{
		records:   records,
		journeys:  journeys,
		estimator: estimator,
		defaults:  defaults,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
	}
}

// Flags resolves the effective feature flags for a profile.
func (s *CloseService) Flags(profile *domain.Profile) domain.ResolvedFlags {
	return profile.Resolve(s.defaults)
}

// ============================================================
// Records
// ============================================================

// ListRecords returns the profile's canonical records, optionally filtered
// to one YYYY-MM month.
func (s *CloseService) ListRecords(ctx context.Context, profile *domain.Profile, month string) ([]domain.FinancialRecord, error) {
	ctx, span := closeTracer.Start(ctx, "CloseService.ListRecords")
	defer span.End()

	recs, err := s.records.GetAll(ctx, profile.ID)
	if err != nil {
		s.metrics.IncrExternalError("records")
		return nil, err
	}
	if month == "" {
		return recs, nil
	}
	return FilterMonth(month, recs), nil
}

// CreateRecord normalizes one tagged raw input and appends it to the store.
// Normalization is total, so the only failure mode is the store itself.
func (s *CloseService) CreateRecord(ctx context.Context, profile *domain.Profile, in domain.RawInput, opts NormalizeOptions) (*domain.FinancialRecord, error) {
	ctx, span := closeTracer.Start(ctx, "CloseService.CreateRecord")
	defer span.End()

	rec := Normalize(in, opts)
	if err := s.records.Add(ctx, profile.ID, rec); err != nil {
		s.metrics.IncrExternalError("records")
		return nil, err
	}
	s.invalidateMonth(profile.ID, rec.Date)

	s.logger.Debug("record created",
		zap.String("profile_id", profile.ID),
		zap.String("record_id", rec.ID),
		zap.String("source", string(rec.Source)),
	)
	return &rec, nil
}

// DeleteRecord removes one record by id (explicit user action).
func (s *CloseService) DeleteRecord(ctx context.Context, profile *domain.Profile, recordID string) error {
	ctx, span := closeTracer.Start(ctx, "CloseService.DeleteRecord")
	defer span.End()

	if recordID == "" {
		return &domain.ErrValidation{Field: "record_id", Message: "required"}
	}
	if err := s.records.Delete(ctx, profile.ID, recordID); err != nil {
		s.metrics.IncrExternalError("records")
		return err
	}
	// The record's month is unknown here; staleness is bounded by the
	// snapshot cache TTL.
	return nil
}

// ============================================================
// Snapshots & tax estimates
// ============================================================

// Snapshot computes (or serves from cache) the monthly snapshot for a
// profile, attaching the tax summary when the tax engine flag resolves on.
func (s *CloseService) Snapshot(ctx context.Context, profile *domain.Profile, month string) (*domain.MonthlySnapshot, error) {
	ctx, span := closeTracer.Start(ctx, "CloseService.Snapshot")
	defer span.End()
	span.SetAttributes(attribute.String("month", month))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("snapshot", time.Since(start)) }()

	if err := validateMonth(month); err != nil {
		return nil, err
	}

	flags := s.Flags(profile)
	cacheKey := snapshotCacheKey(profile.ID, month, flags.TaxEngineEnabled)
	if snap, ok := s.cache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("snapshot")
		return &snap, nil
	}
	s.metrics.IncrCacheMiss("snapshot")

	recs, err := s.records.GetAll(ctx, profile.ID)
	if err != nil {
		s.metrics.IncrExternalError("records")
		return nil, err
	}

	snap := BuildSnapshot(month, recs)
	if flags.TaxEngineEnabled {
		est := s.estimator.Estimate(FilterMonth(month, recs), profile.TaxRegime, true)
		snap.TaxSummary = &est
	}
	s.metrics.IncrSnapshotBuild()

	s.cache.Set(cacheKey, snap)
	return &snap, nil
}

// Estimate runs the tax estimator for one month. The disabled-flag path is
// a valid outcome carrying a warning, not an error.
func (s *CloseService) Estimate(ctx context.Context, profile *domain.Profile, month string) (*domain.TaxEstimate, error) {
	ctx, span := closeTracer.Start(ctx, "CloseService.Estimate")
	defer span.End()

	if err := validateMonth(month); err != nil {
		return nil, err
	}

	recs, err := s.records.GetAll(ctx, profile.ID)
	if err != nil {
		s.metrics.IncrExternalError("records")
		return nil, err
	}

	flags := s.Flags(profile)
	est := s.estimator.Estimate(FilterMonth(month, recs), profile.TaxRegime, flags.TaxEngineEnabled)
	return &est, nil
}

// ============================================================
// Journey
// ============================================================

// Journey evaluates the month's workflow. Reads never write: persisted
// state only feeds the manual backup step.
func (s *CloseService) Journey(ctx context.Context, profile *domain.Profile, month string) (*domain.JourneyState, error) {
	ctx, span := closeTracer.Start(ctx, "CloseService.Journey")
	defer span.End()

	snap, err := s.Snapshot(ctx, profile, month)
	if err != nil {
		return nil, err
	}

	current, err := s.loadJourney(ctx, profile.ID, month)
	if err != nil {
		return nil, err
	}

	state := EvaluateJourney(*current, *snap, s.Flags(profile))
	return &state, nil
}

// ToggleBackup flips the manual backup step and persists the result. This
// is the single store write the journey performs.
func (s *CloseService) ToggleBackup(ctx context.Context, profile *domain.Profile, month string) (*domain.JourneyState, error) {
	ctx, span := closeTracer.Start(ctx, "CloseService.ToggleBackup")
	defer span.End()

	state, err := s.Journey(ctx, profile, month)
	if err != nil {
		return nil, err
	}

	step := state.StepByID(domain.StepBackup)
	if step == nil {
		return nil, fmt.Errorf("journey: backup step missing")
	}
	if step.Status == domain.StepBlocked {
		return nil, &domain.ErrValidation{Field: "backup", Message: "step is blocked"}
	}

	if step.Status == domain.StepDone {
		step.Status = domain.StepPending
	} else {
		step.Status = domain.StepDone
	}

	if err := s.journeys.PutJourney(ctx, *state); err != nil {
		s.metrics.IncrExternalError("journeys")
		return nil, err
	}
	return state, nil
}

// loadJourney fetches the persisted state or seeds an empty one.
func (s *CloseService) loadJourney(ctx context.Context, profileID, month string) (*domain.JourneyState, error) {
	state, err := s.journeys.GetJourney(ctx, profileID, month)
	if err != nil {
		s.metrics.IncrExternalError("journeys")
		return nil, err
	}
	if state == nil {
		return &domain.JourneyState{
			ID:        uuid.NewString(),
			ProfileID: profileID,
			Month:     month,
		}, nil
	}
	return state, nil
}

// ============================================================
// Helpers
// ============================================================

// validateMonth accepts exactly YYYY-MM. Full dates are valid record dates
// but not valid month parameters.
func validateMonth(month string) error {
	if _, err := time.Parse("2006-01", month); err != nil {
		return &domain.ErrValidation{Field: "month", Message: "expected YYYY-MM"}
	}
	return nil
}

// snapshotCacheKey varies by the resolved tax flag: the cached value embeds
// the tax summary, so profiles resolving the flag differently must not
// share an entry.
func snapshotCacheKey(profileID, month string, taxEnabled bool) string {
	key := profileID + ":" + month
	if taxEnabled {
		key += ":tax"
	}
	return key
}

func (s *CloseService) invalidateMonth(profileID, date string) {
	if month, ok := MonthKey(date); ok {
		s.cache.Delete(snapshotCacheKey(profileID, month, false))
		s.cache.Delete(snapshotCacheKey(profileID, month, true))
	}
}
