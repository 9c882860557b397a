// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/hmoreno/cierre-fiscal/internal/domain"
)

// RecordStore is the canonical financial record collection for one tenant
// database. PutMany upserts by record id.
type RecordStore interface {
	GetAll(ctx context.Context, profileID string) ([]domain.FinancialRecord, error)
	Add(ctx context.Context, profileID string, rec domain.FinancialRecord) error
	PutMany(ctx context.Context, profileID string, recs []domain.FinancialRecord) error
	Delete(ctx context.Context, profileID, recordID string) error
}

// JourneyStore persists per-month journey state. Only the manual backup
// toggle writes through it; evaluation itself never does.
type JourneyStore interface {
	GetJourney(ctx context.Context, profileID, month string) (*domain.JourneyState, error)
	PutJourney(ctx context.Context, state domain.JourneyState) error
}

// MigrationStatusStore keeps the consolidation idempotency flag, keyed
// independently of any entity collection.
type MigrationStatusStore interface {
	GetStatus(ctx context.Context, profileID string) (*domain.MigrationStatus, error)
	SetStatus(ctx context.Context, profileID string, status domain.MigrationStatus) error
}

// LegacyStore exposes the pre-consolidation per-source data: an append log
// of records sortable by creation time plus a key/value snapshot area.
type LegacyStore interface {
	ListRecords(ctx context.Context, sourceKey string) ([]domain.LegacyRecord, error)
	GetSnapshot(ctx context.Context, key string) ([]byte, error)
	SetSnapshot(ctx context.Context, key string, value []byte) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
