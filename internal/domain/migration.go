package domain

import (
	"encoding/json"
	"time"
)

// ============================================================
// Legacy data consolidation
// ============================================================

// MigrationStatus is the persisted idempotency flag for the one-time legacy
// consolidation. Absence or Complete=false means "retry on next startup";
// it is written only after a full successful pass.
type MigrationStatus struct {
	Complete    bool      `json:"complete"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// LegacyRecord is one entry of the legacy append log: an opaque payload
// written by an old per-source data path, plus enough bookkeeping to pick
// the most recent snapshot per source.
type LegacyRecord struct {
	ID        string          `json:"id"`
	SourceKey string          `json:"source_key"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

// MigrationReport summarizes one consolidation run.
type MigrationReport struct {
	Extracted  int       `json:"extracted"`
	Migrated   int       `json:"migrated"` // surviving records after dedup
	Collapsed  int       `json:"collapsed"`
	Skipped    bool      `json:"skipped"` // status already complete
	FinishedAt time.Time `json:"finished_at"`
}
