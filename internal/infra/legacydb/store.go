// Package legacydb reads the pre-consolidation local database: an append
// log of per-source payloads plus a key/value snapshot area, as written by
// the old single-source importers. The migration engine is its only
// consumer; nothing new is ever appended here.
package legacydb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hmoreno/cierre-fiscal/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS legacy_records (
	id         TEXT PRIMARY KEY,
	source_key TEXT NOT NULL,
	created_ts INTEGER NOT NULL,
	payload    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_legacy_records_source
	ON legacy_records (source_key, created_ts);

CREATE TABLE IF NOT EXISTS legacy_snapshots (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
`

// Store implements port.LegacyStore over a local SQLite file.
// Uses WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens the legacy database at the given path.
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("legacydb: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("legacydb: connect: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("legacydb: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("legacydb: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ListRecords returns all legacy records for one source key, oldest first.
func (s *Store) ListRecords(ctx context.Context, sourceKey string) ([]domain.LegacyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_key, created_ts, payload
		 FROM legacy_records WHERE source_key = ? ORDER BY created_ts ASC`,
		sourceKey,
	)
	if err != nil {
		return nil, fmt.Errorf("legacydb: list %q: %w", sourceKey, err)
	}
	defer rows.Close()

	var out []domain.LegacyRecord
	for rows.Next() {
		var rec domain.LegacyRecord
		var createdTS int64
		if err := rows.Scan(&rec.ID, &rec.SourceKey, &createdTS, &rec.Payload); err != nil {
			return nil, fmt.Errorf("legacydb: scan: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(createdTS).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetSnapshot returns the value stored under key, or nil when absent.
func (s *Store) GetSnapshot(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM legacy_snapshots WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("legacydb: get snapshot %q: %w", key, err)
	}
	return value, nil
}

// SetSnapshot stores value under key, replacing any previous value.
func (s *Store) SetSnapshot(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO legacy_snapshots (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("legacydb: set snapshot %q: %w", key, err)
	}
	return nil
}

// Append adds one record to the legacy log. Kept for test fixtures and the
// import shims that still write through the old path during rollout.
func (s *Store) Append(ctx context.Context, rec domain.LegacyRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO legacy_records (id, source_key, created_ts, payload) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.SourceKey, rec.CreatedAt.UnixMilli(), []byte(rec.Payload),
	)
	if err != nil {
		return fmt.Errorf("legacydb: append: %w", err)
	}
	return nil
}
