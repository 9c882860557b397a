package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"github.com/hmoreno/cierre-fiscal/internal/domain"
)

// ============================================================
// Record identity and deduplication
// ============================================================
//
// Two records describe the same real-world event if they share a non-empty
// document UUID, else a non-empty bank movement id, else an identical
// (date, amount, source, type) tuple. The merge keeps the record with the
// later UpdatedAt and must be commutative: running it twice, or over two
// inputs in either order, yields the same survivors.

// IdentityKey returns the strongest available dedup key for a record.
func IdentityKey(rec domain.FinancialRecord) string {
	if rec.Links.DocumentUUID != "" {
		return "uuid:" + rec.Links.DocumentUUID
	}
	if rec.Links.BankMovementID != "" {
		return "mov:" + rec.Links.BankMovementID
	}
	return "hash:" + contentHash(rec)
}

// contentHash is the fallback identity for records without an external
// identifier.
func contentHash(rec domain.FinancialRecord) string {
	payload := fmt.Sprintf("%s|%s|%s|%s",
		rec.Date,
		strconv.FormatFloat(rec.Amount, 'f', -1, 64),
		rec.Source,
		rec.Type,
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Deduplicate collapses records that share an identity key. On collision the
// later UpdatedAt wins; equal timestamps fall back to the lexicographically
// smaller ID so the result does not depend on input order. Survivors come
// back sorted by identity key for deterministic batches.
func Deduplicate(recs []domain.FinancialRecord) []domain.FinancialRecord {
	byKey := make(map[string]domain.FinancialRecord, len(recs))
	for _, rec := range recs {
		key := IdentityKey(rec)
		cur, ok := byKey[key]
		if !ok || supersedes(rec, cur) {
			byKey[key] = rec
		}
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.FinancialRecord, 0, len(byKey))
	for _, k := range keys {
		out = append(out, byKey[k])
	}
	return out
}

// supersedes reports whether a should replace b under the merge rules.
func supersedes(a, b domain.FinancialRecord) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID < b.ID
}
