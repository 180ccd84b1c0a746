// Package ledger records which rules have been applied, so a rule is not
// re-applied within the same time window, across process restarts.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sunwardhq/sunward/internal/rules"
)

// storeKey is the logical name the record list is persisted under.
const storeKey = "applied_rules"

// A Record is evidence that a rule was applied at a given time. It only
// counts as "already applied" while AppliedAt falls inside the current
// resolution of that rule's window.
type Record struct {
	RuleName  string    `json:"rule_name"`
	AppliedAt time.Time `json:"applied_at"`
}

// Ledger is the in-memory view of the applied-rule records, backed by a
// Store. Load it once at startup; MarkApplied persists each change by
// rewriting the full list.
//
// Ledger is not safe for concurrent use. After startup it is owned by the
// engine's event loop.
type Ledger struct {
	store   Store
	logger  *slog.Logger
	records []Record
}

// New returns a Ledger backed by store. Call Load before use.
func New(store Store, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// Load reads the persisted records. A missing key yields an empty ledger.
func (l *Ledger) Load(ctx context.Context) error {
	value, err := l.store.Load(ctx, storeKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			l.records = nil
			return nil
		}
		return fmt.Errorf("load %s: %w", storeKey, err)
	}
	if err = json.Unmarshal(value, &l.records); err != nil {
		return fmt.Errorf("load %s: %w", storeKey, err)
	}
	l.logger.Debug("ledger loaded", slog.Int("records", len(l.records)))
	return nil
}

// IsApplied reports whether rule has already been applied within its current
// window: a record matches if the name is equal and the applied time falls
// in [rule.Begin, rule.End).
func (l *Ledger) IsApplied(rule rules.Resolved) bool {
	for _, record := range l.records {
		if record.RuleName == rule.Name && rule.Contains(record.AppliedAt) {
			return true
		}
	}
	return false
}

// MarkApplied appends a record for rule and persists the list. The record is
// retained in memory even if persisting fails; the error is returned so the
// caller can log it.
func (l *Ledger) MarkApplied(ctx context.Context, rule rules.Resolved, at time.Time) error {
	l.records = append(l.records, Record{RuleName: rule.Name, AppliedAt: at})
	return l.save(ctx)
}

// Prune drops records older than the retention period and persists the list.
// Records are only valid evidence within the current window resolution, so
// anything older than the longest conceivable window can go.
func (l *Ledger) Prune(ctx context.Context, retention time.Duration) error {
	cutoff := time.Now().Add(-retention)
	kept := l.records[:0]
	for _, record := range l.records {
		if record.AppliedAt.After(cutoff) {
			kept = append(kept, record)
		}
	}
	if len(kept) == len(l.records) {
		return nil
	}
	l.logger.Info("pruned applied-rule records", slog.Int("dropped", len(l.records)-len(kept)), slog.Int("kept", len(kept)))
	l.records = kept
	return l.save(ctx)
}

// Len returns the number of records held.
func (l *Ledger) Len() int {
	return len(l.records)
}

func (l *Ledger) save(ctx context.Context) error {
	value, err := json.Marshal(l.records)
	if err != nil {
		return fmt.Errorf("save %s: %w", storeKey, err)
	}
	if err = l.store.Save(ctx, storeKey, value); err != nil {
		return fmt.Errorf("save %s: %w", storeKey, err)
	}
	return nil
}
