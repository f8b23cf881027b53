package testsupport

import (
	"context"
	"testing"
	"time"

	"snapship/internal/config"
	"snapship/internal/journal"
)

// MustOpenJournal opens a journal.Store for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AppendRecord stores a journal record for tests using the provided store.
func AppendRecord(t testing.TB, store *journal.Store, record *journal.Record) *journal.Record {
	t.Helper()

	if record.DetectedAt.IsZero() {
		record.DetectedAt = time.Now().UTC()
	}
	stored, err := store.Append(context.Background(), record)
	if err != nil {
		t.Fatalf("journal.Append: %v", err)
	}
	return stored
}
