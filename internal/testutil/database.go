package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tidy-go/internal/database"
	"tidy-go/internal/tidy"
)

// NewTestDatabase creates a new in-memory SQLite database with migrations applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T, clock tidy.Clock) *database.SQLiteDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:", clock)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if err := db.MigrateUp(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// ErrInjected is the error returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")

// FlakyHistoryStore wraps a HistoryStore and fails writes while Failing is set.
type FlakyHistoryStore struct {
	tidy.HistoryStore

	mu      sync.Mutex
	failing bool
}

// NewFlakyHistoryStore wraps store.
func NewFlakyHistoryStore(store tidy.HistoryStore) *FlakyHistoryStore {
	return &FlakyHistoryStore{HistoryStore: store}
}

// SetFailing switches write failures on or off.
func (s *FlakyHistoryStore) SetFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

func (s *FlakyHistoryStore) fail() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return ErrInjected
	}
	return nil
}

func (s *FlakyHistoryStore) SaveBatch(ctx context.Context, batch *tidy.HistoryBatch) error {
	if err := s.fail(); err != nil {
		return err
	}
	return s.HistoryStore.SaveBatch(ctx, batch)
}

func (s *FlakyHistoryStore) UpdateBatch(ctx context.Context, batch *tidy.HistoryBatch) error {
	if err := s.fail(); err != nil {
		return err
	}
	return s.HistoryStore.UpdateBatch(ctx, batch)
}

func (s *FlakyHistoryStore) PruneBatches(ctx context.Context, keep int) error {
	if err := s.fail(); err != nil {
		return err
	}
	return s.HistoryStore.PruneBatches(ctx, keep)
}

func (s *FlakyHistoryStore) LoadBatches(ctx context.Context) ([]*tidy.HistoryBatch, error) {
	if err := s.fail(); err != nil {
		return nil, err
	}
	return s.HistoryStore.LoadBatches(ctx)
}
