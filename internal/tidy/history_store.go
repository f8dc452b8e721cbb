package tidy

import (
	"context"
	"database/sql"
	"time"
)

// HistoryStore durably keeps history batches with their entries inline.
type HistoryStore interface {
	// SaveBatch inserts a new batch and all of its entries.
	SaveBatch(ctx context.Context, batch *HistoryBatch) error

	// LoadBatches returns every stored batch, newest first, entries in plan order.
	LoadBatches(ctx context.Context) ([]*HistoryBatch, error)

	// UpdateBatch rewrites the undo state of a batch and its entries.
	UpdateBatch(ctx context.Context, batch *HistoryBatch) error

	// PruneBatches deletes all but the keep newest batches. keep == 0 clears history.
	PruneBatches(ctx context.Context, keep int) error
}

// OperationRecord is one CLI command that mutated the history database.
type OperationRecord struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
}

// Database is the metadata store used by the application: the history
// ledger plus a log of the commands that changed it.
type Database interface {
	HistoryStore

	// CreateOperation records the start of a mutating command and returns it with its ID.
	CreateOperation(ctx context.Context, operation, parameters string) (*OperationRecord, error)

	// FinishOperation stamps the finish time and final status of an operation.
	FinishOperation(ctx context.Context, id int64, status string) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(ctx context.Context, limit int) ([]*OperationRecord, error)

	// MaxOperationID returns the highest operation ID, or 0 when none exist.
	MaxOperationID(ctx context.Context) (int64, error)

	// CheckMigrations verifies the schema is at the latest version.
	CheckMigrations() error

	// BackupTo writes a consistent copy of the database to destPath.
	BackupTo(ctx context.Context, destPath string) error

	// Close closes the database connection.
	Close() error
}
