package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tidy-go/internal/database/migrations"
	"tidy-go/internal/tidy"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase stores the history ledger and the operation log in SQLite.
type SQLiteDatabase struct {
	db    *sql.DB
	clock tidy.Clock
	path  string
}

// NewSQLiteDatabase opens the database at path, which can be a file path or
// ":memory:". A nil clock uses the wall clock for operation timestamps.
func NewSQLiteDatabase(path string, clock tidy.Clock) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteDatabaseFromDB(db, clock, path), nil
}

// NewSQLiteDatabaseFromDB wraps a connection opened with OpenConnection.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock tidy.Clock, path string) *SQLiteDatabase {
	if clock == nil {
		clock = tidy.RealClock{}
	}
	return &SQLiteDatabase{db: db, clock: clock, path: path}
}

// OpenConnection opens a SQLite connection with foreign keys enforced.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers and keeps ":memory:" databases
	// from splitting into one database per pooled connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

// History batches

func (s *SQLiteDatabase) SaveBatch(ctx context.Context, batch *tidy.HistoryBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO history_batches (id, plan_id, name, description, timestamp, is_undone)
		VALUES (?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.PlanID, batch.Name, batch.Description, batch.Timestamp.UTC(), batch.IsUndone)
	if err != nil {
		return fmt.Errorf("inserting batch %s: %w", batch.ID, err)
	}

	for i, e := range batch.Entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO change_log (id, batch_id, position, operation_type, source_path, destination_path,
				file_name, file_size, file_category, timestamp, is_undone)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, batch.ID, i, string(e.OperationType), e.SourcePath, e.DestinationPath,
			e.FileData.Name, e.FileData.SizeBytes, string(e.FileData.Category), e.Timestamp.UTC(), e.IsUndone)
		if err != nil {
			return fmt.Errorf("inserting entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) LoadBatches(ctx context.Context) ([]*tidy.HistoryBatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plan_id, name, description, timestamp, is_undone
		FROM history_batches
		ORDER BY timestamp DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying batches: %w", err)
	}

	var batches []*tidy.HistoryBatch
	index := make(map[string]*tidy.HistoryBatch)
	for rows.Next() {
		b := &tidy.HistoryBatch{Entries: []tidy.HistoryEntry{}}
		if err := rows.Scan(&b.ID, &b.PlanID, &b.Name, &b.Description, &b.Timestamp, &b.IsUndone); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning batch: %w", err)
		}
		batches = append(batches, b)
		index[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("reading batches: %w", err)
	}
	rows.Close()

	// Entries are read after the batch cursor is closed: the pool holds one connection.
	rows, err = s.db.QueryContext(ctx, `
		SELECT id, batch_id, operation_type, source_path, destination_path,
			file_name, file_size, file_category, timestamp, is_undone
		FROM change_log
		ORDER BY batch_id, position`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e tidy.HistoryEntry
		var opType, category string
		if err := rows.Scan(&e.ID, &e.BatchID, &opType, &e.SourcePath, &e.DestinationPath,
			&e.FileData.Name, &e.FileData.SizeBytes, &category, &e.Timestamp, &e.IsUndone); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.OperationType = tidy.OperationType(opType)
		e.FileData.Category = tidy.Category(category)

		b, ok := index[e.BatchID]
		if !ok {
			continue
		}
		b.Entries = append(b.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}

	return batches, nil
}

func (s *SQLiteDatabase) UpdateBatch(ctx context.Context, batch *tidy.HistoryBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE history_batches SET is_undone = ? WHERE id = ?`, batch.IsUndone, batch.ID)
	if err != nil {
		return fmt.Errorf("updating batch %s: %w", batch.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating batch %s: %w", batch.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("updating batch %s: %w", batch.ID, tidy.ErrBatchNotFound)
	}

	for _, e := range batch.Entries {
		if _, err := tx.ExecContext(ctx, `UPDATE change_log SET is_undone = ? WHERE id = ?`, e.IsUndone, e.ID); err != nil {
			return fmt.Errorf("updating entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) PruneBatches(ctx context.Context, keep int) error {
	if keep < 0 {
		return fmt.Errorf("%w: %d", tidy.ErrInvalidKeepCount, keep)
	}
	// change_log rows go with their batch through ON DELETE CASCADE.
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM history_batches
		WHERE id NOT IN (
			SELECT id FROM history_batches ORDER BY timestamp DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("pruning batches: %w", err)
	}
	return nil
}

// Operation tracking

func (s *SQLiteDatabase) CreateOperation(ctx context.Context, operation, parameters string) (*tidy.OperationRecord, error) {
	started := s.clock.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO operations (started_at, operation, parameters, status)
		VALUES (?, ?, ?, 'running')`, started, operation, parameters)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return &tidy.OperationRecord{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  started,
		Status:     "running",
	}, nil
}

func (s *SQLiteDatabase) FinishOperation(ctx context.Context, id int64, status string) error {
	finished := sql.NullTime{Time: s.clock.Now().UTC(), Valid: true}
	_, err := s.db.ExecContext(ctx, `UPDATE operations SET finished_at = ?, status = ? WHERE id = ?`, finished, status, id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(ctx context.Context, limit int) ([]*tidy.OperationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation, parameters, started_at, finished_at, status
		FROM operations
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*tidy.OperationRecord
	for rows.Next() {
		op := &tidy.OperationRecord{}
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.StartedAt, &op.FinishedAt, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

func (s *SQLiteDatabase) MaxOperationID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM operations`).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("getting max operation ID: %w", err)
	}
	return id.Int64, nil
}

// Path returns the database file path, or ":memory:" for in-memory databases.
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// MigrateUp brings the schema to the latest version.
func (s *SQLiteDatabase) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the schema is up to date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo writes a complete copy of the database to destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(ctx context.Context, destPath string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ tidy.Database = (*SQLiteDatabase)(nil)
