package database

import (
	"fmt"
	"os"
	"path/filepath"

	"tidy-go/internal/config"
	"tidy-go/internal/tidy"
)

// NewDatabaseFromConfig opens the history database selected by cfg.Type.
// Memory databases are migrated on open; file databases are migrated by
// InitDatabase and only checked afterwards.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, hostID string, clock tidy.Clock) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		return NewSQLiteDatabase(DatabasePath(cfg, hostID), clock)
	case "memory":
		db, err := NewSQLiteDatabase(":memory:", clock)
		if err != nil {
			return nil, err
		}
		if err := db.MigrateUp(); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// DatabasePath is the file a sqlite database for hostID lives in.
func DatabasePath(cfg config.DatabaseConfig, hostID string) string {
	return filepath.Join(cfg.DataDir, hostID+".db")
}

// InitDatabase creates the data directory and brings the schema up to date.
func InitDatabase(cfg config.DatabaseConfig, hostID string) error {
	if cfg.Type == "sqlite" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}
	db, err := NewDatabaseFromConfig(cfg, hostID, nil)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.MigrateUp()
}
