package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"tidy-go/internal/config"
	"tidy-go/internal/database"
	"tidy-go/internal/encryption"
	"tidy-go/internal/vault"
)

// PullHistory replaces the local history database with the snapshot stored
// in the first configured vault and returns the snapshot's version.
// It runs without a TidyApp because the app refuses to start while the
// local history is behind the vault.
func PullHistory(ctx context.Context, cfg *config.Config, passphrase string) (int64, error) {
	if cfg.Database.Type != "sqlite" {
		return 0, fmt.Errorf("history pull needs a sqlite database, got %q", cfg.Database.Type)
	}
	if len(cfg.Vaults) == 0 {
		return 0, fmt.Errorf("no vaults configured")
	}

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vaults[0])
	if err != nil {
		return 0, fmt.Errorf("creating vault: %w", err)
	}
	version, err := v.GetMetadataVersion(ctx, cfg.HostID, HistoryItem)
	if err != nil {
		return 0, fmt.Errorf("checking remote history version: %w", err)
	}
	if version == 0 {
		return 0, fmt.Errorf("vault %q holds no history for host %s", cfg.Vaults[0].Name, cfg.HostID)
	}

	var sealed bytes.Buffer
	if err := v.GetMetadata(ctx, cfg.HostID, HistoryItem, &sealed); err != nil {
		return 0, fmt.Errorf("downloading history: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return 0, fmt.Errorf("creating encryptor: %w", err)
	}
	dc, err := enc.Unlock(passphrase)
	if err != nil {
		return 0, fmt.Errorf("unlocking private key: %w", err)
	}

	dest := database.DatabasePath(cfg.Database, cfg.HostID)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("creating data directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".pull-*.db")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := dc.Decrypt(&sealed, tmp); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("decrypting history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("writing history: %w", err)
	}

	if err := verifySnapshot(tmpPath); err != nil {
		return 0, err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return 0, fmt.Errorf("replacing local history: %w", err)
	}
	return version, nil
}

// verifySnapshot opens a downloaded database and checks its schema.
func verifySnapshot(path string) error {
	db, err := database.NewSQLiteDatabase(path, nil)
	if err != nil {
		return fmt.Errorf("opening downloaded history: %w", err)
	}
	defer db.Close()
	if err := db.CheckMigrations(); err != nil {
		return fmt.Errorf("downloaded history is not usable: %w", err)
	}
	return nil
}
