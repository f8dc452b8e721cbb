package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"tidy-go/internal/config"
	"tidy-go/internal/database"
	"tidy-go/internal/encryption"
	"tidy-go/internal/intent"
	"tidy-go/internal/metrics"
	"tidy-go/internal/staging"
	"tidy-go/internal/tidy"
	"tidy-go/internal/vault"
	"tidy-go/internal/workspace"
)

// HistoryItem is the vault item name the history database snapshot is stored under.
const HistoryItem = "history.db"

// ErrBehindVault is returned when a vault holds a newer history snapshot than
// the local database. Pull the history before running commands.
var ErrBehindVault = errors.New("local history is behind the vault copy")

// TidyApp is the application layer between the CLI and tidy.Service.
// It constructs all dependencies from config, tracks the command being run
// and, on Close, uploads a snapshot of the history database to every vault
// when the command changed it.
type TidyApp struct {
	cfg       *config.Config
	db        tidy.Database
	vaults    []tidy.Vault
	staging   tidy.PlanStaging
	workspace tidy.Workspace
	encryptor tidy.Encryptor
	service   *tidy.Service
	logger    tidy.Logger
	op        *Operation
	logFile   *os.File
}

// NewTidyApp creates a fully wired TidyApp from the given config.
// operation identifies the CLI command being run (e.g. "Apply", "Undo").
// The caller must call Close when done.
func NewTidyApp(ctx context.Context, cfg *config.Config, operation string) (*TidyApp, error) {
	a := &TidyApp{cfg: cfg, op: NewOperation(operation, "")}
	if err := a.init(ctx); err != nil {
		a.release()
		return nil, err
	}
	return a, nil
}

func (a *TidyApp) init(ctx context.Context) error {
	cfg := a.cfg

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID, level, os.Stderr)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	a.logFile = logFile
	a.logger = &slogAdapter{l: logger}

	clock := tidy.RealClock{}
	idgen := tidy.UUIDGenerator{}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID, clock)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	a.db = db
	if err := db.CheckMigrations(); err != nil {
		return fmt.Errorf("database schema out of date: %w", err)
	}

	for _, vc := range cfg.Vaults {
		v, err := vault.NewVaultFromConfig(ctx, vc)
		if err != nil {
			return fmt.Errorf("creating vault %q: %w", vc.Name, err)
		}
		a.vaults = append(a.vaults, v)
	}
	if err := a.checkVersions(ctx); err != nil {
		return err
	}

	a.encryptor, err = encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}

	a.staging, err = staging.NewPlanStagingFromConfig(cfg.Staging)
	if err != nil {
		return fmt.Errorf("creating plan staging: %w", err)
	}

	a.workspace, err = workspace.NewWorkspaceFromConfig(ctx, cfg, a.logger, clock, idgen)
	if err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}

	ledger := tidy.NewLedger(db, a.workspace, a.logger, clock, idgen)
	ledger.Load(ctx)
	a.service = tidy.NewService(a.workspace, a.workspace, a.staging, ledger, a.logger, clock, idgen)
	return nil
}

// checkVersions refuses to continue when any vault holds a newer snapshot
// than the local operation log.
func (a *TidyApp) checkVersions(ctx context.Context) error {
	localMax, err := a.db.MaxOperationID(ctx)
	if err != nil {
		return fmt.Errorf("checking local history version: %w", err)
	}
	for i, v := range a.vaults {
		remote, err := v.GetMetadataVersion(ctx, a.cfg.HostID, HistoryItem)
		if err != nil {
			return fmt.Errorf("checking remote history version in vault %q: %w", a.cfg.Vaults[i].Name, err)
		}
		if remote > localMax {
			return fmt.Errorf("%w: vault %q (local=%d, remote=%d): run `tidy history pull`", ErrBehindVault, a.cfg.Vaults[i].Name, localMax, remote)
		}
	}
	return nil
}

// persistOperation saves the operation to the database, giving it an ID.
// Only commands that change the history call it.
func (a *TidyApp) persistOperation(ctx context.Context, parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	rec, err := a.db.CreateOperation(ctx, a.op.Operation, parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = rec.ID
	return nil
}

// Root returns the organization root.
func (a *TidyApp) Root() string {
	return a.service.Root()
}

// Scan counts what the organization root currently holds.
func (a *TidyApp) Scan(ctx context.Context) (tidy.SnapshotTotals, error) {
	snapshot, err := a.workspace.Snapshot(ctx)
	if err != nil {
		return tidy.SnapshotTotals{}, fmt.Errorf("scanning %s: %w", a.Root(), err)
	}
	return tidy.ComputeTotals(snapshot), nil
}

// DefaultRule returns the configured rule used when none is given.
func (a *TidyApp) DefaultRule() (tidy.Rule, error) {
	return a.cfg.Rules.Rule()
}

// RuleOptions returns the configured rule options.
func (a *TidyApp) RuleOptions() tidy.RuleOptions {
	return a.cfg.Rules.Options()
}

// Plan generates a preview for rule and makes it the live plan.
func (a *TidyApp) Plan(ctx context.Context, rule tidy.Rule, opts tidy.RuleOptions) (*tidy.Plan, error) {
	return a.service.GeneratePreview(ctx, rule, opts)
}

// Ask resolves free text to a rule and generates a preview for it.
// It returns false, and leaves the live plan alone, when no rule is recognized.
func (a *TidyApp) Ask(ctx context.Context, text string) (*tidy.Plan, bool, error) {
	rule, opts, ok := intent.Resolve(text, a.RuleOptions())
	if !ok {
		a.logger.Debug("no rule recognized", "text", text)
		return nil, false, nil
	}
	plan, err := a.Plan(ctx, rule, opts)
	if err != nil {
		return nil, true, err
	}
	return plan, true, nil
}

// LivePlan returns the staged plan, or tidy.ErrNoLivePlan.
func (a *TidyApp) LivePlan() (*tidy.Plan, error) {
	return a.service.LivePlan()
}

// Apply executes the live plan and then trims history to history.keep batches.
func (a *TidyApp) Apply(ctx context.Context) (result *tidy.ApplyResult, err error) {
	defer func() { a.op.Record(err) }()

	plan, err := a.service.LivePlan()
	if err != nil {
		return nil, err
	}
	if err := a.persistOperation(ctx, "plan="+plan.ID); err != nil {
		return nil, err
	}

	result, err = a.service.Apply(ctx, plan.ID)
	if result == nil {
		return nil, err
	}
	if err != nil {
		return result, err
	}
	if result.Partial() {
		a.op.MarkPartial()
	}

	if keep := a.cfg.History.Keep; keep > 0 {
		if err := a.service.Ledger().Prune(ctx, keep); err != nil {
			return result, fmt.Errorf("pruning history: %w", err)
		}
	}
	return result, nil
}

// Cancel discards the live plan.
func (a *TidyApp) Cancel() error {
	plan, err := a.service.LivePlan()
	if err != nil {
		return err
	}
	return a.service.Cancel(plan.ID)
}

// History returns up to limit batches, newest first. limit <= 0 returns all.
func (a *TidyApp) History(limit int) []tidy.BatchSummary {
	summaries := a.service.Ledger().Summaries()
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}

// Batch returns one batch with its entries.
func (a *TidyApp) Batch(id string) (*tidy.HistoryBatch, error) {
	b, ok := a.service.Ledger().Batch(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", tidy.ErrBatchNotFound, id)
	}
	return b, nil
}

// Undo undoes batchID, or the most recent batch that is not undone when
// batchID is empty. It returns false when there was nothing to undo.
func (a *TidyApp) Undo(ctx context.Context, batchID string) (undone bool, err error) {
	defer func() { a.op.Record(err) }()

	if err := a.persistOperation(ctx, "batch="+batchID); err != nil {
		return false, err
	}
	if batchID == "" {
		return a.service.UndoLast(ctx)
	}
	return a.service.UndoBatch(ctx, batchID)
}

// Prune keeps only the keep most recent batches.
func (a *TidyApp) Prune(ctx context.Context, keep int) (err error) {
	defer func() { a.op.Record(err) }()

	if keep < 0 {
		return fmt.Errorf("%w: %d", tidy.ErrInvalidKeepCount, keep)
	}
	if err := a.persistOperation(ctx, fmt.Sprintf("keep=%d", keep)); err != nil {
		return err
	}
	return a.service.Ledger().Prune(ctx, keep)
}

// ClearHistory removes every batch.
func (a *TidyApp) ClearHistory(ctx context.Context) (err error) {
	defer func() { a.op.Record(err) }()

	if err := a.persistOperation(ctx, ""); err != nil {
		return err
	}
	return a.service.Ledger().Clear(ctx)
}

// PersistenceError reports a history store failure during this command.
func (a *TidyApp) PersistenceError() error {
	return a.service.Ledger().PersistenceError()
}

// Operations returns the most recent commands that changed the history.
func (a *TidyApp) Operations(ctx context.Context, limit int) ([]*tidy.OperationRecord, error) {
	return a.db.ListOperations(ctx, limit)
}

// Close finalizes the operation and closes all resources.
// For persisted operations: finishes the operation record, snapshots the
// database and uploads the snapshot to every vault with the operation ID as
// version. Other commands only close the database.
func (a *TidyApp) Close(ctx context.Context) error {
	var errs []error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(ctx, a.op.ID, a.op.Status); err != nil {
			errs = append(errs, fmt.Errorf("finishing operation: %w", err))
		}

		snapshot, err := a.snapshotDatabase(ctx)
		if err != nil {
			errs = append(errs, err)
		}
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}
		if snapshot != nil {
			if err := a.uploadHistory(ctx, snapshot, a.op.ID); err != nil {
				errs = append(errs, err)
			}
		}
	} else if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}
	}

	if path := a.cfg.Metrics.TextfilePath; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			errs = append(errs, err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}
	return errors.Join(errs...)
}

// release closes whatever init managed to open.
func (a *TidyApp) release() {
	if a.db != nil {
		a.db.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

// snapshotDatabase copies the database to a temp file and returns its encrypted contents.
func (a *TidyApp) snapshotDatabase(ctx context.Context) ([]byte, error) {
	tmpFile, err := os.CreateTemp("", "tidy-history-*.db")
	if err != nil {
		return nil, fmt.Errorf("creating temp file for history snapshot: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	if err := a.db.BackupTo(ctx, tmpPath); err != nil {
		return nil, err
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("opening history snapshot: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := a.encryptor.Encrypt(f, &buf); err != nil {
		return nil, fmt.Errorf("encrypting history snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// uploadHistory stores snapshot in every vault. A failing vault does not
// stop the others.
func (a *TidyApp) uploadHistory(ctx context.Context, snapshot []byte, version int64) error {
	var errs []error
	for i, v := range a.vaults {
		name := a.cfg.Vaults[i].Name
		err := v.PutMetadata(ctx, a.cfg.HostID, HistoryItem, bytes.NewReader(snapshot), int64(len(snapshot)), version)
		if err != nil {
			a.logger.Warn("history upload failed", "vault", name, "error", err)
			errs = append(errs, fmt.Errorf("uploading history to vault %q: %w", name, err))
			continue
		}
		a.logger.Debug("history uploaded", "vault", name, "version", version, "bytes", len(snapshot))
	}
	return errors.Join(errs...)
}
