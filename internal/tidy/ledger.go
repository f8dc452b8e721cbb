package tidy

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Ledger is the history of applied plans, newest first. It is the only
// component that changes a batch's undo state. The HistoryStore mirrors the
// ledger; when the store fails the in-memory ledger stays authoritative for
// the session and the failure is surfaced through PersistenceError, the
// logger, metrics and EventPersistenceFailed.
type Ledger struct {
	mu         sync.Mutex
	store      HistoryStore
	restorer   PlanExecutor
	logger     Logger
	clock      Clock
	idgen      IDGenerator
	batches    []*HistoryBatch
	persistErr error
	obs        observers
}

// NewLedger creates an empty ledger. restorer moves files back on undo and
// may be nil when only the bookkeeping should change.
func NewLedger(store HistoryStore, restorer PlanExecutor, logger Logger, clock Clock, idgen IDGenerator) *Ledger {
	return &Ledger{
		store:    store,
		restorer: restorer,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
	}
}

// Subscribe registers an observer for ledger events.
func (l *Ledger) Subscribe(o Observer) (unsubscribe func()) {
	return l.obs.subscribe(o)
}

// Load replaces the in-memory ledger with the persisted batches.
// A store failure leaves the ledger empty and degraded rather than failing.
func (l *Ledger) Load(ctx context.Context) {
	batches, err := l.store.LoadBatches(ctx)

	l.mu.Lock()
	if err != nil {
		l.mu.Unlock()
		l.persistenceFailed("load", "", err)
		return
	}
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].Timestamp.After(batches[j].Timestamp)
	})
	l.batches = batches
	l.mu.Unlock()

	l.logger.Debug("history loaded", "batches", len(batches))
}

// AddBatch records the applied operations of a plan as a new batch.
// Entries mirror ops one to one, in order.
func (l *Ledger) AddBatch(ctx context.Context, planID, name, description string, ops []MoveOperation) *HistoryBatch {
	now := l.clock.Now().UTC()
	batch := &HistoryBatch{
		ID:          l.idgen.New(),
		PlanID:      planID,
		Name:        name,
		Description: description,
		Timestamp:   now,
		Entries:     make([]HistoryEntry, len(ops)),
	}
	for i, op := range ops {
		batch.Entries[i] = HistoryEntry{
			ID:              l.idgen.New(),
			BatchID:         batch.ID,
			OperationType:   OperationMove,
			SourcePath:      op.SourcePath,
			DestinationPath: op.DestinationPath,
			FileData: FileData{
				Name:      op.SourceFile.Name,
				SizeBytes: op.SourceFile.SizeBytes,
				Category:  categoryOf(&op.SourceFile),
			},
			Timestamp: now,
		}
	}

	l.mu.Lock()
	l.batches = append([]*HistoryBatch{batch}, l.batches...)
	l.mu.Unlock()

	if err := l.store.SaveBatch(ctx, batch.Clone()); err != nil {
		l.persistenceFailed("save", batch.ID, err)
	}

	l.logger.Info("history batch added", "batch", batch.ID, "entries", len(batch.Entries))
	l.obs.emit(Event{Kind: EventBatchAdded, PlanID: planID, BatchID: batch.ID})
	return batch.Clone()
}

// UndoLast undoes the most recent batch that is not yet undone.
// It returns false when there is nothing left to undo.
func (l *Ledger) UndoLast(ctx context.Context) (bool, error) {
	batch, err := l.undoLast(ctx)
	return batch != nil, err
}

func (l *Ledger) undoLast(ctx context.Context) (*HistoryBatch, error) {
	l.mu.Lock()
	var target string
	for _, b := range l.batches {
		if !b.IsUndone {
			target = b.ID
			break
		}
	}
	l.mu.Unlock()

	if target == "" {
		return nil, nil
	}
	return l.undoBatch(ctx, target)
}

// UndoBatch undoes one batch by ID: the batch and all its entries become
// undone, the change is persisted, and the moves are reversed in reverse
// entry order. Undoing an already undone batch returns false and changes
// nothing. Later batches are not re-validated against the restored files.
func (l *Ledger) UndoBatch(ctx context.Context, id string) (bool, error) {
	batch, err := l.undoBatch(ctx, id)
	return batch != nil, err
}

func (l *Ledger) undoBatch(ctx context.Context, id string) (*HistoryBatch, error) {
	l.mu.Lock()
	var batch *HistoryBatch
	for _, b := range l.batches {
		if b.ID == id {
			batch = b
			break
		}
	}
	if batch == nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	if batch.IsUndone {
		l.mu.Unlock()
		return nil, nil
	}
	batch.IsUndone = true
	for i := range batch.Entries {
		batch.Entries[i].IsUndone = true
	}
	snapshot := batch.Clone()
	l.mu.Unlock()

	batchesUndone.Inc()
	if err := l.store.UpdateBatch(ctx, snapshot); err != nil {
		l.persistenceFailed("update", id, err)
	}

	l.restore(ctx, snapshot)

	l.logger.Info("history batch undone", "batch", id, "entries", len(snapshot.Entries))
	l.obs.emit(Event{Kind: EventBatchUndone, PlanID: snapshot.PlanID, BatchID: id})
	return snapshot, nil
}

// restore moves every entry of batch back to its source, last move first.
// Failures are reported but do not stop the remaining entries.
func (l *Ledger) restore(ctx context.Context, batch *HistoryBatch) {
	if l.restorer == nil {
		return
	}
	for i := len(batch.Entries) - 1; i >= 0; i-- {
		e := batch.Entries[i]
		if err := l.restorer.Move(ctx, e.DestinationPath, e.SourcePath); err != nil {
			restoreFailures.Inc()
			l.logger.Warn("restore failed", "batch", batch.ID, "from", e.DestinationPath, "to", e.SourcePath, "error", err)
			l.obs.emit(Event{Kind: EventRestoreFailed, BatchID: batch.ID, Path: e.SourcePath, Err: err})
		}
	}
}

// Prune keeps only the keep most recently created batches and discards the
// rest from memory and the store. keep == 0 clears the history.
func (l *Ledger) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidKeepCount, keep)
	}

	l.mu.Lock()
	sort.SliceStable(l.batches, func(i, j int) bool {
		return l.batches[i].Timestamp.After(l.batches[j].Timestamp)
	})
	removed := 0
	if len(l.batches) > keep {
		removed = len(l.batches) - keep
		for i := keep; i < len(l.batches); i++ {
			l.batches[i] = nil
		}
		l.batches = l.batches[:keep]
	}
	l.mu.Unlock()

	if err := l.store.PruneBatches(ctx, keep); err != nil {
		l.persistenceFailed("prune", "", err)
	}

	if removed > 0 {
		l.logger.Info("history pruned", "kept", keep, "removed", removed)
	}
	l.obs.emit(Event{Kind: EventHistoryPruned})
	return nil
}

// Clear removes every batch.
func (l *Ledger) Clear(ctx context.Context) error {
	return l.Prune(ctx, 0)
}

// Batches returns copies of all batches, newest first.
func (l *Ledger) Batches() []*HistoryBatch {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*HistoryBatch, len(l.batches))
	for i, b := range l.batches {
		out[i] = b.Clone()
	}
	return out
}

// Batch returns a copy of the batch with the given ID.
func (l *Ledger) Batch(id string) (*HistoryBatch, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.batches {
		if b.ID == id {
			return b.Clone(), true
		}
	}
	return nil, false
}

// Summaries returns display rows for every batch, newest first.
func (l *Ledger) Summaries() []BatchSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]BatchSummary, len(l.batches))
	for i, b := range l.batches {
		out[i] = b.Summary()
	}
	return out
}

// PersistenceError returns the most recent store failure, or nil while the
// ledger and the store agree.
func (l *Ledger) PersistenceError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.persistErr
}

func (l *Ledger) persistenceFailed(op, batchID string, err error) {
	err = fmt.Errorf("history %s: %w", op, err)

	l.mu.Lock()
	l.persistErr = err
	l.mu.Unlock()

	persistenceErrors.WithLabelValues(op).Inc()
	l.logger.Warn("history not persisted; continuing in memory", "op", op, "batch", batchID, "error", err)
	l.obs.emit(Event{Kind: EventPersistenceFailed, BatchID: batchID, Err: err})
}
