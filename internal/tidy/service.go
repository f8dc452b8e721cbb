package tidy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Service owns the live plan and drives it through preview, apply, cancel
// and undo. All lifecycle mutations are serialized, so a concurrent host
// sees the same outcome as a single-threaded caller.
type Service struct {
	mu        sync.Mutex
	snapshots SnapshotProvider
	executor  PlanExecutor
	staging   PlanStaging
	ledger    *Ledger
	planner   *Planner
	logger    Logger
	obs       observers
}

// NewService creates a Service. The ledger should use the same executor as
// its restorer so undo reverses moves on the same file system.
func NewService(snapshots SnapshotProvider, executor PlanExecutor, staging PlanStaging, ledger *Ledger, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		snapshots: snapshots,
		executor:  executor,
		staging:   staging,
		ledger:    ledger,
		planner:   NewPlanner(clock, idgen),
		logger:    logger,
	}
}

// ApplyResult reports the outcome of Apply. Batch is nil when no operation succeeded.
type ApplyResult struct {
	Plan    *Plan
	Batch   *HistoryBatch
	Applied int
	Failed  int
}

// Partial reports whether some operations failed.
func (r *ApplyResult) Partial() bool { return r.Plan.Status == PlanPartial }

// Subscribe registers an observer for lifecycle events. Ledger events are
// delivered through Ledger().Subscribe.
func (s *Service) Subscribe(o Observer) (unsubscribe func()) {
	return s.obs.subscribe(o)
}

// Ledger returns the history ledger the service records into.
func (s *Service) Ledger() *Ledger {
	return s.ledger
}

// Root returns the organization root plans are generated for.
func (s *Service) Root() string {
	return s.snapshots.Root()
}

// GeneratePreview builds a new plan from the current snapshot and stages it
// as the live plan, discarding any previous one. Invalid options fail before
// the previous plan is touched.
func (s *Service) GeneratePreview(ctx context.Context, rule Rule, opts RuleOptions) (*Plan, error) {
	if err := opts.Validate(rule); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	snapshot, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	plan, err := s.planner.Generate(snapshot, rule, opts, s.snapshots.Root())
	if err != nil {
		return nil, err
	}
	planGenerationDuration.Observe(time.Since(start).Seconds())
	plansGenerated.WithLabelValues(string(rule)).Inc()

	previous, err := s.staging.Get()
	if err != nil {
		s.logger.Warn("reading previous live plan", "error", err)
		previous = nil
	}
	if err := s.staging.Put(plan); err != nil {
		return nil, fmt.Errorf("staging plan: %w", err)
	}

	if previous != nil {
		s.logger.Debug("live plan discarded", "plan", previous.ID, "status", previous.Status)
		s.obs.emit(Event{Kind: EventPlanDiscarded, PlanID: previous.ID})
	}
	s.logger.Info("plan generated", "plan", plan.ID, "rule", rule, "operations", len(plan.Operations), "folders", len(plan.NewFolders))
	s.obs.emit(Event{Kind: EventPlanGenerated, PlanID: plan.ID})
	return plan.Clone(), nil
}

// LivePlan returns the staged plan, or ErrNoLivePlan.
func (s *Service) LivePlan() (*Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, err := s.staging.Get()
	if err != nil {
		return nil, fmt.Errorf("reading live plan: %w", err)
	}
	if plan == nil {
		return nil, ErrNoLivePlan
	}
	return plan, nil
}

// livePreview returns the live plan after checking it is planID and still in preview.
func (s *Service) livePreview(planID string) (*Plan, error) {
	plan, err := s.staging.Get()
	if err != nil {
		return nil, fmt.Errorf("reading live plan: %w", err)
	}
	if plan == nil {
		return nil, ErrNoLivePlan
	}
	if plan.ID != planID {
		return nil, fmt.Errorf("%w: live plan is %s, got %s", ErrPlanMismatch, plan.ID, planID)
	}
	if plan.Status != PlanPreview {
		return nil, fmt.Errorf("%w: plan %s is %s", ErrPlanNotPreview, plan.ID, plan.Status)
	}
	return plan, nil
}

// Apply executes every pending operation of the live plan. A failing move
// does not stop the others; it is marked failed and the plan ends up
// partial. Only successful moves are recorded in history. Apply is not
// transactional: nothing is rolled back, and cancelling ctx does not stop it
// once the moves have started. The result is non-nil whenever moves ran,
// even if the applied plan could not be unstaged.
func (s *Service) Apply(ctx context.Context, planID string) (*ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.livePreview(planID)
	if err != nil {
		return nil, err
	}

	// Once started, every operation is visited and recorded.
	ctx = context.WithoutCancel(ctx)

	result := &ApplyResult{}
	var applied []MoveOperation
	for i := range plan.Operations {
		op := &plan.Operations[i]
		if op.Status != OperationPending {
			continue
		}
		if err := s.executor.Move(ctx, op.SourcePath, op.DestinationPath); err != nil {
			op.Status = OperationFailed
			op.Error = err.Error()
			result.Failed++
			operationsFailed.Inc()
			s.logger.Warn("move failed", "plan", plan.ID, "from", op.SourcePath, "to", op.DestinationPath, "error", err)
			continue
		}
		op.Status = OperationApplied
		applied = append(applied, *op)
		result.Applied++
		operationsApplied.Inc()
		s.logger.Debug("file moved", "from", op.SourcePath, "to", op.DestinationPath)
	}

	plan.Status = PlanApplied
	if result.Failed > 0 {
		plan.Status = PlanPartial
	}

	stageErr := s.stageApplied(plan)

	if len(applied) > 0 {
		result.Batch = s.ledger.AddBatch(ctx, plan.ID, plan.Name, plan.Description, applied)
	}
	result.Plan = plan.Clone()

	s.logger.Info("plan applied", "plan", plan.ID, "status", plan.Status, "applied", result.Applied, "failed", result.Failed)
	s.obs.emit(Event{Kind: EventPlanApplied, PlanID: plan.ID})
	return result, stageErr
}

// stageApplied replaces the staged preview with the applied plan, or clears
// the staging area when that fails so the preview cannot be applied twice.
func (s *Service) stageApplied(plan *Plan) error {
	putErr := s.staging.Put(plan)
	if putErr == nil {
		return nil
	}
	s.logger.Warn("staging applied plan", "plan", plan.ID, "error", putErr)
	if err := s.staging.Clear(); err != nil {
		s.logger.Error("clearing applied plan", "plan", plan.ID, "error", err)
		return fmt.Errorf("applied plan %s is still staged as preview: %w", plan.ID, errors.Join(putErr, err))
	}
	s.obs.emit(Event{Kind: EventPlanDiscarded, PlanID: plan.ID})
	return nil
}

// Cancel discards the live plan. It is only valid while the plan is in preview.
func (s *Service) Cancel(planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.livePreview(planID)
	if err != nil {
		return err
	}
	if err := s.staging.Clear(); err != nil {
		return fmt.Errorf("discarding plan: %w", err)
	}

	s.logger.Info("plan cancelled", "plan", plan.ID)
	s.obs.emit(Event{Kind: EventPlanDiscarded, PlanID: plan.ID})
	return nil
}

// UndoLast undoes the most recent batch that is not undone yet.
func (s *Service) UndoLast(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, err := s.ledger.undoLast(ctx)
	if err != nil || batch == nil {
		return false, err
	}
	s.markPlanUndone(batch)
	return true, nil
}

// UndoBatch undoes the batch with the given ID. It returns false when the
// batch was already undone.
func (s *Service) UndoBatch(ctx context.Context, batchID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, err := s.ledger.undoBatch(ctx, batchID)
	if err != nil || batch == nil {
		return false, err
	}
	s.markPlanUndone(batch)
	return true, nil
}

// markPlanUndone moves the live plan to undone when batch recorded it.
func (s *Service) markPlanUndone(batch *HistoryBatch) {
	plan, err := s.staging.Get()
	if err != nil {
		s.logger.Warn("reading live plan", "error", err)
		return
	}
	if plan == nil || plan.ID != batch.PlanID {
		return
	}
	if plan.Status != PlanApplied && plan.Status != PlanPartial {
		return
	}

	plan.Status = PlanUndone
	for i := range plan.Operations {
		if plan.Operations[i].Status == OperationApplied {
			plan.Operations[i].Status = OperationUndone
		}
	}
	if err := s.staging.Put(plan); err != nil {
		s.logger.Warn("staging undone plan", "plan", plan.ID, "error", err)
	}
	s.obs.emit(Event{Kind: EventPlanUndone, PlanID: plan.ID, BatchID: batch.ID})
}
