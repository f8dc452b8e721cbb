package tidy_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"tidy-go/internal/testutil"
	"tidy-go/internal/tidy"
)

func moveOps(pairs ...string) []tidy.MoveOperation {
	var ops []tidy.MoveOperation
	for i := 0; i+1 < len(pairs); i += 2 {
		src, dst := pairs[i], pairs[i+1]
		name := src[len(root)+1:]
		ops = append(ops, tidy.MoveOperation{
			ID:              fmt.Sprintf("op-%d", i/2+1),
			SourceFile:      tidy.FileNode{Name: name, Path: src, Kind: tidy.KindFile, SizeBytes: 10},
			SourcePath:      src,
			DestinationPath: dst,
			Status:          tidy.OperationApplied,
		})
	}
	return ops
}

type ledgerFixture struct {
	ledger *tidy.Ledger
	store  *testutil.FlakyHistoryStore
	ws     *testutil.FlakyWorkspace
	events *testutil.RecordingObserver
}

func newLedgerFixture(t *testing.T, files ...testutil.FixtureFile) *ledgerFixture {
	t.Helper()
	clock := testutil.SteppingClock()
	store := testutil.NewFlakyHistoryStore(testutil.NewTestDatabase(t, clock))
	ws := testutil.NewFlakyWorkspace(testutil.NewWorkspace(t, files...))
	l := tidy.NewLedger(store, ws, tidy.NewNopLogger(), clock, testutil.NewPrefixedIDGenerator("b"))
	events := &testutil.RecordingObserver{}
	l.Subscribe(events)
	return &ledgerFixture{ledger: l, store: store, ws: ws, events: events}
}

// addBatches records n single-entry batches, oldest first.
func (f *ledgerFixture) addBatches(t *testing.T, n int) []*tidy.HistoryBatch {
	t.Helper()
	var out []*tidy.HistoryBatch
	for i := 0; i < n; i++ {
		src := fmt.Sprintf("%s/f%d.txt", root, i)
		out = append(out, f.ledger.AddBatch(context.Background(), fmt.Sprintf("plan-%d", i), "Organize by type", "", moveOps(src, root+"/Documents/"+src[len(root)+1:])))
	}
	return out
}

func TestLedger_AddBatch(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	ops := moveOps(root+"/a.pdf", root+"/PDFs/a.pdf", root+"/b.jpg", root+"/Images/b.jpg")
	batch := f.ledger.AddBatch(ctx, "plan-1", "Organize by type", "Move 2 file(s)", ops)

	if batch.PlanID != "plan-1" || batch.IsUndone || len(batch.Entries) != 2 {
		t.Fatalf("batch = %+v", batch)
	}
	for i, e := range batch.Entries {
		if e.BatchID != batch.ID || e.SourcePath != ops[i].SourcePath || e.DestinationPath != ops[i].DestinationPath {
			t.Errorf("entry %d = %+v, want mirror of %+v", i, e, ops[i])
		}
		if e.OperationType != tidy.OperationMove || e.IsUndone {
			t.Errorf("entry %d = %+v", i, e)
		}
	}
	if batch.Entries[0].FileData.Category != tidy.CategoryPDF {
		t.Errorf("FileData.Category = %q, want classified pdf", batch.Entries[0].FileData.Category)
	}

	stored, err := f.store.LoadBatches(ctx)
	if err != nil {
		t.Fatalf("LoadBatches() error = %v", err)
	}
	if len(stored) != 1 || stored[0].ID != batch.ID || len(stored[0].Entries) != 2 {
		t.Errorf("stored = %+v", stored)
	}
	if !reflect.DeepEqual(f.events.Kinds(), []tidy.EventKind{tidy.EventBatchAdded}) {
		t.Errorf("events = %v", f.events.Kinds())
	}
}

func TestLedger_Undo(t *testing.T) {
	ctx := context.Background()

	t.Run("undoLast is last in first out", func(t *testing.T) {
		f := newLedgerFixture(t)
		batches := f.addBatches(t, 2)

		for _, want := range []string{batches[1].ID, batches[0].ID} {
			ok, err := f.ledger.UndoLast(ctx)
			if err != nil || !ok {
				t.Fatalf("UndoLast() = %v, %v", ok, err)
			}
			b, _ := f.ledger.Batch(want)
			if !b.IsUndone {
				t.Errorf("batch %s not undone", want)
			}
		}

		ok, err := f.ledger.UndoLast(ctx)
		if err != nil || ok {
			t.Errorf("UndoLast() on exhausted history = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("undo round trip restores files and marks every entry", func(t *testing.T) {
		f := newLedgerFixture(t, testutil.File("PDFs/a.pdf", 1, jan), testutil.File("Images/b.jpg", 1, jan))
		batch := f.ledger.AddBatch(ctx, "p", "n", "d", moveOps(root+"/a.pdf", root+"/PDFs/a.pdf", root+"/b.jpg", root+"/Images/b.jpg"))

		ok, err := f.ledger.UndoBatch(ctx, batch.ID)
		if err != nil || !ok {
			t.Fatalf("UndoBatch() = %v, %v", ok, err)
		}

		got, _ := f.ledger.Batch(batch.ID)
		if !got.IsUndone {
			t.Error("batch not undone")
		}
		for i, e := range got.Entries {
			if !e.IsUndone {
				t.Errorf("entry %d not undone", i)
			}
		}

		moves := f.ws.Moves()
		want := []testutil.Move{
			{Source: root + "/Images/b.jpg", Destination: root + "/b.jpg"},
			{Source: root + "/PDFs/a.pdf", Destination: root + "/a.pdf"},
		}
		if !reflect.DeepEqual(moves, want) {
			t.Errorf("restore moves = %v, want reverse order %v", moves, want)
		}

		stored, _ := f.store.LoadBatches(ctx)
		if !stored[0].IsUndone || !stored[0].Entries[1].IsUndone {
			t.Error("undo state not persisted")
		}

		ok, err = f.ledger.UndoBatch(ctx, batch.ID)
		if err != nil || ok {
			t.Errorf("second UndoBatch() = %v, %v; want false, nil", ok, err)
		}
		if len(f.ws.Moves()) != 2 {
			t.Errorf("second undo moved files: %v", f.ws.Moves())
		}
	})

	t.Run("undoing an older batch leaves newer ones alone", func(t *testing.T) {
		f := newLedgerFixture(t)
		batches := f.addBatches(t, 2)

		if ok, err := f.ledger.UndoBatch(ctx, batches[0].ID); err != nil || !ok {
			t.Fatalf("UndoBatch() = %v, %v", ok, err)
		}
		newer, _ := f.ledger.Batch(batches[1].ID)
		if newer.IsUndone {
			t.Error("newer batch was undone")
		}
	})

	t.Run("unknown batch", func(t *testing.T) {
		f := newLedgerFixture(t)
		ok, err := f.ledger.UndoBatch(ctx, "nope")
		if ok || !errors.Is(err, tidy.ErrBatchNotFound) {
			t.Errorf("UndoBatch() = %v, %v; want false, ErrBatchNotFound", ok, err)
		}
	})

	t.Run("failed restores are reported but the batch is undone", func(t *testing.T) {
		f := newLedgerFixture(t, testutil.File("PDFs/a.pdf", 1, jan))
		batch := f.ledger.AddBatch(ctx, "p", "n", "d", moveOps(root+"/a.pdf", root+"/PDFs/a.pdf"))
		f.ws.FailMovesFrom(root + "/PDFs/a.pdf")
		f.events.Reset()

		if ok, err := f.ledger.UndoBatch(ctx, batch.ID); err != nil || !ok {
			t.Fatalf("UndoBatch() = %v, %v", ok, err)
		}
		kinds := f.events.Kinds()
		if !reflect.DeepEqual(kinds, []tidy.EventKind{tidy.EventRestoreFailed, tidy.EventBatchUndone}) {
			t.Errorf("events = %v", kinds)
		}
		if got := f.events.Events()[0]; got.Path != root+"/a.pdf" || !errors.Is(got.Err, testutil.ErrInjected) {
			t.Errorf("restore event = %+v", got)
		}
	})
}

func TestLedger_Prune(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps the most recent batches with their undo state", func(t *testing.T) {
		f := newLedgerFixture(t)
		batches := f.addBatches(t, 5)
		if _, err := f.ledger.UndoBatch(ctx, batches[4].ID); err != nil {
			t.Fatal(err)
		}

		if err := f.ledger.Prune(ctx, 2); err != nil {
			t.Fatalf("Prune() error = %v", err)
		}

		got := f.ledger.Summaries()
		if len(got) != 2 || got[0].ID != batches[4].ID || got[1].ID != batches[3].ID {
			t.Fatalf("remaining = %+v, want the two newest", got)
		}
		if !got[0].IsUndone || got[1].IsUndone {
			t.Errorf("undo state changed: %+v", got)
		}

		stored, _ := f.store.LoadBatches(ctx)
		if len(stored) != 2 {
			t.Errorf("stored batches = %d, want 2", len(stored))
		}
	})

	t.Run("keep larger than history changes nothing", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.addBatches(t, 2)
		if err := f.ledger.Prune(ctx, 10); err != nil {
			t.Fatal(err)
		}
		if n := len(f.ledger.Batches()); n != 2 {
			t.Errorf("batches = %d, want 2", n)
		}
	})

	t.Run("clear removes everything", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.addBatches(t, 3)
		if err := f.ledger.Clear(ctx); err != nil {
			t.Fatal(err)
		}
		if n := len(f.ledger.Batches()); n != 0 {
			t.Errorf("batches = %d, want 0", n)
		}
	})

	t.Run("negative keep is rejected", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.addBatches(t, 1)
		if err := f.ledger.Prune(ctx, -1); !errors.Is(err, tidy.ErrInvalidKeepCount) {
			t.Errorf("Prune(-1) error = %v, want ErrInvalidKeepCount", err)
		}
		if n := len(f.ledger.Batches()); n != 1 {
			t.Errorf("batches = %d, want 1", n)
		}
	})
}

func TestLedger_Persistence(t *testing.T) {
	ctx := context.Background()

	t.Run("store failures leave the ledger authoritative", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.store.SetFailing(true)

		batch := f.ledger.AddBatch(ctx, "p", "n", "d", moveOps(root+"/a.txt", root+"/Documents/a.txt"))
		if batch == nil || len(f.ledger.Batches()) != 1 {
			t.Fatal("batch not kept in memory")
		}
		if err := f.ledger.PersistenceError(); !errors.Is(err, testutil.ErrInjected) {
			t.Errorf("PersistenceError() = %v, want injected failure", err)
		}
		if ok, err := f.ledger.UndoBatch(ctx, batch.ID); err != nil || !ok {
			t.Errorf("UndoBatch() while store fails = %v, %v", ok, err)
		}

		kinds := f.events.Kinds()
		want := []tidy.EventKind{
			tidy.EventPersistenceFailed, tidy.EventBatchAdded,
			tidy.EventPersistenceFailed, tidy.EventRestoreFailed, tidy.EventBatchUndone,
		}
		if !reflect.DeepEqual(kinds, want) {
			t.Errorf("events = %v, want %v", kinds, want)
		}
	})

	t.Run("load restores persisted batches newest first", func(t *testing.T) {
		f := newLedgerFixture(t)
		batches := f.addBatches(t, 3)

		reloaded := tidy.NewLedger(f.store, nil, tidy.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())
		reloaded.Load(ctx)

		got := reloaded.Summaries()
		if len(got) != 3 || got[0].ID != batches[2].ID || got[2].ID != batches[0].ID {
			t.Errorf("loaded = %+v", got)
		}
		if reloaded.PersistenceError() != nil {
			t.Errorf("PersistenceError() = %v", reloaded.PersistenceError())
		}
	})

	t.Run("load failure degrades to an empty ledger", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.addBatches(t, 1)
		f.store.SetFailing(true)

		reloaded := tidy.NewLedger(f.store, nil, tidy.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())
		reloaded.Load(ctx)
		if len(reloaded.Batches()) != 0 || reloaded.PersistenceError() == nil {
			t.Errorf("Batches() = %d, PersistenceError() = %v", len(reloaded.Batches()), reloaded.PersistenceError())
		}
	})
}
