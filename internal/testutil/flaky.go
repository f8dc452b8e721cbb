package testutil

import (
	"context"
	"fmt"
	"sync"

	"tidy-go/internal/tidy"
)

// Move is one call observed by FlakyWorkspace.
type Move struct {
	Source      string
	Destination string
}

// FlakyWorkspace wraps a Workspace, records every move and fails moves
// whose source was registered with FailMovesFrom.
type FlakyWorkspace struct {
	tidy.Workspace

	mu    sync.Mutex
	fail  map[string]bool
	moves []Move
}

// NewFlakyWorkspace wraps w.
func NewFlakyWorkspace(w tidy.Workspace) *FlakyWorkspace {
	return &FlakyWorkspace{Workspace: w, fail: make(map[string]bool)}
}

// FailMovesFrom makes every later move out of the given paths fail.
func (f *FlakyWorkspace) FailMovesFrom(paths ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range paths {
		f.fail[p] = true
	}
}

// Heal removes all injected failures.
func (f *FlakyWorkspace) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = make(map[string]bool)
}

// Moves returns the moves attempted so far, including failed ones.
func (f *FlakyWorkspace) Moves() []Move {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Move(nil), f.moves...)
}

func (f *FlakyWorkspace) Move(ctx context.Context, source, destination string) error {
	f.mu.Lock()
	f.moves = append(f.moves, Move{Source: source, Destination: destination})
	failing := f.fail[source]
	f.mu.Unlock()

	if failing {
		return fmt.Errorf("moving %s: %w", source, ErrInjected)
	}
	return f.Workspace.Move(ctx, source, destination)
}
