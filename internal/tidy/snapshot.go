package tidy

import "context"

// SnapshotProvider supplies the current file tree of the organization root.
// The returned nodes are the root's children; the engine treats them as read-only.
type SnapshotProvider interface {
	// Snapshot returns the tree under the provider's root.
	Snapshot(ctx context.Context) ([]FileNode, error)

	// Root returns the absolute, '/'-delimited organization root.
	Root() string
}

// PlanExecutor performs moves on behalf of the engine.
// Implementations create missing parent folders for destination and
// refuse to overwrite an existing destination.
type PlanExecutor interface {
	Move(ctx context.Context, source, destination string) error
}

// Workspace is a snapshot source that can also execute moves against itself.
type Workspace interface {
	SnapshotProvider
	PlanExecutor
}
