package workspace

import (
	"context"
	"fmt"

	"tidy-go/internal/config"
	"tidy-go/internal/fs"
	"tidy-go/internal/tidy"
)

// NewWorkspaceFromConfig creates the workspace plans are applied to.
// A "simulated" workspace is seeded from a disk scan of the root, so plans
// can be rehearsed without moving anything.
func NewWorkspaceFromConfig(ctx context.Context, cfg *config.Config, logger tidy.Logger, clock tidy.Clock, idgen tidy.IDGenerator) (tidy.Workspace, error) {
	disk, err := fs.NewOSWorkspace(cfg.Root, fs.Options{
		MaxDepth: cfg.Workspace.MaxDepth,
		Ignore:   cfg.Filesystem.Ignore,
		CacheTTL: cfg.Workspace.CacheTTL,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	switch cfg.Workspace.Type {
	case "filesystem", "":
		return disk, nil
	case "simulated":
		snapshot, err := disk.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("seeding simulated workspace: %w", err)
		}
		return NewFromSnapshot(disk.Root(), snapshot, clock, idgen)
	default:
		return nil, fmt.Errorf("unknown workspace type: %s", cfg.Workspace.Type)
	}
}
