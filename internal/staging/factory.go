package staging

import (
	"fmt"

	"tidy-go/internal/config"
	"tidy-go/internal/tidy"
)

// NewPlanStagingFromConfig creates a PlanStaging implementation based on the config type.
func NewPlanStagingFromConfig(cfg config.StagingConfig) (tidy.PlanStaging, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStaging(), nil
	case "filesystem":
		if cfg.StagingDir == "" {
			return nil, fmt.Errorf("filesystem staging requires staging_dir to be set")
		}
		return NewFileSystemStaging(cfg.StagingDir)
	default:
		return nil, fmt.Errorf("unknown staging type: %s", cfg.Type)
	}
}
