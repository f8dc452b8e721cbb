package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"tidy-go/internal/tidy"
)

// planFileName is the file the live plan is kept in:
//
//	<staging_dir>/
//	  plan.json
const planFileName = "plan.json"

// fileStore keeps the encoded plan in a file so it survives between CLI invocations.
type fileStore struct {
	dir  string
	path string
}

// NewFileSystemStaging creates a plan staging area in stagingDir, creating the directory if needed.
func NewFileSystemStaging(stagingDir string) (tidy.PlanStaging, error) {
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &planStaging{store: &fileStore{
		dir:  stagingDir,
		path: filepath.Join(stagingDir, planFileName),
	}}, nil
}

func (f *fileStore) Read() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading staged plan: %w", err)
	}
	return data, nil
}

// Write replaces the plan file atomically (temp file + rename).
func (f *fileStore) Write(data []byte) error {
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write staged plan: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func (f *fileStore) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing staged plan: %w", err)
	}
	return nil
}
