package testutil

import (
	"testing"
	"time"

	"tidy-go/internal/tidy"
	"tidy-go/internal/workspace"
)

// TestRoot is the organization root used by fixtures.
const TestRoot = "/home/test/Downloads"

// FixtureFile describes one file of a fixture tree, relative to the root.
type FixtureFile struct {
	Path       string
	SizeBytes  int64
	ModifiedAt time.Time
}

// File is shorthand for a FixtureFile.
func File(rel string, size int64, modified time.Time) FixtureFile {
	return FixtureFile{Path: rel, SizeBytes: size, ModifiedAt: modified}
}

// NewWorkspace creates a simulated workspace at TestRoot holding files.
func NewWorkspace(t *testing.T, files ...FixtureFile) *workspace.Workspace {
	t.Helper()

	w := workspace.New(TestRoot, FixedClock(), NewPrefixedIDGenerator("folder"))
	for _, f := range files {
		if err := w.AddFile(TestRoot+"/"+f.Path, f.SizeBytes, f.ModifiedAt); err != nil {
			t.Fatalf("adding fixture %s: %v", f.Path, err)
		}
	}
	return w
}

// Snapshot returns the tree holding files, as a provider would report it.
func Snapshot(t *testing.T, files ...FixtureFile) []tidy.FileNode {
	t.Helper()

	nodes, err := NewWorkspace(t, files...).Snapshot(t.Context())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return nodes
}
