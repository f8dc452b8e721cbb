package workspace_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tidy-go/internal/config"
	"tidy-go/internal/fs"
	"tidy-go/internal/testutil"
	"tidy-go/internal/tidy"
	"tidy-go/internal/workspace"
)

var march = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

const root = testutil.TestRoot

func paths(nodes []tidy.FileNode) string {
	var out []string
	for _, n := range tidy.Flatten(nodes) {
		out = append(out, strings.TrimPrefix(n.Path, root+"/"))
	}
	return strings.Join(out, ",")
}

func TestWorkspace_Snapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("orders folders first and sums folder sizes", func(t *testing.T) {
		w := testutil.NewWorkspace(t,
			testutil.File("b.txt", 1, march),
			testutil.File("a.pdf", 2, march),
			testutil.File("Music/song.mp3", 30, march),
			testutil.File("Music/live/set.flac", 70, march),
		)

		nodes, err := w.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if got := paths(nodes); got != "Music,Music/live,Music/live/set.flac,Music/song.mp3,a.pdf,b.txt" {
			t.Errorf("pre-order = %s", got)
		}
		if nodes[0].SizeBytes != 100 {
			t.Errorf("Music size = %d, want 100", nodes[0].SizeBytes)
		}
		if nodes[1].Category != tidy.CategoryPDF {
			t.Errorf("a.pdf category = %q, want pdf", nodes[1].Category)
		}
	})

	t.Run("returns an independent tree", func(t *testing.T) {
		w := testutil.NewWorkspace(t, testutil.File("a.txt", 1, march))
		first, _ := w.Snapshot(ctx)
		first[0].Name = "changed"

		second, _ := w.Snapshot(ctx)
		if second[0].Name != "a.txt" {
			t.Errorf("Name = %q, want a.txt", second[0].Name)
		}
	})
}

func TestWorkspace_Move(t *testing.T) {
	ctx := context.Background()

	t.Run("creates parent folders and keeps the node id", func(t *testing.T) {
		w := testutil.NewWorkspace(t, testutil.File("a.pdf", 5, march))
		before, _ := w.Snapshot(ctx)

		if err := w.Move(ctx, root+"/a.pdf", root+"/2024/2024-03/a.pdf"); err != nil {
			t.Fatalf("Move() error = %v", err)
		}

		after, _ := w.Snapshot(ctx)
		if got := paths(after); got != "2024,2024/2024-03,2024/2024-03/a.pdf" {
			t.Errorf("tree = %s", got)
		}
		moved := after[0].Children[0].Children[0]
		if moved.ID != before[0].ID {
			t.Errorf("moved ID = %q, want %q", moved.ID, before[0].ID)
		}
		if w.Exists(root + "/a.pdf") {
			t.Error("source still exists")
		}
	})

	t.Run("moves a folder with its subtree", func(t *testing.T) {
		w := testutil.NewWorkspace(t, testutil.File("old/deep/x.txt", 1, march))

		if err := w.Move(ctx, root+"/old", root+"/new"); err != nil {
			t.Fatalf("Move() error = %v", err)
		}
		if !w.Exists(root+"/new/deep/x.txt") || w.Exists(root+"/old/deep/x.txt") {
			t.Error("subtree was not re-addressed")
		}
	})

	t.Run("round trip restores the tree", func(t *testing.T) {
		w := testutil.NewWorkspace(t, testutil.File("a.txt", 1, march), testutil.File("b.txt", 2, march))
		before, _ := w.Snapshot(ctx)

		if err := w.Move(ctx, root+"/a.txt", root+"/Text/a.txt"); err != nil {
			t.Fatal(err)
		}
		if err := w.Move(ctx, root+"/Text/a.txt", root+"/a.txt"); err != nil {
			t.Fatal(err)
		}
		after, _ := w.Snapshot(ctx)
		if paths(after) != "Text,"+paths(before) {
			t.Errorf("tree = %s, want created folder plus %s", paths(after), paths(before))
		}
	})

	errorCases := []struct {
		name    string
		src     string
		dst     string
		wantErr error
	}{
		{"missing source", root + "/nope.txt", root + "/Docs/nope.txt", workspace.ErrNotFound},
		{"occupied destination", root + "/a.txt", root + "/Docs/a.txt", workspace.ErrDestinationExists},
		{"parent is a file", root + "/a.txt", root + "/b.txt/a.txt", workspace.ErrNotFolder},
		{"outside the root", root + "/a.txt", "/tmp/a.txt", fs.ErrOutsideRoot},
	}
	for _, tt := range errorCases {
		t.Run("fails for "+tt.name, func(t *testing.T) {
			w := testutil.NewWorkspace(t,
				testutil.File("a.txt", 1, march),
				testutil.File("b.txt", 1, march),
				testutil.File("Docs/a.txt", 1, march),
			)
			if err := w.Move(ctx, tt.src, tt.dst); !errors.Is(err, tt.wantErr) {
				t.Errorf("Move() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("destination error matches the disk workspace sentinel", func(t *testing.T) {
		if !errors.Is(workspace.ErrDestinationExists, fs.ErrDestinationExists) {
			t.Error("sentinels differ")
		}
	})
}

func TestNewFromSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("copies the tree", func(t *testing.T) {
		snapshot := testutil.Snapshot(t, testutil.File("Pics/a.jpg", 3, march), testutil.File("b.txt", 1, march))

		w, err := workspace.NewFromSnapshot(root, snapshot, testutil.FixedClock(), testutil.NewStubIDGenerator())
		if err != nil {
			t.Fatalf("NewFromSnapshot() error = %v", err)
		}
		got, _ := w.Snapshot(ctx)
		if paths(got) != paths(snapshot) || got[0].ID != snapshot[0].ID {
			t.Errorf("tree = %s, want %s", paths(got), paths(snapshot))
		}
	})

	t.Run("rejects nodes outside their parent", func(t *testing.T) {
		snapshot := []tidy.FileNode{{ID: "x", Name: "a.txt", Path: "/elsewhere/a.txt", Kind: tidy.KindFile}}
		if _, err := workspace.NewFromSnapshot(root, snapshot, testutil.FixedClock(), testutil.NewStubIDGenerator()); err == nil {
			t.Error("NewFromSnapshot() expected error")
		}
	})
}

func TestNewWorkspaceFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("simulated workspace leaves the disk alone", func(t *testing.T) {
		dir := t.TempDir()
		disk, err := fs.NewOSWorkspace(dir, fs.Options{})
		if err != nil {
			t.Fatal(err)
		}
		cfg := config.NewConfig("h", t.TempDir(), dir)
		cfg.Workspace.Type = "simulated"

		w, err := workspace.NewWorkspaceFromConfig(ctx, cfg, tidy.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())
		if err != nil {
			t.Fatalf("NewWorkspaceFromConfig() error = %v", err)
		}
		if _, ok := w.(*workspace.Workspace); !ok {
			t.Fatalf("workspace = %T, want *workspace.Workspace", w)
		}
		if w.Root() != disk.Root() {
			t.Errorf("Root() = %q, want %q", w.Root(), disk.Root())
		}
	})

	t.Run("filesystem workspace", func(t *testing.T) {
		cfg := config.NewConfig("h", t.TempDir(), t.TempDir())
		w, err := workspace.NewWorkspaceFromConfig(ctx, cfg, tidy.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())
		if err != nil {
			t.Fatalf("NewWorkspaceFromConfig() error = %v", err)
		}
		if _, ok := w.(*fs.OSWorkspace); !ok {
			t.Errorf("workspace = %T, want *fs.OSWorkspace", w)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		cfg := config.NewConfig("h", t.TempDir(), t.TempDir())
		cfg.Workspace.Type = "cloud"
		if _, err := workspace.NewWorkspaceFromConfig(ctx, cfg, tidy.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator()); err == nil {
			t.Error("NewWorkspaceFromConfig() expected error")
		}
	})
}
