package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tidy-go/internal/tidy"
)

// writeTree creates files (relative path -> content) under a fresh root.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func names(nodes []tidy.FileNode) string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return strings.Join(out, ",")
}

func newWorkspace(t *testing.T, root string, opts Options) *OSWorkspace {
	t.Helper()
	w, err := NewOSWorkspace(root, opts)
	if err != nil {
		t.Fatalf("NewOSWorkspace() error = %v", err)
	}
	return w
}

func TestNewOSWorkspace(t *testing.T) {
	t.Run("rejects a missing root", func(t *testing.T) {
		if _, err := NewOSWorkspace(filepath.Join(t.TempDir(), "missing"), Options{}); err == nil {
			t.Error("NewOSWorkspace() expected error")
		}
	})

	t.Run("rejects a file root", func(t *testing.T) {
		root := writeTree(t, map[string]string{"a.txt": "a"})
		if _, err := NewOSWorkspace(filepath.Join(root, "a.txt"), Options{}); err == nil {
			t.Error("NewOSWorkspace() expected error")
		}
	})

	t.Run("root is absolute and slash separated", func(t *testing.T) {
		root := t.TempDir()
		w := newWorkspace(t, root, Options{})
		if w.Root() != filepath.ToSlash(root) {
			t.Errorf("Root() = %q, want %q", w.Root(), filepath.ToSlash(root))
		}
	})
}

func TestOSWorkspace_Snapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("lists folders first then files by case-insensitive name", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"b.txt":         "b",
			"A.pdf":         "a",
			"zeta/one.png":  "1",
			"Alpha/two.mp3": "22",
		})
		w := newWorkspace(t, root, Options{})

		nodes, err := w.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if got := names(nodes); got != "Alpha,zeta,A.pdf,b.txt" {
			t.Errorf("order = %s, want Alpha,zeta,A.pdf,b.txt", got)
		}
	})

	t.Run("fills paths categories and folder sizes", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"docs/report.pdf":     "12345",
			"docs/notes/todo.txt": "123",
		})
		w := newWorkspace(t, root, Options{})

		nodes, err := w.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		docs := nodes[0]
		if docs.Kind != tidy.KindFolder || docs.SizeBytes != 8 {
			t.Errorf("docs = %+v, want folder of 8 bytes", docs)
		}
		if docs.Path != w.Root()+"/docs" {
			t.Errorf("docs.Path = %q", docs.Path)
		}
		report := docs.Children[1]
		if report.Name != "report.pdf" || report.Category != tidy.CategoryPDF || report.SizeBytes != 5 {
			t.Errorf("report = %+v", report)
		}
		if report.Path != docs.Path+"/report.pdf" {
			t.Errorf("report.Path = %q, want child of %q", report.Path, docs.Path)
		}
		if report.ModifiedAt.IsZero() || report.CreatedAt.IsZero() {
			t.Error("timestamps not populated")
		}
	})

	t.Run("ids are stable across scans", func(t *testing.T) {
		root := writeTree(t, map[string]string{"a.txt": "a"})
		w := newWorkspace(t, root, Options{})

		first, _ := w.Snapshot(ctx)
		second, _ := w.Snapshot(ctx)
		if first[0].ID == "" || first[0].ID != second[0].ID {
			t.Errorf("ids = %q, %q; want equal and non-empty", first[0].ID, second[0].ID)
		}
	})

	t.Run("honors configured and root ignore patterns", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			".git/HEAD":       "ref",
			"keep.txt":        "k",
			"debug.log":       "l",
			"build/out/app.o": "o",
			IgnoreFileName:    "*.log\nbuild/out\n",
		})
		w := newWorkspace(t, root, Options{Ignore: []string{".git"}})

		nodes, err := w.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if got := names(nodes); got != "build,keep.txt" {
			t.Errorf("top level = %s, want build,keep.txt", got)
		}
		if len(nodes[0].Children) != 0 {
			t.Errorf("build children = %s, want none", names(nodes[0].Children))
		}
	})

	t.Run("stops descending at max depth", func(t *testing.T) {
		root := writeTree(t, map[string]string{"a/b/c/deep.txt": "d"})
		w := newWorkspace(t, root, Options{MaxDepth: 2})

		nodes, err := w.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		b := nodes[0].Children[0]
		if b.Name != "b" || b.Kind != tidy.KindFolder {
			t.Fatalf("second level = %+v", b)
		}
		if len(b.Children) != 0 {
			t.Errorf("b children = %s, want none beyond depth", names(b.Children))
		}
	})

	t.Run("skips symlinks", func(t *testing.T) {
		root := writeTree(t, map[string]string{"real.txt": "r"})
		if err := os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}
		w := newWorkspace(t, root, Options{})

		nodes, _ := w.Snapshot(ctx)
		if got := names(nodes); got != "real.txt" {
			t.Errorf("nodes = %s, want real.txt", got)
		}
	})

	t.Run("honors a cancelled context", func(t *testing.T) {
		w := newWorkspace(t, t.TempDir(), Options{})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := w.Snapshot(cctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Snapshot() error = %v, want context.Canceled", err)
		}
	})
}

func TestOSWorkspace_SnapshotCache(t *testing.T) {
	ctx := context.Background()
	root := writeTree(t, map[string]string{"a.txt": "a"})
	w := newWorkspace(t, root, Options{CacheTTL: time.Hour})

	first, err := w.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	first[0].Name = "mutated"

	if err := os.WriteFile(filepath.Join(root, "b.txt"), []byte("b"), 0644); err != nil {
		t.Fatal(err)
	}
	cached, _ := w.Snapshot(ctx)
	if got := names(cached); got != "a.txt" {
		t.Errorf("cached snapshot = %s, want a.txt unchanged", got)
	}

	if err := w.Move(ctx, w.Root()+"/a.txt", w.Root()+"/Text/a.txt"); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	fresh, _ := w.Snapshot(ctx)
	if got := names(fresh); got != "Text,b.txt" {
		t.Errorf("snapshot after move = %s, want Text,b.txt", got)
	}
}

func TestOSWorkspace_Move(t *testing.T) {
	ctx := context.Background()

	t.Run("creates missing parent folders", func(t *testing.T) {
		root := writeTree(t, map[string]string{"a.pdf": "pdf"})
		w := newWorkspace(t, root, Options{})

		if err := w.Move(ctx, w.Root()+"/a.pdf", w.Root()+"/2024/2024-03/a.pdf"); err != nil {
			t.Fatalf("Move() error = %v", err)
		}
		data, err := os.ReadFile(filepath.Join(root, "2024", "2024-03", "a.pdf"))
		if err != nil || string(data) != "pdf" {
			t.Errorf("moved file = %q, %v", data, err)
		}
		if _, err := os.Stat(filepath.Join(root, "a.pdf")); !os.IsNotExist(err) {
			t.Errorf("source still present: %v", err)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		root := writeTree(t, map[string]string{"a.txt": "new", "Docs/a.txt": "old"})
		w := newWorkspace(t, root, Options{})

		err := w.Move(ctx, w.Root()+"/a.txt", w.Root()+"/Docs/a.txt")
		if !errors.Is(err, ErrDestinationExists) {
			t.Fatalf("Move() error = %v, want ErrDestinationExists", err)
		}
		data, _ := os.ReadFile(filepath.Join(root, "Docs", "a.txt"))
		if string(data) != "old" {
			t.Errorf("destination overwritten with %q", data)
		}
	})

	t.Run("reports a missing source", func(t *testing.T) {
		w := newWorkspace(t, t.TempDir(), Options{})
		err := w.Move(ctx, w.Root()+"/gone.txt", w.Root()+"/Docs/gone.txt")
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Move() error = %v, want not exist", err)
		}
	})

	t.Run("rejects paths outside the root", func(t *testing.T) {
		root := writeTree(t, map[string]string{"a.txt": "a"})
		w := newWorkspace(t, root, Options{})

		tests := []struct{ src, dst string }{
			{"/etc/passwd", w.Root() + "/passwd"},
			{w.Root() + "/a.txt", w.Root() + "/../escape.txt"},
			{w.Root() + "/a.txt", w.Root()},
		}
		for _, tt := range tests {
			if err := w.Move(ctx, tt.src, tt.dst); !errors.Is(err, ErrOutsideRoot) {
				t.Errorf("Move(%s, %s) error = %v, want ErrOutsideRoot", tt.src, tt.dst, err)
			}
		}
	})
}
