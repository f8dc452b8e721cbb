// Package fs scans the organization root on disk and executes moves there.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"tidy-go/internal/tidy"
)

var (
	// ErrDestinationExists is returned by Move when something already occupies the destination.
	ErrDestinationExists = errors.New("destination already exists")

	// ErrOutsideRoot is returned by Move for a path that is not below the organization root.
	ErrOutsideRoot = errors.New("path is outside the organization root")
)

// DefaultMaxDepth bounds how far below the root a scan descends.
const DefaultMaxDepth = 10

// Options configures an OSWorkspace.
type Options struct {
	MaxDepth int           // 0 uses DefaultMaxDepth
	Ignore   []string      // patterns in addition to the root's .tidyignore
	CacheTTL time.Duration // how long a scan is reused; 0 disables caching
	Logger   tidy.Logger
}

// OSWorkspace is the real-disk SnapshotProvider and PlanExecutor.
//
// Snapshot lists folders before files, each group ordered by case-insensitive
// name. Symlinks and special files are skipped. Folders below MaxDepth are
// listed without children.
type OSWorkspace struct {
	root     string // absolute, '/'-delimited
	maxDepth int
	ignore   []string
	logger   tidy.Logger
	cache    *expirable.LRU[string, []tidy.FileNode]
}

var _ tidy.Workspace = (*OSWorkspace)(nil)

// NewOSWorkspace creates a workspace rooted at root, which must be an existing directory.
func NewOSWorkspace(root string, opts Options) (*OSWorkspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", abs)
	}

	w := &OSWorkspace{
		root:     filepath.ToSlash(abs),
		maxDepth: opts.MaxDepth,
		ignore:   append(append([]string(nil), defaultIgnorePatterns...), opts.Ignore...),
		logger:   opts.Logger,
	}
	if w.maxDepth <= 0 {
		w.maxDepth = DefaultMaxDepth
	}
	if w.logger == nil {
		w.logger = tidy.NewNopLogger()
	}
	if opts.CacheTTL > 0 {
		w.cache = expirable.NewLRU[string, []tidy.FileNode](1, nil, opts.CacheTTL)
	}
	return w, nil
}

// Root returns the absolute, '/'-delimited organization root.
func (w *OSWorkspace) Root() string {
	return w.root
}

// Snapshot scans the root. A cached scan is returned while it is fresh.
func (w *OSWorkspace) Snapshot(ctx context.Context) ([]tidy.FileNode, error) {
	if w.cache != nil {
		if nodes, ok := w.cache.Get(w.root); ok {
			w.logger.Debug("snapshot cache hit", "root", w.root)
			return cloneNodes(nodes), nil
		}
	}

	patterns, err := ParseIgnoreFile(filepath.Join(filepath.FromSlash(w.root), IgnoreFileName))
	if err != nil {
		return nil, err
	}
	matcher := NewIgnoreMatcher(append(append([]string(nil), w.ignore...), patterns...))

	start := time.Now()
	nodes, _, err := w.scanDir(ctx, matcher, w.root, "", 1)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", w.root, err)
	}
	w.logger.Debug("scanned root", "root", w.root, "duration", time.Since(start))

	if w.cache != nil {
		w.cache.Add(w.root, nodes)
		return cloneNodes(nodes), nil
	}
	return nodes, nil
}

// scanDir lists dir (a '/'-delimited absolute path) at the given depth and
// returns its nodes together with the total size of the files beneath it.
func (w *OSWorkspace) scanDir(ctx context.Context, matcher *IgnoreMatcher, dir, rel string, depth int) ([]tidy.FileNode, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	entries, err := os.ReadDir(filepath.FromSlash(dir))
	if err != nil {
		return nil, 0, err
	}

	var folders, files []tidy.FileNode
	var total int64
	for _, entry := range entries {
		childRel := path.Join(rel, entry.Name())
		if matcher.Match(childRel) {
			continue
		}
		if !entry.IsDir() && !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// removed during the scan
				continue
			}
			return nil, 0, fmt.Errorf("stat %s: %w", childRel, err)
		}

		childPath := dir + "/" + entry.Name()
		node := tidy.FileNode{
			ID:         tidy.NodeID(childPath),
			Name:       entry.Name(),
			Path:       childPath,
			ModifiedAt: info.ModTime().UTC(),
			CreatedAt:  createdAt(filepath.FromSlash(childPath), info).UTC(),
		}

		if entry.IsDir() {
			node.Kind = tidy.KindFolder
			if depth < w.maxDepth {
				children, size, err := w.scanDir(ctx, matcher, childPath, childRel, depth+1)
				if err != nil {
					return nil, 0, err
				}
				node.Children = children
				node.SizeBytes = size
			}
			folders = append(folders, node)
		} else {
			node.Kind = tidy.KindFile
			node.Category = tidy.Classify(node.Name)
			node.SizeBytes = info.Size()
			files = append(files, node)
		}
		total += node.SizeBytes
	}

	sortByName(folders)
	sortByName(files)
	return append(folders, files...), total, nil
}

func sortByName(nodes []tidy.FileNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return strings.ToLower(nodes[i].Name) < strings.ToLower(nodes[j].Name)
	})
}

func cloneNodes(nodes []tidy.FileNode) []tidy.FileNode {
	out := make([]tidy.FileNode, len(nodes))
	for i := range nodes {
		out[i] = nodes[i].Clone()
	}
	return out
}

// Move renames source to destination, creating missing parent folders.
// It refuses to overwrite an existing destination. Both paths must be below the root.
func (w *OSWorkspace) Move(ctx context.Context, source, destination string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, p := range []string{source, destination} {
		if !w.contains(p) {
			return fmt.Errorf("%w: %s", ErrOutsideRoot, p)
		}
	}

	src := filepath.FromSlash(source)
	dst := filepath.FromSlash(destination)

	if _, err := os.Lstat(src); err != nil {
		return fmt.Errorf("source %s: %w", source, err)
	}
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, destination)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking destination %s: %w", destination, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating folder for %s: %w", destination, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s: %w", source, err)
	}

	if w.cache != nil {
		w.cache.Purge()
	}
	w.logger.Debug("moved file", "source", source, "destination", destination)
	return nil
}

func (w *OSWorkspace) contains(p string) bool {
	cleaned := path.Clean(p)
	return strings.HasPrefix(cleaned, w.root+"/")
}
