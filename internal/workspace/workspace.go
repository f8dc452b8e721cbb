// Package workspace provides a simulated file tree that plans can be applied
// to without touching the disk.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"tidy-go/internal/fs"
	"tidy-go/internal/tidy"
)

var (
	// ErrNotFound is returned when a path does not name a node.
	ErrNotFound = errors.New("no such file or folder")

	// ErrDestinationExists is shared with the disk workspace so callers match either.
	ErrDestinationExists = fs.ErrDestinationExists

	// ErrNotFolder is returned when a path component that must be a folder is a file.
	ErrNotFolder = errors.New("not a folder")
)

const noParent = -1

// node is one arena slot. Parent and children are arena indexes.
type node struct {
	id         string
	name       string
	kind       tidy.NodeKind
	category   tidy.Category
	size       int64
	modifiedAt time.Time
	createdAt  time.Time
	parent     int
	children   []int
}

// Workspace is an in-memory tree addressed by '/'-delimited absolute paths.
// Nodes live in an arena and keep their ID across moves.
// This implementation is safe for concurrent use.
type Workspace struct {
	mu     sync.Mutex
	root   string
	nodes  []node
	byPath map[string]int
	clock  tidy.Clock
	idgen  tidy.IDGenerator
}

var _ tidy.Workspace = (*Workspace)(nil)

// New creates an empty workspace rooted at root. Folders created by moves
// are stamped with clock and given IDs from idgen.
func New(root string, clock tidy.Clock, idgen tidy.IDGenerator) *Workspace {
	root = path.Clean(root)
	w := &Workspace{
		root:   root,
		byPath: make(map[string]int),
		clock:  clock,
		idgen:  idgen,
	}
	w.nodes = append(w.nodes, node{id: tidy.NodeID(root), name: path.Base(root), kind: tidy.KindFolder, parent: noParent})
	w.byPath[root] = 0
	return w
}

// NewFromSnapshot creates a workspace holding a copy of snapshot.
// Node paths must lie below root.
func NewFromSnapshot(root string, snapshot []tidy.FileNode, clock tidy.Clock, idgen tidy.IDGenerator) (*Workspace, error) {
	w := New(root, clock, idgen)
	if err := w.seed(0, snapshot); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Workspace) seed(parent int, nodes []tidy.FileNode) error {
	for i := range nodes {
		n := &nodes[i]
		want := w.pathOf(parent) + "/" + n.Name
		if path.Clean(n.Path) != want {
			return fmt.Errorf("node %s is not at %s", n.Path, want)
		}
		idx := w.attach(parent, node{
			id:         n.ID,
			name:       n.Name,
			kind:       n.Kind,
			category:   n.Category,
			size:       n.SizeBytes,
			modifiedAt: n.ModifiedAt,
			createdAt:  n.CreatedAt,
		})
		if n.Kind == tidy.KindFolder {
			if err := w.seed(idx, n.Children); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddFile places a file at p, creating missing parent folders.
func (w *Workspace) AddFile(p string, size int64, modifiedAt time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p = path.Clean(p)
	if !w.below(p) {
		return fmt.Errorf("%w: %s", fs.ErrOutsideRoot, p)
	}
	if _, ok := w.byPath[p]; ok {
		return fmt.Errorf("%w: %s", ErrDestinationExists, p)
	}
	parent, err := w.ensureFolder(path.Dir(p))
	if err != nil {
		return err
	}
	name := path.Base(p)
	w.attach(parent, node{
		id:         tidy.NodeID(p),
		name:       name,
		kind:       tidy.KindFile,
		category:   tidy.Classify(name),
		size:       size,
		modifiedAt: modifiedAt,
		createdAt:  modifiedAt,
	})
	return nil
}

// Exists reports whether p names a file or folder.
func (w *Workspace) Exists(p string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.byPath[path.Clean(p)]
	return ok
}

// Root returns the organization root.
func (w *Workspace) Root() string {
	return w.root
}

// Snapshot returns the current tree with folders first, then files, each by
// case-insensitive name, matching the disk workspace.
func (w *Workspace) Snapshot(ctx context.Context) ([]tidy.FileNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	nodes, _ := w.build(0)
	return nodes, nil
}

func (w *Workspace) build(idx int) ([]tidy.FileNode, int64) {
	parentPath := w.pathOf(idx)
	var folders, files []tidy.FileNode
	var total int64
	for _, c := range w.nodes[idx].children {
		n := w.nodes[c]
		out := tidy.FileNode{
			ID:         n.id,
			Name:       n.name,
			Path:       parentPath + "/" + n.name,
			Kind:       n.kind,
			Category:   n.category,
			SizeBytes:  n.size,
			ModifiedAt: n.modifiedAt,
			CreatedAt:  n.createdAt,
		}
		if n.kind == tidy.KindFolder {
			out.Children, out.SizeBytes = w.build(c)
			folders = append(folders, out)
		} else {
			files = append(files, out)
		}
		total += out.SizeBytes
	}
	sortByName(folders)
	sortByName(files)
	return append(folders, files...), total
}

func sortByName(nodes []tidy.FileNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return strings.ToLower(nodes[i].Name) < strings.ToLower(nodes[j].Name)
	})
}

// Move relocates the node at source to destination, creating missing parent
// folders. It never overwrites. Moving a folder carries its subtree.
func (w *Workspace) Move(ctx context.Context, source, destination string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	source, destination = path.Clean(source), path.Clean(destination)
	for _, p := range []string{source, destination} {
		if !w.below(p) {
			return fmt.Errorf("%w: %s", fs.ErrOutsideRoot, p)
		}
	}

	idx, ok := w.byPath[source]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, source)
	}
	if _, ok := w.byPath[destination]; ok {
		return fmt.Errorf("%w: %s", ErrDestinationExists, destination)
	}
	if strings.HasPrefix(destination, source+"/") {
		return fmt.Errorf("cannot move %s into itself", source)
	}

	parent, err := w.ensureFolder(path.Dir(destination))
	if err != nil {
		return err
	}

	w.unindex(idx, source)
	w.detach(idx)
	w.nodes[idx].name = path.Base(destination)
	w.nodes[idx].parent = parent
	w.nodes[parent].children = append(w.nodes[parent].children, idx)
	w.index(idx, destination)
	return nil
}

// ensureFolder returns the arena index of the folder at p, creating it and
// any missing ancestors.
func (w *Workspace) ensureFolder(p string) (int, error) {
	if idx, ok := w.byPath[p]; ok {
		if w.nodes[idx].kind != tidy.KindFolder {
			return 0, fmt.Errorf("%w: %s", ErrNotFolder, p)
		}
		return idx, nil
	}
	parent, err := w.ensureFolder(path.Dir(p))
	if err != nil {
		return 0, err
	}
	now := w.clock.Now().UTC()
	return w.attach(parent, node{
		id:         w.idgen.New(),
		name:       path.Base(p),
		kind:       tidy.KindFolder,
		modifiedAt: now,
		createdAt:  now,
	}), nil
}

// attach appends n to the arena as the last child of parent and indexes it.
func (w *Workspace) attach(parent int, n node) int {
	n.parent = parent
	idx := len(w.nodes)
	w.nodes = append(w.nodes, n)
	w.nodes[parent].children = append(w.nodes[parent].children, idx)
	w.byPath[w.pathOf(idx)] = idx
	return idx
}

func (w *Workspace) detach(idx int) {
	parent := w.nodes[idx].parent
	siblings := w.nodes[parent].children
	for i, c := range siblings {
		if c == idx {
			w.nodes[parent].children = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
}

func (w *Workspace) index(idx int, p string) {
	w.byPath[p] = idx
	for _, c := range w.nodes[idx].children {
		w.index(c, p+"/"+w.nodes[c].name)
	}
}

func (w *Workspace) unindex(idx int, p string) {
	delete(w.byPath, p)
	for _, c := range w.nodes[idx].children {
		w.unindex(c, p+"/"+w.nodes[c].name)
	}
}

func (w *Workspace) pathOf(idx int) string {
	if idx == 0 {
		return w.root
	}
	return w.pathOf(w.nodes[idx].parent) + "/" + w.nodes[idx].name
}

func (w *Workspace) below(p string) bool {
	return strings.HasPrefix(p, w.root+"/")
}
