package tidy

import (
	"fmt"
	"path"
	"time"
)

// Planner turns a snapshot into an organization plan.
type Planner struct {
	clock Clock
	idgen IDGenerator
}

// NewPlanner creates a Planner that stamps plans and operations with clock and idgen.
func NewPlanner(clock Clock, idgen IDGenerator) *Planner {
	return &Planner{clock: clock, idgen: idgen}
}

// Flatten returns every node of the snapshot in pre-order.
// The returned nodes share no memory with children of the input.
func Flatten(snapshot []FileNode) []*FileNode {
	var out []*FileNode
	var walk func(nodes []FileNode)
	walk = func(nodes []FileNode) {
		for i := range nodes {
			out = append(out, &nodes[i])
			walk(nodes[i].Children)
		}
	}
	walk(snapshot)
	return out
}

// DestinationPath is where a file named name lands under folder below root.
func DestinationPath(root, folder, name string) string {
	return path.Join(root, folder, name)
}

// Generate computes the plan that reorganizes snapshot under root using rule.
//
// Operations follow pre-order discovery. Files whose current path already
// equals the computed destination are left out, so running a rule over its
// own output yields an empty plan. An empty snapshot yields an empty preview
// plan. Invalid options fail before any plan is built.
func (p *Planner) Generate(snapshot []FileNode, rule Rule, opts RuleOptions, root string) (*Plan, error) {
	if err := opts.Validate(rule); err != nil {
		return nil, err
	}
	root = path.Clean(root)

	// Work on a private copy so operations never alias the caller's snapshot.
	owned := make([]FileNode, len(snapshot))
	for i := range snapshot {
		owned[i] = snapshot[i].Clone()
	}

	var ops []MoveOperation
	var newFolders []string
	seenFolders := make(map[string]bool)

	for _, node := range Flatten(owned) {
		if !node.IsFile() {
			continue
		}
		folder := resolve(node, rule, opts)
		dest := DestinationPath(root, folder, node.Name)
		if node.Path == dest {
			continue
		}

		src := *node
		src.Children = nil
		ops = append(ops, MoveOperation{
			ID:                p.idgen.New(),
			SourceFile:        src,
			SourcePath:        node.Path,
			DestinationPath:   dest,
			DestinationFolder: folder,
			Status:            OperationPending,
		})

		if folder != "" && !seenFolders[folder] {
			seenFolders[folder] = true
			newFolders = append(newFolders, folder)
		}
	}

	if ops == nil {
		ops = []MoveOperation{}
	}
	if newFolders == nil {
		newFolders = []string{}
	}

	return &Plan{
		ID:            p.idgen.New(),
		Name:          fmt.Sprintf("Organize by %s", rule.Label()),
		Description:   fmt.Sprintf("Move %d file(s) in %s into %d folder(s)", len(ops), root, len(newFolders)),
		Rule:          rule,
		Root:          root,
		Operations:    ops,
		CreatedAt:     p.clock.Now().UTC().Truncate(time.Millisecond),
		Status:        PlanPreview,
		AffectedFiles: len(ops),
		NewFolders:    newFolders,
	}, nil
}
