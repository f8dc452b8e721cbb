package tidy

import "time"

// NodeKind distinguishes files from folders in a snapshot.
type NodeKind string

const (
	KindFile   NodeKind = "file"
	KindFolder NodeKind = "folder"
)

// FileNode is a file or folder in a snapshot supplied by a SnapshotProvider.
// A file's Path is its parent's Path + "/" + Name. A folder's SizeBytes is the
// sum of its descendant files. The engine never mutates a FileNode it was given.
type FileNode struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Path       string     `json:"path"`
	Kind       NodeKind   `json:"kind"`
	Category   Category   `json:"category,omitempty"`
	SizeBytes  int64      `json:"size_bytes"`
	ModifiedAt time.Time  `json:"modified_at"`
	CreatedAt  time.Time  `json:"created_at"`
	Children   []FileNode `json:"children,omitempty"`
}

// IsFile reports whether the node is a regular file.
func (n *FileNode) IsFile() bool { return n.Kind == KindFile }

// Clone returns a deep copy of the node and its children.
func (n FileNode) Clone() FileNode {
	if n.Children == nil {
		return n
	}
	children := make([]FileNode, len(n.Children))
	for i := range n.Children {
		children[i] = n.Children[i].Clone()
	}
	n.Children = children
	return n
}

// OperationStatus is the state of a single move inside a plan.
type OperationStatus string

const (
	OperationPending OperationStatus = "pending"
	OperationApplied OperationStatus = "applied"
	OperationUndone  OperationStatus = "undone"
	OperationFailed  OperationStatus = "failed"
)

// MoveOperation is one proposed or executed move.
// SourceFile keeps the snapshot of the file as it was when the plan was generated.
type MoveOperation struct {
	ID                string          `json:"id"`
	SourceFile        FileNode        `json:"source_file"`
	SourcePath        string          `json:"source_path"`
	DestinationPath   string          `json:"destination_path"`
	DestinationFolder string          `json:"destination_folder"`
	Status            OperationStatus `json:"status"`
	Error             string          `json:"error,omitempty"`
}

// PlanStatus is the lifecycle state of an organization plan.
type PlanStatus string

const (
	PlanPreview PlanStatus = "preview"
	PlanApplied PlanStatus = "applied"
	PlanPartial PlanStatus = "partial"
	PlanUndone  PlanStatus = "undone"
)

// Plan is the unit of preview, apply and undo.
// AffectedFiles and NewFolders are fixed when the plan is generated.
type Plan struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Rule          Rule            `json:"rule"`
	Root          string          `json:"root"`
	Operations    []MoveOperation `json:"operations"`
	CreatedAt     time.Time       `json:"created_at"`
	Status        PlanStatus      `json:"status"`
	AffectedFiles int             `json:"affected_files"`
	NewFolders    []string        `json:"new_folders"`
}

// Clone returns a deep copy of the plan.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	c := *p
	c.Operations = make([]MoveOperation, len(p.Operations))
	for i, op := range p.Operations {
		op.SourceFile = op.SourceFile.Clone()
		c.Operations[i] = op
	}
	c.NewFolders = make([]string, len(p.NewFolders))
	copy(c.NewFolders, p.NewFolders)
	return &c
}

// OperationType is the kind of change a history entry records.
// The engine only emits OperationMove.
type OperationType string

const (
	OperationMove         OperationType = "move"
	OperationRename       OperationType = "rename"
	OperationCreateFolder OperationType = "create_folder"
	OperationDelete       OperationType = "delete"
)

// FileData is the minimal file snapshot stored with a history entry.
type FileData struct {
	Name      string   `json:"name"`
	SizeBytes int64    `json:"size_bytes"`
	Category  Category `json:"category"`
}

// HistoryEntry records one applied move.
type HistoryEntry struct {
	ID              string        `json:"id"`
	BatchID         string        `json:"batch_id"`
	OperationType   OperationType `json:"operation_type"`
	SourcePath      string        `json:"source_path"`
	DestinationPath string        `json:"destination_path"`
	FileData        FileData      `json:"file_data"`
	Timestamp       time.Time     `json:"timestamp"`
	IsUndone        bool          `json:"is_undone"`
}

// HistoryBatch is the durable, undoable record of one applied plan.
// IsUndone always agrees with every entry's IsUndone.
type HistoryBatch struct {
	ID          string         `json:"id"`
	PlanID      string         `json:"plan_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Entries     []HistoryEntry `json:"entries"`
	Timestamp   time.Time      `json:"timestamp"`
	IsUndone    bool           `json:"is_undone"`
}

// Clone returns a deep copy of the batch.
func (b *HistoryBatch) Clone() *HistoryBatch {
	if b == nil {
		return nil
	}
	c := *b
	c.Entries = append([]HistoryEntry(nil), b.Entries...)
	return &c
}

// Summary returns the display-friendly view of the batch.
func (b *HistoryBatch) Summary() BatchSummary {
	return BatchSummary{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		Timestamp:   b.Timestamp,
		EntryCount:  len(b.Entries),
		IsUndone:    b.IsUndone,
	}
}

// BatchSummary is what history listings show for a batch.
type BatchSummary struct {
	ID          string
	Name        string
	Description string
	Timestamp   time.Time
	EntryCount  int
	IsUndone    bool
}
