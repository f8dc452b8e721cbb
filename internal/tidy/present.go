package tidy

// FolderGroup is the set of operations that land in one destination folder.
type FolderGroup struct {
	Folder     string
	Operations []MoveOperation
}

// FolderStat counts what one destination folder receives.
type FolderStat struct {
	Folder    string
	Files     int
	SizeBytes int64
}

// PlanStats summarizes a plan for display.
type PlanStats struct {
	TotalFiles     int
	TotalSizeBytes int64
	PerFolder      []FolderStat
}

// GroupByFolder groups the plan's operations by destination folder.
// Groups appear in the order their folder is first seen in the operation list.
func GroupByFolder(plan *Plan) []FolderGroup {
	var groups []FolderGroup
	index := make(map[string]int)
	for _, op := range plan.Operations {
		i, ok := index[op.DestinationFolder]
		if !ok {
			i = len(groups)
			index[op.DestinationFolder] = i
			groups = append(groups, FolderGroup{Folder: op.DestinationFolder})
		}
		groups[i].Operations = append(groups[i].Operations, op)
	}
	return groups
}

// ComputeStats totals files and bytes over the plan, overall and per folder.
func ComputeStats(plan *Plan) PlanStats {
	var stats PlanStats
	index := make(map[string]int)
	for _, op := range plan.Operations {
		size := op.SourceFile.SizeBytes
		stats.TotalFiles++
		stats.TotalSizeBytes += size

		i, ok := index[op.DestinationFolder]
		if !ok {
			i = len(stats.PerFolder)
			index[op.DestinationFolder] = i
			stats.PerFolder = append(stats.PerFolder, FolderStat{Folder: op.DestinationFolder})
		}
		stats.PerFolder[i].Files++
		stats.PerFolder[i].SizeBytes += size
	}
	return stats
}

// SnapshotTotals counts what a snapshot holds.
type SnapshotTotals struct {
	Files       int
	Folders     int
	SizeBytes   int64
	PerCategory map[Category]int
}

// ComputeTotals walks the snapshot and counts files, folders and file bytes.
func ComputeTotals(snapshot []FileNode) SnapshotTotals {
	totals := SnapshotTotals{PerCategory: make(map[Category]int)}
	for _, n := range Flatten(snapshot) {
		if !n.IsFile() {
			totals.Folders++
			continue
		}
		totals.Files++
		totals.SizeBytes += n.SizeBytes
		totals.PerCategory[categoryOf(n)]++
	}
	return totals
}
