package sync

import "stagesync/internal/scan"

// Action is the per-file outcome decided during a run
type Action int

const (
	// ActionCopy stages the file because no destination entry exists
	ActionCopy Action = iota
	// ActionSkip leaves an existing destination entry untouched
	ActionSkip
)

// FileOp pairs a matched source entry with the decided action
type FileOp struct {
	Entry  scan.Entry
	Action Action
}

// Summary reports what a run did
type Summary struct {
	Total   int // matched entries found in the source root
	Copied  int // entries staged to the destination
	Skipped int // entries already present at the destination
	Failed  int // entries whose copy failed
}
