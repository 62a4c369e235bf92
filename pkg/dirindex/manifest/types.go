// Package manifest keeps a journal of index runs, one JSON file per run.
package manifest

import "time"

// OperationType is what started a run.
type OperationType string

const (
	// OpUpdate is a one-shot update run.
	OpUpdate OperationType = "update"
	// OpWatch is a run triggered by watch mode.
	OpWatch OperationType = "watch"
)

// Entry records one run.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Operation OperationType  `json:"operation"`
	Duration  time.Duration  `json:"duration"`
	Changed   int            `json:"changed"`
	Folders   []FolderRecord `json:"folders"`
	Summary   Summary        `json:"summary"`
}

// FolderRecord is the outcome of a run for one indexed folder.
type FolderRecord struct {
	Name     string   `json:"name"`
	Snapshot string   `json:"snapshot"`
	Added    []string `json:"added,omitempty"`
	Removed  []string `json:"removed,omitempty"`
	Replaced []string `json:"replaced,omitempty"`
	Touched  int      `json:"touched"`
	Size     int64    `json:"size"`
	Files    int64    `json:"files"`
	Error    string   `json:"error,omitempty"`
}

// Summary totals a run across folders.
type Summary struct {
	Added    int   `json:"added"`
	Removed  int   `json:"removed"`
	Replaced int   `json:"replaced"`
	Touched  int   `json:"touched"`
	Size     int64 `json:"size"`
}
