// Package types provides small shared types and formatting helpers for the
// dirindex tool: human-readable sizes, timestamps and tree statistics.
package types

import (
	"time"

	"github.com/dustin/go-humanize"
)

// TimeFormat is the layout used for every timestamp written to a snapshot.
// It is RFC 3339 with nanoseconds, always rendered in UTC.
const TimeFormat = time.RFC3339Nano

// TreeStats summarizes the shape of an indexed tree.
type TreeStats struct {
	// Files is the number of file entries.
	Files int64 `json:"files" yaml:"files"`

	// Folders is the number of folder entries below the root.
	Folders int64 `json:"folders" yaml:"folders"`

	// Size is the aggregated size of the root in bytes.
	Size int64 `json:"size" yaml:"size"`

	// UpdatedAt is the root's updated_at timestamp.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// FormatSize converts a size in bytes to a human-readable string
// using binary (IEC) units.
//
// Examples:
//   - FormatSize(0) returns "0 B"
//   - FormatSize(1024) returns "1.0 KiB"
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatTime renders t the way snapshots store it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// FormatAge renders the time elapsed since t relative to now, e.g. "3 hours ago".
func FormatAge(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}
