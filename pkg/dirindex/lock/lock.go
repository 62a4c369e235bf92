// Package lock serializes runs that write the same snapshot. The lock is
// an advisory flock on a sibling "<snapshot>.lock" file that records the
// holder's PID.
package lock

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Suffix is appended to the snapshot path to name its lock file.
const Suffix = ".lock"

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("snapshot is locked by another run")

// Lock is a held snapshot lock.
type Lock struct {
	path string
	file *os.File
}

// PathFor returns the lock file path for a snapshot.
func PathFor(snapshotPath string) string {
	return snapshotPath + Suffix
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Holder reads the PID recorded in the lock file for snapshotPath. It
// returns 0 when no lock file exists or it holds no PID.
func Holder(snapshotPath string) int {
	data, err := os.ReadFile(PathFor(snapshotPath))
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

func lockedError(snapshotPath string) error {
	if pid := Holder(snapshotPath); pid > 0 {
		return fmt.Errorf("%w: %s (pid %d)", ErrLocked, snapshotPath, pid)
	}
	return fmt.Errorf("%w: %s", ErrLocked, snapshotPath)
}
