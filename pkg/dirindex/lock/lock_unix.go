//go:build unix

package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// Acquire takes the lock for snapshotPath without blocking. It returns
// an error wrapping ErrLocked when another run holds it.
func Acquire(snapshotPath string) (*Lock, error) {
	path := PathFor(snapshotPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	for {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening lock file: %w", err)
		}

		if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
			_ = file.Close()
			if errors.Is(err, unix.EWOULDBLOCK) {
				return nil, lockedError(snapshotPath)
			}
			return nil, fmt.Errorf("locking %s: %w", path, err)
		}

		// The previous holder may have removed the file between our open
		// and flock; a lock on an unlinked inode guards nothing.
		if !sameFile(file, path) {
			_ = file.Close()
			continue
		}

		if err := writePID(file); err != nil {
			_ = file.Close()
			return nil, err
		}
		return &Lock{path: path, file: file}, nil
	}
}

func sameFile(file *os.File, path string) bool {
	held, err := file.Stat()
	if err != nil {
		return false
	}
	current, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(held, current)
}

func writePID(file *os.File) error {
	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("truncating lock file: %w", err)
	}
	if _, err := file.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		return fmt.Errorf("writing lock file: %w", err)
	}
	return nil
}

// Release removes the lock file and drops the lock. Releasing twice is a
// no-op.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}

	removeErr := os.Remove(l.path)
	closeErr := l.file.Close()
	l.file = nil

	if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		return fmt.Errorf("removing lock file: %w", removeErr)
	}
	return closeErr
}
