//go:build !unix

package lock

// Acquire returns a lock that guards nothing; flock is unavailable here.
func Acquire(snapshotPath string) (*Lock, error) {
	return &Lock{path: PathFor(snapshotPath)}, nil
}

// Release is a no-op.
func (l *Lock) Release() error {
	return nil
}
