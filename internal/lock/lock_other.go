//go:build !linux

package lock

import (
	"fmt"
	"os"
)

// Lock is an exclusively created lock file on platforms without flock.
type Lock struct {
	path string
}

// Acquire creates the lock file, failing if it already exists. A stale file
// left by a crash has to be removed by hand.
func Acquire(dataDir string) (*Lock, error) {
	p := Path(dataDir)
	f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("lock: create: %w", err)
	}
	fmt.Fprintln(f, os.Getpid())
	f.Close()
	return &Lock{path: p}, nil
}

// Release removes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	err := os.Remove(l.path)
	l.path = ""
	return err
}
