// Package lock keeps a second kiosk process from opening the same data
// directory. Two writers would defeat the single-writer store.
package lock

import (
	"errors"
	"path/filepath"
)

// FileName is the lock file created in the data directory.
const FileName = ".queuepi.lock"

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("data directory is in use by another process")

// Path returns the lock file path for dataDir.
func Path(dataDir string) string { return filepath.Join(dataDir, FileName) }
