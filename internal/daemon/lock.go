package daemon

import (
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning reports that another instance holds the lock.
var ErrAlreadyRunning = errors.New("another xmlwatch instance is already running")

// AcquireLock takes the single-instance lock at path without blocking.
func AcquireLock(path string) (*flock.Flock, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}
	return lock, nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, fmt.Appendf(nil, "%d\n", os.Getpid()), 0o644)
}
