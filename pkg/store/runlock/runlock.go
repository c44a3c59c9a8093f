// Package runlock provides the whole-run advisory lock. The hold is an flock
// on an open file descriptor, so the kernel drops it when the process exits
// however it exits.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrHeld = errors.New("lock is held by another process")

type Lock struct {
	path string
	file *os.File
}

// TryAcquire takes the lock at path without blocking. It returns ErrHeld when
// another process already holds it.
func TryAcquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := tryLock(f); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrHeld) {
			return nil, ErrHeld
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	return &Lock{path: path, file: f}, nil
}

func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock. Calling it more than once is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}

	f := l.file
	l.file = nil

	unlockErr := unlock(f)
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", l.path, err)
	}
	if unlockErr != nil {
		return fmt.Errorf("unlock %s: %w", l.path, unlockErr)
	}
	return nil
}
