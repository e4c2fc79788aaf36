package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
)

const (
	// DefaultLockTimeout bounds how long a writer waits for the config lock.
	DefaultLockTimeout = 5 * time.Second

	lockRetryDelay = 50 * time.Millisecond
)

// FileLock serializes config writers across processes using gofrs/flock.
// The lock file lives next to the config file as <config>.lock.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewFileLock creates a lock for the config file at configPath.
func NewFileLock(configPath string) *FileLock {
	lockPath := configPath + ".lock"
	return &FileLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// LockWithTimeout acquires the exclusive lock, giving up after timeout.
func (l *FileLock) LockWithTimeout(timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return fileError("failed to create lock directory", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	acquired, err := l.flock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !acquired {
		return gserrors.New(gserrors.ErrCodeConfigPermission,
			fmt.Sprintf("config is locked by another process (%s)", l.path), err).
			WithSuggestion("Wait for the other gitlab-search command to finish, or remove the stale lock file")
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
func (l *FileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return false, fileError("failed to create lock directory", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call more than once.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}
