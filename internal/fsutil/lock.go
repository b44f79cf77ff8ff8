// Package fsutil provides the scoped advisory file locks and atomic
// whole-file replacement the journal engine builds every write on.
package fsutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/anthropics/labjournal/internal/jerr"
)

// DefaultLockTimeout is the default window Lock waits to acquire an
// exclusive lock before giving up with LockTimeout.
const DefaultLockTimeout = 10 * time.Second

// FileLock is an exclusive advisory lock held on a sibling ".lock" file
// next to the path it protects. It is released on every exit path,
// including failure, by the caller's deferred Unlock.
type FileLock struct {
	file *os.File
	path string
}

// LockPath returns the sibling lock file path for target.
func LockPath(target string) string {
	return target + ".lock"
}

// Lock acquires an exclusive advisory lock on the sibling lock file for
// target, retrying briefly until timeout elapses. A zero timeout uses
// DefaultLockTimeout.
func Lock(ctx context.Context, target string, timeout time.Duration) (*FileLock, error) {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	lockPath := LockPath(target)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "create directory for lock %s", lockPath)
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "open lock file %s", lockPath)
	}

	deadline := time.Now().Add(timeout)
	backoff := 5 * time.Millisecond
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &FileLock{file: f, path: lockPath}, nil
		}
		if err != unix.EWOULDBLOCK {
			f.Close()
			return nil, jerr.Wrap(jerr.IoFailure, err, "flock %s", lockPath)
		}

		if time.Now().After(deadline) {
			f.Close()
			return nil, jerr.New(jerr.LockTimeout, "could not acquire lock on %s within %s", target, timeout)
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, jerr.Wrap(jerr.LockTimeout, ctx.Err(), "lock wait canceled for %s", target)
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}

// Unlock releases the lock and closes the underlying file descriptor.
func (l *FileLock) Unlock() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("unlock %s: %w", l.path, err)
	}
	return closeErr
}

// WithLock runs fn while holding an exclusive lock on target's sibling
// lock file, always releasing the lock afterward regardless of outcome.
func WithLock(ctx context.Context, target string, timeout time.Duration, fn func() error) error {
	lock, err := Lock(ctx, target, timeout)
	if err != nil {
		return err
	}
	defer lock.Unlock()
	return fn()
}
