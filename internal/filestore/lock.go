package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rpggio/worklog/internal/repository"
)

const (
	lockPollInterval = 20 * time.Millisecond
	// Locks older than this are left over from a crashed process.
	staleLockAge = 30 * time.Second
)

type fileLock struct {
	path string
	info os.FileInfo
}

// acquireLock creates path exclusively, retrying until timeout or ctx ends.
func acquireLock(ctx context.Context, path string, timeout time.Duration) (*fileLock, error) {
	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
			info, statErr := f.Stat()
			f.Close()
			if statErr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("stat lock file: %w", statErr)
			}
			return &fileLock{path: path, info: info}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("creating lock file: %w", err)
		}

		if info, statErr := os.Stat(path); statErr == nil && time.Since(info.ModTime()) > staleLockAge {
			if breakStaleLock(path, info) {
				continue
			}
		}

		if time.Now().After(deadline) {
			return nil, repository.ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// breakStaleLock moves the lock aside under a unique name and deletes it
// only if it is still the file that was judged stale. Two waiters can both
// see the same stale lock; the slower one must not delete the fresh lock the
// faster one created, so that lock is linked back into place.
func breakStaleLock(path string, stale os.FileInfo) bool {
	aside := fmt.Sprintf("%s.stale.%d.%d", path, os.Getpid(), time.Now().UnixNano())
	if err := os.Rename(path, aside); err != nil {
		return false
	}
	if moved, err := os.Stat(aside); err == nil && !sameLock(stale, moved) {
		_ = os.Link(aside, path)
	}
	_ = os.Remove(aside)
	return true
}

// release removes the lock file if it is still the one this process created.
func (l *fileLock) release() error {
	current, err := os.Stat(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err == nil && l.info != nil && !sameLock(l.info, current) {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing lock file: %w", err)
	}
	return nil
}

// sameLock compares modification times too, since inode numbers are reused.
func sameLock(a, b os.FileInfo) bool {
	return os.SameFile(a, b) && a.ModTime().Equal(b.ModTime())
}
