package core

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/NunoMoura/dev-ops-sub000/internal/taskpath"
)

// Locker serializes read-modify-write cycles across processes. Each lock
// covers exactly one resource: a single task, or ID allocation on the board.
type Locker interface {
	LockTask(taskID string) (unlock func() error, err error)
	LockBoard() (unlock func() error, err error)
}

type fileLocker struct {
	root string
}

// NewFileLocker creates a Locker backed by advisory flock(2) lock files
// inside the workspace data directory.
func NewFileLocker(root string) Locker {
	return &fileLocker{root: root}
}

func (l *fileLocker) LockTask(taskID string) (func() error, error) {
	return lockFile(taskpath.TaskLockFile(l.root, taskID))
}

func (l *fileLocker) LockBoard() (func() error, error) {
	return lockFile(taskpath.BoardLockFile(l.root))
}

// lockFile acquires an exclusive file lock (LOCK_EX) on the given file path.
// It returns an unlock function that must be called to release the lock.
func lockFile(path string) (unlock func() error, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600) //nolint:gosec // G304: lock path built from the managed data directory
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("acquiring file lock: %w", err)
	}

	return func() error {
		defer f.Close()
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}
