//go:build !windows

package storage

import (
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// FileLock is an advisory cross-process lock on a sibling ".lock" file,
// taken with flock(2).
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a lock guarding path. Nothing is acquired until Lock.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path + ".lock"}
}

// Lock acquires an exclusive lock, polling until timeout elapses.
// Returns ErrLockTimeout if another process holds it for the whole period.
// The directory of the lock file is created if missing.
func (l *FileLock) Lock(timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return &StorageError{Op: "lock", Entity: "master list", ID: l.path, Err: err}
	}
	var err error
	l.file, err = os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return &StorageError{Op: "lock", Entity: "master list", ID: l.path, Err: err}
	}

	deadline := time.Now().Add(timeout)
	for {
		err = syscall.Flock(int(l.file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return nil
		}
		if !time.Now().Before(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	l.file.Close()
	l.file = nil
	return &StorageError{Op: "lock", Entity: "master list", ID: l.path, Err: ErrLockTimeout}
}

// Unlock releases the lock. Calling it on an unlocked FileLock is a no-op.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	return err
}
