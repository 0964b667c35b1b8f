//go:build !windows

package index

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

// Contention shorter than this is a status probe or a release in
// progress, not a running build.
const (
	lockAttempts = 5
	lockBackoff  = 20 * time.Millisecond
)

// tryLock opens path and takes an exclusive flock on it. A crashed build
// leaves the file behind but not the flock.
func tryLock(path string) (*os.File, error) {
	for attempt := 1; ; attempt++ {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening lock file: %w", err)
		}
		if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
			_ = file.Close()
			if attempt < lockAttempts {
				time.Sleep(lockBackoff)
				continue
			}
			return nil, &LockedError{Path: path, Holder: readHolder(path)}
		}
		// The previous holder may have removed the file between our open and
		// flock, leaving us locking an orphaned inode.
		if sameFile(file, path) {
			return file, nil
		}
		unlock(file)
		_ = file.Close()
	}
}

func sameFile(f *os.File, path string) bool {
	held, err := f.Stat()
	if err != nil {
		return false
	}
	onDisk, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(held, onDisk)
}

// release removes the file before unlocking: a waiter that flocks the old
// inode afterwards sees it is no longer at path and starts over.
func release(f *os.File, path string) {
	_ = os.Remove(path)
	unlock(f)
	_ = f.Close()
}

func unlock(f *os.File) {
	_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}

func probe(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_SH|syscall.LOCK_NB); err != nil {
		return true
	}
	unlock(file)
	return false
}
