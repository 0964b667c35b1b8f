package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const lockFile = "index.lock"

// Lock is held by an index build for its whole run. While it is held the
// declaration index reports not ready.
type Lock struct {
	path string
	file *os.File
}

// Holder identifies the build that holds the lock.
type Holder struct {
	PID   int       `json:"pid"`
	Since time.Time `json:"since"`
}

func (h Holder) String() string {
	if h.Since.IsZero() {
		return fmt.Sprintf("PID %d", h.PID)
	}
	return fmt.Sprintf("PID %d since %s", h.PID, h.Since.Format(time.RFC3339))
}

// LockedError is returned by AcquireLock when another build is running.
type LockedError struct {
	Path   string
	Holder *Holder
}

func (e *LockedError) Error() string {
	msg := "index is locked by another routemap index run"
	if e.Holder != nil {
		msg += " (" + e.Holder.String() + ")"
	}
	return msg
}

// AcquireLock takes the index lock in dir, creating dir if needed.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating .routemap directory: %w", err)
	}
	path := filepath.Join(dir, lockFile)

	file, err := tryLock(path)
	if err != nil {
		return nil, err
	}

	holder := Holder{PID: os.Getpid(), Since: time.Now().UTC()}
	if err := writeHolder(file, holder); err != nil {
		release(file, path)
		return nil, fmt.Errorf("recording lock holder: %w", err)
	}
	return &Lock{path: path, file: file}, nil
}

// Release drops the lock and removes the lock file. Safe on a nil Lock.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	release(l.file, l.path)
	l.file = nil
}

// IsLocked reports whether a build currently holds the lock in dir.
func IsLocked(dir string) bool {
	return probe(filepath.Join(dir, lockFile))
}

// LockHolder returns the running build, or nil when dir is not locked.
func LockHolder(dir string) *Holder {
	path := filepath.Join(dir, lockFile)
	if !probe(path) {
		return nil
	}
	return readHolder(path)
}

// The lock file holds "<pid> <RFC3339 start>". Files written by older
// builds carry only the PID.
func writeHolder(f *os.File, h Holder) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err := fmt.Fprintf(f, "%d %s", h.PID, h.Since.Format(time.RFC3339))
	return err
}

func readHolder(path string) *Holder {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return nil
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil
	}
	h := &Holder{PID: pid}
	if len(fields) > 1 {
		h.Since, _ = time.Parse(time.RFC3339, fields[1])
	}
	return h
}
