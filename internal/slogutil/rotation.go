package slogutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var sizePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(B|KB|MB|GB)?$`)

// RotatingFile is an append-only log file that rolls over to path.1, path.2, ...
// once it would grow beyond maxSize bytes. A maxSize of 0 disables rotation.
type RotatingFile struct {
	path       string
	maxSize    int64
	maxBackups int

	mu   sync.Mutex
	file *os.File
	size int64
}

// OpenRotatingFile opens (or creates) path for appending.
func OpenRotatingFile(path string, maxSize int64, maxBackups int) (*RotatingFile, error) {
	rf := &RotatingFile{
		path:       path,
		maxSize:    maxSize,
		maxBackups: maxBackups,
	}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (r *RotatingFile) open() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}

	r.file = f
	r.size = info.Size()
	return nil
}

// Write implements io.Writer.
func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxSize > 0 && r.size+int64(len(p)) > r.maxSize {
		// A failed rotation still leaves a writable file behind.
		_ = r.rotate()
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// Close implements io.Closer.
func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// rotate shifts path.N-1 -> path.N, path -> path.1 and reopens path.
func (r *RotatingFile) rotate() error {
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			return err
		}
	}

	if r.maxBackups > 0 {
		_ = os.Remove(r.backupPath(r.maxBackups))
		for i := r.maxBackups - 1; i >= 1; i-- {
			if _, err := os.Stat(r.backupPath(i)); err == nil {
				_ = os.Rename(r.backupPath(i), r.backupPath(i+1))
			}
		}
		_ = os.Rename(r.path, r.backupPath(1))
	} else {
		_ = os.Remove(r.path)
	}

	r.size = 0
	return r.open()
}

func (r *RotatingFile) backupPath(n int) string {
	return fmt.Sprintf("%s.%d", r.path, n)
}

// ParseSize parses sizes like "10MB", "512KB" or "100" into bytes.
// Returns 0 for empty or invalid input.
func ParseSize(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0
	}

	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}

	multiplier := 1.0
	switch m[2] {
	case "KB":
		multiplier = 1024
	case "MB":
		multiplier = 1024 * 1024
	case "GB":
		multiplier = 1024 * 1024 * 1024
	}

	return int64(value * multiplier)
}

// NewFileLoggerWithRotation creates a file logger that rotates at maxSize
// (e.g. "10MB"). An empty or invalid maxSize yields a plain append-only file.
func NewFileLoggerWithRotation(path string, level slog.Level, maxSize string, maxBackups int) (*slog.Logger, io.Closer, error) {
	size := ParseSize(maxSize)
	if size <= 0 {
		return NewFileLogger(path, level)
	}

	rf, err := OpenRotatingFile(path, size, maxBackups)
	if err != nil {
		return nil, nil, err
	}
	return NewLogger(rf, level), rf, nil
}
