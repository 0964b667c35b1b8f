package slogutil

import (
	"io"
	"log/slog"
	"os"

	"routemap/internal/config"
	"routemap/internal/paths"
)

// LoggerFactory builds the process logger from config and CLI flags.
// Precedence for the level: CLI flag > config > info.
type LoggerFactory struct {
	repoRoot string
	config   config.LoggingConfig
	cliLevel *slog.Level
	stderr   io.Writer
	closers  []io.Closer
}

// NewLoggerFactory creates a factory. cliLevel is nil when no -v/-q flag was given.
func NewLoggerFactory(repoRoot string, cfg config.LoggingConfig, cliLevel *slog.Level) *LoggerFactory {
	return &LoggerFactory{
		repoRoot: repoRoot,
		config:   cfg,
		cliLevel: cliLevel,
		stderr:   os.Stderr,
	}
}

// Logger returns a logger writing to stderr and, when logging.file is set,
// to the rotating .routemap/logs/routemap.log as well.
func (f *LoggerFactory) Logger() *slog.Logger {
	level := f.level()

	console := NewHandler(f.stderr, f.config.Format, level)

	if !f.config.File || f.repoRoot == "" {
		return slog.New(console)
	}

	logPath, err := paths.LogPath(f.repoRoot)
	if err != nil {
		return slog.New(console)
	}

	// The file always records at least info so watch sessions leave a trail.
	fileLevel := level
	if fileLevel > slog.LevelInfo {
		fileLevel = slog.LevelInfo
	}
	fileLogger, closer, err := NewFileLoggerWithRotation(logPath, fileLevel, f.config.MaxSize, f.config.MaxBackups)
	if err != nil {
		return slog.New(console)
	}
	f.closers = append(f.closers, closer)

	return slog.New(NewTeeHandler(console, fileLogger.Handler()))
}

func (f *LoggerFactory) level() slog.Level {
	if f.cliLevel != nil {
		return *f.cliLevel
	}
	if f.config.Level != "" {
		return LevelFromString(f.config.Level)
	}
	return slog.LevelInfo
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
