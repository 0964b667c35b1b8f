// Package watcher polls a repository for source changes and declaration
// index readiness.
package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"routemap/internal/config"
	"routemap/internal/index"
	"routemap/internal/paths"
	"routemap/internal/repostate"
	"routemap/internal/slogutil"
)

// EventType represents the type of change observed
type EventType int

const (
	// EventSourcesChanged means a Java/Kotlin source or a build or
	// application config file changed.
	EventSourcesChanged EventType = iota
	// EventIndexReady means a completed index is now available.
	EventIndexReady
	// EventIndexBusy means the index became unavailable (rebuild running).
	EventIndexBusy
)

// Event represents one observed change
type Event struct {
	Type      EventType
	Detail    string
	Timestamp time.Time
}

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventSourcesChanged:
		return "sources-changed"
	case EventIndexReady:
		return "index-ready"
	case EventIndexBusy:
		return "index-busy"
	default:
		return "unknown"
	}
}

// ChangeHandler is called with each debounced batch of events
type ChangeHandler func(events []Event)

// Config contains watcher configuration
type Config struct {
	DebounceMs   int
	PollInterval time.Duration
	ExcludeDirs  []string
}

// ConfigFrom derives watcher settings from the project config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		DebounceMs:   cfg.Watch.DebounceMs,
		PollInterval: time.Duration(cfg.Watch.PollIntervalMs) * time.Millisecond,
		ExcludeDirs:  cfg.Scan.ExcludeDirs,
	}
}

// Watcher polls one repository.
type Watcher struct {
	repoRoot  string
	indexDir  string
	config    Config
	logger    *slog.Logger
	handler   ChangeHandler
	pending   *coalescer

	mu          sync.Mutex
	fingerprint string
	indexReady  bool
	started     bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher for repoRoot. Nothing is polled until Start.
func New(repoRoot string, cfg Config, logger *slog.Logger, handler ChangeHandler) *Watcher {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	w := &Watcher{
		repoRoot: repoRoot,
		indexDir: paths.RepoDir(repoRoot),
		config:   cfg,
		logger:   logger.With(slogutil.ComponentKey, "watcher"),
		handler:  handler,
		ctx:      ctx,
		cancel:   cancel,
	}
	w.pending = newCoalescer(time.Duration(cfg.DebounceMs)*time.Millisecond, w.emit)
	return w
}

// Start records the current state as the baseline and begins polling.
func (w *Watcher) Start() error {
	fp, err := repostate.Fingerprint(w.repoRoot, w.config.ExcludeDirs)
	if err != nil {
		return err
	}

	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.fingerprint = fp
	w.indexReady = index.Ready(w.indexDir)
	w.mu.Unlock()

	w.logger.Info("Starting watcher",
		"repo", w.repoRoot,
		"pollInterval", w.config.PollInterval.String(),
		"debounceMs", w.config.DebounceMs,
	)

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop stops polling and drops undelivered events.
func (w *Watcher) Stop() error {
	w.cancel()
	w.wg.Wait()
	w.pending.Cancel()
	w.logger.Debug("Watcher stopped")
	return nil
}

// Using polling instead of fsnotify for simplicity and cross-platform compatibility
func (w *Watcher) loop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-w.ctx.Done():
			return
		}
	}
}

// check compares the repository with the last observed state.
func (w *Watcher) check() {
	now := time.Now()

	fp, err := repostate.Fingerprint(w.repoRoot, w.config.ExcludeDirs)
	if err != nil {
		w.logger.Warn("Failed to fingerprint sources", "error", err.Error())
	}
	ready := index.Ready(w.indexDir)

	w.mu.Lock()
	var events []Event
	if err == nil && fp != w.fingerprint {
		w.fingerprint = fp
		events = append(events, Event{Type: EventSourcesChanged, Detail: fp, Timestamp: now})
	}
	if ready != w.indexReady {
		w.indexReady = ready
		typ := EventIndexBusy
		if ready {
			typ = EventIndexReady
		}
		events = append(events, Event{Type: typ, Timestamp: now})
	}
	w.mu.Unlock()

	for _, e := range events {
		w.pending.Add(e)
	}
}

func (w *Watcher) emit(events []Event) {
	if w.ctx.Err() != nil {
		return
	}
	w.logger.Debug("Changes detected", "eventCount", len(events))
	if w.handler != nil {
		w.handler(events)
	}
}
