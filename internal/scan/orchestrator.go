// Package scan runs endpoint discovery passes and publishes their results.
//
// An Orchestrator owns a single worker goroutine. Triggers are coalesced:
// a request that arrives while a pass is running queues exactly one
// follow-up pass, so the index is never queried by two passes at once.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"routemap/internal/aggregate"
	"routemap/internal/declindex"
	"routemap/internal/endpoint"
	"routemap/internal/errors"
	"routemap/internal/slogutil"
)

// State of an Orchestrator.
type State int32

const (
	Idle State = iota
	Scanning
	Ready
	Blocked
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Ready:
		return "ready"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Subscriber receives every published snapshot. It runs on the worker
// goroutine and must not block for long.
type Subscriber func(*endpoint.ScanResult)

// Notifier is told when a pass finds the index unavailable. It is called
// once per blocked episode, not once per pass.
type Notifier func(err error)

// Options configures an Orchestrator.
type Options struct {
	Scope    endpoint.Scope
	Notifier Notifier
	Logger   *slog.Logger
}

// Stats counts passes by outcome.
type Stats struct {
	Passes    int64 `json:"passes"`
	Published int64 `json:"published"`
	Blocked   int64 `json:"blocked"`
	Failed    int64 `json:"failed"`
}

// Orchestrator coordinates scan passes against a declaration index.
type Orchestrator struct {
	adapter    declindex.Adapter
	aggregator *aggregate.Aggregator
	scope      endpoint.Scope
	notify     Notifier
	logger     *slog.Logger

	state   atomic.Int32
	current atomic.Pointer[endpoint.ScanResult]

	// trigger holds at most one pending pass.
	trigger chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup

	mu          sync.Mutex
	outstanding int           // queued plus running passes
	idle        chan struct{} // closed when outstanding drops to zero
	closed      bool
	subs        map[int]Subscriber
	nextSub     int
	notified    bool
	resumeArmed bool
	resumeGen   int
	resume      func()
	lastErr     error

	passes    atomic.Int64
	published atomic.Int64
	blocked   atomic.Int64
	failed    atomic.Int64
}

// New creates an Orchestrator in the Idle state and starts its worker.
// No pass runs until RequestRescan or IndexReady is called.
func New(adapter declindex.Adapter, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	logger = logger.With(slogutil.ComponentKey, "scan")

	idle := make(chan struct{})
	close(idle)

	o := &Orchestrator{
		adapter:    adapter,
		aggregator: aggregate.New(logger),
		scope:      opts.Scope,
		notify:     opts.Notifier,
		logger:     logger,
		trigger:    make(chan struct{}, 1),
		done:       make(chan struct{}),
		idle:       idle,
		subs:       make(map[int]Subscriber),
	}
	o.state.Store(int32(Idle))

	o.wg.Add(1)
	go o.worker()
	return o
}

// RequestRescan asks for a pass. It never blocks; while a pass is running
// any number of requests collapse into one follow-up pass.
func (o *Orchestrator) RequestRescan() {
	o.enqueue("manual")
}

// IndexReady signals that the index became available.
func (o *Orchestrator) IndexReady() {
	o.enqueue("index-ready")
}

func (o *Orchestrator) enqueue(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	select {
	case o.trigger <- struct{}{}:
		if o.outstanding == 0 {
			o.idle = make(chan struct{})
		}
		o.outstanding++
		o.logger.Debug("Scan requested", "reason", reason)
	default:
		o.logger.Debug("Scan already pending", "reason", reason)
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Current returns the latest published snapshot, or nil before the first
// successful pass. Snapshots are never mutated after publication.
func (o *Orchestrator) Current() *endpoint.ScanResult {
	return o.current.Load()
}

// Stats returns pass counters.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		Passes:    o.passes.Load(),
		Published: o.published.Load(),
		Blocked:   o.blocked.Load(),
		Failed:    o.failed.Load(),
	}
}

// Err returns the error of the most recent pass, or nil if it published.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Subscribe registers fn for future snapshots and returns a function that
// removes it.
func (o *Orchestrator) Subscribe(fn Subscriber) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

// Wait blocks until no pass is running or queued.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	idle := o.idle
	o.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker after any running pass finishes and disarms the
// resume hook. Later triggers are ignored.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	close(o.done)
	o.mu.Unlock()

	o.wg.Wait()

	o.mu.Lock()
	o.disarmLocked()
	if o.outstanding > 0 {
		o.outstanding = 0
		close(o.idle)
	}
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for {
		select {
		case <-o.done:
			return
		case <-o.trigger:
			o.runPass(context.Background())

			o.mu.Lock()
			if o.outstanding > 0 {
				o.outstanding--
				if o.outstanding == 0 {
					close(o.idle)
				}
			}
			o.mu.Unlock()
		}
	}
}

func (o *Orchestrator) runPass(ctx context.Context) {
	start := time.Now()
	o.passes.Add(1)
	o.state.Store(int32(Scanning))

	defer func() {
		if r := recover(); r != nil {
			err := errors.New(errors.InternalError, fmt.Sprintf("scan pass panicked: %v", r), nil, nil)
			o.fail(err)
		}
	}()

	if !o.adapter.IsIndexReady(ctx) {
		o.block(errors.New(errors.IndexUnavailable, "Project is not indexed yet", nil, nil))
		return
	}

	decls, err := o.adapter.QueryCandidates(ctx, o.scope)
	if err != nil {
		if errors.HasCode(err, errors.IndexUnavailable) {
			o.block(err)
			return
		}
		o.fail(err)
		return
	}

	result := o.aggregator.Aggregate(decls)
	o.current.Store(result)
	o.state.Store(int32(Ready))
	o.published.Add(1)

	o.mu.Lock()
	o.notified = false
	o.lastErr = nil
	o.disarmLocked()
	subs := make([]Subscriber, 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()

	o.logger.Info("Scan completed",
		"endpoints", result.TotalCount,
		"modules", len(result.Groups),
		"skipped", result.Skipped,
		"duration", time.Since(start).String(),
	)

	for _, fn := range subs {
		fn(result)
	}
}

// fail keeps the previous snapshot and returns to the last stable state.
func (o *Orchestrator) fail(err error) {
	o.failed.Add(1)
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
	if o.current.Load() != nil {
		o.state.Store(int32(Ready))
	} else {
		o.state.Store(int32(Idle))
	}
	o.logger.Error("Scan failed", "error", err.Error())
}

func (o *Orchestrator) block(err error) {
	o.blocked.Add(1)
	o.state.Store(int32(Blocked))

	o.mu.Lock()
	first := !o.notified
	o.notified = true
	o.lastErr = err
	o.mu.Unlock()

	if first {
		o.logger.Warn("Declaration index unavailable, waiting for it to become ready", "error", err.Error())
		if o.notify != nil {
			o.notify(err)
		}
	} else {
		o.logger.Debug("Declaration index still unavailable")
	}

	o.armResume()
}

// armResume asks the adapter to call IndexReady once the index turns
// ready. Without a ReadyWatcher the orchestrator stays Blocked until the
// next manual trigger.
func (o *Orchestrator) armResume() {
	w, ok := o.adapter.(declindex.ReadyWatcher)
	if !ok {
		return
	}

	o.mu.Lock()
	if o.resumeArmed || o.closed {
		o.mu.Unlock()
		return
	}
	o.resumeArmed = true
	o.resumeGen++
	gen := o.resumeGen
	o.mu.Unlock()

	cancel := w.OnIndexReady(func() {
		o.mu.Lock()
		if o.resumeGen == gen {
			o.resumeArmed = false
			o.resume = nil
		}
		o.mu.Unlock()
		o.logger.Debug("Resuming after index became ready")
		o.IndexReady()
	})

	o.mu.Lock()
	if o.resumeArmed && o.resumeGen == gen {
		o.resume = cancel
	}
	o.mu.Unlock()
}

func (o *Orchestrator) disarmLocked() {
	if o.resume != nil {
		o.resume()
		o.resume = nil
	}
	o.resumeArmed = false
}
