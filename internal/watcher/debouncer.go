package watcher

import (
	"sync"
	"time"
)

// coalescer holds back events until the repository has been quiet for
// delay, then hands them over as one batch. At most one source event and
// one index event are pending: a newer source event replaces the older one,
// and index-ready and index-busy cancel into whichever came last.
// Batches are ordered index state first, so consumers see readiness before
// deciding whether a rescan can run.
type coalescer struct {
	delay time.Duration
	emit  func([]Event)

	mu      sync.Mutex
	timer   *time.Timer
	sources *Event
	index   *Event
}

func newCoalescer(delay time.Duration, emit func([]Event)) *coalescer {
	return &coalescer{delay: delay, emit: emit}
}

// Add records e and restarts the quiet period.
func (c *coalescer) Add(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e.Type {
	case EventSourcesChanged:
		c.sources = &e
	case EventIndexReady, EventIndexBusy:
		c.index = &e
	default:
		return
	}

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.delay, c.fire)
}

// take empties the pending set and returns it in emit order.
func (c *coalescer) take() []Event {
	var batch []Event
	if c.index != nil {
		batch = append(batch, *c.index)
	}
	if c.sources != nil {
		batch = append(batch, *c.sources)
	}
	c.index, c.sources = nil, nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	return batch
}

func (c *coalescer) fire() {
	c.mu.Lock()
	batch := c.take()
	c.mu.Unlock()

	if len(batch) > 0 && c.emit != nil {
		c.emit(batch)
	}
}

// Flush emits pending events now instead of waiting out the delay.
func (c *coalescer) Flush() { c.fire() }

// Cancel discards pending events.
func (c *coalescer) Cancel() {
	c.mu.Lock()
	c.take()
	c.mu.Unlock()
}

// Pending reports how many events the next batch would carry.
func (c *coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	if c.sources != nil {
		n++
	}
	if c.index != nil {
		n++
	}
	return n
}
