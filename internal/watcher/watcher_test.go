package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"routemap/internal/config"
	"routemap/internal/index"
	"routemap/internal/paths"
)

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventSourcesChanged, "sources-changed"},
		{EventIndexReady, "index-ready"},
		{EventIndexBusy, "index-busy"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.eventType.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Watch.PollIntervalMs = 250
	cfg.Watch.DebounceMs = 40

	wc := ConfigFrom(cfg)
	if wc.PollInterval != 250*time.Millisecond || wc.DebounceMs != 40 {
		t.Errorf("ConfigFrom = %+v", wc)
	}
	if len(wc.ExcludeDirs) == 0 {
		t.Error("ExcludeDirs should come from scan config")
	}
}

// recorder collects handler batches.
type recorder struct {
	mu      sync.Mutex
	batches [][]Event
}

func (r *recorder) handle(events []Event) {
	r.mu.Lock()
	r.batches = append(r.batches, events)
	r.mu.Unlock()
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []EventType
	for _, b := range r.batches {
		for _, e := range b {
			out = append(out, e.Type)
		}
	}
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherCheck(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "main", "java", "A.java"), "class A {}")

	rec := &recorder{}
	w := New(root, Config{DebounceMs: 10, PollInterval: time.Hour}, nil, rec.handle)
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	// Nothing changed yet.
	w.check()
	w.pending.Flush()
	if got := rec.types(); len(got) != 0 {
		t.Fatalf("unexpected events %v", got)
	}

	// Untracked file types are ignored.
	writeFile(t, filepath.Join(root, "README.md"), "docs")
	w.check()
	w.pending.Flush()
	if got := rec.types(); len(got) != 0 {
		t.Fatalf("README change produced %v", got)
	}

	writeFile(t, filepath.Join(root, "src", "main", "java", "B.java"), "class B {}")
	meta := &index.IndexMeta{CreatedAt: time.Now()}
	if err := meta.Save(paths.RepoDir(root)); err != nil {
		t.Fatal(err)
	}
	w.check()
	w.pending.Flush()

	got := rec.types()
	if len(got) != 2 || got[0] != EventIndexReady || got[1] != EventSourcesChanged {
		t.Errorf("events = %v, want [index-ready sources-changed]", got)
	}
}

func TestWatcherPolls(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	w := New(root, Config{DebounceMs: 5, PollInterval: 10 * time.Millisecond}, nil, rec.handle)
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	writeFile(t, filepath.Join(root, "app", "pom.xml"), "<project/>")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(rec.types()) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	got := rec.types()
	if len(got) != 1 || got[0] != EventSourcesChanged {
		t.Errorf("events = %v, want one sources-changed", got)
	}
}

func TestWatcherStopWithoutStart(t *testing.T) {
	w := New(t.TempDir(), Config{}, nil, nil)
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestCoalescer(t *testing.T) {
	tests := []struct {
		name  string
		add   []Event
		want  []EventType
		delta string
	}{
		{
			name: "latest source change wins",
			add:  []Event{{Type: EventSourcesChanged, Detail: "a"}, {Type: EventSourcesChanged, Detail: "b"}},
			want: []EventType{EventSourcesChanged}, delta: "b",
		},
		{
			name: "busy then ready collapses to ready",
			add:  []Event{{Type: EventIndexBusy}, {Type: EventIndexReady}},
			want: []EventType{EventIndexReady},
		},
		{
			name: "index state leads the batch",
			add:  []Event{{Type: EventSourcesChanged, Detail: "x"}, {Type: EventIndexBusy}},
			want: []EventType{EventIndexBusy, EventSourcesChanged}, delta: "x",
		},
		{
			name: "unknown types are ignored",
			add:  []Event{{Type: EventType(99)}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []Event
			c := newCoalescer(time.Hour, func(events []Event) { got = events })
			for _, e := range tt.add {
				c.Add(e)
			}
			if c.Pending() != len(tt.want) {
				t.Errorf("Pending() = %d, want %d", c.Pending(), len(tt.want))
			}
			c.Flush()

			if len(got) != len(tt.want) {
				t.Fatalf("batch = %v", got)
			}
			for i, typ := range tt.want {
				if got[i].Type != typ {
					t.Errorf("batch[%d] = %s, want %s", i, got[i].Type, typ)
				}
				if typ == EventSourcesChanged && got[i].Detail != tt.delta {
					t.Errorf("Detail = %q, want %q", got[i].Detail, tt.delta)
				}
			}
			if c.Pending() != 0 {
				t.Error("flush left events pending")
			}
		})
	}
}

func TestCoalescerQuietPeriod(t *testing.T) {
	var mu sync.Mutex
	var batches int
	c := newCoalescer(40*time.Millisecond, func([]Event) {
		mu.Lock()
		batches++
		mu.Unlock()
	})

	for i := 0; i < 3; i++ {
		c.Add(Event{Type: EventSourcesChanged})
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(120 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if batches != 1 {
		t.Errorf("batches = %d, want 1", batches)
	}
}

func TestCoalescerCancel(t *testing.T) {
	var mu sync.Mutex
	var called bool
	c := newCoalescer(30*time.Millisecond, func([]Event) {
		mu.Lock()
		called = true
		mu.Unlock()
	})
	c.Add(Event{Type: EventIndexReady})
	c.Cancel()
	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if called || c.Pending() != 0 {
		t.Errorf("called = %v, pending = %d after cancel", called, c.Pending())
	}
}
