package declindex

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"routemap/internal/endpoint"
	"routemap/internal/errors"
	"routemap/internal/index"
	"routemap/internal/paths"
	"routemap/internal/slogutil"
	"routemap/internal/storage"
)

// DefaultReadyPollInterval is how often OnIndexReady checks the index.
const DefaultReadyPollInterval = 2 * time.Second

// StoreOptions configures a StoreAdapter.
type StoreOptions struct {
	// ActiveProfiles is used when a query scope names no profiles.
	ActiveProfiles []string
	// PollInterval for OnIndexReady; DefaultReadyPollInterval when zero.
	PollInterval time.Duration
	Logger       *slog.Logger
}

// StoreAdapter serves the sqlite declaration index built by index.Builder.
type StoreAdapter struct {
	repoRoot string
	dir      string
	opts     StoreOptions
	reader   *DeployReader
	logger   *slog.Logger

	mu      sync.Mutex
	db      *storage.DB
	closing chan struct{}
	wg      sync.WaitGroup
}

var (
	_ Adapter      = (*StoreAdapter)(nil)
	_ ReadyWatcher = (*StoreAdapter)(nil)
)

// NewStoreAdapter creates an adapter for the index of repoRoot. The
// database is opened lazily on the first query against a ready index.
func NewStoreAdapter(repoRoot string, opts StoreOptions) *StoreAdapter {
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultReadyPollInterval
	}
	logger = logger.With(slogutil.ComponentKey, "declindex")
	return &StoreAdapter{
		repoRoot: repoRoot,
		dir:      paths.RepoDir(repoRoot),
		opts:     opts,
		reader:   NewDeployReader(logger),
		logger:   logger,
		closing:  make(chan struct{}),
	}
}

// IsIndexReady reports whether a completed index exists and no rebuild is running.
func (a *StoreAdapter) IsIndexReady(ctx context.Context) bool {
	return index.Ready(a.dir)
}

// QueryCandidates returns the stored declarations within scope.
func (a *StoreAdapter) QueryCandidates(ctx context.Context, scope endpoint.Scope) ([]endpoint.Declaration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	if !a.IsIndexReady(ctx) {
		return nil, errors.New(errors.IndexUnavailable, "Declaration index is not ready", nil, nil)
	}

	db, err := a.open()
	if err != nil {
		return nil, err
	}

	if len(scope.Modules) > 0 {
		if err := a.checkModules(db, scope.Modules); err != nil {
			return nil, err
		}
	}

	decls, err := storage.NewDeclarationRepository(db).List(scope.Modules)
	if err != nil {
		return nil, errors.New(errors.IndexUnavailable, "Failed to read declaration index", err, nil)
	}
	if len(scope.Paths) == 0 {
		return decls, nil
	}

	filtered := decls[:0]
	for _, d := range decls {
		if scope.Includes(d) {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

// ModuleConfig reads the Spring configuration files under the module root.
func (a *StoreAdapter) ModuleConfig(ctx context.Context, moduleID string, scope endpoint.Scope) (endpoint.DeployConfig, error) {
	if !a.IsIndexReady(ctx) {
		return endpoint.DeployConfig{}, errors.New(errors.IndexUnavailable, "Declaration index is not ready", nil, nil)
	}
	db, err := a.open()
	if err != nil {
		return endpoint.DeployConfig{}, err
	}

	m, err := storage.NewModuleRepository(db).GetByID(moduleID)
	if err != nil {
		return endpoint.DeployConfig{}, errors.New(errors.ConfigUnresolved, "Failed to look up module", err, nil)
	}
	if m == nil {
		return endpoint.DeployConfig{}, errors.New(errors.ConfigUnresolved, "Unknown module", nil, nil).
			WithDetails(map[string]string{"moduleId": moduleID})
	}

	profiles := scope.Profiles
	if len(profiles) == 0 {
		profiles = a.opts.ActiveProfiles
	}
	return a.reader.Read(ctx, paths.JoinRepoPath(a.repoRoot, m.RootPath), profiles)
}

// Modules lists the indexed modules ordered by root path.
func (a *StoreAdapter) Modules(ctx context.Context) ([]*storage.Module, error) {
	if !a.IsIndexReady(ctx) {
		return nil, errors.New(errors.IndexUnavailable, "Declaration index is not ready", nil, nil)
	}
	db, err := a.open()
	if err != nil {
		return nil, err
	}
	mods, err := storage.NewModuleRepository(db).ListAll()
	if err != nil {
		return nil, errors.New(errors.IndexUnavailable, "Failed to read declaration index", err, nil)
	}
	return mods, nil
}

// OnIndexReady polls readiness and calls fn once when the index is ready.
func (a *StoreAdapter) OnIndexReady(fn func()) (cancel func()) {
	stop := make(chan struct{})
	var once sync.Once
	cancel = func() { once.Do(func() { close(stop) }) }

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(a.opts.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-a.closing:
				return
			case <-ticker.C:
				if index.Ready(a.dir) {
					a.logger.Debug("Declaration index became ready")
					a.reset()
					fn()
					return
				}
			}
		}
	}()
	return cancel
}

// Close stops pending readiness hooks and closes the database.
func (a *StoreAdapter) Close() error {
	a.mu.Lock()
	select {
	case <-a.closing:
	default:
		close(a.closing)
	}
	a.mu.Unlock()
	a.wg.Wait()
	return a.reset()
}

func (a *StoreAdapter) open() (*storage.DB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db != nil {
		return a.db, nil
	}
	db, err := storage.Open(a.repoRoot, a.logger)
	if err != nil {
		return nil, errors.New(errors.IndexUnavailable, "Failed to open declaration index", err, nil)
	}
	a.db = db
	return db, nil
}

// reset drops the cached connection so the next query sees a rebuilt database.
func (a *StoreAdapter) reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *StoreAdapter) checkModules(db *storage.DB, ids []string) error {
	repo := storage.NewModuleRepository(db)
	for _, id := range ids {
		m, err := repo.GetByID(id)
		if err != nil {
			return errors.New(errors.IndexUnavailable, "Failed to read declaration index", err, nil)
		}
		if m == nil {
			return errors.New(errors.ScopeInvalid, "Scope names an unknown module", nil, nil).
				WithDetails(map[string]string{"moduleId": id})
		}
	}
	return nil
}

func validateScope(scope endpoint.Scope) error {
	for _, p := range scope.Paths {
		clean := path.Clean(strings.ReplaceAll(p, "\\", "/"))
		if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			return errors.New(errors.ScopeInvalid, "Scope paths must be relative to the repository", nil, nil).
				WithDetails(map[string]string{"path": p})
		}
	}
	return nil
}
