package index

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"routemap/internal/config"
	"routemap/internal/endpoint"
	"routemap/internal/errors"
	"routemap/internal/extract"
	"routemap/internal/modules"
	"routemap/internal/paths"
	"routemap/internal/repostate"
	"routemap/internal/slogutil"
	"routemap/internal/storage"
)

// FileExtractor turns one source file into declarations.
type FileExtractor interface {
	ExtractFile(ctx context.Context, absPath, relPath string) ([]endpoint.Declaration, error)
}

// Builder rebuilds the declaration index of one repository.
type Builder struct {
	repoRoot     string
	cfg          *config.Config
	logger       *slog.Logger
	newExtractor func() FileExtractor
}

// NewBuilder creates a builder using tree-sitter extraction.
func NewBuilder(repoRoot string, cfg *config.Config, logger *slog.Logger) *Builder {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Builder{
		repoRoot:     repoRoot,
		cfg:          cfg,
		logger:       logger.With(slogutil.ComponentKey, "index"),
		newExtractor: func() FileExtractor { return extract.NewExtractor() },
	}
}

// WithExtractor replaces the extractor factory. Each worker gets its own extractor.
func (b *Builder) WithExtractor(fn func() FileExtractor) *Builder {
	b.newExtractor = fn
	return b
}

type sourceFile struct {
	abs string
	rel string
}

type fileResult struct {
	decls []endpoint.Declaration
	err   error
}

// Build detects modules, extracts declarations from every source file and
// swaps the stored index. The index lock is held for the whole run, so the
// index reports not ready until Build returns.
func (b *Builder) Build(ctx context.Context) (*IndexMeta, error) {
	start := time.Now()
	dir, err := paths.EnsureRepoDir(b.repoRoot)
	if err != nil {
		return nil, fmt.Errorf("creating .routemap directory: %w", err)
	}

	lock, err := AcquireLock(dir)
	if err != nil {
		return nil, errors.New(errors.IndexUnavailable, "Index is being rebuilt", err, nil)
	}
	defer lock.Release()

	state, err := repostate.Compute(ctx, b.repoRoot, b.cfg.Scan.ExcludeDirs)
	if err != nil {
		b.logger.Warn("Could not compute repository state", "error", err.Error())
		state = &repostate.RepoState{}
	}

	mods, method, err := b.detectModules(state.RepoStateID)
	if err != nil {
		return nil, err
	}

	files, err := b.collectFiles()
	if err != nil {
		return nil, fmt.Errorf("walking sources: %w", err)
	}
	b.logger.Info("Indexing sources",
		"modules", len(mods),
		"files", len(files),
		"detection", method,
	)

	results, err := b.extractAll(ctx, files)
	if err != nil {
		return nil, err
	}

	var (
		decls  []endpoint.Declaration
		failed int
	)
	for i, r := range results {
		if r.err != nil {
			failed++
			b.logger.Warn("Failed to extract declarations", "file", files[i].rel, "error", r.err.Error())
			continue
		}
		for _, d := range r.decls {
			owner := modules.Owner(mods, d.File)
			if owner == nil {
				b.logger.Debug("Declaration outside every module", "file", d.File)
				continue
			}
			d.ModuleID = owner.ID
			d.ModuleName = owner.Name
			d.ModuleRoot = owner.RootPath
			decls = append(decls, d)
		}
	}

	db, err := storage.Open(b.repoRoot, b.logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := storage.NewDeclarationRepository(db).ReplaceAll(toStorageModules(mods), decls); err != nil {
		return nil, fmt.Errorf("storing declarations: %w", err)
	}

	meta := &IndexMeta{
		CreatedAt:        time.Now().UTC(),
		CommitHash:       state.HeadCommit,
		RepoStateID:      state.RepoStateID,
		ModuleCount:      len(mods),
		FileCount:        len(files),
		DeclarationCount: len(decls),
		FailedFiles:      failed,
		Duration:         time.Since(start).Round(time.Millisecond).String(),
		DetectionMethod:  method,
	}
	if err := meta.Save(dir); err != nil {
		return nil, err
	}

	b.logger.Info("Index built",
		"declarations", len(decls),
		"failedFiles", failed,
		"duration", meta.Duration,
	)
	return meta, nil
}

// detectModules prefers declared modules and falls back to detection.
func (b *Builder) detectModules(stateID string) ([]*modules.Module, string, error) {
	declared, err := modules.LoadDeclaredModules(b.repoRoot, b.cfg.Modules.DeclarationFile, stateID)
	if err != nil {
		return nil, "", err
	}
	if len(declared) > 0 {
		return declared, "declared", nil
	}

	result, err := modules.DetectModules(b.repoRoot, nil, b.cfg.Modules.Ignore, stateID, b.logger)
	if err != nil {
		return nil, "", fmt.Errorf("detecting modules: %w", err)
	}
	return result.Modules, result.DetectionMethod, nil
}

// collectFiles lists enabled source files in lexical order.
func (b *Builder) collectFiles() ([]sourceFile, error) {
	exclude := make(map[string]bool, len(b.cfg.Scan.ExcludeDirs))
	for _, d := range b.cfg.Scan.ExcludeDirs {
		exclude[d] = true
	}

	var files []sourceFile
	err := filepath.WalkDir(b.repoRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != b.repoRoot && (strings.HasPrefix(d.Name(), ".") || exclude[d.Name()]) {
				return filepath.SkipDir
			}
			return nil
		}

		lang, ok := extract.LanguageFromPath(d.Name())
		if !ok || !extract.Enabled(lang, b.cfg.Scan.Languages) {
			return nil
		}
		if limit := b.cfg.Scan.MaxFileSizeBytes; limit > 0 {
			info, err := d.Info()
			if err != nil {
				return err
			}
			if info.Size() > limit {
				b.logger.Debug("Skipping large file", "path", path, "size", info.Size())
				return nil
			}
		}

		rel, err := paths.CanonicalizePath(path, b.repoRoot)
		if err != nil {
			return err
		}
		files = append(files, sourceFile{abs: path, rel: rel})
		return nil
	})
	return files, err
}

// extractAll parses files in parallel. Results keep the order of files.
func (b *Builder) extractAll(ctx context.Context, files []sourceFile) ([]fileResult, error) {
	results := make([]fileResult, len(files))
	if len(files) == 0 {
		return results, nil
	}

	workers := b.cfg.Scan.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Extractors are not safe for concurrent use; each goroutine borrows one.
	pool := sync.Pool{New: func() any { return b.newExtractor() }}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ex := pool.Get().(FileExtractor)
			defer pool.Put(ex)

			decls, err := ex.ExtractFile(gctx, f.abs, f.rel)
			if err == extract.ErrNoCGO {
				return err
			}
			results[i] = fileResult{decls: decls, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func toStorageModules(mods []*modules.Module) []*storage.Module {
	out := make([]*storage.Module, 0, len(mods))
	for _, m := range mods {
		detected, err := time.Parse(time.RFC3339, m.DetectedAt)
		if err != nil {
			detected = time.Now().UTC()
		}
		var manifest *string
		if m.ManifestType != modules.ManifestNone {
			mt := m.ManifestType
			manifest = &mt
		}
		out = append(out, &storage.Module{
			ModuleID:     m.ID,
			Name:         m.Name,
			RootPath:     m.RootPath,
			ManifestType: manifest,
			DetectedAt:   detected,
			StateID:      m.StateId,
		})
	}
	return out
}
