// Package app implements the application layer for purl2notices.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.trai.ch/purl2notices/internal/adapters/linear"    //nolint:depguard // Wired in app layer
	"go.trai.ch/purl2notices/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/purl2notices/internal/build"
	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports"
	"go.trai.ch/purl2notices/internal/engine/aggregate"
	"go.trai.ch/purl2notices/internal/engine/intake"
	"go.trai.ch/purl2notices/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	store        ports.CacheStore
	scanner      ports.DirectoryScanner
	toolchains   ports.ToolchainFactory
	renderer     ports.NoticeRenderer
	hasher       ports.Hasher
	watcher      ports.Watcher
	logger       ports.Logger

	stdout         io.Writer
	stderr         io.Writer
	now            func() time.Time
	debounceWindow time.Duration
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	store ports.CacheStore,
	scanner ports.DirectoryScanner,
	toolchains ports.ToolchainFactory,
	renderer ports.NoticeRenderer,
	hasher ports.Hasher,
	watcher ports.Watcher,
	log ports.Logger,
) *App {
	return &App{
		configLoader:   loader,
		store:          store,
		scanner:        scanner,
		toolchains:     toolchains,
		renderer:       renderer,
		hasher:         hasher,
		watcher:        watcher,
		logger:         log,
		stdout:         os.Stdout,
		stderr:         os.Stderr,
		now:            time.Now,
		debounceWindow: defaultDebounceWindow,
	}
}

// WithOutput replaces the writers used for the document and progress output.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithClock replaces the clock used for resolution timestamps.
func (a *App) WithClock(now func() time.Time) *App {
	a.now = now
	return a
}

// LoadConfig loads the configuration for the current directory. explicit overrides the
// file search.
func (a *App) LoadConfig(explicit string) (*domain.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to get working directory")
	}
	cfg, err := a.configLoader.Load(cwd, explicit)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	return cfg, nil
}

// GenerateOptions configures one run.
type GenerateOptions struct {
	// Config is the effective configuration. Nil loads it from the working directory.
	Config *domain.Config
	Input  string
	Mode   domain.InputMode
	// OutputPath is the document file. Empty or "-" writes to stdout.
	OutputPath string
	// Force re-resolves identifiers that are already cached.
	Force bool
	// Progress prints per-package progress to stderr.
	Progress bool
}

// Failure is one identifier that could not be resolved.
type Failure struct {
	Identifier string
	Error      string
}

// RunReport summarizes a run.
type RunReport struct {
	Mode         domain.InputMode
	Requested    int
	Resolved     int
	FromCache    int
	Failures     []Failure
	Unmapped     []intake.UnmappedFile
	Warnings     []string
	Changes      []domain.LicenseChange
	CachePath    string
	CacheWritten bool
	Model        *domain.PresentationModel
}

// Generate runs the pipeline: collect identifiers, load the cache, resolve what is missing,
// merge the fresh results into the cache and render the notices.
//
//nolint:cyclop,funlen // orchestration function
func (a *App) Generate(ctx context.Context, opts GenerateOptions) (*RunReport, error) {
	// 1. Configuration
	cfg := opts.Config
	if cfg == nil {
		loaded, err := a.LoadConfig("")
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Join(domain.ErrInput, err)
	}
	format, err := domain.ParseFormat(string(cfg.Output.Format))
	if err != nil {
		return nil, errors.Join(domain.ErrInput, err)
	}

	if cfg.General.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.General.RunTimeout)
		defer cancel()
	}

	tc, err := a.toolchains.New(cfg)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to set up collaborators")
	}
	if tc.Cleanup != nil {
		defer func() {
			if err := tc.Cleanup(); err != nil {
				a.logger.Warn(fmt.Sprintf("failed to remove downloads: %v", err))
			}
		}()
	}

	// 2. Input
	input, mode := opts.Input, opts.Mode
	if input == "" && cfg.Cache.Enabled && fileExists(cfg.Cache.Path) {
		a.logger.Info("no input given, regenerating from " + cfg.Cache.Path)
		input, mode = cfg.Cache.Path, domain.ModeCache
	}

	source := intake.NewSource(a.scanner, tc.Identifier, a.store, a.logger)
	in, err := source.Collect(ctx, intake.Request{
		Input: input,
		Mode:  mode,
		Scan: ports.ScanOptions{
			Recursive: cfg.Scanning.Recursive,
			MaxDepth:  cfg.Scanning.MaxDepth,
			Exclude:   cfg.Scanning.Exclude,
		},
		Parallelism: cfg.General.Parallel,
	})
	if err != nil {
		return nil, err
	}

	report := &RunReport{
		Mode:      in.Mode,
		Requested: len(in.Identifiers),
		Unmapped:  in.Unmapped,
		Warnings:  in.Warnings,
	}

	// 3. Load cache
	existing := &domain.Cache{}
	persist := cfg.Cache.Enabled
	switch {
	case in.Cache != nil:
		existing = in.Cache
		report.CachePath = in.CachePath
	case cfg.Cache.Enabled:
		existing, err = a.store.Load(cfg.Cache.Path)
		if err != nil {
			return report, err
		}
		report.CachePath = cfg.Cache.Path
	}

	// 4. Plan
	index := existing.Index()
	var pending []domain.PackageIdentifier
	for _, id := range in.Identifiers {
		if pos, ok := index[id.Key()]; ok && !opts.Force && existing.Entries[pos].Package.Status != domain.StatusFailed {
			report.FromCache++
			continue
		}
		pending = append(pending, id)
	}
	a.logger.Debug(fmt.Sprintf("%d identifier(s), %d cached, %d to resolve",
		len(in.Identifiers), report.FromCache, len(pending)))

	// 5. Resolve
	tracer, shutdown := a.tracer(opts.Progress)
	defer shutdown()

	sched := scheduler.NewScheduler(tc.Resolver, tc.Extractor, tc.Detector, tracer, a.logger).WithClock(a.now)
	batch, resolveErr := sched.Resolve(ctx, pending, scheduler.Options{
		Parallelism: cfg.General.Parallel,
		Timeout:     cfg.General.Timeout,
		Retries:     cfg.General.Retries,
		Backoff:     cfg.General.Backoff,
		GracePeriod: cfg.General.GracePeriod,
		Strict:      !cfg.General.ContinueOnError,
	})

	fresh := make(map[string]domain.ResolvedPackage, len(batch.Outcomes))
	var entries []domain.CacheEntry
	for _, o := range batch.Outcomes {
		if o.Err != nil {
			if errors.Is(o.Err, domain.ErrCancelled) {
				continue
			}
			report.Failures = append(report.Failures, Failure{Identifier: o.Identifier.Key(), Error: o.Package.Error})
			fresh[o.Identifier.Key()] = o.Package
			if cfg.Cache.CacheFailures {
				entries = append(entries, domain.NewCacheEntry(o.Package, build.Version))
			}
			continue
		}
		report.Resolved++
		fresh[o.Identifier.Key()] = o.Package
		entries = append(entries, domain.NewCacheEntry(o.Package, build.Version))
	}

	if errors.Is(resolveErr, domain.ErrBatchFailure) {
		a.logSummary(report)
		return report, resolveErr
	}

	// 6. Reconcile
	merged := existing
	if len(entries) > 0 {
		result := domain.Merge(*existing, entries)
		merged = &result.Cache
		report.Changes = result.Changes
		for _, c := range result.Changes {
			a.logger.Info(fmt.Sprintf("license of %s changed from [%s] to [%s]",
				c.Identifier.Key(), strings.Join(c.Previous, ", "), strings.Join(c.Current, ", ")))
		}
		if persist {
			if err := a.store.Save(report.CachePath, merged); err != nil {
				return report, err
			}
			report.CacheWritten = true
			a.logger.Debug(fmt.Sprintf("cache %s: %d replaced, %d added", report.CachePath, result.Replaced, result.Added))
		}
	}

	if resolveErr != nil {
		a.logSummary(report)
		return report, resolveErr
	}

	// 7. Aggregate
	packages := make([]domain.ResolvedPackage, 0, len(in.Identifiers))
	mergedIndex := merged.Index()
	for _, id := range in.Identifiers {
		if pkg, ok := fresh[id.Key()]; ok {
			packages = append(packages, pkg)
			continue
		}
		if pos, ok := mergedIndex[id.Key()]; ok {
			packages = append(packages, merged.Entries[pos].Package)
		}
	}

	model := aggregate.Build(packages, aggregate.OptionsFrom(cfg.Output, tc.Texts))
	report.Model = &model

	// 8. Render
	if err := a.render(&model, opts.OutputPath, ports.RenderOptions{
		Format:       format,
		TemplatePath: cfg.Output.Template,
	}); err != nil {
		return report, err
	}

	a.logSummary(report)
	return report, nil
}

func (a *App) render(model *domain.PresentationModel, path string, opts ports.RenderOptions) error {
	if path == "" || path == "-" {
		return a.renderer.Render(a.stdout, model, opts)
	}

	var buf bytes.Buffer
	if err := a.renderer.Render(&buf, model, opts); err != nil {
		return err
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrOutputWriteFailed.Error()), "path", path)
	}
	a.logger.Info("wrote notices to " + path)
	return nil
}

func (a *App) logSummary(r *RunReport) {
	a.logger.Info(fmt.Sprintf("%d resolved, %d from cache, %d failed, %d unmapped file(s)",
		r.Resolved, r.FromCache, len(r.Failures), len(r.Unmapped)))
	for _, f := range r.Failures {
		a.logger.Warn(fmt.Sprintf("failed to resolve %s: %s", f.Identifier, f.Error))
	}
	for _, u := range r.Unmapped {
		a.logger.Warn("could not identify " + u.Path)
	}
}

// tracer returns the tracer for one run and a function releasing it.
func (a *App) tracer(progress bool) (ports.Tracer, func()) {
	if !progress {
		return telemetry.NewNoOpTracer(), func() {}
	}
	tracer := telemetry.NewOTelTracer(domain.ToolName, linear.NewReporter(a.stderr))
	return tracer, func() {
		_ = tracer.Shutdown(context.Background())
	}
}

// CacheReport is the result of validating a cache file.
type CacheReport struct {
	Path  string
	Stats domain.CacheStats
}

// ValidateCache loads the cache at path, checks it against the cache schema and counts its
// entries.
func (a *App) ValidateCache(_ context.Context, path string) (*CacheReport, error) {
	if !fileExists(path) {
		return nil, errors.Join(domain.ErrInput, zerr.With(domain.ErrInputNotFound, "path", path))
	}

	cache, err := a.store.Load(path)
	if err != nil {
		return nil, err
	}

	stats := cache.Stats()
	a.logger.Info(fmt.Sprintf("%s is valid: %d entries, %d resolved, %d failed, %d skipped",
		path, stats.Entries, stats.Resolved, stats.Failed, stats.Skipped))
	if stats.WithoutLicense > 0 {
		a.logger.Warn(fmt.Sprintf("%d entries without license", stats.WithoutLicense))
	}
	if stats.WithoutCopyright > 0 {
		a.logger.Warn(fmt.Sprintf("%d entries without copyright", stats.WithoutCopyright))
	}
	return &CacheReport{Path: path, Stats: stats}, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// writeFileAtomic writes data to a temp file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, ".notices-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()

	// Clean up temp file on error
	defer func() {
		if _, err := os.Stat(tmpName); err == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
