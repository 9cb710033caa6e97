package app

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.trai.ch/purl2notices/internal/adapters/watcher" //nolint:depguard // Wired in app layer
	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/zerr"
)

const defaultDebounceWindow = watcher.DefaultDebounceWindow

// WithDebounceWindow sets how long Watch waits for file events to settle.
func (a *App) WithDebounceWindow(d time.Duration) *App {
	a.debounceWindow = d
	return a
}

// Watch generates once and then regenerates whenever the cache file or the input file
// changes on disk. Writes that leave the content unchanged, such as the cache written by
// the run itself, are ignored. Watch returns when ctx is done.
func (a *App) Watch(ctx context.Context, opts GenerateOptions) error {
	if opts.Config == nil {
		cfg, err := a.LoadConfig("")
		if err != nil {
			return err
		}
		opts.Config = cfg
	}

	files, err := watchedFiles(opts)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.Join(domain.ErrInput, zerr.New("nothing to watch, enable the cache or pass an input file"))
	}

	fingerprints := make(map[string]string, len(files))
	generate := func() {
		if _, err := a.Generate(ctx, opts); err != nil && ctx.Err() == nil {
			a.logger.Error(err)
		}
		for _, f := range files {
			fp, err := a.hasher.Fingerprint(f)
			if err != nil {
				a.logger.Warn("failed to fingerprint " + f)
			}
			fingerprints[f] = fp
		}
	}

	generate()
	if ctx.Err() != nil {
		return nil
	}

	if err := a.watcher.Start(ctx, files...); err != nil {
		return err
	}
	defer func() {
		_ = a.watcher.Stop()
	}()

	changed := make(chan struct{}, 1)
	debouncer := watcher.NewDebouncer(a.debounceWindow, func(_ []string) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer debouncer.Stop()

	go func() {
		for event := range a.watcher.Events() {
			debouncer.Add(event.Path)
		}
	}()

	a.logger.Info("watching " + strings.Join(files, ", "))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			if !a.contentChanged(files, fingerprints) {
				continue
			}
			a.logger.Info("change detected, regenerating")
			generate()
		}
	}
}

func (a *App) contentChanged(files []string, fingerprints map[string]string) bool {
	for _, f := range files {
		fp, err := a.hasher.Fingerprint(f)
		if err != nil || fp != fingerprints[f] {
			return true
		}
	}
	return false
}

// watchedFiles returns the absolute paths of the input file and the cache file.
func watchedFiles(opts GenerateOptions) ([]string, error) {
	var candidates []string
	if opts.Input != "" && fileExists(opts.Input) {
		candidates = append(candidates, opts.Input)
	}
	if opts.Config.Cache.Enabled && opts.Config.Cache.Path != "" {
		candidates = append(candidates, opts.Config.Cache.Path)
	}

	var files []string
	for _, c := range candidates {
		abs, err := filepath.Abs(c)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to resolve watched file"), "path", c)
		}
		if !slices.Contains(files, abs) {
			files = append(files, abs)
		}
	}
	return files, nil
}
