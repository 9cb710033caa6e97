// Package purl2src resolves package identifiers to downloaded source archives.
package purl2src

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"go.trai.ch/purl2notices/internal/adapters/shell"
	"go.trai.ch/purl2notices/internal/adapters/toolout"
	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports"
	"go.trai.ch/zerr"
)

const toolName = "purl2src"

var _ ports.SourceResolver = (*Resolver)(nil)

// toolResult is one record printed by purl2src. Field names vary between releases.
type toolResult struct {
	DownloadURL   string `json:"download_url"`
	URL           string `json:"url"`
	RepositoryURL string `json:"repository_url"`
	VCSURL        string `json:"vcs_url"`
	HomepageURL   string `json:"homepage_url"`
	Homepage      string `json:"homepage"`
	Error         string `json:"error"`
}

// Resolver implements ports.SourceResolver. It asks purl2src for the download URL and
// falls back to the built-in registry layouts when the tool is not installed.
type Resolver struct {
	runner     ports.CommandRunner
	command    []string
	registry   *Registry
	downloader *Downloader
	logger     ports.Logger

	fallbackOnce sync.Once
}

// NewResolver creates a Resolver. command is the purl2src command template.
func NewResolver(
	runner ports.CommandRunner,
	command []string,
	registry *Registry,
	downloader *Downloader,
	logger ports.Logger,
) *Resolver {
	return &Resolver{
		runner:     runner,
		command:    command,
		registry:   registry,
		downloader: downloader,
		logger:     logger,
	}
}

// Resolve finds the source of id and downloads it.
func (r *Resolver) Resolve(ctx context.Context, id domain.PackageIdentifier) (domain.SourceLocation, error) {
	loc, err := r.locate(ctx, id)
	if err != nil {
		return domain.SourceLocation{}, err
	}

	path, err := r.downloader.Fetch(ctx, id, loc.DownloadURL)
	if err != nil {
		return domain.SourceLocation{}, zerr.With(err, "purl", id.Key())
	}
	loc.LocalPath = path
	return loc, nil
}

// Cleanup removes archives downloaded during this run.
func (r *Resolver) Cleanup() error {
	return r.downloader.Cleanup()
}

func (r *Resolver) locate(ctx context.Context, id domain.PackageIdentifier) (domain.SourceLocation, error) {
	out, err := r.runner.Run(ctx, shell.Expand(r.command, map[string]string{"purl": id.Key()}))
	if err != nil {
		if !errors.Is(err, domain.ErrToolNotFound) {
			return domain.SourceLocation{}, zerr.With(err, "purl", id.Key())
		}
		r.fallbackOnce.Do(func() {
			r.logger.Warn("purl2src is not installed, using built-in registry locations")
		})
		return r.registry.Locate(ctx, id)
	}

	res, err := decodeResult(out)
	if err != nil {
		return domain.SourceLocation{}, zerr.With(err, "purl", id.Key())
	}

	loc := domain.SourceLocation{
		Identifier:    id,
		DownloadURL:   firstNonEmpty(res.DownloadURL, res.URL),
		RepositoryURL: firstNonEmpty(res.RepositoryURL, res.VCSURL),
		Homepage:      firstNonEmpty(res.HomepageURL, res.Homepage),
	}

	if loc.DownloadURL == "" && res.VCSURL != "" {
		archive, err := ArchiveURL(res.VCSURL)
		if err != nil {
			return domain.SourceLocation{}, errors.Join(domain.ErrNotRetryable, zerr.With(err, "purl", id.Key()))
		}
		loc.DownloadURL = archive
	}

	if loc.DownloadURL == "" {
		noLocation := zerr.With(domain.ErrNoSourceLocation, "purl", id.Key())
		if res.Error != "" {
			noLocation = zerr.With(noLocation, "reason", res.Error)
		}
		return domain.SourceLocation{}, errors.Join(domain.ErrNotRetryable, noLocation)
	}

	return loc, nil
}

// decodeResult accepts a single object or a list of objects and returns the first record.
func decodeResult(out []byte) (toolResult, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []toolResult
		if err := toolout.Decode(toolName, trimmed, &list); err != nil {
			return toolResult{}, err
		}
		if len(list) == 0 {
			return toolResult{}, toolout.Invalid(toolName, zerr.New("empty result list"))
		}
		return list[0], nil
	}

	var res toolResult
	if err := toolout.Decode(toolName, trimmed, &res); err != nil {
		return toolResult{}, err
	}
	return res, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
