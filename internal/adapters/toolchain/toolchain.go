// Package toolchain assembles the external collaborators for a run from the effective
// configuration.
package toolchain

import (
	"context"
	"errors"
	"net/http"

	"go.trai.ch/purl2notices/internal/adapters/oslili"
	"go.trai.ch/purl2notices/internal/adapters/purl2src"
	"go.trai.ch/purl2notices/internal/adapters/spdx"
	"go.trai.ch/purl2notices/internal/adapters/upmex"
	"go.trai.ch/purl2notices/internal/build"
	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports"
)

var _ ports.ToolchainFactory = (*Factory)(nil)

// Factory implements ports.ToolchainFactory.
type Factory struct {
	runner   ports.CommandRunner
	manifest ports.ArtifactIdentifier
	logger   ports.Logger
	client   *http.Client
}

// NewFactory creates a Factory. manifest identifies files without external tools and is
// asked before upmex.
func NewFactory(runner ports.CommandRunner, manifest ports.ArtifactIdentifier, logger ports.Logger) *Factory {
	return &Factory{
		runner:   runner,
		manifest: manifest,
		logger:   logger,
		client:   &http.Client{Transport: http.DefaultTransport},
	}
}

// WithHTTPClient replaces the client used for registry lookups and downloads.
func (f *Factory) WithHTTPClient(client *http.Client) *Factory {
	f.client = client
	return f
}

// New builds the collaborators for cfg.
func (f *Factory) New(cfg *domain.Config) (*ports.Toolchain, error) {
	userAgent := cfg.Tools.UserAgent
	if userAgent == "" {
		userAgent = domain.ToolName + "/" + build.Version
	}
	downloads := cfg.Tools.DownloadsDir
	if downloads == "" {
		downloads = domain.DefaultDownloadsPath()
	}

	texts, err := spdx.NewTexts(cfg.Licenses.TextsDir, f.logger)
	if err != nil {
		return nil, err
	}

	resolver := purl2src.NewResolver(
		f.runner,
		cfg.Tools.Purl2Src,
		purl2src.NewRegistry(purl2src.DefaultRegistries, f.client, userAgent),
		purl2src.NewDownloader(f.client, downloads, userAgent, f.logger),
		f.logger,
	)
	extractor := upmex.NewExtractor(f.runner, cfg.Tools.Upmex)

	tc := &ports.Toolchain{
		Resolver:   resolver,
		Extractor:  extractor,
		Detector:   oslili.NewDetector(f.runner, cfg.Tools.Oslili),
		Identifier: Chain{f.manifest, extractor},
		Texts:      texts,
	}
	if !cfg.Tools.KeepDownloads {
		tc.Cleanup = resolver.Cleanup
	}
	return tc, nil
}

// Chain asks each identifier in turn and returns the first identifier found.
type Chain []ports.ArtifactIdentifier

// Identify implements ports.ArtifactIdentifier. When no identifier succeeds the
// causes are joined under domain.ErrUnmappableArtifact.
func (c Chain) Identify(ctx context.Context, path string) (domain.PackageIdentifier, error) {
	var errs []error
	for _, identifier := range c {
		if identifier == nil {
			continue
		}
		id, err := identifier.Identify(ctx, path)
		if err == nil {
			return id, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.PackageIdentifier{}, ctxErr
		}
		errs = append(errs, err)
	}
	return domain.PackageIdentifier{}, errors.Join(domain.ErrUnmappableArtifact, errors.Join(errs...))
}
