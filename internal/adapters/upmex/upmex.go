// Package upmex extracts declared package metadata with the upmex tool.
package upmex

import (
	"context"
	"errors"
	"strings"

	"go.trai.ch/purl2notices/internal/adapters/shell"
	"go.trai.ch/purl2notices/internal/adapters/toolout"
	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports"
	"go.trai.ch/zerr"
)

const toolName = "upmex"

var (
	_ ports.MetadataExtractor  = (*Extractor)(nil)
	_ ports.ArtifactIdentifier = (*Extractor)(nil)
)

// packageTypes maps upmex package types to Package URL types.
var packageTypes = map[string]string{
	"npm":           "npm",
	"python_wheel":  "pypi",
	"python_sdist":  "pypi",
	"python_egg":    "pypi",
	"pypi":          "pypi",
	"maven":         "maven",
	"jar":           "maven",
	"ruby_gem":      "gem",
	"gem":           "gem",
	"nuget":         "nuget",
	"rust_crate":    "cargo",
	"cargo":         "cargo",
	"go_module":     "golang",
	"golang":        "golang",
	"composer":      "composer",
	"debian":        "deb",
	"deb":           "deb",
	"rpm":           "rpm",
	"conda":         "conda",
	"cocoapods":     "cocoapods",
	"conan":         "conan",
	"perl":          "cpan",
	"cpan":          "cpan",
	"gradle":        "maven",
	"swift":         "swift",
	"dart":          "pub",
	"pub":           "pub",
	"hex":           "hex",
	"elixir_hex":    "hex",
	"haskell_cabal": "hackage",
}

// report is the JSON printed by upmex extract.
type report struct {
	Name        string               `json:"name"`
	Version     string               `json:"version"`
	Namespace   string               `json:"namespace"`
	PackageType string               `json:"package_type"`
	PURL        string               `json:"purl"`
	Description string               `json:"description"`
	Homepage    string               `json:"homepage"`
	Repository  string               `json:"repository"`
	Licenses    []toolout.License    `json:"licenses"`
	License     toolout.StringOrList `json:"license"`
	Copyrights  []toolout.Copyright  `json:"copyrights"`
	Copyright   toolout.StringOrList `json:"copyright"`
}

// Extractor implements ports.MetadataExtractor and ports.ArtifactIdentifier over upmex.
type Extractor struct {
	runner  ports.CommandRunner
	command []string
}

// NewExtractor creates an Extractor. command is the upmex command template.
func NewExtractor(runner ports.CommandRunner, command []string) *Extractor {
	return &Extractor{runner: runner, command: command}
}

// Extract reads the declared metadata of the archive at loc.LocalPath.
func (e *Extractor) Extract(ctx context.Context, loc domain.SourceLocation) (domain.Metadata, error) {
	if loc.LocalPath == "" {
		return domain.Metadata{}, errors.Join(domain.ErrNotRetryable,
			zerr.With(zerr.New("no local archive to extract metadata from"), "purl", loc.Identifier.Key()))
	}

	r, err := e.run(ctx, loc.LocalPath, loc.Identifier.Key())
	if err != nil {
		return domain.Metadata{}, err
	}
	return r.metadata(), nil
}

// Identify maps the archive or manifest at path to an identifier.
func (e *Extractor) Identify(ctx context.Context, path string) (domain.PackageIdentifier, error) {
	r, err := e.run(ctx, path, "")
	if err != nil {
		return domain.PackageIdentifier{}, err
	}

	if r.PURL != "" {
		id, err := domain.ParseIdentifier(r.PURL)
		if err != nil {
			return domain.PackageIdentifier{}, zerr.With(zerr.Wrap(err, domain.ErrUnmappableArtifact.Error()), "path", path)
		}
		return id, nil
	}

	purlType, ok := packageTypes[strings.ToLower(r.PackageType)]
	if !ok || r.Name == "" {
		return domain.PackageIdentifier{}, zerr.With(zerr.With(domain.ErrUnmappableArtifact, "path", path), "package_type", r.PackageType)
	}

	namespace, name := r.Namespace, r.Name
	switch purlType {
	case "maven":
		if namespace == "" {
			if group, artifact, ok := strings.Cut(name, ":"); ok {
				namespace, name = group, artifact
			}
		}
	case "npm", "composer":
		if namespace == "" {
			if scope, rest, ok := strings.Cut(name, "/"); ok {
				namespace, name = scope, rest
			}
		}
	}

	id, err := domain.NewIdentifier(purlType, namespace, name, r.Version)
	if err != nil {
		return domain.PackageIdentifier{}, zerr.With(zerr.Wrap(err, domain.ErrUnmappableArtifact.Error()), "path", path)
	}
	return id, nil
}

func (e *Extractor) run(ctx context.Context, path, purl string) (report, error) {
	argv := shell.Expand(e.command, map[string]string{"path": path, "purl": purl})
	out, err := e.runner.Run(ctx, argv)
	if err != nil {
		return report{}, zerr.With(err, "path", path)
	}

	var r report
	if err := toolout.Decode(toolName, out, &r); err != nil {
		return report{}, zerr.With(err, "path", path)
	}
	return r, nil
}

func (r report) metadata() domain.Metadata {
	md := domain.Metadata{
		Name:        r.Name,
		Version:     r.Version,
		Description: r.Description,
		Homepage:    r.Homepage,
		Repository:  r.Repository,
		PURL:        r.PURL,
	}

	md.DeclaredLicenses = toolout.Findings(r.Licenses)
	if len(md.DeclaredLicenses) == 0 {
		for _, l := range r.License {
			md.DeclaredLicenses = append(md.DeclaredLicenses, domain.LicenseFinding{ID: l})
		}
	}

	md.Copyrights = toolout.Statements(r.Copyrights)
	if len(md.Copyrights) == 0 {
		md.Copyrights = append(md.Copyrights, r.Copyright...)
	}
	return md
}
