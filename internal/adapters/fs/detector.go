package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/mod/modfile"
)

var _ ports.ArtifactIdentifier = (*ManifestDetector)(nil)

// ManifestDetector maps well-known manifest files to identifiers without external tools.
type ManifestDetector struct{}

// NewManifestDetector creates a new ManifestDetector.
func NewManifestDetector() *ManifestDetector {
	return &ManifestDetector{}
}

// Identify reads the manifest at path. Files it does not understand yield
// domain.ErrUnmappableArtifact.
func (d *ManifestDetector) Identify(ctx context.Context, path string) (domain.PackageIdentifier, error) {
	if err := ctx.Err(); err != nil {
		return domain.PackageIdentifier{}, err
	}

	var parse func([]byte) (domain.PackageIdentifier, error)
	switch filepath.Base(path) {
	case "package.json":
		parse = parsePackageJSON
	case "composer.json":
		parse = parseComposerJSON
	case "go.mod":
		parse = func(data []byte) (domain.PackageIdentifier, error) {
			return parseGoMod(path, data)
		}
	default:
		return domain.PackageIdentifier{}, zerr.With(domain.ErrUnmappableArtifact, "path", path)
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the directory scan
	if err != nil {
		return domain.PackageIdentifier{}, zerr.With(zerr.Wrap(err, domain.ErrInputReadFailed.Error()), "path", path)
	}

	id, err := parse(data)
	if err != nil {
		return domain.PackageIdentifier{}, zerr.With(err, "path", path)
	}
	return id, nil
}

func parsePackageJSON(data []byte) (domain.PackageIdentifier, error) {
	var manifest struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return domain.PackageIdentifier{}, zerr.Wrap(err, domain.ErrUnmappableArtifact.Error())
	}
	if manifest.Name == "" {
		return domain.PackageIdentifier{}, domain.ErrUnmappableArtifact
	}

	namespace, name := "", manifest.Name
	if strings.HasPrefix(name, "@") {
		if scope, rest, ok := strings.Cut(name, "/"); ok {
			namespace, name = scope, rest
		}
	}
	return domain.NewIdentifier("npm", namespace, name, manifest.Version)
}

func parseComposerJSON(data []byte) (domain.PackageIdentifier, error) {
	var manifest struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return domain.PackageIdentifier{}, zerr.Wrap(err, domain.ErrUnmappableArtifact.Error())
	}

	vendor, name, ok := strings.Cut(manifest.Name, "/")
	if !ok || vendor == "" || name == "" {
		return domain.PackageIdentifier{}, zerr.With(domain.ErrUnmappableArtifact, "name", manifest.Name)
	}
	return domain.NewIdentifier("composer", vendor, name, manifest.Version)
}

func parseGoMod(path string, data []byte) (domain.PackageIdentifier, error) {
	f, err := modfile.ParseLax(path, data, nil)
	if err != nil {
		return domain.PackageIdentifier{}, zerr.Wrap(err, domain.ErrUnmappableArtifact.Error())
	}
	if f.Module == nil || f.Module.Mod.Path == "" {
		return domain.PackageIdentifier{}, domain.ErrUnmappableArtifact
	}

	modPath := f.Module.Mod.Path
	namespace, name := "", modPath
	if i := strings.LastIndex(modPath, "/"); i >= 0 {
		namespace, name = modPath[:i], modPath[i+1:]
	}
	return domain.NewIdentifier("golang", namespace, name, "")
}
