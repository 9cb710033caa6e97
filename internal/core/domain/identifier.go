package domain

import (
	"strings"

	"github.com/package-url/packageurl-go"
	"go.trai.ch/zerr"
)

// PackageIdentifier is a normalized Package URL.
// Two identifiers are the same package exactly when their keys are equal.
type PackageIdentifier struct {
	purl packageurl.PackageURL
	key  string
}

// ParseIdentifier parses and normalizes a Package URL. The type is lowercased, names and
// namespaces follow the case rules of their ecosystem and qualifiers are sorted by key.
func ParseIdentifier(raw string) (PackageIdentifier, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "pkg:") {
		return PackageIdentifier{}, zerr.With(ErrInvalidIdentifier, "purl", raw)
	}

	p, err := packageurl.FromString(trimmed)
	if err != nil {
		return PackageIdentifier{}, zerr.With(zerr.Wrap(err, ErrInvalidIdentifier.Error()), "purl", raw)
	}

	return PackageIdentifier{purl: p, key: p.ToString()}, nil
}

// NewIdentifier builds an identifier from its components.
func NewIdentifier(typ, namespace, name, version string) (PackageIdentifier, error) {
	if strings.TrimSpace(typ) == "" || strings.TrimSpace(name) == "" {
		return PackageIdentifier{}, zerr.With(zerr.With(ErrInvalidIdentifier, "type", typ), "name", name)
	}
	p := packageurl.NewPackageURL(typ, namespace, name, version, nil, "")
	return ParseIdentifier(p.ToString())
}

// MustParseIdentifier is like ParseIdentifier but panics on error.
// It is intended for constants and tests.
func MustParseIdentifier(raw string) PackageIdentifier {
	id, err := ParseIdentifier(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// Key returns the canonical string form used for comparison and deduplication.
func (id PackageIdentifier) Key() string {
	return id.key
}

// String implements fmt.Stringer.
func (id PackageIdentifier) String() string {
	return id.key
}

// IsZero reports whether the identifier was never parsed.
func (id PackageIdentifier) IsZero() bool {
	return id.key == ""
}

// Type returns the ecosystem, e.g. "npm" or "maven".
func (id PackageIdentifier) Type() string {
	return id.purl.Type
}

// Namespace returns the namespace (npm scope, maven group, ...), possibly empty.
func (id PackageIdentifier) Namespace() string {
	return id.purl.Namespace
}

// Name returns the package name.
func (id PackageIdentifier) Name() string {
	return id.purl.Name
}

// Version returns the package version, possibly empty.
func (id PackageIdentifier) Version() string {
	return id.purl.Version
}

// Qualifier returns the value of a qualifier and whether it was present.
func (id PackageIdentifier) Qualifier(key string) (string, bool) {
	for _, q := range id.purl.Qualifiers {
		if q.Key == key {
			return q.Value, true
		}
	}
	return "", false
}

// Subpath returns the subpath component, possibly empty.
func (id PackageIdentifier) Subpath() string {
	return id.purl.Subpath
}

// DisplayName returns "name@version", or just the name when the version is unknown.
func (id PackageIdentifier) DisplayName() string {
	return displayName(id.purl.Name, id.purl.Version)
}

func displayName(name, version string) string {
	if version == "" {
		return name
	}
	return name + "@" + version
}

// UniqueIdentifiers removes duplicate identifiers, keeping the first occurrence.
func UniqueIdentifiers(ids []PackageIdentifier) []PackageIdentifier {
	seen := make(map[string]struct{}, len(ids))
	out := make([]PackageIdentifier, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id.key]; ok {
			continue
		}
		seen[id.key] = struct{}{}
		out = append(out, id)
	}
	return out
}
