package purl2src

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/mod/module"
)

// Default registry endpoints used when purl2src is not installed.
var DefaultRegistries = Registries{
	NPM:    "https://registry.npmjs.org",
	PyPI:   "https://pypi.org",
	Cargo:  "https://crates.io",
	Gem:    "https://rubygems.org",
	NuGet:  "https://api.nuget.org",
	GoMod:  "https://proxy.golang.org",
	Maven:  "https://repo1.maven.org/maven2",
	GitHub: "https://github.com",
}

// Registries holds the base URL of each supported package registry.
type Registries struct {
	NPM    string
	PyPI   string
	Cargo  string
	Gem    string
	NuGet  string
	GoMod  string
	Maven  string
	GitHub string
}

// Registry derives download locations from well-known registry layouts.
type Registry struct {
	bases     Registries
	client    *http.Client
	userAgent string
}

// NewRegistry creates a Registry. Only PyPI lookups use the client.
func NewRegistry(bases Registries, client *http.Client, userAgent string) *Registry {
	return &Registry{bases: bases, client: client, userAgent: userAgent}
}

// Locate returns the source location of id. Identifiers without a version or of an
// unsupported type yield domain.ErrNoSourceLocation.
func (r *Registry) Locate(ctx context.Context, id domain.PackageIdentifier) (domain.SourceLocation, error) {
	loc := domain.SourceLocation{Identifier: id}
	noLocation := errors.Join(domain.ErrNotRetryable, zerr.With(domain.ErrNoSourceLocation, "purl", id.Key()))

	name, version := id.Name(), id.Version()
	if version == "" {
		return loc, noLocation
	}

	switch id.Type() {
	case "npm":
		full := name
		if ns := id.Namespace(); ns != "" {
			full = ns + "/" + name
		}
		loc.DownloadURL = r.bases.NPM + "/" + full + "/-/" + name + "-" + version + ".tgz"
		loc.Homepage = "https://www.npmjs.com/package/" + full
	case "pypi":
		return r.locatePyPI(ctx, id)
	case "cargo":
		loc.DownloadURL = r.bases.Cargo + "/api/v1/crates/" + name + "/" + version + "/download"
		loc.Homepage = "https://crates.io/crates/" + name
	case "gem":
		loc.DownloadURL = r.bases.Gem + "/downloads/" + name + "-" + version + ".gem"
		loc.Homepage = "https://rubygems.org/gems/" + name
	case "nuget":
		lname, lversion := strings.ToLower(name), strings.ToLower(version)
		loc.DownloadURL = r.bases.NuGet + "/v3-flatcontainer/" + lname + "/" + lversion + "/" + lname + "." + lversion + ".nupkg"
		loc.Homepage = "https://www.nuget.org/packages/" + name
	case "golang":
		modPath := name
		if ns := id.Namespace(); ns != "" {
			modPath = ns + "/" + name
		}
		escPath, err := module.EscapePath(modPath)
		if err != nil {
			return loc, errors.Join(noLocation, err)
		}
		escVersion, err := module.EscapeVersion(version)
		if err != nil {
			return loc, errors.Join(noLocation, err)
		}
		loc.DownloadURL = r.bases.GoMod + "/" + escPath + "/@v/" + escVersion + ".zip"
		loc.Homepage = "https://pkg.go.dev/" + modPath
	case "maven":
		group := id.Namespace()
		if group == "" {
			return loc, noLocation
		}
		suffix := ".jar"
		if classifier, ok := id.Qualifier("classifier"); ok && classifier != "" {
			suffix = "-" + classifier + ".jar"
		}
		loc.DownloadURL = r.bases.Maven + "/" + strings.ReplaceAll(group, ".", "/") + "/" + name + "/" + version +
			"/" + name + "-" + version + suffix
	case "github":
		owner := id.Namespace()
		if owner == "" {
			return loc, noLocation
		}
		loc.DownloadURL = r.bases.GitHub + "/" + owner + "/" + name + "/archive/" + version + ".tar.gz"
		loc.RepositoryURL = "https://github.com/" + owner + "/" + name
		loc.Homepage = loc.RepositoryURL
	default:
		return loc, noLocation
	}

	return loc, nil
}

type pypiRelease struct {
	Info struct {
		HomePage    string            `json:"home_page"`
		ProjectURLs map[string]string `json:"project_urls"`
	} `json:"info"`
	URLs []struct {
		PackageType string `json:"packagetype"`
		URL         string `json:"url"`
	} `json:"urls"`
}

// locatePyPI asks the PyPI JSON API for the release files and prefers the sdist.
func (r *Registry) locatePyPI(ctx context.Context, id domain.PackageIdentifier) (domain.SourceLocation, error) {
	loc := domain.SourceLocation{Identifier: id}
	endpoint := r.bases.PyPI + "/pypi/" + url.PathEscape(id.Name()) + "/" + url.PathEscape(id.Version()) + "/json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return loc, zerr.With(zerr.Wrap(err, domain.ErrNoSourceLocation.Error()), "url", endpoint)
	}
	req.Header.Set("Accept", "application/json")
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return loc, zerr.With(zerr.Wrap(err, domain.ErrNoSourceLocation.Error()), "url", endpoint)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close in defer

	if resp.StatusCode != http.StatusOK {
		return loc, classifyStatus(zerr.With(domain.ErrNoSourceLocation, "url", endpoint), resp.StatusCode)
	}

	var release pypiRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return loc, errors.Join(domain.ErrNotRetryable,
			zerr.With(zerr.Wrap(err, domain.ErrNoSourceLocation.Error()), "url", endpoint))
	}

	for _, f := range release.URLs {
		if f.PackageType == "sdist" {
			loc.DownloadURL = f.URL
			break
		}
	}
	if loc.DownloadURL == "" && len(release.URLs) > 0 {
		loc.DownloadURL = release.URLs[0].URL
	}
	if loc.DownloadURL == "" {
		return loc, errors.Join(domain.ErrNotRetryable, zerr.With(domain.ErrNoSourceLocation, "purl", id.Key()))
	}

	loc.Homepage = release.Info.HomePage
	for _, key := range []string{"Source", "Source Code", "Repository", "Homepage"} {
		if u := release.Info.ProjectURLs[key]; u != "" {
			if loc.RepositoryURL == "" && key != "Homepage" {
				loc.RepositoryURL = u
			}
			if loc.Homepage == "" && key == "Homepage" {
				loc.Homepage = u
			}
		}
	}
	return loc, nil
}

// classifyStatus marks client errors other than rate limiting as not retryable.
func classifyStatus(err error, status int) error {
	err = zerr.With(err, "status", status)
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests && status != http.StatusRequestTimeout {
		return errors.Join(domain.ErrNotRetryable, err)
	}
	return err
}
