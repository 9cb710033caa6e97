package purl2src

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports"
	"go.trai.ch/zerr"
)

// Archive extensions recognized in download URLs. Longer ones come first.
var archiveExtensions = []string{
	".tar.gz", ".tar.bz2", ".tar.xz",
	".tgz", ".whl", ".egg", ".zip", ".jar", ".war", ".ear",
	".gem", ".nupkg", ".crate", ".deb", ".rpm",
}

const defaultExtension = ".tar.gz"

// Downloader fetches package archives into a directory and reuses earlier downloads.
type Downloader struct {
	client    *http.Client
	dir       string
	userAgent string
	logger    ports.Logger

	mu      sync.Mutex
	created []string
}

// NewDownloader creates a Downloader writing into dir.
func NewDownloader(client *http.Client, dir, userAgent string, logger ports.Logger) *Downloader {
	return &Downloader{client: client, dir: dir, userAgent: userAgent, logger: logger}
}

// Fetch downloads rawURL for id and returns the local file path. A file from an earlier
// download of the same URL is reused.
func (d *Downloader) Fetch(ctx context.Context, id domain.PackageIdentifier, rawURL string) (string, error) {
	target := filepath.Join(d.dir, FileName(id, rawURL))

	if info, err := os.Stat(target); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
		d.logger.Debug("using cached download " + target)
		return target, nil
	}

	if err := os.MkdirAll(d.dir, domain.DirPerm); err != nil {
		return "", errors.Join(domain.ErrNotRetryable,
			zerr.With(zerr.Wrap(err, domain.ErrDownloadFailed.Error()), "dir", d.dir))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return "", errors.Join(domain.ErrNotRetryable,
			zerr.With(zerr.Wrap(err, domain.ErrDownloadFailed.Error()), "url", rawURL))
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrDownloadFailed.Error()), "url", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close in defer

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(zerr.With(domain.ErrDownloadFailed, "url", rawURL), resp.StatusCode)
	}

	if err := writeAtomic(target, resp.Body); err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrDownloadFailed.Error()), "url", rawURL)
	}

	d.mu.Lock()
	d.created = append(d.created, target)
	d.mu.Unlock()

	d.logger.Debug("downloaded " + rawURL)
	return target, nil
}

// Cleanup removes the files downloaded by this Downloader.
func (d *Downloader) Cleanup() error {
	d.mu.Lock()
	created := d.created
	d.created = nil
	d.mu.Unlock()

	var errs []error
	for _, p := range created {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, zerr.With(zerr.Wrap(err, "failed to remove download"), "path", p))
		}
	}
	return errors.Join(errs...)
}

// FileName returns the local file name for a download. The name carries the package name
// and a hash of the URL; the extension is taken from the URL path, ignoring the query.
func FileName(id domain.PackageIdentifier, rawURL string) string {
	ext := defaultExtension
	urlPath := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		urlPath = u.Path
	}
	base := strings.ToLower(path.Base(urlPath))
	for _, candidate := range archiveExtensions {
		if strings.HasSuffix(base, candidate) {
			ext = candidate
			break
		}
	}

	return fmt.Sprintf("%s-%016x%s", sanitize(id.Name()), xxhash.Sum64String(rawURL), ext)
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.Trim(b.String(), ".")
	if s == "" {
		return "package"
	}
	return s
}

// writeAtomic streams r to a temp file next to path and renames it into place.
func writeAtomic(target string, r io.Reader) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(target), ".download-*")
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

	if _, err := io.Copy(tmpFile, r); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return err
	}
	return os.Rename(tmpName, target)
}
