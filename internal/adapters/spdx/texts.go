// Package spdx serves full license texts from a directory of SPDX text files.
package spdx

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports"
	"go.trai.ch/zerr"
)

const cacheSize = 256

var _ ports.LicenseTextProvider = (*Texts)(nil)

type text struct {
	body  string
	found bool
}

// Texts implements ports.LicenseTextProvider. Texts are looked up as <dir>/<id>.txt
// and then <dir>/<id>, and remembered, including misses.
type Texts struct {
	dir    string
	logger ports.Logger
	cache  *lru.Cache[string, text]
}

// NewTexts creates a provider over dir. An empty dir knows no texts.
func NewTexts(dir string, logger ports.Logger) (*Texts, error) {
	cache, err := lru.New[string, text](cacheSize)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create license text cache")
	}
	return &Texts{dir: dir, logger: logger, cache: cache}, nil
}

// Text returns the text for the SPDX identifier id.
func (t *Texts) Text(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if t.dir == "" || !validID(id) {
		return "", false
	}

	if cached, ok := t.cache.Get(id); ok {
		return cached.body, cached.found
	}

	body, found, err := t.read(id)
	if err != nil {
		t.logger.Error(err)
	}
	t.cache.Add(id, text{body: body, found: found})
	return body, found
}

func (t *Texts) read(id string) (string, bool, error) {
	for _, name := range []string{id + ".txt", id} {
		path := filepath.Join(t.dir, name)
		data, err := os.ReadFile(path) //nolint:gosec // id is checked by validID
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", false, zerr.With(zerr.Wrap(err, domain.ErrLicenseTextReadFailed.Error()), "path", path)
		}
		if body := strings.TrimSpace(string(data)); body != "" {
			return body + "\n", true, nil
		}
	}
	return "", false, nil
}

// validID accepts SPDX license identifiers and LicenseRef- references.
func validID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '.', r == '+':
		default:
			return false
		}
	}
	return true
}
