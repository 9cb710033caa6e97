// Package cachefile persists resolved packages as a CycloneDX JSON document.
package cachefile

import (
	"bytes"
	_ "embed"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/zerr"
)

//go:embed schema.json
var schemaJSON []byte

const schemaName = "cache.schema.json"

// Store implements ports.CacheStore on the local file system.
type Store struct {
	toolVersion string

	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
}

// NewStore creates a Store that records toolVersion in newly written documents.
func NewStore(toolVersion string) *Store {
	return &Store{toolVersion: toolVersion}
}

// Load reads and validates the cache at path. A missing or empty file yields an empty cache.
func (s *Store) Load(path string) (*domain.Cache, error) {
	//nolint:gosec // cache path is chosen by the user
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &domain.Cache{}, nil
		}
		return nil, errors.Join(domain.ErrCacheCorrupt,
			zerr.With(zerr.Wrap(err, domain.ErrCacheReadFailed.Error()), "path", path))
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return &domain.Cache{}, nil
	}

	if err := s.validate(data); err != nil {
		return nil, errors.Join(domain.ErrCacheCorrupt, zerr.With(err, "path", path))
	}

	cache, err := decode(data)
	if err != nil {
		return nil, errors.Join(domain.ErrCacheCorrupt, zerr.With(err, "path", path))
	}

	return cache, nil
}

// Save writes the cache to path atomically.
func (s *Store) Save(path string, cache *domain.Cache) error {
	data, err := encode(cache, s.toolVersion)
	if err != nil {
		return errors.Join(domain.ErrPersist, zerr.With(err, "path", path))
	}

	if err := atomicWriteFile(path, data); err != nil {
		return errors.Join(domain.ErrPersist, zerr.With(err, "path", path))
	}

	return nil
}

func (s *Store) validate(data []byte) error {
	schema, err := s.compiledSchema()
	if err != nil {
		return err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return zerr.Wrap(err, domain.ErrCacheUnmarshalFailed.Error())
	}

	if err := schema.Validate(inst); err != nil {
		return zerr.Wrap(err, domain.ErrCacheSchemaViolation.Error())
	}

	return nil
}

func (s *Store) compiledSchema() (*jsonschema.Schema, error) {
	s.schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			s.schemaErr = zerr.Wrap(err, "failed to unmarshal cache schema")
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaName, doc); err != nil {
			s.schemaErr = zerr.Wrap(err, "failed to add cache schema")
			return
		}

		s.schema, s.schemaErr = compiler.Compile(schemaName)
		if s.schemaErr != nil {
			s.schemaErr = zerr.Wrap(s.schemaErr, "failed to compile cache schema")
		}
	})
	return s.schema, s.schemaErr
}

// atomicWriteFile writes data to a temp file in the target directory and renames it into place.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrCacheWriteFailed.Error())
	}

	tmpFile, err := os.CreateTemp(dir, ".purl2notices-*.json")
	if err != nil {
		return zerr.Wrap(err, domain.ErrCacheWriteFailed.Error())
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
		return zerr.Wrap(err, domain.ErrCacheWriteFailed.Error())
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return zerr.Wrap(err, domain.ErrCacheWriteFailed.Error())
	}

	if err := tmpFile.Close(); err != nil {
		return zerr.Wrap(err, domain.ErrCacheWriteFailed.Error())
	}

	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return zerr.Wrap(err, domain.ErrCacheWriteFailed.Error())
	}

	if err := os.Rename(tmpName, path); err != nil {
		return zerr.Wrap(err, domain.ErrCacheWriteFailed.Error())
	}

	return nil
}
