package ports

import "go.trai.ch/purl2notices/internal/core/domain"

// CacheStore loads and persists the cache file.
//
//go:generate mockgen -source=cache_store.go -destination=mocks/mock_cache_store.go -package=mocks
type CacheStore interface {
	// Load reads the cache at path. A missing file yields an empty cache.
	Load(path string) (*domain.Cache, error)

	// Save writes the cache atomically. The previous file is left untouched on failure.
	Save(path string, cache *domain.Cache) error
}
