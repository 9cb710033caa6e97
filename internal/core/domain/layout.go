package domain

import (
	"os"
	"path/filepath"
)

const (
	// ToolName is the name recorded as provenance in cache entries.
	ToolName = "purl2notices"

	// CacheFileName is the default name of the cache file in the working directory.
	CacheFileName = ".purl2notices.cache.json"

	// ConfigFileName is the name of the visible configuration file.
	ConfigFileName = "purl2notices.yaml"

	// HiddenConfigFileName is the name of the hidden configuration file.
	HiddenConfigFileName = ".purl2notices.yaml"

	// DownloadsDirName is the directory below the user cache dir holding downloaded archives.
	DownloadsDirName = "purl2notices"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultCachePath returns the default cache location relative to the working directory.
func DefaultCachePath() string {
	return CacheFileName
}

// DefaultDownloadsPath returns the directory for downloaded package archives.
// It falls back to the system temp dir when no user cache dir is available.
func DefaultDownloadsPath() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, DownloadsDirName, "downloads")
}
