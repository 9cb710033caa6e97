package domain

import "go.trai.ch/zerr"

// Error kinds. Fatal pipeline errors are joined with exactly one of these so callers can
// classify them with errors.Is regardless of how deep the cause is wrapped.
var (
	// ErrInput is the kind for bad identifiers and unreadable inputs. It aborts before the pipeline starts.
	ErrInput = zerr.New("invalid input")

	// ErrResolution is the kind recorded for a single identifier whose collaborator calls failed after retries.
	ErrResolution = zerr.New("package resolution failed")

	// ErrCacheCorrupt is the kind for a cache file that exists but cannot be parsed or validated.
	ErrCacheCorrupt = zerr.New("cache file is corrupt, fix or remove it and re-run")

	// ErrPersist is the kind for failures while writing the cache file.
	ErrPersist = zerr.New("failed to persist cache")

	// ErrBatchFailure is the kind returned when a resolution failure aborts a strict run.
	ErrBatchFailure = zerr.New("resolution batch failed")
)

var (
	// ErrInvalidIdentifier is returned when a string is not a valid package URL.
	ErrInvalidIdentifier = zerr.New("invalid package identifier")

	// ErrEmptyInput is returned when no input was given and no cache exists to fall back to.
	ErrEmptyInput = zerr.New("no input specified")

	// ErrInputNotFound is returned when the input path does not exist.
	ErrInputNotFound = zerr.New("input not found")

	// ErrInputReadFailed is returned when an input file or directory cannot be read.
	ErrInputReadFailed = zerr.New("failed to read input")

	// ErrUnknownMode is returned for an unsupported input mode.
	ErrUnknownMode = zerr.New("unknown input mode, expected auto, single, kissbom, scan or cache")

	// ErrUnmappableArtifact is returned when a scanned file cannot be mapped to an identifier.
	ErrUnmappableArtifact = zerr.New("file could not be mapped to a package identifier")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigInvalid is returned when a configuration value is out of range.
	ErrConfigInvalid = zerr.New("invalid configuration")

	// ErrCacheReadFailed is returned when the cache file cannot be read.
	ErrCacheReadFailed = zerr.New("failed to read cache file")

	// ErrCacheUnmarshalFailed is returned when the cache file is not valid JSON.
	ErrCacheUnmarshalFailed = zerr.New("failed to unmarshal cache file")

	// ErrCacheSchemaViolation is returned when the cache document does not match the cache schema.
	ErrCacheSchemaViolation = zerr.New("cache file does not match the cache schema")

	// ErrCacheDuplicateIdentifier is returned when a cache file lists the same identifier twice.
	ErrCacheDuplicateIdentifier = zerr.New("duplicate identifier in cache file")

	// ErrCacheMarshalFailed is returned when the cache cannot be marshaled.
	ErrCacheMarshalFailed = zerr.New("failed to marshal cache")

	// ErrCacheWriteFailed is returned when the cache file cannot be written.
	ErrCacheWriteFailed = zerr.New("failed to write cache file")

	// ErrToolNotFound is returned when an external tool is not installed.
	ErrToolNotFound = zerr.New("external tool not found")

	// ErrToolFailed is returned when an external tool exits with an error.
	ErrToolFailed = zerr.New("external tool failed")

	// ErrToolOutputInvalid is returned when an external tool prints output that does not match its contract.
	ErrToolOutputInvalid = zerr.New("external tool returned invalid output")

	// ErrNoSourceLocation is returned when no download location can be determined for an identifier.
	ErrNoSourceLocation = zerr.New("no source location found")

	// ErrUnsupportedVCSURL is returned for VCS URLs on untrusted hosts or schemes.
	ErrUnsupportedVCSURL = zerr.New("unsupported VCS URL")

	// ErrDownloadFailed is returned when a package archive cannot be downloaded.
	ErrDownloadFailed = zerr.New("failed to download package")

	// ErrNotRetryable marks collaborator errors that retrying cannot fix.
	ErrNotRetryable = zerr.New("error is not retryable")

	// ErrCancelled is recorded for identifiers that were never dispatched because the run was cancelled.
	ErrCancelled = zerr.New("resolution cancelled")

	// ErrTemplateParseFailed is returned when a notice template cannot be parsed.
	ErrTemplateParseFailed = zerr.New("failed to parse notice template")

	// ErrRenderFailed is returned when the notice document cannot be rendered.
	ErrRenderFailed = zerr.New("failed to render notices")

	// ErrUnknownFormat is returned for an unsupported output format.
	ErrUnknownFormat = zerr.New("unknown output format, expected text or html")

	// ErrOutputWriteFailed is returned when the rendered document cannot be written.
	ErrOutputWriteFailed = zerr.New("failed to write output")

	// ErrLicenseTextReadFailed is returned when a bundled license text cannot be read.
	ErrLicenseTextReadFailed = zerr.New("failed to read license text")
)
