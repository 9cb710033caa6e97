package ports

// Hasher fingerprints file contents.
//
//go:generate mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// ComputeFileHash returns the content hash of the file at path.
	ComputeFileHash(path string) (uint64, error)
	// Fingerprint returns a printable content hash, or "" when the file does not exist.
	Fingerprint(path string) (string, error)
}
