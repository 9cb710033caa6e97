package ports

import "go.trai.ch/purl2notices/internal/core/domain"

//go:generate mockgen -source=toolchain.go -destination=mocks/mock_toolchain.go -package=mocks

// Toolchain is the set of collaborators configured for one run.
type Toolchain struct {
	Resolver   SourceResolver
	Extractor  MetadataExtractor
	Detector   LicenseDetector
	Identifier ArtifactIdentifier
	Texts      LicenseTextProvider

	// Cleanup removes temporary files such as downloaded archives. It may be nil.
	Cleanup func() error
}

// ToolchainFactory builds the collaborators from the effective configuration.
type ToolchainFactory interface {
	New(cfg *domain.Config) (*Toolchain, error)
}
