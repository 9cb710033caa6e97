package ports

import (
	"context"

	"go.trai.ch/purl2notices/internal/core/domain"
)

//go:generate mockgen -source=collaborators.go -destination=mocks/mock_collaborators.go -package=mocks

// SourceResolver finds and fetches the source of a package.
type SourceResolver interface {
	// Resolve returns where the package source lives. LocalPath is set once the
	// archive is available on disk.
	Resolve(ctx context.Context, id domain.PackageIdentifier) (domain.SourceLocation, error)
}

// MetadataExtractor reads declared metadata from a package archive.
type MetadataExtractor interface {
	Extract(ctx context.Context, loc domain.SourceLocation) (domain.Metadata, error)
}

// LicenseDetector detects licenses and copyright statements in a package archive.
type LicenseDetector interface {
	Detect(ctx context.Context, loc domain.SourceLocation) (domain.Detection, error)
}

// ArtifactIdentifier maps a file found on disk to a package identifier.
type ArtifactIdentifier interface {
	// Identify returns the identifier for the file at path. It returns
	// domain.ErrUnmappableArtifact when the file is not recognized.
	Identify(ctx context.Context, path string) (domain.PackageIdentifier, error)
}

// CommandRunner runs an external tool and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, argv []string) ([]byte, error)
}
