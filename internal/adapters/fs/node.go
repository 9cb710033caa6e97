package fs

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/purl2notices/internal/core/ports"
)

const (
	ScannerNodeID  graft.ID = "adapter.fs.scanner"
	DetectorNodeID graft.ID = "adapter.fs.detector"
	HasherNodeID   graft.ID = "adapter.fs.hasher"
)

func init() {
	graft.Register(graft.Node[ports.DirectoryScanner]{
		ID:        ScannerNodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.DirectoryScanner, error) {
			return NewScanner(), nil
		},
	})

	// The detector is consumed as a concrete type so the intake chain can put it first.
	graft.Register(graft.Node[*ManifestDetector]{
		ID:        DetectorNodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (*ManifestDetector, error) {
			return NewManifestDetector(), nil
		},
	})

	graft.Register(graft.Node[ports.Hasher]{
		ID:        HasherNodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.Hasher, error) {
			return NewHasher(), nil
		},
	})
}
