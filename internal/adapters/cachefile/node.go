package cachefile

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/purl2notices/internal/build"
	"go.trai.ch/purl2notices/internal/core/ports"
)

// NodeID is the unique identifier for the cache store Graft node.
const NodeID graft.ID = "adapter.cachefile"

func init() {
	graft.Register(graft.Node[ports.CacheStore]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.CacheStore, error) {
			return NewStore(build.Version), nil
		},
	})
}
