package render

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/purl2notices/internal/core/ports"
)

const NodeID graft.ID = "adapter.render"

func init() {
	graft.Register(graft.Node[ports.NoticeRenderer]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.NoticeRenderer, error) {
			return NewRenderer(), nil
		},
	})
}
