package toolchain

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/purl2notices/internal/adapters/fs"
	"go.trai.ch/purl2notices/internal/adapters/logger"
	"go.trai.ch/purl2notices/internal/adapters/shell"
	"go.trai.ch/purl2notices/internal/core/ports"
)

const NodeID graft.ID = "adapter.toolchain"

func init() {
	graft.Register(graft.Node[ports.ToolchainFactory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID, fs.DetectorNodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.ToolchainFactory, error) {
			runner, err := graft.Dep[ports.CommandRunner](ctx)
			if err != nil {
				return nil, err
			}
			detector, err := graft.Dep[*fs.ManifestDetector](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewFactory(runner, detector, log), nil
		},
	})
}
