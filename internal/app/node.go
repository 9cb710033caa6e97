package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/purl2notices/internal/adapters/cachefile" //nolint:depguard // Wired in app layer
	"go.trai.ch/purl2notices/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/purl2notices/internal/adapters/fs"        //nolint:depguard // Wired in app layer
	"go.trai.ch/purl2notices/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/purl2notices/internal/adapters/render"    //nolint:depguard // Wired in app layer
	"go.trai.ch/purl2notices/internal/adapters/toolchain" //nolint:depguard // Wired in app layer
	"go.trai.ch/purl2notices/internal/adapters/watcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/purl2notices/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			cachefile.NodeID,
			fs.ScannerNodeID,
			fs.HasherNodeID,
			toolchain.NodeID,
			render.NodeID,
			watcher.NodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			config.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	store, err := graft.Dep[ports.CacheStore](ctx)
	if err != nil {
		return nil, err
	}

	scanner, err := graft.Dep[ports.DirectoryScanner](ctx)
	if err != nil {
		return nil, err
	}

	toolchains, err := graft.Dep[ports.ToolchainFactory](ctx)
	if err != nil {
		return nil, err
	}

	renderer, err := graft.Dep[ports.NoticeRenderer](ctx)
	if err != nil {
		return nil, err
	}

	hasher, err := graft.Dep[ports.Hasher](ctx)
	if err != nil {
		return nil, err
	}

	w, err := graft.Dep[ports.Watcher](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, store, scanner, toolchains, renderer, hasher, w, log), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	app, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		App:          app,
		Logger:       log,
		ConfigLoader: loader,
	}, nil
}
