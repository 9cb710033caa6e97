// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/purl2notices/internal/adapters/cachefile"
	_ "go.trai.ch/purl2notices/internal/adapters/config"
	_ "go.trai.ch/purl2notices/internal/adapters/fs"
	_ "go.trai.ch/purl2notices/internal/adapters/logger"
	_ "go.trai.ch/purl2notices/internal/adapters/render"
	_ "go.trai.ch/purl2notices/internal/adapters/shell"
	_ "go.trai.ch/purl2notices/internal/adapters/toolchain"
	_ "go.trai.ch/purl2notices/internal/adapters/watcher"
	// Register app nodes.
	_ "go.trai.ch/purl2notices/internal/app"
)
