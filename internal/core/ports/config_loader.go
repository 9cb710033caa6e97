package ports

import "go.trai.ch/purl2notices/internal/core/domain"

// ConfigLoader defines the interface for loading the run configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the configuration file. When explicit is empty the file is searched for
	// from cwd upwards. No file yields the defaults.
	Load(cwd, explicit string) (*domain.Config, error)
}
