package config

import (
	"fmt"

	"github.com/yndnr/rcuht-go/internal/infra/confloader"
)

// Load layers path (optional), the environment and flags over the
// defaults and verifies the result. flags is keyed by dotted config paths
// such as "bench.seconds". The returned sources name the layers that were
// applied on top of the defaults.
func Load(path string, flags map[string]any) (*Config, []string, error) {
	cfg := Default()
	l := confloader.NewLoader(confloader.WithConfigFile(path))
	if err := l.Load(cfg, flags); err != nil {
		return nil, nil, err
	}
	if err := cfg.Verify(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, l.Sources(), nil
}
