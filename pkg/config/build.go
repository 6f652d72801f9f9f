package config

import (
	"context"
	"fmt"

	"github.com/relaykit/relay/pkg/chain"
)

// Build turns a validated configuration into a chain, resolving every step
// against the registry. A nil registry selects DefaultRegistry.
func Build(ctx context.Context, cfg *Config, reg *Registry) (*chain.Chain, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config: nil configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = DefaultRegistry()
	}

	c := chain.New()
	for i, step := range cfg.Chain.Steps {
		builder, ok := reg.Resolve(step.Use)
		if !ok {
			return nil, fmt.Errorf("config: step %d uses unknown handler %q", i, step.Use)
		}
		handler, err := builder(ctx, Options{Chain: cfg.Chain.Name, With: step.With})
		if err != nil {
			return nil, fmt.Errorf("config: build step %d (%s): %w", i, step.Use, err)
		}
		c.Append(handler)
	}
	return c, nil
}
