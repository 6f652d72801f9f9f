package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/relaykit/relay/pkg/httpmsg"
)

// Config is the root of the declarative chain description.
type Config struct {
	Chain ChainConfig `yaml:"chain"`
}

// ChainConfig describes one handler chain.
type ChainConfig struct {
	// Name labels the chain in telemetry. Defaults to "default".
	Name string `yaml:"name"`
	// Fallback overrides the response returned when no handler produces
	// one. When omitted the chain's built-in empty 404 is used.
	Fallback *FallbackConfig `yaml:"fallback"`
	// Steps are the handlers, in execution order. An empty list is valid:
	// every request then yields the fallback.
	Steps []StepConfig `yaml:"steps"`
}

// FallbackConfig describes the exhausted-chain response.
type FallbackConfig struct {
	Status int    `yaml:"status"`
	Body   string `yaml:"body"`
}

// StepConfig names one handler and its settings.
type StepConfig struct {
	Use  string         `yaml:"use"`
	With map[string]any `yaml:"with"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- File path is configured at startup
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals and validates configuration bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural invariants and applies defaults.
func (c *Config) Validate() error {
	if c.Chain.Name == "" {
		c.Chain.Name = "default"
	}
	if c.Chain.Fallback != nil && c.Chain.Fallback.Status <= 0 {
		return errors.New("config: fallback.status must be a positive HTTP status")
	}
	for i, step := range c.Chain.Steps {
		if step.Use == "" {
			return fmt.Errorf("config: step %d is missing a handler name (use)", i)
		}
	}
	return nil
}

// Fallback materializes the configured fallback response, or nil when the
// chain default should apply.
func (c *Config) Fallback() *httpmsg.Response {
	if c.Chain.Fallback == nil {
		return nil
	}
	resp := httpmsg.NewResponse(c.Chain.Fallback.Status)
	if c.Chain.Fallback.Body != "" {
		resp.SetBodyString(c.Chain.Fallback.Body)
	}
	return resp
}
