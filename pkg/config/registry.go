package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/relaykit/relay/internal/governance"
	"github.com/relaykit/relay/pkg/chain"
	"github.com/relaykit/relay/pkg/middleware"
)

// Options carries the settings a builder receives for one configured step.
type Options struct {
	// Chain is the configured chain name, for telemetry labels.
	Chain string
	// With holds the step's raw settings from the file.
	With map[string]any
}

// BuilderFunc constructs a handler from declarative settings.
type BuilderFunc func(ctx context.Context, opts Options) (chain.Handler, error)

// Registry maps handler names to builders. Canonical names own the builder;
// aliases point at a canonical name, so a handler stays reachable under old
// spellings after a rename.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]BuilderFunc
	aliases  map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
		aliases:  make(map[string]string),
	}
}

// Register binds a canonical name to a builder.
func (r *Registry) Register(name string, fn BuilderFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("config: register requires a name and a builder")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.builders[name]; exists {
		return fmt.Errorf("config: handler %q already registered", name)
	}
	r.builders[name] = fn
	return nil
}

// Alias makes alias resolve to an already-registered canonical name.
func (r *Registry) Alias(alias, canonical string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.builders[canonical]; !exists {
		return fmt.Errorf("config: alias %q targets unregistered handler %q", alias, canonical)
	}
	if _, exists := r.builders[alias]; exists {
		return fmt.Errorf("config: alias %q collides with a registered handler", alias)
	}
	r.aliases[alias] = canonical
	return nil
}

// Resolve returns the builder for a canonical name or alias.
func (r *Registry) Resolve(name string) (BuilderFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}
	fn, ok := r.builders[name]
	return fn, ok
}

// Names returns the canonical handler names, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	return names
}

// DefaultRegistry returns a registry pre-loaded with the stock middleware.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}

	must(r.Register("headers.transform", buildTransformHeaders))
	must(r.Register("deny", buildDeny))
	must(r.Register("ratelimit", buildRateLimit))
	must(r.Register("circuitbreaker", buildCircuitBreaker))
	must(r.Register("timeout", buildTimeout))
	must(r.Register("policy.opa", buildPolicy))
	must(r.Register("trace", buildTrace))
	must(r.Register("metrics", buildMetrics))

	must(r.Alias("headers", "headers.transform"))
	must(r.Alias("rate_limit", "ratelimit"))
	must(r.Alias("circuit_breaker", "circuitbreaker"))
	must(r.Alias("policy", "policy.opa"))

	return r
}

func buildTransformHeaders(_ context.Context, opts Options) (chain.Handler, error) {
	raw, _ := opts.With["ops"].([]any)
	if len(raw) == 0 {
		return nil, fmt.Errorf("headers.transform requires a non-empty ops list")
	}
	ops := make([]middleware.HeaderOp, 0, len(raw))
	for i, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("headers.transform op %d: expected a mapping, got %T", i, entry)
		}
		ops = append(ops, middleware.HeaderOp{
			Action: optString(m, "action", ""),
			Header: optString(m, "header", ""),
			Values: optStringSlice(m, "values"),
			From:   optString(m, "from", ""),
			To:     optString(m, "to", ""),
		})
	}
	return middleware.TransformHeaders(nil, ops...)
}

func buildDeny(_ context.Context, opts Options) (chain.Handler, error) {
	return middleware.Deny(middleware.DenyConfig{
		Status:  optInt(opts.With, "status", 0),
		Code:    optString(opts.With, "code", ""),
		Message: optString(opts.With, "message", ""),
	}, nil), nil
}

func buildRateLimit(_ context.Context, opts Options) (chain.Handler, error) {
	rps := optInt(opts.With, "rps", 0)
	if rps <= 0 {
		return nil, fmt.Errorf("ratelimit requires a positive rps")
	}
	return middleware.RateLimit(rps, optInt(opts.With, "burst", 0), nil), nil
}

func buildCircuitBreaker(_ context.Context, opts Options) (chain.Handler, error) {
	timeout, err := optDuration(opts.With, "timeout", 0)
	if err != nil {
		return nil, err
	}
	return middleware.CircuitBreaker(governance.CircuitBreakerConfig{
		MaxFailures:         optInt(opts.With, "max_failures", 0),
		Timeout:             timeout,
		MaxHalfOpenRequests: optInt(opts.With, "half_open_requests", 0),
	}, nil), nil
}

func buildTimeout(_ context.Context, opts Options) (chain.Handler, error) {
	d, err := optDuration(opts.With, "duration", 0)
	if err != nil {
		return nil, err
	}
	if d <= 0 {
		return nil, fmt.Errorf("timeout requires a positive duration")
	}
	return middleware.Timeout(d), nil
}

func buildPolicy(ctx context.Context, opts Options) (chain.Handler, error) {
	modules := optStringMap(opts.With, "modules")
	return middleware.Policy(ctx, middleware.PolicyConfig{
		Entrypoint: optString(opts.With, "entrypoint", ""),
		Modules:    modules,
		DenyStatus: optInt(opts.With, "deny_status", 0),
	})
}

func buildTrace(_ context.Context, opts Options) (chain.Handler, error) {
	return middleware.Trace(optString(opts.With, "span", "")), nil
}

func buildMetrics(_ context.Context, opts Options) (chain.Handler, error) {
	return middleware.Metrics(opts.Chain), nil
}

// Settings arrive as map[string]any from the YAML decoder, so numeric and
// string fields need tolerant coercion.

func optString(m map[string]any, key, fallback string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func optInt(m map[string]any, key string, fallback int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func optDuration(m map[string]any, key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := m[key]
	if !ok {
		return fallback, nil
	}
	s, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("%s must be a duration string such as \"5s\", got %T", key, raw)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func optStringSlice(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func optStringMap(m map[string]any, key string) map[string]string {
	raw, ok := m[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
