// Package config assembles handler chains from declarative YAML.
//
// Architecture:
//
// config.go        - configuration schema, loading, and validation
// registry.go      - named handler builders (canonical names plus aliases)
// build.go         - turning a validated configuration into a chain.Chain
// file_provider.go - fsnotify-backed hot reload with snapshot/subscribe
// metrics.go       - Prometheus instrumentation for reload behaviour
//
// The core chain package never depends on this layer; it exists for
// applications that prefer describing a chain in a file over composing
// handlers in code, and for operators who want to swap a chain without a
// restart.
package config
