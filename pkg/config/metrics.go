package config

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors describing provider behaviour.
// They live on a private registry so embedding applications can expose them
// wherever they expose the rest of their metrics.
type Metrics struct {
	reloads  *prometheus.CounterVec
	steps    prometheus.Gauge
	registry *prometheus.Registry
}

// NewMetrics creates the provider metrics on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_config_reloads_total",
				Help: "Configuration reload attempts by result",
			},
			[]string{"result"},
		),
		steps: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_config_chain_steps",
				Help: "Number of handler steps in the active chain",
			},
		),
		registry: registry,
	}

	registry.MustRegister(m.reloads, m.steps)
	return m
}

// RecordReload counts one reload attempt with the given result label
// ("success" or "failure").
func (m *Metrics) RecordReload(result string) {
	m.reloads.WithLabelValues(result).Inc()
}

// SetSteps records the step count of the active chain.
func (m *Metrics) SetSteps(n int) {
	m.steps.Set(float64(n))
}

// Registry exposes the underlying Prometheus registry for scraping.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
