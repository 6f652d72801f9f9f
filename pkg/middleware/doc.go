// Package middleware provides stock chain handlers for common cross-cutting
// concerns.
//
// Architecture:
//
// headers.go        - request header transforms, forwarded explicitly via next
// deny.go           - terminal deny handler (fixed status, JSON error body)
// ratelimit.go      - token-bucket admission, 429 on throttle
// circuitbreaker.go - closed/open/half-open protection around the tail chain
// timeout.go        - deadline enforcement around the tail chain
// policy.go         - OPA Rego allow/deny decisions over request metadata
// trace.go          - OpenTelemetry span around the tail chain
// metrics.go        - OpenTelemetry metrics per evaluation
//
// Every constructor returns a plain chain.Handler, so these compose freely
// with application handlers in any order. Handlers that observe behaviour
// log through log/slog; the chain engine itself never logs.
package middleware
