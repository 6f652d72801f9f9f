// Package httpmsg defines the request and response value types that flow
// through a handler chain.
//
// This package contains pure value logic with ZERO external dependencies
// outside the Go standard library. Both types are:
//
// - Independent of transport (no sockets, no net/http server coupling)
// - Duplicable on demand via Clone, with no shared mutable sub-state
// - Testable in isolation without mocks
//
// The chain engine duplicates these values at every handoff boundary, so a
// Clone must be a complete deep copy: a header edit, body write, or URL
// change on one value must never be observable through another.
package httpmsg
