// Package chain implements recursive evaluation of ordered request-handler
// sequences with copy-on-handoff isolation.
//
// Architecture:
//
// handler.go  - Handler and Next contracts shared by the engine and callers
// evaluate.go - Core recursive evaluator (duplication boundaries, reentry guard)
// chain.go    - Fluent builder that owns a handler sequence and exposes Respond
// context.go  - Per-invocation ID plumbing on context.Context
//
// Every handoff boundary (into a handler, into next, out as a return value)
// duplicates the request or response value crossing it. A handler therefore
// never holds a reference another step can mutate behind its back; mutation
// propagates only along the chain that explicitly forwarded the mutated
// instance through next.
//
// The engine performs no I/O and no logging. Observability and governance
// belong to the middleware package, which composes on top of these contracts.
package chain
