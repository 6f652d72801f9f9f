// Package governance provides the runtime safety primitives (token-bucket
// rate limiting and circuit breaking) that the middleware package wraps
// around handler chains.
//
// The primitives carry no chain or HTTP types so they can be tested in
// isolation and reused by any collaborator that needs throttling.
package governance
