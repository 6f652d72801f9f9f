package chain

import (
	"context"

	"github.com/google/uuid"
)

// ctxInvocationKey is an unexported type for keys defined in this package.
type ctxInvocationKey struct{}

// WithInvocationID returns a context carrying the given invocation ID.
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxInvocationKey{}, id)
}

// InvocationIDFromContext retrieves the invocation ID set for the current
// Respond call, if any. Middleware uses it to correlate telemetry.
func InvocationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxInvocationKey{}).(string)
	return id, ok
}

// EnsureInvocationID returns a context that carries an invocation ID,
// generating a fresh one when the incoming context has none.
func EnsureInvocationID(ctx context.Context) (context.Context, string) {
	if id, ok := InvocationIDFromContext(ctx); ok {
		return ctx, id
	}
	id := uuid.NewString()
	return WithInvocationID(ctx, id), id
}
