package chain

import (
	"context"
	"sync"

	"github.com/relaykit/relay/pkg/httpmsg"
)

// Chain accumulates an ordered handler sequence and evaluates requests
// against it. Appends are fluent; evaluation always works over a snapshot
// taken at call start, so concurrent Respond calls are independent and an
// Append during an in-flight Respond never affects it.
type Chain struct {
	mu       sync.RWMutex
	handlers []Handler
}

// New returns a Chain pre-seeded with the given handlers, in order.
func New(handlers ...Handler) *Chain {
	c := &Chain{}
	if len(handlers) > 0 {
		c.Append(handlers...)
	}
	return c
}

// Append adds handlers to the end of the sequence in argument order and
// returns the same Chain for call chaining. The stored sequence is replaced
// wholesale, never mutated in place: a slice previously returned by Handlers
// keeps its contents. Passing a nil handler panics.
func (c *Chain) Append(handlers ...Handler) *Chain {
	for _, h := range handlers {
		if h == nil {
			panic("chain: nil handler passed to Append")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	next := make([]Handler, 0, len(c.handlers)+len(handlers))
	next = append(next, c.handlers...)
	next = append(next, handlers...)
	c.handlers = next
	return c
}

// Handlers returns a copy of the current sequence. Mutating the returned
// slice does not affect the Chain.
func (c *Chain) Handlers() []Handler {
	return c.snapshot()
}

// Len reports the number of registered handlers.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handlers)
}

// RespondOption customises a single Respond call.
type RespondOption func(*respondOptions)

type respondOptions struct {
	fallback *httpmsg.Response
}

// WithFallback sets the response returned (as a duplicate) when the handler
// sequence is exhausted without any handler producing a response. The
// default is an empty-bodied 404.
func WithFallback(resp *httpmsg.Response) RespondOption {
	return func(o *respondOptions) {
		o.fallback = resp
	}
}

// Respond evaluates the request against the current handler sequence. The
// incoming request and the fallback are both duplicated before evaluation
// begins, and the returned response is never instance-equal to either. A nil
// request panics; handler errors propagate to the caller unchanged.
func (c *Chain) Respond(ctx context.Context, req *httpmsg.Request, opts ...RespondOption) (*httpmsg.Response, error) {
	if req == nil {
		panic("chain: nil request passed to Respond")
	}

	options := respondOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	fallback := options.fallback
	if fallback == nil {
		fallback = httpmsg.NotFound()
	}

	ctx, _ = EnsureInvocationID(ctx)

	return Evaluate(ctx, req.Clone(), fallback.Clone(), c.snapshot()...)
}

func (c *Chain) snapshot() []Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Handler, len(c.handlers))
	copy(out, c.handlers)
	return out
}
