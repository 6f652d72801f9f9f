package chain

import (
	"context"
	"errors"
	"sync"

	"github.com/relaykit/relay/pkg/httpmsg"
)

// ErrNilResponse reports a handler that returned neither a response nor an
// error. Producing one is a handler programming error; it aborts the
// evaluation instead of surfacing as a silent nil result.
var ErrNilResponse = errors.New("chain: handler returned nil response with nil error")

// Evaluate runs the handler sequence against the request and returns the
// final response. The returned value is always a fresh duplicate, never the
// fallback instance itself nor any instance a handler still holds, so the
// caller may inspect or mutate it freely.
//
// A nil fallback selects the default empty-bodied 404. A nil request is a
// caller programming error and panics. Handler errors propagate unchanged:
// there is no retry and no fallback-on-failure.
func Evaluate(ctx context.Context, req *httpmsg.Request, fallback *httpmsg.Response, handlers ...Handler) (*httpmsg.Response, error) {
	if req == nil {
		panic("chain: nil request passed to Evaluate")
	}
	if fallback == nil {
		fallback = httpmsg.NotFound()
	}
	ev := &evaluation{seen: make(map[int]struct{}, len(handlers))}
	return ev.evaluate(ctx, req, fallback, handlers)
}

// evaluation tracks which tail sequences a single top-level Evaluate call has
// already begun. Within one call every tail of the captured sequence is
// uniquely identified by its remaining length, so the visited set is keyed by
// length. The scope is one Evaluate call; concurrent evaluations never share
// a guard. The mutex covers next being invoked from a goroutine a deadline
// handler has already given up on while the caller retries the same tail.
type evaluation struct {
	mu   sync.Mutex
	seen map[int]struct{}
}

// begin marks the tail of the given length as started, reporting whether it
// had already begun.
func (ev *evaluation) begin(length int) bool {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	if _, ok := ev.seen[length]; ok {
		return false
	}
	ev.seen[length] = struct{}{}
	return true
}

func (ev *evaluation) evaluate(ctx context.Context, req *httpmsg.Request, resp *httpmsg.Response, rest []Handler) (*httpmsg.Response, error) {
	// Base case: sequence exhausted, the current response wins.
	if len(rest) == 0 {
		return resp.Clone(), nil
	}

	// Reentry guard: a tail that already began evaluating is not run twice.
	// This caps pathological next calls at one pass per distinct tail.
	if !ev.begin(len(rest)) {
		return resp.Clone(), nil
	}

	head, tail := rest[0], rest[1:]

	next := func(ctx context.Context, forward *httpmsg.Request) (*httpmsg.Response, error) {
		current := req
		if forward != nil {
			current = forward
		}
		// The response handed down is always a duplicate of the current
		// one: handlers forward requests, never responses.
		return ev.evaluate(ctx, current.Clone(), resp.Clone(), tail)
	}

	out, err := head(ctx, req.Clone(), next)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, ErrNilResponse
	}
	return out.Clone(), nil
}
