package chain

import (
	"context"

	"github.com/relaykit/relay/pkg/httpmsg"
)

// Handler transforms a request into a response. It receives its own duplicate
// of the request, so edits to it are invisible elsewhere unless the handler
// forwards the edited value through next. A handler may:
//
//   - return a response without calling next, short-circuiting the chain
//   - call next and return its result, observed or modified
//   - return a non-nil error, which aborts the whole evaluation
//
// Returning a nil response with a nil error is a programming error and
// aborts the evaluation with ErrNilResponse.
//
// Returned responses are duplicated by the engine before traveling upward,
// so a handler may keep its returned value without racing the caller.
type Handler func(ctx context.Context, req *httpmsg.Request, next Next) (*httpmsg.Response, error)

// Next proceeds with the remainder of the chain. A nil req continues with a
// fresh duplicate of the current request; a non-nil req continues with a
// duplicate of that value instead, which is how a handler propagates a
// request mutation forward. Responses are never forwardable through Next:
// they flow strictly bottom-up as return values.
//
// Nothing enforces a single invocation, but re-entering a part of the chain
// that already ran within the same top-level evaluation short-circuits to a
// duplicate of the current response instead of re-invoking handlers.
type Next func(ctx context.Context, req *httpmsg.Request) (*httpmsg.Response, error)
