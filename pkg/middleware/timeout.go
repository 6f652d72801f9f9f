package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/relaykit/relay/pkg/chain"
	"github.com/relaykit/relay/pkg/httpmsg"
)

// Timeout returns a handler that bounds the remainder of the chain to d.
// The tail runs with a derived deadline context; if it does not return in
// time the handler gives up and reports context.DeadlineExceeded, which
// propagates to the caller as a handler failure. The chain core itself has
// no timeout notion, so this is the collaborator that supplies one.
func Timeout(d time.Duration) chain.Handler {
	return func(ctx context.Context, req *httpmsg.Request, next chain.Next) (*httpmsg.Response, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		type result struct {
			resp *httpmsg.Response
			err  error
		}
		done := make(chan result, 1)
		go func() {
			resp, err := next(ctx, nil)
			done <- result{resp: resp, err: err}
		}()

		select {
		case r := <-done:
			return r.resp, r.err
		case <-ctx.Done():
			return nil, fmt.Errorf("middleware: chain exceeded %v: %w", d, ctx.Err())
		}
	}
}
