package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/relaykit/relay/internal/governance"
	"github.com/relaykit/relay/pkg/chain"
	"github.com/relaykit/relay/pkg/httpmsg"
)

// RateLimit returns a handler that admits at most rps requests per second
// with the given burst capacity, answering 429 with a Retry-After hint when
// the bucket is empty. One bucket guards the whole handler instance; create
// separate instances for separate limits.
func RateLimit(rps, burst int, logger *slog.Logger) chain.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	bucket := governance.NewTokenBucket(rps, burst)

	return func(ctx context.Context, req *httpmsg.Request, next chain.Next) (*httpmsg.Response, error) {
		if !bucket.Take() {
			logger.Warn("request rate limited", "method", req.Method)
			resp := denyResponse(http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			resp.Header.Set("Retry-After", "1")
			return resp, nil
		}
		return next(ctx, nil)
	}
}
