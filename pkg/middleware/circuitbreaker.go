package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/relaykit/relay/internal/governance"
	"github.com/relaykit/relay/pkg/chain"
	"github.com/relaykit/relay/pkg/httpmsg"
)

// CircuitBreaker returns a handler that protects the remainder of the chain
// with closed/open/half-open state. While the circuit is open it answers 503
// without delegating. A downstream error or a 5xx response counts as a
// failure; everything else counts as a success.
func CircuitBreaker(cfg governance.CircuitBreakerConfig, logger *slog.Logger) chain.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	breaker := governance.NewCircuitBreaker(cfg)

	return func(ctx context.Context, req *httpmsg.Request, next chain.Next) (*httpmsg.Response, error) {
		if err := breaker.Allow(); err != nil {
			logger.Warn("circuit open, request rejected", "method", req.Method, "error", err)
			return denyResponse(http.StatusServiceUnavailable, "CIRCUIT_OPEN", "Service temporarily unavailable"), nil
		}

		resp, err := next(ctx, nil)
		if err != nil || (resp != nil && resp.StatusCode >= http.StatusInternalServerError) {
			breaker.RecordFailure()
		} else {
			breaker.RecordSuccess()
		}
		return resp, err
	}
}
