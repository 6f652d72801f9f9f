package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/relaykit/relay/pkg/chain"
	"github.com/relaykit/relay/pkg/httpmsg"
	"github.com/relaykit/relay/pkg/telemetry"
)

// Metrics returns a handler that records OpenTelemetry metrics for every
// evaluation passing through it, labeled with chainName. Place it first in
// the sequence to time the whole chain.
func Metrics(chainName string) chain.Handler {
	return func(ctx context.Context, req *httpmsg.Request, next chain.Next) (*httpmsg.Response, error) {
		start := time.Now()
		resp, err := next(ctx, nil)

		m := telemetry.EvaluationMetrics{
			Chain:    chainName,
			Outcome:  telemetry.OutcomeSuccess,
			Duration: time.Since(start),
		}
		switch {
		case err != nil:
			m.Outcome = telemetry.OutcomeError
		case resp == nil:
		default:
			m.Status = resp.StatusCode
			switch resp.StatusCode {
			case http.StatusTooManyRequests:
				m.Outcome = telemetry.OutcomeThrottled
			case http.StatusForbidden:
				m.Outcome = telemetry.OutcomeDenied
			}
		}
		telemetry.RecordEvaluation(ctx, m)

		return resp, err
	}
}
