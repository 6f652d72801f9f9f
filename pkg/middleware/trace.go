package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/relaykit/relay/pkg/chain"
	"github.com/relaykit/relay/pkg/httpmsg"
)

// Trace returns a handler that wraps the remainder of the chain in an
// OpenTelemetry span named spanName, recording the request method and URL,
// the invocation ID, and the resulting status. Handler failures mark the
// span as errored and still propagate.
func Trace(spanName string) chain.Handler {
	if spanName == "" {
		spanName = "chain.evaluate"
	}
	tracer := otel.Tracer("relay.chain")

	return func(ctx context.Context, req *httpmsg.Request, next chain.Next) (*httpmsg.Response, error) {
		attrs := []attribute.KeyValue{
			attribute.String("http.method", req.Method),
		}
		if req.URL != nil {
			attrs = append(attrs, attribute.String("url.full", req.URL.String()))
		}
		if id, ok := chain.InvocationIDFromContext(ctx); ok {
			attrs = append(attrs, attribute.String("chain.invocation_id", id))
		}

		ctx, span := tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
		defer span.End()

		resp, err := next(ctx, nil)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if resp != nil {
			span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		}
		return resp, nil
	}
}
