package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/relaykit/relay/pkg/chain"
	"github.com/relaykit/relay/pkg/httpmsg"
)

// Header transform actions.
const (
	HeaderSet    = "set"
	HeaderAdd    = "add"
	HeaderRemove = "remove"
	HeaderRename = "rename"
)

// HeaderOp represents a single request header mutation.
type HeaderOp struct {
	Action string
	Header string
	Values []string
	From   string
	To     string
}

// TransformHeaders returns a handler that applies the given operations to its
// request duplicate and forwards the mutated value through next. Downstream
// handlers observe the mutation precisely because it is forwarded explicitly;
// the caller's request instance is untouched.
//
// Operations are validated up front so misconfiguration surfaces at
// construction, not per request.
func TransformHeaders(logger *slog.Logger, ops ...HeaderOp) (chain.Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for i, op := range ops {
		if err := validateHeaderOp(op); err != nil {
			return nil, fmt.Errorf("middleware: header op %d: %w", i, err)
		}
	}

	return func(ctx context.Context, req *httpmsg.Request, next chain.Next) (*httpmsg.Response, error) {
		for _, op := range ops {
			applyHeaderOp(req, op)
		}
		logger.Debug("header transform applied", "operations", len(ops))
		return next(ctx, req)
	}, nil
}

func validateHeaderOp(op HeaderOp) error {
	switch strings.ToLower(op.Action) {
	case HeaderSet, HeaderAdd:
		if op.Header == "" {
			return fmt.Errorf("action %q requires a header name", op.Action)
		}
		if len(op.Values) == 0 {
			return fmt.Errorf("action %q requires at least one value", op.Action)
		}
	case HeaderRemove:
		if op.Header == "" {
			return fmt.Errorf("action %q requires a header name", op.Action)
		}
	case HeaderRename:
		if op.From == "" || op.To == "" {
			return fmt.Errorf("action %q requires from and to header names", op.Action)
		}
	default:
		return fmt.Errorf("unsupported action %q", op.Action)
	}
	return nil
}

func applyHeaderOp(req *httpmsg.Request, op HeaderOp) {
	switch strings.ToLower(op.Action) {
	case HeaderSet:
		req.Header.Del(op.Header)
		for _, v := range op.Values {
			req.Header.Add(op.Header, v)
		}
	case HeaderAdd:
		for _, v := range op.Values {
			req.Header.Add(op.Header, v)
		}
	case HeaderRemove:
		req.Header.Del(op.Header)
	case HeaderRename:
		values := req.Header.Values(op.From)
		if len(values) == 0 {
			return
		}
		req.Header.Del(op.From)
		for _, v := range values {
			req.Header.Add(op.To, v)
		}
	}
}
