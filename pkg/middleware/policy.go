package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"

	"github.com/relaykit/relay/pkg/chain"
	"github.com/relaykit/relay/pkg/httpmsg"
)

// PolicyConfig controls OPA policy evaluation.
type PolicyConfig struct {
	// Entrypoint is the policy decision path (default "relay/decision").
	// The document at this path must evaluate to either a boolean or an
	// object with an "allow" boolean and optional "code"/"message" strings.
	Entrypoint string
	// Modules maps module names to Rego source.
	Modules map[string]string
	// DenyStatus is the HTTP status of deny responses (default 403).
	DenyStatus int
}

const defaultPolicyEntrypoint = "relay/decision"

// Policy returns a handler that evaluates the configured Rego modules over
// the request metadata (method, path, host, headers) and either delegates to
// the rest of the chain or denies. Modules are parsed and the query prepared
// once, at construction; evaluation errors at request time propagate as
// handler failures.
func Policy(ctx context.Context, cfg PolicyConfig) (chain.Handler, error) {
	if len(cfg.Modules) == 0 {
		return nil, errors.New("middleware: policy requires at least one rego module")
	}
	entry := strings.TrimSpace(cfg.Entrypoint)
	if entry == "" {
		entry = defaultPolicyEntrypoint
	}
	denyStatus := cfg.DenyStatus
	if denyStatus <= 0 {
		denyStatus = http.StatusForbidden
	}

	names := make([]string, 0, len(cfg.Modules))
	for name := range cfg.Modules {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := make([]func(*rego.Rego), 0, len(names)+1)
	opts = append(opts, rego.Query("data."+strings.ReplaceAll(entry, "/", ".")))
	for _, name := range names {
		module, err := ast.ParseModuleWithOpts(name, cfg.Modules[name], ast.ParserOptions{RegoVersion: ast.RegoV1})
		if err != nil {
			return nil, fmt.Errorf("middleware: parse rego module %q: %w", name, err)
		}
		opts = append(opts, rego.ParsedModule(module))
	}

	prepared, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("middleware: compile rego modules: %w", err)
	}

	return func(ctx context.Context, req *httpmsg.Request, next chain.Next) (*httpmsg.Response, error) {
		results, err := prepared.Eval(ctx, rego.EvalInput(policyInput(req)))
		if err != nil {
			return nil, fmt.Errorf("middleware: policy evaluation: %w", err)
		}

		allow, code, message, err := parseDecision(results)
		if err != nil {
			return nil, err
		}
		if !allow {
			return denyResponse(denyStatus, code, message), nil
		}
		return next(ctx, nil)
	}, nil
}

func policyInput(req *httpmsg.Request) map[string]any {
	headers := make(map[string]any, len(req.Header))
	for k, vv := range req.Header {
		values := make([]any, len(vv))
		for i, v := range vv {
			values[i] = v
		}
		headers[strings.ToLower(k)] = values
	}

	input := map[string]any{
		"method":  req.Method,
		"headers": headers,
	}
	if req.URL != nil {
		input["path"] = req.URL.Path
		input["host"] = req.URL.Host
	}
	return input
}

// parseDecision accepts a bare boolean document or an object with an "allow"
// field. An undefined document denies, which keeps missing entrypoints
// fail-closed.
func parseDecision(results rego.ResultSet) (allow bool, code, message string, err error) {
	code = "POLICY_DENIED"
	message = "Request denied by policy"

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, code, message, nil
	}

	switch value := results[0].Expressions[0].Value.(type) {
	case bool:
		return value, code, message, nil
	case map[string]any:
		decided, ok := value["allow"].(bool)
		if !ok {
			return false, "", "", fmt.Errorf("middleware: policy decision missing boolean allow, got %T", value["allow"])
		}
		if c, ok := value["code"].(string); ok && c != "" {
			code = c
		}
		if m, ok := value["message"].(string); ok && m != "" {
			message = m
		}
		return decided, code, message, nil
	default:
		return false, "", "", fmt.Errorf("middleware: unexpected policy decision type %T", value)
	}
}
