package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/relaykit/relay/pkg/chain"
	"github.com/relaykit/relay/pkg/httpmsg"
)

// DenyConfig controls the terminal deny handler.
type DenyConfig struct {
	// Status is the HTTP status of the produced response (default 403).
	Status int
	// Code is the machine-readable error code (default ACCESS_DENIED).
	Code string
	// Message is the human-readable message (default "Access denied").
	Message string
}

// denyBody is the JSON error model written by Deny and the policy handler.
// It deliberately exposes no request details.
type denyBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Deny returns a terminal handler that rejects every request it sees without
// invoking the remainder of the chain.
func Deny(cfg DenyConfig, logger *slog.Logger) chain.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Status <= 0 {
		cfg.Status = http.StatusForbidden
	}
	if cfg.Code == "" {
		cfg.Code = "ACCESS_DENIED"
	}
	if cfg.Message == "" {
		cfg.Message = "Access denied"
	}

	return func(ctx context.Context, req *httpmsg.Request, _ chain.Next) (*httpmsg.Response, error) {
		logger.Info("terminal deny executed",
			"status", cfg.Status,
			"code", cfg.Code,
			"method", req.Method,
		)
		return denyResponse(cfg.Status, cfg.Code, cfg.Message), nil
	}
}

func denyResponse(status int, code, message string) *httpmsg.Response {
	resp := httpmsg.NewResponse(status)
	resp.Header.Set("Content-Type", "application/json")
	body, err := json.Marshal(denyBody{Code: code, Message: message})
	if err == nil {
		resp.Body = body
	}
	return resp
}
