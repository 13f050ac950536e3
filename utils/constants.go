package utils

import (
	"context"
	"time"
)

// SignatureRequestTTL is how long a signing link stays usable (7 days)
const SignatureRequestTTL = 7 * 24 * time.Hour

// Request handling
const (
	DefaultRequestTimeout = 10 * time.Second
	ExportRequestTimeout  = 60 * time.Second

	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Context keys shared by handlers, flows and audit logging
type contextKey string

const (
	RequestIDKey  contextKey = "request_id"
	UserAgentKey  contextKey = "user_agent"
	IPAddressKey  contextKey = "ip_address"
	EndpointKey   contextKey = "endpoint"
	TimeoutKey    contextKey = "timeout"
	OperatorIDKey contextKey = "operator_id"
)

// RequestIDFromContext returns the request id stored by the handlers, if any
func RequestIDFromContext(ctx context.Context) *string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok && v != "" {
		return &v
	}
	return nil
}
