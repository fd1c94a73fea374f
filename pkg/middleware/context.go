// Package middleware provides MCP protocol-level middleware for tool calls.
package middleware

import (
	"context"
	"time"
)

// contextKey is a private type for context keys.
type contextKey int

const callContextKey contextKey = iota

// CallContext describes a single tools/call request as it moves through the
// middleware chain.
type CallContext struct {
	// Request identification
	RequestID string
	SessionID string
	StartTime time.Time

	// Tool information
	ToolName    string
	ToolkitKind string
	ToolkitName string

	// Results (populated after handler)
	Success      bool
	ErrorMessage string
	Duration     time.Duration
}

// NewCallContext creates a call context stamped with the current time.
func NewCallContext(requestID string) *CallContext {
	return &CallContext{
		RequestID: requestID,
		StartTime: time.Now(),
	}
}

// WithCallContext adds a call context to ctx.
func WithCallContext(ctx context.Context, cc *CallContext) context.Context {
	return context.WithValue(ctx, callContextKey, cc)
}

// GetCallContext retrieves the call context, or nil if none is set.
func GetCallContext(ctx context.Context) *CallContext {
	if cc, ok := ctx.Value(callContextKey).(*CallContext); ok {
		return cc
	}
	return nil
}
