// Package audit records a trail of tool calls.
package audit

import (
	"context"
	"time"
)

// Logger records and retrieves audit events.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, event Event) error

	// Query returns events matching the filter, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Close releases resources.
	Close() error
}

// Event is one recorded tool call.
type Event struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	DurationMS   int64          `json:"duration_ms"`
	RequestID    string         `json:"request_id"`
	SessionID    string         `json:"session_id,omitempty"`
	ToolName     string         `json:"tool_name"`
	ToolkitKind  string         `json:"toolkit_kind,omitempty"`
	ToolkitName  string         `json:"toolkit_name,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// QueryFilter selects audit events. Zero fields match everything.
type QueryFilter struct {
	SessionID string
	ToolName  string
	Success   *bool
	Since     *time.Time
	Limit     int
}

// Matches reports whether e satisfies the filter, ignoring Limit.
func (f QueryFilter) Matches(e Event) bool {
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if f.ToolName != "" && e.ToolName != f.ToolName {
		return false
	}
	if f.Success != nil && e.Success != *f.Success {
		return false
	}
	if f.Since != nil && e.Timestamp.Before(*f.Since) {
		return false
	}
	return true
}
