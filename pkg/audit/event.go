package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const redacted = "[REDACTED]"

// sensitiveKeys are parameter names whose values never reach the trail.
var sensitiveKeys = map[string]bool{
	"password":    true,
	"mnemonic":    true,
	"secret":      true,
	"token":       true,
	"api_key":     true,
	"private_key": true,
	"secret_key":  true,
	"passphrase":  true,
}

// NewEvent creates an event for toolName stamped with the current time.
func NewEvent(toolName string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		ToolName:  toolName,
	}
}

// WithRequest sets the request and session ids.
func (e *Event) WithRequest(requestID, sessionID string) *Event {
	e.RequestID = requestID
	e.SessionID = sessionID
	return e
}

// WithToolkit sets the toolkit that served the call.
func (e *Event) WithToolkit(kind, name string) *Event {
	e.ToolkitKind = kind
	e.ToolkitName = name
	return e
}

// WithParameters sets the call arguments with sensitive values redacted.
func (e *Event) WithParameters(params map[string]any) *Event {
	e.Parameters = SanitizeParameters(params)
	return e
}

// WithResult sets the call outcome.
func (e *Event) WithResult(success bool, errorMsg string, duration time.Duration) *Event {
	e.Success = success
	e.ErrorMessage = errorMsg
	e.DurationMS = duration.Milliseconds()
	return e
}

// SanitizeParameters returns a copy of params with sensitive values
// replaced. Keys match case-insensitively.
func SanitizeParameters(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		if sensitiveKeys[strings.ToLower(k)] {
			sanitized[k] = redacted
			continue
		}
		sanitized[k] = v
	}
	return sanitized
}
