// Package toolkit provides shared result helpers for toolkit implementations.
// This package has zero internal dependencies so that every toolkit and the
// middleware layer can import it without cycles.
package toolkit

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrorResult returns a CallToolResult flagged as a tool error. The message
// is wrapped in a small JSON object so clients can parse it uniformly.
func ErrorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(`{"error": %q}`, msg)},
		},
		IsError: true,
	}
}

// ErrorResultf is ErrorResult with fmt.Sprintf formatting.
func ErrorResultf(format string, args ...any) *mcp.CallToolResult {
	return ErrorResult(fmt.Sprintf(format, args...))
}

// TextResult returns a successful result with a single text block.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// RawJSONResult returns upstream JSON verbatim, indented for readability.
// Invalid JSON is passed through unchanged.
func RawJSONResult(raw json.RawMessage) *mcp.CallToolResult {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return TextResult(string(raw))
	}
	return JSONResult(v)
}

// JSONResult marshals v as indented JSON into a text result.
func JSONResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ErrorResult("internal error marshaling response")
	}
	return TextResult(string(data))
}

// ErrorMessage extracts the message carried by an error result, or the
// empty string when result is not an error result.
func ErrorMessage(result *mcp.CallToolResult) string {
	if result == nil || !result.IsError || len(result.Content) == 0 {
		return ""
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		return ""
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(tc.Text), &body); err != nil || body.Error == "" {
		return tc.Text
	}
	return body.Error
}
