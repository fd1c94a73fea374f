// Package utility provides the echo and clock tools.
package utility

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hatif03/algorand-mcp/pkg/registry"
	"github.com/hatif03/algorand-mcp/pkg/toolkit"
)

const (
	// Kind is the toolkit kind.
	Kind = "utility"

	toolEcho           = "echo"
	toolGetCurrentTime = "get_current_time"

	defaultTimezone = "UTC"

	timeLayout = "Monday, January 2, 2006 at 03:04:05 PM MST"
)

type echoInput struct {
	Message string `json:"message" jsonschema:"Message to echo back"`
}

type currentTimeInput struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"IANA timezone identifier such as UTC or America/New_York"`
}

// Toolkit implements the utility toolkit.
type Toolkit struct {
	name string
	now  func() time.Time
}

// Verify interface compliance.
var _ registry.Toolkit = (*Toolkit)(nil)

// New creates a utility toolkit.
func New(name string) *Toolkit {
	return &Toolkit{name: name, now: time.Now}
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return Kind
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// RegisterTools registers the utility tools with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolEcho,
		Description: "Echoes back the input message",
	}, t.handleEcho)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolGetCurrentTime,
		Description: "Get the current time in a specified timezone",
	}, t.handleCurrentTime)
}

// Tools returns the list of tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	return []string{toolEcho, toolGetCurrentTime}
}

// Close releases resources.
func (*Toolkit) Close() error {
	return nil
}

func (*Toolkit) handleEcho(_ context.Context, _ *mcp.CallToolRequest, input echoInput) (*mcp.CallToolResult, any, error) {
	return toolkit.TextResult("Echo: " + input.Message), nil, nil
}

func (t *Toolkit) handleCurrentTime(_ context.Context, _ *mcp.CallToolRequest, input currentTimeInput) (*mcp.CallToolResult, any, error) {
	tz := input.Timezone
	if tz == "" {
		tz = defaultTimezone
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return toolkit.ErrorResultf("invalid timezone %q", tz), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return toolkit.TextResult("Current time in " + tz + ": " + t.now().In(loc).Format(timeLayout)), nil, nil
}
