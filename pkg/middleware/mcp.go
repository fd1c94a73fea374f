package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hatif03/algorand-mcp/pkg/registry"
	"github.com/hatif03/algorand-mcp/pkg/toolkit"
)

// MCP method names used across middleware.
const (
	methodToolsCall = "tools/call"
	methodToolsList = "tools/list"
)

// slog keys shared by the middleware.
const (
	slogKeyError     = "error"
	slogKeySessionID = "session_id"
	slogKeyTool      = "tool"
)

// ToolkitResolver maps a tool name to the toolkit that provides it.
type ToolkitResolver interface {
	GetToolkitForTool(toolName string) registry.ToolkitMatch
}

// MCPToolCallMiddleware creates MCP protocol-level middleware that intercepts
// tools/call requests and attaches a CallContext describing the call. It must
// be the outermost tools/call middleware so that logging and metrics see the
// context and its results.
//
// After the handler returns, the context's Success, ErrorMessage and Duration
// fields are filled from the result.
func MCPToolCallMiddleware(resolver ToolkitResolver) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			toolName, err := extractToolName(req)
			if err != nil {
				return toolkit.ErrorResult(fmt.Sprintf("invalid request: %v", err)), nil
			}

			cc := NewCallContext(uuid.NewString())
			cc.ToolName = toolName
			cc.SessionID = sessionID(req)
			if resolver != nil {
				if match := resolver.GetToolkitForTool(toolName); match.Found {
					cc.ToolkitKind = match.Kind
					cc.ToolkitName = match.Name
				}
			}
			ctx = WithCallContext(ctx, cc)

			result, err := next(ctx, method, req)
			recordOutcome(cc, result, err)
			return result, err
		}
	}
}

// recordOutcome copies the handler outcome into cc.
func recordOutcome(cc *CallContext, result mcp.Result, err error) {
	cc.Duration = time.Since(cc.StartTime)
	cc.Success = err == nil
	cc.ErrorMessage = ""
	if err != nil {
		cc.ErrorMessage = err.Error()
		return
	}
	if callResult, ok := result.(*mcp.CallToolResult); ok && callResult != nil && callResult.IsError {
		cc.Success = false
		cc.ErrorMessage = toolkit.ErrorMessage(callResult)
	}
}

// extractToolName extracts the tool name from a tools/call request.
func extractToolName(req mcp.Request) (string, error) {
	if req == nil {
		return "", errors.New("missing params")
	}
	params := req.GetParams()
	if params == nil {
		return "", errors.New("missing params")
	}

	callParams, ok := params.(*mcp.CallToolParamsRaw)
	if !ok {
		return "", fmt.Errorf("unexpected params type: %T", params)
	}

	// Check if the pointer itself is nil (type assertion can succeed with nil pointer)
	if callParams == nil {
		return "", errors.New("missing params")
	}

	if callParams.Name == "" {
		return "", errors.New("missing tool name")
	}

	return callParams.Name, nil
}

// sessionID returns the id of the session that sent req, if any.
func sessionID(req mcp.Request) string {
	if req == nil {
		return ""
	}
	session := req.GetSession()
	if session == nil {
		return ""
	}
	// A typed nil *ServerSession inside the interface would panic on ID.
	if ss, ok := session.(*mcp.ServerSession); ok && ss == nil {
		return ""
	}
	return session.ID()
}
