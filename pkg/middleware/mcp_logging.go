package middleware

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPLoggingMiddleware creates MCP protocol-level middleware that writes one
// structured log line per tools/call. Successful calls log at info, tool
// errors at warn and protocol errors at error.
//
// It reads the CallContext set by MCPToolCallMiddleware and logs nothing
// when none is present.
func MCPLoggingMiddleware() mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			result, err := next(ctx, method, req)

			if cc := GetCallContext(ctx); cc != nil {
				logToolCall(ctx, cc, result, err)
			}
			return result, err
		}
	}
}

func logToolCall(ctx context.Context, cc *CallContext, result mcp.Result, err error) {
	// The outer middleware fills the outcome after we return, so compute it
	// here from the raw handler result.
	outcome := *cc
	recordOutcome(&outcome, result, err)

	attrs := []any{
		slogKeyTool, outcome.ToolName,
		"toolkit", outcome.ToolkitKind,
		slogKeySessionID, outcome.SessionID,
		"request_id", outcome.RequestID,
		"duration_ms", outcome.Duration.Milliseconds(),
		"success", outcome.Success,
	}

	switch {
	case err != nil:
		slog.ErrorContext(ctx, "tool call failed", append(attrs, slogKeyError, outcome.ErrorMessage)...)
	case !outcome.Success:
		slog.WarnContext(ctx, "tool call returned error", append(attrs, slogKeyError, outcome.ErrorMessage)...)
	default:
		slog.InfoContext(ctx, "tool call", attrs...)
	}
}
