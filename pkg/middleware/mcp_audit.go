package middleware

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hatif03/algorand-mcp/pkg/audit"
)

// MCPAuditMiddleware creates MCP protocol-level middleware that records
// every tools/call in the audit trail. Arguments are stored with sensitive
// values redacted. Events are written asynchronously so a slow store never
// delays the response.
//
// It reads the CallContext set by MCPToolCallMiddleware and records nothing
// when none is present or logger is nil.
func MCPAuditMiddleware(logger audit.Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall || logger == nil {
				return next(ctx, method, req)
			}

			result, err := next(ctx, method, req)

			cc := GetCallContext(ctx)
			if cc == nil {
				return result, err
			}

			event := buildAuditEvent(cc, req, result, err)
			go func() {
				if logErr := logger.Log(context.WithoutCancel(ctx), event); logErr != nil {
					slog.Warn("audit: recording tool call", slogKeyTool, event.ToolName, slogKeyError, logErr)
				}
			}()
			return result, err
		}
	}
}

func buildAuditEvent(cc *CallContext, req mcp.Request, result mcp.Result, err error) audit.Event {
	outcome := *cc
	recordOutcome(&outcome, result, err)

	e := audit.NewEvent(outcome.ToolName).
		WithRequest(outcome.RequestID, outcome.SessionID).
		WithToolkit(outcome.ToolkitKind, outcome.ToolkitName).
		WithParameters(callArguments(req)).
		WithResult(outcome.Success, outcome.ErrorMessage, outcome.Duration)
	e.Timestamp = outcome.StartTime.UTC()
	return *e
}

// callArguments decodes the arguments of a tools/call request. Non-object
// or malformed arguments yield nil.
func callArguments(req mcp.Request) map[string]any {
	if req == nil {
		return nil
	}
	params, ok := req.GetParams().(*mcp.CallToolParamsRaw)
	if !ok || params == nil || len(params.Arguments) == 0 {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return nil
	}
	return args
}
