package middleware

import (
	"context"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hatif03/algorand-mcp/pkg/toolkit"
)

// MCPToolVisibilityMiddleware creates MCP protocol-level middleware that
// applies allow/deny glob patterns to tools. Hidden tools are removed from
// tools/list responses and calls to them are answered with a tool error
// without reaching the handler.
func MCPToolVisibilityMiddleware(allow, deny []string) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		if len(allow) == 0 && len(deny) == 0 {
			return next
		}

		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method == methodToolsCall {
				if name, err := extractToolName(req); err == nil && !IsToolVisible(name, allow, deny) {
					return toolkit.ErrorResultf("tool %q is disabled on this server", name), nil
				}
			}

			result, err := next(ctx, method, req)
			if err != nil {
				return result, err
			}
			return filterToolVisibility(allow, deny, method, result), nil
		}
	}
}

// filterToolVisibility filters tools from a tools/list response based on
// allow/deny patterns. Non-tools/list methods pass through unchanged.
func filterToolVisibility(allow, deny []string, method string, result mcp.Result) mcp.Result {
	if method != methodToolsList {
		return result
	}

	listResult, ok := result.(*mcp.ListToolsResult)
	if !ok || listResult == nil {
		return result
	}

	filtered := make([]*mcp.Tool, 0, len(listResult.Tools))
	for _, tool := range listResult.Tools {
		if IsToolVisible(tool.Name, allow, deny) {
			filtered = append(filtered, tool)
		}
	}
	listResult.Tools = filtered

	return listResult
}

// IsToolVisible determines whether a tool is exposed based on allow/deny
// glob patterns. Semantics:
//   - No patterns configured: all tools visible
//   - Allow only: only matching tools pass
//   - Deny only: all pass except denied
//   - Both: allow first, then deny removes from that set
//   - Invalid glob patterns are treated as non-matching (silent skip)
func IsToolVisible(name string, allow, deny []string) bool {
	if len(allow) == 0 && len(deny) == 0 {
		return true
	}

	visible := len(allow) == 0

	for _, pattern := range allow {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			visible = true
			break
		}
	}

	if !visible {
		return false
	}

	for _, pattern := range deny {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return false
		}
	}

	return true
}
