package platform

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hatif03/algorand-mcp/pkg/audit"
	"github.com/hatif03/algorand-mcp/pkg/toolkit"
)

const (
	auditToolName     = "get_audit_log"
	defaultAuditLimit = 20
	maxAuditLimit     = 100
)

type auditLogInput struct {
	Tool         string `json:"tool,omitempty" jsonschema:"Only return calls to this tool"`
	FailuresOnly bool   `json:"failures_only,omitempty" jsonschema:"Only return calls that failed"`
	Limit        int    `json:"limit,omitempty" jsonschema:"Maximum number of calls to return (default 20, max 100)"`
}

type auditLogOutput struct {
	Calls []audit.Event `json:"calls"`
}

// registerAuditTool registers get_audit_log when auditing is enabled.
func (p *Platform) registerAuditTool() {
	if p.auditLogger == nil {
		return
	}
	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name: auditToolName,
		Description: "List recent tool calls made in this session, newest first, with sensitive " +
			"arguments such as passwords and mnemonics redacted.",
	}, p.handleAuditLog)
}

func (p *Platform) handleAuditLog(ctx context.Context, req *mcp.CallToolRequest, in auditLogInput) (*mcp.CallToolResult, any, error) {
	filter := audit.QueryFilter{
		ToolName: in.Tool,
		Limit:    clampAuditLimit(in.Limit),
	}
	// A stdio server has a single session whose id is empty; HTTP sessions
	// only ever see their own calls.
	if req != nil && req.Session != nil {
		filter.SessionID = req.Session.ID()
	}
	if in.FailuresOnly {
		failed := false
		filter.Success = &failed
	}

	events, err := p.auditLogger.Query(ctx, filter)
	if err != nil {
		return toolkit.ErrorResultf("querying audit log: %v", err), nil, nil
	}
	if events == nil {
		events = []audit.Event{}
	}
	return toolkit.JSONResult(auditLogOutput{Calls: events}), nil, nil
}

func clampAuditLimit(n int) int {
	switch {
	case n <= 0:
		return defaultAuditLimit
	case n > maxAuditLimit:
		return maxAuditLimit
	default:
		return n
	}
}
