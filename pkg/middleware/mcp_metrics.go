package middleware

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "algorand_mcp"

// Tool call outcomes reported on the calls counter.
const (
	outcomeSuccess   = "success"
	outcomeToolError = "tool_error"
	outcomeError     = "error"
)

// Metrics records per-tool call counts and latencies. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates tool call metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "tools",
			Name:      "calls_total",
			Help:      "Tool calls by tool, toolkit and outcome.",
		}, []string{"tool", "toolkit", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "tools",
			Name:      "call_duration_seconds",
			Help:      "Tool call latency in seconds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"tool", "toolkit"}),
	}
	reg.MustRegister(m.calls, m.duration)
	return m
}

func (m *Metrics) observe(tool, toolkit, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(tool, toolkit, outcome).Inc()
	m.duration.WithLabelValues(tool, toolkit).Observe(d.Seconds())
}

// MCPMetricsMiddleware creates MCP protocol-level middleware that records
// each tools/call in m. Calls without a CallContext are labelled by an
// empty tool name.
func MCPMetricsMiddleware(m *Metrics) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		if m == nil {
			return next
		}

		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			start := time.Now()
			result, err := next(ctx, method, req)

			var tool, kind string
			if cc := GetCallContext(ctx); cc != nil {
				tool, kind = cc.ToolName, cc.ToolkitKind
			}
			m.observe(tool, kind, callOutcome(result, err), time.Since(start))
			return result, err
		}
	}
}

func callOutcome(result mcp.Result, err error) string {
	if err != nil {
		return outcomeError
	}
	if callResult, ok := result.(*mcp.CallToolResult); ok && callResult != nil && callResult.IsError {
		return outcomeToolError
	}
	return outcomeSuccess
}
