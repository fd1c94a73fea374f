package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpmw "github.com/hatif03/algorand-mcp/pkg/http"
)

const (
	// MCPPath is where the session router is mounted.
	MCPPath = "/mcp"

	defaultReadHeaderTimeout = 10 * time.Second
)

// ErrNoRouter is returned when HTTP serving is requested on a platform
// configured for the stdio transport.
var ErrNoRouter = errors.New("session router not configured: server.transport is not http")

// Handler returns the HTTP surface: health checks, the MCP endpoint and,
// when enabled, Prometheus metrics.
func (p *Platform) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /healthz", p.health.LivenessHandler())
	mux.Handle("GET /readyz", p.health.ReadinessHandler())

	if p.metricsRegistry != nil {
		mux.Handle("GET "+p.metricsPath(), promhttp.HandlerFor(p.metricsRegistry, promhttp.HandlerOpts{}))
	}

	if p.router != nil {
		cors := httpmw.CORSMiddleware(p.config.Server.CORS.AllowedOrigins)
		gate := httpmw.APIKeyGate(p.config.Auth.APIKeys)
		mux.Handle(MCPPath, cors(gate(p.router)))
	}

	return mux
}

// ListenAndServe listens on the configured address and serves until ctx
// ends.
func (p *Platform) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", p.config.Server.Address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", p.config.Server.Address, err)
	}
	return p.Serve(ctx, ln)
}

// Serve starts the gateway and serves HTTP on ln until ctx ends, then
// drains: readiness reports draining, every session is closed and the
// HTTP server shuts down within the configured timeout.
func (p *Platform) Serve(ctx context.Context, ln net.Listener) error {
	if p.router == nil {
		_ = ln.Close()
		return ErrNoRouter
	}

	srv := &http.Server{
		Handler:           p.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	if err := p.Start(ctx); err != nil {
		_ = ln.Close()
		return fmt.Errorf("starting platform: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	slog.Info("platform: listening", "address", ln.Addr().String(), "path", MCPPath)

	select {
	case <-ctx.Done():
		return p.shutdown(srv)
	case err := <-serveErr:
		stopErr := p.stopWithTimeout()
		if errors.Is(err, http.ErrServerClosed) {
			return stopErr
		}
		return errors.Join(fmt.Errorf("serve http: %w", err), stopErr)
	}
}

// shutdown closes sessions before the HTTP server so that open event
// streams end and Shutdown can finish.
func (p *Platform) shutdown(srv *http.Server) error {
	ids := p.router.Registry().IDs()
	slog.Info("platform: shutting down", "sessions", len(ids))
	slog.Debug("platform: closing sessions", "session_ids", ids)

	ctx, cancel := context.WithTimeout(context.Background(), p.shutdownTimeout())
	defer cancel()

	var errs []error
	if err := p.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	return errors.Join(errs...)
}

// RunStdio serves a single MCP session over stdin/stdout until ctx ends or
// the client disconnects.
func (p *Platform) RunStdio(ctx context.Context) error {
	return p.run(ctx, &mcp.StdioTransport{})
}

// run serves one session on t between Start and Stop.
func (p *Platform) run(ctx context.Context, t mcp.Transport) error {
	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("starting platform: %w", err)
	}

	runErr := p.mcpServer.Run(ctx, t)
	stopErr := p.stopWithTimeout()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return errors.Join(fmt.Errorf("running server: %w", runErr), stopErr)
	}
	return stopErr
}

func (p *Platform) stopWithTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.shutdownTimeout())
	defer cancel()
	return p.Stop(ctx)
}

func (p *Platform) shutdownTimeout() time.Duration {
	if p.config.Server.ShutdownTimeout > 0 {
		return p.config.Server.ShutdownTimeout
	}
	return defaultShutdownTimeout
}

func (p *Platform) metricsPath() string {
	if p.config.Metrics.Path != "" {
		return p.config.Metrics.Path
	}
	return defaultMetricsPath
}
