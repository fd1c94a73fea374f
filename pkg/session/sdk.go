package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SDKFactory builds session transports backed by the MCP SDK's streamable
// HTTP server transport, each connected to a shared *mcp.Server.
type SDKFactory struct {
	server *mcp.Server
}

// NewSDKFactory creates a factory that connects new sessions to server.
func NewSDKFactory(server *mcp.Server) *SDKFactory {
	return &SDKFactory{server: server}
}

// NewTransport creates a streamable transport bound to sessionID and starts
// a server session on it. ctx should outlive individual HTTP requests.
func (f *SDKFactory) NewTransport(ctx context.Context, sessionID string) (Transport, error) {
	st := &mcp.StreamableServerTransport{SessionID: sessionID}

	ss, err := f.server.Connect(ctx, st, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting server session: %w", err)
	}

	t := &sdkTransport{
		inner:   st,
		session: ss,
		done:    make(chan struct{}),
	}
	go t.wait()
	return t, nil
}

// sdkTransport adapts an SDK server session to the Transport interface.
type sdkTransport struct {
	inner   *mcp.StreamableServerTransport
	session *mcp.ServerSession
	done    chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// wait blocks until the server session ends, then signals Done.
func (t *sdkTransport) wait() {
	if err := t.session.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Debug("session: server session ended", slogKeySessionID, t.session.ID(), slogKeyError, err)
	}
	close(t.done)
}

func (t *sdkTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.inner.ServeHTTP(w, r)
}

// Done is closed when the server session has ended.
func (t *sdkTransport) Done() <-chan struct{} {
	return t.done
}

// Close ends the server session.
func (t *sdkTransport) Close() error {
	t.closeOnce.Do(func() {
		if err := t.session.Close(); err != nil {
			t.closeErr = fmt.Errorf("closing server session: %w", err)
		}
	})
	return t.closeErr
}

// Verify interface compliance.
var (
	_ TransportFactory = (*SDKFactory)(nil)
	_ Transport        = (*sdkTransport)(nil)
)
