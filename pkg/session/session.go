// Package session multiplexes concurrent MCP client sessions over a single
// HTTP endpoint. It defines the Registry that maps session identifiers to
// live transports, the Router that dispatches each request to the right
// transport (or bootstraps a new one on initialize), and the Transport
// contract the router drives.
package session

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"
)

// Transport is the message-framing layer owned by exactly one session.
type Transport interface {
	// ServeHTTP hands one HTTP request to the session's protocol engine.
	// The transport writes the response, which may be a single reply or a
	// server-sent event stream.
	http.Handler

	// Done is closed once the transport has shut down, whether by explicit
	// termination, connection loss, or server shutdown.
	Done() <-chan struct{}

	// Close terminates the transport. It is safe to call more than once.
	Close() error
}

// TransportFactory constructs the transport for a freshly issued session ID.
type TransportFactory interface {
	NewTransport(ctx context.Context, sessionID string) (Transport, error)
}

// TransportFactoryFunc adapts a function to the TransportFactory interface.
type TransportFactoryFunc func(ctx context.Context, sessionID string) (Transport, error)

// NewTransport calls f(ctx, sessionID).
func (f TransportFactoryFunc) NewTransport(ctx context.Context, sessionID string) (Transport, error) {
	return f(ctx, sessionID)
}

// Session is a live, identified conversation between one client and the
// server, backed by a single transport.
type Session struct {
	// ID is the server-generated session identifier.
	ID string

	// Transport carries the session's protocol traffic.
	Transport Transport

	// CreatedAt is when the session was registered.
	CreatedAt time.Time

	lastActive atomic.Int64
	inflight   atomic.Int32
}

// newSession creates a Session stamped with the current time.
func newSession(id string, t Transport) *Session {
	now := time.Now()
	s := &Session{
		ID:        id,
		Transport: t,
		CreatedAt: now,
	}
	s.lastActive.Store(now.UnixNano())
	return s
}

// LastActive returns the time the session last started handling a request.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// InFlight returns the number of requests currently being served.
func (s *Session) InFlight() int {
	return int(s.inflight.Load())
}

// begin marks the start of a request and returns the matching end func.
func (s *Session) begin() func() {
	s.lastActive.Store(time.Now().UnixNano())
	s.inflight.Add(1)
	return func() {
		s.inflight.Add(-1)
		s.lastActive.Store(time.Now().UnixNano())
	}
}
