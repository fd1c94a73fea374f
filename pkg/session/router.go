package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

const (
	// SessionIDHeader is the MCP session header name.
	SessionIDHeader = "Mcp-Session-Id"

	// DefaultMaxBodyBytes bounds the initialize body the router inspects.
	DefaultMaxBodyBytes int64 = 2 << 20

	// defaultReapInterval is how often idle sessions are checked when an
	// idle timeout is configured without an explicit interval.
	defaultReapInterval = time.Minute

	methodInitialize = "initialize"

	slogKeyError     = "error"
	slogKeySessionID = "session_id"
)

// JSON-RPC error codes written by the router.
const (
	codeBadRequest      = -32000
	codeSessionNotFound = -32001
	codeInternalError   = -32603
)

const (
	msgNoSession       = "Bad Request: No valid session ID provided"
	msgSessionNotFound = "Session not found"
	msgBodyTooLarge    = "Bad Request: request body too large"
	msgInternalError   = "Internal server error"
	msgShuttingDown    = "Server is shutting down"
	msgMethodNotAllow  = "Method not allowed"
)

// RouterConfig configures a Router.
type RouterConfig struct {
	// Registry holds the live sessions. A fresh registry is created when nil.
	Registry *Registry

	// Metrics records lifecycle counters. Optional.
	Metrics *Metrics

	// MaxBodyBytes bounds the body read while checking for initialize.
	MaxBodyBytes int64

	// IdleTimeout closes sessions with no traffic for this long. Zero
	// disables idle reaping.
	IdleTimeout time.Duration

	// ReapInterval is how often idle sessions are checked.
	ReapInterval time.Duration

	// NewID generates session IDs. Defaults to random UUIDs.
	NewID func() string
}

// Router dispatches MCP HTTP requests to per-session transports. Requests
// carrying a session ID are routed to that session; initialize requests
// without one bootstrap a new session.
type Router struct {
	factory  TransportFactory
	registry *Registry
	metrics  *Metrics
	maxBody  int64
	newID    func() string

	baseCtx context.Context
	cancel  context.CancelFunc

	// mu guards closed and every watchers.Add, so nothing is admitted or
	// tracked once Close has begun waiting.
	mu       sync.Mutex
	closed   bool
	watchers sync.WaitGroup

	reaperDone chan struct{}
	closeOnce  sync.Once
}

// NewRouter creates a Router that builds transports with factory.
func NewRouter(factory TransportFactory, cfg RouterConfig) *Router {
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	ctx, cancel := context.WithCancel(context.Background())
	rt := &Router{
		factory:  factory,
		registry: cfg.Registry,
		metrics:  cfg.Metrics,
		maxBody:  cfg.MaxBodyBytes,
		newID:    cfg.NewID,
		baseCtx:  ctx,
		cancel:   cancel,
	}

	if cfg.IdleTimeout > 0 {
		interval := cfg.ReapInterval
		if interval <= 0 {
			interval = defaultReapInterval
		}
		rt.startReaper(cfg.IdleTimeout, interval)
	}
	return rt
}

// Registry returns the router's session registry.
func (rt *Router) Registry() *Registry {
	return rt.registry
}

// ServeHTTP dispatches the request based on method and session state.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tw := &trackingWriter{ResponseWriter: w}
	defer rt.recoverPanic(tw, r)

	switch r.Method {
	case http.MethodPost:
		rt.handlePost(tw, r)
	case http.MethodGet, http.MethodDelete:
		rt.handleSessionRequest(tw, r)
	default:
		tw.Header().Set("Allow", "GET, POST, DELETE")
		writeRPCError(tw, http.StatusMethodNotAllowed, codeBadRequest, msgMethodNotAllow)
	}
}

// handlePost routes client-to-server messages, creating a session when the
// body is an initialize request without a session ID.
func (rt *Router) handlePost(w *trackingWriter, r *http.Request) {
	if id := r.Header.Get(SessionIDHeader); id != "" {
		sess, ok := rt.lookup(w, id)
		if !ok || !rt.validHeaders(w, r) {
			return
		}
		rt.serve(w, r, sess)
		return
	}

	body, err := readBody(w, r, rt.maxBody)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			rt.metrics.requestRejected(reasonInvalidBody)
			writeRPCError(w, http.StatusRequestEntityTooLarge, codeBadRequest, msgBodyTooLarge)
			return
		}
		rt.metrics.requestRejected(reasonInvalidBody)
		writeRPCError(w, http.StatusBadRequest, codeBadRequest, msgNoSession)
		return
	}

	if !IsInitializeRequest(body) {
		rt.metrics.requestRejected(reasonMissingSession)
		writeRPCError(w, http.StatusBadRequest, codeBadRequest, msgNoSession)
		return
	}

	if !rt.validHeaders(w, r) {
		return
	}
	rt.bootstrap(w, r)
}

// handleSessionRequest serves GET streams and DELETE terminations, both of
// which require an existing session.
func (rt *Router) handleSessionRequest(w *trackingWriter, r *http.Request) {
	id := r.Header.Get(SessionIDHeader)
	if id == "" {
		rt.metrics.requestRejected(reasonMissingSession)
		writeRPCError(w, http.StatusBadRequest, codeBadRequest, msgNoSession)
		return
	}

	sess, ok := rt.lookup(w, id)
	if !ok || !rt.validHeaders(w, r) {
		return
	}

	if r.Method == http.MethodDelete {
		rt.terminate(w, r, sess)
		return
	}
	rt.serve(w, r, sess)
}

// lookup resolves id, writing a not-found error when it is unknown.
func (rt *Router) lookup(w *trackingWriter, id string) (*Session, bool) {
	sess, ok := rt.registry.Lookup(id)
	if !ok {
		rt.metrics.requestRejected(reasonUnknownSession)
		writeRPCError(w, http.StatusNotFound, codeSessionNotFound, msgSessionNotFound)
		return nil, false
	}
	return sess, true
}

// validHeaders writes a JSON-RPC error and returns false when the request
// headers are unacceptable to the streamable transport.
func (rt *Router) validHeaders(w *trackingWriter, r *http.Request) bool {
	herr := checkHeaders(r)
	if herr == nil {
		return true
	}
	rt.metrics.requestRejected(reasonInvalidHeader)
	writeRPCError(w, herr.status, codeBadRequest, herr.message)
	return false
}

// bootstrap creates a transport for a new session and hands it the
// initialize request. The session is registered only once the transport
// answers with a 2xx status carrying the new session ID, just before that
// header reaches the client. A refused initialize leaves the registry
// untouched and its transport closed.
func (rt *Router) bootstrap(w *trackingWriter, r *http.Request) {
	if !rt.enter() {
		rt.metrics.requestRejected(reasonShuttingDown)
		writeRPCError(w, http.StatusServiceUnavailable, codeBadRequest, msgShuttingDown)
		return
	}
	defer rt.watchers.Done()

	id := rt.newID()

	t, err := rt.factory.NewTransport(rt.baseCtx, id)
	if err != nil {
		slog.Error("session: failed to create transport", slogKeySessionID, id, slogKeyError, err)
		rt.metrics.requestRejected(reasonInternal)
		writeRPCError(w, http.StatusInternalServerError, codeInternalError, msgInternalError)
		return
	}

	var end func()
	w.onHeader = func(status int, h http.Header) {
		if status < http.StatusOK || status >= http.StatusMultipleChoices || h.Get(SessionIDHeader) != id {
			return
		}
		if sess := rt.admit(id, t); sess != nil {
			end = sess.begin()
		}
	}
	defer func() {
		w.onHeader = nil
		if end != nil {
			end()
			return
		}
		rt.discard(id, t, w.Status())
	}()

	t.ServeHTTP(w, r)
}

// enter reserves a slot for a bootstrap so that Close waits for it. It
// fails once the router is closed.
func (rt *Router) enter() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.closed {
		return false
	}
	rt.watchers.Add(1)
	return true
}

// admit registers t under id and starts watching for its closure, unless
// the router has been closed in the meantime.
func (rt *Router) admit(id string, t Transport) *Session {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.closed {
		return nil
	}
	sess := rt.registry.Register(id, t)
	rt.metrics.sessionCreated()
	rt.watch(sess)

	slog.Debug("session: created", slogKeySessionID, id)
	return sess
}

// discard closes the transport of an initialize that did not produce a
// registered session.
func (rt *Router) discard(id string, t Transport, status int) {
	if err := t.Close(); err != nil {
		slog.Debug("session: close of unadmitted transport failed", slogKeySessionID, id, slogKeyError, err)
	}
	rt.metrics.requestRejected(reasonInitRejected)
	slog.Debug("session: initialize not admitted", slogKeySessionID, id, "status", status)
}

// serve hands the request to the session's transport.
func (rt *Router) serve(w http.ResponseWriter, r *http.Request, sess *Session) {
	end := sess.begin()
	defer end()

	sess.Transport.ServeHTTP(w, r)
}

// terminate closes the session's transport and waits for it to report
// closure before acknowledging.
func (rt *Router) terminate(w *trackingWriter, r *http.Request, sess *Session) {
	if err := sess.Transport.Close(); err != nil {
		slog.Warn("session: close failed", slogKeySessionID, sess.ID, slogKeyError, err)
	}

	select {
	case <-sess.Transport.Done():
		rt.release(sess)
	case <-r.Context().Done():
		return
	}

	slog.Debug("session: terminated by client", slogKeySessionID, sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

// watch releases sess once its transport reports closure. Callers hold
// rt.mu.
func (rt *Router) watch(sess *Session) {
	rt.watchers.Add(1)
	go func() {
		defer rt.watchers.Done()
		<-sess.Transport.Done()
		rt.release(sess)
	}()
}

// release removes a closed session. Only the first call for a given
// session has any effect.
func (rt *Router) release(sess *Session) {
	if !rt.registry.Release(sess) {
		return
	}
	rt.metrics.sessionClosed()
	slog.Debug("session: closed", slogKeySessionID, sess.ID)
}

// recoverPanic converts a panic while dispatching into a 500 response.
func (rt *Router) recoverPanic(w *trackingWriter, r *http.Request) {
	v := recover()
	if v == nil {
		return
	}
	if v == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity as net/http does
		panic(v)
	}

	slog.Error("session: panic while dispatching",
		slogKeySessionID, r.Header.Get(SessionIDHeader),
		slogKeyError, fmt.Sprint(v),
	)
	rt.metrics.requestRejected(reasonInternal)
	writeRPCError(w, http.StatusInternalServerError, codeInternalError, msgInternalError)
}

// Close stops admitting sessions, terminates every live one and waits until
// each has been released and every pending initialize has finished, or ctx
// expires.
func (rt *Router) Close(ctx context.Context) error {
	rt.mu.Lock()
	rt.closed = true
	rt.mu.Unlock()

	rt.closeOnce.Do(func() {
		rt.cancel()
		if rt.reaperDone != nil {
			<-rt.reaperDone
		}
	})

	for _, sess := range rt.registry.snapshot() {
		if err := sess.Transport.Close(); err != nil {
			slog.Warn("session: close on shutdown failed", slogKeySessionID, sess.ID, slogKeyError, err)
		}
	}

	done := make(chan struct{})
	go func() {
		rt.watchers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for sessions to close: %w", ctx.Err())
	}
}

// IsInitializeRequest reports whether body is a single JSON-RPC request
// (not a notification) for the initialize method.
func IsInitializeRequest(body []byte) bool {
	msg, err := jsonrpc.DecodeMessage(body)
	if err != nil {
		return false
	}
	req, ok := msg.(*jsonrpc.Request)
	if !ok {
		return false
	}
	var zeroID jsonrpc.ID
	return req.Method == methodInitialize && req.ID != zeroID
}

// readBody reads at most limit bytes and restores r.Body for the transport.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.ContentLength = int64(len(body))
	return body, nil
}

// rpcError is the JSON-RPC error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpcErrorResponse is the JSON-RPC envelope for router-level failures.
type rpcErrorResponse struct {
	JSONRPC string   `json:"jsonrpc"`
	Error   rpcError `json:"error"`
	ID      any      `json:"id"`
}

// writeRPCError writes a JSON-RPC error unless a response has already
// been started on w.
func writeRPCError(w *trackingWriter, status, code int, message string) {
	if w.Started() {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rpcErrorResponse{
		JSONRPC: "2.0",
		Error:   rpcError{Code: code, Message: message},
		ID:      nil,
	})
}
