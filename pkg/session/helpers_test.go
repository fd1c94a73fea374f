package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testEndpoint       = "/mcp"
	testInitializeBody = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test","version":"0.0.1"}}}`
	testToolsListBody  = `{"jsonrpc":"2.0","id":2,"method":"tools/list","params":{}}`
	testInitNotifBody  = `{"jsonrpc":"2.0","method":"initialize","params":{}}`
	testAccept         = "application/json, text/event-stream"
)

// stubTransport records which requests it handled and echoes its session
// ID back the way a real transport would.
type stubTransport struct {
	id string

	mu     sync.Mutex
	bodies []string

	handle func(w http.ResponseWriter, r *http.Request)

	done      chan struct{}
	closeOnce sync.Once
	closes    int
}

func newStubTransport(id string) *stubTransport {
	return &stubTransport{id: id, done: make(chan struct{})}
}

func (s *stubTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.bodies = append(s.bodies, r.Method+" "+string(body))
	handle := s.handle
	s.mu.Unlock()

	if handle != nil {
		handle(w, r)
		return
	}
	w.Header().Set(SessionIDHeader, s.id)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
}

func (s *stubTransport) Done() <-chan struct{} {
	return s.done
}

func (s *stubTransport) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *stubTransport) handled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.bodies...)
}

func (s *stubTransport) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func (s *stubTransport) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// stubFactory hands out stub transports and remembers them by session ID.
type stubFactory struct {
	mu         sync.Mutex
	transports map[string]*stubTransport
	created    []string
	err        error
	configure  func(*stubTransport)

	// before runs ahead of each transport construction, outside the lock.
	before func()
}

func newStubFactory() *stubFactory {
	return &stubFactory{transports: make(map[string]*stubTransport)}
}

func (f *stubFactory) NewTransport(_ context.Context, sessionID string) (Transport, error) {
	if f.before != nil {
		f.before()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	t := newStubTransport(sessionID)
	if f.configure != nil {
		f.configure(t)
	}
	f.transports[sessionID] = t
	f.created = append(f.created, sessionID)
	return t, nil
}

func (f *stubFactory) transport(id string) *stubTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transports[id]
}

func (f *stubFactory) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

var errStubFactory = errors.New("stub factory failure")

func newTestRouter(t *testing.T, cfg RouterConfig) (*Router, *stubFactory) {
	t.Helper()
	factory := newStubFactory()
	rt := NewRouter(factory, cfg)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt, factory
}

func doRequest(rt http.Handler, method, sessionID, body string) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, testEndpoint, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", testAccept)
	if sessionID != "" {
		req.Header.Set(SessionIDHeader, sessionID)
	}
	w := httptest.NewRecorder()
	rt.ServeHTTP(w, req)
	return w
}

func initialize(t *testing.T, rt http.Handler) string {
	t.Helper()
	w := doRequest(rt, http.MethodPost, "", testInitializeBody)
	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(SessionIDHeader)
	require.NotEmpty(t, id)
	return id
}

func decodeRPCError(t *testing.T, w *httptest.ResponseRecorder) rpcErrorResponse {
	t.Helper()
	var resp rpcErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
