package session

import (
	"sort"
	"sync"
)

// Registry tracks live sessions keyed by session ID. It is safe for
// concurrent use; every operation is atomic in isolation.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Register inserts a session for id and returns it. A previous entry under
// the same id is replaced.
func (r *Registry) Register(id string, t Transport) *Session {
	sess := newSession(id, t)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[id] = sess
	return sess
}

// Lookup returns the session registered under id.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	return sess, ok
}

// Deregister removes whatever session is registered under id. Removing an
// unknown id is a no-op. It serves callers that hold only an id; closure
// handling uses Release instead.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
}

// Release removes sess only while it is still the entry for sess.ID, so
// the closure of a replaced session cannot evict its successor. It reports
// whether sess was removed.
func (r *Registry) Release(sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[sess.ID]; !ok || cur != sess {
		return false
	}
	delete(r.sessions, sess.ID)
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// IDs returns a sorted snapshot of the live session IDs.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// snapshot returns the live sessions without holding the lock afterwards.
func (r *Registry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	return out
}
