package audit

import (
	"context"
	"sync"
)

// DefaultMemoryCapacity is the number of events a MemoryLogger keeps when
// no capacity is given.
const DefaultMemoryCapacity = 1000

// MemoryLogger keeps the most recent events in a fixed-size ring.
type MemoryLogger struct {
	mu     sync.RWMutex
	events []Event
	next   int
	full   bool
}

// NewMemoryLogger creates a logger holding at most capacity events.
func NewMemoryLogger(capacity int) *MemoryLogger {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryLogger{events: make([]Event, capacity)}
}

// Log records event, evicting the oldest when the ring is full.
func (m *MemoryLogger) Log(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events[m.next] = event
	m.next = (m.next + 1) % len(m.events)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Query returns matching events, newest first.
func (m *MemoryLogger) Query(_ context.Context, filter QueryFilter) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	size := len(m.events)
	n := m.next
	if m.full {
		n = size
	}

	var out []Event
	for i := range n {
		e := m.events[(m.next-1-i+size)%size]
		if !filter.Matches(e) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Close is a no-op.
func (*MemoryLogger) Close() error { return nil }

var _ Logger = (*MemoryLogger)(nil)
