package wallet

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store. Wallets are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	wallets map[string]Wallet
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{wallets: make(map[string]Wallet)}
}

// Put creates or replaces a wallet.
func (s *MemoryStore) Put(_ context.Context, w *Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	stored := *w
	stored.UpdatedAt = now
	if existing, ok := s.wallets[w.Name]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	s.wallets[w.Name] = stored
	return nil
}

// Get returns a copy of the named wallet, or nil, nil if absent.
func (s *MemoryStore) Get(_ context.Context, name string) (*Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[name]
	if !ok {
		return nil, nil //nolint:nilnil // nil, nil signals not found per Store interface
	}
	return &w, nil
}

// List returns all wallets ordered by name.
func (s *MemoryStore) List(_ context.Context) ([]Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes the named wallet.
func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wallets[name]; !ok {
		return ErrNotFound
	}
	delete(s.wallets, name)
	return nil
}

// Close is a no-op.
func (*MemoryStore) Close() error {
	return nil
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
