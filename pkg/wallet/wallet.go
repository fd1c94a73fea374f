// Package wallet stores Algorand account mnemonics encrypted under a
// user-supplied password.
package wallet

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when deleting a wallet that does not exist.
var ErrNotFound = errors.New("wallet not found")

// Wallet is a named, encrypted mnemonic and the address it controls.
type Wallet struct {
	Name      string
	Address   string
	Sealed    Sealed
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists wallets.
type Store interface {
	// Put creates or replaces the wallet with w.Name.
	Put(ctx context.Context, w *Wallet) error

	// Get returns the named wallet, or nil, nil if it does not exist.
	Get(ctx context.Context, name string) (*Wallet, error)

	// List returns all wallets ordered by name.
	List(ctx context.Context) ([]Wallet, error)

	// Delete removes the named wallet. Returns ErrNotFound if absent.
	Delete(ctx context.Context, name string) error

	// Close releases resources.
	Close() error
}
