// Package postgres provides PostgreSQL storage for encrypted wallets.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/hatif03/algorand-mcp/pkg/wallet"
)

const walletsTable = "wallets"

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// walletColumns lists columns returned by wallet SELECT queries.
var walletColumns = []string{
	"name", "address", "ciphertext", "nonce", "salt", "created_at", "updated_at",
}

// upsertSuffix replaces an existing wallet while keeping its created_at.
const upsertSuffix = `ON CONFLICT (name) DO UPDATE SET
	address = EXCLUDED.address,
	ciphertext = EXCLUDED.ciphertext,
	nonce = EXCLUDED.nonce,
	salt = EXCLUDED.salt,
	updated_at = EXCLUDED.updated_at`

// Store implements wallet.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL wallet store. The schema is managed by the
// migrate package.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Put creates or replaces a wallet.
func (s *Store) Put(ctx context.Context, w *wallet.Wallet) error {
	now := time.Now().UTC()
	query, args, err := psq.Insert(walletsTable).
		Columns(walletColumns...).
		Values(w.Name, w.Address, w.Sealed.Ciphertext, w.Sealed.Nonce, w.Sealed.Salt, now, now).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("building wallet upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting wallet: %w", err)
	}
	return nil
}

// Get retrieves a wallet by name. Returns nil, nil if not found.
func (s *Store) Get(ctx context.Context, name string) (*wallet.Wallet, error) {
	query, args, err := psq.Select(walletColumns...).
		From(walletsTable).
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building wallet query: %w", err)
	}

	w, err := scanWallet(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil, nil signals not found per Store interface
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// List returns all wallets ordered by name.
func (s *Store) List(ctx context.Context) ([]wallet.Wallet, error) {
	query, args, err := psq.Select(walletColumns...).
		From(walletsTable).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building wallet list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var wallets []wallet.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating wallet rows: %w", err)
	}
	return wallets, nil
}

// Delete removes a wallet.
func (s *Store) Delete(ctx context.Context, name string) error {
	query, args, err := psq.Delete(walletsTable).
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building wallet delete: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting wallet: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deleted rows: %w", err)
	}
	if n == 0 {
		return wallet.ErrNotFound
	}
	return nil
}

// Close is a no-op; the caller owns the database handle.
func (*Store) Close() error {
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWallet(row scanner) (*wallet.Wallet, error) {
	var w wallet.Wallet
	err := row.Scan(
		&w.Name, &w.Address,
		&w.Sealed.Ciphertext, &w.Sealed.Nonce, &w.Sealed.Salt,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows //nolint:wrapcheck // sentinel checked by Get
	}
	if err != nil {
		return nil, fmt.Errorf("scanning wallet: %w", err)
	}
	return &w, nil
}

// Verify interface compliance.
var _ wallet.Store = (*Store)(nil)
