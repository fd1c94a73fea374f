//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/hatif03/algorand-mcp/pkg/database/migrate"
	"github.com/hatif03/algorand-mcp/pkg/wallet"
)

func TestStore_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx, "postgres:15",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	defer func() { _ = pgContainer.Terminate(ctx) }()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, migrate.Run(db))

	vault := wallet.NewVault(wallet.KDFParams{N: 1024})
	sealed, err := vault.Seal("secret words", "pw")
	require.NoError(t, err)

	store := New(db)
	require.NoError(t, store.Put(ctx, &wallet.Wallet{Name: pgTestName, Address: pgTestAddress, Sealed: sealed}))

	got, err := store.Get(ctx, pgTestName)
	require.NoError(t, err)
	require.NotNil(t, got)

	plain, err := vault.Open(got.Sealed, "pw")
	require.NoError(t, err)
	assert.Equal(t, "secret words", plain)

	// Replacing keeps created_at.
	require.NoError(t, store.Put(ctx, &wallet.Wallet{Name: pgTestName, Address: pgTestAddress, Sealed: sealed}))
	again, err := store.Get(ctx, pgTestName)
	require.NoError(t, err)
	assert.Equal(t, got.CreatedAt, again.CreatedAt)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.Delete(ctx, pgTestName))
	assert.ErrorIs(t, store.Delete(ctx, pgTestName), wallet.ErrNotFound)

	missing, err := store.Get(ctx, pgTestName)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
