// Package db provides GORM-based database operations for vigil.
package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gorm.io/gorm/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore creates a Store backed by a temp-dir database.
func testStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "vigil_db_test_*")
	require.NoError(t, err)

	store, err := NewStore(Config{
		Path:     filepath.Join(tmpDir, "test.db"),
		MaxConns: 4,
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)

	return store, func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}
}

func TestNewStore(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	require.NoError(t, store.Ping())

	// Verify WAL mode is enabled
	var journalMode string
	err := store.DB.Raw("PRAGMA journal_mode").Scan(&journalMode).Error
	require.NoError(t, err)
	assert.Equal(t, "wal", journalMode)

	// Verify core tables exist
	tables := []string{
		"activity_events",
		"session_blocks",
		"insights",
		"wallet_state",
		"transactions",
		"audit_records",
		"episodic_events",
		"focus_sessions",
	}
	for _, table := range tables {
		assert.True(t, store.DB.Migrator().HasTable(table), "table %q does not exist", table)
	}
}

func TestMigrations_SeedWallet(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	ctx := context.Background()
	wallet := NewWalletStore(store)

	state, err := wallet.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(InitialBalance), state.Balance)

	// Seed grant is on the ledger
	txs, err := wallet.RecentTransactions(ctx, 5)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "initial grant", txs[0].Reason)
	assert.Equal(t, float64(InitialBalance), txs[0].Amount)
}
