package db

import (
	"path/filepath"
	"testing"

	"driver_ledger/internal/config"
	"driver_ledger/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrateSQLite(t *testing.T) {
	gdb, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)

	require.NoError(t, Migrate(gdb))
	// Running twice is a no-op
	require.NoError(t, Migrate(gdb))

	for _, model := range []any{&domain.User{}, &domain.ExpenseEvent{}, &domain.IncomeEvent{}} {
		assert.True(t, gdb.Migrator().HasTable(model), "missing table for %T", model)
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(&config.Config{DBDriver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_pragma=foreign_keys(1)", sqliteDSN(":memory:"))
	assert.Equal(t, "file:x.db?mode=rwc&_pragma=foreign_keys(1)", sqliteDSN("file:x.db?mode=rwc"))
	assert.Equal(t, "x.db?_pragma=busy_timeout(5000)", sqliteDSN("x.db?_pragma=busy_timeout(5000)"))
}
