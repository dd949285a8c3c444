package repositories

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestInitDatabase_CreatesStorageTable(t *testing.T) {
	ctx := context.Background()
	repos, err := InitDatabase(ctx, filepath.Join(t.TempDir(), "tutorly.db"))
	require.NoError(t, err)
	defer repos.Close()

	require.True(t, tableExists(t, repos.DB, "storage"))
	require.True(t, tableExists(t, repos.DB, "goose_db_version"))

	require.NoError(t, repos.Storage.Set(ctx, "k", []byte("v")))
	v, err := repos.Storage.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "tutorly.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db))
	require.True(t, tableExists(t, db, "storage"))
}
