package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteDB_MigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLiteDB(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, "sqlite", db.Driver)
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Health(ctx))

	var tables int
	err = db.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('links', 'clicks')`,
	).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 2, tables)
}

func TestSQLiteDB_ForeignKeysEnforced(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLiteDB(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))

	_, err = db.DB.ExecContext(ctx,
		`INSERT INTO clicks (id, link_code, occurred_at) VALUES ('c1', 'missing', 0)`)
	assert.Error(t, err)
}

func TestLinkCacheKey(t *testing.T) {
	assert.Equal(t, "link:abc123", LinkCacheKey("abc123"))
}
