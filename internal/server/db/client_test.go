package db

import (
	"context"
	"errors"
	"testing"

	"entgo.io/ent/dialect"
	"github.com/stretchr/testify/require"

	entsql "entgo.io/ent/dialect/sql"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(Config{Dialect: "sqlite3", DSN: "file::memory:?_pragma=foreign_keys(1)"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Migrate(context.Background()))

	return client
}

func TestDriverName(t *testing.T) {
	tests := []struct {
		in      string
		driver  string
		dialect string
		wantErr bool
	}{
		{in: "postgres", driver: "pgx", dialect: dialect.Postgres},
		{in: "PG", driver: "pgx", dialect: dialect.Postgres},
		{in: "mysql", driver: "mysql", dialect: dialect.MySQL},
		{in: "tidb", driver: "mysql", dialect: dialect.MySQL},
		{in: "sqlite3", driver: "sqlite", dialect: dialect.SQLite},
		{in: "", driver: "sqlite", dialect: dialect.SQLite},
		{in: "oracle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			drv, d, err := driverName(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.driver, drv)
			require.Equal(t, tt.dialect, d)
		})
	}
}

func TestMigrateIsRepeatable(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Migrate(ctx))

	for _, name := range Tables() {
		q, args := client.Builder().Select(entsql.Count("*")).From(entsql.Table(name)).Query()
		n, err := client.Count(ctx, q, args)
		require.NoError(t, err, name)
		require.Zero(t, n, name)
	}
}

func insertMember(ctx context.Context, t *testing.T, client *Client, userID string) error {
	t.Helper()

	q, args := client.Builder().Insert("members").
		Columns("organization_id", "user_id", "role", "created_at").
		Values("org-1", userID, "admin", int64(1)).
		Query()
	_, err := client.Exec(ctx, q, args)

	return err
}

func countMembers(t *testing.T, client *Client) int {
	t.Helper()

	q, args := client.Builder().Select(entsql.Count("*")).From(entsql.Table("members")).Query()
	n, err := client.Count(context.Background(), q, args)
	require.NoError(t, err)

	return n
}

func TestRunInTransaction(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := client.RunInTransaction(ctx, func(ctx context.Context) error {
			require.NotNil(t, TxFromContext(ctx))
			require.NoError(t, insertMember(ctx, t, client, "u-1"))

			return boom
		})
		require.ErrorIs(t, err, boom)
		require.Zero(t, countMembers(t, client))
	})

	t.Run("commit", func(t *testing.T) {
		err := client.RunInTransaction(ctx, func(ctx context.Context) error {
			return insertMember(ctx, t, client, "u-1")
		})
		require.NoError(t, err)
		require.Equal(t, 1, countMembers(t, client))
	})

	t.Run("nested reuses outer transaction", func(t *testing.T) {
		boom := errors.New("boom")
		err := client.RunInTransaction(ctx, func(ctx context.Context) error {
			outer := TxFromContext(ctx)

			require.NoError(t, client.RunInTransaction(ctx, func(ctx context.Context) error {
				require.Same(t, outer, TxFromContext(ctx))
				return insertMember(ctx, t, client, "u-2")
			}))

			return boom
		})
		require.ErrorIs(t, err, boom)
		require.Equal(t, 1, countMembers(t, client))
	})
}

func TestIsUniqueViolation(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, insertMember(ctx, t, client, "u-1"))

	err := insertMember(ctx, t, client, "u-1")
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err))

	require.False(t, IsUniqueViolation(nil))
	require.False(t, IsUniqueViolation(errors.New("other")))
}
