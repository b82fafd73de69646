package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/authclient/pkg/credstore"
	"github.com/aussiebroadwan/authclient/pkg/credstore/drivers/sqlite"
	"github.com/aussiebroadwan/authclient/pkg/identity"
	"github.com/stretchr/testify/require"
)

func openBackend(t *testing.T, path string) *sqlite.Backend {
	t.Helper()
	b, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBackend(t *testing.T) {
	ctx := context.Background()
	b := openBackend(t, filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, b.Ping(ctx))

	_, ok, err := b.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, b.Set(ctx, "k", "v1"))
	require.NoError(t, b.Set(ctx, "k", "v2"))

	v, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", v)

	require.NoError(t, b.Delete(ctx, "k", "missing"))
	_, ok, err = b.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBackend_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	first, err := sqlite.Open(path)
	require.NoError(t, err)

	store := credstore.New(first)
	require.NoError(t, store.SetToken(ctx, "a.b.c"))
	require.NoError(t, store.SetIdentity(ctx, identity.Identity{ID: "u1", UserName: "joe"}))
	require.NoError(t, first.Close())

	// Reopening runs migrations again, which must be a no-op.
	reopened := credstore.New(openBackend(t, path))

	tok, err := reopened.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "a.b.c", tok)

	id, err := reopened.Identity(ctx)
	require.NoError(t, err)
	require.Equal(t, "joe", id.UserName)

	require.NoError(t, reopened.Clear(ctx))
	tok, err = reopened.Token(ctx)
	require.NoError(t, err)
	require.Empty(t, tok)
	id, err = reopened.Identity(ctx)
	require.NoError(t, err)
	require.Nil(t, id)
}
