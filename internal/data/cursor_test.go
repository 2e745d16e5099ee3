package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/relaybridge/zulip-relay/internal/biz/domain"
	"github.com/stretchr/testify/require"
)

func TestCursorRepo(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cursor.db")

	r, err := NewCursorRepo(path)
	require.NoError(t, err)

	c, err := r.Load(ctx)
	require.NoError(t, err)
	require.True(t, c.IsZero())

	saved := domain.Cursor{QueueID: "q-1", LastEventID: 12, UpdatedAt: time.Unix(1700000000, 0)}
	require.NoError(t, r.Save(ctx, saved))
	require.NoError(t, r.Save(ctx, saved.Advance(15)))

	c, err = r.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "q-1", c.QueueID)
	require.Equal(t, int64(15), c.LastEventID)
	require.NoError(t, r.Close())

	// Survives reopening
	r, err = NewCursorRepo(path)
	require.NoError(t, err)
	defer r.Close()

	c, err = r.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(15), c.LastEventID)

	require.NoError(t, r.Clear(ctx))
	c, err = r.Load(ctx)
	require.NoError(t, err)
	require.True(t, c.IsZero())
}
