package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jumpsca.re/runestone/domain"
)

func TestSessionStoreRotateAccess(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	sess := &domain.Session{Access: "access-1", Refresh: "refresh-1", UserID: "u1"}
	require.NoError(t, store.Create(ctx, sess))

	require.NoError(t, store.RotateAccess(ctx, sess, "access-2"))
	assert.Equal(t, "access-2", sess.Access)

	// The old access string no longer resolves, the refresh one still does.
	_, err := store.FindByAccess(ctx, "access-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	found, err := store.FindByRefresh(ctx, "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "access-2", found.Access)
}

func TestSessionStoreRotateAccessConflict(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	sess := &domain.Session{Access: "access-1", Refresh: "refresh-1", UserID: "u1"}
	require.NoError(t, store.Create(ctx, sess))

	// Two readers hold the same snapshot; only the first rotation wins.
	snapshot, err := store.FindByRefresh(ctx, "refresh-1")
	require.NoError(t, err)
	require.NoError(t, store.RotateAccess(ctx, sess, "access-2"))

	err = store.RotateAccess(ctx, snapshot, "access-3")
	assert.ErrorIs(t, err, domain.ErrConflict)

	found, err := store.FindByRefresh(ctx, "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "access-2", found.Access)
}

func TestSessionStoreDeleteByUser(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	for _, s := range []*domain.Session{
		{Access: "a1", Refresh: "r1", UserID: "u1"},
		{Access: "a2", Refresh: "r2", UserID: "u1"},
		{Access: "a3", Refresh: "r3", UserID: "u2"},
	} {
		require.NoError(t, store.Create(ctx, s))
	}

	deleted, err := store.DeleteByUser(ctx, "u1", "a2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = store.FindByAccess(ctx, "a1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.FindByAccess(ctx, "a2")
	assert.NoError(t, err)
	_, err = store.FindByAccess(ctx, "a3")
	assert.NoError(t, err)
}

func TestSessionStoreDuplicateTokens(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &domain.Session{Access: "a1", Refresh: "r1", UserID: "u1"}))
	err := store.Create(ctx, &domain.Session{Access: "a1", Refresh: "r2", UserID: "u2"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}
