package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftattend/internal/cache"
	"swiftattend/internal/model"
)

func newTestTokenStore(t *testing.T) (*TokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return NewTokenStore(c), mr
}

func TestTokenStore_RefreshLifecycle(t *testing.T) {
	store, _ := newTestTokenStore(t)
	ctx := context.Background()
	id := Identity{UserID: uuid.New(), Email: "s@qatar.cmu.edu", Name: "Staff", Role: model.RoleStaff}

	require.NoError(t, store.StoreRefreshToken(ctx, "tok-1", id, time.Hour))

	got, err := store.GetRefreshToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	require.NoError(t, store.DeleteRefreshToken(ctx, "tok-1"))
	_, err = store.GetRefreshToken(ctx, "tok-1")
	assert.Error(t, err)
}

func TestTokenStore_Blacklist(t *testing.T) {
	store, mr := newTestTokenStore(t)
	ctx := context.Background()

	revoked, err := store.IsAccessTokenBlacklisted(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.BlacklistAccessToken(ctx, "jti", time.Minute))
	revoked, _ = store.IsAccessTokenBlacklisted(ctx, "jti")
	assert.True(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, _ = store.IsAccessTokenBlacklisted(ctx, "jti")
	assert.False(t, revoked)
}
