package cache_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aq2208/campuspay-terminal/configs"
	"github.com/aq2208/campuspay-terminal/internal/adapter/cache"
	"github.com/aq2208/campuspay-terminal/internal/security"
	"github.com/aq2208/campuspay-terminal/internal/session"
	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisLockStore_TryLockUnlock(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	a := cache.NewRedisLockStore(rdb, time.Minute)
	b := cache.NewRedisLockStore(rdb, time.Minute)

	ok, err := a.TryLock(ctx, "order.settle", "42")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryLock(ctx, "order.settle", "42")
	require.NoError(t, err)
	assert.False(t, ok, "second terminal must not get the lock")

	// only the owner can release
	require.NoError(t, b.Unlock(ctx, "order.settle", "42"))
	assert.True(t, mr.Exists("lock:order.settle:42"))

	require.NoError(t, a.Unlock(ctx, "order.settle", "42"))
	ok, err = b.TryLock(ctx, "order.settle", "42")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockStore_Expires(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	a := cache.NewRedisLockStore(rdb, time.Minute)

	ok, err := a.TryLock(ctx, "order.settle", "7")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = cache.NewRedisLockStore(rdb, time.Minute).TryLock(ctx, "order.settle", "7")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockStore_ExtendOutlivesTTL(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	a := cache.NewRedisLockStore(rdb, time.Minute)
	b := cache.NewRedisLockStore(rdb, time.Minute)

	ok, err := a.TryLock(ctx, "order.settle", "9")
	require.NoError(t, err)
	require.True(t, ok)

	for i := 0; i < 4; i++ {
		mr.FastForward(40 * time.Second)
		held, err := a.Extend(ctx, "order.settle", "9")
		require.NoError(t, err)
		require.True(t, held)
	}

	ok, err = b.TryLock(ctx, "order.settle", "9")
	require.NoError(t, err)
	assert.False(t, ok, "lock held for 160s must still block other terminals")

	held, err := b.Extend(ctx, "order.settle", "9")
	require.NoError(t, err)
	assert.False(t, held)

	mr.FastForward(2 * time.Minute)
	held, err = a.Extend(ctx, "order.settle", "9")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestRedisSettlementLedger(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	l := cache.NewRedisSettlementLedger(rdb, 0)

	st, err := l.Status(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, usecase.SettlementNone, st)

	require.NoError(t, l.MarkTransferred(ctx, 42, "att-1"))
	st, err = l.Status(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, usecase.SettlementTransferred, st)
	v, err := mr.Get("order:settlement:42")
	require.NoError(t, err)
	assert.Equal(t, "TRANSFERRED:att-1", v)

	require.NoError(t, l.MarkSettled(ctx, 42))
	require.NoError(t, l.MarkTransferred(ctx, 42, "att-2"))
	st, err = l.Status(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, usecase.SettlementSettled, st)

	require.NoError(t, l.Clear(ctx, 42))
	st, err = l.Status(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, usecase.SettlementNone, st)
}

func TestRedisTokenStore_SealsTokens(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	var cfg configs.Config
	cfg.CryptoConfig.AES256B64 = base64.RawURLEncoding.EncodeToString(key)
	cm, err := security.NewCryptoMaterial(cfg)
	require.NoError(t, err)
	cs, err := security.NewCryptoService(cm)
	require.NoError(t, err)

	store := cache.NewRedisTokenStore(rdb, cs, "kiosk-1")
	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	in := session.Tokens{Access: "access-token", Refresh: "refresh-token", Phone: "0917"}
	require.NoError(t, store.Save(ctx, in))

	raw, err := mr.Get("session:kiosk-1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "access-token")

	out, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)

	require.NoError(t, store.Clear(ctx))
	_, ok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
