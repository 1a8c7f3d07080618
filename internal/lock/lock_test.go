package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, ttl), server
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	locker, server := newLocker(t, 10*time.Second)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "loan-1")
	require.NoError(t, err)
	assert.True(t, server.Exists("loan:lock:loan-1"))
	assert.Equal(t, 10*time.Second, server.TTL("loan:lock:loan-1"))

	require.NoError(t, release(ctx))
	assert.False(t, server.Exists("loan:lock:loan-1"))
}

func TestRedisLocker_SecondAcquireFails(t *testing.T) {
	locker, _ := newLocker(t, 10*time.Second)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "loan-1")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "loan-1")
	assert.ErrorIs(t, err, ErrNotAcquired)

	// Other loans are independent.
	releaseOther, err := locker.Acquire(ctx, "loan-2")
	require.NoError(t, err)
	require.NoError(t, releaseOther(ctx))

	require.NoError(t, release(ctx))

	release, err = locker.Acquire(ctx, "loan-1")
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestRedisLocker_ExpiredLockIsNotReleasedByOldHolder(t *testing.T) {
	locker, server := newLocker(t, time.Second)
	ctx := context.Background()

	staleRelease, err := locker.Acquire(ctx, "loan-1")
	require.NoError(t, err)

	server.FastForward(2 * time.Second)

	release, err := locker.Acquire(ctx, "loan-1")
	require.NoError(t, err)

	require.NoError(t, staleRelease(ctx))
	assert.True(t, server.Exists("loan:lock:loan-1"))

	require.NoError(t, release(ctx))
	assert.False(t, server.Exists("loan:lock:loan-1"))
}

func TestRedisLocker_ConnectionError(t *testing.T) {
	locker, server := newLocker(t, time.Second)
	server.Close()

	_, err := locker.Acquire(context.Background(), "loan-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAcquired)
}
