package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bookingserrors "venuebook/internal/bookings/errors"
	"venuebook/pkg/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotKey(t *testing.T) {
	assert.Equal(t, "slot:gym:2025-09-01", SlotKey("gym", model.MustDate("2025-09-01")))
}

func exerciseMutualExclusion(t *testing.T, locker SlotLocker) {
	t.Helper()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), "slot:gym:2025-01-01")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			inside.Add(-1)
			assert.NoError(t, release(context.Background()))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())
}

func TestMemorySlotLocker_MutualExclusion(t *testing.T) {
	exerciseMutualExclusion(t, NewMemorySlotLocker(2*time.Second))
}

func TestMemorySlotLocker_WaitExhausted(t *testing.T) {
	locker := NewMemorySlotLocker(30 * time.Millisecond)

	release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)

	_, err = locker.Acquire(context.Background(), "k")
	assert.ErrorIs(t, err, bookingserrors.ErrLockHeld)

	other, err := locker.Acquire(context.Background(), "other-key")
	require.NoError(t, err)
	require.NoError(t, other(context.Background()))

	require.NoError(t, release(context.Background()))
	require.NoError(t, release(context.Background()), "second release is a no-op")

	again, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)
	require.NoError(t, again(context.Background()))

	assert.Empty(t, locker.(*memorySlotLocker).slots)
}

func TestMemorySlotLocker_ContextCancelled(t *testing.T) {
	locker := NewMemorySlotLocker(time.Second)
	release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locker.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisSlotLocker_AcquireRelease(t *testing.T) {
	mr, rdb := newRedis(t)
	locker := NewRedisSlotLocker(rdb, 5*time.Second, 50*time.Millisecond)

	release, err := locker.Acquire(context.Background(), "slot:hall:2025-03-03")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:slot:hall:2025-03-03"))
	assert.Equal(t, 5*time.Second, mr.TTL("lock:slot:hall:2025-03-03"))

	_, err = locker.Acquire(context.Background(), "slot:hall:2025-03-03")
	assert.ErrorIs(t, err, bookingserrors.ErrLockHeld)

	require.NoError(t, release(context.Background()))
	assert.False(t, mr.Exists("lock:slot:hall:2025-03-03"))
}

func TestRedisSlotLocker_ReleaseDoesNotStealForeignLock(t *testing.T) {
	mr, rdb := newRedis(t)
	locker := NewRedisSlotLocker(rdb, time.Second, 50*time.Millisecond)

	release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)

	// our lease ran out and someone else took the slot
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("lock:k", "someone-else"))

	assert.ErrorIs(t, release(context.Background()), bookingserrors.ErrLockLost)
	v, err := mr.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}

func TestRedisSlotLocker_MutualExclusion(t *testing.T) {
	_, rdb := newRedis(t)
	exerciseMutualExclusion(t, NewRedisSlotLocker(rdb, 5*time.Second, 3*time.Second))
}
