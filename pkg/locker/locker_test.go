package locker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerExclusive(t *testing.T) {
	l := NewLocalLocker(20 * time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "course:1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "course:1")
	assert.ErrorIs(t, err, ErrNotAcquired)

	// 不同 key 互不影响
	releaseOther, err := l.Acquire(ctx, "course:2")
	require.NoError(t, err)
	releaseOther()

	release()
	release() // 重复释放无副作用

	release, err = l.Acquire(ctx, "course:1")
	require.NoError(t, err)
	release()

	assert.Empty(t, l.entries)
}

func TestLocalLockerSerializes(t *testing.T) {
	l := NewLocalLocker(time.Second)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		running int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "course:x")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			running++
			if running > maxSeen {
				maxSeen = running
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestLocalLockerContextCanceled(t *testing.T) {
	l := NewLocalLocker(time.Second)
	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLocker(client, 5*time.Second, 100*time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "course:1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:course:1"))

	_, err = l.Acquire(ctx, "course:1")
	assert.ErrorIs(t, err, ErrNotAcquired)

	release()
	assert.False(t, mr.Exists("lock:course:1"))

	release, err = l.Acquire(ctx, "course:1")
	require.NoError(t, err)
	release()
}

func TestRedisLockerDoesNotReleaseForeignToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLocker(client, time.Second, 50*time.Millisecond)
	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	// 锁过期后被其他实例持有
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("lock:k", "someone-else"))

	release()
	got, err := mr.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
