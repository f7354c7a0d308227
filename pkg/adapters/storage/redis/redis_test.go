package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/aescanero/layoutcounter/pkg/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStorage(t *testing.T, opts ...Option) (*CounterStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	return NewCounterStorage(rdb, zap.NewNop(), opts...), mr
}

func TestInitializeDefaultsOverwritesPriorValues(t *testing.T) {
	store, mr := newTestStorage(t)
	require.NoError(t, mr.Set("left", "42"))

	require.NoError(t, store.InitializeDefaults(context.Background()))

	for _, k := range domain.Keys() {
		v, err := mr.Get(string(k))
		require.NoError(t, err)
		assert.Equal(t, "0", v, "key %s", k)
	}
}

func TestGetAllMissingKeysReadAsZero(t *testing.T) {
	store, mr := newTestStorage(t)
	require.NoError(t, mr.Set("article", "7"))

	counters, err := store.GetAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{
		"header": 0, "left": 0, "article": 7, "right": 0, "footer": 0,
	}, counters.Map())
}

func TestGetAllRejectsNonNumericValue(t *testing.T) {
	store, mr := newTestStorage(t)
	require.NoError(t, mr.Set("footer", "abc"))

	_, err := store.GetAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStoreRead))
	assert.Equal(t, domain.KindStoreRead, domain.KindOf(err))
}

func TestGetAndSet(t *testing.T) {
	store, _ := newTestStorage(t)
	ctx := context.Background()

	v, err := store.Get(ctx, domain.KeyRight)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	require.NoError(t, store.Set(ctx, domain.KeyRight, -5))

	v, err = store.Get(ctx, domain.KeyRight)
	require.NoError(t, err)
	assert.Equal(t, int64(-5), v)
}

func TestIncrement(t *testing.T) {
	store, _ := newTestStorage(t)
	ctx := context.Background()

	v, err := store.Increment(ctx, domain.KeyHeader, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	v, err = store.Increment(ctx, domain.KeyHeader, -1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestIncrementConcurrentNoLostUpdates(t *testing.T) {
	store, _ := newTestStorage(t)
	ctx := context.Background()
	const n = 64

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Increment(ctx, domain.KeyLeft, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, err := store.Get(ctx, domain.KeyLeft)
	require.NoError(t, err)
	assert.Equal(t, int64(n), v)
}

func TestCompareAndIncrementConcurrentNoLostUpdates(t *testing.T) {
	store, _ := newTestStorage(t, WithCASRetries(1000))
	ctx := context.Background()
	const n = 32

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.CompareAndIncrement(ctx, domain.KeyArticle, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, err := store.Get(ctx, domain.KeyArticle)
	require.NoError(t, err)
	assert.Equal(t, int64(n), v)
}

func TestCompareAndIncrementOverflow(t *testing.T) {
	store, mr := newTestStorage(t)
	require.NoError(t, mr.Set("header", "9223372036854775807"))

	_, err := store.CompareAndIncrement(context.Background(), domain.KeyHeader, 1)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidValue, domain.KindOf(err))

	v, err := mr.Get("header")
	require.NoError(t, err)
	assert.Equal(t, "9223372036854775807", v)
}

func TestIncrementAtInt64Limits(t *testing.T) {
	store, mr := newTestStorage(t)
	ctx := context.Background()

	v, err := store.Increment(ctx, domain.KeyLeft, math.MinInt64)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), v)

	_, err = store.Increment(ctx, domain.KeyLeft, -1)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidValue, domain.KindOf(err))

	require.NoError(t, mr.Set("right", "9223372036854775807"))
	_, err = store.Increment(ctx, domain.KeyRight, 1)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidValue, domain.KindOf(err))

	left, err := mr.Get("left")
	require.NoError(t, err)
	assert.Equal(t, "-9223372036854775808", left)
	right, err := mr.Get("right")
	require.NoError(t, err)
	assert.Equal(t, "9223372036854775807", right)
}

type replyError string

func (e replyError) Error() string { return string(e) }
func (replyError) RedisError() {}

func TestOverflowReplyClassification(t *testing.T) {
	assert.True(t, isOverflowReply(replyError("ERR increment or decrement would overflow")))
	assert.True(t, isOverflowReply(fmt.Errorf("exec: %w", replyError("ERR increment or decrement would overflow"))))
	assert.False(t, isOverflowReply(replyError("ERR value is not an integer or out of range")))
	assert.False(t, isOverflowReply(errors.New("stack overflow in handler")))

	err := storeError(errors.New("stack overflow in handler"), domain.KindStoreWrite, "increment", "left")
	assert.Equal(t, domain.KindStoreWrite, domain.KindOf(err))
}

func TestKeyPrefix(t *testing.T) {
	store, mr := newTestStorage(t, WithKeyPrefix("lc:"))

	require.NoError(t, store.Set(context.Background(), domain.KeyFooter, 9))

	v, err := mr.Get("lc:footer")
	require.NoError(t, err)
	assert.Equal(t, "9", v)
	assert.False(t, mr.Exists("footer"))
}

func TestUnreachableServerIsConnectionError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	defer rdb.Close()
	store := NewCounterStorage(rdb, zap.NewNop())

	_, err = store.Get(context.Background(), domain.KeyHeader)
	require.Error(t, err)
	assert.Equal(t, domain.KindStoreConnection, domain.KindOf(err))

	err = store.Ping(context.Background())
	assert.True(t, errors.Is(err, domain.ErrStoreConnection))
}
