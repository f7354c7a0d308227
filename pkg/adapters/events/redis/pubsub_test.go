package redis

import (
	"context"
	"testing"
	"time"

	"github.com/aescanero/layoutcounter/pkg/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBus(t *testing.T) (*PubSubEventBus, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bus := NewPubSubEventBus(rdb, "layoutcounter", zap.NewNop())
	t.Cleanup(func() {
		_ = bus.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return bus, mr
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan domain.CounterEvent, 1)
	err := bus.Subscribe(ctx, domain.TopicCountersUpdated, func(_ context.Context, ev domain.CounterEvent) error {
		received <- ev
		return nil
	})
	require.NoError(t, err)

	sent := domain.CounterEvent{
		ID:        uuid.NewString(),
		Key:       domain.KeyLeft,
		Delta:     5,
		Value:     5,
		Counters:  domain.NewCounters().With(domain.KeyLeft, 5),
		Timestamp: time.Now().UTC(),
	}
	require.NoError(t, bus.Publish(ctx, domain.TopicCountersUpdated, sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, domain.KeyLeft, got.Key)
		assert.Equal(t, int64(5), got.Counters.Get(domain.KeyLeft))
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestPublishUsesPrefixedChannel(t *testing.T) {
	bus, mr := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx, "t", func(context.Context, domain.CounterEvent) error { return nil }))

	assert.Contains(t, mr.PubSubChannels(""), "layoutcounter:events:t")
}

func TestSubscribeAfterCloseFails(t *testing.T) {
	bus, _ := newTestBus(t)
	require.NoError(t, bus.Close())

	err := bus.Subscribe(context.Background(), "t", func(context.Context, domain.CounterEvent) error { return nil })
	assert.ErrorIs(t, err, ErrBusClosed)
}
