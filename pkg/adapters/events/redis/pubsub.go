package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aescanero/layoutcounter/pkg/domain"
	"github.com/aescanero/layoutcounter/pkg/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrBusClosed is returned by Subscribe after Close
var ErrBusClosed = errors.New("event bus closed")

// PubSubEventBus implements EventBus using Redis Pub/Sub
type PubSubEventBus struct {
	client redis.UniversalClient
	logger *zap.Logger
	prefix string

	mu     sync.Mutex
	subs   map[*redis.PubSub]struct{}
	closed bool
}

// NewPubSubEventBus creates a new Redis Pub/Sub event bus. Channels are named
// "<prefix>:events:<topic>".
func NewPubSubEventBus(client redis.UniversalClient, prefix string, logger *zap.Logger) *PubSubEventBus {
	return &PubSubEventBus{
		client: client,
		logger: logger,
		prefix: prefix,
		subs:   make(map[*redis.PubSub]struct{}),
	}
}

// Publish publishes an event to the topic's channel
func (e *PubSubEventBus) Publish(ctx context.Context, topic string, event domain.CounterEvent) error {
	channel := e.channel(topic)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	receivers, err := e.client.Publish(ctx, channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	e.logger.Debug("event published",
		zap.String("event_id", event.ID),
		zap.String("key", string(event.Key)),
		zap.String("channel", channel),
		zap.Int64("receivers", receivers))

	return nil
}

// Subscribe subscribes to a topic. It returns once Redis has confirmed the
// subscription; delivery stops when ctx is cancelled.
func (e *PubSubEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrBusClosed
	}
	e.mu.Unlock()

	channel := e.channel(topic)
	ps := e.client.Subscribe(ctx, channel)

	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		_ = ps.Close()
		return ErrBusClosed
	}
	e.subs[ps] = struct{}{}
	e.mu.Unlock()

	e.logger.Debug("subscribed to event channel",
		zap.String("channel", channel),
		zap.String("topic", topic))

	go e.readChannel(ctx, ps, channel, handler)

	return nil
}

// readChannel forwards messages until ctx ends or the subscription closes
func (e *PubSubEventBus) readChannel(ctx context.Context, ps *redis.PubSub, channel string, handler ports.EventHandler) {
	defer e.release(ps)

	messages := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			e.processMessage(ctx, channel, msg, handler)
		}
	}
}

// processMessage decodes one message and hands it to the handler
func (e *PubSubEventBus) processMessage(ctx context.Context, channel string, msg *redis.Message, handler ports.EventHandler) {
	var event domain.CounterEvent
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		e.logger.Error("failed to unmarshal event",
			zap.String("channel", channel),
			zap.Error(err))
		return
	}

	if err := handler(ctx, event); err != nil {
		e.logger.Error("handler error",
			zap.String("channel", channel),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

func (e *PubSubEventBus) release(ps *redis.PubSub) {
	e.mu.Lock()
	_, tracked := e.subs[ps]
	delete(e.subs, ps)
	e.mu.Unlock()

	if tracked {
		_ = ps.Close()
	}
}

// Close ends every subscription. The Redis client is closed by the caller.
func (e *PubSubEventBus) Close() error {
	e.mu.Lock()
	e.closed = true
	subs := e.subs
	e.subs = make(map[*redis.PubSub]struct{})
	e.mu.Unlock()

	var errs []error
	for ps := range subs {
		if err := ps.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// channel returns the Redis channel for a topic
func (e *PubSubEventBus) channel(topic string) string {
	return fmt.Sprintf("%s:events:%s", e.prefix, topic)
}
