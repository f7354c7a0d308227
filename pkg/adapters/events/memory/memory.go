package memory

import (
	"context"
	"sync"

	"github.com/aescanero/layoutcounter/pkg/domain"
	"github.com/aescanero/layoutcounter/pkg/ports"
)

// InMemoryEventBus implements EventBus using in-memory handlers
// This is for testing purposes only. Handlers run synchronously inside Publish.
type InMemoryEventBus struct {
	subscribers map[string]map[int]ports.EventHandler
	nextID      int
	mu          sync.RWMutex
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make(map[string]map[int]ports.EventHandler),
	}
}

// Publish calls every subscriber of a topic
func (e *InMemoryEventBus) Publish(ctx context.Context, topic string, event domain.CounterEvent) error {
	e.mu.RLock()
	handlers := make([]ports.EventHandler, 0, len(e.subscribers[topic]))
	for _, h := range e.subscribers[topic] {
		handlers = append(handlers, h)
	}
	e.mu.RUnlock()

	for _, h := range handlers {
		_ = h(ctx, event)
	}

	return nil
}

// Subscribe registers handler until ctx is cancelled
func (e *InMemoryEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	if e.subscribers[topic] == nil {
		e.subscribers[topic] = make(map[int]ports.EventHandler)
	}
	e.subscribers[topic][id] = handler
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.unsubscribe(topic, id)
	}()

	return nil
}

// Subscribers returns the number of live handlers on a topic
func (e *InMemoryEventBus) Subscribers(topic string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.subscribers[topic])
}

// Close drops every subscriber
func (e *InMemoryEventBus) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.subscribers = make(map[string]map[int]ports.EventHandler)
	return nil
}

func (e *InMemoryEventBus) unsubscribe(topic string, id int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.subscribers[topic], id)
}
