package ports

import (
	"context"
	"time"

	"github.com/aescanero/layoutcounter/pkg/domain"
)

// CounterStore persists the counter set
type CounterStore interface {
	// InitializeDefaults writes zero to every key, replacing prior values
	InitializeDefaults(ctx context.Context) error
	// GetAll reads every key in one batch; missing keys read as zero
	GetAll(ctx context.Context) (domain.Counters, error)
	// Get reads one key; missing reads as zero
	Get(ctx context.Context, key domain.Key) (int64, error)
	// Set overwrites one key
	Set(ctx context.Context, key domain.Key, value int64) error
	// Increment adds delta atomically and returns the new value
	Increment(ctx context.Context, key domain.Key, delta int64) (int64, error)
	// CompareAndIncrement adds delta with an optimistic read-check-write loop
	CompareAndIncrement(ctx context.Context, key domain.Key, delta int64) (int64, error)
	// Ping checks the backing store is reachable
	Ping(ctx context.Context) error
}

// EventHandler receives published events
type EventHandler func(ctx context.Context, event domain.CounterEvent) error

// EventBus fans counter events out to subscribers
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.CounterEvent) error
	// Subscribe registers handler until ctx is cancelled
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Close() error
}

// MetricsCollector records service metrics
type MetricsCollector interface {
	RecordUpdate(key domain.Key, strategy string, delta int64)
	SetCounterValues(counters domain.Counters)
	RecordStoreError(kind domain.ErrorKind)
	RecordInvalidRequest(kind domain.ErrorKind)
	RecordEventPublished(ok bool)
	SetStoreUp(up bool)
	ObserveRequest(route string, status int, duration time.Duration)
}
