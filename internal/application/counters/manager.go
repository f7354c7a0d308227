package counters

import (
	"context"
	"fmt"
	"time"

	"github.com/aescanero/layoutcounter/internal/config"
	"github.com/aescanero/layoutcounter/pkg/domain"
	"github.com/aescanero/layoutcounter/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager applies counter updates against a CounterStore
type Manager struct {
	store     ports.CounterStore
	eventBus  ports.EventBus
	metrics   ports.MetricsCollector
	validator *Validator
	logger    *zap.Logger

	strategy string
}

// NewManager creates a new counter manager. eventBus may be nil.
func NewManager(
	store ports.CounterStore,
	eventBus ports.EventBus,
	metrics ports.MetricsCollector,
	validator *Validator,
	logger *zap.Logger,
	strategy string,
) *Manager {
	if strategy == "" {
		strategy = config.StrategyAtomic
	}
	return &Manager{
		store:     store,
		eventBus:  eventBus,
		metrics:   metrics,
		validator: validator,
		logger:    logger,
		strategy:  strategy,
	}
}

// Strategy returns the configured increment strategy
func (m *Manager) Strategy() string {
	return m.strategy
}

// Initialize resets every counter to zero. Failures are logged and returned;
// callers are expected to keep serving.
func (m *Manager) Initialize(ctx context.Context) error {
	if err := m.store.InitializeDefaults(ctx); err != nil {
		m.metrics.RecordStoreError(domain.KindOf(err))
		m.logger.Error("failed to initialize counters", zap.Error(err))
		return err
	}

	m.metrics.SetCounterValues(domain.NewCounters())
	m.logger.Info("counters initialized", zap.Int("keys", len(domain.Keys())))
	return nil
}

// Snapshot returns the full counter set
func (m *Manager) Snapshot(ctx context.Context) (domain.Counters, error) {
	counters, err := m.store.GetAll(ctx)
	if err != nil {
		m.metrics.RecordStoreError(domain.KindOf(err))
		return domain.Counters{}, err
	}

	m.metrics.SetCounterValues(counters)
	return counters, nil
}

// Update adds the parsed value to the counter named by rawKey and returns the
// full counter set read after the write.
func (m *Manager) Update(ctx context.Context, rawKey, rawValue string) (domain.Counters, error) {
	key, delta, err := m.validator.Validate(rawKey, rawValue)
	if err != nil {
		m.metrics.RecordInvalidRequest(domain.KindOf(err))
		return domain.Counters{}, err
	}

	value, err := m.apply(ctx, key, delta)
	if err != nil {
		if kind := domain.KindOf(err); kind.IsClientError() {
			m.metrics.RecordInvalidRequest(kind)
		} else {
			m.metrics.RecordStoreError(kind)
		}
		return domain.Counters{}, err
	}

	m.metrics.RecordUpdate(key, m.strategy, delta)

	counters, err := m.store.GetAll(ctx)
	if err != nil {
		m.metrics.RecordStoreError(domain.KindOf(err))
		return domain.Counters{}, err
	}
	m.metrics.SetCounterValues(counters)

	m.logger.Debug("counter updated",
		zap.String("key", string(key)),
		zap.Int64("delta", delta),
		zap.Int64("value", value),
		zap.String("strategy", m.strategy))

	m.publish(ctx, key, delta, value, counters)

	return counters, nil
}

// apply adds delta to key using the configured strategy and returns the new value
func (m *Manager) apply(ctx context.Context, key domain.Key, delta int64) (int64, error) {
	switch m.strategy {
	case config.StrategyAtomic:
		return m.store.Increment(ctx, key, delta)
	case config.StrategyOptimistic:
		return m.store.CompareAndIncrement(ctx, key, delta)
	case config.StrategyUnguarded:
		current, err := m.store.Get(ctx, key)
		if err != nil {
			return 0, err
		}
		next, err := domain.AddDelta(current, delta)
		if err != nil {
			return 0, err
		}
		if err := m.store.Set(ctx, key, next); err != nil {
			return 0, err
		}
		return next, nil
	default:
		return 0, fmt.Errorf("unsupported increment strategy: %s", m.strategy)
	}
}

// publish emits a CounterEvent. Failures never fail the update.
func (m *Manager) publish(ctx context.Context, key domain.Key, delta, value int64, counters domain.Counters) {
	if m.eventBus == nil {
		return
	}

	event := domain.CounterEvent{
		ID:        uuid.New().String(),
		Key:       key,
		Delta:     delta,
		Value:     value,
		Counters:  counters,
		Timestamp: time.Now().UTC(),
	}

	if err := m.eventBus.Publish(ctx, domain.TopicCountersUpdated, event); err != nil {
		m.metrics.RecordEventPublished(false)
		m.logger.Warn("failed to publish counter event",
			zap.String("event_id", event.ID),
			zap.String("key", string(key)),
			zap.Error(err))
		return
	}
	m.metrics.RecordEventPublished(true)
}
