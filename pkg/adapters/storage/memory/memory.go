package memory

import (
	"context"
	"sync"

	"github.com/aescanero/layoutcounter/pkg/domain"
)

// InMemoryCounterStorage implements CounterStore using an in-memory map
// This is for testing purposes only
type InMemoryCounterStorage struct {
	values map[domain.Key]int64
	mu     sync.RWMutex

	// failures injects an error per operation name ("get", "set", "get_all", ...)
	failures map[string]error
}

// NewInMemoryCounterStorage creates a new in-memory counter storage
func NewInMemoryCounterStorage() *InMemoryCounterStorage {
	return &InMemoryCounterStorage{
		values:   make(map[domain.Key]int64),
		failures: make(map[string]error),
	}
}

// FailOn makes every later call of op return err. A nil err clears it.
func (s *InMemoryCounterStorage) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *InMemoryCounterStorage) failure(op string) error {
	return s.failures[op]
}

// InitializeDefaults writes zero to every key
func (s *InMemoryCounterStorage) InitializeDefaults(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("initialize_defaults"); err != nil {
		return err
	}
	for _, k := range domain.Keys() {
		s.values[k] = 0
	}
	return nil
}

// GetAll returns a snapshot of every key
func (s *InMemoryCounterStorage) GetAll(ctx context.Context) (domain.Counters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.failure("get_all"); err != nil {
		return domain.Counters{}, err
	}
	counters := domain.NewCounters()
	for _, k := range domain.Keys() {
		counters = counters.With(k, s.values[k])
	}
	return counters, nil
}

// Get reads one key
func (s *InMemoryCounterStorage) Get(ctx context.Context, key domain.Key) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.failure("get"); err != nil {
		return 0, err
	}
	return s.values[key], nil
}

// Set overwrites one key
func (s *InMemoryCounterStorage) Set(ctx context.Context, key domain.Key, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("set"); err != nil {
		return err
	}
	s.values[key] = value
	return nil
}

// Increment adds delta under the write lock
func (s *InMemoryCounterStorage) Increment(ctx context.Context, key domain.Key, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("increment"); err != nil {
		return 0, err
	}
	next, err := domain.AddDelta(s.values[key], delta)
	if err != nil {
		return 0, err
	}
	s.values[key] = next
	return next, nil
}

// CompareAndIncrement is equivalent to Increment since the map is lock-guarded
func (s *InMemoryCounterStorage) CompareAndIncrement(ctx context.Context, key domain.Key, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("compare_and_increment"); err != nil {
		return 0, err
	}
	next, err := domain.AddDelta(s.values[key], delta)
	if err != nil {
		return 0, err
	}
	s.values[key] = next
	return next, nil
}

// Ping always succeeds unless a failure was injected
func (s *InMemoryCounterStorage) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.failure("ping")
}
