package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"syscall"

	"github.com/aescanero/layoutcounter/pkg/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrTooManyRetries is returned when the optimistic increment keeps losing the race
var ErrTooManyRetries = errors.New("optimistic increment retries exhausted")

// DefaultCASRetries bounds CompareAndIncrement when no explicit limit is set
const DefaultCASRetries = 8

// CounterStorage implements ports.CounterStore using Redis
type CounterStorage struct {
	client     redis.UniversalClient
	logger     *zap.Logger
	prefix     string
	casRetries int
}

// Option customizes a CounterStorage
type Option func(*CounterStorage)

// WithKeyPrefix namespaces every Redis key
func WithKeyPrefix(prefix string) Option {
	return func(s *CounterStorage) { s.prefix = prefix }
}

// WithCASRetries sets how many WATCH attempts CompareAndIncrement makes
func WithCASRetries(n int) Option {
	return func(s *CounterStorage) {
		if n > 0 {
			s.casRetries = n
		}
	}
}

// NewCounterStorage creates a new Redis counter storage
func NewCounterStorage(client redis.UniversalClient, logger *zap.Logger, opts ...Option) *CounterStorage {
	s := &CounterStorage{
		client:     client,
		logger:     logger,
		casRetries: DefaultCASRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitializeDefaults writes zero to every key in one MSET
func (s *CounterStorage) InitializeDefaults(ctx context.Context) error {
	pairs := make([]interface{}, 0, 2*len(domain.Keys()))
	for _, k := range domain.Keys() {
		pairs = append(pairs, s.key(k), 0)
	}

	if err := s.client.MSet(ctx, pairs...).Err(); err != nil {
		return storeError(err, domain.KindStoreWrite, "initialize defaults", "")
	}

	s.logger.Debug("counters initialized", zap.Int("keys", len(domain.Keys())))
	return nil
}

// GetAll reads every key with one MGET in canonical order
func (s *CounterStorage) GetAll(ctx context.Context) (domain.Counters, error) {
	keys := domain.Keys()
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = s.key(k)
	}

	values, err := s.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return domain.Counters{}, storeError(err, domain.KindStoreRead, "get all", "")
	}
	if len(values) != len(keys) {
		return domain.Counters{}, &domain.Error{
			Kind: domain.KindStoreRead,
			Op:   "get all",
			Err:  fmt.Errorf("expected %d values, got %d", len(keys), len(values)),
		}
	}

	counters := domain.NewCounters()
	for i, k := range keys {
		v, err := parseValue(values[i])
		if err != nil {
			return domain.Counters{}, &domain.Error{Kind: domain.KindStoreRead, Op: "get all", Key: string(k), Err: err}
		}
		counters = counters.With(k, v)
	}

	return counters, nil
}

// Get reads one key; a missing key reads as zero
func (s *CounterStorage) Get(ctx context.Context, key domain.Key) (int64, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, storeError(err, domain.KindStoreRead, "get", string(key))
	}

	v, err := parseValue(raw)
	if err != nil {
		return 0, &domain.Error{Kind: domain.KindStoreRead, Op: "get", Key: string(key), Err: err}
	}
	return v, nil
}

// Set overwrites one key
func (s *CounterStorage) Set(ctx context.Context, key domain.Key, value int64) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return storeError(err, domain.KindStoreWrite, "set", string(key))
	}
	return nil
}

// Increment applies delta with INCRBY
func (s *CounterStorage) Increment(ctx context.Context, key domain.Key, delta int64) (int64, error) {
	v, err := s.client.IncrBy(ctx, s.key(key), delta).Result()
	if err != nil {
		return 0, storeError(err, domain.KindStoreWrite, "increment", string(key))
	}
	return v, nil
}

// CompareAndIncrement reads, adds and writes under WATCH, retrying when
// another client touched the key in between.
func (s *CounterStorage) CompareAndIncrement(ctx context.Context, key domain.Key, delta int64) (int64, error) {
	redisKey := s.key(key)

	for attempt := 0; attempt < s.casRetries; attempt++ {
		var next int64

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			current := int64(0)
			raw, err := tx.Get(ctx, redisKey).Result()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return storeError(err, domain.KindStoreRead, "compare and increment", string(key))
			default:
				current, err = parseValue(raw)
				if err != nil {
					return &domain.Error{Kind: domain.KindStoreRead, Op: "compare and increment", Key: string(key), Err: err}
				}
			}

			next, err = domain.AddDelta(current, delta)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, redisKey, next, 0)
				return nil
			})
			return err
		}, redisKey)

		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug("optimistic increment conflict, retrying",
				zap.String("key", string(key)),
				zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			if domain.KindOf(err) != domain.KindUnknown {
				return 0, err
			}
			return 0, storeError(err, domain.KindStoreWrite, "compare and increment", string(key))
		}

		return next, nil
	}

	return 0, &domain.Error{
		Kind: domain.KindStoreWrite,
		Op:   "compare and increment",
		Key:  string(key),
		Err:  ErrTooManyRetries,
	}
}

// Ping checks the Redis connection
func (s *CounterStorage) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return storeError(err, domain.KindStoreConnection, "ping", "")
	}
	return nil
}

// key returns the Redis key for a counter
func (s *CounterStorage) key(k domain.Key) string {
	return s.prefix + string(k)
}

// parseValue converts a raw MGET/GET reply into an integer. nil and "" are zero.
func parseValue(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case string:
		if v == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("stored value %q is not an integer", v)
		}
		return n, nil
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("unexpected reply type %T", raw)
	}
}

// storeError wraps a Redis failure, upgrading the kind to a connection error
// when the client could not talk to the server.
func storeError(err error, kind domain.ErrorKind, op, key string) error {
	switch {
	case isConnectionError(err):
		kind = domain.KindStoreConnection
	case isOverflowReply(err):
		kind = domain.KindInvalidValue
	}
	return &domain.Error{Kind: kind, Op: op, Key: key, Err: fmt.Errorf("failed to %s: %w", op, err)}
}

// overflowReply is the server reply to INCRBY past the int64 range, minus "ERR "
const overflowReply = "increment or decrement would overflow"

func isOverflowReply(err error) bool {
	return redis.HasErrorPrefix(err, overflowReply)
}

func isConnectionError(err error) bool {
	if errors.Is(err, redis.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
