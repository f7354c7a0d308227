// Package storage provides counter store implementations.
//
// Implementations:
//   - redis: Redis with MSET/MGET batches, INCRBY and WATCH-based increments
//   - memory: In-memory for testing
package storage
