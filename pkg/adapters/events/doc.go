// Package events provides event bus implementations.
//
// Implementations:
//   - redis: Redis Pub/Sub, one channel per topic
//   - memory: In-memory for testing
package events
