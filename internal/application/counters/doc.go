// Package counters implements the counter update logic behind the HTTP API.
//
// The manager:
//   - Validates the key and delta of an update request before touching the store
//   - Applies the delta with the configured increment strategy
//   - Re-reads the full counter set after every update
//   - Publishes a CounterEvent and records metrics
//
// Increment strategies:
//   - atomic: a single store-side increment, no lost updates
//   - optimistic: a WATCH-guarded read-check-write loop, no lost updates
//   - unguarded: a plain read then write; concurrent updates to the same key may be lost
package counters
