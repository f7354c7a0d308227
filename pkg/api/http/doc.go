// Package http provides the HTTP API implementation.
//
// The HTTP server exposes endpoints for:
//   - Reading all counters (GET /data)
//   - Incrementing one counter (GET /update/:key/:value)
//   - Health checks
//   - Prometheus metrics
//   - Static front-end files for every other path
package http
