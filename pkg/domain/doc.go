// Package domain defines the counter model shared by every layer.
//
// It holds the fixed set of counter keys, the Counters value returned to
// clients, the events emitted after updates and the closed set of error kinds
// the API layer maps to status codes.
package domain
