// Package health monitors the reachability of the counter store.
//
// The monitor pings the store on a fixed interval, records the result as a
// metric, logs transitions and notifies listeners such as the gRPC health
// service.
package health
