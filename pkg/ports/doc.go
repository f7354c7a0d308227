// Package ports declares the interfaces between the application layer and
// its adapters (storage, events, metrics).
package ports
