// Package websocket provides real-time counter updates via WebSocket.
//
// Clients connect to /ws, receive the current counter set and then one
// message with the full counter set after every update.
package websocket
