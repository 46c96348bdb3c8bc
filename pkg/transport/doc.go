// Package transport provides the Quill byte-stream transport layer.
//
// The transport layer handles:
//   - Plain TCP and TLS 1.3 connections
//   - Ordered, non-blocking submission of outbound bytes
//   - Serialized delivery of inbound data and lifecycle events
//   - Connection state management
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   Quill wire protocol (above)  │
//	├────────────────────────────────┤
//	│   Transport (this package)     │
//	├────────────────────────────────┤
//	│       TLS 1.3 (optional)       │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// A Transport carries raw bytes only. Frame boundaries, session state
// and retry policy belong to the layers above; a registered Listener
// receives inbound bytes exactly as they were read from the socket.
//
// # Lifecycle
//
// Each Transport instance owns one connection for its lifetime:
//
//	Disconnected → Connecting → Connected → Closed
//
// Closed is terminal. A new connection attempt requires a new instance.
// Listener callbacks are dispatched from a single goroutine per
// instance, in the order events were observed, and never concurrently.
// OnTransportClosed fires at most once and only for closures the
// application did not initiate itself.
package transport
