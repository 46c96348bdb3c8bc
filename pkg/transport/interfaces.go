package transport

import (
	"context"
	"net"
)

// Listener receives transport events. All callbacks for one Transport
// instance are invoked from a single dispatch goroutine, strictly in
// the order the events were observed, never concurrently.
type Listener interface {
	// OnData is called with bytes read from the connection. The slice
	// is owned by the receiver. Delivery is stream-oriented: a single
	// peer write may arrive split across calls or combined with
	// adjacent writes, but bytes are byte-exact and order-preserving.
	OnData(data []byte)

	// OnTransportClosed is called at most once, and only when the
	// connection was closed by the peer or by an I/O fault. It is
	// never called for a Close() issued by the owning application.
	OnTransportClosed()

	// OnTransportError is called for runtime I/O faults on an
	// established connection. It fires zero or more times, always
	// before OnTransportClosed, and never after the application has
	// called Close.
	OnTransportError(err error)
}

// Transport is a byte-stream connection to a remote endpoint.
// Implemented by TCPTransport for both plain and TLS connections.
type Transport interface {
	// Connect establishes the connection. Blocks until established
	// or definitively failed.
	Connect(ctx context.Context) error

	// IsConnected reports whether the transport is currently connected.
	IsConnected() bool

	// Send submits bytes for writing. Ownership of the buffer passes
	// to the transport on success.
	Send(data []byte) error

	// Close shuts the transport down. Idempotent; never fails.
	Close() error

	// Location returns the remote location the transport connects to.
	Location() string

	// ConnID returns the unique connection identifier.
	ConnID() string

	// LocalAddr returns the local network address, or nil when not connected.
	LocalAddr() net.Addr

	// RemoteAddr returns the remote network address, or nil when not connected.
	RemoteAddr() net.Addr
}

// Compile-time interface satisfaction check.
var _ Transport = (*TCPTransport)(nil)
