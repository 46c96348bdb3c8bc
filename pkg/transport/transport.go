package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/quill-messaging/quill-go/pkg/log"
)

// State is the transport connection state.
type State int32

const (
	// StateDisconnected indicates the transport has not connected yet.
	StateDisconnected State = iota

	// StateConnecting indicates connection establishment in progress.
	StateConnecting

	// StateConnected indicates an active connection.
	StateConnected

	// StateClosed indicates the transport is closed. Terminal.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Transport errors.
var (
	ErrNotConnected     = errors.New("transport not connected")
	ErrAlreadyConnected = errors.New("transport already connected")
	ErrTransportClosed  = errors.New("transport closed")
)

// ConnectionError reports a connect-time failure: unreachable host,
// handshake failure or connect timeout.
type ConnectionError struct {
	Location string
	Err      error
}

// Error returns the error message.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Location, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// DefaultPort is the default Quill endpoint port.
const DefaultPort = 7411

// MaxLogDataSize is the maximum payload size to include in log events (4 KB).
// Larger payloads are truncated in log events to avoid excessive memory usage.
const MaxLogDataSize = 4096

// eventQueueDepth buffers events between the I/O goroutines and the
// dispatch goroutine.
const eventQueueDepth = 32

type eventKind uint8

const (
	// eventData carries inbound bytes.
	eventData eventKind = iota

	// eventClosed reports a clean peer close.
	eventClosed

	// eventFault reports an I/O fault followed by close. Error and
	// closed notifications travel as one event so no data event can
	// slip between them.
	eventFault
)

type event struct {
	kind eventKind
	data []byte
	err  error
}

// TCPTransport is a byte-stream transport over TCP, optionally wrapped
// in TLS when the location scheme is "tls" or "ssl". One instance owns
// one connection for its lifetime; a new connection attempt requires a
// new instance.
type TCPTransport struct {
	listener Listener
	location string
	host     string
	addr     string
	secure   bool
	opts     Options
	connID   string

	state atomic.Int32

	// suppress is set when the application calls Close. Queued events
	// that have not been delivered yet are dropped from that point on.
	suppress atomic.Bool

	mu   sync.RWMutex
	conn net.Conn

	sendCh   chan []byte
	events   chan event
	closeCh  chan struct{}
	ioWG     sync.WaitGroup
	stopOnce sync.Once
}

// New creates a transport for the given location. The location scheme
// selects the variant: "tcp" for plain connections, "tls" or "ssl" for
// secure ones; a bare host:port defaults to plain TCP. The listener
// must be non-nil; it receives all events for this instance.
func New(listener Listener, location string, opts Options) (*TCPTransport, error) {
	if listener == nil {
		return nil, errors.New("listener is required")
	}

	host, addr, secure, err := parseLocation(location)
	if err != nil {
		return nil, err
	}

	t := &TCPTransport{
		listener: listener,
		location: location,
		host:     host,
		addr:     addr,
		secure:   secure,
		opts:     opts.withDefaults(),
		connID:   uuid.New().String(),
		sendCh:   make(chan []byte, DefaultSendQueueDepth),
		events:   make(chan event, eventQueueDepth),
		closeCh:  make(chan struct{}),
	}
	t.state.Store(int32(StateDisconnected))

	return t, nil
}

// parseLocation splits a connection URI into host, dial address and
// the plain/secure selection.
func parseLocation(location string) (host, addr string, secure bool, err error) {
	s := location
	if !strings.Contains(s, "://") {
		s = "tcp://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", "", false, fmt.Errorf("invalid location %q: %w", location, err)
	}

	switch u.Scheme {
	case "tcp":
	case "tls", "ssl":
		secure = true
	default:
		return "", "", false, fmt.Errorf("unsupported scheme %q in location %q", u.Scheme, location)
	}

	host = u.Hostname()
	if host == "" {
		return "", "", false, fmt.Errorf("missing host in location %q", location)
	}

	port := u.Port()
	if port == "" {
		port = strconv.Itoa(DefaultPort)
	}

	return host, net.JoinHostPort(host, port), secure, nil
}

// State returns the current connection state.
func (t *TCPTransport) State() State {
	return State(t.state.Load())
}

// IsConnected reports whether the transport is currently connected.
func (t *TCPTransport) IsConnected() bool {
	return t.State() == StateConnected
}

// Location returns the remote location the transport connects to.
func (t *TCPTransport) Location() string {
	return t.location
}

// ConnID returns the unique connection identifier.
func (t *TCPTransport) ConnID() string {
	return t.connID
}

// LocalAddr returns the local network address.
func (t *TCPTransport) LocalAddr() net.Addr {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.conn != nil {
		return t.conn.LocalAddr()
	}
	return nil
}

// RemoteAddr returns the remote network address.
func (t *TCPTransport) RemoteAddr() net.Addr {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.conn != nil {
		return t.conn.RemoteAddr()
	}
	return nil
}

// Connect establishes the connection: TCP dial, then the TLS handshake
// for secure locations. Blocks until the connection is established or
// definitively failed. A failed connect leaves the transport closed
// with no I/O goroutines running; errors are reported as
// *ConnectionError. Connecting twice, or after Close, fails with
// ErrAlreadyConnected or ErrTransportClosed.
func (t *TCPTransport) Connect(ctx context.Context) error {
	if !t.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		if t.State() == StateClosed {
			return fmt.Errorf("connect: %w", ErrTransportClosed)
		}
		return fmt.Errorf("connect: %w", ErrAlreadyConnected)
	}
	t.logState(StateDisconnected, StateConnecting, "")

	ctx, cancel := context.WithTimeout(ctx, t.opts.ConnectTimeout)
	defer cancel()

	// Abort the dial/handshake when Close arrives mid-connect.
	go func() {
		select {
		case <-t.closeCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	conn, err := t.dial(ctx)
	if err != nil {
		t.state.Store(int32(StateClosed))
		t.logState(StateConnecting, StateClosed, "connect failed")
		return &ConnectionError{Location: t.location, Err: err}
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	if !t.state.CompareAndSwap(int32(StateConnecting), int32(StateConnected)) {
		// Close won the race mid-connect.
		conn.Close()
		return &ConnectionError{Location: t.location, Err: ErrTransportClosed}
	}
	t.logState(StateConnecting, StateConnected, "")

	t.ioWG.Add(2)
	go t.readLoop(conn)
	go t.writeLoop(conn)
	go t.dispatchLoop()
	go func() {
		// All event producers are I/O goroutines; once they are done
		// the queue can be closed and the dispatcher drains out.
		t.ioWG.Wait()
		close(t.events)
	}()

	return nil
}

// dial opens the TCP connection and, for secure locations, completes
// the TLS handshake.
func (t *TCPTransport) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(t.opts.TCPNoDelay)
		if t.opts.TCPKeepAlive > 0 {
			tcpConn.SetKeepAlive(true)
			tcpConn.SetKeepAlivePeriod(t.opts.TCPKeepAlive)
		}
		if t.opts.SendBufferSize > 0 {
			tcpConn.SetWriteBuffer(t.opts.SendBufferSize)
		}
		if t.opts.ReceiveBufferSize > 0 {
			tcpConn.SetReadBuffer(t.opts.ReceiveBufferSize)
		}
	}

	if !t.secure {
		return conn, nil
	}

	tlsConn := tls.Client(conn, newClientTLSConfig(t.opts.TLS, t.host))
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("TLS handshake failed: %w", err)
	}

	return tlsConn, nil
}

// Send submits bytes for writing. If the transport is connected the
// buffer is handed to the writer goroutine and Send returns without
// waiting for the bytes to reach the peer; ownership of the buffer
// passes to the transport. Buffers from successive Send calls reach
// the peer in call order, each contiguous. If the transport is not
// connected, Send fails with an error wrapping ErrNotConnected or
// ErrTransportClosed and does not take the buffer. A write failure
// after Send has returned is reported through the listener.
func (t *TCPTransport) Send(data []byte) error {
	switch t.State() {
	case StateConnected:
	case StateClosed:
		return fmt.Errorf("send: %w", ErrTransportClosed)
	default:
		return fmt.Errorf("send: %w", ErrNotConnected)
	}

	if len(data) == 0 {
		return nil
	}

	select {
	case t.sendCh <- data:
		return nil
	case <-t.closeCh:
		return fmt.Errorf("send: %w", ErrTransportClosed)
	}
}

// Close shuts the transport down: the I/O goroutines are stopped, the
// connection is released and the state becomes Closed. Idempotent and
// never fails, including on a transport that was never connected or
// that the peer already closed. Close never triggers OnTransportClosed;
// that event is reserved for closures the application did not initiate.
// Events still queued when Close is called are dropped; a callback
// already executing may complete concurrently with Close.
func (t *TCPTransport) Close() error {
	t.suppress.Store(true)
	oldState := t.State()
	if t.terminate() {
		t.logState(oldState, StateClosed, "closed by application")
	}
	t.teardown()
	t.ioWG.Wait()
	return nil
}

// terminate moves the state to Closed and reports whether this call
// won the transition. Exactly one caller wins; the winner decides
// whether listener events fire.
func (t *TCPTransport) terminate() bool {
	for {
		s := t.state.Load()
		if s == int32(StateClosed) {
			return false
		}
		if t.state.CompareAndSwap(s, int32(StateClosed)) {
			return true
		}
	}
}

// teardown releases the connection and unblocks the I/O goroutines.
// Runs its effect at most once.
func (t *TCPTransport) teardown() {
	t.stopOnce.Do(func() {
		close(t.closeCh)
		t.mu.RLock()
		conn := t.conn
		t.mu.RUnlock()
		if conn != nil {
			conn.Close()
		}
	})
}

// enqueue queues an event for dispatch. Gives up once closeCh is
// closed: at that point suppress is set and the dispatcher would drop
// the event anyway, and blocking here would stall Close.
func (t *TCPTransport) enqueue(ev event) {
	select {
	case t.events <- ev:
	case <-t.closeCh:
	}
}

// peerClosed handles a clean end-of-stream from the peer.
func (t *TCPTransport) peerClosed() {
	if t.terminate() {
		t.logState(StateConnected, StateClosed, "closed by peer")
		t.enqueue(event{kind: eventClosed})
	}
	t.teardown()
}

// fault handles an I/O error on an established connection. op names
// the failing operation ("read" or "write") for diagnostics.
func (t *TCPTransport) fault(op string, err error) {
	if t.terminate() {
		t.logError(op, err)
		t.logState(StateConnected, StateClosed, "I/O error")
		t.enqueue(event{kind: eventFault, err: err})
	}
	t.teardown()
}

// readLoop reads from the connection and queues inbound data events.
func (t *TCPTransport) readLoop(conn net.Conn) {
	defer t.ioWG.Done()

	buf := make([]byte, t.opts.readChunkSize())
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			t.logData(log.DirectionIn, data)
			t.enqueue(event{kind: eventData, data: data})
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				t.peerClosed()
			} else {
				t.fault("read", fmt.Errorf("read error: %w", err))
			}
			return
		}
	}
}

// writeLoop writes queued buffers to the connection in submission order.
func (t *TCPTransport) writeLoop(conn net.Conn) {
	defer t.ioWG.Done()

	for {
		select {
		case <-t.closeCh:
			// Remaining queued writes are abandoned; the Send calls
			// that submitted them have already returned.
			return
		default:
		}

		select {
		case data := <-t.sendCh:
			if _, err := conn.Write(data); err != nil {
				t.fault("write", fmt.Errorf("write error: %w", err))
				return
			}
			t.logData(log.DirectionOut, data)
		case <-t.closeCh:
			return
		}
	}
}

// dispatchLoop delivers listener callbacks. Single consumer of the
// event queue: callbacks are serialized and ordered, the closed event
// is delivered at most once, and nothing is delivered once the
// application has called Close.
func (t *TCPTransport) dispatchLoop() {
	closed := false
	for ev := range t.events {
		if closed || t.suppress.Load() {
			continue
		}
		switch ev.kind {
		case eventData:
			t.listener.OnData(ev.data)
		case eventClosed:
			closed = true
			t.listener.OnTransportClosed()
		case eventFault:
			closed = true
			t.listener.OnTransportError(ev.err)
			t.listener.OnTransportClosed()
		}
	}
}

// logState emits a state-change event to the configured logger.
func (t *TCPTransport) logState(oldState, newState State, reason string) {
	if t.opts.Logger == nil {
		return
	}
	t.opts.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: t.connID,
		Category:     log.CategoryState,
		RemoteAddr:   t.addr,
		StateChange: &log.StateChangeEvent{
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})
}

// logData emits a data event to the configured logger.
func (t *TCPTransport) logData(direction log.Direction, data []byte) {
	if t.opts.Logger == nil {
		return
	}

	payload := data
	truncated := false
	if len(data) > MaxLogDataSize {
		payload = data[:MaxLogDataSize]
		truncated = true
	}

	t.opts.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: t.connID,
		Direction:    direction,
		Category:     log.CategoryData,
		RemoteAddr:   t.addr,
		Data: &log.DataEvent{
			Size:      len(data),
			Data:      payload,
			Truncated: truncated,
		},
	})
}

// logError emits an error event to the configured logger.
func (t *TCPTransport) logError(context string, err error) {
	if t.opts.Logger == nil {
		return
	}
	t.opts.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: t.connID,
		Category:     log.CategoryError,
		RemoteAddr:   t.addr,
		Error: &log.ErrorEventData{
			Message: err.Error(),
			Context: context,
		},
	})
}
