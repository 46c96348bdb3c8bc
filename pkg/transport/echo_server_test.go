package transport

import (
	"crypto/tls"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// echoServer is a minimal echo endpoint for transport tests. It echoes
// every byte it reads and can be torn down mid-connection to simulate
// a peer-initiated close.
type echoServer struct {
	listener net.Listener
	tlsConf  *tls.Config // nil for plain TCP

	// conns maps the connection handed to handleConnection (TLS-wrapped
	// when tlsConf is set) to the underlying TCP connection.
	mu    sync.Mutex
	conns map[net.Conn]*net.TCPConn

	running       atomic.Bool
	wg            sync.WaitGroup
	bytesReceived atomic.Int64

	// handshakes tracks TLS connections whose server-side handshake
	// has not finished yet. close waits on it: closing a tls.Conn
	// mid-handshake skips close_notify and resets the socket, which
	// would turn the intended clean close into an I/O error.
	handshakes sync.WaitGroup
}

// newEchoServer starts a plain TCP echo server on a loopback port.
func newEchoServer(t *testing.T) *echoServer {
	t.Helper()
	return startEchoServer(t, nil)
}

// newTLSEchoServer starts a TLS echo server on a loopback port.
func newTLSEchoServer(t *testing.T, tlsConf *tls.Config) *echoServer {
	t.Helper()
	return startEchoServer(t, tlsConf)
}

func startEchoServer(t *testing.T, tlsConf *tls.Config) *echoServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	s := &echoServer{
		listener: listener,
		tlsConf:  tlsConf,
		conns:    make(map[net.Conn]*net.TCPConn),
	}
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	return s
}

// addr returns the server's host:port.
func (s *echoServer) addr() string {
	return s.listener.Addr().String()
}

// close stops the server and terminates all active connections.
// Safe to call multiple times.
func (s *echoServer) close() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}

	s.listener.Close()
	s.handshakes.Wait()

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// closeAbruptly stops the server and resets all active connections
// instead of closing them cleanly. Closing a zero-linger socket sends
// RST, so clients observe an I/O error rather than end-of-stream.
func (s *echoServer) closeAbruptly(t *testing.T) {
	t.Helper()

	if !s.running.CompareAndSwap(true, false) {
		return
	}

	s.listener.Close()

	s.mu.Lock()
	for _, raw := range s.conns {
		if err := raw.SetLinger(0); err != nil {
			t.Fatalf("failed to set linger: %v", err)
		}
		raw.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// bytesEchoed returns the total byte count the server has read.
func (s *echoServer) bytesEchoed() int {
	return int(s.bytesReceived.Load())
}

// broadcast writes data to all active connections.
func (s *echoServer) broadcast(t *testing.T, data []byte) {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		if _, err := conn.Write(data); err != nil {
			t.Fatalf("broadcast write failed: %v", err)
		}
	}
}

// connectionCount returns the number of active connections.
func (s *echoServer) connectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *echoServer) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			continue
		}

		raw := conn.(*net.TCPConn)
		if s.tlsConf != nil {
			conn = tls.Server(conn, s.tlsConf)
			s.handshakes.Add(1)
		}

		s.mu.Lock()
		s.conns[conn] = raw
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *echoServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	if tlsConn, ok := conn.(*tls.Conn); ok {
		err := tlsConn.Handshake()
		s.handshakes.Done()
		if err != nil {
			return
		}
	}

	buf := make([]byte, 32*1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			s.bytesReceived.Add(int64(n))
			if _, werr := conn.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// recordingListener records transport events for assertions.
type recordingListener struct {
	mu          sync.Mutex
	data        [][]byte
	closedCount int
	errors      []error

	// sequence records event kinds in delivery order ("data",
	// "closed", "error") for ordering assertions.
	sequence []string
}

func newRecordingListener() *recordingListener {
	return &recordingListener{}
}

func (l *recordingListener) OnData(data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data = append(l.data, data)
	l.sequence = append(l.sequence, "data")
}

func (l *recordingListener) OnTransportClosed() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closedCount++
	l.sequence = append(l.sequence, "closed")
}

func (l *recordingListener) OnTransportError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, err)
	l.sequence = append(l.sequence, "error")
}

// bytes returns all received data concatenated in delivery order.
func (l *recordingListener) bytes() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []byte
	for _, d := range l.data {
		out = append(out, d...)
	}
	return out
}

func (l *recordingListener) bytesRead() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, d := range l.data {
		n += len(d)
	}
	return n
}

func (l *recordingListener) closed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closedCount
}

func (l *recordingListener) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

func (l *recordingListener) eventSequence() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.sequence))
	copy(out, l.sequence)
	return out
}

// waitFor polls cond until it is true or the timeout elapses.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
