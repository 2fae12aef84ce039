package netutil

import (
	"fmt"
	"net"
	"time"
)

const (
	// MaxDatagram is the largest payload any receiver must be prepared to
	// read: a full block at the maximum striping unit plus framing
	// overhead, per spec.md §6.
	MaxDatagram = 65536

	// ControlBufferSize suffices for every manager reply.
	ControlBufferSize = 1024

	// DefaultTimeout bounds a single request/reply exchange. The base
	// protocol defines no per-datagram timeout (spec.md §9(c)); this is
	// the strengthening the design notes call for, so a lost reply can
	// never deadlock a stripe or a control-plane command.
	DefaultTimeout = 3 * time.Second
)

// ResolveEndpoint turns a host and port into a *net.UDPAddr, accepting both
// IPv4 and IPv6 literals as spec.md §6 requires.
func ResolveEndpoint(host string, port int) (*net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("netutil: resolve %s:%d: %w", host, port, err)
	}
	return addr, nil
}

// Conn is a UDP socket bound to one peer, used for a single request/reply
// exchange. Dialing a fresh connected socket per exchange — rather than
// sharing one socket across concurrent callers — keeps each goroutine's
// reply unambiguous: the kernel only delivers datagrams from the dialed
// peer, so concurrent per-drive requests in the same stripe can never
// steal each other's replies.
type Conn struct {
	udp *net.UDPConn
}

// Dial opens a connected UDP socket to addr.
func Dial(addr *net.UDPAddr) (*Conn, error) {
	c, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("netutil: dial %s: %w", addr, err)
	}
	return &Conn{udp: c}, nil
}

// Close releases the underlying socket.
func (c *Conn) Close() error { return c.udp.Close() }

// Send writes payload as a single datagram.
func (c *Conn) Send(payload []byte) error {
	_, err := c.udp.Write(payload)
	if err != nil {
		return fmt.Errorf("netutil: send: %w", err)
	}
	return nil
}

// Receive reads one datagram, up to bufSize bytes, failing if none arrives
// within timeout. A timeout surfaces as a *net.OpError wrapping
// os.ErrDeadlineExceeded; callers that retry on "missing reply" should
// treat any error from Receive the same way.
func (c *Conn) Receive(bufSize int, timeout time.Duration) ([]byte, error) {
	if err := c.udp.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("netutil: set deadline: %w", err)
	}
	buf := make([]byte, bufSize)
	n, err := c.udp.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("netutil: receive: %w", err)
	}
	return buf[:n], nil
}

// RequestReply sends payload and waits up to timeout for exactly one reply
// datagram, the request/reply pattern every control-plane and data-plane
// exchange in this system follows.
func (c *Conn) RequestReply(payload []byte, bufSize int, timeout time.Duration) ([]byte, error) {
	if err := c.Send(payload); err != nil {
		return nil, err
	}
	return c.Receive(bufSize, timeout)
}

// ListenerConn is a UDP socket bound to a local address, serving requests
// from arbitrary peers — the shape the manager and storage node daemons
// use for their single listening socket.
type ListenerConn struct {
	udp *net.UDPConn
}

// Listen binds a UDP socket on the given port across all local interfaces.
func Listen(port int) (*ListenerConn, error) {
	addr := &net.UDPAddr{Port: port}
	c, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("netutil: listen :%d: %w", port, err)
	}
	return &ListenerConn{udp: c}, nil
}

// Close releases the underlying socket.
func (l *ListenerConn) Close() error { return l.udp.Close() }

// ReadFrom blocks until a datagram arrives, returning its bytes and the
// sender's address.
func (l *ListenerConn) ReadFrom(bufSize int) ([]byte, *net.UDPAddr, error) {
	buf := make([]byte, bufSize)
	n, addr, err := l.udp.ReadFromUDP(buf)
	if err != nil {
		return nil, nil, fmt.Errorf("netutil: read: %w", err)
	}
	return buf[:n], addr, nil
}

// ReadFromTimeout is ReadFrom bounded by a deadline, used by the manager
// while blocking on a two-phase commit's follow-up datagram so a client
// that never sends it cannot wedge the manager's loop forever.
func (l *ListenerConn) ReadFromTimeout(bufSize int, timeout time.Duration) ([]byte, *net.UDPAddr, error) {
	if err := l.udp.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, nil, fmt.Errorf("netutil: set deadline: %w", err)
	}
	defer l.udp.SetReadDeadline(time.Time{})
	return l.ReadFrom(bufSize)
}

// WriteTo sends payload to addr.
func (l *ListenerConn) WriteTo(payload []byte, addr *net.UDPAddr) error {
	_, err := l.udp.WriteToUDP(payload, addr)
	if err != nil {
		return fmt.Errorf("netutil: write to %s: %w", addr, err)
	}
	return nil
}

// LocalPort returns the port the listener is bound to, useful for tests
// that bind to port 0 and need to discover the assigned ephemeral port.
func (l *ListenerConn) LocalPort() int {
	return l.udp.LocalAddr().(*net.UDPAddr).Port
}
