// Package network is a small callback-driven TCP engine. It frames nothing:
// it only reports that bytes arrived and queues bytes to send. Each
// connection has at most one read in flight, and a read is armed only by an
// explicit Receive call, usually made by the handler that processed the
// previous chunk.
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// DefaultPort is the well-known game port.
const DefaultPort = 11000

var (
	// ErrNotConnected is returned when using a closed or failed connection.
	ErrNotConnected = errors.New("network: not connected")
	// ErrReadInFlight is returned by Receive when a read is already armed.
	ErrReadInFlight = errors.New("network: read already in flight")
	// ErrSendQueueFull is returned when a message is dropped because the
	// peer is not draining its queue.
	ErrSendQueueFull = errors.New("network: send queue full")
	// ErrNoAddress is returned when a host resolves to nothing.
	ErrNoAddress = errors.New("network: no address for host")
)

// Networking creates and drives connections.
type Networking struct {
	log         *zap.SugaredLogger
	sendQueue   int
	dialTimeout time.Duration
}

// Option configures Networking.
type Option func(*Networking)

// WithSendQueue sets the per-connection outgoing queue length.
func WithSendQueue(n int) Option {
	return func(nw *Networking) {
		if n > 0 {
			nw.sendQueue = n
		}
	}
}

// WithDialTimeout bounds resolution plus connect in Connect.
func WithDialTimeout(d time.Duration) Option {
	return func(nw *Networking) {
		if d > 0 {
			nw.dialTimeout = d
		}
	}
}

// New creates a Networking engine. A nil logger discards output.
func New(log *zap.SugaredLogger, opts ...Option) *Networking {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	nw := &Networking{
		log:         log,
		sendQueue:   DefaultSendQueue,
		dialTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(nw)
	}
	return nw
}

// Wrap adopts an established connection.
func (nw *Networking) Wrap(conn net.Conn, handler NetworkAction) *SocketState {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	return newSocketState(conn, handler, nw.sendQueue, nw.log)
}

// Connect resolves address (host or host:port, DefaultPort when omitted,
// IPv4 preferred) and connects in the background. onConnected is invoked
// exactly once; on failure the state is not Connected and Err says why.
// The callback must call Receive to start reading.
func (nw *Networking) Connect(ctx context.Context, address string, onConnected NetworkAction) {
	go func() {
		ss := nw.connect(ctx, address, onConnected)
		onConnected(ss)
	}()
}

func (nw *Networking) connect(ctx context.Context, address string, handler NetworkAction) *SocketState {
	ctx, cancel := context.WithTimeout(ctx, nw.dialTimeout)
	defer cancel()

	failed := func(err error) *SocketState {
		nw.log.Warnw("connect failed", "address", address, "err", err)
		ss := newSocketState(nil, handler, 0, nw.log)
		ss.fail(err)
		return ss
	}

	host, port, err := splitHostPort(address)
	if err != nil {
		return failed(err)
	}
	ip, err := resolve(ctx, host)
	if err != nil {
		return failed(err)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(ip.String(), port))
	if err != nil {
		return failed(fmt.Errorf("connect %s: %w", address, err))
	}
	nw.log.Infow("connected", "address", address, "remote", conn.RemoteAddr().String())
	return nw.Wrap(conn, handler)
}

func splitHostPort(address string) (host, port string, err error) {
	if address == "" {
		return "", "", fmt.Errorf("connect: %w", ErrNoAddress)
	}
	host, port, err = net.SplitHostPort(address)
	if err != nil {
		// No port given.
		return address, strconv.Itoa(DefaultPort), nil
	}
	if host == "" {
		host = "localhost"
	}
	return host, port, nil
}

func resolve(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", host, err)
	}
	for _, a := range addrs {
		if a.IP.To4() != nil {
			return a.IP, nil
		}
	}
	if len(addrs) > 0 {
		return addrs[0].IP, nil
	}
	return nil, fmt.Errorf("resolve %q: %w", host, ErrNoAddress)
}

// Receive arms exactly one read on ss. When at least one byte arrives it is
// appended to the accumulator and ss.Handler runs on the reading goroutine.
// The read is not re-armed; the handler calls Receive again to continue. A
// closed or failed read tears the connection down without calling the
// handler.
func (nw *Networking) Receive(ss *SocketState) error {
	if !ss.Connected() {
		return ErrNotConnected
	}
	if !ss.reading.CompareAndSwap(false, true) {
		return ErrReadInFlight
	}
	go ss.readOnce()
	return nil
}

// Send queues text for writing. Writes happen in queue order on a
// per-connection goroutine; a failed write closes the connection. Delivery
// is best effort: queued text may be lost if the connection closes.
func (nw *Networking) Send(ss *SocketState, text string) error {
	if !ss.Connected() {
		return ErrNotConnected
	}
	select {
	case ss.sendQ <- []byte(text):
		return nil
	default:
		return ErrSendQueueFull
	}
}
