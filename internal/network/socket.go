package network

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReceiveBufferSize is the size of the fixed per-connection read buffer.
const ReceiveBufferSize = 1024

// DefaultSendQueue is how many outgoing messages may wait per connection.
const DefaultSendQueue = 64

// NetworkAction is the continuation invoked on a connection. Which action
// runs next is decided by whoever holds the SocketState, by assigning
// Handler before calling Receive again.
type NetworkAction func(ss *SocketState)

// SocketState is one TCP connection: a fixed receive buffer, a growable
// accumulator of received bytes not yet consumed, and the current handler.
type SocketState struct {
	// ID is free for the consumer; the server stores the ship id here.
	ID int
	// SessionID identifies the connection in logs.
	SessionID uuid.UUID
	// Handler runs after each successful read (and once on connect).
	Handler NetworkAction

	conn    net.Conn
	log     *zap.SugaredLogger
	buf     [ReceiveBufferSize]byte
	acc     []byte
	reading atomic.Bool

	sendQ     chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

func newSocketState(conn net.Conn, handler NetworkAction, sendQueue int, log *zap.SugaredLogger) *SocketState {
	ss := &SocketState{
		ID:        -1,
		SessionID: uuid.New(),
		Handler:   handler,
		conn:      conn,
		log:       log,
		closed:    make(chan struct{}),
	}
	if conn == nil {
		return ss
	}
	ss.sendQ = make(chan []byte, sendQueue)
	go ss.writePump()
	return ss
}

// RemoteAddr returns the peer address, or "" for a failed connection.
func (ss *SocketState) RemoteAddr() string {
	if ss.conn == nil {
		return ""
	}
	return ss.conn.RemoteAddr().String()
}

// Connected reports whether the connection is usable.
func (ss *SocketState) Connected() bool {
	select {
	case <-ss.closed:
		return false
	default:
		return true
	}
}

// Done is closed once the connection is torn down.
func (ss *SocketState) Done() <-chan struct{} {
	return ss.closed
}

// Err returns the error that ended or prevented the connection.
func (ss *SocketState) Err() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.err
}

// Buffered returns the received bytes not yet consumed. The slice is only
// valid until the next Receive.
func (ss *SocketState) Buffered() []byte {
	return ss.acc
}

// Consume drops the first n buffered bytes.
func (ss *SocketState) Consume(n int) {
	if n <= 0 {
		return
	}
	if n >= len(ss.acc) {
		ss.acc = ss.acc[:0]
		return
	}
	ss.acc = append(ss.acc[:0], ss.acc[n:]...)
}

// Pending returns how many messages are queued but not yet written.
func (ss *SocketState) Pending() int {
	return len(ss.sendQ)
}

// Close shuts the connection down in both directions and releases it.
// Safe to call more than once.
func (ss *SocketState) Close() {
	ss.fail(nil)
}

// fail tears the connection down. Only the first call's err is kept, so
// errors caused by the teardown itself are not reported.
func (ss *SocketState) fail(err error) {
	ss.closeOnce.Do(func() {
		ss.mu.Lock()
		ss.err = err
		ss.mu.Unlock()
		close(ss.closed)
		if ss.conn == nil {
			return
		}
		if tcp, ok := ss.conn.(*net.TCPConn); ok {
			_ = tcp.CloseWrite()
		}
		_ = ss.conn.Close()
	})
}

// readOnce performs the single armed read.
func (ss *SocketState) readOnce() {
	n, err := ss.conn.Read(ss.buf[:])
	if n > 0 {
		ss.acc = append(ss.acc, ss.buf[:n]...)
	}
	ss.reading.Store(false)

	if err != nil {
		ss.log.Debugw("receive ended", "session", ss.SessionID, "err", err)
		ss.fail(err)
	}
	if n > 0 && ss.Handler != nil {
		ss.Handler(ss)
	}
}

// writePump writes queued messages in order until the connection closes.
func (ss *SocketState) writePump() {
	for {
		select {
		case <-ss.closed:
			return
		case msg := <-ss.sendQ:
			if _, err := ss.conn.Write(msg); err != nil {
				ss.log.Debugw("send failed", "session", ss.SessionID, "err", err)
				ss.fail(err)
				return
			}
		}
	}
}
