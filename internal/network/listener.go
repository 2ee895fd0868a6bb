package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// acceptBackoff is the pause after a failed Accept before trying again.
const acceptBackoff = 50 * time.Millisecond

// Listener accepts game connections until closed.
type Listener struct {
	ln   net.Listener
	done chan struct{}
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close stops accepting. Established connections are unaffected.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Done is closed once the accept loop has exited.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Listen binds addr and accepts connections until ctx is cancelled or the
// listener is closed. Each accepted connection is handed to onAccept, which
// is also installed as the connection's handler, before accepting resumes.
// A bind failure is returned to the caller.
func (nw *Networking) Listen(ctx context.Context, addr string, onAccept NetworkAction) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	l := &Listener{ln: ln, done: make(chan struct{})}
	nw.log.Infow("listening", "addr", ln.Addr().String())

	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-l.done:
		}
	}()
	go nw.acceptLoop(ctx, l, onAccept)
	return l, nil
}

func (nw *Networking) acceptLoop(ctx context.Context, l *Listener, onAccept NetworkAction) {
	defer close(l.done)
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			nw.log.Warnw("accept failed", "err", err)
			time.Sleep(acceptBackoff)
			continue
		}
		ss := nw.Wrap(conn, onAccept)
		nw.log.Infow("accepted connection", "remote", ss.RemoteAddr(), "session", ss.SessionID)
		onAccept(ss)
	}
}
