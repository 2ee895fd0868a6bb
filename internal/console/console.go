// Package console is the operator's SSH view of a running server: a live
// table of ships and server counters, refreshed a few times a second.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	wishlogging "github.com/charmbracelet/wish/logging"
	"go.uber.org/zap"

	"github.com/tomz197/spacewars/internal/draw"
	"github.com/tomz197/spacewars/internal/logging"
	"github.com/tomz197/spacewars/internal/loop/config"
	"github.com/tomz197/spacewars/internal/loop/server"
)

// Source is what the console reads the game from.
type Source interface {
	Snapshot() *server.Snapshot
	Metrics() *server.Metrics
}

// Console serves the operator view over SSH.
type Console struct {
	src Source
	log *zap.SugaredLogger
	srv *ssh.Server
}

// New creates a console listening on addr. hostKeyPath is created on first
// start when it does not exist.
func New(src Source, addr, hostKeyPath string, log *zap.SugaredLogger) (*Console, error) {
	c := &Console{src: src, log: logging.OrNop(log)}

	opts := []ssh.Option{
		wish.WithAddress(addr),
		wish.WithMiddleware(
			c.middleware,
			activeterm.Middleware(),
			wishlogging.Middleware(),
		),
		ssh.WrapConn(func(ctx ssh.Context, conn net.Conn) net.Conn {
			if tcpConn, ok := conn.(*net.TCPConn); ok {
				_ = tcpConn.SetNoDelay(true)
			}
			return conn
		}),
	}
	if hostKeyPath != "" {
		opts = append(opts, wish.WithHostKeyPath(hostKeyPath))
	}

	srv, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}
	c.srv = srv
	return c, nil
}

// ListenAndServe blocks until the console is shut down.
func (c *Console) ListenAndServe() error {
	c.log.Infow("operator console listening", "addr", c.srv.Addr)
	if err := c.srv.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes the listener and waits for sessions to end.
func (c *Console) Shutdown(ctx context.Context) error {
	return c.srv.Shutdown(ctx)
}

// middleware runs the live view for one SSH session.
func (c *Console) middleware(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		pty, winCh, ok := sess.Pty()
		if !ok {
			fmt.Fprintln(sess, "Error: PTY required. Please connect with: ssh -t user@host")
			return
		}
		c.log.Infow("operator connected", "user", sess.User(), "term", pty.Term)

		size := newSizeTracker(pty.Window.Width, pty.Window.Height)
		go func() {
			for win := range winCh {
				size.update(win.Width, win.Height)
			}
		}()

		quit := make(chan struct{})
		go func() {
			defer close(quit)
			r := bufio.NewReader(sess)
			for {
				b, err := r.ReadByte()
				if err != nil || b == 'q' || b == 'Q' || b == '\x03' {
					return
				}
			}
		}()

		c.run(sess.Context(), sess, size.getSize, quit)
		c.log.Infow("operator disconnected", "user", sess.User())
		next(sess)
	}
}

func (c *Console) run(ctx context.Context, sess ssh.Session, termSize draw.TermSizeFunc, quit <-chan struct{}) {
	cw := draw.NewChunkWriter(sess)
	draw.HideCursor(sess)
	defer draw.ShowCursor(sess)
	draw.ClearScreen(sess)

	ticker := time.NewTicker(config.ConsoleRefresh)
	defer ticker.Stop()
	for {
		width, height, _ := termSize()
		cw.SetWidth(width)
		Render(cw, c.src.Snapshot(), c.src.Metrics().Snapshot(), height)
		if err := cw.Flush(); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-quit:
			return
		case <-ticker.C:
		}
	}
}

// Render writes one screen of the operator view. Ship rows beyond height
// are left out.
func Render(cw *draw.ChunkWriter, snap *server.Snapshot, m server.MetricsSnapshot, height int) {
	if snap == nil {
		cw.Line(1, "waiting for first tick")
		cw.ClearBelow(2)
		return
	}
	cw.Linef(1, "SPACEWARS  tick %d  players %d  ships %d  shots %d  stars %d",
		snap.Tick, snap.Connections, len(snap.Ships), snap.Projectiles, snap.Stars)
	cw.Linef(2, "avg tick %.3fms  accepted %d  joined %d  dropped %d  cmds %d  ignored %d  lagging sends %d",
		m.AvgTickMs, m.ConnsAccepted, m.Handshakes, m.ConnectionsDropped,
		m.CommandsApplied, m.UnknownCommands, m.SendsDropped)
	cw.Line(4, fmt.Sprintf("%5s %-24s %4s %6s %4s %-8s %16s", "ID", "NAME", "HP", "SCORE", "TEAM", "STATE", "POSITION"))

	row := 5
	for _, s := range snap.Ships {
		if height > 0 && row > height-1 {
			break
		}
		state := "alive"
		switch {
		case !s.Active:
			state = "leaving"
		case !s.Alive:
			state = "dead"
		}
		cw.Line(row, fmt.Sprintf("%5d %-24s %4d %6d %4d %-8s %7.1f,%7.1f",
			s.ID, draw.Clip(s.Name, 24), s.HP, s.Score, s.Team, state, s.X, s.Y))
		row++
	}
	cw.ClearBelow(row)
	if height > 0 {
		cw.Line(height, "q: quit")
	}
}

// sizeTracker tracks terminal size from SSH window change events.
type sizeTracker struct {
	mu     sync.RWMutex
	width  int
	height int
}

func newSizeTracker(width, height int) *sizeTracker {
	return &sizeTracker{width: width, height: height}
}

func (s *sizeTracker) update(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = width
	s.height = height
}

func (s *sizeTracker) getSize() (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height, nil
}

// Ensure sizeTracker.getSize satisfies draw.TermSizeFunc
var _ draw.TermSizeFunc = (*sizeTracker)(nil).getSize
