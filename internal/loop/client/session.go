package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tomz197/spacewars/internal/logging"
	"github.com/tomz197/spacewars/internal/network"
	"github.com/tomz197/spacewars/internal/protocol"
)

// ErrSessionNotReady is returned when sending before the join completes.
var ErrSessionNotReady = errors.New("client: session not joined")

// Session is one player's connection: it joins with a name, learns its ship
// id and the world size, then mirrors every broadcast line.
type Session struct {
	net    *network.Networking
	log    *zap.SugaredLogger
	mirror *Mirror

	ss        atomic.Pointer[network.SocketState]
	shipID    atomic.Int64
	worldSize atomic.Int64

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once
	err       error // Set before done is closed
}

// NewSession creates a session that is not yet connected.
func NewSession(log *zap.SugaredLogger, opts ...network.Option) *Session {
	log = logging.OrNop(log)
	s := &Session{
		net:    network.New(log, opts...),
		log:    log,
		mirror: NewMirror(),
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.shipID.Store(-1)
	return s
}

// Start connects to address and sends name. It returns at once; Ready is
// closed when the handshake completes and Done when the session ends.
func (s *Session) Start(ctx context.Context, address, name string) {
	s.net.Connect(ctx, address, func(ss *network.SocketState) {
		s.onConnected(ss, name)
	})
}

func (s *Session) onConnected(ss *network.SocketState, name string) {
	if !ss.Connected() {
		s.finish(fmt.Errorf("connect: %w", ss.Err()))
		return
	}
	s.ss.Store(ss)
	go func() {
		<-ss.Done()
		s.finish(ss.Err())
	}()

	if err := s.net.Send(ss, protocol.EncodePlayerName(name)); err != nil {
		s.finish(fmt.Errorf("send name: %w", err))
		ss.Close()
		return
	}
	ss.Handler = s.receiveStartup
	s.receive(ss)
}

// receiveStartup waits for the ship id and world size lines.
func (s *Session) receiveStartup(ss *network.SocketState) {
	id, size, n, err := protocol.DecodeHandshake(ss.Buffered())
	switch {
	case errors.Is(err, protocol.ErrIncompleteHandshake):
		s.receive(ss)
		return
	case err != nil:
		s.finish(err)
		ss.Close()
		return
	}
	ss.Consume(n)
	ss.ID = id
	s.shipID.Store(int64(id))
	s.worldSize.Store(int64(size))
	s.readyOnce.Do(func() { close(s.ready) })
	s.log.Infow("joined", "ship", id, "world_size", size)

	ss.Handler = s.receiveWorld
	s.receiveWorld(ss)
}

func (s *Session) receiveWorld(ss *network.SocketState) {
	lines, consumed := protocol.SplitLines(ss.Buffered())
	ss.Consume(consumed)
	s.mirror.ApplyLines(lines)
	s.receive(ss)
}

// receive re-arms the read. A closed connection is reported through
// ss.Done, so a failure here needs no handling.
func (s *Session) receive(ss *network.SocketState) {
	if err := s.net.Receive(ss); err != nil {
		s.log.Debugw("receive not armed", "err", err)
	}
}

func (s *Session) finish(err error) {
	s.doneOnce.Do(func() {
		s.err = err
		close(s.done)
	})
}

// Ready is closed once the server has assigned a ship.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// Done is closed when the connection fails or ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns why the session ended. Only valid after Done is closed.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// ShipID returns the assigned ship id, or -1 before the join completes.
func (s *Session) ShipID() int {
	return int(s.shipID.Load())
}

// WorldSize returns the side length the server reported.
func (s *Session) WorldSize() int {
	return int(s.worldSize.Load())
}

// Mirror returns the client's copy of the world.
func (s *Session) Mirror() *Mirror {
	return s.mirror
}

// Send queues a raw command batch.
func (s *Session) Send(cmds string) error {
	ss := s.ss.Load()
	if ss == nil || s.ShipID() < 0 {
		return ErrSessionNotReady
	}
	return s.net.Send(ss, cmds)
}

// SendCommands sends the batch for one tick. Nothing is sent when no key
// is active.
func (s *Session) SendCommands(turn int, thrust, fire bool) error {
	batch := protocol.EncodeCommands(turn, thrust, fire)
	if batch == "" {
		return nil
	}
	return s.Send(batch)
}

// Close ends the session.
func (s *Session) Close() {
	if ss := s.ss.Load(); ss != nil {
		ss.Close()
	}
	s.finish(nil)
}
