// Package server runs the authoritative game: it accepts players over TCP,
// applies their commands to the world and broadcasts every tick.
package server

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"github.com/tomz197/spacewars/internal/logging"
	"github.com/tomz197/spacewars/internal/loop/config"
	"github.com/tomz197/spacewars/internal/network"
	"github.com/tomz197/spacewars/internal/protocol"
	"github.com/tomz197/spacewars/internal/world"
)

// shutdownPoll is how often Shutdown checks whether queued frames drained.
const shutdownPoll = 20 * time.Millisecond

// Option customizes a Server.
type Option func(*options)

type options struct {
	world []world.Option
	net   []network.Option
}

// WithWorldOptions passes options through to the world.
func WithWorldOptions(opts ...world.Option) Option {
	return func(o *options) { o.world = append(o.world, opts...) }
}

// WithNetworkOptions passes options through to the network engine.
func WithNetworkOptions(opts ...network.Option) Option {
	return func(o *options) { o.net = append(o.net, opts...) }
}

// Server owns the world and the live connections.
//
// Two locks guard it. worldMu serializes every world access: command
// handlers take it per batch and the tick takes it for update, frame
// encoding and cleanup. clientsMu guards the connection list. The two are
// never held together.
type Server struct {
	settings config.Settings
	log      *zap.SugaredLogger
	net      *network.Networking

	worldMu deadlock.Mutex
	world   *world.World

	clientsMu deadlock.Mutex
	clients   []*network.SocketState
	joining   map[*network.SocketState]struct{}

	listenersMu sync.Mutex
	listeners   []*network.Listener
	closing     atomic.Bool

	snapshot atomic.Pointer[Snapshot]
	metrics  Metrics

	frame []byte // Reused by the tick goroutine only
}

// New creates a server with the configured stars in place.
func New(settings config.Settings, log *zap.SugaredLogger, opts ...Option) *Server {
	log = logging.OrNop(log)

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	netOpts := append([]network.Option{network.WithSendQueue(config.SendQueueFrames)}, o.net...)

	s := &Server{
		settings: settings,
		log:      log,
		net:      network.New(log, netOpts...),
		world:    settings.NewWorld(o.world...),
		joining:  make(map[*network.SocketState]struct{}),
	}
	s.snapshot.Store(&Snapshot{
		Stars: len(s.world.Stars()),
		Taken: time.Now(),
	})
	return s
}

// Settings returns the game settings the server was built with.
func (s *Server) Settings() config.Settings {
	return s.settings
}

// Networking returns the engine the server accepts connections with.
func (s *Server) Networking() *network.Networking {
	return s.net
}

// Snapshot returns the state published after the latest tick.
func (s *Server) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Metrics returns the server's counters.
func (s *Server) Metrics() *Metrics {
	return &s.metrics
}

// WithWorld runs fn with the world lock held.
func (s *Server) WithWorld(fn func(w *world.World)) {
	s.worldMu.Lock()
	defer s.worldMu.Unlock()
	fn(s.world)
}

// Connections returns the number of players receiving updates.
func (s *Server) Connections() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

// Listen starts accepting players on addr. A bind failure is returned.
func (s *Server) Listen(ctx context.Context, addr string) (*network.Listener, error) {
	ln, err := s.net.Listen(ctx, addr, s.HandleNewClient)
	if err != nil {
		return nil, err
	}
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, ln)
	s.listenersMu.Unlock()
	return ln, nil
}

// HandleNewClient starts the join handshake on a fresh connection: the
// first line the client sends is its player name.
func (s *Server) HandleNewClient(ss *network.SocketState) {
	s.metrics.connsAccepted.Add(1)
	s.clientsMu.Lock()
	if s.closing.Load() {
		s.clientsMu.Unlock()
		ss.Close()
		return
	}
	s.joining[ss] = struct{}{}
	s.clientsMu.Unlock()

	ss.Handler = s.receivePlayerName
	s.receive(ss)
}

func (s *Server) receivePlayerName(ss *network.SocketState) {
	buf := ss.Buffered()
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		s.receive(ss)
		return
	}
	name := playerName(buf[:i])
	ss.Consume(i + 1)

	s.clientsMu.Lock()
	closing := s.closing.Load()
	s.clientsMu.Unlock()
	if closing {
		s.leaveJoining(ss)
		ss.Close()
		return
	}

	s.worldMu.Lock()
	ship := s.world.AddShipRandomPosition(name, s.settings.ShipConfig())
	size := s.world.Size()
	s.worldMu.Unlock()

	ss.ID = ship.ID
	if err := s.net.Send(ss, protocol.EncodeHandshake(ship.ID, size)); err != nil {
		s.log.Infow("handshake failed", "session", ss.SessionID, "ship", ship.ID, "err", err)
		s.abandonJoin(ss)
		return
	}

	ss.Handler = s.handleClientRequest
	s.clientsMu.Lock()
	delete(s.joining, ss)
	joined := !s.closing.Load()
	if joined {
		s.clients = append(s.clients, ss)
	}
	s.clientsMu.Unlock()
	if !joined {
		s.abandonJoin(ss)
		return
	}
	s.metrics.handshakes.Add(1)
	s.log.Infow("player joined", "session", ss.SessionID, "ship", ship.ID, "name", ship.Name, "remote", ss.RemoteAddr())

	// Commands may have arrived in the same read as the name.
	s.handleClientRequest(ss)
}

// abandonJoin undoes a join that cannot complete.
func (s *Server) abandonJoin(ss *network.SocketState) {
	s.leaveJoining(ss)
	s.worldMu.Lock()
	if ship, ok := s.world.Ship(ss.ID); ok {
		ship.MakeInactive()
	}
	s.worldMu.Unlock()
	ss.Close()
}

func (s *Server) leaveJoining(ss *network.SocketState) {
	s.clientsMu.Lock()
	delete(s.joining, ss)
	s.clientsMu.Unlock()
}

// handleClientRequest applies every complete command line, in order, then
// waits for more.
func (s *Server) handleClientRequest(ss *network.SocketState) {
	lines, consumed := protocol.SplitLines(ss.Buffered())
	ss.Consume(consumed)

	if len(lines) > 0 {
		var applied, ignored int
		s.worldMu.Lock()
		for _, line := range lines {
			cmds, unknown := protocol.ParseCommands(line)
			ignored += unknown
			for _, c := range cmds {
				if s.world.ProcessCommand(ss.ID, c) {
					applied++
				}
			}
		}
		s.worldMu.Unlock()
		s.metrics.commandsApplied.Add(int64(applied))
		s.metrics.unknownCommands.Add(int64(ignored))
	}
	s.receive(ss)
}

func (s *Server) receive(ss *network.SocketState) {
	if err := s.net.Receive(ss); err != nil {
		s.log.Debugw("receive not armed", "session", ss.SessionID, "err", err)
	}
}

// playerName turns the raw first line into a display name.
func playerName(line []byte) string {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	name := string(bytes.ToValidUTF8(line, nil))
	if utf8.RuneCountInString(name) > config.MaxNameLength {
		name = string([]rune(name)[:config.MaxNameLength])
	}
	return name
}

// Run ticks the world at the configured rate until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	interval := s.settings.TickInterval()
	timer := time.NewTimer(interval)
	defer timer.Stop()

	next := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		start := time.Now()
		s.Step()
		s.metrics.addTick(time.Since(start))

		next = next.Add(interval)
		wait := time.Until(next)
		if wait <= 0 {
			s.log.Debugw("tick overran", "behind", -wait)
			next = time.Now()
			continue
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// Step runs one tick: update, encode and clean up under the world lock,
// then broadcast and prune dead connections.
func (s *Server) Step() {
	s.worldMu.Lock()
	s.world.Update()
	ships, projectiles, stars := s.world.Ships(), s.world.Projectiles(), s.world.Stars()
	frame, err := protocol.AppendFrame(s.frame[:0], ships, projectiles, stars)
	infos := shipInfos(ships)
	tick := s.world.Tick()
	s.world.Cleanup()
	s.worldMu.Unlock()

	if err != nil {
		s.log.Errorw("encode frame", "tick", tick, "err", err)
	}
	s.frame = frame
	text := string(frame)

	conns := s.broadcast(text)
	s.snapshot.Store(&Snapshot{
		Tick:        tick,
		Frame:       text,
		Ships:       infos,
		TopScores:   topScores(infos, TopScoresLimit),
		Projectiles: len(projectiles),
		Stars:       len(stars),
		Connections: conns,
		Taken:       time.Now(),
	})
}

// broadcast queues text on every connection and drops the ones that are
// gone. It returns the number of connections left.
func (s *Server) broadcast(text string) int {
	var dropped []*network.SocketState

	s.clientsMu.Lock()
	alive := s.clients[:0]
	for _, ss := range s.clients {
		err := s.net.Send(ss, text)
		switch {
		case err == nil:
		case errors.Is(err, network.ErrSendQueueFull):
			s.metrics.sendsDropped.Add(1)
		default:
			dropped = append(dropped, ss)
			continue
		}
		alive = append(alive, ss)
	}
	for i := len(alive); i < len(s.clients); i++ {
		s.clients[i] = nil
	}
	s.clients = alive
	n := len(alive)
	for ss := range s.joining {
		if !ss.Connected() {
			delete(s.joining, ss)
		}
	}
	s.clientsMu.Unlock()

	if len(dropped) > 0 {
		s.dropClients(dropped)
	}
	return n
}

// dropClients marks the ships of lost connections inactive so the next
// Cleanup removes them.
func (s *Server) dropClients(lost []*network.SocketState) {
	s.worldMu.Lock()
	for _, ss := range lost {
		if ship, ok := s.world.Ship(ss.ID); ok {
			ship.MakeInactive()
		}
	}
	s.worldMu.Unlock()

	for _, ss := range lost {
		ss.Close()
		s.metrics.connectionsDropped.Add(1)
		s.log.Infow("player left", "session", ss.SessionID, "ship", ss.ID, "err", ss.Err())
	}
}

// Shutdown stops accepting players, gives queued frames up to timeout to
// drain, then closes every connection. Cancel Run's context afterwards.
func (s *Server) Shutdown(timeout time.Duration) {
	s.clientsMu.Lock()
	s.closing.Store(true)
	clients := s.clients
	s.clients = nil
	joining := make([]*network.SocketState, 0, len(s.joining))
	for ss := range s.joining {
		joining = append(joining, ss)
	}
	clear(s.joining)
	s.clientsMu.Unlock()

	for _, ss := range joining {
		ss.Close()
	}

	s.listenersMu.Lock()
	for _, ln := range s.listeners {
		_ = ln.Close()
	}
	s.listeners = nil
	s.listenersMu.Unlock()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) && pending(clients) {
		time.Sleep(shutdownPoll)
	}

	s.worldMu.Lock()
	for _, ss := range clients {
		if ship, ok := s.world.Ship(ss.ID); ok {
			ship.MakeInactive()
		}
	}
	s.worldMu.Unlock()

	for _, ss := range clients {
		ss.Close()
	}
	s.log.Infow("server shut down", "connections", len(clients), "joining", len(joining))
}

func pending(clients []*network.SocketState) bool {
	for _, ss := range clients {
		if ss.Connected() && ss.Pending() > 0 {
			return true
		}
	}
	return false
}
