package client

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/tomz197/spacewars/internal/draw"
	"github.com/tomz197/spacewars/internal/loop/config"
	"github.com/tomz197/spacewars/internal/loop/server"
	"github.com/tomz197/spacewars/internal/object"
	"github.com/tomz197/spacewars/internal/physics"
)

func startServer(t *testing.T) (*server.Server, string) {
	t.Helper()
	srv := server.New(config.Default(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ln, err := srv.Listen(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	return srv, ln.Addr().String()
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func joined(t *testing.T, addr, name string) *Session {
	t.Helper()
	s := NewSession(nil)
	s.Start(context.Background(), addr, name)
	t.Cleanup(s.Close)
	select {
	case <-s.Ready():
	case <-s.Done():
		t.Fatalf("session ended: %v", s.Err())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out joining")
	}
	return s
}

func TestSessionJoinsAndMirrors(t *testing.T) {
	srv, addr := startServer(t)
	s := joined(t, addr, "pilot")

	if s.ShipID() != 0 || s.WorldSize() != config.UniverseSize {
		t.Fatalf("join: got ship %d size %d", s.ShipID(), s.WorldSize())
	}
	eventually(t, "server registration", func() bool { return srv.Connections() == 1 })

	srv.Step()
	eventually(t, "mirror", func() bool {
		ships, _, stars := s.Mirror().Counts()
		return ships == 1 && stars == 1
	})
	ship, ok := s.Mirror().Ship(s.ShipID())
	if !ok || ship.Name != "pilot" || ship.HP != config.StartingHP {
		t.Fatalf("mirrored ship: got %+v", ship)
	}
}

func TestSessionSendsCommands(t *testing.T) {
	srv, addr := startServer(t)
	s := joined(t, addr, "pilot")

	if err := s.SendCommands(1, true, false); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := s.SendCommands(0, false, false); err != nil {
		t.Fatalf("empty send: %v", err)
	}
	eventually(t, "commands applied", func() bool {
		return srv.Metrics().Snapshot().CommandsApplied == 2
	})
}

func TestSessionConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	s := NewSession(nil)
	s.Start(context.Background(), addr, "nobody")
	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("session never ended")
	}
	if s.Err() == nil {
		t.Fatal("expected connect error")
	}
	if err := s.Send("T\n"); err != ErrSessionNotReady {
		t.Fatalf("send: got %v want ErrSessionNotReady", err)
	}
}

func TestSessionEndsOnServerShutdown(t *testing.T) {
	srv, addr := startServer(t)
	s := joined(t, addr, "pilot")
	eventually(t, "server registration", func() bool { return srv.Connections() == 1 })

	srv.Shutdown(100 * time.Millisecond)
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end")
	}
}

func TestMirrorApplyLines(t *testing.T) {
	m := NewMirror()
	m.ApplyLines([]string{
		`{"ship":1,"loc":{"x":1,"y":2},"dir":{"x":0,"y":-1},"thrust":false,"name":"a","hp":5,"score":0}`,
		`{"proj":4,"loc":{"x":0,"y":0},"dir":{"x":1,"y":0},"alive":true,"owner":1}`,
		`{"star":0,"loc":{"x":0,"y":0},"mass":0.01}`,
		`{"ship":1,"loc":{"x":3,`,
		`not json`,
		``,
	})
	ships, projectiles, stars := m.Counts()
	if ships != 1 || projectiles != 1 || stars != 1 {
		t.Fatalf("counts: got %d %d %d", ships, projectiles, stars)
	}
	if lines, malformed := m.Stats(); lines != 5 || malformed != 2 {
		t.Fatalf("stats: got %d lines %d malformed", lines, malformed)
	}

	m.ApplyLines([]string{
		`{"ship":1,"loc":{"x":9,"y":9},"dir":{"x":0,"y":-1},"thrust":true,"name":"a","hp":4,"score":2}`,
		`{"proj":4,"loc":{"x":15,"y":0},"dir":{"x":1,"y":0},"alive":false,"owner":1}`,
	})
	ship, _ := m.Ship(1)
	if ship.Location != physics.Vec(9, 9) || ship.HP != 4 || ship.Score != 2 || !ship.Thrusting {
		t.Fatalf("ship not updated: %+v", ship)
	}
	if _, projectiles, _ := m.Counts(); projectiles != 0 {
		t.Fatalf("dead projectile still mirrored")
	}
}

func TestLeaderboard(t *testing.T) {
	ships := []object.Ship{
		{ID: 0, Score: 1},
		{ID: 1, Score: 4},
		{ID: 2, Score: 4},
		{ID: 3, Score: 0},
	}
	got := leaderboard(ships, 3)
	if len(got) != 3 || got[0].ID != 1 || got[1].ID != 2 || got[2].ID != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestRenderHUD(t *testing.T) {
	var out bytes.Buffer
	cw := draw.NewChunkWriter(&out)
	st := &ClientState{
		GameState:  GameStateDead,
		HavePlayer: true,
		Player:     object.Ship{ID: 2, Name: "ace", Score: 3, Direction: physics.Vec(0, -1)},
		Ships:      2,
		Leaders:    []object.Ship{{ID: 2, Name: "ace", Score: 3}},
	}
	renderHUD(cw, st, 2, 750)
	if err := cw.Flush(); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{"ship #2", "DESTROYED", "ace  hp 0  score 3", "*1. ace"} {
		if !strings.Contains(text, want) {
			t.Errorf("HUD missing %q in %q", want, text)
		}
	}
}
