package client

import (
	"sort"

	"github.com/tomz197/spacewars/internal/input"
	"github.com/tomz197/spacewars/internal/object"
)

// GameState represents the current game phase for a client.
type GameState int

const (
	GameStateConnecting   GameState = iota // Waiting for the join reply
	GameStatePlaying                       // Own ship alive
	GameStateDead                          // Own ship waiting to respawn
	GameStateDisconnected                  // Connection ended
)

func (g GameState) String() string {
	switch g {
	case GameStateConnecting:
		return "connecting"
	case GameStatePlaying:
		return "playing"
	case GameStateDead:
		return "dead"
	case GameStateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ClientState holds what the HUD shows, derived once per frame.
type ClientState struct {
	Input       input.Input
	GameState   GameState
	Player      object.Ship // Own ship as last mirrored
	HavePlayer  bool
	Ships       int
	Projectiles int
	Stars       int
	Leaders     []object.Ship // Highest score first
	Running     bool
}

// NewClientState creates a new initialized client state.
func NewClientState() *ClientState {
	return &ClientState{
		GameState: GameStateConnecting,
		Running:   true,
	}
}

// refresh updates the state from the session's mirror.
func (st *ClientState) refresh(s *Session, leaders int) {
	select {
	case <-s.Done():
		st.GameState = GameStateDisconnected
		return
	case <-s.Ready():
	default:
		st.GameState = GameStateConnecting
		return
	}

	m := s.Mirror()
	st.Ships, st.Projectiles, st.Stars = m.Counts()
	st.Player, st.HavePlayer = m.Ship(s.ShipID())
	switch {
	case st.HavePlayer && !st.Player.Alive():
		st.GameState = GameStateDead
	default:
		st.GameState = GameStatePlaying
	}
	st.Leaders = leaderboard(m.Ships(), leaders)
}

// leaderboard sorts by score, lower id first on ties.
func leaderboard(ships []object.Ship, n int) []object.Ship {
	sort.SliceStable(ships, func(i, j int) bool {
		if ships[i].Score != ships[j].Score {
			return ships[i].Score > ships[j].Score
		}
		return ships[i].ID < ships[j].ID
	})
	if len(ships) > n {
		ships = ships[:n]
	}
	return ships
}
