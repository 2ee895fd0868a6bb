// Package config centralizes the tunable game parameters and their defaults.
package config

import (
	"time"

	"github.com/tomz197/spacewars/internal/object"
	"github.com/tomz197/spacewars/internal/physics"
	"github.com/tomz197/spacewars/internal/world"
)

// Game defaults
const (
	UniverseSize   = 750
	MSPerFrame     = 16
	FramesPerShot  = 6
	RespawnRate    = 300
	StartingHP     = 5
	ShotSpeed      = 15.0
	ThrustStrength = 0.08
	TurningRate    = 2.0 // Degrees per tick
	ShipHitBox     = 20
	StarHitBox     = 35
)

// Default star at the origin
const (
	DefaultStarX    = 0
	DefaultStarY    = 0
	DefaultStarMass = 0.01
)

// Player
const (
	MaxNameLength = 16 // Longer names are truncated on join
)

// Client
const (
	ClientTargetFrameTime = MSPerFrame * time.Millisecond // Command batches follow the server tick
	ClientConnectTimeout  = 10 * time.Second
)

// Server
const (
	ShutdownTimeout = 5 * time.Second
	SendQueueFrames = 8 // Frames a slow client may fall behind before frames are dropped
)

// Operator console
const (
	ConsoleRefresh = 250 * time.Millisecond
)

// StarPlacement is one star in the initial world.
type StarPlacement struct {
	X, Y int
	Mass float64
}

// Settings is the immutable game configuration consumed by the server.
type Settings struct {
	UniverseSize   int
	MSPerFrame     int
	FramesPerShot  uint
	RespawnRate    uint
	StartingHP     int
	ShotSpeed      float64
	ThrustStrength float64
	TurningRate    float64
	ShipHitBox     uint
	StarHitBox     uint
	Teams          bool
	Stars          []StarPlacement
}

// Default returns the stock settings: one light star at the origin.
func Default() Settings {
	return Settings{
		UniverseSize:   UniverseSize,
		MSPerFrame:     MSPerFrame,
		FramesPerShot:  FramesPerShot,
		RespawnRate:    RespawnRate,
		StartingHP:     StartingHP,
		ShotSpeed:      ShotSpeed,
		ThrustStrength: ThrustStrength,
		TurningRate:    TurningRate,
		ShipHitBox:     ShipHitBox,
		StarHitBox:     StarHitBox,
		Stars:          []StarPlacement{{X: DefaultStarX, Y: DefaultStarY, Mass: DefaultStarMass}},
	}
}

// TickInterval is the wall-clock length of one tick.
func (s Settings) TickInterval() time.Duration {
	if s.MSPerFrame <= 0 {
		return MSPerFrame * time.Millisecond
	}
	return time.Duration(s.MSPerFrame) * time.Millisecond
}

// ShipConfig returns the per-ship tunables copied into every new ship.
func (s Settings) ShipConfig() object.ShipConfig {
	return object.ShipConfig{
		FireRate:       s.FramesPerShot,
		ThrustStrength: s.ThrustStrength,
		TurnRate:       s.TurningRate,
		HitBoxSize:     s.ShipHitBox,
		StartingHP:     s.StartingHP,
		ShotSpeed:      s.ShotSpeed,
	}
}

// WorldConfig returns the world rules.
func (s Settings) WorldConfig() world.Config {
	return world.Config{
		Size:         s.UniverseSize,
		RespawnDelay: s.RespawnRate,
		Teams:        s.Teams,
	}
}

// NewWorld builds a world with the configured stars placed.
func (s Settings) NewWorld(opts ...world.Option) *world.World {
	w := world.New(s.WorldConfig(), opts...)
	for _, st := range s.Stars {
		w.AddStar(physics.Vec(float64(st.X), float64(st.Y)), st.Mass, s.StarHitBox)
	}
	return w
}
