package object

import (
	"encoding/json"

	"github.com/tomz197/spacewars/internal/physics"
)

// Turn directions buffered by ProcessCommand.
const (
	TurnLeft  = -1
	TurnNone  = 0
	TurnRight = 1
)

// ShipConfig holds the per-ship tunables copied at creation.
type ShipConfig struct {
	FireRate       uint    // Minimum ticks between shots
	ThrustStrength float64 // Acceleration per tick while thrusting
	TurnRate       float64 // Degrees per tick while turning
	HitBoxSize     uint    // Collision radius
	StartingHP     int     // HP on spawn and respawn
	ShotSpeed      float64 // Projectile speed, 0 means DefaultProjectileSpeed
}

// Commands is the input buffered for the next tick. It is cleared after
// ApplyCommands consumes it.
type Commands struct {
	Turn   int
	Thrust bool
}

// Ship is a player-controlled spaceship.
type Ship struct {
	ID        int
	Location  physics.Vector2D
	Direction physics.Vector2D
	Thrusting bool
	Name      string
	HP        int
	Score     int

	velocity    physics.Vector2D
	thrustAccel physics.Vector2D
	lastFired   uint
	lastDeath   uint
	cfg         ShipConfig
	active      bool
	commands    Commands
}

// NewShip creates an active ship at full health.
func NewShip(id int, loc, dir physics.Vector2D, name string, cfg ShipConfig) *Ship {
	return &Ship{
		ID:        id,
		Location:  loc,
		Direction: dir,
		Name:      name,
		HP:        cfg.StartingHP,
		cfg:       cfg,
		active:    true,
	}
}

// Config returns the tunables the ship was created with.
func (s *Ship) Config() ShipConfig {
	return s.cfg
}

// Alive reports whether the ship has HP left.
func (s *Ship) Alive() bool {
	return s.HP > 0
}

// Team returns 0 or 1, the ship's team in team mode.
func (s *Ship) Team() int {
	return s.ID % 2
}

// Active reports whether the ship still has a connection behind it.
func (s *Ship) Active() bool {
	return s.active
}

// MakeInactive flags the ship for removal on the next cleanup.
func (s *Ship) MakeInactive() {
	s.active = false
}

// IsDestroyed implements Destructible.
func (s *Ship) IsDestroyed() bool {
	return !s.active
}

// Velocity returns the current velocity.
func (s *Ship) Velocity() physics.Vector2D {
	return s.velocity
}

// LastDeath returns the tick of the most recent death.
func (s *Ship) LastDeath() uint {
	return s.lastDeath
}

// LastFired returns the tick of the most recent successful shot.
func (s *Ship) LastFired() uint {
	return s.lastFired
}

// HitBoxSize returns the collision radius of the ship.
func (s *Ship) HitBoxSize() uint {
	return s.cfg.HitBoxSize
}

// PendingCommands returns the input buffered for the next tick.
func (s *Ship) PendingCommands() Commands {
	return s.commands
}

// ProcessCommand buffers a turn or thrust request. Other characters,
// including 'F', are ignored here; firing is resolved by the world.
func (s *Ship) ProcessCommand(ch byte) {
	switch ch {
	case 'L':
		s.commands.Turn = TurnLeft
	case 'R':
		s.commands.Turn = TurnRight
	case 'T':
		s.commands.Thrust = true
	}
}

// Fire returns a new projectile at the ship's position if the ship is alive
// and at least FireRate ticks have passed since the last shot.
func (s *Ship) Fire(tick uint, ids *IDAllocator) (*Projectile, bool) {
	if !s.Alive() || tick-s.lastFired < s.cfg.FireRate {
		return nil, false
	}
	s.lastFired = tick
	return NewProjectile(ids.NextProjectile(), s.Location, s.Direction, s.ID, s.cfg.ShotSpeed), true
}

// ApplyCommands turns and sets thrust from the buffered input, then clears it.
// Must run before GetPhysics each tick.
func (s *Ship) ApplyCommands() {
	switch s.commands.Turn {
	case TurnRight:
		s.Direction.Rotate(s.cfg.TurnRate)
	case TurnLeft:
		s.Direction.Rotate(-s.cfg.TurnRate)
	}

	if s.commands.Thrust {
		s.Thrusting = true
		s.thrustAccel = s.Direction.Scale(s.cfg.ThrustStrength)
	} else {
		s.Thrusting = false
		s.thrustAccel = physics.Vector2D{}
	}

	s.commands = Commands{}
}

// GetPhysics integrates gravity from every star plus thrust into velocity and
// position. Entering a star's hit-box kills a living ship and skips the rest
// of the integration for this tick.
func (s *Ship) GetPhysics(stars []*Star, tick uint) {
	forces := s.thrustAccel
	s.thrustAccel = physics.Vector2D{}

	for _, star := range stars {
		if star.Contains(s.Location) && s.Alive() {
			s.Die(tick)
			return
		}
		g := star.Location.Subtract(s.Location).Normalize().Scale(star.Mass)
		forces = forces.Add(g)
	}

	s.velocity = s.velocity.Add(forces)
	s.Location = s.Location.Add(s.velocity)
}

// Update applies buffered commands and then physics.
func (s *Ship) Update(stars []*Star, tick uint) {
	s.ApplyCommands()
	s.GetPhysics(stars, tick)
}

// Die sets HP to zero and records the tick. Killing a dead ship is a no-op.
func (s *Ship) Die(tick uint) {
	if s.Alive() {
		s.lastDeath = tick
	}
	s.HP = 0
}

// Hit removes one HP, killing the ship when none is left.
func (s *Ship) Hit(tick uint) {
	if s.HP <= 1 {
		s.Die(tick)
		return
	}
	s.HP--
}

// Respawn restores full health at loc, facing SpawnHeading, at rest.
func (s *Ship) Respawn(loc physics.Vector2D) {
	s.HP = s.cfg.StartingHP
	s.velocity = physics.Vector2D{}
	s.thrustAccel = physics.Vector2D{}
	s.Location = loc
	s.Direction = SpawnHeading
}

// WrapAroundX mirrors the x coordinate through the origin.
func (s *Ship) WrapAroundX() {
	s.Location.X = -s.Location.X
}

// WrapAroundY mirrors the y coordinate through the origin.
func (s *Ship) WrapAroundY() {
	s.Location.Y = -s.Location.Y
}

// IncreaseScore adds one point.
func (s *Ship) IncreaseScore() {
	s.Score++
}

// EntityID implements Entity.
func (s *Ship) EntityID() int {
	return s.ID
}

type shipWire struct {
	Ship      int              `json:"ship"`
	Location  physics.Vector2D `json:"loc"`
	Direction physics.Vector2D `json:"dir"`
	Thrust    bool             `json:"thrust"`
	Name      string           `json:"name"`
	HP        int              `json:"hp"`
	Score     int              `json:"score"`
}

// MarshalJSON implements json.Marshaler.
func (s *Ship) MarshalJSON() ([]byte, error) {
	return json.Marshal(shipWire{
		Ship:      s.ID,
		Location:  s.Location,
		Direction: s.Direction,
		Thrust:    s.Thrusting,
		Name:      s.Name,
		HP:        s.HP,
		Score:     s.Score,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Only the wire fields are set;
// a decoded ship is a mirror and carries no tunables.
func (s *Ship) UnmarshalJSON(data []byte) error {
	w := shipWire{Ship: -1}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.ID = w.Ship
	s.Location = w.Location
	s.Direction = w.Direction
	s.Thrusting = w.Thrust
	s.Name = w.Name
	s.HP = w.HP
	s.Score = w.Score
	return nil
}
