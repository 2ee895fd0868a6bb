package object

import (
	"encoding/json"

	"github.com/tomz197/spacewars/internal/physics"
)

// Star is a fixed gravity well. Touching its hit-box is fatal.
type Star struct {
	ID       int
	Location physics.Vector2D
	Mass     float64

	hitBoxSize uint
}

// NewStar creates a star. Stars are immutable after creation.
func NewStar(id int, loc physics.Vector2D, mass float64, hitBoxSize uint) *Star {
	return &Star{
		ID:         id,
		Location:   loc,
		Mass:       mass,
		hitBoxSize: hitBoxSize,
	}
}

// HitBoxSize returns the collision radius of the star.
func (s *Star) HitBoxSize() uint {
	return s.hitBoxSize
}

// Contains reports whether loc lies inside the star's hit-box.
func (s *Star) Contains(loc physics.Vector2D) bool {
	return physics.Collides(s.Location, loc, s.hitBoxSize)
}

// EntityID implements Entity.
func (s *Star) EntityID() int {
	return s.ID
}

type starWire struct {
	Star     int              `json:"star"`
	Location physics.Vector2D `json:"loc"`
	Mass     float64          `json:"mass"`
}

// MarshalJSON implements json.Marshaler.
func (s *Star) MarshalJSON() ([]byte, error) {
	return json.Marshal(starWire{Star: s.ID, Location: s.Location, Mass: s.Mass})
}

// UnmarshalJSON implements json.Unmarshaler. The hit-box is not part of the
// wire format and is left untouched.
func (s *Star) UnmarshalJSON(data []byte) error {
	w := starWire{Star: -1}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.ID = w.Star
	s.Location = w.Location
	s.Mass = w.Mass
	return nil
}
