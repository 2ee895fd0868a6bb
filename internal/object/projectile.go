package object

import (
	"encoding/json"

	"github.com/tomz197/spacewars/internal/physics"
)

// DefaultProjectileSpeed is the distance a projectile covers per tick when the
// firing ship does not override it.
const DefaultProjectileSpeed = 15.0

// Projectile is a shot fired by a ship. It travels in a straight line until it
// hits something or leaves the world.
type Projectile struct {
	ID        int
	Location  physics.Vector2D
	Direction physics.Vector2D
	Alive     bool
	Owner     int // Ship id that fired this projectile

	speed float64
}

// NewProjectile creates a live projectile. A speed of zero or less means
// DefaultProjectileSpeed.
func NewProjectile(id int, loc, dir physics.Vector2D, owner int, speed float64) *Projectile {
	if speed <= 0 {
		speed = DefaultProjectileSpeed
	}
	return &Projectile{
		ID:        id,
		Location:  loc,
		Direction: dir,
		Alive:     true,
		Owner:     owner,
		speed:     speed,
	}
}

// Kill marks the projectile dead. It stays in the world until the next cleanup.
func (p *Projectile) Kill() {
	p.Alive = false
}

// IsDestroyed implements Destructible.
func (p *Projectile) IsDestroyed() bool {
	return !p.Alive
}

// Update advances the projectile one tick and kills it on contact with any star.
func (p *Projectile) Update(stars []*Star) {
	p.Location = p.Location.Add(p.Direction.Scale(p.speed))
	for _, star := range stars {
		if star.Contains(p.Location) {
			p.Alive = false
		}
	}
}

// EntityID implements Entity.
func (p *Projectile) EntityID() int {
	return p.ID
}

type projectileWire struct {
	Proj      int              `json:"proj"`
	Location  physics.Vector2D `json:"loc"`
	Direction physics.Vector2D `json:"dir"`
	Alive     bool             `json:"alive"`
	Owner     int              `json:"owner"`
}

// MarshalJSON implements json.Marshaler.
func (p *Projectile) MarshalJSON() ([]byte, error) {
	return json.Marshal(projectileWire{
		Proj:      p.ID,
		Location:  p.Location,
		Direction: p.Direction,
		Alive:     p.Alive,
		Owner:     p.Owner,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Projectile) UnmarshalJSON(data []byte) error {
	w := projectileWire{Proj: -1, Owner: -1}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.ID = w.Proj
	p.Location = w.Location
	p.Direction = w.Direction
	p.Alive = w.Alive
	p.Owner = w.Owner
	if p.speed == 0 {
		p.speed = DefaultProjectileSpeed
	}
	return nil
}
