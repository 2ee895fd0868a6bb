// Package world implements the authoritative simulation: ships, projectiles
// and stars advanced one discrete tick at a time.
//
// A World is not safe for concurrent use. The server serializes every call
// behind a single world lock.
package world

import (
	"math/rand"
	"time"

	"github.com/tomz197/spacewars/internal/object"
	"github.com/tomz197/spacewars/internal/physics"
)

// Defaults used when a Config field is left zero.
const (
	DefaultSize         = 750
	DefaultRespawnDelay = 300
)

// Config describes the world's rules.
type Config struct {
	Size         int  // Side length of the square world, centered on the origin
	RespawnDelay uint // Ticks a ship stays dead
	Teams        bool // Two teams by id parity, shared score, no friendly fire
}

func (c Config) normalized() Config {
	if c.Size <= 0 {
		c.Size = DefaultSize
	}
	if c.RespawnDelay == 0 {
		c.RespawnDelay = DefaultRespawnDelay
	}
	return c
}

// Option customizes a World at construction.
type Option func(*World)

// WithIDs makes the world draw ids from a shared allocator.
func WithIDs(ids *object.IDAllocator) Option {
	return func(w *World) {
		if ids != nil {
			w.ids = ids
		}
	}
}

// WithRand sets the random source used for spawn points.
func WithRand(rng *rand.Rand) Option {
	return func(w *World) {
		if rng != nil {
			w.rng = rng
		}
	}
}

// World owns every entity and the tick counter.
type World struct {
	cfg  Config
	tick uint
	ids  *object.IDAllocator
	rng  *rand.Rand

	ships       map[int]*object.Ship
	projectiles map[int]*object.Projectile
	stars       map[int]*object.Star

	// Ids in ascending order; they are allocated monotonically so appending
	// keeps the order.
	shipOrder       []int
	projectileOrder []int
	starList        []*object.Star
}

// New creates an empty world.
func New(cfg Config, opts ...Option) *World {
	w := &World{
		cfg:         cfg.normalized(),
		ids:         object.NewIDAllocator(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		ships:       make(map[int]*object.Ship),
		projectiles: make(map[int]*object.Projectile),
		stars:       make(map[int]*object.Star),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Config returns the normalized world rules.
func (w *World) Config() Config {
	return w.cfg
}

// Size returns the world side length.
func (w *World) Size() int {
	return w.cfg.Size
}

// Tick returns the number of completed updates.
func (w *World) Tick() uint {
	return w.tick
}

// Ship returns the ship with the given id.
func (w *World) Ship(id int) (*object.Ship, bool) {
	s, ok := w.ships[id]
	return s, ok
}

// Ships returns every ship in ascending id order.
func (w *World) Ships() []*object.Ship {
	out := make([]*object.Ship, 0, len(w.shipOrder))
	for _, id := range w.shipOrder {
		out = append(out, w.ships[id])
	}
	return out
}

// Projectiles returns every projectile, dead or alive, in ascending id order.
func (w *World) Projectiles() []*object.Projectile {
	out := make([]*object.Projectile, 0, len(w.projectileOrder))
	for _, id := range w.projectileOrder {
		out = append(out, w.projectiles[id])
	}
	return out
}

// Stars returns every star in ascending id order.
func (w *World) Stars() []*object.Star {
	out := make([]*object.Star, len(w.starList))
	copy(out, w.starList)
	return out
}

// AddStar places a star, allocating its id.
func (w *World) AddStar(loc physics.Vector2D, mass float64, hitBoxSize uint) *object.Star {
	star := object.NewStar(w.ids.NextStar(), loc, mass, hitBoxSize)
	w.stars[star.ID] = star
	w.starList = append(w.starList, star)
	return star
}

// AddShip places a new ship at loc facing dir.
func (w *World) AddShip(loc, dir physics.Vector2D, name string, cfg object.ShipConfig) *object.Ship {
	id := w.ids.NextShip()
	ship := object.NewShip(id, loc, dir, name, cfg)
	if w.cfg.Teams {
		team := ship.Team()
		ship.Score = w.TeamScore(team)
		ship.Name = teamPrefix(team) + name
	}
	w.ships[id] = ship
	w.shipOrder = append(w.shipOrder, id)
	return ship
}

// AddShipRandomPosition places a new ship at a random point clear of every star.
func (w *World) AddShipRandomPosition(name string, cfg object.ShipConfig) *object.Ship {
	return w.AddShip(w.GetRandomPosition(), object.SpawnHeading, name, cfg)
}

// GetRandomPosition samples uniformly in [-size/2, size/2]² until the point
// lies outside every star's hit-box.
func (w *World) GetRandomPosition() physics.Vector2D {
	half := float64(w.cfg.Size / 2)
	for {
		pos := physics.Vec(
			-half+w.rng.Float64()*2*half,
			-half+w.rng.Float64()*2*half,
		)
		if w.clearOfStars(pos) {
			return pos
		}
	}
}

func (w *World) clearOfStars(pos physics.Vector2D) bool {
	for _, star := range w.starList {
		if star.Contains(pos) {
			return false
		}
	}
	return true
}

// ProcessCommand applies one command character from a ship's client. 'F'
// attempts to fire; 'L', 'R' and 'T' are buffered for the next tick. Other
// characters are ignored. Returns false if the ship is not in the world.
func (w *World) ProcessCommand(id int, ch byte) bool {
	ship, ok := w.ships[id]
	if !ok {
		return false
	}
	if ch == 'F' {
		if shot, fired := ship.Fire(w.tick, w.ids); fired {
			w.projectiles[shot.ID] = shot
			w.projectileOrder = append(w.projectileOrder, shot.ID)
		}
	}
	ship.ProcessCommand(ch)
	return true
}

// Update advances the world one tick: respawns, ship commands and physics,
// boundary wrap, projectile movement and hits. The tick counter is
// incremented last.
func (w *World) Update() {
	half := float64(w.cfg.Size / 2)

	for _, id := range w.shipOrder {
		ship := w.ships[id]
		if !ship.Alive() && w.tick-ship.LastDeath() > w.cfg.RespawnDelay {
			ship.Respawn(w.GetRandomPosition())
		}

		ship.Update(w.starList, w.tick)

		if outside(ship.Location.X, half) {
			ship.WrapAroundX()
		}
		if outside(ship.Location.Y, half) {
			ship.WrapAroundY()
		}
	}

	for _, id := range w.projectileOrder {
		shot := w.projectiles[id]
		if !shot.Alive {
			continue
		}
		shot.Update(w.starList)
		w.DetectHit(shot)

		if outside(shot.Location.X, half) || outside(shot.Location.Y, half) {
			shot.Kill()
		}
	}

	w.tick++
}

func outside(coord, half float64) bool {
	return coord > half || coord < -half
}

// Cleanup removes inactive ships and dead projectiles. The server calls it
// after broadcasting a tick so clients see the final state once.
func (w *World) Cleanup() {
	kept := w.shipOrder[:0]
	for _, id := range w.shipOrder {
		if w.ships[id].IsDestroyed() {
			delete(w.ships, id)
			continue
		}
		kept = append(kept, id)
	}
	w.shipOrder = kept

	keptShots := w.projectileOrder[:0]
	for _, id := range w.projectileOrder {
		if w.projectiles[id].IsDestroyed() {
			delete(w.projectiles, id)
			continue
		}
		keptShots = append(keptShots, id)
	}
	w.projectileOrder = keptShots
}
