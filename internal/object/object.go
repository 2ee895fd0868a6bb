// Package object holds the simulation entities (ships, projectiles and stars)
// and their wire representation.
package object

import (
	"sync/atomic"

	"github.com/tomz197/spacewars/internal/physics"
)

// Entity is anything that is broadcast to clients each tick.
type Entity interface {
	// EntityID returns the id of the entity within its own kind.
	EntityID() int
	// MarshalJSON returns the single-line wire form of the entity.
	MarshalJSON() ([]byte, error)
}

// Destructible is implemented by objects that are removed from the world by
// Cleanup rather than at the moment they stop participating.
type Destructible interface {
	// IsDestroyed returns true if the object should be dropped on the next cleanup.
	IsDestroyed() bool
}

// IDAllocator hands out ids for every entity kind. Ids increase monotonically
// and are never reused for the lifetime of the allocator. One allocator is
// shared by everything that must not collide, usually one per process.
type IDAllocator struct {
	ship       atomic.Int64
	projectile atomic.Int64
	star       atomic.Int64
}

// NewIDAllocator returns an allocator whose first id of each kind is 0.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// NextShip returns the next ship id.
func (a *IDAllocator) NextShip() int {
	return int(a.ship.Add(1) - 1)
}

// NextProjectile returns the next projectile id.
func (a *IDAllocator) NextProjectile() int {
	return int(a.projectile.Add(1) - 1)
}

// NextStar returns the next star id.
func (a *IDAllocator) NextStar() int {
	return int(a.star.Add(1) - 1)
}

// SpawnHeading is the direction every ship faces when it enters or re-enters
// the world.
var SpawnHeading = physics.Vec(-1, 0)
