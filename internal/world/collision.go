package world

import (
	"github.com/tomz197/spacewars/internal/object"
	"github.com/tomz197/spacewars/internal/physics"
)

// DetectHit resolves a projectile against the ships. Ships are scanned in
// ascending id order and the first ship in range takes the hit; the scan
// stops there.
//
// Dead ships, the projectile's owner and ships whose hit-box does not contain
// the projectile are skipped. In team mode a hit on a teammate destroys the
// projectile without damage. Otherwise the ship loses one HP, and if that
// kills it the shooter (or, in team mode, every living teammate of the
// shooter) scores a point.
func (w *World) DetectHit(shot *object.Projectile) {
	if !shot.Alive {
		return
	}
	for _, id := range w.shipOrder {
		ship := w.ships[id]
		if !ship.Alive() || ship.ID == shot.Owner {
			continue
		}
		if !physics.Collides(ship.Location, shot.Location, ship.HitBoxSize()) {
			continue
		}

		shot.Kill()
		if w.cfg.Teams && teamOf(shot.Owner) == ship.Team() {
			return
		}

		ship.Hit(w.tick)
		if !ship.Alive() {
			w.creditKill(shot.Owner)
		}
		return
	}
}

// creditKill awards a kill to the shooter, or to the shooter's living team.
// A shooter that has already left the world earns nothing.
func (w *World) creditKill(shooterID int) {
	shooter, ok := w.ships[shooterID]
	if !ok {
		return
	}
	if !w.cfg.Teams {
		shooter.IncreaseScore()
		return
	}
	team := shooter.Team()
	for _, id := range w.shipOrder {
		ship := w.ships[id]
		if ship.Team() == team && ship.Alive() {
			ship.IncreaseScore()
		}
	}
}
