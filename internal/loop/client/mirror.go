package client

import (
	"sort"

	"github.com/sasha-s/go-deadlock"

	"github.com/tomz197/spacewars/internal/object"
	"github.com/tomz197/spacewars/internal/protocol"
)

// Mirror is the client's copy of the world, rebuilt from the server's
// entity lines. It holds no simulation logic.
type Mirror struct {
	mu          deadlock.RWMutex
	ships       map[int]*object.Ship
	projectiles map[int]*object.Projectile
	stars       map[int]*object.Star
	lines       int
	malformed   int
}

// NewMirror creates an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{
		ships:       make(map[int]*object.Ship),
		projectiles: make(map[int]*object.Projectile),
		stars:       make(map[int]*object.Star),
	}
}

// ApplyLines decodes and applies each line. Malformed lines are skipped.
func (m *Mirror) ApplyLines(lines []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, line := range lines {
		if line == "" {
			continue
		}
		m.lines++
		msg, err := protocol.DecodeLine([]byte(line))
		if err != nil {
			m.malformed++
			continue
		}
		m.apply(msg)
	}
}

// apply upserts ships and stars. A projectile reported dead is dropped.
func (m *Mirror) apply(msg protocol.Message) {
	switch msg.Kind {
	case protocol.KindShip:
		m.ships[msg.Ship.ID] = msg.Ship
	case protocol.KindProjectile:
		if !msg.Projectile.Alive {
			delete(m.projectiles, msg.Projectile.ID)
			return
		}
		m.projectiles[msg.Projectile.ID] = msg.Projectile
	case protocol.KindStar:
		m.stars[msg.Star.ID] = msg.Star
	}
}

// Ship returns a copy of the ship with the given id.
func (m *Mirror) Ship(id int) (object.Ship, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.ships[id]
	if !ok {
		return object.Ship{}, false
	}
	return *s, true
}

// Ships returns copies of every ship, ordered by id.
func (m *Mirror) Ships() []object.Ship {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]object.Ship, 0, len(m.ships))
	for _, s := range m.ships {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Counts returns how many ships, live projectiles and stars are mirrored.
func (m *Mirror) Counts() (ships, projectiles, stars int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ships), len(m.projectiles), len(m.stars)
}

// Stats returns how many lines were applied and how many were malformed.
func (m *Mirror) Stats() (lines, malformed int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lines, m.malformed
}
