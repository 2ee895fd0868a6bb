package object

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/tomz197/spacewars/internal/physics"
)

var testShipConfig = ShipConfig{
	FireRate:       4,
	ThrustStrength: 0.6,
	TurnRate:       2,
	HitBoxSize:     25,
	StartingHP:     5,
}

func TestIDAllocatorMonotonic(t *testing.T) {
	ids := NewIDAllocator()
	for want := 0; want < 5; want++ {
		if got := ids.NextShip(); got != want {
			t.Fatalf("NextShip: got %d want %d", got, want)
		}
	}
	if got := ids.NextProjectile(); got != 0 {
		t.Fatalf("projectile counter should be independent: got %d", got)
	}
	if got := ids.NextStar(); got != 0 {
		t.Fatalf("star counter should be independent: got %d", got)
	}
}

func TestIDAllocatorConcurrentUnique(t *testing.T) {
	ids := NewIDAllocator()
	const workers, per = 8, 200

	var mu sync.Mutex
	seen := make(map[int]struct{}, workers*per)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < per; j++ {
				id := ids.NextProjectile()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != workers*per {
		t.Fatalf("duplicate ids handed out: %d unique of %d", len(seen), workers*per)
	}
}

func TestFireRateGating(t *testing.T) {
	ids := NewIDAllocator()
	ship := NewShip(ids.NextShip(), physics.Vec(100, 100), physics.Vec(1, 0), "gate", testShipConfig)

	shot, ok := ship.Fire(4, ids)
	if !ok || shot == nil {
		t.Fatalf("first shot at tick 4 should succeed")
	}
	if shot.Owner != ship.ID || shot.Location != ship.Location || shot.Direction != ship.Direction {
		t.Fatalf("projectile not spawned from ship: %+v", shot)
	}
	for tick := uint(5); tick < 8; tick++ {
		if _, ok := ship.Fire(tick, ids); ok {
			t.Fatalf("fire at tick %d should be gated", tick)
		}
	}
	if _, ok := ship.Fire(8, ids); !ok {
		t.Fatalf("fire at tick 8 should succeed")
	}

	ship.Die(9)
	if _, ok := ship.Fire(20, ids); ok {
		t.Fatalf("dead ship must not fire")
	}
}

func TestApplyCommands(t *testing.T) {
	ship := NewShip(0, physics.Vec(0, 0), physics.Vec(0, -1), "cmd", testShipConfig)

	ship.ProcessCommand('R')
	ship.ProcessCommand('T')
	ship.ProcessCommand('?')
	ship.ApplyCommands()

	if got := ship.Direction.ToAngle(); got < 1.999 || got > 2.001 {
		t.Fatalf("right turn: got heading %v want 2", got)
	}
	if !ship.Thrusting {
		t.Fatalf("thrust flag not set")
	}
	if got := ship.PendingCommands(); got != (Commands{}) {
		t.Fatalf("commands not cleared: %+v", got)
	}

	ship.ProcessCommand('L')
	ship.ApplyCommands()
	if got := ship.Direction.ToAngle(); got > 1e-6 && got < 360-1e-6 {
		t.Fatalf("left turn should undo right turn: got %v", got)
	}
	if ship.Thrusting {
		t.Fatalf("thrust should reset when not requested")
	}
}

func TestGetPhysicsGravityAndThrust(t *testing.T) {
	star := NewStar(0, physics.Vec(0, 0), 0.01, 35)
	ship := NewShip(0, physics.Vec(100, 100), physics.Vec(1, 0), "grav", testShipConfig)

	ship.ProcessCommand('T')
	ship.Update([]*Star{star}, 0)

	if ship.Location.X <= 100 {
		t.Fatalf("thrust to the right should move ship right: %v", ship.Location)
	}
	if ship.Location.Y >= 100 {
		t.Fatalf("gravity should pull ship toward the star: %v", ship.Location)
	}

	before := ship.Velocity()
	ship.Update([]*Star{star}, 1)
	if ship.Velocity().X >= before.X {
		t.Fatalf("without thrust only gravity acts; x velocity should drop: %v -> %v", before, ship.Velocity())
	}
	if ship.Thrusting {
		t.Fatalf("thrust must not persist without a new command")
	}
}

func TestLethalStarCollision(t *testing.T) {
	star := NewStar(0, physics.Vec(4, 6), 0.01, 25)
	ship := NewShip(0, physics.Vec(10, 10), physics.Vec(0, 1), "doomed", testShipConfig)

	ship.Update([]*Star{star}, 7)
	if ship.Alive() {
		t.Fatalf("ship inside a star hit-box must die")
	}
	if ship.LastDeath() != 7 {
		t.Fatalf("LastDeath: got %d want 7", ship.LastDeath())
	}
	if ship.Location != physics.Vec(10, 10) {
		t.Fatalf("physics must be skipped on the killing tick: %v", ship.Location)
	}

	shot := NewProjectile(0, physics.Vec(4, 6), physics.Vec(7, 8), 42, 0)
	shot.Update([]*Star{NewStar(1, physics.Vec(109, 126), 0.06, 50)})
	if shot.Alive {
		t.Fatalf("projectile entering a star must die")
	}
	if shot.Location != physics.Vec(109, 126) {
		t.Fatalf("projectile moved to %v want (109,126)", shot.Location)
	}
}

func TestHitDieRespawn(t *testing.T) {
	ship := NewShip(0, physics.Vec(4, 6), physics.Vec(7, 8), "hp", testShipConfig)

	ship.Hit(1)
	if ship.HP != 4 {
		t.Fatalf("HP after one hit: got %d want 4", ship.HP)
	}
	for i := 0; i < 4; i++ {
		ship.Hit(uint(10 + i))
	}
	if ship.Alive() || ship.HP != 0 {
		t.Fatalf("ship should be dead with 0 HP, got %d", ship.HP)
	}
	if ship.LastDeath() != 13 {
		t.Fatalf("LastDeath: got %d want 13", ship.LastDeath())
	}

	ship.Die(50)
	if ship.LastDeath() != 13 {
		t.Fatalf("Die on a dead ship must be idempotent: got %d", ship.LastDeath())
	}

	ship.Respawn(physics.Vec(50, 50))
	if ship.HP != 5 || ship.Location != physics.Vec(50, 50) || ship.Direction != SpawnHeading {
		t.Fatalf("respawn state wrong: %+v", ship)
	}
	if ship.Velocity() != (physics.Vector2D{}) {
		t.Fatalf("respawn must zero velocity: %v", ship.Velocity())
	}
}

func TestWrapIsItsOwnInverse(t *testing.T) {
	ship := NewShip(0, physics.Vec(4, 6), physics.Vec(7, 8), "wrap", testShipConfig)

	ship.WrapAroundX()
	if ship.Location != physics.Vec(-4, 6) {
		t.Fatalf("WrapAroundX: got %v", ship.Location)
	}
	ship.WrapAroundX()
	if ship.Location != physics.Vec(4, 6) {
		t.Fatalf("double WrapAroundX: got %v", ship.Location)
	}
	ship.WrapAroundY()
	ship.WrapAroundY()
	if ship.Location != physics.Vec(4, 6) {
		t.Fatalf("double WrapAroundY: got %v", ship.Location)
	}
}

func TestInactive(t *testing.T) {
	ship := NewShip(0, physics.Vec(0, 0), physics.Vec(0, -1), "idle", testShipConfig)
	if !ship.Active() || ship.IsDestroyed() {
		t.Fatalf("new ship should be active")
	}
	ship.MakeInactive()
	if ship.Active() || !ship.IsDestroyed() {
		t.Fatalf("ship should be inactive after MakeInactive")
	}
}

func TestWireFormat(t *testing.T) {
	shot := NewProjectile(7, physics.Vec(4, 6), physics.Vec(7, 8), 42, 0)
	b, err := json.Marshal(shot)
	if err != nil {
		t.Fatalf("marshal projectile: %v", err)
	}
	want := `{"proj":7,"loc":{"x":4,"y":6},"dir":{"x":7,"y":8},"alive":true,"owner":42}`
	if string(b) != want {
		t.Fatalf("projectile json: got %s want %s", b, want)
	}

	star := NewStar(3, physics.Vec(-1, -1), 0.5, 35)
	b, err = json.Marshal(star)
	if err != nil {
		t.Fatalf("marshal star: %v", err)
	}
	if want := `{"star":3,"loc":{"x":-1,"y":-1},"mass":0.5}`; string(b) != want {
		t.Fatalf("star json: got %s want %s", b, want)
	}

	ship := NewShip(2, physics.Vec(1.5, -2), physics.Vec(0, -1), "ace", testShipConfig)
	b, err = json.Marshal(ship)
	if err != nil {
		t.Fatalf("marshal ship: %v", err)
	}
	if want := `{"ship":2,"loc":{"x":1.5,"y":-2},"dir":{"x":0,"y":-1},"thrust":false,"name":"ace","hp":5,"score":0}`; string(b) != want {
		t.Fatalf("ship json: got %s want %s", b, want)
	}
}

func TestRoundTrip(t *testing.T) {
	ship := NewShip(9, physics.Vec(12.25, -3), physics.Vec(0.6, 0.8), "round", testShipConfig)
	ship.Score = 3
	ship.Thrusting = true
	ship.Hit(0)

	b, _ := json.Marshal(ship)
	var gotShip Ship
	if err := json.Unmarshal(b, &gotShip); err != nil {
		t.Fatalf("unmarshal ship: %v", err)
	}
	if gotShip.ID != ship.ID || gotShip.Location != ship.Location || gotShip.Direction != ship.Direction ||
		gotShip.HP != ship.HP || gotShip.Score != ship.Score || gotShip.Name != ship.Name || gotShip.Thrusting != ship.Thrusting {
		t.Fatalf("ship round trip: got %+v want %+v", gotShip, *ship)
	}

	shot := NewProjectile(4, physics.Vec(1, 2), physics.Vec(0, 1), 9, 0)
	shot.Kill()
	b, _ = json.Marshal(shot)
	var gotShot Projectile
	if err := json.Unmarshal(b, &gotShot); err != nil {
		t.Fatalf("unmarshal projectile: %v", err)
	}
	if gotShot.ID != 4 || gotShot.Location != shot.Location || gotShot.Direction != shot.Direction || gotShot.Alive || gotShot.Owner != 9 {
		t.Fatalf("projectile round trip: got %+v", gotShot)
	}

	star := NewStar(1, physics.Vec(100, -50), 0.02, 35)
	b, _ = json.Marshal(star)
	var gotStar Star
	if err := json.Unmarshal(b, &gotStar); err != nil {
		t.Fatalf("unmarshal star: %v", err)
	}
	if gotStar.ID != 1 || gotStar.Location != star.Location || gotStar.Mass != star.Mass {
		t.Fatalf("star round trip: got %+v", gotStar)
	}
}
