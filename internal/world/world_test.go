package world

import (
	"math/rand"
	"testing"

	"github.com/tomz197/spacewars/internal/object"
	"github.com/tomz197/spacewars/internal/physics"
)

var shipCfg = object.ShipConfig{
	FireRate:       0,
	ThrustStrength: 0.08,
	TurnRate:       2,
	HitBoxSize:     25,
	StartingHP:     5,
}

func fragile() object.ShipConfig {
	cfg := shipCfg
	cfg.StartingHP = 1
	return cfg
}

func newTestWorld(cfg Config) *World {
	return New(cfg, WithRand(rand.New(rand.NewSource(1))))
}

func TestNewAppliesDefaults(t *testing.T) {
	w := New(Config{})
	got := w.Config()
	if got.Size != DefaultSize || got.RespawnDelay != DefaultRespawnDelay {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if w.Tick() != 0 {
		t.Fatalf("tick should start at 0, got %d", w.Tick())
	}
}

func TestUpdateIncrementsTick(t *testing.T) {
	w := newTestWorld(Config{})
	for i := 0; i < 3; i++ {
		w.Update()
	}
	if w.Tick() != 3 {
		t.Fatalf("tick: got %d want 3", w.Tick())
	}
}

func TestIDsAreUniqueAcrossWorldsSharingAnAllocator(t *testing.T) {
	ids := object.NewIDAllocator()
	a := New(Config{}, WithIDs(ids))
	b := New(Config{}, WithIDs(ids))

	s1 := a.AddShip(physics.Vec(0, 0), object.SpawnHeading, "a", shipCfg)
	s2 := b.AddShip(physics.Vec(0, 0), object.SpawnHeading, "b", shipCfg)
	s3 := a.AddShip(physics.Vec(0, 0), object.SpawnHeading, "c", shipCfg)
	if !(s1.ID < s2.ID && s2.ID < s3.ID) {
		t.Fatalf("ids not monotonic across worlds: %d %d %d", s1.ID, s2.ID, s3.ID)
	}
	st1 := a.AddStar(physics.Vec(10, 10), 0.01, 35)
	st2 := b.AddStar(physics.Vec(10, 10), 0.01, 35)
	if st1.ID == st2.ID {
		t.Fatalf("star ids reused: %d", st1.ID)
	}
}

func TestWrapMirrorsThroughOrigin(t *testing.T) {
	w := newTestWorld(Config{Size: 750})
	ship := w.AddShip(physics.Vec(376, 376), physics.Vec(0, 1), "edge", shipCfg)

	w.Update()

	if ship.Location != physics.Vec(-376, -376) {
		t.Fatalf("wrap: got %v want (-376,-376)", ship.Location)
	}

	w2 := newTestWorld(Config{Size: 750})
	onlyX := w2.AddShip(physics.Vec(-380, 10), physics.Vec(0, 1), "x", shipCfg)
	w2.Update()
	if onlyX.Location != physics.Vec(380, 10) {
		t.Fatalf("x-only wrap: got %v want (380,10)", onlyX.Location)
	}
}

func TestStarKillsShipDuringUpdate(t *testing.T) {
	w := newTestWorld(Config{})
	w.AddStar(physics.Vec(4, 6), 0.01, 25)
	ship := w.AddShip(physics.Vec(4, 6), physics.Vec(0, 1), "sun", shipCfg)

	w.Update()
	if ship.Alive() {
		t.Fatalf("ship on a star should be dead after Update")
	}
	if ship.LastDeath() != 0 {
		t.Fatalf("death tick: got %d want 0", ship.LastDeath())
	}
}

func TestRespawnTiming(t *testing.T) {
	const delay = 3
	w := newTestWorld(Config{RespawnDelay: delay})
	ship := w.AddShip(physics.Vec(0, 0), object.SpawnHeading, "phoenix", shipCfg)
	ship.Die(w.Tick())

	for i := 0; i <= delay; i++ {
		w.Update()
		if ship.Alive() {
			t.Fatalf("ship respawned early after update at tick %d", w.Tick()-1)
		}
	}
	w.Update()
	if !ship.Alive() || ship.HP != shipCfg.StartingHP {
		t.Fatalf("ship should be alive with full HP, got HP %d", ship.HP)
	}
	if ship.Direction != object.SpawnHeading {
		t.Fatalf("respawn heading: got %v", ship.Direction)
	}
}

func TestProjectileKilledAtBoundary(t *testing.T) {
	w := newTestWorld(Config{Size: 100})
	ship := w.AddShip(physics.Vec(40, 0), physics.Vec(1, 0), "edge", shipCfg)
	if !w.ProcessCommand(ship.ID, 'F') {
		t.Fatalf("ProcessCommand on existing ship returned false")
	}
	shots := w.Projectiles()
	if len(shots) != 1 {
		t.Fatalf("expected one projectile, got %d", len(shots))
	}

	w.Update()
	if shots[0].Alive {
		t.Fatalf("projectile beyond the boundary should be dead at %v", shots[0].Location)
	}
	if len(w.Projectiles()) != 1 {
		t.Fatalf("dead projectile must stay until Cleanup")
	}
	w.Cleanup()
	if len(w.Projectiles()) != 0 {
		t.Fatalf("Cleanup should remove dead projectile")
	}
}

func TestProcessCommandUnknownShip(t *testing.T) {
	w := newTestWorld(Config{})
	if w.ProcessCommand(99, 'F') {
		t.Fatalf("ProcessCommand on missing ship should return false")
	}
	if len(w.Projectiles()) != 0 {
		t.Fatalf("missing ship must not fire")
	}
}

func TestProcessCommandRespectsFireDelay(t *testing.T) {
	w := newTestWorld(Config{})
	cfg := shipCfg
	cfg.FireRate = 6
	ship := w.AddShip(physics.Vec(0, 0), physics.Vec(0, -1), "gun", cfg)

	for w.Tick() < 6 {
		w.Update()
	}
	for _, ch := range []byte("FFF") {
		w.ProcessCommand(ship.ID, ch)
	}
	if got := len(w.Projectiles()); got != 1 {
		t.Fatalf("three F in one tick should fire once, got %d", got)
	}
}

func TestHitFreeForAllCreditsShooterOnly(t *testing.T) {
	w := newTestWorld(Config{})
	shooter := w.AddShip(physics.Vec(100, 100), physics.Vec(1, 0), "shooter", shipCfg)
	target := w.AddShip(physics.Vec(130, 100), physics.Vec(1, 0), "target", fragile())
	bystander := w.AddShip(physics.Vec(-200, -200), physics.Vec(1, 0), "bystander", shipCfg)

	w.ProcessCommand(shooter.ID, 'F')
	w.Update()

	if target.Alive() {
		t.Fatalf("target should be dead")
	}
	if shooter.Score != 1 {
		t.Fatalf("shooter score: got %d want 1", shooter.Score)
	}
	if target.Score != 0 || bystander.Score != 0 {
		t.Fatalf("only the shooter scores: target %d bystander %d", target.Score, bystander.Score)
	}
	if w.Projectiles()[0].Alive {
		t.Fatalf("projectile should die on hit")
	}
}

func TestHitDamagesWithoutKill(t *testing.T) {
	w := newTestWorld(Config{})
	shooter := w.AddShip(physics.Vec(100, 100), physics.Vec(1, 0), "shooter", shipCfg)
	target := w.AddShip(physics.Vec(130, 100), physics.Vec(1, 0), "target", shipCfg)

	w.ProcessCommand(shooter.ID, 'F')
	w.Update()

	if target.HP != shipCfg.StartingHP-1 {
		t.Fatalf("target HP: got %d want %d", target.HP, shipCfg.StartingHP-1)
	}
	if shooter.Score != 0 {
		t.Fatalf("no score without a kill, got %d", shooter.Score)
	}
}

func TestHitFirstShipInIDOrder(t *testing.T) {
	w := newTestWorld(Config{})
	shooter := w.AddShip(physics.Vec(100, 100), physics.Vec(1, 0), "shooter", shipCfg)
	first := w.AddShip(physics.Vec(120, 100), physics.Vec(1, 0), "first", shipCfg)
	second := w.AddShip(physics.Vec(110, 100), physics.Vec(1, 0), "second", shipCfg)

	w.ProcessCommand(shooter.ID, 'F')
	w.Update()

	if first.HP != shipCfg.StartingHP-1 {
		t.Fatalf("lower id should take the hit: HP %d", first.HP)
	}
	if second.HP != shipCfg.StartingHP {
		t.Fatalf("scan must stop at the first hit: HP %d", second.HP)
	}
}

func TestOwnProjectileAndDeadShipsIgnored(t *testing.T) {
	w := newTestWorld(Config{})
	shooter := w.AddShip(physics.Vec(100, 100), physics.Vec(1, 0), "shooter", shipCfg)
	corpse := w.AddShip(physics.Vec(115, 100), physics.Vec(1, 0), "corpse", shipCfg)
	corpse.Die(0)

	w.ProcessCommand(shooter.ID, 'F')
	w.Update()

	shot := w.Projectiles()[0]
	if !shot.Alive {
		t.Fatalf("projectile should pass through its owner and dead ships")
	}
	if shooter.HP != shipCfg.StartingHP {
		t.Fatalf("owner must not be hit")
	}
}

func TestShooterGoneNoCredit(t *testing.T) {
	w := newTestWorld(Config{})
	shooter := w.AddShip(physics.Vec(100, 100), physics.Vec(1, 0), "shooter", shipCfg)
	target := w.AddShip(physics.Vec(130, 100), physics.Vec(1, 0), "target", fragile())

	w.ProcessCommand(shooter.ID, 'F')
	shooter.MakeInactive()
	w.Cleanup()
	w.Update()

	if target.Alive() {
		t.Fatalf("target should still die")
	}
	if _, ok := w.Ship(shooter.ID); ok {
		t.Fatalf("shooter should be gone")
	}
}

func TestTeamFriendlyFire(t *testing.T) {
	w := New(Config{Teams: true}, WithIDs(object.NewIDAllocator()))
	// ids 0 and 2 are team 0, id 1 is team 1
	shooter := w.AddShip(physics.Vec(100, 100), physics.Vec(1, 0), "a", shipCfg)
	_ = w.AddShip(physics.Vec(-300, -300), physics.Vec(1, 0), "b", shipCfg)
	teammate := w.AddShip(physics.Vec(130, 100), physics.Vec(1, 0), "c", fragile())

	if shooter.Team() != teammate.Team() {
		t.Fatalf("test setup: ids %d and %d should share a team", shooter.ID, teammate.ID)
	}

	w.ProcessCommand(shooter.ID, 'F')
	w.Update()

	if teammate.HP != 1 {
		t.Fatalf("friendly fire must not damage: HP %d", teammate.HP)
	}
	if w.Projectiles()[0].Alive {
		t.Fatalf("friendly projectile should be destroyed")
	}
}

func TestTeamKillCreditsLivingTeammates(t *testing.T) {
	w := New(Config{Teams: true}, WithIDs(object.NewIDAllocator()))
	// even ids are team 0, odd ids team 1
	shooter := w.AddShip(physics.Vec(100, 100), physics.Vec(1, 0), "a", shipCfg)
	enemy := w.AddShip(physics.Vec(130, 100), physics.Vec(1, 0), "b", fragile())
	mate := w.AddShip(physics.Vec(-300, 300), physics.Vec(1, 0), "c", shipCfg)
	rival := w.AddShip(physics.Vec(300, -300), physics.Vec(1, 0), "d", shipCfg)
	fallen := w.AddShip(physics.Vec(-300, -300), physics.Vec(1, 0), "e", shipCfg)
	fallen.Die(0)

	w.ProcessCommand(shooter.ID, 'F')
	w.Update()

	if enemy.Alive() {
		t.Fatalf("enemy should be dead")
	}
	if shooter.Score != 1 || mate.Score != 1 {
		t.Fatalf("living teammates should score: shooter %d mate %d", shooter.Score, mate.Score)
	}
	if fallen.Score != 0 {
		t.Fatalf("dead teammate should not score: %d", fallen.Score)
	}
	if rival.Score != 0 || enemy.Score != 0 {
		t.Fatalf("other team should not score")
	}
}

func TestTeamJoinInheritsTeamScore(t *testing.T) {
	w := New(Config{Teams: true}, WithIDs(object.NewIDAllocator()))
	first := w.AddShip(physics.Vec(0, 0), object.SpawnHeading, "first", shipCfg)
	first.Score = 4
	other := w.AddShip(physics.Vec(0, 0), object.SpawnHeading, "other", shipCfg)
	late := w.AddShip(physics.Vec(0, 0), object.SpawnHeading, "late", shipCfg)

	if other.Score != 0 {
		t.Fatalf("other team starts at its own score: got %d", other.Score)
	}
	if late.Score != 4 {
		t.Fatalf("late joiner should inherit team score 4, got %d", late.Score)
	}
	if first.Name != "Team 2; first" || other.Name != "Team 1; other" {
		t.Fatalf("team prefixes: %q %q", first.Name, other.Name)
	}
}

func TestCleanupRemovesInactiveShips(t *testing.T) {
	w := newTestWorld(Config{})
	keep := w.AddShip(physics.Vec(0, 0), object.SpawnHeading, "keep", shipCfg)
	gone := w.AddShip(physics.Vec(10, 10), object.SpawnHeading, "gone", shipCfg)
	gone.MakeInactive()

	w.Update()
	if len(w.Ships()) != 2 {
		t.Fatalf("inactive ship should remain until Cleanup")
	}
	w.Cleanup()
	ships := w.Ships()
	if len(ships) != 1 || ships[0] != keep {
		t.Fatalf("Cleanup kept %v", ships)
	}
}

func TestGetRandomPositionAvoidsStars(t *testing.T) {
	w := newTestWorld(Config{Size: 750})
	star := w.AddStar(physics.Vec(0, 0), 0.01, 300)

	for i := 0; i < 200; i++ {
		pos := w.GetRandomPosition()
		if star.Contains(pos) {
			t.Fatalf("position %v inside star", pos)
		}
		if pos.X < -375 || pos.X > 375 || pos.Y < -375 || pos.Y > 375 {
			t.Fatalf("position %v outside world", pos)
		}
	}
}

func TestShipsReturnedInIDOrder(t *testing.T) {
	w := newTestWorld(Config{})
	for i := 0; i < 5; i++ {
		w.AddShipRandomPosition("s", shipCfg)
	}
	ships := w.Ships()
	for i := 1; i < len(ships); i++ {
		if ships[i-1].ID >= ships[i].ID {
			t.Fatalf("ships out of order: %d then %d", ships[i-1].ID, ships[i].ID)
		}
	}
}
