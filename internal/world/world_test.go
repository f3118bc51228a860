package world

import (
	"math/rand"
	"testing"
	"time"

	"deepfall/server/internal/abilities"
	"deepfall/server/internal/progression"
	"deepfall/server/internal/world/status"
	"deepfall/server/stats"
)

func fixedPlanner(specs ...RoomSpec) FloorPlanner {
	return func(int, *rand.Rand) []RoomSpec {
		return append([]RoomSpec(nil), specs...)
	}
}

func newTestWorld(t *testing.T, specs ...RoomSpec) *World {
	t.Helper()
	if len(specs) == 0 {
		specs = []RoomSpec{{Type: RoomStart}}
	}
	return New(Config{
		RunID:      "run-test",
		Seed:       42,
		StartFloor: 1,
		FinalFloor: 3,
		Planner:    fixedPlanner(specs...),
	})
}

func TestSpawnPlayerIdempotent(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t)

	first := w.SpawnPlayer("p1", "Ash", ClassWarrior)
	if first == nil {
		t.Fatal("expected player")
	}
	if first.Level != 1 || first.Lives != MaxLives {
		t.Fatalf("unexpected initial state: level=%d lives=%d", first.Level, first.Lives)
	}
	if first.XPToNext != progression.XPForLevel(2) {
		t.Fatalf("XPToNext = %d, want %d", first.XPToNext, progression.XPForLevel(2))
	}
	if first.Health != first.MaxHealth() || first.Health <= 0 {
		t.Fatalf("expected full health, got %v/%v", first.Health, first.MaxHealth())
	}

	first.Gold = 999
	again := w.SpawnPlayer("p1", "Other", ClassMage)
	if again != first {
		t.Fatal("respawning an existing id must return the existing player")
	}
	if again.Gold != 999 || again.Class != ClassWarrior {
		t.Fatal("respawn must not reset existing state")
	}
}

func TestAwardXPMultiLevel(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t)
	p := w.SpawnPlayer("p1", "Ash", ClassWarrior)
	baseHealth := p.MaxHealth()

	// Enough XP to cross the level-2 and level-3 thresholds in one award.
	amount := progression.XPForLevel(2) + progression.XPForLevel(3) + 10
	w.AwardXP(p, amount)

	if p.Level != 3 {
		t.Fatalf("level = %d, want 3", p.Level)
	}
	if p.XP != 10 {
		t.Fatalf("leftover XP = %d, want 10", p.XP)
	}
	if p.XPToNext != progression.XPForLevel(4) {
		t.Fatalf("XPToNext = %d, want %d", p.XPToNext, progression.XPForLevel(4))
	}
	if p.MaxHealth() <= baseHealth {
		t.Fatal("level-ups must raise the health ceiling")
	}
	if p.Health != p.MaxHealth() {
		t.Fatal("level-up must fully restore health")
	}

	var sawLevelUp bool
	for _, ev := range w.DrainEvents() {
		if ev.Kind == EventLevelUp && ev.ActorID == "p1" {
			sawLevelUp = true
		}
	}
	if !sawLevelUp {
		t.Fatal("expected a levelUp event")
	}
}

func TestPlayerDeathRespawnAndElimination(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t)
	p := w.SpawnPlayer("p1", "Ash", ClassWarrior)
	p.Lives = 2

	w.ApplyDamage("p1", "enemy-x", p.Health)
	if p.Lives != 1 {
		t.Fatalf("lives = %d, want 1", p.Lives)
	}
	if !p.Alive || p.Health != p.MaxHealth() {
		t.Fatal("a remaining life must respawn the player fully restored")
	}
	if p.RoomID != w.startRoomID {
		t.Fatal("respawn must place the player in the start room")
	}

	w.ApplyDamage("p1", "enemy-x", p.Health)
	if p.Alive || p.Lives != 0 {
		t.Fatalf("expected elimination, alive=%v lives=%d", p.Alive, p.Lives)
	}
	if !w.Completed() {
		t.Fatal("last player eliminated must end the run")
	}
}

func TestEnemyDeathCreditsKillerAndClearsRoom(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t, RoomSpec{Type: RoomStart}, RoomSpec{Type: RoomNormal})
	p := w.SpawnPlayer("p1", "Ash", ClassWarrior)

	var roomID string
	for id, room := range w.rooms {
		if room.Type == RoomNormal {
			roomID = id
		}
	}
	enemy := w.SpawnEnemy(&EnemyState{
		ActorCore: ActorCore{ID: "e1", RoomID: roomID, Alive: true, Stats: enemyBaseStats(EnemyMelee, 1, 1)},
		XPReward:  30,
	})
	enemy.Health = enemy.MaxHealth()
	p.TargetID = "e1"

	goldBefore := p.Gold
	w.ApplyDamage("e1", "p1", enemy.Health)

	if _, ok := w.Enemy("e1"); ok {
		t.Fatal("dead enemy must be removed")
	}
	if p.TargetID != "" {
		t.Fatal("target lock on a dead enemy must clear")
	}
	if p.XP == 0 && p.Level == 1 {
		t.Fatal("killer must be credited XP")
	}
	// Every loot roll includes gold.
	if p.Gold <= goldBefore {
		t.Fatalf("gold = %d, want more than %d", p.Gold, goldBefore)
	}
	if room := w.rooms[roomID]; !room.Cleared {
		t.Fatal("room with no living enemies must clear")
	}
}

func TestAdvanceFloorGatedOnBoss(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t, RoomSpec{Type: RoomStart}, RoomSpec{Type: RoomBoss, Enemies: 1})
	p := w.SpawnPlayer("p1", "Ash", ClassWarrior)

	if w.AdvanceFloor("p1") {
		t.Fatal("advance must fail while the boss lives")
	}

	var boss *EnemyState
	for _, e := range w.enemies {
		boss = e
	}
	if boss == nil || !boss.Boss {
		t.Fatal("expected a boss on the floor")
	}
	w.ApplyDamage(boss.ID, "p1", boss.Health)
	if !w.BossDefeated() {
		t.Fatal("boss room must be cleared after the boss dies")
	}

	if !w.AdvanceFloor("p1") {
		t.Fatal("advance must succeed once the boss is down")
	}
	if w.Floor() != 2 {
		t.Fatalf("floor = %d, want 2", w.Floor())
	}
	if p.HighestFloor != 2 {
		t.Fatalf("highestFloor = %d, want 2", p.HighestFloor)
	}
	if p.RoomID != w.startRoomID {
		t.Fatal("advancing must place players in the new start room")
	}
}

func TestRunCompletesOnFinalFloor(t *testing.T) {
	t.Parallel()
	w := New(Config{
		RunID:      "run-final",
		Seed:       7,
		StartFloor: 1,
		FinalFloor: 1,
		Planner:    fixedPlanner(RoomSpec{Type: RoomStart}, RoomSpec{Type: RoomBoss, Enemies: 1}),
	})
	w.SpawnPlayer("p1", "Ash", ClassWarrior)
	for _, e := range w.enemies {
		w.ApplyDamage(e.ID, "p1", e.Health)
	}
	if !w.AdvanceFloor("p1") {
		t.Fatal("expected run completion")
	}
	if !w.Completed() {
		t.Fatal("advancing off the final floor must complete the run")
	}
}

func TestGrantAbilityDrop(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t)
	p := w.SpawnPlayer("p1", "Ash", ClassMage)

	// Unknown ability: learned at rank 1.
	w.grantAbilityDrop(p, abilities.AbilityFrostbind)
	slot := p.AbilitySlot(abilities.AbilityFrostbind)
	if slot == nil || slot.Rank != 1 {
		t.Fatalf("expected frostbind learned at rank 1, got %+v", slot)
	}

	// Known ability on floor 1: rank 1 -> 2 requires floor 2, so the
	// drop converts to the fallback reward.
	goldBefore := p.Gold
	tokensBefore := p.RerollTokens
	w.grantAbilityDrop(p, abilities.AbilityFirebolt)
	if got := p.AbilitySlot(abilities.AbilityFirebolt).Rank; got != 1 {
		t.Fatalf("rank = %d, want gate to hold at 1", got)
	}
	if p.Gold == goldBefore && p.RerollTokens == tokensBefore {
		t.Fatal("gated rank-up must grant the fallback reward")
	}

	// On floor 2 the same drop ranks up.
	w.floor = 2
	w.grantAbilityDrop(p, abilities.AbilityFirebolt)
	if got := p.AbilitySlot(abilities.AbilityFirebolt).Rank; got != 2 {
		t.Fatalf("rank = %d, want 2", got)
	}
}

func TestStatusTickDamageAndExpiry(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t)
	p := w.SpawnPlayer("p1", "Ash", ClassWarrior)
	before := p.Health

	if !w.ApplyStatus("p1", status.EffectBurning, "e1") {
		t.Fatal("apply failed")
	}
	for i := 0; i < 20; i++ {
		w.Step(uint64(i+1), time.Now(), 50*time.Millisecond)
	}
	if p.Health >= before {
		t.Fatal("burning must deal periodic damage")
	}
	for i := 20; i < 100; i++ {
		w.Step(uint64(i+1), time.Now(), 50*time.Millisecond)
	}
	if p.Status.Has(status.EffectBurning) {
		t.Fatal("burning must expire")
	}
}

func TestSnapshotHidesAmbushersAndCarriesRunID(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t, RoomSpec{Type: RoomStart}, RoomSpec{Type: RoomNormal})
	w.SpawnPlayer("p1", "Ash", ClassWarrior)
	var roomID string
	for id, room := range w.rooms {
		if room.Type == RoomNormal {
			roomID = id
		}
	}
	enemy := w.SpawnEnemy(&EnemyState{
		ActorCore: ActorCore{ID: "e1", RoomID: roomID, Alive: true, Stats: enemyBaseStats(EnemyMelee, 1, 1)},
		Hidden:    true,
	})
	enemy.Health = enemy.MaxHealth()

	snap := w.Snapshot()
	if snap.RunID != "run-test" {
		t.Fatalf("runId = %q", snap.RunID)
	}
	for _, e := range snap.Enemies {
		if e.ID == "e1" {
			t.Fatal("hidden ambushers must not appear in snapshots")
		}
	}
	if len(snap.Players) != 1 || snap.Players[0].ID != "p1" {
		t.Fatalf("unexpected players: %+v", snap.Players)
	}
}

func TestAmbushRevealOnProximity(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t, RoomSpec{Type: RoomStart}, RoomSpec{Type: RoomNormal})
	p := w.SpawnPlayer("p1", "Ash", ClassWarrior)
	var roomID string
	for id, room := range w.rooms {
		if room.Type == RoomNormal {
			roomID = id
		}
	}
	enemy := w.SpawnEnemy(&EnemyState{
		ActorCore: ActorCore{ID: "e1", RoomID: roomID, X: 5, Y: 5, Alive: true, Stats: enemyBaseStats(EnemyMelee, 1, 1)},
		Hidden:    true,
		AbilityID: abilities.AbilityStrike,
	})
	enemy.Health = enemy.MaxHealth()

	// Player far away: stays hidden.
	p.RoomID = roomID
	p.X, p.Y = 20, 14
	w.stepEnemies(50 * time.Millisecond)
	if !enemy.Hidden {
		t.Fatal("ambusher revealed too early")
	}

	p.X, p.Y = 6, 5
	w.stepEnemies(50 * time.Millisecond)
	if enemy.Hidden {
		t.Fatal("ambusher must reveal at close range")
	}
	var sawReveal bool
	for _, ev := range w.DrainEvents() {
		if ev.Kind == EventAmbush {
			sawReveal = true
		}
	}
	if !sawReveal {
		t.Fatal("expected an ambushRevealed event")
	}
}

func TestPetCreditsOwnerOnKill(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t)
	p := w.SpawnPlayer("p1", "Ash", ClassWarrior)
	pet := w.SpawnPet("p1", 10)
	if pet == nil {
		t.Fatal("expected pet")
	}
	enemy := w.SpawnEnemy(&EnemyState{
		ActorCore: ActorCore{ID: "e1", RoomID: p.RoomID, Alive: true, Stats: enemyBaseStats(EnemyMelee, 1, 1)},
		XPReward:  30,
	})
	enemy.Health = enemy.MaxHealth()

	w.ApplyDamage("e1", pet.ID, enemy.Health)
	if p.XP == 0 && p.Level == 1 {
		t.Fatal("pet kills must credit the owner")
	}
}

func TestSeededRunsReproduce(t *testing.T) {
	t.Parallel()
	build := func() Snapshot {
		w := New(Config{RunID: "run-seed", Seed: 99, StartFloor: 1, FinalFloor: 3})
		return w.Snapshot()
	}
	a, b := build(), build()
	if len(a.Rooms) != len(b.Rooms) || len(a.Enemies) != len(b.Enemies) {
		t.Fatalf("seeded floors differ: %d/%d rooms, %d/%d enemies",
			len(a.Rooms), len(b.Rooms), len(a.Enemies), len(b.Enemies))
	}
	for i := range a.Enemies {
		if a.Enemies[i].X != b.Enemies[i].X || a.Enemies[i].Y != b.Enemies[i].Y {
			t.Fatal("seeded enemy placement must match")
		}
	}
}

func TestPartyScalingUsesLivePartyAndGear(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t)
	w.SpawnPlayer("p1", "Ash", ClassWarrior)
	solo := w.PartyScaling()
	if solo.Health != 1 || solo.Damage != 1 {
		t.Fatalf("solo baseline = %+v", solo)
	}
	w.SpawnPlayer("p2", "Bel", ClassMage)
	duo := w.PartyScaling()
	if duo.Health != 1.5 || duo.Damage != 1.3 {
		t.Fatalf("duo scaling = %+v", duo)
	}
}

func TestStatsReflectDerivedPools(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t)
	p := w.SpawnPlayer("p1", "Ash", ClassWarrior)
	want := p.Stats.GetDerived(stats.DerivedMaxHealth)
	if p.MaxHealth() != want {
		t.Fatalf("MaxHealth = %v, want %v", p.MaxHealth(), want)
	}
}
