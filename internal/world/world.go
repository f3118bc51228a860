// Package world owns the authoritative run state: rooms, combatants,
// items, timers. All mutation happens inside simulation ticks; the
// network layer only stages commands and reads snapshots.
package world

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"deepfall/server/internal/abilities"
	"deepfall/server/internal/loot"
	"deepfall/server/internal/progression"
	"deepfall/server/internal/sim"
	"deepfall/server/internal/world/status"
	"deepfall/server/logging"
	"deepfall/server/stats"
)

// Config seeds a new run.
type Config struct {
	RunID      string
	Seed       int64
	StartFloor int
	FinalFloor int
	Publisher  logging.Publisher
	// Planner supplies the room graph per floor. Layout generation is an
	// external collaborator; the default planner builds a small fixture
	// graph good enough for play and tests.
	Planner FloorPlanner
}

func (c Config) normalized() Config {
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	if c.StartFloor < 1 {
		c.StartFloor = 1
	}
	if c.FinalFloor < c.StartFloor {
		c.FinalFloor = c.StartFloor + defaultFloorCount - 1
	}
	if c.Publisher == nil {
		c.Publisher = logging.NopPublisher{}
	}
	if c.Planner == nil {
		c.Planner = DefaultPlanner
	}
	return c
}

// PendingAttack is a combat resolution due this tick, produced by
// client ability intents and enemy AI. The resolver re-validates
// liveness when it runs, so stale entries are dropped for free.
type PendingAttack struct {
	SourceID  string
	TargetID  string
	AbilityID abilities.ID
	Rank      int
}

// Death records a combatant whose health reached zero this tick.
type Death struct {
	VictimID string
	Kind     logging.EntityKind
	KillerID string
}

// EventKind tags per-tick world events surfaced to clients.
type EventKind string

const (
	EventLootDrop      EventKind = "lootDrop"
	EventLevelUp       EventKind = "levelUp"
	EventFloorComplete EventKind = "floorComplete"
	EventRunComplete   EventKind = "runComplete"
	EventChestOpened   EventKind = "chestOpened"
	EventItemCollected EventKind = "itemCollected"
	EventPurchase      EventKind = "purchase"
	EventPlayerJoined  EventKind = "playerJoined"
	EventPlayerLeft    EventKind = "playerLeft"
	EventPlayerDied    EventKind = "playerDied"
	EventPlayerOut     EventKind = "playerEliminated"
	EventAmbush        EventKind = "ambushRevealed"
	EventAbilityRankUp EventKind = "abilityRankUp"
	EventBossMechanic  EventKind = "bossMechanic"
)

// Event is one discrete world occurrence within a tick.
type Event struct {
	Kind    EventKind      `json:"kind"`
	Tick    uint64         `json:"tick"`
	ActorID string         `json:"actorId,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// World is the authoritative entity-state store for one run.
type World struct {
	runID      string
	floor      int
	finalFloor int
	completed  bool

	rooms       map[string]*Room
	startRoomID string
	bossRoomID  string

	players       map[string]*PlayerState
	enemies       map[string]*EnemyState
	pets          map[string]*PetState
	groundItems   map[string]*GroundItemState
	groundEffects map[string]*GroundEffectState
	chests        map[string]*ChestState
	traps         map[string]*TrapState
	vendors       map[string]*VendorState

	statusDefs map[status.EffectID]*status.Definition
	rng        *rand.Rand
	lootGen    *loot.Generator
	publisher  logging.Publisher
	planner    FloorPlanner

	currentTick    uint64
	nextID         uint64
	pendingAttacks []PendingAttack
	deaths         []Death
	events         []Event
}

// New constructs a world for a fresh run and populates the first floor.
func New(cfg Config) *World {
	cfg = cfg.normalized()
	rng := rand.New(rand.NewSource(cfg.Seed))
	w := &World{
		runID:         cfg.RunID,
		floor:         cfg.StartFloor,
		finalFloor:    cfg.FinalFloor,
		rooms:         make(map[string]*Room),
		players:       make(map[string]*PlayerState),
		enemies:       make(map[string]*EnemyState),
		pets:          make(map[string]*PetState),
		groundItems:   make(map[string]*GroundItemState),
		groundEffects: make(map[string]*GroundEffectState),
		chests:        make(map[string]*ChestState),
		traps:         make(map[string]*TrapState),
		vendors:       make(map[string]*VendorState),
		statusDefs:    status.DefaultDefinitions(),
		rng:           rng,
		publisher:     cfg.Publisher,
		planner:       cfg.Planner,
	}
	w.lootGen = loot.NewGenerator(rng)
	w.populateFloor(cfg.StartFloor)
	return w
}

// RunID identifies this run; snapshots carry it so clients can reject
// stale state from a previous run after a reconnect.
func (w *World) RunID() string { return w.runID }

// Floor reports the current dungeon floor.
func (w *World) Floor() int { return w.floor }

// Tick reports the last simulated tick.
func (w *World) Tick() uint64 { return w.currentTick }

// Completed reports whether the run reached its terminal state.
func (w *World) Completed() bool { return w.completed }

func (w *World) allocateID(prefix string) string {
	w.nextID++
	return fmt.Sprintf("%s-%d", prefix, w.nextID)
}

// RandomFloat samples the world RNG so combat rolls replay under a seed.
func (w *World) RandomFloat() float64 {
	if w == nil || w.rng == nil {
		return rand.Float64()
	}
	return w.rng.Float64()
}

// Step advances one tick: AI and movement, cooldown and status decay,
// ground-effect lifetimes, and trap triggers, in that order. Combat
// resolutions queued during the step are drained by the engine through
// DrainPendingAttacks.
func (w *World) Step(tick uint64, now time.Time, dt time.Duration) {
	if w == nil || w.completed {
		return
	}
	w.currentTick = tick

	w.stepPlayers(dt)
	w.stepEnemies(dt)
	w.stepPets(dt)
	w.decayTimers(dt)
	w.stepGroundEffects(dt)
	w.stepTraps()
	w.decayGroundItems(dt)
}

// Apply validates and applies staged commands in receipt order. Invalid
// intents mutate nothing and emit nothing.
func (w *World) Apply(cmds []sim.Command) {
	if w == nil || w.completed {
		return
	}
	for _, cmd := range cmds {
		w.applyCommand(cmd)
	}
}

// DrainPendingAttacks returns the combat work queued this tick.
func (w *World) DrainPendingAttacks() []PendingAttack {
	if w == nil || len(w.pendingAttacks) == 0 {
		return nil
	}
	pending := w.pendingAttacks
	w.pendingAttacks = nil
	return pending
}

// QueueAttack schedules a combat resolution for this tick.
func (w *World) QueueAttack(attack PendingAttack) {
	if w == nil {
		return
	}
	w.pendingAttacks = append(w.pendingAttacks, attack)
}

// DrainDeaths returns combatants that died since the last drain.
func (w *World) DrainDeaths() []Death {
	if w == nil || len(w.deaths) == 0 {
		return nil
	}
	deaths := w.deaths
	w.deaths = nil
	return deaths
}

// DrainEvents returns this tick's world events in occurrence order.
func (w *World) DrainEvents() []Event {
	if w == nil || len(w.events) == 0 {
		return nil
	}
	events := w.events
	w.events = nil
	return events
}

func (w *World) emitEvent(kind EventKind, actorID string, data map[string]any) {
	w.events = append(w.events, Event{Kind: kind, Tick: w.currentTick, ActorID: actorID, Data: data})
}

func (w *World) publish(eventType logging.EventType, category string, actor logging.EntityRef, extra map[string]any) {
	if w == nil || w.publisher == nil {
		return
	}
	w.publisher.Publish(context.Background(), logging.Event{
		Type:     eventType,
		Tick:     w.currentTick,
		Time:     time.Now(),
		RunID:    w.runID,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: category,
		Extra:    extra,
	})
}

// decayTimers advances ability cooldowns and status durations, removing
// expired effects and applying periodic status damage.
func (w *World) decayTimers(dt time.Duration) {
	for _, player := range w.players {
		for i := range player.Loadout {
			slot := &player.Loadout[i]
			if slot.Cooldown > 0 {
				slot.Cooldown -= dt
				if slot.Cooldown < 0 {
					slot.Cooldown = 0
				}
			}
		}
		w.advanceStatus(&player.ActorCore, dt)
	}
	for _, enemy := range w.enemies {
		if enemy.attackCooldown > 0 {
			enemy.attackCooldown -= dt
			if enemy.attackCooldown < 0 {
				enemy.attackCooldown = 0
			}
		}
		enemy.aliveFor += dt
		w.advanceStatus(&enemy.ActorCore, dt)
	}
	for _, pet := range w.pets {
		if pet.attackCooldown > 0 {
			pet.attackCooldown -= dt
			if pet.attackCooldown < 0 {
				pet.attackCooldown = 0
			}
		}
		w.advanceStatus(&pet.ActorCore, dt)
	}
}

func (w *World) advanceStatus(actor *ActorCore, dt time.Duration) {
	if actor == nil || !actor.Alive {
		return
	}
	result := actor.Status.Advance(dt)
	for _, tick := range result.Ticks {
		w.ApplyDamage(actor.ID, tick.SourceID, tick.Damage)
		if !actor.Alive {
			return
		}
	}
	if len(result.Expired) > 0 || len(result.Ticks) > 0 {
		actor.syncStatusLayer()
	}
}

// ApplyDamage applies post-mitigation damage to a combatant and handles
// death consequences. Returns the damage actually dealt.
func (w *World) ApplyDamage(targetID, sourceID string, amount float64) float64 {
	actor, _ := w.FindActor(targetID)
	if actor == nil || !actor.Alive || amount <= 0 {
		return 0
	}
	if amount > actor.Health {
		amount = actor.Health
	}
	actor.Health -= amount
	if actor.Health <= 0 {
		actor.Health = 0
		w.handleDeath(actor, sourceID)
	}
	return amount
}

// ApplyHeal restores health up to the combatant's maximum.
func (w *World) ApplyHeal(targetID string, amount float64) float64 {
	actor, _ := w.FindActor(targetID)
	if actor == nil || !actor.Alive || amount <= 0 {
		return 0
	}
	max := actor.MaxHealth()
	if actor.Health+amount > max {
		amount = max - actor.Health
	}
	actor.Health += amount
	return amount
}

// ApplyStatus attaches a buff or debuff following the stacking rules.
func (w *World) ApplyStatus(targetID string, effect status.EffectID, sourceID string) bool {
	actor, _ := w.FindActor(targetID)
	if actor == nil || !actor.Alive {
		return false
	}
	if actor.Status.Apply(effect, sourceID) == nil {
		return false
	}
	actor.syncStatusLayer()
	return true
}

func (w *World) handleDeath(actor *ActorCore, killerID string) {
	switch actor.Kind {
	case logging.EntityKindPlayer:
		w.handlePlayerDeath(actor.ID)
	case logging.EntityKindEnemy:
		w.handleEnemyDeath(actor.ID, killerID)
	case logging.EntityKindPet:
		w.removePet(actor.ID)
		w.deaths = append(w.deaths, Death{VictimID: actor.ID, Kind: logging.EntityKindPet, KillerID: killerID})
	}
}

func (w *World) handleEnemyDeath(enemyID, killerID string) {
	enemy, ok := w.enemies[enemyID]
	if !ok {
		return
	}
	enemy.Alive = false
	w.deaths = append(w.deaths, Death{VictimID: enemyID, Kind: logging.EntityKindEnemy, KillerID: killerID})
	w.publish("enemy_killed", logging.CategoryCombat, logging.EntityRef{ID: enemyID, Kind: logging.EntityKindEnemy},
		map[string]any{"killer": killerID})

	if killer := w.creditedPlayer(killerID); killer != nil {
		w.CreditKill(killer, enemy)
	}
	w.RemoveEnemy(enemyID)
	w.refreshRoomCleared(enemy.RoomID)
}

// creditedPlayer resolves the player who earns XP and loot for a kill:
// either the killer directly or a pet's owner.
func (w *World) creditedPlayer(killerID string) *PlayerState {
	if player, ok := w.players[killerID]; ok && player.Alive {
		return player
	}
	if pet, ok := w.pets[killerID]; ok {
		if owner, ok := w.players[pet.OwnerID]; ok && owner.Alive {
			return owner
		}
	}
	return nil
}

func (w *World) handlePlayerDeath(playerID string) {
	player, ok := w.players[playerID]
	if !ok {
		return
	}
	if player.Lives > 0 {
		player.Lives--
	}
	w.deaths = append(w.deaths, Death{VictimID: playerID, Kind: logging.EntityKindPlayer})
	w.emitEvent(EventPlayerDied, playerID, map[string]any{"livesLeft": player.Lives})
	w.publish("player_died", logging.CategoryCombat, logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
		map[string]any{"lives": player.Lives})

	// Dying clears target locks held against the player.
	w.clearTargetLocks(playerID)

	if player.Lives <= 0 {
		player.Alive = false
		player.Health = 0
		w.emitEvent(EventPlayerOut, playerID, nil)
		if !w.anyPlayerAlive() {
			w.completed = true
		}
		return
	}

	// A remaining life respawns the player at the floor entrance, fully
	// restored.
	start := w.rooms[w.startRoomID]
	player.Alive = true
	player.RoomID = w.startRoomID
	if start != nil {
		player.X, player.Y = start.Width/2, start.Height/2
	}
	player.Status = status.NewSet(w.statusDefs)
	player.syncStatusLayer()
	player.Health = player.MaxHealth()
	player.Mana = player.MaxMana()
}

func (w *World) anyPlayerAlive() bool {
	for _, p := range w.players {
		if p.Alive {
			return true
		}
	}
	return false
}

// clearTargetLocks removes every reference to a removed or dead entity
// so no back-reference outlives it.
func (w *World) clearTargetLocks(id string) {
	for _, p := range w.players {
		if p.TargetID == id {
			p.TargetID = ""
		}
	}
	for _, e := range w.enemies {
		if e.TargetID == id {
			e.TargetID = ""
		}
	}
	for _, pet := range w.pets {
		if pet.TargetID == id {
			pet.TargetID = ""
		}
	}
}

// CreditKill awards XP and rolls loot for a kill. Gold and cosmetics
// are granted directly; gear and potions scatter on the ground at the
// victim's position; ability drops attempt a rank-up with a fallback
// reward when the floor gate blocks it.
func (w *World) CreditKill(killer *PlayerState, victim *EnemyState) {
	if w == nil || killer == nil || victim == nil {
		return
	}
	w.AwardXP(killer, victim.XPReward)

	drops := w.lootGen.Roll(w.floor, victim.Boss, victim.Rare)
	for _, drop := range drops {
		w.grantDrop(killer, victim.RoomID, victim.X, victim.Y, drop)
	}
}

func (w *World) grantDrop(player *PlayerState, roomID string, x, y float64, drop loot.Drop) {
	switch drop.Kind {
	case loot.DropGold:
		player.Gold += drop.Gold
		w.emitEvent(EventLootDrop, player.ID, map[string]any{"gold": drop.Gold})
	case loot.DropItem:
		if drop.Item == nil {
			return
		}
		ground := w.spawnGroundItem(roomID, x, y, *drop.Item)
		w.emitEvent(EventLootDrop, player.ID, map[string]any{
			"itemId": ground.Item.ID, "itemType": ground.Item.Type, "rarity": string(ground.Item.Rarity),
		})
	case loot.DropAbility:
		w.grantAbilityDrop(player, drop.Ability)
	case loot.DropCosmetic:
		player.Cosmetics = append(player.Cosmetics, drop.Cosmetic)
		w.emitEvent(EventLootDrop, player.ID, map[string]any{"cosmetic": drop.Cosmetic})
	}
}

// grantAbilityDrop ranks up a known ability when the floor gate allows
// it, learns an unknown one at rank 1, and otherwise converts the drop
// into the deterministic fallback reward.
func (w *World) grantAbilityDrop(player *PlayerState, id abilities.ID) {
	slot := player.abilitySlot(id)
	if slot == nil {
		player.Loadout = append(player.Loadout, AbilityInstance{ID: id, Rank: 1})
		w.emitEvent(EventAbilityRankUp, player.ID, map[string]any{"ability": string(id), "rank": 1})
		return
	}
	if progression.CanUpgradeRank(slot.Rank, w.floor) {
		slot.Rank++
		w.emitEvent(EventAbilityRankUp, player.ID, map[string]any{"ability": string(id), "rank": slot.Rank})
		return
	}
	reward := progression.RankUpFallback(rankUpFallbackGold, w.floor, w.RandomFloat())
	player.Gold += reward.Gold
	if reward.RerollToken {
		player.RerollTokens++
	}
	w.emitEvent(EventLootDrop, player.ID, map[string]any{
		"gold": reward.Gold, "rerollToken": reward.RerollToken, "ability": string(id),
	})
}

const rankUpFallbackGold = 40

// AwardXP adds XP to a player, applying every level-up the award spans.
func (w *World) AwardXP(player *PlayerState, amount int) {
	if w == nil || player == nil || amount <= 0 {
		return
	}
	result := progression.AwardXP(player.Level, player.XP, player.XPToNext, amount)
	levels := result.LevelsGained
	player.Level = result.Level
	player.XP = result.XP
	player.XPToNext = result.XPToNext
	if levels == 0 {
		return
	}

	bonus := progression.LevelBonus(player.Level - 1)
	player.Stats.Set(stats.SourceKey{Layer: stats.LayerProgression, ID: "levels"}, bonus)
	player.Health = player.MaxHealth()
	player.Mana = player.MaxMana()
	w.emitEvent(EventLevelUp, player.ID, map[string]any{"level": player.Level, "gained": levels})
	w.publish("level_up", logging.CategoryProgression,
		logging.EntityRef{ID: player.ID, Kind: logging.EntityKindPlayer},
		map[string]any{"level": player.Level})
}

func distance(ax, ay, bx, by float64) float64 {
	dx := ax - bx
	dy := ay - by
	return math.Sqrt(dx*dx + dy*dy)
}

// PartyScaling computes the current enemy multipliers from live party
// size and average equipped item power.
func (w *World) PartyScaling() progression.PartyScaling {
	count := 0
	totalPower := 0.0
	pieces := 0
	for _, p := range w.players {
		count++
		for _, it := range p.Equipment {
			totalPower += it.Power
			pieces++
		}
	}
	avg := 0.0
	if pieces > 0 {
		avg = totalPower / float64(pieces)
	}
	return progression.ScalingForParty(count, avg)
}
