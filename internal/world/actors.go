package world

import (
	"time"

	"deepfall/server/internal/abilities"
	"deepfall/server/internal/items"
	"deepfall/server/internal/progression"
	"deepfall/server/internal/world/status"
	"deepfall/server/logging"
	"deepfall/server/stats"
)

// ActorCore is the state shared by players, enemies, and pets.
type ActorCore struct {
	ID       string
	Kind     logging.EntityKind
	RoomID   string
	X, Y     float64
	Health   float64
	Mana     float64
	Alive    bool
	TargetID string
	Stats    *stats.Component
	Status   *status.Set
}

// Core exposes the shared combatant state to the combat resolver.
func (a *ActorCore) Core() *ActorCore { return a }

// MaxHealth returns the resolved health ceiling.
func (a *ActorCore) MaxHealth() float64 {
	return a.Stats.GetDerived(stats.DerivedMaxHealth)
}

// MaxMana returns the resolved mana ceiling.
func (a *ActorCore) MaxMana() float64 {
	return a.Stats.GetDerived(stats.DerivedMaxMana)
}

// SpendMana deducts a cast cost, failing without mutation when the pool
// is short.
func (a *ActorCore) SpendMana(cost float64) bool {
	if cost <= 0 {
		return true
	}
	if a.Mana < cost {
		return false
	}
	a.Mana -= cost
	return true
}

// syncStatusLayer mirrors active status-effect deltas into the stats
// component so derived values include live buffs and debuffs.
func (a *ActorCore) syncStatusLayer() {
	key := stats.SourceKey{Layer: stats.LayerTemporary, ID: "status"}
	delta := a.Status.StatDelta()
	if delta.IsZero() {
		a.Stats.Remove(key)
		return
	}
	a.Stats.Set(key, delta)
}

// ClassID selects a starting kit.
type ClassID string

const (
	ClassWarrior ClassID = "warrior"
	ClassMage    ClassID = "mage"
	ClassRogue   ClassID = "rogue"
)

// MaxLives caps the death counter; a fresh character starts at the cap.
const MaxLives = 5

// AbilityInstance is one loadout slot: ability, rank, live cooldown.
type AbilityInstance struct {
	ID       abilities.ID  `json:"id"`
	Rank     int           `json:"rank"`
	Cooldown time.Duration `json:"cooldown"`
}

// PlayerState is the authoritative state for one player.
type PlayerState struct {
	ActorCore
	Name         string
	Class        ClassID
	Level        int
	XP           int
	XPToNext     int
	Gold         int
	RerollTokens int
	Lives        int
	HighestFloor int
	Cosmetics    []string
	Equipment    map[items.Slot]items.Item
	Backpack     items.Backpack
	Loadout      []AbilityInstance

	intentDX, intentDY float64
	lastHeartbeat      time.Time
	lastRTT            time.Duration
}

func (p *PlayerState) abilitySlot(id abilities.ID) *AbilityInstance {
	for i := range p.Loadout {
		if p.Loadout[i].ID == id {
			return &p.Loadout[i]
		}
	}
	return nil
}

// AbilitySlot returns the loadout entry for an ability id.
func (p *PlayerState) AbilitySlot(id abilities.ID) *AbilityInstance {
	if p == nil {
		return nil
	}
	return p.abilitySlot(id)
}

// LastHeartbeat reports the most recent heartbeat receipt time.
func (p *PlayerState) LastHeartbeat() time.Time {
	if p == nil {
		return time.Time{}
	}
	return p.lastHeartbeat
}

func classBaseStats(class ClassID) stats.ValueSet {
	switch class {
	case ClassMage:
		return stats.ValueSet{
			stats.StatStrength:  4,
			stats.StatIntellect: 14,
			stats.StatEndurance: 6,
			stats.StatAgility:   6,
		}
	case ClassRogue:
		return stats.ValueSet{
			stats.StatStrength:  9,
			stats.StatIntellect: 5,
			stats.StatEndurance: 7,
			stats.StatAgility:   13,
		}
	default:
		return stats.ValueSet{
			stats.StatStrength:  13,
			stats.StatIntellect: 4,
			stats.StatEndurance: 12,
			stats.StatAgility:   5,
		}
	}
}

func classLoadout(class ClassID) []AbilityInstance {
	switch class {
	case ClassMage:
		return []AbilityInstance{
			{ID: abilities.AbilityFirebolt, Rank: 1},
			{ID: abilities.AbilityIgnite, Rank: 1},
			{ID: abilities.AbilityMend, Rank: 1},
		}
	case ClassRogue:
		return []AbilityInstance{
			{ID: abilities.AbilityStrike, Rank: 1},
			{ID: abilities.AbilityShadowcut, Rank: 1},
		}
	default:
		return []AbilityInstance{
			{ID: abilities.AbilityStrike, Rank: 1},
			{ID: abilities.AbilityCleave, Rank: 1},
			{ID: abilities.AbilityWarcry, Rank: 1},
		}
	}
}

// SpawnPlayer creates a fresh character in the start room. Spawning an
// id that already exists returns the existing player unchanged.
func (w *World) SpawnPlayer(playerID, name string, class ClassID) *PlayerState {
	if w == nil {
		return nil
	}
	if existing, ok := w.players[playerID]; ok {
		return existing
	}
	start := w.rooms[w.startRoomID]
	player := &PlayerState{
		ActorCore: ActorCore{
			ID:     playerID,
			Kind:   logging.EntityKindPlayer,
			RoomID: w.startRoomID,
			Alive:  true,
			Stats:  stats.NewComponent(classBaseStats(class)),
			Status: status.NewSet(w.statusDefs),
		},
		Name:      name,
		Class:     class,
		Level:     1,
		XPToNext:  progression.XPForLevel(2),
		Gold:      25,
		Lives:     MaxLives,
		Equipment: make(map[items.Slot]items.Item),
		Loadout:   classLoadout(class),

		HighestFloor: w.floor,
	}
	if start != nil {
		player.X, player.Y = start.Width/2, start.Height/2
	}
	player.Health = player.MaxHealth()
	player.Mana = player.MaxMana()
	w.players[playerID] = player
	w.emitEvent(EventPlayerJoined, playerID, map[string]any{"name": name, "class": string(class)})
	w.publish("player_spawned", logging.CategoryGameplay,
		logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
		map[string]any{"class": string(class)})
	return player
}

// NoteDeparture surfaces a disconnect to other clients. The character
// stays in the world so a reconnect resumes in place.
func (w *World) NoteDeparture(playerID string) {
	if w == nil {
		return
	}
	if _, ok := w.players[playerID]; !ok {
		return
	}
	w.emitEvent(EventPlayerLeft, playerID, nil)
}

// RestorePlayer reconstructs a character mid-run from persisted fields.
// The caller owns save decoding; the world only re-derives stats.
type RestoredPlayer struct {
	Name         string
	Class        ClassID
	Level        int
	XP           int
	XPToNext     int
	Gold         int
	RerollTokens int
	Lives        int
	HighestFloor int
	Equipment    map[items.Slot]items.Item
	Backpack     []items.Item
	Loadout      []AbilityInstance
}

// SpawnRestoredPlayer places a restored character in the start room.
func (w *World) SpawnRestoredPlayer(playerID string, restored RestoredPlayer) *PlayerState {
	player := w.SpawnPlayer(playerID, restored.Name, restored.Class)
	if player == nil {
		return nil
	}
	player.Level = restored.Level
	player.XP = restored.XP
	player.XPToNext = restored.XPToNext
	if player.XPToNext <= 0 {
		player.XPToNext = progression.XPForLevel(player.Level + 1)
	}
	player.Gold = restored.Gold
	player.RerollTokens = restored.RerollTokens
	player.Lives = restored.Lives
	if player.Lives < 0 {
		player.Lives = 0
	}
	if player.Lives > MaxLives {
		player.Lives = MaxLives
	}
	if restored.HighestFloor > player.HighestFloor {
		player.HighestFloor = restored.HighestFloor
	}
	if len(restored.Loadout) > 0 {
		player.Loadout = restored.Loadout
	}
	player.Backpack = items.Backpack{}
	for _, it := range restored.Backpack {
		if err := player.Backpack.Add(it); err != nil {
			break
		}
	}
	if player.Level > 1 {
		player.Stats.Set(stats.SourceKey{Layer: stats.LayerProgression, ID: "levels"},
			progression.LevelBonus(player.Level-1))
	}
	for slot, it := range restored.Equipment {
		it := it
		it.Slot = slot
		player.Equipment[slot] = it
		player.Stats.Set(it.StatKey(), it.Bonuses)
	}
	w.refreshSetBonuses(player)
	player.Health = player.MaxHealth()
	player.Mana = player.MaxMana()
	return player
}

// RemovePlayer drops a player and every back-reference to them.
// Removal is idempotent.
func (w *World) RemovePlayer(playerID string) bool {
	if w == nil {
		return false
	}
	if _, ok := w.players[playerID]; !ok {
		return false
	}
	delete(w.players, playerID)
	w.clearTargetLocks(playerID)
	for id, pet := range w.pets {
		if pet.OwnerID == playerID {
			w.removePet(id)
		}
	}
	return true
}

// Player returns the live state for a player id.
func (w *World) Player(playerID string) (*PlayerState, bool) {
	if w == nil {
		return nil, false
	}
	p, ok := w.players[playerID]
	return p, ok
}

// Players returns the live players keyed by id.
func (w *World) Players() map[string]*PlayerState { return w.players }

// EnemyArchetype selects attack behavior.
type EnemyArchetype string

const (
	EnemyMelee  EnemyArchetype = "melee"
	EnemyRanged EnemyArchetype = "ranged"
	EnemyCaster EnemyArchetype = "caster"
)

// BossMechanic fires a scripted effect at a health fraction or on a
// repeating interval.
type BossMechanic struct {
	HealthPct float64
	Interval  time.Duration
	Effect    status.EffectID
	OnSelf    bool

	fired       bool
	sinceLastAt time.Duration
}

// EnemyState is the authoritative state for one enemy.
type EnemyState struct {
	ActorCore
	Archetype EnemyArchetype
	Boss      bool
	Rare      bool
	Elite     bool
	Hidden    bool
	XPReward  int
	AbilityID abilities.ID

	attackCooldown time.Duration
	aliveFor       time.Duration
	mechanics      []BossMechanic
}

// SpawnEnemy registers an enemy; spawning an existing id is a no-op
// returning the existing state.
func (w *World) SpawnEnemy(enemy *EnemyState) *EnemyState {
	if w == nil || enemy == nil || enemy.ID == "" {
		return nil
	}
	if existing, ok := w.enemies[enemy.ID]; ok {
		return existing
	}
	enemy.Kind = logging.EntityKindEnemy
	if enemy.Status == nil {
		enemy.Status = status.NewSet(w.statusDefs)
	}
	w.enemies[enemy.ID] = enemy
	return enemy
}

// RemoveEnemy drops an enemy and clears every back-reference. Removal
// is idempotent.
func (w *World) RemoveEnemy(enemyID string) bool {
	if w == nil {
		return false
	}
	if _, ok := w.enemies[enemyID]; !ok {
		return false
	}
	delete(w.enemies, enemyID)
	w.clearTargetLocks(enemyID)
	return true
}

// Enemy returns the live state for an enemy id.
func (w *World) Enemy(enemyID string) (*EnemyState, bool) {
	if w == nil {
		return nil, false
	}
	e, ok := w.enemies[enemyID]
	return e, ok
}

// Enemies returns the live enemies keyed by id.
func (w *World) Enemies() map[string]*EnemyState { return w.enemies }

// PetState is a player-owned companion.
type PetState struct {
	ActorCore
	OwnerID   string
	AbilityID abilities.ID

	attackCooldown time.Duration
}

// SpawnPet registers a companion bound to its owner's room.
func (w *World) SpawnPet(ownerID string, power float64) *PetState {
	owner, ok := w.players[ownerID]
	if !ok {
		return nil
	}
	pet := &PetState{
		ActorCore: ActorCore{
			ID:     w.allocateID("pet"),
			Kind:   logging.EntityKindPet,
			RoomID: owner.RoomID,
			X:      owner.X,
			Y:      owner.Y,
			Alive:  true,
			Stats: stats.NewComponent(stats.ValueSet{
				stats.StatStrength:  power,
				stats.StatEndurance: power / 2,
			}),
			Status: status.NewSet(w.statusDefs),
		},
		OwnerID:   ownerID,
		AbilityID: abilities.AbilityStrike,
	}
	pet.Health = pet.MaxHealth()
	w.pets[pet.ID] = pet
	return pet
}

func (w *World) removePet(petID string) {
	if _, ok := w.pets[petID]; !ok {
		return
	}
	delete(w.pets, petID)
	w.clearTargetLocks(petID)
}

// FindActor resolves any combatant id to its shared core.
func (w *World) FindActor(id string) (*ActorCore, logging.EntityKind) {
	if w == nil {
		return nil, logging.EntityKindUnknown
	}
	if p, ok := w.players[id]; ok {
		return &p.ActorCore, logging.EntityKindPlayer
	}
	if e, ok := w.enemies[id]; ok {
		return &e.ActorCore, logging.EntityKindEnemy
	}
	if pet, ok := w.pets[id]; ok {
		return &pet.ActorCore, logging.EntityKindPet
	}
	return nil, logging.EntityKindUnknown
}
