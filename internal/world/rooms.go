package world

import (
	"fmt"
	"math/rand"
	"time"

	"deepfall/server/internal/abilities"
	"deepfall/server/internal/progression"
	"deepfall/server/internal/world/status"
	"deepfall/server/logging"
	"deepfall/server/stats"
)

// RoomType classifies a room within a floor.
type RoomType string

const (
	RoomStart  RoomType = "start"
	RoomNormal RoomType = "normal"
	RoomRare   RoomType = "rare"
	RoomBoss   RoomType = "boss"
)

// RoomModifier is an optional floor-wide twist applied to one room.
type RoomModifier string

const (
	ModifierNone    RoomModifier = ""
	ModifierCursed  RoomModifier = "cursed"
	ModifierBlessed RoomModifier = "blessed"
	ModifierBurning RoomModifier = "burning"
	ModifierDark    RoomModifier = "dark"
)

// Door connects a room to a neighbor. Adjacency is carried by id, never
// by pointer, so the graph serializes without cycle tracking.
type Door struct {
	ToRoomID string  `json:"toRoomId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// Room is one rectangular play area.
type Room struct {
	ID          string       `json:"id"`
	Type        RoomType     `json:"type"`
	Modifier    RoomModifier `json:"modifier,omitempty"`
	Width       float64      `json:"width"`
	Height      float64      `json:"height"`
	Cleared     bool         `json:"cleared"`
	Ambush      bool         `json:"ambush,omitempty"`
	NeighborIDs []string     `json:"neighborIds"`
	Doors       []Door       `json:"doors"`
}

// RoomSpec is the planner's output for one room before population.
type RoomSpec struct {
	Type     RoomType
	Modifier RoomModifier
	Ambush   bool
	Enemies  int
}

// FloorPlanner supplies the room graph for a floor. The real layout
// generator is an external collaborator consuming this same contract.
type FloorPlanner func(floor int, rng *rand.Rand) []RoomSpec

const (
	defaultFloorCount  = 8
	defaultRoomWidth   = 24.0
	defaultRoomHeight  = 16.0
	doorTraverseRadius = 1.2
)

// DefaultPlanner builds a linear floor: start, a few normal rooms, an
// occasional rare room, then the boss.
func DefaultPlanner(floor int, rng *rand.Rand) []RoomSpec {
	specs := []RoomSpec{{Type: RoomStart}}
	normals := 3 + rng.Intn(3)
	for i := 0; i < normals; i++ {
		spec := RoomSpec{Type: RoomNormal, Enemies: 2 + rng.Intn(3)}
		switch rng.Intn(6) {
		case 0:
			spec.Modifier = ModifierCursed
		case 1:
			spec.Modifier = ModifierBurning
		case 2:
			spec.Modifier = ModifierDark
			spec.Ambush = true
		case 3:
			spec.Modifier = ModifierBlessed
		}
		specs = append(specs, spec)
	}
	if rng.Float64() < 0.5 {
		specs = append(specs, RoomSpec{Type: RoomRare, Enemies: 1})
	}
	specs = append(specs, RoomSpec{Type: RoomBoss, Enemies: 1})
	return specs
}

// populateFloor replaces the room graph and respawns enemies, chests,
// traps, and vendors for the given floor.
func (w *World) populateFloor(floor int) {
	w.floor = floor
	w.rooms = make(map[string]*Room)
	w.enemies = make(map[string]*EnemyState)
	w.groundItems = make(map[string]*GroundItemState)
	w.groundEffects = make(map[string]*GroundEffectState)
	w.chests = make(map[string]*ChestState)
	w.traps = make(map[string]*TrapState)
	w.vendors = make(map[string]*VendorState)

	specs := w.planner(floor, w.rng)
	ids := make([]string, len(specs))
	for i, spec := range specs {
		room := &Room{
			ID:       fmt.Sprintf("floor%d-room%d", floor, i),
			Type:     spec.Type,
			Modifier: spec.Modifier,
			Ambush:   spec.Ambush,
			Width:    defaultRoomWidth,
			Height:   defaultRoomHeight,
			Cleared:  spec.Type == RoomStart,
		}
		ids[i] = room.ID
		w.rooms[room.ID] = room
		switch spec.Type {
		case RoomStart:
			w.startRoomID = room.ID
		case RoomBoss:
			w.bossRoomID = room.ID
		}
	}

	// Linear adjacency: doors sit on opposite edges of each room.
	for i, room := range ids {
		r := w.rooms[room]
		if i > 0 {
			r.NeighborIDs = append(r.NeighborIDs, ids[i-1])
			r.Doors = append(r.Doors, Door{ToRoomID: ids[i-1], X: 0, Y: r.Height / 2})
		}
		if i < len(ids)-1 {
			r.NeighborIDs = append(r.NeighborIDs, ids[i+1])
			r.Doors = append(r.Doors, Door{ToRoomID: ids[i+1], X: r.Width, Y: r.Height / 2})
		}
	}

	for i, spec := range specs {
		w.populateRoom(w.rooms[ids[i]], spec, floor)
	}

	w.publish("floor_populated", logging.CategorySystem,
		logging.EntityRef{ID: w.runID, Kind: logging.EntityKindWorld},
		map[string]any{"floor": floor, "rooms": len(specs)})
}

func (w *World) populateRoom(room *Room, spec RoomSpec, floor int) {
	scaling := progression.ScalingForFloor(floor)
	party := w.PartyScaling()

	switch spec.Type {
	case RoomStart:
		w.spawnVendor(room)
		return
	case RoomBoss:
		w.spawnBoss(room, scaling.Health*party.Health, scaling.Damage*party.Damage, floor)
	case RoomRare:
		w.spawnRareEnemy(room, scaling.Health*party.Health, scaling.Damage*party.Damage, floor)
	default:
		for i := 0; i < spec.Enemies; i++ {
			w.spawnFloorEnemy(room, scaling.Health*party.Health, scaling.Damage*party.Damage, floor, spec.Ambush)
		}
	}

	if spec.Modifier == ModifierBurning {
		w.spawnGroundEffect(room.ID, room.Width/2, room.Height/2, GroundEffectSpec{
			Radius:       2,
			MaxRadius:    4,
			GrowthPerSec: 0.1,
			DamagePerSec: 4 * scaling.Damage,
			Lifetime:     time.Hour,
			Effect:       status.EffectBurning,
		})
	}
	if w.rng.Float64() < 0.35 {
		w.spawnTrap(room, scaling.Damage)
	}
	if spec.Type == RoomRare || w.rng.Float64() < 0.25 {
		w.spawnChest(room, spec.Type == RoomRare)
	}
}

func enemyBaseStats(archetype EnemyArchetype, healthMult, damageMult float64) *stats.Component {
	var base stats.ValueSet
	switch archetype {
	case EnemyRanged:
		base = stats.ValueSet{stats.StatStrength: 7, stats.StatEndurance: 4, stats.StatAgility: 8}
	case EnemyCaster:
		base = stats.ValueSet{stats.StatIntellect: 9, stats.StatEndurance: 4}
	default:
		base = stats.ValueSet{stats.StatStrength: 8, stats.StatEndurance: 6}
	}
	comp := stats.NewComponent(base)
	// Floor and party scaling multiply the base pools through a flat
	// bonus layer so the formula stays inspectable in snapshots.
	var delta stats.Delta
	derived := comp.Derived()
	delta.Derived[stats.DerivedMaxHealth] = derived[stats.DerivedMaxHealth] * (healthMult - 1)
	delta.Derived[stats.DerivedAttackPower] = derived[stats.DerivedAttackPower] * (damageMult - 1)
	delta.Derived[stats.DerivedSpellPower] = derived[stats.DerivedSpellPower] * (damageMult - 1)
	comp.Set(stats.SourceKey{Layer: stats.LayerProgression, ID: "scaling"}, delta)
	return comp
}

func (w *World) spawnFloorEnemy(room *Room, healthMult, damageMult float64, floor int, hidden bool) {
	archetypes := []EnemyArchetype{EnemyMelee, EnemyMelee, EnemyRanged, EnemyCaster}
	archetype := archetypes[w.rng.Intn(len(archetypes))]
	ability := abilities.AbilityStrike
	switch archetype {
	case EnemyRanged:
		ability = abilities.AbilityFirebolt
	case EnemyCaster:
		ability = abilities.AbilityIgnite
	}
	enemy := &EnemyState{
		ActorCore: ActorCore{
			ID:     w.allocateID("enemy"),
			RoomID: room.ID,
			X:      1 + w.rng.Float64()*(room.Width-2),
			Y:      1 + w.rng.Float64()*(room.Height-2),
			Alive:  true,
			Stats:  enemyBaseStats(archetype, healthMult, damageMult),
		},
		Archetype: archetype,
		Hidden:    hidden,
		XPReward:  int(30 * progression.ScalingForFloor(floor).Loot),
		AbilityID: ability,
	}
	enemy.Health = enemy.MaxHealth()
	enemy.Mana = enemy.MaxMana()
	w.SpawnEnemy(enemy)
}

func (w *World) spawnRareEnemy(room *Room, healthMult, damageMult float64, floor int) {
	enemy := &EnemyState{
		ActorCore: ActorCore{
			ID:     w.allocateID("enemy"),
			RoomID: room.ID,
			X:      room.Width / 2,
			Y:      room.Height / 2,
			Alive:  true,
			Stats:  enemyBaseStats(EnemyMelee, healthMult*2, damageMult*1.4),
		},
		Archetype: EnemyMelee,
		Rare:      true,
		Elite:     true,
		XPReward:  int(90 * progression.ScalingForFloor(floor).Loot),
		AbilityID: abilities.AbilityCleave,
	}
	enemy.Health = enemy.MaxHealth()
	enemy.Mana = enemy.MaxMana()
	w.SpawnEnemy(enemy)
}

func (w *World) spawnBoss(room *Room, healthMult, damageMult float64, floor int) {
	enemy := &EnemyState{
		ActorCore: ActorCore{
			ID:     w.allocateID("boss"),
			RoomID: room.ID,
			X:      room.Width / 2,
			Y:      room.Height / 2,
			Alive:  true,
			Stats:  enemyBaseStats(EnemyMelee, healthMult*5, damageMult*1.8),
		},
		Archetype: EnemyMelee,
		Boss:      true,
		XPReward:  int(300 * progression.ScalingForFloor(floor).Loot),
		AbilityID: abilities.AbilityCleave,
		mechanics: []BossMechanic{
			{HealthPct: 0.5, Effect: status.EffectEmboldened, OnSelf: true},
			{Interval: 12 * time.Second, Effect: status.EffectBurning},
		},
	}
	enemy.Health = enemy.MaxHealth()
	enemy.Mana = enemy.MaxMana()
	w.SpawnEnemy(enemy)
}

// Room returns the room for an id.
func (w *World) Room(roomID string) (*Room, bool) {
	if w == nil {
		return nil, false
	}
	r, ok := w.rooms[roomID]
	return r, ok
}

// Rooms returns the room arena keyed by id.
func (w *World) Rooms() map[string]*Room { return w.rooms }

// refreshRoomCleared marks a room cleared once no living enemy remains
// inside it.
func (w *World) refreshRoomCleared(roomID string) {
	room, ok := w.rooms[roomID]
	if !ok || room.Cleared {
		return
	}
	for _, enemy := range w.enemies {
		if enemy.RoomID == roomID && enemy.Alive {
			return
		}
	}
	room.Cleared = true
	if roomID == w.bossRoomID {
		w.emitEvent(EventFloorComplete, "", map[string]any{"floor": w.floor})
		w.publish("floor_complete", logging.CategoryGameplay,
			logging.EntityRef{ID: w.runID, Kind: logging.EntityKindWorld},
			map[string]any{"floor": w.floor})
	}
}

// BossDefeated reports whether the floor's boss room has been cleared.
func (w *World) BossDefeated() bool {
	room, ok := w.rooms[w.bossRoomID]
	return ok && room.Cleared
}

// AdvanceFloor moves the party to the next floor once the boss is down.
// Advancing off the final floor completes the run.
func (w *World) AdvanceFloor(playerID string) bool {
	player, ok := w.players[playerID]
	if !ok || !player.Alive || !w.BossDefeated() {
		return false
	}

	if w.floor >= w.finalFloor {
		w.completed = true
		w.emitEvent(EventRunComplete, playerID, map[string]any{"floor": w.floor})
		w.publish("run_complete", logging.CategoryGameplay,
			logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
			map[string]any{"floor": w.floor})
		return true
	}

	next := w.floor + 1
	w.populateFloor(next)
	for _, p := range w.players {
		if !p.Alive {
			continue
		}
		p.RoomID = w.startRoomID
		if start, ok := w.rooms[w.startRoomID]; ok {
			p.X, p.Y = start.Width/2, start.Height/2
		}
		p.TargetID = ""
		if next > p.HighestFloor {
			p.HighestFloor = next
		}
	}
	for _, pet := range w.pets {
		if owner, ok := w.players[pet.OwnerID]; ok {
			pet.RoomID = owner.RoomID
			pet.X, pet.Y = owner.X, owner.Y
			pet.TargetID = ""
		}
	}
	return true
}

// stepPlayers integrates staged movement intents and handles door
// traversal into cleared-room neighbors.
func (w *World) stepPlayers(dt time.Duration) {
	for _, player := range w.players {
		if !player.Alive || player.Status.Stunned() {
			continue
		}
		dx, dy := player.intentDX, player.intentDY
		if dx == 0 && dy == 0 {
			continue
		}
		room, ok := w.rooms[player.RoomID]
		if !ok {
			continue
		}
		speed := playerMoveSpeed * player.Stats.GetDerived(stats.DerivedHaste)
		player.X = clampCoord(player.X+dx*speed*dt.Seconds(), 0, room.Width)
		player.Y = clampCoord(player.Y+dy*speed*dt.Seconds(), 0, room.Height)

		if !room.Cleared {
			continue
		}
		for _, door := range room.Doors {
			if distance(player.X, player.Y, door.X, door.Y) <= doorTraverseRadius {
				w.traverseDoor(player, room, door)
				break
			}
		}
	}
}

const playerMoveSpeed = 4.0

func (w *World) traverseDoor(player *PlayerState, from *Room, door Door) {
	next, ok := w.rooms[door.ToRoomID]
	if !ok {
		return
	}
	player.RoomID = next.ID
	player.TargetID = ""
	// Enter beside the door that leads back.
	entryX, entryY := next.Width/2, next.Height/2
	for _, back := range next.Doors {
		if back.ToRoomID == from.ID {
			entryX = clampCoord(back.X+doorEntryOffset(back.X, next.Width), 0, next.Width)
			entryY = back.Y
			break
		}
	}
	player.X, player.Y = entryX, entryY
	for _, pet := range w.pets {
		if pet.OwnerID == player.ID {
			pet.RoomID = next.ID
			pet.X, pet.Y = entryX, entryY
			pet.TargetID = ""
		}
	}
}

func doorEntryOffset(doorX, width float64) float64 {
	if doorX <= 0 {
		return 1.5
	}
	if doorX >= width {
		return -1.5
	}
	return 0
}

func clampCoord(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
