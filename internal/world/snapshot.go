package world

import (
	"sort"
	"time"

	"deepfall/server/internal/abilities"
	"deepfall/server/internal/items"
	"deepfall/server/internal/world/status"
)

// Snapshot is the full client-facing view of one tick. It is built
// from copies: mutating a snapshot never touches live state. RunID and
// Tick let clients reject stale or cross-run state after reconnects.
type Snapshot struct {
	RunID string `json:"runId"`
	Tick  uint64 `json:"tick"`
	Floor int    `json:"floor"`
	Done  bool   `json:"done"`

	Rooms         []RoomView         `json:"rooms"`
	Players       []PlayerView       `json:"players"`
	Enemies       []EnemyView        `json:"enemies"`
	Pets          []PetView          `json:"pets"`
	GroundItems   []GroundItemView   `json:"groundItems,omitempty"`
	GroundEffects []GroundEffectView `json:"groundEffects,omitempty"`
	Chests        []ChestView        `json:"chests,omitempty"`
	Traps         []TrapView         `json:"traps,omitempty"`
	Vendors       []VendorView       `json:"vendors,omitempty"`
}

// RoomView mirrors room geometry and clear state.
type RoomView struct {
	ID          string       `json:"id"`
	Type        RoomType     `json:"type"`
	Modifier    RoomModifier `json:"modifier,omitempty"`
	Width       float64      `json:"width"`
	Height      float64      `json:"height"`
	Cleared     bool         `json:"cleared"`
	NeighborIDs []string     `json:"neighborIds,omitempty"`
	Doors       []Door       `json:"doors,omitempty"`
}

// StatusView is one active effect on a combatant.
type StatusView struct {
	ID        status.EffectID `json:"id"`
	Stacks    int             `json:"stacks"`
	Remaining time.Duration   `json:"remaining"`
}

// AbilityView is one loadout slot with its live cooldown.
type AbilityView struct {
	ID       abilities.ID  `json:"id"`
	Rank     int           `json:"rank"`
	Cooldown time.Duration `json:"cooldown"`
}

// PlayerView exposes a player's public state plus their own inventory.
type PlayerView struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Class        ClassID       `json:"class"`
	RoomID       string        `json:"roomId"`
	X            float64       `json:"x"`
	Y            float64       `json:"y"`
	Health       float64       `json:"health"`
	MaxHealth    float64       `json:"maxHealth"`
	Mana         float64       `json:"mana"`
	MaxMana      float64       `json:"maxMana"`
	Alive        bool          `json:"alive"`
	TargetID     string        `json:"targetId,omitempty"`
	Level        int           `json:"level"`
	XP           int           `json:"xp"`
	XPToNext     int           `json:"xpToNext"`
	Gold         int           `json:"gold"`
	RerollTokens int           `json:"rerollTokens"`
	Lives        int           `json:"lives"`
	HighestFloor int           `json:"highestFloor"`
	Cosmetics    []string      `json:"cosmetics,omitempty"`
	Equipment    []items.Item  `json:"equipment,omitempty"`
	Backpack     []items.Item  `json:"backpack,omitempty"`
	Loadout      []AbilityView `json:"loadout"`
	Statuses     []StatusView  `json:"statuses,omitempty"`
}

// EnemyView exposes an enemy's visible state. Hidden ambushers are
// omitted from snapshots entirely.
type EnemyView struct {
	ID        string         `json:"id"`
	RoomID    string         `json:"roomId"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	Health    float64        `json:"health"`
	MaxHealth float64        `json:"maxHealth"`
	Archetype EnemyArchetype `json:"archetype"`
	Boss      bool           `json:"boss,omitempty"`
	Rare      bool           `json:"rare,omitempty"`
	Elite     bool           `json:"elite,omitempty"`
	TargetID  string         `json:"targetId,omitempty"`
	Statuses  []StatusView   `json:"statuses,omitempty"`
}

// PetView exposes a companion's visible state.
type PetView struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"ownerId"`
	RoomID    string  `json:"roomId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Health    float64 `json:"health"`
	MaxHealth float64 `json:"maxHealth"`
}

// GroundItemView is a visible dropped item.
type GroundItemView struct {
	ID     string     `json:"id"`
	RoomID string     `json:"roomId"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Item   items.Item `json:"item"`
}

// GroundEffectView is a visible area effect.
type GroundEffectView struct {
	ID     string  `json:"id"`
	RoomID string  `json:"roomId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// ChestView is a visible chest.
type ChestView struct {
	ID     string  `json:"id"`
	RoomID string  `json:"roomId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Rare   bool    `json:"rare,omitempty"`
	Opened bool    `json:"opened"`
}

// TrapView is a sprung trap. Unsprung traps stay invisible.
type TrapView struct {
	ID     string  `json:"id"`
	RoomID string  `json:"roomId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// VendorView is a merchant with current prices.
type VendorView struct {
	ID          string  `json:"id"`
	RoomID      string  `json:"roomId"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	HealPrice   int     `json:"healPrice"`
	RerollPrice int     `json:"rerollPrice"`
	GamblePrice int     `json:"gamblePrice"`
}

// Snapshot copies the current world state into a client-facing view.
// Entity lists are sorted by id so consecutive snapshots diff cleanly.
func (w *World) Snapshot() Snapshot {
	if w == nil {
		return Snapshot{}
	}
	snap := Snapshot{
		RunID: w.runID,
		Tick:  w.currentTick,
		Floor: w.floor,
		Done:  w.completed,
	}

	for _, room := range w.rooms {
		snap.Rooms = append(snap.Rooms, RoomView{
			ID:          room.ID,
			Type:        room.Type,
			Modifier:    room.Modifier,
			Width:       room.Width,
			Height:      room.Height,
			Cleared:     room.Cleared,
			NeighborIDs: append([]string(nil), room.NeighborIDs...),
			Doors:       append([]Door(nil), room.Doors...),
		})
	}
	for _, p := range w.players {
		snap.Players = append(snap.Players, playerView(p))
	}
	for _, e := range w.enemies {
		if e.Hidden || !e.Alive {
			continue
		}
		snap.Enemies = append(snap.Enemies, EnemyView{
			ID:        e.ID,
			RoomID:    e.RoomID,
			X:         e.X,
			Y:         e.Y,
			Health:    e.Health,
			MaxHealth: e.MaxHealth(),
			Archetype: e.Archetype,
			Boss:      e.Boss,
			Rare:      e.Rare,
			Elite:     e.Elite,
			TargetID:  e.TargetID,
			Statuses:  statusViews(e.Status),
		})
	}
	for _, pet := range w.pets {
		snap.Pets = append(snap.Pets, PetView{
			ID:        pet.ID,
			OwnerID:   pet.OwnerID,
			RoomID:    pet.RoomID,
			X:         pet.X,
			Y:         pet.Y,
			Health:    pet.Health,
			MaxHealth: pet.MaxHealth(),
		})
	}
	for _, g := range w.groundItems {
		snap.GroundItems = append(snap.GroundItems, GroundItemView{
			ID: g.ID, RoomID: g.RoomID, X: g.X, Y: g.Y, Item: g.Item,
		})
	}
	for _, e := range w.groundEffects {
		snap.GroundEffects = append(snap.GroundEffects, GroundEffectView{
			ID: e.ID, RoomID: e.RoomID, X: e.X, Y: e.Y, Radius: e.Radius,
		})
	}
	for _, c := range w.chests {
		snap.Chests = append(snap.Chests, ChestView{
			ID: c.ID, RoomID: c.RoomID, X: c.X, Y: c.Y, Rare: c.Rare, Opened: c.Opened,
		})
	}
	for _, t := range w.traps {
		if !t.Sprung {
			continue
		}
		snap.Traps = append(snap.Traps, TrapView{ID: t.ID, RoomID: t.RoomID, X: t.X, Y: t.Y})
	}
	for _, v := range w.vendors {
		snap.Vendors = append(snap.Vendors, VendorView{
			ID: v.ID, RoomID: v.RoomID, X: v.X, Y: v.Y,
			HealPrice: v.healPrice, RerollPrice: v.rerollPrice, GamblePrice: v.gamblePrice,
		})
	}

	sort.Slice(snap.Rooms, func(i, j int) bool { return snap.Rooms[i].ID < snap.Rooms[j].ID })
	sort.Slice(snap.Players, func(i, j int) bool { return snap.Players[i].ID < snap.Players[j].ID })
	sort.Slice(snap.Enemies, func(i, j int) bool { return snap.Enemies[i].ID < snap.Enemies[j].ID })
	sort.Slice(snap.Pets, func(i, j int) bool { return snap.Pets[i].ID < snap.Pets[j].ID })
	sort.Slice(snap.GroundItems, func(i, j int) bool { return snap.GroundItems[i].ID < snap.GroundItems[j].ID })
	sort.Slice(snap.GroundEffects, func(i, j int) bool { return snap.GroundEffects[i].ID < snap.GroundEffects[j].ID })
	sort.Slice(snap.Chests, func(i, j int) bool { return snap.Chests[i].ID < snap.Chests[j].ID })
	sort.Slice(snap.Traps, func(i, j int) bool { return snap.Traps[i].ID < snap.Traps[j].ID })
	sort.Slice(snap.Vendors, func(i, j int) bool { return snap.Vendors[i].ID < snap.Vendors[j].ID })
	return snap
}

func playerView(p *PlayerState) PlayerView {
	view := PlayerView{
		ID:           p.ID,
		Name:         p.Name,
		Class:        p.Class,
		RoomID:       p.RoomID,
		X:            p.X,
		Y:            p.Y,
		Health:       p.Health,
		MaxHealth:    p.MaxHealth(),
		Mana:         p.Mana,
		MaxMana:      p.MaxMana(),
		Alive:        p.Alive,
		TargetID:     p.TargetID,
		Level:        p.Level,
		XP:           p.XP,
		XPToNext:     p.XPToNext,
		Gold:         p.Gold,
		RerollTokens: p.RerollTokens,
		Lives:        p.Lives,
		HighestFloor: p.HighestFloor,
		Cosmetics:    append([]string(nil), p.Cosmetics...),
		Backpack:     append([]items.Item(nil), p.Backpack.Items...),
		Statuses:     statusViews(p.Status),
	}
	for _, slot := range items.Slots {
		if it, ok := p.Equipment[slot]; ok {
			view.Equipment = append(view.Equipment, it)
		}
	}
	for _, slot := range p.Loadout {
		view.Loadout = append(view.Loadout, AbilityView{ID: slot.ID, Rank: slot.Rank, Cooldown: slot.Cooldown})
	}
	return view
}

func statusViews(set *status.Set) []StatusView {
	if set == nil {
		return nil
	}
	active := set.Active()
	if len(active) == 0 {
		return nil
	}
	views := make([]StatusView, 0, len(active))
	for _, inst := range active {
		views = append(views, StatusView{ID: inst.Definition.ID, Stacks: inst.Stacks, Remaining: inst.Remaining})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}
