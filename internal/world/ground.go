package world

import (
	"time"

	"deepfall/server/internal/items"
	"deepfall/server/internal/world/status"
	"deepfall/server/logging"
)

const (
	pickupRadius     = 1.5
	chestOpenRadius  = 1.5
	vendorUseRadius  = 2.0
	scatterRadius    = 1.25
	groundItemTTL    = 90 * time.Second
	trapTriggerRange = 1.0
)

// GroundItemState is a dropped item waiting on the floor. Unclaimed
// drops despawn after a grace period.
type GroundItemState struct {
	ID     string     `json:"id"`
	RoomID string     `json:"roomId"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Item   items.Item `json:"item"`

	remaining time.Duration
}

// spawnGroundItem scatters a drop near the given position so stacked
// kills don't pile items on one spot.
func (w *World) spawnGroundItem(roomID string, x, y float64, item items.Item) *GroundItemState {
	if room, ok := w.rooms[roomID]; ok {
		x = clampCoord(x+(w.rng.Float64()*2-1)*scatterRadius, 0, room.Width)
		y = clampCoord(y+(w.rng.Float64()*2-1)*scatterRadius, 0, room.Height)
	}
	ground := &GroundItemState{
		ID:        w.allocateID("drop"),
		RoomID:    roomID,
		X:         x,
		Y:         y,
		Item:      item,
		remaining: groundItemTTL,
	}
	w.groundItems[ground.ID] = ground
	return ground
}

// GroundItems returns dropped items keyed by id.
func (w *World) GroundItems() map[string]*GroundItemState { return w.groundItems }

// pickupGroundItem moves a drop into the player's backpack when the
// player stands on it and has space. Full backpacks leave the drop on
// the floor.
func (w *World) pickupGroundItem(player *PlayerState, dropID string) bool {
	ground, ok := w.groundItems[dropID]
	if !ok || ground.RoomID != player.RoomID {
		return false
	}
	if distance(player.X, player.Y, ground.X, ground.Y) > pickupRadius {
		return false
	}
	if err := player.Backpack.Add(ground.Item); err != nil {
		return false
	}
	delete(w.groundItems, dropID)
	w.emitEvent(EventItemCollected, player.ID, map[string]any{
		"itemId": ground.Item.ID, "itemType": ground.Item.Type,
	})
	return true
}

// GroundEffectSpec configures a persistent area effect.
type GroundEffectSpec struct {
	Radius       float64
	MaxRadius    float64
	GrowthPerSec float64
	DamagePerSec float64
	Lifetime     time.Duration
	Effect       status.EffectID
	SourceID     string
}

// GroundEffectState is a damaging zone on the floor. Zones may grow
// over time up to a ceiling and expire when their lifetime runs out.
type GroundEffectState struct {
	ID     string  `json:"id"`
	RoomID string  `json:"roomId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`

	spec      GroundEffectSpec
	remaining time.Duration
}

func (w *World) spawnGroundEffect(roomID string, x, y float64, spec GroundEffectSpec) *GroundEffectState {
	effect := &GroundEffectState{
		ID:        w.allocateID("zone"),
		RoomID:    roomID,
		X:         x,
		Y:         y,
		Radius:    spec.Radius,
		spec:      spec,
		remaining: spec.Lifetime,
	}
	w.groundEffects[effect.ID] = effect
	return effect
}

// GroundEffects returns active area effects keyed by id.
func (w *World) GroundEffects() map[string]*GroundEffectState { return w.groundEffects }

func (w *World) stepGroundEffects(dt time.Duration) {
	for id, effect := range w.groundEffects {
		effect.remaining -= dt
		if effect.remaining <= 0 {
			delete(w.groundEffects, id)
			continue
		}
		if effect.spec.GrowthPerSec > 0 && effect.Radius < effect.spec.MaxRadius {
			effect.Radius += effect.spec.GrowthPerSec * dt.Seconds()
			if effect.Radius > effect.spec.MaxRadius {
				effect.Radius = effect.spec.MaxRadius
			}
		}
		for _, player := range w.players {
			if !player.Alive || player.RoomID != effect.RoomID {
				continue
			}
			if distance(player.X, player.Y, effect.X, effect.Y) > effect.Radius {
				continue
			}
			if effect.spec.DamagePerSec > 0 {
				w.ApplyDamage(player.ID, effect.spec.SourceID, effect.spec.DamagePerSec*dt.Seconds())
			}
			if effect.spec.Effect != "" && player.Alive {
				w.ApplyStatus(player.ID, effect.spec.Effect, effect.spec.SourceID)
			}
		}
	}
}

// ChestState is a lootable container. Rare-room chests roll with the
// elevated rarity floor.
type ChestState struct {
	ID     string  `json:"id"`
	RoomID string  `json:"roomId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Rare   bool    `json:"rare"`
	Opened bool    `json:"opened"`
}

func (w *World) spawnChest(room *Room, rare bool) *ChestState {
	chest := &ChestState{
		ID:     w.allocateID("chest"),
		RoomID: room.ID,
		X:      1 + w.rng.Float64()*(room.Width-2),
		Y:      1 + w.rng.Float64()*(room.Height-2),
		Rare:   rare,
	}
	w.chests[chest.ID] = chest
	return chest
}

// Chests returns chests keyed by id.
func (w *World) Chests() map[string]*ChestState { return w.chests }

// openChest rolls loot for the opener. A chest opens once.
func (w *World) openChest(player *PlayerState, chestID string) bool {
	chest, ok := w.chests[chestID]
	if !ok || chest.Opened || chest.RoomID != player.RoomID {
		return false
	}
	if distance(player.X, player.Y, chest.X, chest.Y) > chestOpenRadius {
		return false
	}
	chest.Opened = true
	drops := w.lootGen.Roll(w.floor, false, chest.Rare)
	for _, drop := range drops {
		w.grantDrop(player, chest.RoomID, chest.X, chest.Y, drop)
	}
	w.emitEvent(EventChestOpened, player.ID, map[string]any{"chestId": chestID, "rare": chest.Rare})
	return true
}

// TrapState is a hidden hazard that fires once when stepped on.
type TrapState struct {
	ID     string  `json:"id"`
	RoomID string  `json:"roomId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Sprung bool    `json:"sprung"`

	damage float64
	effect status.EffectID
}

func (w *World) spawnTrap(room *Room, damageMult float64) *TrapState {
	trap := &TrapState{
		ID:     w.allocateID("trap"),
		RoomID: room.ID,
		X:      1 + w.rng.Float64()*(room.Width-2),
		Y:      1 + w.rng.Float64()*(room.Height-2),
		damage: 12 * damageMult,
	}
	if w.rng.Float64() < 0.4 {
		trap.effect = status.EffectStunned
	}
	w.traps[trap.ID] = trap
	return trap
}

// Traps returns traps keyed by id.
func (w *World) Traps() map[string]*TrapState { return w.traps }

func (w *World) stepTraps() {
	for _, trap := range w.traps {
		if trap.Sprung {
			continue
		}
		for _, player := range w.players {
			if !player.Alive || player.RoomID != trap.RoomID {
				continue
			}
			if distance(player.X, player.Y, trap.X, trap.Y) > trapTriggerRange {
				continue
			}
			trap.Sprung = true
			w.ApplyDamage(player.ID, trap.ID, trap.damage)
			if trap.effect != "" && player.Alive {
				w.ApplyStatus(player.ID, trap.effect, trap.ID)
			}
			w.publish("trap_triggered", logging.CategoryGameplay,
				logging.EntityRef{ID: player.ID, Kind: logging.EntityKindPlayer},
				map[string]any{"trapId": trap.ID})
			break
		}
	}
}

// VendorService names something a vendor sells.
type VendorService string

const (
	VendorHeal   VendorService = "heal"
	VendorReroll VendorService = "reroll"
	VendorGamble VendorService = "gamble"
)

// VendorState is a floor-entrance merchant. Prices scale with the
// floor so gold keeps mattering on deep runs.
type VendorState struct {
	ID     string  `json:"id"`
	RoomID string  `json:"roomId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`

	healPrice   int
	rerollPrice int
	gamblePrice int
}

func (w *World) spawnVendor(room *Room) *VendorState {
	vendor := &VendorState{
		ID:          w.allocateID("vendor"),
		RoomID:      room.ID,
		X:           room.Width * 0.75,
		Y:           room.Height / 2,
		healPrice:   10 + 5*(w.floor-1),
		rerollPrice: 30 + 10*(w.floor-1),
		gamblePrice: 20 + 8*(w.floor-1),
	}
	w.vendors[vendor.ID] = vendor
	return vendor
}

// Vendors returns merchants keyed by id.
func (w *World) Vendors() map[string]*VendorState { return w.vendors }

// purchase executes a vendor service, deducting gold only when the
// service applies.
func (w *World) purchase(player *PlayerState, vendorID string, service VendorService) bool {
	vendor, ok := w.vendors[vendorID]
	if !ok || vendor.RoomID != player.RoomID {
		return false
	}
	if distance(player.X, player.Y, vendor.X, vendor.Y) > vendorUseRadius {
		return false
	}

	switch service {
	case VendorHeal:
		if player.Gold < vendor.healPrice || player.Health >= player.MaxHealth() {
			return false
		}
		player.Gold -= vendor.healPrice
		w.ApplyHeal(player.ID, player.MaxHealth())
		player.Mana = player.MaxMana()
	case VendorReroll:
		// Converts gold into a reroll token, the same currency the
		// rank-up fallback grants.
		if player.Gold < vendor.rerollPrice {
			return false
		}
		player.Gold -= vendor.rerollPrice
		player.RerollTokens++
	case VendorGamble:
		if player.Gold < vendor.gamblePrice {
			return false
		}
		player.Gold -= vendor.gamblePrice
		drops := w.lootGen.Roll(w.floor, false, w.RandomFloat() < 0.2)
		for _, drop := range drops {
			w.grantDrop(player, player.RoomID, player.X, player.Y, drop)
		}
	default:
		return false
	}

	w.emitEvent(EventPurchase, player.ID, map[string]any{
		"vendorId": vendorID, "service": string(service), "gold": player.Gold,
	})
	return true
}

// decayGroundItems removes unclaimed drops whose grace period lapsed.
func (w *World) decayGroundItems(dt time.Duration) {
	for id, ground := range w.groundItems {
		ground.remaining -= dt
		if ground.remaining <= 0 {
			delete(w.groundItems, id)
		}
	}
}
