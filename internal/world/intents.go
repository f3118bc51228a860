package world

import (
	"math"

	"deepfall/server/internal/abilities"
	"deepfall/server/internal/items"
	"deepfall/server/internal/sim"
)

// applyCommand validates one staged intent against current state and
// mutates the world when it holds. Invalid intents are dropped without
// side effects; the client learns the outcome from the next snapshot.
func (w *World) applyCommand(cmd sim.Command) {
	player, ok := w.players[cmd.ActorID]
	if !ok {
		return
	}

	switch cmd.Type {
	case sim.CommandMove:
		if cmd.Move == nil || !player.Alive {
			return
		}
		player.intentDX, player.intentDY = normalizeVector(cmd.Move.DX, cmd.Move.DY)
	case sim.CommandSetTarget:
		if cmd.Target == nil || !player.Alive {
			return
		}
		w.setTarget(player, cmd.Target.TargetID)
	case sim.CommandAbility:
		if cmd.Ability == nil || !player.Alive {
			return
		}
		w.castAbility(player, abilities.ID(cmd.Ability.AbilityID), cmd.Ability.TargetID)
	case sim.CommandAdvanceFloor:
		w.AdvanceFloor(player.ID)
	case sim.CommandUseItem:
		if cmd.UseItem == nil || !player.Alive {
			return
		}
		w.useItem(player, cmd.UseItem.ItemID)
	case sim.CommandEquip:
		if cmd.Equip == nil || !player.Alive {
			return
		}
		w.equipItem(player, cmd.Equip.ItemID)
	case sim.CommandUnequip:
		if cmd.Unequip == nil || !player.Alive {
			return
		}
		w.unequipSlot(player, items.Slot(cmd.Unequip.Slot))
	case sim.CommandPickup:
		if cmd.Pickup == nil || !player.Alive {
			return
		}
		w.pickupGroundItem(player, cmd.Pickup.GroundItemID)
	case sim.CommandVendor:
		// Chest interaction rides the vendor verb: opening and buying are
		// both "use the thing in front of me".
		if !player.Alive {
			return
		}
		w.openNearestChest(player)
	case sim.CommandPurchase:
		if cmd.Purchase == nil || !player.Alive {
			return
		}
		w.purchase(player, cmd.Purchase.VendorID, VendorService(cmd.Purchase.Service))
	case sim.CommandHeartbeat:
		if cmd.Heartbeat == nil {
			return
		}
		player.lastHeartbeat = cmd.Heartbeat.ReceivedAt
		player.lastRTT = cmd.Heartbeat.RTT
	}
}

func normalizeVector(dx, dy float64) (float64, float64) {
	length := math.Sqrt(dx*dx + dy*dy)
	if length <= 1 {
		return dx, dy
	}
	return dx / length, dy / length
}

// setTarget locks onto a living combatant in the player's room. An
// empty id clears the lock.
func (w *World) setTarget(player *PlayerState, targetID string) {
	if targetID == "" {
		player.TargetID = ""
		return
	}
	target, _ := w.FindActor(targetID)
	if target == nil || !target.Alive || target.RoomID != player.RoomID {
		return
	}
	// Ambushers stay untargetable until their reveal trigger fires.
	if enemy, ok := w.enemies[targetID]; ok && enemy.Hidden {
		return
	}
	player.TargetID = targetID
}

// castAbility validates loadout membership, cooldown, and resolves the
// target, then queues the attack for this tick's combat pass.
func (w *World) castAbility(player *PlayerState, abilityID abilities.ID, explicitTarget string) {
	slot := player.abilitySlot(abilityID)
	if slot == nil || slot.Cooldown > 0 {
		return
	}
	def, ok := abilities.Lookup(abilityID)
	if !ok {
		return
	}

	targetID := explicitTarget
	if targetID == "" {
		targetID = player.TargetID
	}
	if def.Heals || def.StatusOnSource {
		if targetID == "" {
			targetID = player.ID
		}
	}
	if targetID == "" {
		return
	}

	w.QueueAttack(PendingAttack{
		SourceID:  player.ID,
		TargetID:  targetID,
		AbilityID: abilityID,
		Rank:      slot.Rank,
	})
}

// useItem consumes a potion from the backpack. Non-consumables are
// ignored.
func (w *World) useItem(player *PlayerState, itemID string) {
	item, ok := player.Backpack.Find(itemID)
	if !ok || item.Kind != items.KindPotion {
		return
	}
	if item.HealAmount > 0 && player.Health >= player.MaxHealth() &&
		(item.ManaAmount <= 0 || player.Mana >= player.MaxMana()) {
		return
	}
	player.Backpack.Remove(itemID)
	if item.HealAmount > 0 {
		w.ApplyHeal(player.ID, item.HealAmount)
	}
	if item.ManaAmount > 0 {
		player.Mana += item.ManaAmount
		if max := player.MaxMana(); player.Mana > max {
			player.Mana = max
		}
	}
}

// equipItem moves a backpack item into its slot, returning the
// displaced piece to the backpack. The swap aborts when the backpack
// cannot absorb the displaced piece.
func (w *World) equipItem(player *PlayerState, itemID string) {
	item, ok := player.Backpack.Find(itemID)
	if !ok || !item.IsGear() {
		return
	}
	player.Backpack.Remove(itemID)
	if prev, worn := player.Equipment[item.Slot]; worn {
		if err := player.Backpack.Add(prev); err != nil {
			player.Backpack.Add(item)
			return
		}
		player.Stats.Remove(prev.StatKey())
	}
	player.Equipment[item.Slot] = item
	player.Stats.Set(item.StatKey(), item.Bonuses)
	w.refreshSetBonuses(player)
	w.clampPools(player)
}

// unequipSlot returns the equipped item to the backpack when space
// allows.
func (w *World) unequipSlot(player *PlayerState, slot items.Slot) {
	item, ok := player.Equipment[slot]
	if !ok {
		return
	}
	if err := player.Backpack.Add(item); err != nil {
		return
	}
	delete(player.Equipment, slot)
	player.Stats.Remove(item.StatKey())
	w.refreshSetBonuses(player)
	w.clampPools(player)
}

// refreshSetBonuses recomputes every set-threshold bonus from the
// currently equipped pieces.
func (w *World) refreshSetBonuses(player *PlayerState) {
	counts := items.CountEquippedSets(player.Equipment)
	for setID, def := range items.SetCatalog {
		key := items.SetStatKey(setID)
		delta := items.SetBonusDelta(def, counts[setID])
		if delta.IsZero() {
			player.Stats.Remove(key)
			continue
		}
		player.Stats.Set(key, delta)
	}
}

// clampPools pulls health and mana down to their ceilings after gear
// changes shrink the maximums.
func (w *World) clampPools(player *PlayerState) {
	if max := player.MaxHealth(); player.Health > max {
		player.Health = max
	}
	if max := player.MaxMana(); player.Mana > max {
		player.Mana = max
	}
}

func (w *World) openNearestChest(player *PlayerState) {
	for id, chest := range w.chests {
		if chest.Opened || chest.RoomID != player.RoomID {
			continue
		}
		if distance(player.X, player.Y, chest.X, chest.Y) <= chestOpenRadius {
			w.openChest(player, id)
			return
		}
	}
}
