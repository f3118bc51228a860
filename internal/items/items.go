package items

import (
	"fmt"

	"deepfall/server/stats"
)

// Rarity grades equipment and potions for loot rolls and vendor pricing.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Rank orders rarities from common (0) upward. Unknown rarities rank as
// common so malformed data never elevates a drop.
func (r Rarity) Rank() int {
	switch r {
	case RarityUncommon:
		return 1
	case RarityRare:
		return 2
	case RarityEpic:
		return 3
	case RarityLegendary:
		return 4
	default:
		return 0
	}
}

// RarityByRank is the inverse of Rarity.Rank, clamped at both ends.
func RarityByRank(rank int) Rarity {
	switch {
	case rank <= 0:
		return RarityCommon
	case rank == 1:
		return RarityUncommon
	case rank == 2:
		return RarityRare
	case rank == 3:
		return RarityEpic
	default:
		return RarityLegendary
	}
}

// Slot identifies where a piece of equipment is worn. One item per slot.
type Slot string

const (
	SlotHead    Slot = "head"
	SlotChest   Slot = "chest"
	SlotLegs    Slot = "legs"
	SlotHands   Slot = "hands"
	SlotFeet    Slot = "feet"
	SlotWeapon  Slot = "weapon"
	SlotOffhand Slot = "offhand"
	SlotAmulet  Slot = "amulet"
	SlotRing    Slot = "ring"
)

// Slots lists every equipment slot in a stable order.
var Slots = []Slot{
	SlotHead, SlotChest, SlotLegs, SlotHands, SlotFeet,
	SlotWeapon, SlotOffhand, SlotAmulet, SlotRing,
}

// Kind separates gear from consumables and cosmetics in the backpack.
type Kind string

const (
	KindGear     Kind = "gear"
	KindPotion   Kind = "potion"
	KindCosmetic Kind = "cosmetic"
)

// Item is one concrete drop instance. Gear carries a slot and stat
// bonuses; potions carry restore amounts; cosmetics carry neither.
type Item struct {
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Name    string      `json:"name"`
	Kind    Kind        `json:"kind"`
	Slot    Slot        `json:"slot,omitempty"`
	Rarity  Rarity      `json:"rarity"`
	SetID   string      `json:"setId,omitempty"`
	Power   float64     `json:"power"`
	Bonuses stats.Delta `json:"bonuses"`

	HealAmount float64 `json:"healAmount,omitempty"`
	ManaAmount float64 `json:"manaAmount,omitempty"`
}

// IsGear reports whether the item occupies an equipment slot.
func (it Item) IsGear() bool {
	return it.Kind == KindGear && it.Slot != ""
}

// StatKey returns the stats source key used when the item is equipped.
func (it Item) StatKey() stats.SourceKey {
	return stats.SourceKey{Layer: stats.LayerEquipment, ID: it.ID}
}

// BackpackCapacity bounds the ordered backpack list.
const BackpackCapacity = 24

// Backpack is a bounded ordered list of carried items.
type Backpack struct {
	Items []Item `json:"items"`
}

// ErrBackpackFull signals that Add was called at capacity.
var ErrBackpackFull = fmt.Errorf("backpack full")

// Add appends the item, preserving order, or fails at capacity.
func (b *Backpack) Add(item Item) error {
	if b == nil {
		return fmt.Errorf("nil backpack")
	}
	if len(b.Items) >= BackpackCapacity {
		return ErrBackpackFull
	}
	b.Items = append(b.Items, item)
	return nil
}

// Remove extracts the item with the given id, preserving order.
func (b *Backpack) Remove(itemID string) (Item, bool) {
	if b == nil {
		return Item{}, false
	}
	for i, it := range b.Items {
		if it.ID == itemID {
			b.Items = append(b.Items[:i], b.Items[i+1:]...)
			return it, true
		}
	}
	return Item{}, false
}

// Find returns the item with the given id without removing it.
func (b *Backpack) Find(itemID string) (Item, bool) {
	if b == nil {
		return Item{}, false
	}
	for _, it := range b.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return Item{}, false
}
