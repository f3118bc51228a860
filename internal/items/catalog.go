package items

import (
	"fmt"

	"deepfall/server/stats"
)

// GearTemplate is the catalog entry a loot roll instantiates. Bonus
// values are per point of item power; rarity sets the power budget.
type GearTemplate struct {
	Type    string
	Name    string
	Slot    Slot
	SetID   string
	Primary stats.DerivedID
}

// PotionTemplate describes a consumable restore.
type PotionTemplate struct {
	Type string
	Name string
	Heal float64
	Mana float64
}

var gearCatalog = []GearTemplate{
	{Type: "ember_helm", Name: "Ember Helm", Slot: SlotHead, SetID: "emberplate", Primary: stats.DerivedArmor},
	{Type: "ember_cuirass", Name: "Ember Cuirass", Slot: SlotChest, SetID: "emberplate", Primary: stats.DerivedMaxHealth},
	{Type: "ember_greaves", Name: "Ember Greaves", Slot: SlotLegs, SetID: "emberplate", Primary: stats.DerivedArmor},
	{Type: "ember_gauntlets", Name: "Ember Gauntlets", Slot: SlotHands, SetID: "emberplate", Primary: stats.DerivedAttackPower},
	{Type: "ember_sabatons", Name: "Ember Sabatons", Slot: SlotFeet, SetID: "emberplate", Primary: stats.DerivedMaxHealth},
	{Type: "nightglass_hood", Name: "Nightglass Hood", Slot: SlotHead, SetID: "nightglass", Primary: stats.DerivedSpellPower},
	{Type: "nightglass_robe", Name: "Nightglass Robe", Slot: SlotChest, SetID: "nightglass", Primary: stats.DerivedMaxMana},
	{Type: "nightglass_band", Name: "Nightglass Band", Slot: SlotRing, SetID: "nightglass", Primary: stats.DerivedCritChance},
	{Type: "cleaver", Name: "Riveted Cleaver", Slot: SlotWeapon, Primary: stats.DerivedAttackPower},
	{Type: "ashwood_staff", Name: "Ashwood Staff", Slot: SlotWeapon, Primary: stats.DerivedSpellPower},
	{Type: "tower_shield", Name: "Tower Shield", Slot: SlotOffhand, Primary: stats.DerivedArmor},
	{Type: "warding_amulet", Name: "Warding Amulet", Slot: SlotAmulet, Primary: stats.DerivedResist},
	{Type: "drake_signet", Name: "Drake Signet", Slot: SlotRing, Primary: stats.DerivedCritChance},
	{Type: "fleet_boots", Name: "Fleet Boots", Slot: SlotFeet, Primary: stats.DerivedHaste},
}

var potionCatalog = []PotionTemplate{
	{Type: "health_potion", Name: "Health Potion", Heal: 50},
	{Type: "greater_health_potion", Name: "Greater Health Potion", Heal: 120},
	{Type: "mana_potion", Name: "Mana Potion", Mana: 40},
	{Type: "elixir_of_vigor", Name: "Elixir of Vigor", Heal: 60, Mana: 30},
}

// GearTemplates returns the gear catalog in a stable order.
func GearTemplates() []GearTemplate {
	return gearCatalog
}

// PotionTemplates returns the potion catalog in a stable order.
func PotionTemplates() []PotionTemplate {
	return potionCatalog
}

// rarityPowerBudget maps rarity to the item power spent on bonuses.
func rarityPowerBudget(r Rarity) float64 {
	switch r {
	case RarityUncommon:
		return 14
	case RarityRare:
		return 20
	case RarityEpic:
		return 28
	case RarityLegendary:
		return 40
	default:
		return 10
	}
}

// InstantiateGear builds a concrete item from a template, rarity, and
// floor. Power compounds with floor so later drops stay relevant.
func InstantiateGear(id string, tpl GearTemplate, rarity Rarity, floorMult float64) Item {
	power := rarityPowerBudget(rarity) * floorMult
	var bonuses stats.Delta
	switch tpl.Primary {
	case stats.DerivedCritChance:
		bonuses.Derived[tpl.Primary] = power * 0.003
	case stats.DerivedHaste:
		bonuses.Derived[tpl.Primary] = power * 0.01
	case stats.DerivedLifesteal:
		bonuses.Derived[tpl.Primary] = power * 0.004
	default:
		bonuses.Derived[tpl.Primary] = power
	}
	return Item{
		ID:      id,
		Type:    tpl.Type,
		Name:    fmt.Sprintf("%s (%s)", tpl.Name, rarity),
		Kind:    KindGear,
		Slot:    tpl.Slot,
		Rarity:  rarity,
		SetID:   tpl.SetID,
		Power:   power,
		Bonuses: bonuses,
	}
}

// InstantiatePotion builds a concrete potion, scaling restores by floor.
func InstantiatePotion(id string, tpl PotionTemplate, rarity Rarity, floorMult float64) Item {
	return Item{
		ID:         id,
		Type:       tpl.Type,
		Name:       tpl.Name,
		Kind:       KindPotion,
		Rarity:     rarity,
		HealAmount: tpl.Heal * floorMult,
		ManaAmount: tpl.Mana * floorMult,
	}
}
