// Package progression owns the XP curve, level-up bonuses, and the
// difficulty multipliers applied per floor and per party size.
package progression

import (
	"math"

	"deepfall/server/stats"
)

const (
	xpBase     = 100.0
	xpExponent = 1.5

	floorHealthGrowth = 1.15
	floorDamageGrowth = 1.08
	floorLootGrowth   = 1.12
	floorGoldGrowth   = 1.1

	// MaxAbilityRank caps per-ability upgrades.
	MaxAbilityRank = 10

	fallbackTokenChance = 0.25
)

// Per-level bonuses applied to derived stats on level-up.
const (
	levelHealthBonus = 20.0
	levelManaBonus   = 10.0
	levelAttackBonus = 3.0
	levelSpellBonus  = 3.0
	levelArmorBonus  = 1.0
	levelResistBonus = 1.0
)

// XPForLevel returns the XP threshold to advance past level n.
func XPForLevel(n int) int {
	if n < 1 {
		return 0
	}
	return int(math.Floor(xpBase * math.Pow(float64(n), xpExponent)))
}

// AwardResult reports the outcome of one XP award.
type AwardResult struct {
	Level        int
	XP           int
	XPToNext     int
	LevelsGained int
}

// AwardXP applies an XP amount to the given level state. Awards large
// enough to cross several thresholds level up repeatedly; each level
// consumes its own threshold before the next is checked.
func AwardXP(level, xp, xpToNext, amount int) AwardResult {
	if level < 1 {
		level = 1
	}
	if xpToNext <= 0 {
		xpToNext = XPForLevel(level + 1)
	}
	if amount > 0 {
		xp += amount
	}
	gained := 0
	for xp >= xpToNext {
		xp -= xpToNext
		level++
		gained++
		xpToNext = XPForLevel(level + 1)
	}
	return AwardResult{Level: level, XP: xp, XPToNext: xpToNext, LevelsGained: gained}
}

// LevelBonus returns the fixed derived-stat delta granted per level
// gained. Callers register it under the progression stats layer.
func LevelBonus(levels int) stats.Delta {
	var delta stats.Delta
	if levels <= 0 {
		return delta
	}
	n := float64(levels)
	delta.Derived[stats.DerivedMaxHealth] = levelHealthBonus * n
	delta.Derived[stats.DerivedMaxMana] = levelManaBonus * n
	delta.Derived[stats.DerivedAttackPower] = levelAttackBonus * n
	delta.Derived[stats.DerivedSpellPower] = levelSpellBonus * n
	delta.Derived[stats.DerivedArmor] = levelArmorBonus * n
	delta.Derived[stats.DerivedResist] = levelResistBonus * n
	return delta
}

// FloorScaling reports the multipliers applied to enemy base stats and
// loot value on the given floor. Floor 1 is the baseline.
type FloorScaling struct {
	Health float64
	Damage float64
	Loot   float64
}

// ScalingForFloor computes the compounding per-floor multipliers.
func ScalingForFloor(floor int) FloorScaling {
	if floor < 1 {
		floor = 1
	}
	exp := float64(floor - 1)
	return FloorScaling{
		Health: math.Pow(floorHealthGrowth, exp),
		Damage: math.Pow(floorDamageGrowth, exp),
		Loot:   math.Pow(floorLootGrowth, exp),
	}
}

// PartyScaling reports the multipliers applied to enemies when more
// than one player shares a run. Item power above the baseline adds a
// capped bonus on top of the per-player terms.
type PartyScaling struct {
	Health float64
	Damage float64
}

const (
	partyHealthPerPlayer = 0.5
	partyDamagePerPlayer = 0.3
	partyHealthGearCap   = 0.5
	partyDamageGearCap   = 0.25
	gearPowerBaseline    = 10.0
	gearPowerCeiling     = 40.0
)

// ScalingForParty computes enemy multipliers for a party. avgItemPower
// is the mean power of the party's equipped items.
func ScalingForParty(playerCount int, avgItemPower float64) PartyScaling {
	extra := float64(playerCount - 1)
	if extra < 0 {
		extra = 0
	}
	gearRatio := (avgItemPower - gearPowerBaseline) / (gearPowerCeiling - gearPowerBaseline)
	if gearRatio < 0 {
		gearRatio = 0
	}
	if gearRatio > 1 {
		gearRatio = 1
	}
	return PartyScaling{
		Health: 1 + extra*partyHealthPerPlayer + gearRatio*partyHealthGearCap,
		Damage: 1 + extra*partyDamagePerPlayer + gearRatio*partyDamageGearCap,
	}
}

// CanUpgradeRank gates ability rank-ups by floor progress: rank r may
// become r+1 only once the player has reached floor r+1.
func CanUpgradeRank(rank, floor int) bool {
	if rank < 1 || rank >= MaxAbilityRank {
		return false
	}
	return floor >= rank+1
}

// FallbackReward is granted when a rank-up cannot occur.
type FallbackReward struct {
	Gold        int
	RerollToken bool
}

// RankUpFallback computes the deterministic consolation reward: floor-
// scaled gold plus a chance-based reroll token. roll is a [0,1) sample
// from the world RNG so replays reproduce the token grant.
func RankUpFallback(baseGold, floor int, roll float64) FallbackReward {
	if floor < 1 {
		floor = 1
	}
	gold := int(math.Floor(float64(baseGold) * math.Pow(floorGoldGrowth, float64(floor-1))))
	return FallbackReward{Gold: gold, RerollToken: roll < fallbackTokenChance}
}
