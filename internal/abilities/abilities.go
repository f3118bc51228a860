// Package abilities defines the ability catalog shared by combat
// resolution, loot drops, and player loadouts.
package abilities

import "time"

// ID identifies one ability in the catalog.
type ID string

const (
	AbilityStrike    ID = "strike"
	AbilityCleave    ID = "cleave"
	AbilityFirebolt  ID = "firebolt"
	AbilityIgnite    ID = "ignite"
	AbilityFrostbind ID = "frostbind"
	AbilityMend      ID = "mend"
	AbilityShadowcut ID = "shadowcut"
	AbilityWarcry    ID = "warcry"
)

// Definition captures the static tuning for one ability. Magnitude is
// linear: Base + AttackWeight*attackPower + SpellWeight*spellPower,
// scaled by rank afterwards.
type Definition struct {
	ID           ID
	Name         string
	Base         float64
	AttackWeight float64
	SpellWeight  float64
	Heals        bool
	ManaCost     float64
	Cooldown     time.Duration
	Range        float64
	// StatusID names the buff or debuff applied on hit, empty for none.
	// StatusOnSource applies it to the caster instead of the target.
	StatusID       string
	StatusOnSource bool
	// Stealth marks attacks that count as stealth openers for bonus
	// positioning rules on hidden targets.
	Stealth bool
}

// MeleeRange is the reference melee reach; ranged abilities use their
// own Range. Target checks treat 0 as melee.
const MeleeRange = 1.6

var catalog = buildCatalog()

func buildCatalog() map[ID]Definition {
	defs := []Definition{
		{ID: AbilityStrike, Name: "Strike", Base: 6, AttackWeight: 1.0, ManaCost: 0, Cooldown: 0, Range: MeleeRange},
		{ID: AbilityCleave, Name: "Cleave", Base: 10, AttackWeight: 1.3, ManaCost: 12, Cooldown: 6 * time.Second, Range: MeleeRange},
		{ID: AbilityFirebolt, Name: "Firebolt", Base: 8, SpellWeight: 1.2, ManaCost: 10, Cooldown: 2 * time.Second, Range: 7},
		{ID: AbilityIgnite, Name: "Ignite", Base: 4, SpellWeight: 0.8, ManaCost: 14, Cooldown: 8 * time.Second, Range: 7, StatusID: "burning"},
		{ID: AbilityFrostbind, Name: "Frostbind", Base: 5, SpellWeight: 0.9, ManaCost: 16, Cooldown: 10 * time.Second, Range: 6, StatusID: "stunned"},
		{ID: AbilityMend, Name: "Mend", Base: 18, SpellWeight: 1.1, Heals: true, ManaCost: 18, Cooldown: 5 * time.Second, Range: 8},
		{ID: AbilityShadowcut, Name: "Shadowcut", Base: 9, AttackWeight: 1.4, ManaCost: 15, Cooldown: 9 * time.Second, Range: MeleeRange, Stealth: true},
		{ID: AbilityWarcry, Name: "Warcry", Base: 0, ManaCost: 20, Cooldown: 15 * time.Second, Range: MeleeRange, StatusID: "emboldened", StatusOnSource: true},
	}
	m := make(map[ID]Definition, len(defs))
	for _, def := range defs {
		m[def.ID] = def
	}
	return m
}

// Lookup returns the definition for an ability id.
func Lookup(id ID) (Definition, bool) {
	def, ok := catalog[id]
	return def, ok
}

// All returns every ability id in a stable order.
func All() []ID {
	return []ID{
		AbilityStrike, AbilityCleave, AbilityFirebolt, AbilityIgnite,
		AbilityFrostbind, AbilityMend, AbilityShadowcut, AbilityWarcry,
	}
}

// RankMultiplier scales magnitude by +15% per rank above 1, additively.
func RankMultiplier(rank int) float64 {
	if rank < 1 {
		rank = 1
	}
	return 1 + 0.15*float64(rank-1)
}
