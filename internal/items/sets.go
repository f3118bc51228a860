package items

import (
	"fmt"

	"deepfall/server/stats"
)

// Set-bonus thresholds: equipping 2/3/4/5 pieces sharing a set id
// unlocks cumulative bonuses.
var setThresholds = []int{2, 3, 4, 5}

// SetDefinition describes the cumulative bonus granted per threshold.
type SetDefinition struct {
	ID        string
	Name      string
	Threshold map[int]stats.Delta
}

// CountEquippedSets tallies equipped pieces per set id.
func CountEquippedSets(equipment map[Slot]Item) map[string]int {
	counts := make(map[string]int)
	for _, it := range equipment {
		if it.SetID != "" {
			counts[it.SetID]++
		}
	}
	return counts
}

// SetBonusDelta sums every unlocked threshold bonus for the given piece
// count. Bonuses are cumulative: four pieces grant the 2, 3, and 4
// thresholds together.
func SetBonusDelta(def SetDefinition, pieces int) stats.Delta {
	var total stats.Delta
	for _, threshold := range setThresholds {
		if pieces < threshold {
			break
		}
		bonus, ok := def.Threshold[threshold]
		if !ok {
			continue
		}
		for i := stats.StatID(0); i < stats.StatCount; i++ {
			total.Stats[i] += bonus.Stats[i]
		}
		for i := stats.DerivedID(0); i < stats.DerivedCount; i++ {
			total.Derived[i] += bonus.Derived[i]
		}
	}
	return total
}

// SetStatKey returns the stats source key carrying a set's active bonus.
func SetStatKey(setID string) stats.SourceKey {
	return stats.SourceKey{Layer: stats.LayerEquipment, ID: fmt.Sprintf("set:%s", setID)}
}

// SetCatalog lists the known equipment sets.
var SetCatalog = buildSetCatalog()

func buildSetCatalog() map[string]SetDefinition {
	defs := []SetDefinition{
		{
			ID:   "emberplate",
			Name: "Emberplate",
			Threshold: map[int]stats.Delta{
				2: derivedDelta(stats.DerivedArmor, 10),
				3: derivedDelta(stats.DerivedMaxHealth, 60),
				4: derivedDelta(stats.DerivedAttackPower, 18),
				5: derivedDelta(stats.DerivedLifesteal, 0.05),
			},
		},
		{
			ID:   "nightglass",
			Name: "Nightglass",
			Threshold: map[int]stats.Delta{
				2: derivedDelta(stats.DerivedCritChance, 0.04),
				3: derivedDelta(stats.DerivedHaste, 0.1),
				4: derivedDelta(stats.DerivedSpellPower, 24),
				5: derivedDelta(stats.DerivedCritChance, 0.06),
			},
		},
	}
	catalog := make(map[string]SetDefinition, len(defs))
	for _, def := range defs {
		catalog[def.ID] = def
	}
	return catalog
}

func derivedDelta(id stats.DerivedID, value float64) stats.Delta {
	var delta stats.Delta
	delta.Derived[id] = value
	return delta
}
