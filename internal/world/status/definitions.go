package status

import (
	"time"

	"deepfall/server/stats"
)

const (
	burningDuration     = 4 * time.Second
	burningTickInterval = 500 * time.Millisecond
	burningTickDamage   = 3.0

	stunDuration  = 1500 * time.Millisecond
	blindDuration = 3 * time.Second
)

// DefaultDefinitions returns the stock effect registry.
func DefaultDefinitions() map[EffectID]*Definition {
	defs := []*Definition{
		{
			ID:                 EffectBurning,
			Name:               "Burning",
			IsDebuff:           true,
			Duration:           burningDuration,
			MaxStacks:          5,
			TickInterval:       burningTickInterval,
			TickDamagePerStack: burningTickDamage,
		},
		{
			ID:        EffectStunned,
			Name:      "Stunned",
			IsDebuff:  true,
			Duration:  stunDuration,
			MaxStacks: 1,
			Stuns:     true,
		},
		{
			ID:        EffectBlinded,
			Name:      "Blinded",
			IsDebuff:  true,
			Duration:  blindDuration,
			MaxStacks: 1,
			Blinds:    true,
		},
		{
			ID:        EffectChilled,
			Name:      "Chilled",
			IsDebuff:  true,
			Duration:  5 * time.Second,
			MaxStacks: 3,
			PerStack:  derivedDelta(stats.DerivedHaste, -0.1),
		},
		{
			ID:        EffectEmboldened,
			Name:      "Emboldened",
			Duration:  8 * time.Second,
			MaxStacks: 3,
			PerStack:  derivedDelta(stats.DerivedAttackPower, 6),
		},
		{
			ID:        EffectCursed,
			Name:      "Cursed",
			IsDebuff:  true,
			Duration:  10 * time.Second,
			MaxStacks: 1,
			PerStack:  derivedDelta(stats.DerivedArmor, -8),
		},
		{
			ID:        EffectBlessed,
			Name:      "Blessed",
			Duration:  10 * time.Second,
			MaxStacks: 1,
			PerStack:  derivedDelta(stats.DerivedResist, 10),
		},
	}
	m := make(map[EffectID]*Definition, len(defs))
	for _, def := range defs {
		m[def.ID] = def
	}
	return m
}

func derivedDelta(id stats.DerivedID, value float64) stats.Delta {
	var delta stats.Delta
	delta.Derived[id] = value
	return delta
}
