// Package status tracks timed stat modifiers (buffs and debuffs) on a
// combatant: durations, stack counts, periodic damage, and the control
// flags combat consults before resolving an attack.
package status

import (
	"time"

	"deepfall/server/stats"
)

// EffectID identifies one buff or debuff definition.
type EffectID string

const (
	EffectBurning    EffectID = "burning"
	EffectStunned    EffectID = "stunned"
	EffectBlinded    EffectID = "blinded"
	EffectChilled    EffectID = "chilled"
	EffectEmboldened EffectID = "emboldened"
	EffectCursed     EffectID = "cursed"
	EffectBlessed    EffectID = "blessed"
)

// Definition is the static tuning for one effect type.
type Definition struct {
	ID       EffectID
	Name     string
	IsDebuff bool
	Duration time.Duration
	// MaxStacks caps stack growth on re-application; 1 for unstackable.
	MaxStacks int
	// PerStack is the stat delta contributed by each active stack.
	PerStack stats.Delta
	// Stuns and Blinds gate attack resolution while the effect is active.
	Stuns  bool
	Blinds bool
	// TickInterval spaces periodic damage; zero disables ticking.
	TickInterval       time.Duration
	TickDamagePerStack float64
}

// Instance is one live effect on a combatant.
type Instance struct {
	Definition  *Definition
	SourceID    string
	Stacks      int
	Remaining   time.Duration
	MaxDuration time.Duration
	untilTick   time.Duration
}

// Tick reports one periodic-damage pulse produced by Advance.
type Tick struct {
	Effect   EffectID
	SourceID string
	Damage   float64
}

// AdvanceResult summarizes one frame of effect decay.
type AdvanceResult struct {
	Expired []EffectID
	Ticks   []Tick
}

// Set owns the live effects for one combatant.
type Set struct {
	defs    map[EffectID]*Definition
	effects map[EffectID]*Instance
}

// NewSet builds an empty effect set over the given definitions.
func NewSet(defs map[EffectID]*Definition) *Set {
	if defs == nil {
		defs = DefaultDefinitions()
	}
	return &Set{defs: defs, effects: make(map[EffectID]*Instance)}
}

// Apply adds or refreshes an effect. Re-application resets the duration
// to the definition's maximum and grows the stack count up to the cap.
func (s *Set) Apply(id EffectID, sourceID string) *Instance {
	if s == nil {
		return nil
	}
	def, ok := s.defs[id]
	if !ok || def == nil || def.Duration <= 0 {
		return nil
	}
	inst, exists := s.effects[id]
	if !exists {
		inst = &Instance{
			Definition:  def,
			SourceID:    sourceID,
			Stacks:      1,
			Remaining:   def.Duration,
			MaxDuration: def.Duration,
			untilTick:   def.TickInterval,
		}
		s.effects[id] = inst
		return inst
	}
	inst.SourceID = sourceID
	inst.Remaining = def.Duration
	limit := def.MaxStacks
	if limit < 1 {
		limit = 1
	}
	if inst.Stacks < limit {
		inst.Stacks++
	}
	return inst
}

// Remove drops an effect immediately.
func (s *Set) Remove(id EffectID) bool {
	if s == nil {
		return false
	}
	if _, ok := s.effects[id]; !ok {
		return false
	}
	delete(s.effects, id)
	return true
}

// Advance decays every effect by dt, emitting periodic-damage ticks and
// removing effects whose duration reached zero.
func (s *Set) Advance(dt time.Duration) AdvanceResult {
	var result AdvanceResult
	if s == nil || dt <= 0 {
		return result
	}
	for id, inst := range s.effects {
		def := inst.Definition
		if def.TickInterval > 0 {
			inst.untilTick -= dt
			for inst.untilTick <= 0 {
				result.Ticks = append(result.Ticks, Tick{
					Effect:   id,
					SourceID: inst.SourceID,
					Damage:   def.TickDamagePerStack * float64(inst.Stacks),
				})
				inst.untilTick += def.TickInterval
			}
		}
		inst.Remaining -= dt
		if inst.Remaining <= 0 {
			delete(s.effects, id)
			result.Expired = append(result.Expired, id)
		}
	}
	return result
}

// Has reports whether the effect is currently active.
func (s *Set) Has(id EffectID) bool {
	if s == nil {
		return false
	}
	_, ok := s.effects[id]
	return ok
}

// Stacks returns the live stack count for an effect, zero when absent.
func (s *Set) Stacks(id EffectID) int {
	if s == nil {
		return 0
	}
	inst, ok := s.effects[id]
	if !ok {
		return 0
	}
	return inst.Stacks
}

// Stunned reports whether any active effect stuns the combatant.
func (s *Set) Stunned() bool {
	return s.anyFlag(func(def *Definition) bool { return def.Stuns })
}

// Blinded reports whether any active effect blinds the combatant.
func (s *Set) Blinded() bool {
	return s.anyFlag(func(def *Definition) bool { return def.Blinds })
}

func (s *Set) anyFlag(match func(*Definition) bool) bool {
	if s == nil {
		return false
	}
	for _, inst := range s.effects {
		if match(inst.Definition) {
			return true
		}
	}
	return false
}

// StatDelta sums every active effect's per-stack contribution.
func (s *Set) StatDelta() stats.Delta {
	var total stats.Delta
	if s == nil {
		return total
	}
	for _, inst := range s.effects {
		per := inst.Definition.PerStack
		n := float64(inst.Stacks)
		for i := stats.StatID(0); i < stats.StatCount; i++ {
			total.Stats[i] += per.Stats[i] * n
		}
		for i := stats.DerivedID(0); i < stats.DerivedCount; i++ {
			total.Derived[i] += per.Derived[i] * n
		}
	}
	return total
}

// Active returns the live instances in undefined order.
func (s *Set) Active() []*Instance {
	if s == nil {
		return nil
	}
	out := make([]*Instance, 0, len(s.effects))
	for _, inst := range s.effects {
		out = append(out, inst)
	}
	return out
}
