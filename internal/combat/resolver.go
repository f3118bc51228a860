// Package combat resolves queued attacks against live world state:
// validation, magnitude, crit, mitigation, lifesteal, and on-hit
// status application.
package combat

import (
	"math"
	"time"

	"deepfall/server/internal/abilities"
	"deepfall/server/internal/world"
	"deepfall/server/internal/world/status"
	"deepfall/server/stats"
)

const (
	critMultiplier = 1.5
	minDamage      = 1.0
)

// Event reports one resolved attack for journals and client broadcast.
type Event struct {
	SourceID  string       `json:"sourceId"`
	TargetID  string       `json:"targetId"`
	AbilityID abilities.ID `json:"abilityId"`
	Damage    float64      `json:"damage,omitempty"`
	Heal      float64      `json:"heal,omitempty"`
	Crit      bool         `json:"crit,omitempty"`
	Killed    bool         `json:"killed,omitempty"`
	Opener    bool         `json:"opener,omitempty"`
}

// Resolve runs one pending attack against the world. Attacks whose
// preconditions no longer hold resolve to nothing: stale queue entries
// from earlier in the tick are dropped, not errors. The boolean
// reports whether anything happened.
func Resolve(w *world.World, attack world.PendingAttack) (Event, bool) {
	def, ok := abilities.Lookup(attack.AbilityID)
	if !ok {
		return Event{}, false
	}
	source, _ := w.FindActor(attack.SourceID)
	if source == nil || !source.Alive || source.Status.Stunned() || source.Status.Blinded() {
		return Event{}, false
	}
	target, _ := w.FindActor(attack.TargetID)
	if target == nil || !target.Alive || target.RoomID != source.RoomID {
		return Event{}, false
	}
	// A hidden ambusher cannot be attacked before its reveal fires.
	if enemy, ok := w.Enemy(attack.TargetID); ok && enemy.Hidden {
		return Event{}, false
	}

	if attack.SourceID != attack.TargetID {
		reach := def.Range
		if reach <= 0 {
			reach = abilities.MeleeRange
		}
		if actorDistance(source, target) > reach {
			return Event{}, false
		}
	}

	// Player casts pay mana and start cooldowns here; intent validation
	// only checked the cooldown, so a cast that raced with a drain this
	// tick still charges exactly once.
	if player, ok := w.Player(attack.SourceID); ok {
		slot := player.AbilitySlot(attack.AbilityID)
		if slot == nil || slot.Cooldown > 0 {
			return Event{}, false
		}
		if !source.SpendMana(def.ManaCost) {
			return Event{}, false
		}
		slot.Cooldown = hastedCooldown(def.Cooldown, source)
	}

	event := Event{SourceID: attack.SourceID, TargetID: attack.TargetID, AbilityID: attack.AbilityID}

	attackPower := source.Stats.GetDerived(stats.DerivedAttackPower)
	spellPower := source.Stats.GetDerived(stats.DerivedSpellPower)
	magnitude := (def.Base + def.AttackWeight*attackPower + def.SpellWeight*spellPower) *
		abilities.RankMultiplier(attack.Rank)

	if def.Heals {
		event.Heal = w.ApplyHeal(attack.TargetID, magnitude)
		applyOnHitStatus(w, def, attack)
		return event, true
	}

	if magnitude > 0 {
		crit := w.RandomFloat() < source.Stats.GetDerived(stats.DerivedCritChance)
		// Stealth attacks against a target locked elsewhere always open
		// with a crit.
		if def.Stealth && target.TargetID != attack.SourceID {
			crit = true
			event.Opener = true
		}
		if crit {
			magnitude *= critMultiplier
			event.Crit = true
		}

		event.Damage = w.ApplyDamage(attack.TargetID, attack.SourceID, mitigate(magnitude, def, target))
		event.Killed = !target.Alive

		if lifesteal := source.Stats.GetDerived(stats.DerivedLifesteal); lifesteal > 0 && event.Damage > 0 {
			w.ApplyHeal(attack.SourceID, event.Damage*lifesteal)
		}
	}

	applyOnHitStatus(w, def, attack)
	return event, true
}

// mitigate applies the diminishing-returns reduction: armor against
// physical hits, resist against spells. A landed hit always deals at
// least one point.
func mitigate(raw float64, def abilities.Definition, target *world.ActorCore) float64 {
	defense := target.Stats.GetDerived(stats.DerivedArmor)
	if def.SpellWeight > def.AttackWeight {
		defense = target.Stats.GetDerived(stats.DerivedResist)
	}
	if defense < 0 {
		defense = 0
	}
	mitigated := raw * 100 / (100 + defense)
	if mitigated < minDamage {
		mitigated = minDamage
	}
	return mitigated
}

func applyOnHitStatus(w *world.World, def abilities.Definition, attack world.PendingAttack) {
	if def.StatusID == "" {
		return
	}
	targetID := attack.TargetID
	if def.StatusOnSource {
		targetID = attack.SourceID
	}
	w.ApplyStatus(targetID, status.EffectID(def.StatusID), attack.SourceID)
}

func hastedCooldown(base time.Duration, source *world.ActorCore) time.Duration {
	haste := source.Stats.GetDerived(stats.DerivedHaste)
	if haste <= 1 {
		return base
	}
	return time.Duration(float64(base) / haste)
}

func actorDistance(a, b *world.ActorCore) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
