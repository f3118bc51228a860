package status

import (
	"testing"
	"time"

	"deepfall/server/stats"
)

func TestApplyRefreshesDurationAndStacksToCap(t *testing.T) {
	t.Parallel()

	set := NewSet(nil)
	inst := set.Apply(EffectBurning, "caster-1")
	if inst == nil || inst.Stacks != 1 {
		t.Fatalf("first application: %+v", inst)
	}

	set.Advance(2 * time.Second)
	for i := 0; i < 10; i++ {
		inst = set.Apply(EffectBurning, "caster-1")
	}
	if inst.Stacks != 5 {
		t.Fatalf("stacks not capped at 5: %d", inst.Stacks)
	}
	if inst.Remaining != burningDuration {
		t.Fatalf("re-application did not refresh duration: %v", inst.Remaining)
	}
}

func TestAdvanceExpiresEffects(t *testing.T) {
	t.Parallel()

	set := NewSet(nil)
	set.Apply(EffectStunned, "enemy-1")
	if !set.Stunned() {
		t.Fatalf("stun not active after apply")
	}

	result := set.Advance(stunDuration + time.Millisecond)
	if len(result.Expired) != 1 || result.Expired[0] != EffectStunned {
		t.Fatalf("expected stun expiry, got %+v", result.Expired)
	}
	if set.Stunned() || set.Has(EffectStunned) {
		t.Fatalf("stun lingered after expiry")
	}
}

func TestAdvanceEmitsPeriodicTicks(t *testing.T) {
	t.Parallel()

	set := NewSet(nil)
	set.Apply(EffectBurning, "caster-1")
	set.Apply(EffectBurning, "caster-1") // 2 stacks

	result := set.Advance(burningTickInterval)
	if len(result.Ticks) != 1 {
		t.Fatalf("expected one tick, got %d", len(result.Ticks))
	}
	tick := result.Ticks[0]
	if tick.Damage != burningTickDamage*2 {
		t.Fatalf("tick damage should scale with stacks: %v", tick.Damage)
	}
	if tick.SourceID != "caster-1" {
		t.Fatalf("tick source mismatch: %s", tick.SourceID)
	}
}

func TestStatDeltaScalesWithStacks(t *testing.T) {
	t.Parallel()

	set := NewSet(nil)
	set.Apply(EffectEmboldened, "self")
	set.Apply(EffectEmboldened, "self")

	delta := set.StatDelta()
	if delta.Derived[stats.DerivedAttackPower] != 12 {
		t.Fatalf("expected 12 attack power from two stacks, got %v", delta.Derived[stats.DerivedAttackPower])
	}
}

func TestRemoveClearsEffect(t *testing.T) {
	t.Parallel()

	set := NewSet(nil)
	set.Apply(EffectBlinded, "enemy-2")
	if !set.Blinded() {
		t.Fatalf("blind not active")
	}
	if !set.Remove(EffectBlinded) {
		t.Fatalf("remove reported missing effect")
	}
	if set.Blinded() {
		t.Fatalf("blind survived removal")
	}
}
