package stats

import "testing"

func TestComponentResolvesBaseAttributes(t *testing.T) {
	t.Parallel()

	comp := NewComponent(ValueSet{StatStrength: 10, StatIntellect: 5, StatEndurance: 8, StatAgility: 4})

	if got := comp.GetDerived(DerivedMaxHealth); got != baseHealthFlat+8*enduranceHealth {
		t.Fatalf("max health mismatch: %v", got)
	}
	if got := comp.GetDerived(DerivedAttackPower); got != 10*strengthAttack {
		t.Fatalf("attack power mismatch: %v", got)
	}
	if got := comp.GetDerived(DerivedSpellPower); got != 5*intellectSpell {
		t.Fatalf("spell power mismatch: %v", got)
	}
}

func TestComponentEquipmentBonusStacksAndRemoves(t *testing.T) {
	t.Parallel()

	comp := NewComponent(ValueSet{StatEndurance: 5})
	base := comp.GetDerived(DerivedMaxHealth)

	key := SourceKey{Layer: LayerEquipment, ID: "item-1"}
	var delta Delta
	delta.Derived[DerivedMaxHealth] = 25
	comp.Set(key, delta)

	if got := comp.GetDerived(DerivedMaxHealth); got != base+25 {
		t.Fatalf("expected %v after equip, got %v", base+25, got)
	}

	comp.Remove(key)
	if got := comp.GetDerived(DerivedMaxHealth); got != base {
		t.Fatalf("expected %v after unequip, got %v", base, got)
	}
}

func TestComponentRemoveLayerClearsTemporaries(t *testing.T) {
	t.Parallel()

	comp := NewComponent(ValueSet{StatStrength: 10})
	var buff Delta
	buff.Derived[DerivedAttackPower] = 12
	comp.Set(SourceKey{Layer: LayerTemporary, ID: "buff-a"}, buff)
	comp.Set(SourceKey{Layer: LayerTemporary, ID: "buff-b"}, buff)

	comp.RemoveLayer(LayerTemporary)
	if got := comp.GetDerived(DerivedAttackPower); got != 10*strengthAttack {
		t.Fatalf("temporary bonuses not cleared: %v", got)
	}
}

func TestComponentCritChanceIsCapped(t *testing.T) {
	t.Parallel()

	comp := NewComponent(ValueSet{StatAgility: 100000})
	if got := comp.GetDerived(DerivedCritChance); got != critChanceCap {
		t.Fatalf("crit chance not capped: %v", got)
	}
}

func TestComponentVersionAdvancesOnMutation(t *testing.T) {
	t.Parallel()

	comp := NewComponent(ValueSet{})
	before := comp.Version()
	var delta Delta
	delta.Stats[StatStrength] = 1
	comp.Set(SourceKey{Layer: LayerProgression, ID: "level-2"}, delta)
	if comp.Version() == before {
		t.Fatalf("version did not advance")
	}
}
