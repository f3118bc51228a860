package items

import (
	"fmt"
	"testing"

	"deepfall/server/stats"
)

func TestBackpackPreservesOrderAndBounds(t *testing.T) {
	t.Parallel()

	var pack Backpack
	for i := 0; i < BackpackCapacity; i++ {
		if err := pack.Add(Item{ID: fmt.Sprintf("item-%d", i)}); err != nil {
			t.Fatalf("add %d failed: %v", i, err)
		}
	}
	if err := pack.Add(Item{ID: "overflow"}); err != ErrBackpackFull {
		t.Fatalf("expected ErrBackpackFull, got %v", err)
	}

	removed, ok := pack.Remove("item-3")
	if !ok || removed.ID != "item-3" {
		t.Fatalf("remove returned %v %v", removed, ok)
	}
	if pack.Items[3].ID != "item-4" {
		t.Fatalf("order not preserved after remove: %s", pack.Items[3].ID)
	}
}

func TestSetBonusesAreCumulative(t *testing.T) {
	t.Parallel()

	def, ok := SetCatalog["emberplate"]
	if !ok {
		t.Fatalf("emberplate set missing from catalog")
	}

	if delta := SetBonusDelta(def, 1); !delta.IsZero() {
		t.Fatalf("single piece should grant nothing")
	}

	two := SetBonusDelta(def, 2)
	if two.Derived[stats.DerivedArmor] != 10 {
		t.Fatalf("2-piece armor bonus mismatch: %v", two.Derived[stats.DerivedArmor])
	}

	four := SetBonusDelta(def, 4)
	if four.Derived[stats.DerivedArmor] != 10 ||
		four.Derived[stats.DerivedMaxHealth] != 60 ||
		four.Derived[stats.DerivedAttackPower] != 18 {
		t.Fatalf("4-piece bonus not cumulative: %+v", four)
	}
	if four.Derived[stats.DerivedLifesteal] != 0 {
		t.Fatalf("5-piece bonus leaked into 4-piece count")
	}
}

func TestCountEquippedSets(t *testing.T) {
	t.Parallel()

	equipment := map[Slot]Item{
		SlotHead:   {ID: "a", SetID: "emberplate"},
		SlotChest:  {ID: "b", SetID: "emberplate"},
		SlotWeapon: {ID: "c"},
		SlotRing:   {ID: "d", SetID: "nightglass"},
	}
	counts := CountEquippedSets(equipment)
	if counts["emberplate"] != 2 || counts["nightglass"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestInstantiateGearScalesWithRarityAndFloor(t *testing.T) {
	t.Parallel()

	tpl := GearTemplate{Type: "cleaver", Name: "Riveted Cleaver", Slot: SlotWeapon, Primary: stats.DerivedAttackPower}

	common := InstantiateGear("i1", tpl, RarityCommon, 1)
	epic := InstantiateGear("i2", tpl, RarityEpic, 1)
	if epic.Power <= common.Power {
		t.Fatalf("epic power %v not above common %v", epic.Power, common.Power)
	}

	scaled := InstantiateGear("i3", tpl, RarityCommon, 2)
	if scaled.Power != common.Power*2 {
		t.Fatalf("floor multiplier not applied: %v vs %v", scaled.Power, common.Power)
	}
	if scaled.Bonuses.Derived[stats.DerivedAttackPower] != scaled.Power {
		t.Fatalf("attack bonus should equal power for flat primaries")
	}
}
