package loot

import (
	"math/rand"
	"testing"

	"deepfall/server/internal/items"
	"deepfall/server/internal/progression"
)

func TestRollAlwaysIncludesGold(t *testing.T) {
	t.Parallel()

	gen := NewGenerator(rand.New(rand.NewSource(7)))
	for i := 0; i < 100; i++ {
		drops := gen.Roll(1, false, false)
		if len(drops) == 0 || drops[0].Kind != DropGold || drops[0].Gold <= 0 {
			t.Fatalf("roll %d missing gold drop: %+v", i, drops)
		}
	}
}

func TestRollGoldScalesWithFloor(t *testing.T) {
	t.Parallel()

	floorMult := progression.ScalingForFloor(8).Loot
	gen := NewGenerator(rand.New(rand.NewSource(11)))
	for i := 0; i < 50; i++ {
		drops := gen.Roll(8, false, false)
		max := int(float64(goldMax) * floorMult)
		if drops[0].Gold > max {
			t.Fatalf("gold %d above scaled ceiling %d", drops[0].Gold, max)
		}
	}
}

func TestBossRollGuaranteesGear(t *testing.T) {
	t.Parallel()

	gen := NewGenerator(rand.New(rand.NewSource(3)))
	for i := 0; i < 60; i++ {
		drops := gen.Roll(4, true, false)
		found := false
		for _, d := range drops {
			if d.Kind == DropItem && d.Item != nil {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("boss roll %d produced no item: %+v", i, drops)
		}
	}
}

func TestRareRollElevatesRarityFloor(t *testing.T) {
	t.Parallel()

	gen := NewGenerator(rand.New(rand.NewSource(19)))
	for i := 0; i < 250; i++ {
		drops := gen.Roll(2, false, true)
		for _, d := range drops {
			if d.Kind == DropItem && d.Item != nil {
				if d.Item.Rarity.Rank() < items.RarityUncommon.Rank() {
					t.Fatalf("rare source dropped %s", d.Item.Rarity)
				}
			}
		}
	}
}

func TestSeededRollsAreReproducible(t *testing.T) {
	t.Parallel()

	a := NewGenerator(rand.New(rand.NewSource(42)))
	b := NewGenerator(rand.New(rand.NewSource(42)))
	for i := 0; i < 20; i++ {
		da := a.Roll(3, i%5 == 0, i%3 == 0)
		db := b.Roll(3, i%5 == 0, i%3 == 0)
		if len(da) != len(db) {
			t.Fatalf("roll %d diverged in length: %d vs %d", i, len(da), len(db))
		}
		for j := range da {
			if da[j].Kind != db[j].Kind || da[j].Gold != db[j].Gold {
				t.Fatalf("roll %d entry %d diverged: %+v vs %+v", i, j, da[j], db[j])
			}
		}
	}
}
