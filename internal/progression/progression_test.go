package progression

import (
	"math"
	"testing"

	"deepfall/server/stats"
)

func TestXPForLevelMatchesCurve(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 50; n++ {
		want := int(math.Floor(100 * math.Pow(float64(n), 1.5)))
		if got := XPForLevel(n); got != want {
			t.Fatalf("XPForLevel(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestXPForLevelStrictlyIncreasing(t *testing.T) {
	t.Parallel()

	prev := XPForLevel(1)
	for n := 2; n <= 100; n++ {
		next := XPForLevel(n)
		if next <= prev {
			t.Fatalf("curve not strictly increasing at %d: %d <= %d", n, next, prev)
		}
		prev = next
	}
}

func TestAwardXPSpansMultipleLevels(t *testing.T) {
	t.Parallel()

	// Level 1 with 900 XP crosses the level-2 and level-3 thresholds,
	// landing at level 3 with the remainder.
	res := AwardXP(1, 0, XPForLevel(2), 900)

	consumed := XPForLevel(2) + XPForLevel(3)
	if res.Level != 3 {
		t.Fatalf("expected level 3, got %d", res.Level)
	}
	if res.LevelsGained != 2 {
		t.Fatalf("expected 2 levels gained, got %d", res.LevelsGained)
	}
	if res.XP != 900-consumed {
		t.Fatalf("remainder mismatch: got %d, want %d", res.XP, 900-consumed)
	}
	if res.XPToNext != XPForLevel(4) {
		t.Fatalf("next threshold mismatch: got %d, want %d", res.XPToNext, XPForLevel(4))
	}
}

func TestAwardXPCarriesExistingProgress(t *testing.T) {
	t.Parallel()

	res := AwardXP(2, 100, XPForLevel(3), 50)
	if res.Level != 2 || res.XP != 150 || res.LevelsGained != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestScalingForFloorCompounds(t *testing.T) {
	t.Parallel()

	s1 := ScalingForFloor(1)
	if s1.Health != 1 || s1.Damage != 1 || s1.Loot != 1 {
		t.Fatalf("floor 1 must be baseline: %+v", s1)
	}

	for f := 2; f <= 12; f++ {
		s := ScalingForFloor(f)
		exp := float64(f - 1)
		if math.Abs(s.Health-math.Pow(1.15, exp)) > 1e-9 {
			t.Fatalf("floor %d health mult %v", f, s.Health)
		}
		if math.Abs(s.Damage-math.Pow(1.08, exp)) > 1e-9 {
			t.Fatalf("floor %d damage mult %v", f, s.Damage)
		}
		if math.Abs(s.Loot-math.Pow(1.12, exp)) > 1e-9 {
			t.Fatalf("floor %d loot mult %v", f, s.Loot)
		}
	}
}

func TestScalingForPartyAddsPerPlayerAndGearBonus(t *testing.T) {
	t.Parallel()

	solo := ScalingForParty(1, 0)
	if solo.Health != 1 || solo.Damage != 1 {
		t.Fatalf("solo baseline violated: %+v", solo)
	}

	trio := ScalingForParty(3, gearPowerBaseline)
	if math.Abs(trio.Health-2.0) > 1e-9 || math.Abs(trio.Damage-1.6) > 1e-9 {
		t.Fatalf("trio scaling mismatch: %+v", trio)
	}

	geared := ScalingForParty(1, gearPowerCeiling*2)
	if math.Abs(geared.Health-(1+partyHealthGearCap)) > 1e-9 {
		t.Fatalf("gear bonus not capped: %+v", geared)
	}
}

func TestCanUpgradeRankGatedByFloor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		rank, floor int
		want        bool
	}{
		{1, 1, false},
		{1, 2, true},
		{3, 3, false},
		{3, 4, true},
		{MaxAbilityRank, 99, false},
		{0, 10, false},
	}
	for _, tc := range cases {
		if got := CanUpgradeRank(tc.rank, tc.floor); got != tc.want {
			t.Fatalf("CanUpgradeRank(%d, %d) = %v, want %v", tc.rank, tc.floor, got, tc.want)
		}
	}
}

func TestRankUpFallbackScalesGold(t *testing.T) {
	t.Parallel()

	reward := RankUpFallback(100, 3, 0.9)
	want := int(math.Floor(100 * math.Pow(1.1, 2)))
	if reward.Gold != want {
		t.Fatalf("gold mismatch: got %d, want %d", reward.Gold, want)
	}
	if reward.RerollToken {
		t.Fatalf("roll 0.9 should not grant a token")
	}
	if !RankUpFallback(100, 1, 0.0).RerollToken {
		t.Fatalf("roll 0.0 should grant a token")
	}
}

func TestLevelBonusScalesWithLevelsGained(t *testing.T) {
	t.Parallel()

	delta := LevelBonus(3)
	if delta.Derived[stats.DerivedMaxHealth] != 3*levelHealthBonus {
		t.Fatalf("health bonus mismatch: %v", delta.Derived[stats.DerivedMaxHealth])
	}
	if !LevelBonus(0).IsZero() {
		t.Fatalf("zero levels must grant nothing")
	}
}
