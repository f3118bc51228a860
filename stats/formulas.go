package stats

const (
	baseHealthFlat  = 80.0
	enduranceHealth = 10.0
	baseManaFlat    = 40.0
	intellectMana   = 8.0
	strengthAttack  = 2.0
	intellectSpell  = 2.0
	baseArmorFlat   = 5.0
	enduranceArmor  = 1.0
	baseCrit        = 0.05
	agilityCrit     = 0.004
	agilityHaste    = 0.01
	baseResistFlat  = 3.0
	intellectResist = 0.5
	critChanceCap   = 0.75
	hasteCap        = 2.0
	lifestealCap    = 0.6
)

func computeDerived(totals ValueSet, bonuses DerivedSet) DerivedSet {
	var derived DerivedSet

	strength := clamp(totals[StatStrength], 0, 1e9)
	intellect := clamp(totals[StatIntellect], 0, 1e9)
	endurance := clamp(totals[StatEndurance], 0, 1e9)
	agility := clamp(totals[StatAgility], 0, 1e9)

	derived[DerivedMaxHealth] = clamp(baseHealthFlat+endurance*enduranceHealth+bonuses[DerivedMaxHealth], 1, 1e9)
	derived[DerivedMaxMana] = clamp(baseManaFlat+intellect*intellectMana+bonuses[DerivedMaxMana], 0, 1e9)
	derived[DerivedAttackPower] = clamp(strength*strengthAttack+bonuses[DerivedAttackPower], 0, 1e9)
	derived[DerivedSpellPower] = clamp(intellect*intellectSpell+bonuses[DerivedSpellPower], 0, 1e9)
	derived[DerivedArmor] = clamp(baseArmorFlat+endurance*enduranceArmor+bonuses[DerivedArmor], 0, 1e9)
	derived[DerivedCritChance] = clamp(baseCrit+agility*agilityCrit+bonuses[DerivedCritChance], 0, critChanceCap)
	derived[DerivedHaste] = clamp(1+agility*agilityHaste+bonuses[DerivedHaste], 0.1, hasteCap)
	derived[DerivedLifesteal] = clamp(bonuses[DerivedLifesteal], 0, lifestealCap)
	derived[DerivedResist] = clamp(baseResistFlat+intellect*intellectResist+bonuses[DerivedResist], 0, 1e9)

	return derived
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
