// Package loot rolls kill and chest rewards from weighted tables
// parameterized by floor and source rarity.
package loot

import (
	"fmt"
	"math/rand"

	"deepfall/server/internal/abilities"
	"deepfall/server/internal/items"
	"deepfall/server/internal/progression"
)

// Independent drop-check weights.
const (
	gearChance     = 0.40
	abilityChance  = 0.30
	cosmeticChance = 0.05

	// Within a successful gear check, the stack splits between a worn
	// piece and a potion.
	potionShare = 0.25
)

const (
	goldMin = 8
	goldMax = 22
)

// rarityWeights orders the cumulative rarity table from common upward.
var rarityWeights = []struct {
	rarity items.Rarity
	weight float64
}{
	{items.RarityCommon, 0.50},
	{items.RarityUncommon, 0.28},
	{items.RarityRare, 0.14},
	{items.RarityEpic, 0.06},
	{items.RarityLegendary, 0.02},
}

var cosmeticCatalog = []string{
	"banner_of_the_depths",
	"molten_crown",
	"pale_lantern",
	"gilded_compass",
}

// DropKind tags one rolled reward.
type DropKind string

const (
	DropGold     DropKind = "gold"
	DropItem     DropKind = "item"
	DropAbility  DropKind = "ability"
	DropCosmetic DropKind = "cosmetic"
)

// Drop is a single rolled reward.
type Drop struct {
	Kind     DropKind     `json:"kind"`
	Gold     int          `json:"gold,omitempty"`
	Item     *items.Item  `json:"item,omitempty"`
	Ability  abilities.ID `json:"ability,omitempty"`
	Cosmetic string       `json:"cosmetic,omitempty"`
}

// Generator rolls drops with an injected RNG so seeded worlds and
// tests reproduce rewards exactly.
type Generator struct {
	rng    *rand.Rand
	nextID uint64
}

// NewGenerator builds a generator around the world RNG.
func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

func (g *Generator) random() float64 {
	if g != nil && g.rng != nil {
		return g.rng.Float64()
	}
	return rand.Float64()
}

func (g *Generator) allocateID() string {
	g.nextID++
	return fmt.Sprintf("drop-%d", g.nextID)
}

// Roll produces the rewards for one kill or chest opening. Bosses are
// guaranteed multiple reward passes; rare sources elevate the rarity
// floor by one rank.
func (g *Generator) Roll(floor int, sourceIsBoss, sourceIsRare bool) []Drop {
	if g == nil {
		return nil
	}
	scaling := progression.ScalingForFloor(floor)

	passes := 1
	if sourceIsRare {
		passes = 2
	}
	if sourceIsBoss {
		passes = 3
	}

	minRank := 0
	if sourceIsRare {
		minRank = 1
	}
	if sourceIsBoss {
		minRank = 2
	}

	drops := make([]Drop, 0, passes+1)

	gold := goldMin + int(g.random()*float64(goldMax-goldMin+1))
	gold = int(float64(gold) * scaling.Loot)
	drops = append(drops, Drop{Kind: DropGold, Gold: gold})

	for pass := 0; pass < passes; pass++ {
		guaranteedGear := sourceIsBoss && pass == 0
		if guaranteedGear || g.random() < gearChance {
			drops = append(drops, g.rollItem(minRank, scaling.Loot))
		}
		if g.random() < abilityChance {
			drops = append(drops, g.rollAbility())
		}
		if g.random() < cosmeticChance {
			drops = append(drops, g.rollCosmetic())
		}
	}

	return drops
}

func (g *Generator) rollItem(minRank int, lootMult float64) Drop {
	rarity := g.rollRarity(minRank)
	if g.random() < potionShare {
		tpls := items.PotionTemplates()
		tpl := tpls[int(g.random()*float64(len(tpls)))%len(tpls)]
		potion := items.InstantiatePotion(g.allocateID(), tpl, rarity, lootMult)
		return Drop{Kind: DropItem, Item: &potion}
	}
	tpls := items.GearTemplates()
	tpl := tpls[int(g.random()*float64(len(tpls)))%len(tpls)]
	gear := items.InstantiateGear(g.allocateID(), tpl, rarity, lootMult)
	return Drop{Kind: DropItem, Item: &gear}
}

func (g *Generator) rollRarity(minRank int) items.Rarity {
	roll := g.random()
	cumulative := 0.0
	for _, entry := range rarityWeights {
		cumulative += entry.weight
		if roll < cumulative {
			if entry.rarity.Rank() < minRank {
				return items.RarityByRank(minRank)
			}
			return entry.rarity
		}
	}
	return items.RarityByRank(minRank)
}

func (g *Generator) rollAbility() Drop {
	all := abilities.All()
	pick := all[int(g.random()*float64(len(all)))%len(all)]
	return Drop{Kind: DropAbility, Ability: pick}
}

func (g *Generator) rollCosmetic() Drop {
	pick := cosmeticCatalog[int(g.random()*float64(len(cosmeticCatalog)))%len(cosmeticCatalog)]
	return Drop{Kind: DropCosmetic, Cosmetic: pick}
}
