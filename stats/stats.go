package stats

// StatID enumerates the primary attributes tracked for every combatant.
type StatID uint8

const (
	StatStrength StatID = iota
	StatIntellect
	StatEndurance
	StatAgility

	StatCount
)

// DerivedID enumerates derived stats computed from attribute totals and
// flat bonuses contributed by equipment and timed effects.
type DerivedID uint8

const (
	DerivedMaxHealth DerivedID = iota
	DerivedMaxMana
	DerivedAttackPower
	DerivedSpellPower
	DerivedArmor
	DerivedCritChance
	DerivedHaste
	DerivedLifesteal
	DerivedResist

	DerivedCount
)

// Layer describes the precedence order for modifier sources.
type Layer uint8

const (
	LayerBase Layer = iota
	LayerProgression
	LayerEquipment
	LayerTemporary

	LayerCount
)

// SourceKey uniquely identifies the origin of a modifier inside a layer.
type SourceKey struct {
	Layer Layer
	ID    string
}

// ValueSet stores a fixed vector of attribute values.
type ValueSet [StatCount]float64

// DerivedSet stores derived stat values.
type DerivedSet [DerivedCount]float64

// Delta captures the additive contribution supplied by one source:
// attribute points plus flat derived-stat bonuses.
type Delta struct {
	Stats   ValueSet   `json:"stats"`
	Derived DerivedSet `json:"derived"`
}

// IsZero reports whether the delta contributes nothing.
func (d Delta) IsZero() bool {
	for _, v := range d.Stats {
		if v != 0 {
			return false
		}
	}
	for _, v := range d.Derived {
		if v != 0 {
			return false
		}
	}
	return true
}

// Component owns the stat state for an actor and caches derived totals.
type Component struct {
	sources map[SourceKey]Delta
	totals  ValueSet
	bonuses DerivedSet
	derived DerivedSet
	dirty   bool
	version uint64
}

// NewComponent builds a component seeded with the given base attributes.
func NewComponent(base ValueSet) *Component {
	c := &Component{sources: make(map[SourceKey]Delta), dirty: true}
	c.Set(SourceKey{Layer: LayerBase, ID: "base"}, Delta{Stats: base})
	return c
}

// Set registers or replaces the contribution for a source.
func (c *Component) Set(key SourceKey, delta Delta) {
	if c == nil {
		return
	}
	if c.sources == nil {
		c.sources = make(map[SourceKey]Delta)
	}
	if delta.IsZero() {
		delete(c.sources, key)
	} else {
		c.sources[key] = delta
	}
	c.dirty = true
	c.version++
}

// Remove clears the contribution for a source, if present.
func (c *Component) Remove(key SourceKey) {
	if c == nil || c.sources == nil {
		return
	}
	if _, ok := c.sources[key]; !ok {
		return
	}
	delete(c.sources, key)
	c.dirty = true
	c.version++
}

// RemoveLayer clears every contribution registered under the given layer.
func (c *Component) RemoveLayer(layer Layer) {
	if c == nil || c.sources == nil {
		return
	}
	changed := false
	for key := range c.sources {
		if key.Layer == layer {
			delete(c.sources, key)
			changed = true
		}
	}
	if changed {
		c.dirty = true
		c.version++
	}
}

// Resolve recomputes totals and derived values when any source changed.
func (c *Component) Resolve() {
	if c == nil || !c.dirty {
		return
	}
	var totals ValueSet
	var bonuses DerivedSet
	for _, delta := range c.sources {
		for i := StatID(0); i < StatCount; i++ {
			totals[i] += delta.Stats[i]
		}
		for i := DerivedID(0); i < DerivedCount; i++ {
			bonuses[i] += delta.Derived[i]
		}
	}
	c.totals = totals
	c.bonuses = bonuses
	c.derived = computeDerived(totals, bonuses)
	c.dirty = false
}

// Totals returns the resolved attribute vector.
func (c *Component) Totals() ValueSet {
	c.Resolve()
	return c.totals
}

// Derived returns the resolved derived-stat vector.
func (c *Component) Derived() DerivedSet {
	c.Resolve()
	return c.derived
}

// GetDerived returns a single resolved derived stat.
func (c *Component) GetDerived(id DerivedID) float64 {
	c.Resolve()
	if id >= DerivedCount {
		return 0
	}
	return c.derived[id]
}

// Version increments on every mutation; snapshots use it to detect change.
func (c *Component) Version() uint64 {
	if c == nil {
		return 0
	}
	return c.version
}
