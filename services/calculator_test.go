package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Catalog with the weights from the reference example: Approaches and
// Numbers both worth 100 XP, warrior weights 3 and 1.
var exampleCatalog = NewStatCatalog([]StatDefinition{
	{Key: "approaches", XPWeight: 100, WarriorWeight: 3, Aliases: []string{"Approaches"}},
	{Key: "numbers", XPWeight: 100, WarriorWeight: 1, Aliases: []string{"Numbers"}},
})

func TestXPDelta_ReferenceExample(t *testing.T) {
	set := ValidatedStatSet{"approaches": 5, "numbers": 2}

	assert.Equal(t, int64(700), XPDelta(set, exampleCatalog))

	deltas := AffinityDeltas(set, exampleCatalog)
	assert.Equal(t, int64(17), deltas.Warrior)
	assert.Equal(t, int64(0), deltas.Mage)
}

func TestXPDelta_EmptySet(t *testing.T) {
	assert.Equal(t, int64(0), XPDelta(ValidatedStatSet{}, DefaultStatCatalog))
	assert.Equal(t, AffinityDelta{}, AffinityDeltas(ValidatedStatSet{}, DefaultStatCatalog))
}

func TestAffinityDeltas_DefaultCatalog(t *testing.T) {
	set := ValidatedStatSet{
		"approaches":    2, // w:3 m:0 each
		"planned_dates": 1, // w:1 m:4
	}
	deltas := AffinityDeltas(set, DefaultStatCatalog)
	assert.Equal(t, int64(7), deltas.Warrior)
	assert.Equal(t, int64(4), deltas.Mage)
}

func TestDeltas_Additivity(t *testing.T) {
	// Replaying two submissions equals one combined submission
	a := ValidatedStatSet{"approaches": 3}
	b := ValidatedStatSet{"approaches": 2, "contacts": 4}
	combined := ValidatedStatSet{"approaches": 5, "contacts": 4}

	assert.Equal(t,
		XPDelta(combined, DefaultStatCatalog),
		XPDelta(a, DefaultStatCatalog)+XPDelta(b, DefaultStatCatalog))

	da := AffinityDeltas(a, DefaultStatCatalog)
	db := AffinityDeltas(b, DefaultStatCatalog)
	dc := AffinityDeltas(combined, DefaultStatCatalog)
	assert.Equal(t, dc.Warrior, da.Warrior+db.Warrior)
	assert.Equal(t, dc.Mage, da.Mage+db.Mage)
}

func TestDeltas_NeverNegative(t *testing.T) {
	for _, def := range DefaultStatCatalog.Definitions() {
		assert.GreaterOrEqual(t, def.XPWeight, int64(0), def.Key)
		assert.GreaterOrEqual(t, def.WarriorWeight, int64(0), def.Key)
		assert.GreaterOrEqual(t, def.MageWeight, int64(0), def.Key)
	}
}
