package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArchetypeFor(t *testing.T) {
	band := DefaultBalanceBand

	tests := []struct {
		name     string
		warrior  int64
		mage     int64
		expected string
	}{
		{"both zero", 0, 0, ArchetypeUndetermined},
		{"pure warrior", 100, 0, ArchetypeWarrior},
		{"pure mage", 0, 100, ArchetypeMage},
		{"even split is balanced", 50, 50, ArchetypeTemplar},
		{"mage share exactly 40%", 60, 40, ArchetypeTemplar},
		{"mage share exactly 60%", 40, 60, ArchetypeTemplar},
		{"mage share just under 40%", 61, 39, ArchetypeWarrior},
		{"mage share just over 60%", 39, 61, ArchetypeMage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ArchetypeFor(tt.warrior, tt.mage, band))
		})
	}
}

func TestArchetypeFor_Deterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.Equal(t, ArchetypeTemplar, ArchetypeFor(55, 45, DefaultBalanceBand))
	}
}

func TestArchetypeFor_SingleFlipPerCrossing(t *testing.T) {
	// Walk mage share upward across the 60% boundary: the label changes
	// exactly once
	var flips int
	prev := ArchetypeFor(100, 100, DefaultBalanceBand)
	for mage := int64(101); mage <= 200; mage++ {
		cur := ArchetypeFor(100, mage, DefaultBalanceBand)
		if cur != prev {
			flips++
			prev = cur
		}
	}
	assert.Equal(t, 1, flips)
	assert.Equal(t, ArchetypeMage, prev)
}

func TestHasArchetypeChanged(t *testing.T) {
	assert.False(t, HasArchetypeChanged(ArchetypeWarrior, ArchetypeWarrior))
	assert.True(t, HasArchetypeChanged(ArchetypeWarrior, ArchetypeTemplar))
}

func TestReclassifyWithHysteresis(t *testing.T) {
	band := DefaultBalanceBand

	// Margin zero reduces to plain classification
	got := ReclassifyWithHysteresis(ArchetypeTemplar, 39, 61, band, 0)
	assert.Equal(t, ArchetypeMage, got)

	// Within margin of the band edge the old label holds
	got = ReclassifyWithHysteresis(ArchetypeTemplar, 39, 61, band, 0.05)
	assert.Equal(t, ArchetypeTemplar, got)

	// Far outside the margin the label flips regardless
	got = ReclassifyWithHysteresis(ArchetypeTemplar, 10, 90, band, 0.05)
	assert.Equal(t, ArchetypeMage, got)

	// No previous label means nothing to hold
	got = ReclassifyWithHysteresis("", 39, 61, band, 0.05)
	assert.Equal(t, ArchetypeMage, got)
}
