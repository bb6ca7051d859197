package services

// Archetype labels derived from cumulative affinity totals.
const (
	ArchetypeWarrior      = "Warrior"
	ArchetypeMage         = "Mage"
	ArchetypeTemplar      = "Templar"
	ArchetypeUndetermined = "Undetermined"
)

// BalanceBand is the mage-share range classified as balanced ("Templar").
// The engine uses the mage-share convention everywhere archetypes are
// derived; duel fairness uses the complementary warrior-share ratio.
type BalanceBand struct {
	Low  float64
	High float64
}

var DefaultBalanceBand = BalanceBand{Low: 0.40, High: 0.60}

// ArchetypeFor classifies cumulative warrior/mage totals. Both zero means
// the user has no affinity history yet.
func ArchetypeFor(warrior, mage int64, band BalanceBand) string {
	total := warrior + mage
	if total == 0 {
		return ArchetypeUndetermined
	}

	mageShare := float64(mage) / float64(total)
	switch {
	case mageShare >= band.Low && mageShare <= band.High:
		return ArchetypeTemplar
	case mage > warrior:
		return ArchetypeMage
	default:
		return ArchetypeWarrior
	}
}

// HasArchetypeChanged is a plain label inequality.
func HasArchetypeChanged(old, new string) bool {
	return old != new
}

// ReclassifyWithHysteresis derives the new archetype but holds the previous
// label while the mage share sits within margin of a band edge. A margin of
// zero disables hysteresis and reduces to plain classification, so users
// oscillating right at the 40/60 boundary flip labels on every submission.
func ReclassifyWithHysteresis(old string, warrior, mage int64, band BalanceBand, margin float64) string {
	candidate := ArchetypeFor(warrior, mage, band)
	if margin <= 0 || old == "" || old == ArchetypeUndetermined || candidate == old {
		return candidate
	}

	total := warrior + mage
	if total == 0 {
		return candidate
	}

	mageShare := float64(mage) / float64(total)
	if mageShare >= band.Low-margin && mageShare <= band.Low+margin {
		return old
	}
	if mageShare >= band.High-margin && mageShare <= band.High+margin {
		return old
	}
	return candidate
}
