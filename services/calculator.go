package services

// AffinityDelta carries the warrior/mage affinity change derived from one
// validated stat set. Deltas from ordinary submissions are always ≥ 0.
type AffinityDelta struct {
	Warrior int64 `json:"warrior"`
	Mage    int64 `json:"mage"`
}

// XPDelta is Σ xp_weight[stat] × amount[stat] over the validated set.
// Weights and amounts are integers, so the sum is exact.
func XPDelta(set ValidatedStatSet, catalog *StatCatalog) int64 {
	var total int64
	for key, amount := range set {
		if def, ok := catalog.Resolve(key); ok {
			total += def.XPWeight * amount
		}
	}
	return total
}

// AffinityDeltas derives the warrior/mage deltas from the validated set
// using the catalog's affinity weights.
func AffinityDeltas(set ValidatedStatSet, catalog *StatCatalog) AffinityDelta {
	var d AffinityDelta
	for key, amount := range set {
		if def, ok := catalog.Resolve(key); ok {
			d.Warrior += def.WarriorWeight * amount
			d.Mage += def.MageWeight * amount
		}
	}
	return d
}
