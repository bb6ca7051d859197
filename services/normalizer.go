package services

import (
	"errors"
	"log"
	"strconv"
	"strings"
)

// ValidatedStatSet maps canonical stat keys to non-negative amounts for a
// single submission. Aliases resolving to the same key aggregate additively.
type ValidatedStatSet map[string]int64

// ErrNoValidStats is the only whole-submission failure: every field was
// unknown or carried an invalid value.
var ErrNoValidStats = errors.New("no valid stats in submission")

// StatNormalizer resolves raw submitted field names through the catalog,
// dropping unknown keys and invalid values per entry instead of rejecting
// the whole submission.
type StatNormalizer struct {
	Catalog *StatCatalog
}

func NewStatNormalizer(catalog *StatCatalog) *StatNormalizer {
	return &StatNormalizer{Catalog: catalog}
}

// Normalize validates a raw field map. Returned warnings describe dropped
// entries; an empty result yields ErrNoValidStats.
func (n *StatNormalizer) Normalize(raw map[string]string) (ValidatedStatSet, []string, error) {
	set := make(ValidatedStatSet)
	var warnings []string

	for field, value := range raw {
		def, ok := n.Catalog.Resolve(field)
		if !ok {
			warnings = append(warnings, "unknown stat dropped: "+field)
			log.Printf("⚠️ [Normalizer] unknown stat %q dropped", field)
			continue
		}

		amount, ok := parseStatValue(value, def.Boolean)
		if !ok {
			warnings = append(warnings, "invalid value dropped: "+field+"="+value)
			log.Printf("⚠️ [Normalizer] invalid value %q for stat %q dropped", value, field)
			continue
		}

		set[def.Key] += amount
	}

	if len(set) == 0 {
		return nil, warnings, ErrNoValidStats
	}
	return set, warnings, nil
}

// parseStatValue parses a submitted value as a non-negative integer; for
// boolean-style stats Yes/No style tokens map to 1/0.
func parseStatValue(value string, boolean bool) (int64, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, false
	}

	if boolean {
		switch strings.ToLower(v) {
		case "yes", "y", "true":
			return 1, true
		case "no", "n", "false":
			return 0, true
		}
		// fall through: numeric values are accepted for boolean stats too
	}

	amount, err := strconv.ParseInt(v, 10, 64)
	if err != nil || amount < 0 {
		return 0, false
	}
	return amount, true
}
