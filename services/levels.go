package services

// LevelTier is one row of the level threshold table. Thresholds are
// cumulative XP and must be strictly increasing.
type LevelTier struct {
	Level       int
	XPThreshold int64
	ClassName   string
}

// LevelInfo is the derived position of an XP total within the table.
type LevelInfo struct {
	Level           int     `json:"level"`
	ClassName       string  `json:"class_name"`
	ThresholdXP     int64   `json:"threshold_xp"`
	NextThresholdXP int64   `json:"next_threshold_xp"` // equals ThresholdXP at max tier
	Progress        float64 `json:"progress"`          // fraction toward next tier, 0 at max
}

const maxLevel = 50

// BaseXPPerTier scales the level curve: the cumulative threshold for level n
// is BaseXPPerTier × (n−1) × n / 2, so level 2 lands at 500 XP.
const BaseXPPerTier = 500

// DefaultLevelTable holds the 50-tier reference table.
var DefaultLevelTable = buildLevelTable()

func buildLevelTable() []LevelTier {
	table := make([]LevelTier, 0, maxLevel)
	for n := 1; n <= maxLevel; n++ {
		table = append(table, LevelTier{
			Level:       n,
			XPThreshold: int64(BaseXPPerTier) * int64(n-1) * int64(n) / 2,
			ClassName:   classNameForLevel(n),
		})
	}
	return table
}

func classNameForLevel(level int) string {
	switch {
	case level <= 5:
		return "Novice"
	case level <= 10:
		return "Apprentice"
	case level <= 15:
		return "Adept"
	case level <= 20:
		return "Journeyman"
	case level <= 25:
		return "Veteran"
	case level <= 30:
		return "Elite"
	case level <= 35:
		return "Master"
	case level <= 40:
		return "Grandmaster"
	case level <= 45:
		return "Champion"
	default:
		return "Legend"
	}
}

// LevelFor returns the highest tier whose threshold is ≤ xp, plus progress
// toward the next tier. Negative XP clamps to the first tier.
func LevelFor(xp int64, table []LevelTier) LevelInfo {
	idx := 0
	for i := range table {
		if table[i].XPThreshold <= xp {
			idx = i
		} else {
			break
		}
	}

	tier := table[idx]
	info := LevelInfo{
		Level:           tier.Level,
		ClassName:       tier.ClassName,
		ThresholdXP:     tier.XPThreshold,
		NextThresholdXP: tier.XPThreshold,
	}

	if idx+1 < len(table) {
		next := table[idx+1]
		info.NextThresholdXP = next.XPThreshold
		span := next.XPThreshold - tier.XPThreshold
		if span > 0 {
			info.Progress = float64(xp-tier.XPThreshold) / float64(span)
		}
	}
	return info
}

// CheckLevelUp compares the derived level before and after an XP change.
// It only detects the transition; nothing is stored.
func CheckLevelUp(oldXP, newXP int64, table []LevelTier) (leveledUp bool, old, new LevelInfo) {
	old = LevelFor(oldXP, table)
	new = LevelFor(newXP, table)
	return new.Level > old.Level, old, new
}
