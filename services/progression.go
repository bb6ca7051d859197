package services

import (
	"fmt"
	"log"
	"time"

	"social-rpg-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressionService owns the durable side of progression: daily stat
// accumulation and the tiered XP/affinity award path. Awards are
// best-effort but never silently lost — stats commit first and stay
// committed even when every award tier fails.
type ProgressionService struct {
	DB         *gorm.DB
	Catalog    *StatCatalog
	Normalizer *StatNormalizer
	LevelTable []LevelTier
	Band       BalanceBand
	Hysteresis float64 // archetype re-label damping, 0 = off
	Notifier   Notifier
	Duels      *DuelService // optional: active-duel forwarding
	Location   *time.Location
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	catalog := DefaultStatCatalog
	return &ProgressionService{
		DB:         db,
		Catalog:    catalog,
		Normalizer: NewStatNormalizer(catalog),
		LevelTable: DefaultLevelTable,
		Band:       DefaultBalanceBand,
		Notifier:   LogNotifier{},
		Location:   time.UTC,
	}
}

// SubmitResult is what the command boundary gets back for one submission.
type SubmitResult struct {
	Day            string           `json:"day"`
	ValidatedStats ValidatedStatSet `json:"validated_stats"`
	XPAwarded      int64            `json:"xp_awarded"`
	Affinities     AffinityDelta    `json:"affinities"`
	Warnings       []string         `json:"warnings,omitempty"`
}

// EnsureRecord creates the cumulative progression row if missing (idempotent).
func (s *ProgressionService) EnsureRecord(externalUserID, username string) (*models.UserProgression, error) {
	var prog models.UserProgression
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error
	if err == gorm.ErrRecordNotFound {
		prog = models.UserProgression{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Username:       username,
		}
		if err := s.DB.Create(&prog).Error; err != nil {
			return nil, err
		}
		return &prog, nil
	}
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

// SubmitReps runs the full submission flow: normalize → persist daily stats
// → award XP/affinity → forward duel-scoped gains. A daily-stat failure is
// logged and skipped; an award failure is surfaced to the caller while the
// committed stats remain.
func (s *ProgressionService) SubmitReps(externalUserID, username string, raw map[string]string, dayOverride string) (*SubmitResult, error) {
	set, warnings, err := s.Normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}

	day, dayWarn := s.resolveDay(dayOverride)
	if dayWarn != "" {
		warnings = append(warnings, dayWarn)
	}

	result := &SubmitResult{
		Day:            day,
		ValidatedStats: set,
		XPAwarded:      XPDelta(set, s.Catalog),
		Affinities:     AffinityDeltas(set, s.Catalog),
		Warnings:       warnings,
	}

	if err := s.PersistDailyStats(externalUserID, day, set); err != nil {
		// Non-fatal: missing totals show up as gaps in displays, not as a
		// rejected submission.
		log.Printf("⚠️ [Ledger] daily stats not fully persisted for %s/%s: %v", externalUserID, day, err)
	}

	if err := s.AwardProgression(externalUserID, username, result.XPAwarded, result.Affinities, "reps_submission"); err != nil {
		return result, err
	}

	if s.Duels != nil {
		if err := s.Duels.RecordGainsForUser(externalUserID, result.Affinities.Warrior, result.Affinities.Mage); err != nil {
			log.Printf("⚠️ [Ledger] duel gain forwarding failed for %s: %v", externalUserID, err)
		}
	}

	return result, nil
}

func (s *ProgressionService) resolveDay(override string) (day, warning string) {
	if override != "" {
		if _, err := time.ParseInLocation("2006-01-02", override, s.Location); err == nil {
			return override, ""
		}
		warning = "malformed day override dropped: " + override
	}
	return time.Now().In(s.Location).Format("2006-01-02"), warning
}

// PersistDailyStats upserts the day marker and additively upserts each
// per-stat running total. Per-stat failures are skipped, not retried.
func (s *ProgressionService) PersistDailyStats(externalUserID, day string, set ValidatedStatSet) error {
	marker := models.DailyLog{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Day:            day,
		Timezone:       s.Location.String(),
	}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"updated_at": time.Now()}),
	}).Create(&marker).Error; err != nil {
		return fmt.Errorf("daily log upsert failed: %w", err)
	}

	var failed int
	for stat, amount := range set {
		row := models.DailyStat{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Day:            day,
			Stat:           stat,
			Amount:         amount,
		}
		err := s.DB.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_user_id"}, {Name: "day"}, {Name: "stat"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"amount":     gorm.Expr("daily_stats.amount + EXCLUDED.amount"),
				"updated_at": time.Now(),
			}),
		}).Create(&row).Error
		if err != nil {
			failed++
			log.Printf("⚠️ [Ledger] daily stat upsert failed (%s/%s/%s): %v", externalUserID, day, stat, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d daily stat upserts failed", failed)
	}
	return nil
}

// AwardProgression applies the XP/affinity deltas through an ordered list of
// tiers; the first tier that succeeds wins. Tier 1 also detects level-up and
// archetype transitions, tiers 2 and 3 only make the award durable.
func (s *ProgressionService) AwardProgression(externalUserID, username string, xpDelta int64, deltas AffinityDelta, reason string) error {
	tiers := []struct {
		name string
		run  func() error
	}{
		{"domain", func() error { return s.awardDomainTier(externalUserID, username, xpDelta, deltas, reason) }},
		{"repository", func() error { return s.awardRepositoryTier(externalUserID, username, xpDelta, deltas) }},
		{"raw", func() error { return s.awardRawTier(externalUserID, username, xpDelta, deltas) }},
	}

	for _, tier := range tiers {
		if err := tier.run(); err != nil {
			log.Printf("⚠️ [Award] %s tier failed for %s: %v", tier.name, externalUserID, err)
			continue
		}
		return nil
	}
	return fmt.Errorf("all award tiers failed for %s (xp=%d)", externalUserID, xpDelta)
}

// awardDomainTier: atomic add-in-place, then transition detection against
// the pre-award totals reconstructed from the applied deltas. The
// subtraction keeps detection correct under concurrent submissions.
func (s *ProgressionService) awardDomainTier(externalUserID, username string, xpDelta int64, deltas AffinityDelta, reason string) error {
	if _, err := s.EnsureRecord(externalUserID, username); err != nil {
		return err
	}

	res := s.DB.Model(&models.UserProgression{}).
		Where("external_user_id = ?", externalUserID).
		UpdateColumns(map[string]interface{}{
			"total_xp":         gorm.Expr("total_xp + ?", xpDelta),
			"warrior_affinity": gorm.Expr("warrior_affinity + ?", deltas.Warrior),
			"mage_affinity":    gorm.Expr("mage_affinity + ?", deltas.Mage),
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("progression record missing for %s", externalUserID)
	}

	var prog models.UserProgression
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error; err != nil {
		return err
	}

	oldXP := prog.TotalXP - xpDelta
	oldWarrior := prog.WarriorAffinity - deltas.Warrior
	oldMage := prog.MageAffinity - deltas.Mage

	if up, oldLvl, newLvl := CheckLevelUp(oldXP, prog.TotalXP, s.LevelTable); up {
		s.Notifier.NotifyLevelUp(LevelUpEvent{
			UserID:   externalUserID,
			Username: username,
			OldLevel: oldLvl.Level,
			NewLevel: newLvl.Level,
			OldClass: oldLvl.ClassName,
			NewClass: newLvl.ClassName,
		})
	}

	oldArch := ArchetypeFor(oldWarrior, oldMage, s.Band)
	newArch := ReclassifyWithHysteresis(oldArch, prog.WarriorAffinity, prog.MageAffinity, s.Band, s.Hysteresis)
	if HasArchetypeChanged(oldArch, newArch) {
		s.Notifier.NotifyArchetypeChange(ArchetypeChangeEvent{
			UserID:       externalUserID,
			Username:     username,
			OldArchetype: oldArch,
			NewArchetype: newArch,
		})
	}

	log.Printf("🎮 XP Awarded: %s → +%d XP, +%d/+%d affinity (reason: %s)",
		externalUserID, xpDelta, deltas.Warrior, deltas.Mage, reason)
	return nil
}

// awardRepositoryTier: bare atomic upsert, no transition detection.
func (s *ProgressionService) awardRepositoryTier(externalUserID, username string, xpDelta int64, deltas AffinityDelta) error {
	if _, err := s.EnsureRecord(externalUserID, username); err != nil {
		return err
	}
	res := s.DB.Model(&models.UserProgression{}).
		Where("external_user_id = ?", externalUserID).
		UpdateColumns(map[string]interface{}{
			"total_xp":         gorm.Expr("total_xp + ?", xpDelta),
			"warrior_affinity": gorm.Expr("warrior_affinity + ?", deltas.Warrior),
			"mage_affinity":    gorm.Expr("mage_affinity + ?", deltas.Mage),
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("progression record missing for %s", externalUserID)
	}
	return nil
}

// awardRawTier: last resort — a single hand-written upsert statement.
func (s *ProgressionService) awardRawTier(externalUserID, username string, xpDelta int64, deltas AffinityDelta) error {
	return s.DB.Exec(`
		INSERT INTO user_progressions (id, external_user_id, username, total_xp, warrior_affinity, mage_affinity, templar_affinity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, NOW(), NOW())
		ON CONFLICT (external_user_id) DO UPDATE SET
			total_xp         = user_progressions.total_xp + EXCLUDED.total_xp,
			warrior_affinity = user_progressions.warrior_affinity + EXCLUDED.warrior_affinity,
			mage_affinity    = user_progressions.mage_affinity + EXCLUDED.mage_affinity,
			updated_at       = NOW()
	`, uuid.NewString(), externalUserID, username, xpDelta, deltas.Warrior, deltas.Mage).Error
}

// AdminAdjust applies a signed correction that bypasses the normalizer and
// calculator. Totals clamp at zero so a large negative adjustment cannot
// drive a record below its floor.
func (s *ProgressionService) AdminAdjust(externalUserID string, xp, warrior, mage, templar int64, reason string) error {
	if _, err := s.EnsureRecord(externalUserID, ""); err != nil {
		return err
	}
	res := s.DB.Model(&models.UserProgression{}).
		Where("external_user_id = ?", externalUserID).
		UpdateColumns(map[string]interface{}{
			"total_xp":         gorm.Expr("GREATEST(total_xp + ?, 0)", xp),
			"warrior_affinity": gorm.Expr("GREATEST(warrior_affinity + ?, 0)", warrior),
			"mage_affinity":    gorm.Expr("GREATEST(mage_affinity + ?, 0)", mage),
			"templar_affinity": gorm.Expr("GREATEST(templar_affinity + ?, 0)", templar),
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	log.Printf("🛠️ Admin adjustment: %s xp=%+d warrior=%+d mage=%+d templar=%+d (reason: %s)",
		externalUserID, xp, warrior, mage, templar, reason)
	return nil
}

// AdminReset zeroes a user's cumulative progression and purges their daily
// history.
func (s *ProgressionService) AdminReset(externalUserID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.UserProgression{}).
			Where("external_user_id = ?", externalUserID).
			UpdateColumns(map[string]interface{}{
				"total_xp":         0,
				"warrior_affinity": 0,
				"mage_affinity":    0,
				"templar_affinity": 0,
				"updated_at":       time.Now(),
			}).Error; err != nil {
			return err
		}
		if err := tx.Where("external_user_id = ?", externalUserID).Delete(&models.DailyStat{}).Error; err != nil {
			return err
		}
		if err := tx.Where("external_user_id = ?", externalUserID).Delete(&models.DailyLog{}).Error; err != nil {
			return err
		}
		log.Printf("🧹 Progression reset for %s", externalUserID)
		return nil
	})
}

// ProgressionSnapshot is the cumulative record with its derived fields.
type ProgressionSnapshot struct {
	Record    *models.UserProgression `json:"record"`
	Level     LevelInfo               `json:"level"`
	Archetype string                  `json:"archetype"`
}

// Snapshot derives level and archetype on demand from the stored totals.
func (s *ProgressionService) Snapshot(externalUserID string) (*ProgressionSnapshot, error) {
	prog, err := s.EnsureRecord(externalUserID, "")
	if err != nil {
		return nil, err
	}
	return &ProgressionSnapshot{
		Record:    prog,
		Level:     LevelFor(prog.TotalXP, s.LevelTable),
		Archetype: ArchetypeFor(prog.WarriorAffinity, prog.MageAffinity, s.Band),
	}, nil
}

// DailyHistory returns per-day stat totals for the last N days.
func (s *ProgressionService) DailyHistory(externalUserID string, days int) ([]models.DailyStat, error) {
	if days < 1 || days > 90 {
		days = 7
	}
	since := time.Now().In(s.Location).AddDate(0, 0, -days).Format("2006-01-02")
	var stats []models.DailyStat
	err := s.DB.Where("external_user_id = ? AND day >= ?", externalUserID, since).
		Order("day DESC, stat ASC").
		Find(&stats).Error
	return stats, err
}

// Leaderboard returns the top users by cumulative XP with derived fields.
func (s *ProgressionService) Leaderboard(limit int) ([]ProgressionSnapshot, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}
	var records []models.UserProgression
	if err := s.DB.Order("total_xp DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}

	entries := make([]ProgressionSnapshot, 0, len(records))
	for i := range records {
		rec := &records[i]
		entries = append(entries, ProgressionSnapshot{
			Record:    rec,
			Level:     LevelFor(rec.TotalXP, s.LevelTable),
			Archetype: ArchetypeFor(rec.WarriorAffinity, rec.MageAffinity, s.Band),
		})
	}
	return entries, nil
}
