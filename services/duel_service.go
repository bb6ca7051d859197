package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"social-rpg-system/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Duel transition errors — descriptive, and a failed call never mutates the
// record.
var (
	ErrSelfChallenge      = errors.New("you cannot challenge yourself")
	ErrBotOpponent        = errors.New("you cannot challenge a bot")
	ErrChallengeCooldown  = errors.New("challenge cooldown active, try again later")
	ErrDuelConflict       = errors.New("a pending or active duel already exists for a participant")
	ErrDuelNotFound       = errors.New("duel not found")
	ErrDuelNotPending     = errors.New("duel is not pending")
	ErrDuelNotActive      = errors.New("duel is not active")
	ErrNotOpponent        = errors.New("only the challenged opponent may accept")
	ErrNotParticipant     = errors.New("user is not a participant of this duel")
	ErrAcceptWindowClosed = errors.New("acceptance window has closed")
	ErrDuelStillRunning   = errors.New("duel has not reached its end time")
)

// cooldownStore is the slice of redis the challenge rate limiter needs.
// *redis.Client satisfies it.
type cooldownStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// DuelService manages the two-party, time-boxed XP competition. The duel
// fairness ratio is each party's warrior share of affinity gained since duel
// start; leaving the band sets a sticky penalty flag.
type DuelService struct {
	DB       *gorm.DB
	Redis    cooldownStore // challenge cooldown; nil disables rate limiting
	Notifier Notifier
	Band     BalanceBand // warrior-share band
	IsBot    func(userID string) bool

	AcceptWindow time.Duration
	Duration     time.Duration
	Cooldown     time.Duration

	Now func() time.Time
}

func NewDuelService(db *gorm.DB, rdb *redis.Client) *DuelService {
	s := &DuelService{
		DB:           db,
		Notifier:     LogNotifier{},
		Band:         DefaultBalanceBand,
		IsBot:        func(string) bool { return false },
		AcceptWindow: time.Hour,
		Duration:     24 * time.Hour,
		Cooldown:     time.Hour,
		Now:          time.Now,
	}
	if rdb != nil {
		s.Redis = rdb
	}
	return s
}

// Challenge creates a pending duel with a fixed acceptance window. Nothing
// is snapshotted yet — start XP is taken at accept time.
func (s *DuelService) Challenge(challengerID, opponentID string) (*models.Duel, error) {
	if challengerID == opponentID {
		return nil, ErrSelfChallenge
	}
	if s.IsBot(opponentID) {
		return nil, ErrBotOpponent
	}

	var open int64
	if err := s.DB.Model(&models.Duel{}).
		Where("status IN ? AND (challenger_id IN ? OR opponent_id IN ?)",
			[]string{models.DuelPending, models.DuelActive},
			[]string{challengerID, opponentID},
			[]string{challengerID, opponentID}).
		Count(&open).Error; err != nil {
		return nil, err
	}
	if open > 0 {
		return nil, ErrDuelConflict
	}

	// Cooldown is consumed last so a rejected challenge doesn't burn it
	if err := s.acquireCooldown(challengerID); err != nil {
		return nil, err
	}

	deadline := s.Now().Add(s.AcceptWindow)
	duel := models.Duel{
		ID:             uuid.NewString(),
		ChallengerID:   challengerID,
		OpponentID:     opponentID,
		Status:         models.DuelPending,
		AcceptDeadline: &deadline,
	}
	if err := s.DB.Create(&duel).Error; err != nil {
		return nil, err
	}
	log.Printf("⚔️ Duel challenged: %s → %s (accept by %s)", challengerID, opponentID, deadline.Format(time.RFC3339))
	return &duel, nil
}

func (s *DuelService) acquireCooldown(challengerID string) error {
	if s.Redis == nil {
		return nil
	}
	ok, err := s.Redis.SetNX(context.Background(), "duel:cooldown:"+challengerID, 1, s.Cooldown).Result()
	if err != nil {
		// Rate limiting degrades open, not closed
		log.Printf("⚠️ [Duel] cooldown check failed for %s: %v", challengerID, err)
		return nil
	}
	if !ok {
		return ErrChallengeCooldown
	}
	return nil
}

// Accept transitions pending → active. Only the named opponent may accept,
// and only inside the acceptance window; a late accept fails without
// touching the record (the sweep owns the expiry transition).
func (s *DuelService) Accept(duelID, userID string) (*models.Duel, error) {
	duel, err := s.load(duelID)
	if err != nil {
		return nil, err
	}
	if duel.Status != models.DuelPending {
		return nil, fmt.Errorf("%w (status: %s)", ErrDuelNotPending, duel.Status)
	}
	if userID != duel.OpponentID {
		return nil, ErrNotOpponent
	}
	now := s.Now()
	if duel.AcceptDeadline != nil && now.After(*duel.AcceptDeadline) {
		return nil, ErrAcceptWindowClosed
	}

	challengerXP, err := s.currentXP(duel.ChallengerID)
	if err != nil {
		return nil, err
	}
	opponentXP, err := s.currentXP(duel.OpponentID)
	if err != nil {
		return nil, err
	}

	end := now.Add(s.Duration)
	res := s.DB.Model(&models.Duel{}).
		Where("id = ? AND status = ?", duel.ID, models.DuelPending).
		Updates(map[string]interface{}{
			"status":              models.DuelActive,
			"challenger_start_xp": challengerXP,
			"opponent_start_xp":   opponentXP,
			"start_time":          now,
			"end_time":            end,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrDuelNotPending
	}
	log.Printf("⚔️ Duel %s accepted by %s, runs until %s", duel.ID, userID, end.Format(time.RFC3339))
	return s.load(duel.ID)
}

// Decline lets either party decline while pending. Terminal.
func (s *DuelService) Decline(duelID, userID string) (*models.Duel, error) {
	duel, err := s.load(duelID)
	if err != nil {
		return nil, err
	}
	if duel.Status != models.DuelPending {
		return nil, fmt.Errorf("%w (status: %s)", ErrDuelNotPending, duel.Status)
	}
	if _, ok := duel.ParticipantSide(userID); !ok {
		return nil, ErrNotParticipant
	}

	res := s.DB.Model(&models.Duel{}).
		Where("id = ? AND status = ?", duel.ID, models.DuelPending).
		Update("status", models.DuelDeclined)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrDuelNotPending
	}
	return s.load(duel.ID)
}

// Cancel is the admin escape hatch for pending or active duels.
func (s *DuelService) Cancel(duelID string) (*models.Duel, error) {
	duel, err := s.load(duelID)
	if err != nil {
		return nil, err
	}
	if duel.IsTerminal() {
		return duel, nil
	}
	res := s.DB.Model(&models.Duel{}).
		Where("id = ? AND status IN ?", duel.ID, []string{models.DuelPending, models.DuelActive}).
		Update("status", models.DuelCancelled)
	if res.Error != nil {
		return nil, res.Error
	}
	return s.load(duel.ID)
}

// RecordGainsForUser forwards one submission's affinity deltas into the
// user's active duel, if any. Gains accumulate with atomic adds; when the
// party's warrior share leaves the band its penalty flag is set and stays
// set. XP is not tracked here — net duel XP comes from the start/final
// snapshots.
func (s *DuelService) RecordGainsForUser(userID string, warriorDelta, mageDelta int64) error {
	var duel models.Duel
	err := s.DB.Where("status = ? AND (challenger_id = ? OR opponent_id = ?)",
		models.DuelActive, userID, userID).First(&duel).Error
	if err == gorm.ErrRecordNotFound {
		return nil // no active duel — nothing to do
	}
	if err != nil {
		return err
	}

	now := s.Now()
	if duel.EndTime != nil && now.After(*duel.EndTime) {
		return nil // past end time; the sweep will finalize
	}

	challenger, _ := duel.ParticipantSide(userID)
	warriorCol, mageCol, penaltyCol := "opponent_warrior_gain", "opponent_mage_gain", "opponent_balance_penalty"
	if challenger {
		warriorCol, mageCol, penaltyCol = "challenger_warrior_gain", "challenger_mage_gain", "challenger_balance_penalty"
	}

	res := s.DB.Model(&models.Duel{}).
		Where("id = ? AND status = ?", duel.ID, models.DuelActive).
		UpdateColumns(map[string]interface{}{
			warriorCol:   gorm.Expr(warriorCol+" + ?", warriorDelta),
			mageCol:      gorm.Expr(mageCol+" + ?", mageDelta),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil // lost a race with finalize/cancel; not this caller's problem
	}

	updated, err := s.load(duel.ID)
	if err != nil {
		return err
	}

	warriorGain, mageGain := updated.OpponentWarriorGain, updated.OpponentMageGain
	if challenger {
		warriorGain, mageGain = updated.ChallengerWarriorGain, updated.ChallengerMageGain
	}
	if OutOfBand(WarriorShare(warriorGain, mageGain), s.Band) && warriorGain+mageGain > 0 {
		// One-way flip: false → true only
		if err := s.DB.Model(&models.Duel{}).
			Where("id = ?", duel.ID).
			UpdateColumn(penaltyCol, true).Error; err != nil {
			return err
		}
		log.Printf("⚠️ [Duel] balance penalty set for %s in duel %s (warrior share %.2f)",
			userID, duel.ID, WarriorShare(warriorGain, mageGain))
	}
	return nil
}

// WarriorShare is warrior_gain / (warrior_gain + mage_gain); 0.5 when no
// affinity has accumulated yet, so an idle party is never penalized.
func WarriorShare(warriorGain, mageGain int64) float64 {
	total := warriorGain + mageGain
	if total == 0 {
		return 0.5
	}
	return float64(warriorGain) / float64(total)
}

// OutOfBand reports whether a warrior share leaves the fairness band.
func OutOfBand(share float64, band BalanceBand) bool {
	return share < band.Low || share > band.High
}

// DecideWinner applies the penalty-aware outcome rule to a finalized duel:
// one penalized party ⇒ the other wins regardless of XP; both ⇒ draw;
// neither ⇒ greater net XP wins, equal ⇒ draw. Nil means draw.
func DecideWinner(d *models.Duel) *string {
	chPen, opPen := d.ChallengerBalancePenalty, d.OpponentBalancePenalty
	switch {
	case chPen && opPen:
		return nil
	case chPen:
		return &d.OpponentID
	case opPen:
		return &d.ChallengerID
	}

	chDelta := d.ChallengerFinalXP - d.ChallengerStartXP
	opDelta := d.OpponentFinalXP - d.OpponentStartXP
	switch {
	case chDelta > opDelta:
		return &d.ChallengerID
	case opDelta > chDelta:
		return &d.OpponentID
	}
	return nil
}

// Finalize completes an active duel at or after its end time. Re-finalizing
// a terminal duel is a no-op, so the periodic sweep can call it repeatedly.
func (s *DuelService) Finalize(duelID string) (*models.Duel, error) {
	duel, err := s.load(duelID)
	if err != nil {
		return nil, err
	}
	if duel.IsTerminal() {
		return duel, nil
	}
	if duel.Status != models.DuelActive {
		return nil, fmt.Errorf("%w (status: %s)", ErrDuelNotActive, duel.Status)
	}
	if duel.EndTime != nil && s.Now().Before(*duel.EndTime) {
		return nil, ErrDuelStillRunning
	}

	challengerXP, err := s.currentXP(duel.ChallengerID)
	if err != nil {
		return nil, err
	}
	opponentXP, err := s.currentXP(duel.OpponentID)
	if err != nil {
		return nil, err
	}

	duel.ChallengerFinalXP = challengerXP
	duel.OpponentFinalXP = opponentXP
	winner := DecideWinner(duel)

	res := s.DB.Model(&models.Duel{}).
		Where("id = ? AND status = ?", duel.ID, models.DuelActive).
		Updates(map[string]interface{}{
			"status":              models.DuelCompleted,
			"challenger_final_xp": challengerXP,
			"opponent_final_xp":   opponentXP,
			"winner_id":           winner,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Another sweep won the race; report the stored outcome
		return s.load(duel.ID)
	}

	s.Notifier.NotifyDuelResolved(DuelResolvedEvent{
		DuelID:       duel.ID,
		ChallengerID: duel.ChallengerID,
		OpponentID:   duel.OpponentID,
		WinnerID:     winner,
	})
	return s.load(duel.ID)
}

// ExpirePending transitions pending duels past their acceptance deadline to
// expired. Called by the periodic sweep; idempotent.
func (s *DuelService) ExpirePending() (int64, error) {
	res := s.DB.Model(&models.Duel{}).
		Where("status = ? AND accept_deadline < ?", models.DuelPending, s.Now()).
		Update("status", models.DuelExpired)
	return res.RowsAffected, res.Error
}

// FinalizeDue finalizes every active duel whose end time has passed.
func (s *DuelService) FinalizeDue() (int, error) {
	var due []models.Duel
	if err := s.DB.Where("status = ? AND end_time <= ?", models.DuelActive, s.Now()).
		Find(&due).Error; err != nil {
		return 0, err
	}

	var done int
	for i := range due {
		if _, err := s.Finalize(due[i].ID); err != nil {
			log.Printf("⚠️ [DuelSweep] finalize %s failed: %v", due[i].ID, err)
			continue
		}
		done++
	}
	return done, nil
}

// DuelSnapshot is the command-boundary view of a duel.
type DuelSnapshot struct {
	ID                     string     `json:"id"`
	Status                 string     `json:"status"`
	ChallengerID           string     `json:"challenger_id"`
	OpponentID             string     `json:"opponent_id"`
	ChallengerNetXP        int64      `json:"challenger_net_xp"`
	OpponentNetXP          int64      `json:"opponent_net_xp"`
	ChallengerWarriorShare float64    `json:"challenger_warrior_share"`
	OpponentWarriorShare   float64    `json:"opponent_warrior_share"`
	ChallengerPenalized    bool       `json:"challenger_penalized"`
	OpponentPenalized      bool       `json:"opponent_penalized"`
	WinnerID               *string    `json:"winner_id,omitempty"`
	AcceptDeadline         *time.Time `json:"accept_deadline,omitempty"`
	StartTime              *time.Time `json:"start_time,omitempty"`
	EndTime                *time.Time `json:"end_time,omitempty"`
}

// Status builds a snapshot; for an active duel net XP is live (current
// cumulative minus start), for a completed duel it is final minus start.
func (s *DuelService) Status(duelID string) (*DuelSnapshot, error) {
	duel, err := s.load(duelID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(duel)
}

// History returns recent duels involving the user, newest first.
func (s *DuelService) History(userID string, limit int) ([]DuelSnapshot, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}
	var duels []models.Duel
	if err := s.DB.Where("challenger_id = ? OR opponent_id = ?", userID, userID).
		Order("created_at DESC").Limit(limit).
		Find(&duels).Error; err != nil {
		return nil, err
	}

	snaps := make([]DuelSnapshot, 0, len(duels))
	for i := range duels {
		snap, err := s.snapshot(&duels[i])
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, nil
}

func (s *DuelService) snapshot(duel *models.Duel) (*DuelSnapshot, error) {
	snap := &DuelSnapshot{
		ID:                     duel.ID,
		Status:                 duel.Status,
		ChallengerID:           duel.ChallengerID,
		OpponentID:             duel.OpponentID,
		ChallengerWarriorShare: WarriorShare(duel.ChallengerWarriorGain, duel.ChallengerMageGain),
		OpponentWarriorShare:   WarriorShare(duel.OpponentWarriorGain, duel.OpponentMageGain),
		ChallengerPenalized:    duel.ChallengerBalancePenalty,
		OpponentPenalized:      duel.OpponentBalancePenalty,
		WinnerID:               duel.WinnerID,
		AcceptDeadline:         duel.AcceptDeadline,
		StartTime:              duel.StartTime,
		EndTime:                duel.EndTime,
	}

	switch duel.Status {
	case models.DuelActive:
		challengerXP, err := s.currentXP(duel.ChallengerID)
		if err != nil {
			return nil, err
		}
		opponentXP, err := s.currentXP(duel.OpponentID)
		if err != nil {
			return nil, err
		}
		snap.ChallengerNetXP = challengerXP - duel.ChallengerStartXP
		snap.OpponentNetXP = opponentXP - duel.OpponentStartXP
	case models.DuelCompleted:
		snap.ChallengerNetXP = duel.ChallengerFinalXP - duel.ChallengerStartXP
		snap.OpponentNetXP = duel.OpponentFinalXP - duel.OpponentStartXP
	}
	return snap, nil
}

func (s *DuelService) load(duelID string) (*models.Duel, error) {
	var duel models.Duel
	err := s.DB.Where("id = ?", duelID).First(&duel).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrDuelNotFound
	}
	if err != nil {
		return nil, err
	}
	return &duel, nil
}

func (s *DuelService) currentXP(userID string) (int64, error) {
	var prog models.UserProgression
	err := s.DB.Select("total_xp").Where("external_user_id = ?", userID).First(&prog).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return prog.TotalXP, nil
}
