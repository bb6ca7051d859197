package models

import "time"

// Duel statuses
const (
	DuelPending   = "pending"
	DuelActive    = "active"
	DuelDeclined  = "declined"
	DuelExpired   = "expired"
	DuelCompleted = "completed"
	DuelCancelled = "cancelled"
)

// Duel is a two-party, time-boxed XP competition with a fairness constraint
// on affinity balance. Start/final XP are snapshots of each party's
// cumulative XP taken at accept time and finalize time.
type Duel struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	ChallengerID string `gorm:"index;not null" json:"challenger_id"`
	OpponentID   string `gorm:"index;not null" json:"opponent_id"`
	Status       string `gorm:"type:varchar(16);default:'pending';index" json:"status"`

	// XP snapshots
	ChallengerStartXP int64 `json:"challenger_start_xp" gorm:"default:0"`
	OpponentStartXP   int64 `json:"opponent_start_xp" gorm:"default:0"`
	ChallengerFinalXP int64 `json:"challenger_final_xp" gorm:"default:0"`
	OpponentFinalXP   int64 `json:"opponent_final_xp" gorm:"default:0"`

	// Affinity gained since duel start, per party — feeds the warrior-share
	// fairness ratio
	ChallengerWarriorGain int64 `json:"challenger_warrior_gain" gorm:"default:0"`
	ChallengerMageGain    int64 `json:"challenger_mage_gain" gorm:"default:0"`
	OpponentWarriorGain   int64 `json:"opponent_warrior_gain" gorm:"default:0"`
	OpponentMageGain      int64 `json:"opponent_mage_gain" gorm:"default:0"`

	// Sticky penalty flags: once true they are never cleared, even if the
	// party's ratio later returns to band
	ChallengerBalancePenalty bool `json:"challenger_balance_penalty" gorm:"default:false"`
	OpponentBalancePenalty   bool `json:"opponent_balance_penalty" gorm:"default:false"`

	AcceptDeadline *time.Time `json:"accept_deadline,omitempty"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty" gorm:"index"`
	WinnerID       *string    `json:"winner_id,omitempty"` // nil on completed duel = draw

	Timestamps
}

// IsTerminal reports whether no further transitions are possible.
func (d *Duel) IsTerminal() bool {
	switch d.Status {
	case DuelDeclined, DuelExpired, DuelCompleted, DuelCancelled:
		return true
	}
	return false
}

// ParticipantSide tells which side of the duel a user is on.
func (d *Duel) ParticipantSide(userID string) (challenger bool, ok bool) {
	switch userID {
	case d.ChallengerID:
		return true, true
	case d.OpponentID:
		return false, true
	}
	return false, false
}
