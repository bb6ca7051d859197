package models

import (
	"time"

	"gorm.io/gorm"
)

// UserProgression tracks cumulative XP and affinity totals for each user.
// Level and archetype are derived on demand from these totals — they are
// never stored, so threshold or weight tuning can never leave stale columns.
type UserProgression struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to identity service
	Username       string `json:"username"`

	// Cumulative totals — mutated only through atomic add-in-place updates
	TotalXP         int64 `json:"total_xp" gorm:"default:0"`
	WarriorAffinity int64 `json:"warrior_affinity" gorm:"default:0"`
	MageAffinity    int64 `json:"mage_affinity" gorm:"default:0"`
	// TemplarAffinity is a reserved axis: no stat in the current catalog
	// carries a templar weight, so only admin adjustments can move it.
	TemplarAffinity int64 `json:"templar_affinity" gorm:"default:0"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
