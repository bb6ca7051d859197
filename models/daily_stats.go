package models

import "time"

// DailyLog marks that a user submitted reps on a given calendar day
// (day string is YYYY-MM-DD in the user's configured timezone).
type DailyLog struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"index;not null;uniqueIndex:idx_daily_log_user_day" json:"external_user_id"`
	Day            string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_daily_log_user_day" json:"day"`
	Timezone       string    `gorm:"type:varchar(64)" json:"timezone,omitempty"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// DailyStat is a per-(user, day, stat) running total. Same-day submissions
// accumulate additively — there is no daily cap and rows are never deleted
// outside an explicit admin reset.
type DailyStat struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"index;not null;uniqueIndex:idx_daily_stat_user_day_stat" json:"external_user_id"`
	Day            string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_daily_stat_user_day_stat" json:"day"`
	Stat           string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_daily_stat_user_day_stat" json:"stat"`
	Amount         int64     `json:"amount" gorm:"default:0"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
