package services

import "log"

// LevelUpEvent is emitted when a user's derived level increases.
type LevelUpEvent struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	OldClass string `json:"old_class"`
	NewClass string `json:"new_class"`
}

// ArchetypeChangeEvent is emitted when a user's derived archetype label flips.
type ArchetypeChangeEvent struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username,omitempty"`
	OldArchetype string `json:"old_archetype"`
	NewArchetype string `json:"new_archetype"`
}

// DuelResolvedEvent is emitted when a duel reaches completed. WinnerID nil
// means draw.
type DuelResolvedEvent struct {
	DuelID       string  `json:"duel_id"`
	ChallengerID string  `json:"challenger_id"`
	OpponentID   string  `json:"opponent_id"`
	WinnerID     *string `json:"winner_id,omitempty"`
}

// Notifier hands transition events to an external announcer. This engine
// never formats or delivers messages itself.
type Notifier interface {
	NotifyLevelUp(LevelUpEvent)
	NotifyArchetypeChange(ArchetypeChangeEvent)
	NotifyDuelResolved(DuelResolvedEvent)
}

// LogNotifier is the default announcer: it just logs.
type LogNotifier struct{}

func (LogNotifier) NotifyLevelUp(e LevelUpEvent) {
	log.Printf("🎉 Level up: %s → L%d (%s) from L%d (%s)", e.UserID, e.NewLevel, e.NewClass, e.OldLevel, e.OldClass)
}

func (LogNotifier) NotifyArchetypeChange(e ArchetypeChangeEvent) {
	log.Printf("🔮 Archetype change: %s → %s (was %s)", e.UserID, e.NewArchetype, e.OldArchetype)
}

func (LogNotifier) NotifyDuelResolved(e DuelResolvedEvent) {
	if e.WinnerID == nil {
		log.Printf("⚔️ Duel %s resolved: draw", e.DuelID)
		return
	}
	log.Printf("⚔️ Duel %s resolved: winner %s", e.DuelID, *e.WinnerID)
}
