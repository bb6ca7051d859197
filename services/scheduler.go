// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartDuelSweep runs the periodic wall-clock sweep: expire pending duels
// past their acceptance deadline and finalize active duels past their end
// time. Both operations are idempotent, so overlapping runs are harmless.
func (s *DuelService) StartDuelSweep(interval time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			expired, err := s.ExpirePending()
			if err != nil {
				log.Printf("[DuelSweep] expire error: %v", err)
			} else if expired > 0 {
				log.Printf("[DuelSweep] expired %d pending duel(s)", expired)
			}

			finalized, err := s.FinalizeDue()
			if err != nil {
				log.Printf("[DuelSweep] finalize error: %v", err)
			} else if finalized > 0 {
				log.Printf("✅ [DuelSweep] finalized %d duel(s)", finalized)
			}
		}),
	)
}
