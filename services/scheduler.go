// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/CandyToyBox/analytics-wave-warz-sub001/models"

	"github.com/go-co-op/gocron/v2"
)

// StartRefreshScheduler runs the periodic maintenance jobs:
//   - leaderboard rebuild every 5 minutes (backstop for missed webhook
//     completions — the webhook also refreshes on each completion)
//   - hourly cleanup enforcing that test battles are never quick battles
func (s *LeaderboardService) StartRefreshScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			if err := s.RefreshLeaderboards(); err != nil {
				log.Printf("[Scheduler] Leaderboard refresh failed: %v", err)
				return
			}
			log.Println("✅ Leaderboards refreshed")
		}),
	)

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			result := s.DB.Model(&models.Battle{}).
				Where("is_test_battle = ? AND is_quick_battle = ?", true, true).
				Update("is_quick_battle", false)
			if result.Error != nil {
				log.Printf("[Scheduler] Test-battle cleanup failed: %v", result.Error)
				return
			}
			if result.RowsAffected > 0 {
				log.Printf("🧹 Cleared quick flag on %d test battle(s)", result.RowsAffected)
			}
		}),
	)
}
