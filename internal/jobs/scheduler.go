package jobs

import (
	"log"
	"time"

	"github.com/estatedesk/backoffice/internal/services/commission"
	"github.com/estatedesk/backoffice/internal/services/network"
	"github.com/go-co-op/gocron"
)

// StartScheduler runs the periodic maintenance jobs: a nightly full refresh
// of the cached network aggregates and the monthly commission counter
// rollover. Returns the scheduler so the caller can stop it on shutdown.
func StartScheduler(statsService *network.StatsService, ledgerService *commission.LedgerService) *gocron.Scheduler {
	scheduler := gocron.NewScheduler(time.UTC)

	// Nightly sweep. Aggregates are recomputable at any time; this catches
	// anything a queued refresh missed.
	if _, err := scheduler.Every(1).Day().At("03:00").Do(func() {
		if err := statsService.RefreshAll(); err != nil {
			log.Printf("nightly stats refresh failed: %v", err)
		}
	}); err != nil {
		log.Printf("failed to schedule nightly stats refresh: %v", err)
	}

	// Calendar-month rollover of the current-period counters.
	if _, err := scheduler.Cron("0 0 1 * *").Do(func() {
		if err := ledgerService.ResetMonthlyTotals(); err != nil {
			log.Printf("monthly commission rollover failed: %v", err)
		}
	}); err != nil {
		log.Printf("failed to schedule monthly rollover: %v", err)
	}

	scheduler.StartAsync()
	return scheduler
}
