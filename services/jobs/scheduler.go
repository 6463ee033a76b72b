package jobs

import (
	"dispatch_app_go/config"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// StartScheduler starts the background jobs. Series generation is not one of
// them: it runs on demand from the calendar and the extend-series command.
func StartScheduler(database *gorm.DB, cfg *config.Config) *cron.Cron {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc(cfg.ReminderCron, func() {
		log.Println("[CRON] Running booking reminders...")
		SendBookingReminders(database, cfg, time.Now())
	})
	if err != nil {
		log.Fatalf("[CRON] Failed to schedule reminders (%q): %v", cfg.ReminderCron, err)
	}

	c.Start()
	log.Printf("[CRON] Scheduler started (reminders: %s)", cfg.ReminderCron)
	return c
}
