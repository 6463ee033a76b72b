package main

import (
	"context"
	"dispatch_app_go/config"
	"dispatch_app_go/db"
	"dispatch_app_go/models"
	"dispatch_app_go/services"
	"flag"
	"log"
	"time"
)

// extend-series materializes recurring series up to a horizon. Run it from
// cron or by hand after changing series or limits.
func main() {
	businessID := flag.String("business", "", "Business ID (default: every business)")
	days := flag.Int("days", 0, "Horizon in days from today (default: DEFAULT_HORIZON_DAYS)")
	flag.Parse()

	cfg := config.Load()
	if *days <= 0 {
		*days = cfg.DefaultHorizonDays
	}

	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	services.ConfigureHolidayCache(cfg.HolidayCacheSize, cfg.HolidayCacheTTL)

	var businesses []models.Business
	query := db.DB.Order("created_at")
	if *businessID != "" {
		query = query.Where("id = ?", *businessID)
	}
	if err := query.Find(&businesses).Error; err != nil {
		log.Fatalf("Failed to load businesses: %v", err)
	}
	if len(businesses) == 0 {
		log.Fatalf("No business found")
	}

	// Notifications land in the store only; email and queue belong to the server.
	dispatcher := services.NewDispatcher(services.NewStoreChannel(db.DB))
	assigner := services.NewAssignmentService(db.DB, cfg.Scoring, dispatcher)
	series := services.NewSeriesService(db.DB, assigner, dispatcher)

	now := time.Now().UTC()
	ctx := context.Background()
	failed := 0
	for _, business := range businesses {
		horizon := business.Today(now).AddDays(*days)
		result, err := series.ExtendAll(ctx, business.ID, horizon, now)
		if err != nil {
			log.Printf("✗ %s: %v", business.Name, err)
			failed++
			continue
		}
		log.Printf("✓ %s: %d series, %d created, %d deferred", business.Name, result.Series, result.Created, result.Deferred)
		for _, id := range result.Failed {
			log.Printf("  ✗ series %s failed", id)
		}
	}
	dispatcher.Close()

	if failed > 0 {
		log.Fatalf("%d business(es) failed", failed)
	}
}
