package main

import (
	"context"
	"dispatch_app_go/config"
	"dispatch_app_go/db"
	"dispatch_app_go/handlers"
	"dispatch_app_go/middleware"
	"dispatch_app_go/models"
	"dispatch_app_go/services"
	"dispatch_app_go/services/jobs"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	services.ConfigureHolidayCache(cfg.HolidayCacheSize, cfg.HolidayCacheTTL)

	// Notification channels
	channels := []services.Channel{
		services.NewStoreChannel(db.DB),
		services.NewEmailChannel(db.DB, cfg),
	}
	queue, err := services.NewQueueChannel(cfg)
	if err != nil {
		log.Printf("Warning: scheduling events will not be published: %v", err)
	}
	if queue != nil {
		channels = append(channels, queue)
		defer queue.Close()
	}
	dispatcher := services.NewDispatcher(channels...)
	handlers.Notifier = dispatcher

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()

	// Middleware
	e.Use(echomiddleware.RequestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	intake := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Requests: 60,
		Window:   time.Minute,
	})
	defer intake.Stop()
	grab := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Requests: 20,
		Window:   time.Minute,
		KeyFunc:  middleware.ByProvider,
		Message:  "Too many grab attempts. Please slow down.",
	})
	defer grab.Stop()

	handlers.RegisterRoutes(e, handlers.RouteOptions{
		Config:        cfg,
		IntakeLimiter: intake,
		GrabLimiter:   grab,
	})

	// Start background jobs
	scheduler := jobs.StartScheduler(db.DB, cfg)

	// Start server
	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	<-scheduler.Stop().Done()
	dispatcher.Close()
	services.WaitForAuditLogs()
}
