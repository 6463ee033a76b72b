package handlers

import (
	"dispatch_app_go/config"
	"dispatch_app_go/db"
	"dispatch_app_go/services"

	"github.com/labstack/echo/v4"
)

// Notifier receives the scheduling events raised by handlers. The server
// replaces it with the dispatcher at startup.
var Notifier services.Notifier = services.NopNotifier{}

func getConfig(c echo.Context) *config.Config {
	if cfg, ok := c.Get("config").(*config.Config); ok {
		return cfg
	}
	return &config.Config{DefaultHorizonDays: 56, Scoring: config.DefaultScoring()}
}

func bookingService() *services.BookingService {
	return services.NewBookingService(db.DB, Notifier)
}

func assignmentService(c echo.Context) *services.AssignmentService {
	return services.NewAssignmentService(db.DB, getConfig(c).Scoring, Notifier)
}

func seriesService(c echo.Context) *services.SeriesService {
	return services.NewSeriesService(db.DB, assignmentService(c), Notifier)
}
