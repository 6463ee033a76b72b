package handlers

import (
	"dispatch_app_go/config"
	"dispatch_app_go/middleware"
	"time"

	"github.com/labstack/echo/v4"
)

// RouteOptions carries the per-deployment pieces of the API
type RouteOptions struct {
	Config *config.Config
	// Clock is read once per request; nil means the wall clock
	Clock func() time.Time
	// IntakeLimiter and GrabLimiter throttle the public-facing endpoints when set
	IntakeLimiter *middleware.RateLimiter
	GrabLimiter   *middleware.RateLimiter
}

func limit(rl *middleware.RateLimiter) []echo.MiddlewareFunc {
	if rl == nil {
		return nil
	}
	return []echo.MiddlewareFunc{rl.Middleware()}
}

func withConfig(cfg *config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg != nil {
				c.Set("config", cfg)
			}
			return next(c)
		}
	}
}

// RegisterRoutes mounts the scheduling API under /api
func RegisterRoutes(e *echo.Echo, opts RouteOptions) {
	api := e.Group("/api",
		withConfig(opts.Config),
		middleware.RequestClock(opts.Clock),
		middleware.RequireBusiness(),
		middleware.AuditContext(),
	)
	admin := middleware.RequireRole(middleware.RoleAdmin)
	anyone := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleProvider)

	// Intake
	api.POST("/bookings", CreateBookingHandler, append(limit(opts.IntakeLimiter), admin)...)
	api.GET("/bookings/:id", GetBookingHandler, admin)
	api.POST("/bookings/:id/cancel", CancelBookingHandler, admin)

	// Assignment
	api.POST("/bookings/:id/auto-assign", AutoAssignHandler, admin)
	api.GET("/bookings/:id/eligibility", EligibilityHandler, admin)
	api.POST("/bookings/:id/grab", GrabBookingHandler, append(limit(opts.GrabLimiter), anyone)...)
	api.GET("/pool", PoolHandler, anyone)
	api.GET("/calendar", CalendarHandler, anyone)

	// Providers and availability
	api.POST("/providers", CreateProviderHandler, admin)
	api.GET("/providers", ListProvidersHandler, admin)
	api.GET("/providers/:id", GetProviderHandler, anyone)
	api.PUT("/providers/:id/status", UpdateProviderStatusHandler, admin)
	api.POST("/providers/:id/specialties", AddProviderSpecialtyHandler, admin)
	api.GET("/providers/:id/availability", GetProviderAvailabilityHandler, anyone)
	api.GET("/providers/:id/rules", ListAvailabilityRulesHandler, anyone)
	api.POST("/providers/:id/rules", CreateAvailabilityRuleHandler, anyone)
	api.POST("/providers/:id/rules/default", CreateDefaultAvailabilityHandler, admin)
	api.PUT("/providers/:id/rules/:ruleId", UpdateAvailabilityRuleHandler, anyone)
	api.DELETE("/providers/:id/rules/:ruleId", DeleteAvailabilityRuleHandler, anyone)

	// Services
	api.POST("/services", CreateServiceHandler, admin)
	api.POST("/services/:id/exclusions", ExcludeProviderHandler, admin)

	// Recurring series
	api.POST("/series", CreateSeriesHandler, admin)
	api.GET("/series", ListSeriesHandler, admin)
	api.GET("/series/:id", GetSeriesHandler, admin)
	api.POST("/series/:id/extend", ExtendSeriesHandler, admin)
	api.POST("/series/:id/deactivate", DeactivateSeriesHandler, admin)
	api.GET("/deferred", ListDeferredHandler, admin)
	api.POST("/deferred/:id/retry", RetryDeferredHandler, admin)

	// Settings
	api.GET("/settings/limits", GetSpotLimitsHandler, admin)
	api.PUT("/settings/limits", UpdateSpotLimitsHandler, admin)
	api.PUT("/settings/scheduling", UpdateSchedulingSettingsHandler, admin)
	api.GET("/holidays", ListHolidaysHandler, anyone)
	api.POST("/holidays", CreateHolidayHandler, admin)
	api.DELETE("/holidays/:id", DeleteHolidayHandler, admin)

	// Feed, reports, audit
	api.GET("/notifications", GetNotificationsHandler, admin)
	api.GET("/notifications/unread-count", UnreadNotificationCountHandler, admin)
	api.POST("/notifications/read-all", MarkAllNotificationsReadHandler, admin)
	api.POST("/notifications/:id/read", MarkNotificationReadHandler, admin)
	api.GET("/reports/assignments.xlsx", AssignmentReportHandler, admin)
	api.GET("/audit-logs", GetAuditLogsHandler, admin)
	api.GET("/audit-logs/:type/:id", GetResourceHistoryHandler, admin)
}
