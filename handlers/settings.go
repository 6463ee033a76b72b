package handlers

import (
	"dispatch_app_go/db"
	"dispatch_app_go/middleware"
	"dispatch_app_go/models"
	"dispatch_app_go/services"
	"net/http"

	"github.com/labstack/echo/v4"
)

// SpotLimitsResponse shows the stored limits next to the load of a date
type SpotLimitsResponse struct {
	Configured *models.BusinessSpotLimits `json:"configured"`
	Usage      *services.CapacityUsage    `json:"usage"`
}

// GetSpotLimitsHandler returns limits and usage for ?date= (default today)
func GetSpotLimitsHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	date := businessToday(c)
	if v := c.QueryParam("date"); v != "" {
		d, err := parseDate(v, "date")
		if err != nil {
			return err
		}
		date = d
	}

	limits, err := services.GetSpotLimits(db.DB, business.ID)
	if err != nil {
		return schedulingHTTPError(err)
	}
	usage, err := services.GetCapacityUsage(db.DB, business.ID, date)
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, SpotLimitsResponse{Configured: limits, Usage: usage})
}

// SpotLimitsRequest replaces the limits; zero means "use the default"
type SpotLimitsRequest struct {
	MaxBookingsPerDay     int  `json:"max_bookings_per_day" validate:"gte=0"`
	MaxBookingsPerWeek    int  `json:"max_bookings_per_week" validate:"gte=0"`
	MaxBookingsPerMonth   int  `json:"max_bookings_per_month" validate:"gte=0"`
	MaxAdvanceBookingDays int  `json:"max_advance_booking_days" validate:"gte=0,lte=3650"`
	Enabled               bool `json:"enabled"`
}

// UpdateSpotLimitsHandler stores the capacity limits of the business
func UpdateSpotLimitsHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)

	var req SpotLimitsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	before, err := services.GetSpotLimits(db.DB, business.ID)
	if err != nil {
		return schedulingHTTPError(err)
	}

	limits := &models.BusinessSpotLimits{
		BusinessID:            business.ID,
		MaxBookingsPerDay:     req.MaxBookingsPerDay,
		MaxBookingsPerWeek:    req.MaxBookingsPerWeek,
		MaxBookingsPerMonth:   req.MaxBookingsPerMonth,
		MaxAdvanceBookingDays: req.MaxAdvanceBookingDays,
		Enabled:               req.Enabled,
	}
	if err := services.UpsertSpotLimits(db.DB, limits); err != nil {
		return schedulingHTTPError(err)
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), models.AuditActionUpdate,
		"BusinessSpotLimits", limits.ID, "Capacity limits changed", before, limits)
	return c.JSON(http.StatusOK, limits)
}

// SchedulingSettingsRequest toggles the assignment modes
type SchedulingSettingsRequest struct {
	AutoAssignEnabled bool `json:"auto_assign_enabled"`
	GrabEnabled       bool `json:"grab_enabled"`
}

// UpdateSchedulingSettingsHandler switches auto-assignment and grabbing on or off
func UpdateSchedulingSettingsHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)

	var req SchedulingSettingsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := services.UpdateSchedulingSettings(db.DB, business.ID, req.AutoAssignEnabled, req.GrabEnabled); err != nil {
		return schedulingHTTPError(err)
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), models.AuditActionUpdate,
		"Business", business.ID, "Scheduling settings changed",
		SchedulingSettingsRequest{AutoAssignEnabled: business.AutoAssignEnabled, GrabEnabled: business.GrabEnabled},
		req)
	return c.JSON(http.StatusOK, req)
}
