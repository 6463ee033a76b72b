package handlers

import (
	"dispatch_app_go/db"
	"dispatch_app_go/middleware"
	"dispatch_app_go/models"
	"dispatch_app_go/services"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// CreateSeriesRequest defines a recurring booking
type CreateSeriesRequest struct {
	ServiceID       string           `json:"service_id" validate:"omitempty,uuid"`
	CustomerID      string           `json:"customer_id" validate:"max=100"`
	CustomerName    string           `json:"customer_name" validate:"required,max=200"`
	CustomerEmail   string           `json:"customer_email" validate:"omitempty,email,max=200"`
	Address         string           `json:"address" validate:"max=500"`
	Notes           string           `json:"notes" validate:"max=2000"`
	Time            string           `json:"time" validate:"required"`
	DurationMinutes int              `json:"duration_minutes" validate:"gte=0,lte=1440"`
	Price           *decimal.Decimal `json:"price"`
	FrequencyKind   string           `json:"frequency_kind" validate:"required,oneof=interval monthly_day monthly_weekday"`
	IntervalDays    int              `json:"interval_days" validate:"gte=0,lte=366"`
	StartDate       string           `json:"start_date" validate:"required"`
	EndDate         string           `json:"end_date"`
	IgnoreHolidays  bool             `json:"ignore_holidays"`
}

// SeriesResponse is a series with the outcome of its latest extension
type SeriesResponse struct {
	Series    *models.RecurringSeries `json:"series"`
	Extension *services.ExtendResult  `json:"extension,omitempty"`
}

// defaultHorizon is the exclusive date series are generated up to when no
// explicit horizon is given
func defaultHorizon(c echo.Context) models.Date {
	return businessToday(c).AddDays(getConfig(c).DefaultHorizonDays)
}

// CreateSeriesHandler stores a series and generates its first occurrences
func CreateSeriesHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	now := middleware.Now(c)

	var req CreateSeriesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	start, err := parseClock(req.Time, "time")
	if err != nil {
		return err
	}
	startDate, err := parseDate(req.StartDate, "start_date")
	if err != nil {
		return err
	}
	endDate, err := parseOptionalDate(req.EndDate, "end_date")
	if err != nil {
		return err
	}

	series := &models.RecurringSeries{
		BusinessID:      business.ID,
		ServiceID:       optionalString(req.ServiceID),
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		Address:         req.Address,
		Notes:           req.Notes,
		ScheduledTime:   start,
		DurationMinutes: req.DurationMinutes,
		FrequencyKind:   req.FrequencyKind,
		IntervalDays:    req.IntervalDays,
		StartDate:       startDate,
		EndDate:         endDate,
		IgnoreHolidays:  req.IgnoreHolidays,
	}
	if req.Price != nil {
		series.Price = *req.Price
	}

	svc := seriesService(c)
	ctx := c.Request().Context()
	if err := svc.CreateSeries(ctx, series, now); err != nil {
		return schedulingHTTPError(err)
	}
	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), models.AuditActionCreate,
		"RecurringSeries", series.ID, "Recurring series created", nil, series)

	extension, err := svc.Extend(ctx, business.ID, series.ID, defaultHorizon(c), now)
	if err != nil {
		return schedulingHTTPError(err)
	}
	stored, err := services.GetSeries(db.DB, business.ID, series.ID)
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusCreated, SeriesResponse{Series: stored, Extension: extension})
}

// ListSeriesHandler lists series, only active ones with ?active=true
func ListSeriesHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	series, err := services.ListSeries(db.DB, business.ID, queryBool(c, "active"))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, series)
}

// GetSeriesHandler returns one series
func GetSeriesHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	series, err := services.GetSeries(db.DB, business.ID, c.Param("id"))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, SeriesResponse{Series: series})
}

type extendRequest struct {
	// Through is the last date to generate, inclusive
	Through string `json:"through"`
}

// ExtendSeriesHandler generates a series through the given date (default
// horizon when empty). Repeating the call creates nothing new.
func ExtendSeriesHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)

	var req extendRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	horizon := defaultHorizon(c)
	if req.Through != "" {
		through, err := parseDate(req.Through, "through")
		if err != nil {
			return err
		}
		horizon = through.AddDays(1)
	}

	result, err := seriesService(c).Extend(c.Request().Context(), business.ID, c.Param("id"), horizon, middleware.Now(c))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// DeactivateSeriesHandler stops a series; bookings already generated stay
func DeactivateSeriesHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	id := c.Param("id")
	if err := services.DeactivateSeries(db.DB, business.ID, id); err != nil {
		return schedulingHTTPError(err)
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), models.AuditActionDisable,
		"RecurringSeries", id, "Recurring series deactivated",
		map[string]interface{}{"is_active": true}, map[string]interface{}{"is_active": false})
	return c.NoContent(http.StatusNoContent)
}

// ListDeferredHandler lists occurrences the capacity guard held back
func ListDeferredHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	deferred, err := services.ListDeferred(db.DB, business.ID, queryBool(c, "include_resolved"))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, deferred)
}

// RetryDeferredHandler tries a deferred occurrence against the capacity guard again
func RetryDeferredHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	booking, err := seriesService(c).RetryDeferred(c.Request().Context(), business.ID, c.Param("id"), middleware.Now(c))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusCreated, booking)
}
