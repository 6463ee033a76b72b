package handlers

import (
	"dispatch_app_go/db"
	"dispatch_app_go/middleware"
	"dispatch_app_go/models"
	"dispatch_app_go/services"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// CreateBookingRequest is the intake payload
type CreateBookingRequest struct {
	ServiceID       string           `json:"service_id" validate:"omitempty,uuid"`
	ProviderID      string           `json:"provider_id" validate:"omitempty,uuid"`
	CustomerID      string           `json:"customer_id" validate:"max=100"`
	CustomerName    string           `json:"customer_name" validate:"required,max=200"`
	CustomerEmail   string           `json:"customer_email" validate:"omitempty,email,max=200"`
	Address         string           `json:"address" validate:"max=500"`
	Notes           string           `json:"notes" validate:"max=2000"`
	Date            string           `json:"date" validate:"required"`
	Time            string           `json:"time" validate:"required"`
	DurationMinutes int              `json:"duration_minutes" validate:"gte=0,lte=1440"`
	Price           *decimal.Decimal `json:"price"`
	// AutoAssign overrides the business setting for this booking
	AutoAssign *bool `json:"auto_assign"`
}

// BookingResponse carries a stored booking and, when auto-assignment ran,
// its outcome. A failed assignment does not undo the booking.
type BookingResponse struct {
	Booking         *models.Booking            `json:"booking"`
	Assignment      *services.AssignmentResult `json:"assignment,omitempty"`
	AssignmentError *ErrorResponse             `json:"assignment_error,omitempty"`
}

// CreateBookingHandler stores a booking through the capacity guard and
// optionally assigns it right away
func CreateBookingHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	now := middleware.Now(c)

	var req CreateBookingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	date, err := parseDate(req.Date, "date")
	if err != nil {
		return err
	}
	start, err := parseClock(req.Time, "time")
	if err != nil {
		return err
	}

	booking := &models.Booking{
		BusinessID:      business.ID,
		ServiceID:       optionalString(req.ServiceID),
		ProviderID:      optionalString(req.ProviderID),
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		Address:         req.Address,
		Notes:           req.Notes,
		ScheduledDate:   date,
		ScheduledTime:   start,
		DurationMinutes: req.DurationMinutes,
	}
	if req.Price != nil {
		booking.Price = *req.Price
	}

	ctx := c.Request().Context()
	if err := bookingService().Create(ctx, booking, now); err != nil {
		return schedulingHTTPError(err)
	}
	resp := BookingResponse{Booking: booking}

	autoAssign := business.AutoAssignEnabled
	if req.AutoAssign != nil {
		autoAssign = *req.AutoAssign
	}
	if autoAssign && !booking.IsAssigned() {
		result, err := assignmentService(c).AutoAssign(ctx, business.ID, booking.ID, now)
		switch {
		case err == nil:
			resp.Booking = result.Booking
			resp.Assignment = result
		case services.ReasonOf(err) != "":
			resp.AssignmentError = &ErrorResponse{Reason: string(services.ReasonOf(err)), Message: err.Error()}
		default:
			log.Printf("[ASSIGN] Auto-assign after intake failed for %s: %v", booking.ID, err)
			resp.AssignmentError = &ErrorResponse{Reason: "Internal", Message: "auto-assignment failed"}
		}
	}

	return c.JSON(http.StatusCreated, resp)
}

// GetBookingHandler returns a booking of the business
func GetBookingHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	booking, err := services.GetBooking(db.DB, business.ID, c.Param("id"))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, booking)
}

// CancelBookingHandler cancels a pending or confirmed booking
func CancelBookingHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	id := c.Param("id")

	before, err := services.GetBooking(db.DB, business.ID, id)
	if err != nil {
		return schedulingHTTPError(err)
	}
	booking, err := bookingService().Cancel(c.Request().Context(), business.ID, id, middleware.Now(c))
	if err != nil {
		return schedulingHTTPError(err)
	}

	if before.Status != booking.Status {
		services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), models.AuditActionCancel,
			"Booking", booking.ID, "Booking canceled",
			map[string]interface{}{"status": before.Status},
			map[string]interface{}{"status": booking.Status})
	}
	return c.JSON(http.StatusOK, booking)
}

// AutoAssignHandler runs the assignment selector for one booking
func AutoAssignHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	result, err := assignmentService(c).AutoAssign(c.Request().Context(), business.ID, c.Param("id"), middleware.Now(c))
	if err != nil {
		return schedulingHTTPError(err)
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), models.AuditActionAssign,
		"Booking", result.Booking.ID, "Booking auto-assigned", nil,
		map[string]interface{}{"provider_id": result.Provider.ID, "source": models.AssignmentSourceAuto})
	return c.JSON(http.StatusOK, result)
}

// GrabRequest names the provider when an admin grabs on someone's behalf
type GrabRequest struct {
	ProviderID string `json:"provider_id" validate:"omitempty,uuid"`
}

// GrabBookingHandler lets a provider claim a pool booking
func GrabBookingHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	actor := middleware.GetActor(c)

	providerID := actor.ProviderID
	if actor.Role != middleware.RoleProvider {
		var req GrabRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
		providerID = req.ProviderID
	}
	if providerID == "" {
		return badRequest("provider_id is required")
	}

	result, err := assignmentService(c).Grab(c.Request().Context(), business.ID, c.Param("id"), providerID, middleware.Now(c))
	if err != nil {
		return schedulingHTTPError(err)
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), models.AuditActionAssign,
		"Booking", result.Booking.ID, "Booking grabbed", nil,
		map[string]interface{}{"provider_id": providerID, "source": models.AssignmentSourceGrab})
	return c.JSON(http.StatusOK, result)
}

// EligibilityHandler shows how every provider fares for a booking without assigning it
func EligibilityHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	report, err := assignmentService(c).PreviewEligibility(c.Request().Context(), business.ID, c.Param("id"), middleware.Now(c))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, report)
}

// PoolResponse is the list of bookings waiting for a provider
type PoolResponse struct {
	From        models.Date      `json:"from"`
	To          models.Date      `json:"to"`
	GrabEnabled bool             `json:"grab_enabled"`
	Bookings    []models.Booking `json:"bookings"`
}

// PoolHandler lists unassigned pending bookings, by default for the next two weeks
func PoolHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	from, to, err := parseRange(c, "from", "to", 14)
	if err != nil {
		return err
	}

	bookings, err := services.ListUnassigned(db.DB, business.ID, from, to)
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, PoolResponse{
		From:        from,
		To:          to,
		GrabEnabled: business.GrabEnabled,
		Bookings:    bookings,
	})
}
