package handlers

import (
	"dispatch_app_go/db"
	"dispatch_app_go/middleware"
	"dispatch_app_go/models"
	"dispatch_app_go/services"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

// CalendarResponse is the booking calendar of a date range
type CalendarResponse struct {
	Start     models.Date               `json:"start"`
	End       models.Date               `json:"end"`
	Generated *services.ExtendAllResult `json:"generated"`
	Bookings  []models.Booking          `json:"bookings"`
}

// CalendarHandler lists bookings with start <= date <= end. Recurring series
// are extended through end first, so the calendar never shows gaps where an
// occurrence has not been generated yet.
func CalendarHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	start, end, err := parseRange(c, "start", "end", 7)
	if err != nil {
		return err
	}

	if providerID := c.QueryParam("provider_id"); providerID != "" {
		if err := authorizeProvider(c, providerID); err != nil {
			return err
		}
	} else if middleware.GetActor(c).Role == middleware.RoleProvider {
		return forbidden("providers must filter by their own provider_id")
	}

	ctx := c.Request().Context()
	generated, err := seriesService(c).ExtendAll(ctx, business.ID, end.AddDays(1), middleware.Now(c))
	if err != nil {
		return schedulingHTTPError(err)
	}
	if len(generated.Failed) > 0 {
		log.Printf("[SERIES] Calendar extension failed for %d series of %s", len(generated.Failed), business.ID)
	}

	bookings, err := services.ListBookings(db.DB, business.ID, start, end, services.BookingFilters{
		ProviderID: c.QueryParam("provider_id"),
		Status:     c.QueryParam("status"),
	})
	if err != nil {
		return schedulingHTTPError(err)
	}

	return c.JSON(http.StatusOK, CalendarResponse{
		Start:     start,
		End:       end,
		Generated: generated,
		Bookings:  bookings,
	})
}
