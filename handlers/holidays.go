package handlers

import (
	"dispatch_app_go/db"
	"dispatch_app_go/middleware"
	"dispatch_app_go/models"
	"dispatch_app_go/services"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListHolidaysHandler lists the holidays of the business
func ListHolidaysHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	holidays, err := services.ListHolidays(db.DB, business.ID)
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, holidays)
}

type holidayRequest struct {
	Date      string `json:"date" validate:"required"`
	Name      string `json:"name" validate:"max=200"`
	Recurring bool   `json:"recurring"`
}

// CreateHolidayHandler adds a holiday. Recurring holidays repeat on the same
// month and day every year.
func CreateHolidayHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)

	var req holidayRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	date, err := parseDate(req.Date, "date")
	if err != nil {
		return err
	}

	holiday := &models.BusinessHoliday{
		BusinessID:  business.ID,
		HolidayDate: date,
		Name:        req.Name,
		Recurring:   req.Recurring,
	}
	if err := services.CreateHoliday(db.DB, holiday); err != nil {
		return schedulingHTTPError(err)
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), models.AuditActionCreate,
		"BusinessHoliday", holiday.ID, "Holiday added", nil, holiday)
	return c.JSON(http.StatusCreated, holiday)
}

// DeleteHolidayHandler removes a holiday
func DeleteHolidayHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	id := c.Param("id")
	if err := services.DeleteHoliday(db.DB, business.ID, id); err != nil {
		return schedulingHTTPError(err)
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), models.AuditActionDelete,
		"BusinessHoliday", id, "Holiday removed", nil, nil)
	return c.NoContent(http.StatusNoContent)
}
