package handlers

import (
	"dispatch_app_go/db"
	"dispatch_app_go/middleware"
	"dispatch_app_go/services"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AssignmentReportHandler downloads assignments, deferrals and the open pool
// for ?from=&to= as a spreadsheet
func AssignmentReportHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	from, to, err := parseRange(c, "from", "to", 31)
	if err != nil {
		return err
	}

	buf, err := services.GenerateAssignmentReport(db.DB, business.ID, from, to)
	if err != nil {
		return schedulingHTTPError(err)
	}

	filename := fmt.Sprintf("assignments_%s_%s.xlsx", from, to)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
