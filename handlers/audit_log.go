package handlers

import (
	"dispatch_app_go/db"
	"dispatch_app_go/middleware"
	"dispatch_app_go/models"
	"dispatch_app_go/services"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// AuditLogPage is one page of audit entries
type AuditLogPage struct {
	Logs     []models.AuditLog `json:"logs"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// GetAuditLogsHandler returns filtered and paginated audit logs
func GetAuditLogsHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)

	// Parse pagination
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 25

	// Parse filters
	filters := services.AuditLogFilters{
		ActorID:      c.QueryParam("actor_id"),
		ResourceType: c.QueryParam("resource_type"),
		Action:       c.QueryParam("action"),
	}
	if dateFrom := c.QueryParam("date_from"); dateFrom != "" {
		if t, err := time.Parse("2006-01-02", dateFrom); err == nil {
			filters.DateFrom = t
		}
	}
	if dateTo := c.QueryParam("date_to"); dateTo != "" {
		if t, err := time.Parse("2006-01-02", dateTo); err == nil {
			filters.DateTo = t.Add(24*time.Hour - time.Second) // End of day
		}
	}

	logs, total, err := services.GetBusinessAuditLogs(db.DB, business.ID, filters, page, pageSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch audit logs")
	}
	return c.JSON(http.StatusOK, AuditLogPage{Logs: logs, Total: total, Page: page, PageSize: pageSize})
}

// GetResourceHistoryHandler returns the audit history for a specific resource
func GetResourceHistoryHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	logs, err := services.GetResourceAuditHistory(db.DB, business.ID, c.Param("type"), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch history")
	}
	return c.JSON(http.StatusOK, logs)
}
