package handlers

import (
	"dispatch_app_go/db"
	"dispatch_app_go/middleware"
	"dispatch_app_go/services"
	"net/http"

	"github.com/labstack/echo/v4"
)

func GetNotificationsHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)

	service := services.NewNotificationService(db.DB)
	notifications, err := service.List(business.ID, queryBool(c, "unread"), queryInt(c, "limit", 50))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, notifications)
}

func UnreadNotificationCountHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)

	service := services.NewNotificationService(db.DB)
	count, err := service.UnreadCount(business.ID)
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"unread": count})
}

func MarkNotificationReadHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)

	service := services.NewNotificationService(db.DB)
	if err := service.MarkAsRead(business.ID, c.Param("id"), middleware.Now(c)); err != nil {
		return schedulingHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func MarkAllNotificationsReadHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)

	service := services.NewNotificationService(db.DB)
	if err := service.MarkAllAsRead(business.ID, middleware.Now(c)); err != nil {
		return schedulingHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
