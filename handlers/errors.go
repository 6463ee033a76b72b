package handlers

import (
	"dispatch_app_go/services"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the JSON body of every rejected request
type ErrorResponse struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// statusForReason maps a scheduling outcome to its HTTP status
func statusForReason(reason services.Reason) int {
	switch {
	case reason == services.ReasonInvalidRequest:
		return http.StatusBadRequest
	case reason == services.ReasonNotFound:
		return http.StatusNotFound
	case reason.IsCapacity():
		return http.StatusUnprocessableEntity
	default:
		// eligibility and AlreadyAssigned
		return http.StatusConflict
	}
}

// schedulingHTTPError turns a service error into an echo error. Anything that
// is not a SchedulingError is a storage failure and is logged, not exposed.
func schedulingHTTPError(err error) error {
	var se *services.SchedulingError
	if !errors.As(err, &se) {
		log.Printf("[HTTP] Internal error: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, ErrorResponse{
			Reason:  "Internal",
			Message: "Internal server error",
		})
	}
	return echo.NewHTTPError(statusForReason(se.Reason), ErrorResponse{
		Reason:  string(se.Reason),
		Message: se.Error(),
	})
}

func badRequest(message string) error {
	return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{
		Reason:  string(services.ReasonInvalidRequest),
		Message: message,
	})
}

func forbidden(message string) error {
	return echo.NewHTTPError(http.StatusForbidden, ErrorResponse{Reason: "Forbidden", Message: message})
}
