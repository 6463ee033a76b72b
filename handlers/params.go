package handlers

import (
	"dispatch_app_go/middleware"
	"dispatch_app_go/models"
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// maxListRangeDays bounds date-range queries
const maxListRangeDays = 92

func parseDate(value, field string) (models.Date, error) {
	d, err := models.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return models.Date{}, badRequest(fmt.Sprintf("%s: expected YYYY-MM-DD", field))
	}
	return d, nil
}

// parseOptionalDate returns nil for an empty value
func parseOptionalDate(value, field string) (*models.Date, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d, err := parseDate(value, field)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseClock(value, field string) (models.Clock, error) {
	clock, err := models.ParseClock(strings.TrimSpace(value))
	if err != nil {
		return 0, badRequest(fmt.Sprintf("%s: expected HH:MM", field))
	}
	return clock, nil
}

// parseRange reads ?from=&to= (or the given names), defaulting to
// [today, today+defaultDays)
func parseRange(c echo.Context, fromName, toName string, defaultDays int) (models.Date, models.Date, error) {
	today := businessToday(c)
	from, to := today, today.AddDays(defaultDays-1)

	if v := c.QueryParam(fromName); v != "" {
		d, err := parseDate(v, fromName)
		if err != nil {
			return from, to, err
		}
		from = d
		if c.QueryParam(toName) == "" {
			to = from.AddDays(defaultDays - 1)
		}
	}
	if v := c.QueryParam(toName); v != "" {
		d, err := parseDate(v, toName)
		if err != nil {
			return from, to, err
		}
		to = d
	}

	if to.Before(from) {
		return from, to, badRequest(fmt.Sprintf("%s must not be before %s", toName, fromName))
	}
	if from.DaysUntil(to) >= maxListRangeDays {
		return from, to, badRequest(fmt.Sprintf("range must be shorter than %d days", maxListRangeDays))
	}
	return from, to, nil
}

// businessToday is the current date in the business time zone
func businessToday(c echo.Context) models.Date {
	return middleware.GetCurrentBusiness(c).Today(middleware.Now(c))
}

func queryBool(c echo.Context, name string) bool {
	v, _ := strconv.ParseBool(c.QueryParam(name))
	return v
}

func queryInt(c echo.Context, name string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return def
	}
	return v
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// authorizeProvider lets admins act on any provider and providers only on themselves
func authorizeProvider(c echo.Context, providerID string) error {
	actor := middleware.GetActor(c)
	if actor.Role == middleware.RoleProvider && actor.ProviderID != providerID {
		return forbidden("providers can only manage their own schedule")
	}
	return nil
}
