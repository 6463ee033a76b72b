package handlers

import (
	"dispatch_app_go/db"
	"dispatch_app_go/middleware"
	"dispatch_app_go/models"
	"dispatch_app_go/services"
	"net/http"

	"github.com/labstack/echo/v4"
)

// DayAvailabilityResponse is the resolved availability of one date
type DayAvailabilityResponse struct {
	ProviderID string          `json:"provider_id"`
	Date       models.Date     `json:"date"`
	Windows    []models.Window `json:"windows"`
}

// GetProviderAvailabilityHandler resolves open windows for ?date= or for ?from=&to=
func GetProviderAvailabilityHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	providerID := c.Param("id")
	if err := authorizeProvider(c, providerID); err != nil {
		return err
	}

	if v := c.QueryParam("date"); v != "" {
		date, err := parseDate(v, "date")
		if err != nil {
			return err
		}
		windows, err := services.ResolveAvailability(db.DB, business.ID, providerID, date)
		if err != nil {
			return schedulingHTTPError(err)
		}
		return c.JSON(http.StatusOK, DayAvailabilityResponse{ProviderID: providerID, Date: date, Windows: windows})
	}

	from, to, err := parseRange(c, "from", "to", 7)
	if err != nil {
		return err
	}
	days, err := services.ResolveAvailabilityRange(db.DB, business.ID, providerID, from, to)
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, days)
}

// AvailabilityRuleRequest creates or replaces a rule. Leave both dates empty
// for a weekly rule, set only effective_date for a single date, or both for
// a bounded weekly rule.
type AvailabilityRuleRequest struct {
	DayOfWeek     int    `json:"day_of_week" validate:"gte=0,lte=6"`
	StartTime     string `json:"start_time" validate:"required"`
	EndTime       string `json:"end_time" validate:"required"`
	IsAvailable   *bool  `json:"is_available"`
	EffectiveDate string `json:"effective_date"`
	ExpiryDate    string `json:"expiry_date"`
	Note          string `json:"note" validate:"max=500"`
}

func (req *AvailabilityRuleRequest) apply(rule *models.AvailabilityRule) error {
	start, err := parseClock(req.StartTime, "start_time")
	if err != nil {
		return err
	}
	end, err := parseClock(req.EndTime, "end_time")
	if err != nil {
		return err
	}
	effective, err := parseOptionalDate(req.EffectiveDate, "effective_date")
	if err != nil {
		return err
	}
	expiry, err := parseOptionalDate(req.ExpiryDate, "expiry_date")
	if err != nil {
		return err
	}

	rule.DayOfWeek = req.DayOfWeek
	rule.StartTime = start
	rule.EndTime = end
	rule.IsAvailable = req.IsAvailable == nil || *req.IsAvailable
	rule.EffectiveDate = effective
	rule.ExpiryDate = expiry
	rule.Note = req.Note
	return nil
}

// ListAvailabilityRulesHandler lists the live rules of a provider
func ListAvailabilityRulesHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	providerID := c.Param("id")
	if err := authorizeProvider(c, providerID); err != nil {
		return err
	}

	rules, err := services.GetProviderRules(db.DB, business.ID, providerID)
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, rules)
}

// CreateAvailabilityRuleHandler adds a rule to a provider
func CreateAvailabilityRuleHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	providerID := c.Param("id")
	if err := authorizeProvider(c, providerID); err != nil {
		return err
	}

	var req AvailabilityRuleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	rule := &models.AvailabilityRule{BusinessID: business.ID, ProviderID: providerID}
	if err := req.apply(rule); err != nil {
		return err
	}
	if err := services.CreateAvailabilityRule(db.DB, rule); err != nil {
		return schedulingHTTPError(err)
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), models.AuditActionCreate,
		"AvailabilityRule", rule.ID, "Availability rule added", nil, rule)
	return c.JSON(http.StatusCreated, rule)
}

// UpdateAvailabilityRuleHandler replaces the fields of a rule
func UpdateAvailabilityRuleHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	providerID := c.Param("id")
	if err := authorizeProvider(c, providerID); err != nil {
		return err
	}

	rule, err := services.GetAvailabilityRule(db.DB, business.ID, c.Param("ruleId"))
	if err != nil {
		return schedulingHTTPError(err)
	}
	if rule.ProviderID != providerID {
		return schedulingHTTPError(services.ErrNotFound)
	}
	before := *rule

	var req AvailabilityRuleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := req.apply(rule); err != nil {
		return err
	}
	if err := services.UpdateAvailabilityRule(db.DB, rule); err != nil {
		return schedulingHTTPError(err)
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), models.AuditActionUpdate,
		"AvailabilityRule", rule.ID, "Availability rule changed", before, rule)
	return c.JSON(http.StatusOK, rule)
}

// DeleteAvailabilityRuleHandler retires a rule; past resolutions stay explainable
func DeleteAvailabilityRuleHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	providerID := c.Param("id")
	if err := authorizeProvider(c, providerID); err != nil {
		return err
	}

	rule, err := services.GetAvailabilityRule(db.DB, business.ID, c.Param("ruleId"))
	if err != nil {
		return schedulingHTTPError(err)
	}
	if rule.ProviderID != providerID {
		return schedulingHTTPError(services.ErrNotFound)
	}
	if err := services.RetireAvailabilityRule(db.DB, business.ID, rule.ID); err != nil {
		return schedulingHTTPError(err)
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), models.AuditActionDelete,
		"AvailabilityRule", rule.ID, "Availability rule retired", rule, nil)
	return c.NoContent(http.StatusNoContent)
}

// CreateDefaultAvailabilityHandler seeds Mon-Fri 09:00-17:00 for a provider without rules
func CreateDefaultAvailabilityHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	providerID := c.Param("id")

	if _, err := services.GetProvider(db.DB, business.ID, providerID); err != nil {
		return schedulingHTTPError(err)
	}
	hasRules, err := services.HasAvailabilityRules(db.DB, business.ID, providerID)
	if err != nil {
		return schedulingHTTPError(err)
	}
	if hasRules {
		return badRequest("provider already has availability rules")
	}
	if err := services.CreateDefaultAvailability(db.DB, business.ID, providerID); err != nil {
		return schedulingHTTPError(err)
	}

	rules, err := services.GetProviderRules(db.DB, business.ID, providerID)
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusCreated, rules)
}
