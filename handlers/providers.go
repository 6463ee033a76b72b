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

// CreateProviderRequest registers a provider
type CreateProviderRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Email       string   `json:"email" validate:"omitempty,email"`
	Phone       string   `json:"phone" validate:"max=50"`
	Rating      float64  `json:"rating" validate:"gte=0,lte=5"`
	RatingCount int      `json:"rating_count" validate:"gte=0"`
	Priority    int      `json:"priority"`
	Specialties []string `json:"specialties" validate:"dive,required,max=100"`
	// DefaultAvailability seeds the standard working week
	DefaultAvailability bool `json:"default_availability"`
}

// CreateProviderHandler adds a provider to the business
func CreateProviderHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)

	var req CreateProviderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	provider := &models.Provider{
		BusinessID:  business.ID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Status:      models.ProviderStatusActive,
		Rating:      req.Rating,
		RatingCount: req.RatingCount,
		Priority:    req.Priority,
	}
	if err := services.CreateProvider(db.DB, provider); err != nil {
		return schedulingHTTPError(err)
	}
	for _, category := range req.Specialties {
		if err := services.AddProviderSpecialty(db.DB, business.ID, provider.ID, category); err != nil {
			return schedulingHTTPError(err)
		}
	}
	if req.DefaultAvailability {
		if err := services.CreateDefaultAvailability(db.DB, business.ID, provider.ID); err != nil {
			return schedulingHTTPError(err)
		}
	}

	created, err := services.GetProvider(db.DB, business.ID, provider.ID)
	if err != nil {
		return schedulingHTTPError(err)
	}
	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), models.AuditActionCreate,
		"Provider", created.ID, "Provider added", nil, created)
	return c.JSON(http.StatusCreated, created)
}

// ListProvidersHandler lists providers, optionally by ?status=
func ListProvidersHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	providers, err := services.ListProviders(db.DB, business.ID, c.QueryParam("status"))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, providers)
}

// GetProviderHandler returns one provider
func GetProviderHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	if err := authorizeProvider(c, c.Param("id")); err != nil {
		return err
	}
	provider, err := services.GetProvider(db.DB, business.ID, c.Param("id"))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, provider)
}

type providerStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive on_leave"`
}

// UpdateProviderStatusHandler moves a provider between active, inactive and on_leave
func UpdateProviderStatusHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)
	provider, err := services.GetProvider(db.DB, business.ID, c.Param("id"))
	if err != nil {
		return schedulingHTTPError(err)
	}

	var req providerStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := services.UpdateProviderStatus(db.DB, business.ID, provider.ID, req.Status); err != nil {
		return schedulingHTTPError(err)
	}

	action := models.AuditActionUpdate
	if req.Status != models.ProviderStatusActive {
		action = models.AuditActionDisable
	}
	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), action,
		"Provider", provider.ID, "Provider status changed",
		map[string]interface{}{"status": provider.Status},
		map[string]interface{}{"status": req.Status})

	provider.Status = req.Status
	return c.JSON(http.StatusOK, provider)
}

type specialtyRequest struct {
	Category string `json:"category" validate:"required,max=100"`
}

// AddProviderSpecialtyHandler tags a provider with a service category
func AddProviderSpecialtyHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)

	var req specialtyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := services.AddProviderSpecialty(db.DB, business.ID, c.Param("id"), req.Category); err != nil {
		return schedulingHTTPError(err)
	}

	provider, err := services.GetProvider(db.DB, business.ID, c.Param("id"))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, provider)
}

// CreateServiceRequest registers a bookable service
type CreateServiceRequest struct {
	Name            string          `json:"name" validate:"required,max=200"`
	Category        string          `json:"category" validate:"max=100"`
	DurationMinutes int             `json:"duration_minutes" validate:"required,gt=0,lte=1440"`
	Price           decimal.Decimal `json:"price"`
}

// CreateServiceHandler adds a service offering
func CreateServiceHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)

	var req CreateServiceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	service := &models.ServiceOffering{
		BusinessID:      business.ID,
		Name:            req.Name,
		Category:        req.Category,
		DurationMinutes: req.DurationMinutes,
		Price:           req.Price,
		IsActive:        true,
	}
	if err := services.CreateServiceOffering(db.DB, service); err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusCreated, service)
}

type exclusionRequest struct {
	ProviderID string `json:"provider_id" validate:"required,uuid"`
	Reason     string `json:"reason" validate:"max=500"`
}

// ExcludeProviderHandler keeps a provider from ever being assigned a service
func ExcludeProviderHandler(c echo.Context) error {
	business := middleware.GetCurrentBusiness(c)

	var req exclusionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	serviceID := c.Param("id")
	if err := services.ExcludeProviderFromService(db.DB, business.ID, serviceID, req.ProviderID, req.Reason); err != nil {
		return schedulingHTTPError(err)
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), models.AuditActionCreate,
		"ServiceProviderExclusion", serviceID, "Provider excluded from service", nil, req)
	return c.NoContent(http.StatusNoContent)
}
