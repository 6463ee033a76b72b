package middleware

import (
	"dispatch_app_go/db"
	"dispatch_app_go/models"
	"dispatch_app_go/services"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Identity headers are set by the upstream gateway that authenticates callers
const (
	HeaderBusinessID = "X-Business-ID"
	HeaderActorID    = "X-Actor-ID"
	HeaderActorRole  = "X-Actor-Role"
	HeaderProviderID = "X-Provider-ID"
)

// Actor roles
const (
	RoleAdmin    = "admin"
	RoleProvider = "provider"
)

const (
	// ContextKeyBusiness is the context key for the tenant of the request
	ContextKeyBusiness = "business"
	// ContextKeyActor is the context key for the caller identity
	ContextKeyActor = "actor"
)

// Actor is the caller as asserted by the gateway
type Actor struct {
	ID         string
	Role       string
	ProviderID string
}

// RequireBusiness loads the business named by X-Business-ID and scopes the
// request to it
func RequireBusiness() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			businessID := c.Request().Header.Get(HeaderBusinessID)
			if businessID == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "missing "+HeaderBusinessID+" header")
			}

			business, err := services.GetBusiness(db.DB.WithContext(c.Request().Context()), businessID)
			if err != nil {
				if services.ReasonOf(err) == services.ReasonNotFound {
					return echo.NewHTTPError(http.StatusNotFound, "business not found")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to load business")
			}

			actor := Actor{
				ID:         c.Request().Header.Get(HeaderActorID),
				Role:       c.Request().Header.Get(HeaderActorRole),
				ProviderID: c.Request().Header.Get(HeaderProviderID),
			}
			if actor.Role == "" {
				actor.Role = RoleAdmin
				if actor.ProviderID != "" {
					actor.Role = RoleProvider
				}
			}
			if actor.ID == "" {
				actor.ID = actor.ProviderID
			}

			c.Set(ContextKeyBusiness, business)
			c.Set(ContextKeyActor, actor)
			return next(c)
		}
	}
}

// RequireRole is middleware that requires specific roles
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := GetActor(c)
			for _, role := range roles {
				if actor.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
		}
	}
}

// GetCurrentBusiness retrieves the business from context
func GetCurrentBusiness(c echo.Context) *models.Business {
	business, ok := c.Get(ContextKeyBusiness).(*models.Business)
	if !ok {
		return nil
	}
	return business
}

// GetActor retrieves the caller identity from context
func GetActor(c echo.Context) Actor {
	actor, _ := c.Get(ContextKeyActor).(Actor)
	return actor
}
