package middleware

import (
	"dispatch_app_go/services"

	"github.com/labstack/echo/v4"
)

const ContextKeyAuditContext = "audit_context"

// AuditContext is middleware that extracts the actor for audit logging.
// It must run after RequireBusiness.
func AuditContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := GetActor(c)
			ctx := services.AuditContext{
				ActorID:   actor.ID,
				ActorRole: actor.Role,
				IPAddress: c.RealIP(),
			}
			if business := GetCurrentBusiness(c); business != nil {
				ctx.BusinessID = business.ID
			}

			c.Set(ContextKeyAuditContext, ctx)
			return next(c)
		}
	}
}

// GetAuditContext retrieves the audit context from the request
func GetAuditContext(c echo.Context) services.AuditContext {
	if ctx, ok := c.Get(ContextKeyAuditContext).(services.AuditContext); ok {
		return ctx
	}
	return services.AuditContext{}
}
