package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-payments/internal/apperr"
)

// RequireRole rejects callers whose role is not one of roles with 403.
// It must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[ActorFrom(c).Role] {
				return deny(c, apperr.Forbidden("role not allowed"))
			}
			return next(c)
		}
	}
}
