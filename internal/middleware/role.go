package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Roles carried in the JWT role claim.
const (
	RoleGuest = "GUEST"
	RoleHost  = "HOST"
)

// RequireRole aborts with 403 unless the role stored by JWTAuth is one of
// roles. Comparison ignores case.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	// Normalise once at registration time, not per request.
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[strings.ToUpper(r)] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// JWTAuth must run first; a missing or non-string role is forbidden.
			role, ok := c.Get(KeyRole).(string)
			if !ok || !allowed[strings.ToUpper(role)] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
