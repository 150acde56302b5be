// Package middleware holds the echo middleware shared by the BFFs: bearer
// authentication, role checks, request logging, the Redis response cache and
// the Redis token-bucket rate limiter.
package middleware

import (
	"net/http" // status codes for error responses
	"strings"  // bearer prefix handling

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	KeyUserID        = "user_id"
	KeyRole          = "role"
	KeyAuthorization = "authorization"
)

// JWTAuth validates an HS256 bearer token and stores the subject, the role
// claim and the raw Authorization header in the echo context. The header is
// kept so the BFFs can forward it unchanged to the user service.
func JWTAuth(secret string) echo.MiddlewareFunc {
	// Build the parser once; only HS256 is accepted so an attacker cannot
	// downgrade to "none" or switch to an asymmetric algorithm.
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header is "Bearer <jwt>"; anything else is 401.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ") // the token itself

			// Verify signature and the standard time claims (exp, nbf, iat).
			tok, err := parser.Parse(raw, func(*jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			// sub carries the user UUID; without it the caller is nobody.
			sub, _ := claims.GetSubject()
			if sub == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token has no subject"})
			}

			// Expose identity to handlers and to RequireRole.
			c.Set(KeyUserID, sub)
			c.Set(KeyRole, claims["role"])
			c.Set(KeyAuthorization, auth)
			return next(c)
		}
	}
}
