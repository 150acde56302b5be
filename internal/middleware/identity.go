package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated subject as a UUID. ok is false when the
// request is anonymous or the subject is not a UUID.
func UserID(c echo.Context) (uuid.UUID, bool) {
	s, _ := c.Get(KeyUserID).(string) // set by JWTAuth
	if s == "" {
		return uuid.Nil, false
	}
	// Tokens from other issuers may carry non-UUID subjects.
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Authorization is the bearer header exactly as the client sent it.
func Authorization(c echo.Context) string {
	s, _ := c.Get(KeyAuthorization).(string)
	return s
}

// subject keys rate limits and logs; anonymous callers share "anon".
func subject(c echo.Context) string {
	if s, ok := c.Get(KeyUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
