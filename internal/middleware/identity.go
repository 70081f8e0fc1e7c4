package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-hold-coordinator/internal/repository"
)

// HoldToken returns the hold token JWTAuth extracted from a session
// token, or "" for anonymous and admin callers.
func HoldToken(c echo.Context) string {
	if v, ok := c.Get(HoldTokenKey).(string); ok {
		return v
	}
	return ""
}

// sessionKey identifies the caller for rate limiting without putting the
// raw hold token into Redis keys.  It returns "anon" when no session is
// present.
func sessionKey(c echo.Context) string {
	tok := HoldToken(c)
	if tok == "" {
		return "anon"
	}
	return repository.HashToken(tok)[:16]
}
