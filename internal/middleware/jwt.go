package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-hold-coordinator/internal/utils"
)

// Context keys set by JWTAuth.
const (
	HoldTokenKey = "hold_token"
	RoleKey      = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer token issued
// by the session or admin login endpoints and injects its claims into the
// request context.  For session tokens the subject is the hold token and
// is stored under HoldTokenKey; the role is stored under RoleKey.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := utils.ParseToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			if claims.Role == utils.RoleSession {
				c.Set(HoldTokenKey, claims.Subject)
			}
			c.Set(RoleKey, claims.Role)
			return next(c)
		}
	}
}

// OptionalJWTAuth behaves like JWTAuth when a valid Bearer token is
// present and lets the request through unauthenticated otherwise.  It is
// used on read-only routes that render differently for the token owner.
func OptionalJWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if raw, ok := strings.CutPrefix(auth, "Bearer "); ok {
				if claims, err := utils.ParseToken(secret, raw); err == nil {
					if claims.Role == utils.RoleSession {
						c.Set(HoldTokenKey, claims.Subject)
					}
					c.Set(RoleKey, claims.Role)
				}
			}
			return next(c)
		}
	}
}
