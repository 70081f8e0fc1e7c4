package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-hold-coordinator/internal/repository"
	"github.com/iliyamo/seat-hold-coordinator/internal/utils"
)

// SessionHandler issues hold tokens.  A session owns exactly one hold
// token; the token travels inside a signed JWT so clients cannot forge or
// swap it.
type SessionHandler struct {
	Secret string
	TTL    time.Duration
}

// NewSessionHandler returns a handler signing with secret.
func NewSessionHandler(secret string, ttl time.Duration) *SessionHandler {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SessionHandler{Secret: secret, TTL: ttl}
}

// Create handles POST /v1/sessions.  It returns 201 with the bearer token
// and its expiry.
func (h *SessionHandler) Create(c echo.Context) error {
	hold, err := repository.NewHoldToken(32)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not generate token"})
	}
	st, err := utils.NewSessionToken(h.Secret, hold, h.TTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not sign token"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"token":      st.Token,
		"token_type": "Bearer",
		"expires_at": st.Exp,
	})
}
