package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-hold-coordinator/internal/service"
	"github.com/iliyamo/seat-hold-coordinator/internal/utils"
)

// adminTokenTTL bounds how long an operator token stays valid.
const adminTokenTTL = 15 * time.Minute

// AdminHandler serves operator endpoints: exchanging the admin key for a
// token and triggering a sweep on demand.
type AdminHandler struct {
	Secret  string
	KeyHash string // bcrypt hash of the admin key; empty disables login
	Charts  *service.Charts
	Sweeper *service.Sweeper
	Now     func() time.Time
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(secret, keyHash string, charts *service.Charts, sweeper *service.Sweeper) *AdminHandler {
	return &AdminHandler{
		Secret:  secret,
		KeyHash: keyHash,
		Charts:  charts,
		Sweeper: sweeper,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

type adminLoginRequest struct {
	Key string `json:"key" validate:"required,min=8"`
}

// Login handles POST /v1/auth/admin.  The key is compared against the
// configured bcrypt hash.
func (h *AdminHandler) Login(c echo.Context) error {
	var body adminLoginRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "key is required"})
	}
	if !utils.VerifyAdminKey(h.KeyHash, body.Key) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	st, err := utils.NewAdminToken(h.Secret, adminTokenTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not sign token"})
	}
	return c.JSON(http.StatusOK, echo.Map{"token": st.Token, "token_type": "Bearer", "expires_at": st.Exp})
}

// SweepChart handles POST /v1/admin/charts/:chart/sweep.  It reaps the
// chart's expired holds, repairs any registry/ledger divergence and
// reports what changed.
func (h *AdminHandler) SweepChart(c echo.Context) error {
	coord, err := h.Charts.Get(c.Param("chart"))
	if err != nil {
		return respondError(c, err)
	}
	ctx := c.Request().Context()
	reaped := coord.Sweep(ctx, h.Now())
	repaired := coord.Reconcile(ctx)
	seats := 0
	for _, r := range reaped {
		seats += len(r.SeatIDs)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"chart_key": coord.ChartKey(),
		"holds":     len(reaped),
		"seats":     seats,
		"repaired":  repaired,
	})
}

// SweepAll handles POST /v1/admin/sweep and runs the scheduled sweep
// immediately over every chart.
func (h *AdminHandler) SweepAll(c echo.Context) error {
	if h.Sweeper == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "sweeper not running"})
	}
	seats := h.Sweeper.RunOnce(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{"seats": seats})
}
