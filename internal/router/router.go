package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold-coordinator/internal/config"
	"github.com/iliyamo/seat-hold-coordinator/internal/handler"
	"github.com/iliyamo/seat-hold-coordinator/internal/middleware"
	"github.com/iliyamo/seat-hold-coordinator/internal/utils"
)

// Deps bundles what route registration needs.  Redis may be nil, in
// which case rate limiting and caching are pass-through.
type Deps struct {
	JWTSecret string
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client
	Logger    *zap.Logger
	Sessions  *handler.SessionHandler
	Charts    *handler.ChartHandler
	Admin     *handler.AdminHandler
}

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterSessions registers session issuance and the admin login.  Both
// are rate limited per IP.
func RegisterSessions(e *echo.Echo, d Deps) {
	rl := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger)
	e.POST("/v1/sessions", d.Sessions.Create, rl)
	e.POST("/v1/auth/admin", d.Admin.Login, rl)
}

// RegisterCharts registers the seat, hold and booking routes of every
// chart.  Reads are public; seat operations require a session token and
// are rate limited per session and route.
func RegisterCharts(e *echo.Echo, d Deps) {
	g := e.Group("/v1/charts/:chart")

	g.GET("/seats", d.Charts.Seats, middleware.OptionalJWTAuth(d.JWTSecret))
	g.GET("/bookings/:id", d.Charts.Booking, middleware.NewRedisCache(d.Cache, d.Redis))

	session := []echo.MiddlewareFunc{
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(utils.RoleSession),
		middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger),
	}
	g.POST("/seats/:seat/select", d.Charts.Select, session...)
	g.DELETE("/seats/:seat/select", d.Charts.Deselect, session...)
	g.GET("/hold", d.Charts.Hold, session...)
	g.DELETE("/hold", d.Charts.Release, session...)
	g.POST("/book", d.Charts.Book, session...)
}

// RegisterAdmin registers operator routes behind an admin token.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group("/v1/admin", middleware.JWTAuth(d.JWTSecret), middleware.RequireRole(utils.RoleAdmin))
	g.POST("/charts/:chart/sweep", d.Admin.SweepChart)
	g.POST("/sweep", d.Admin.SweepAll)
}

// Register wires every route group onto e.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e)
	RegisterSessions(e, d)
	RegisterCharts(e, d)
	RegisterAdmin(e, d)
}
