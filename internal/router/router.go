// Package router wires the HTTP routes onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-slot-booking/internal/config"
	"github.com/iliyamo/event-slot-booking/internal/handler"
	"github.com/iliyamo/event-slot-booking/internal/middleware"
)

// RegisterRoutes registers the routes that carry no middleware at all.
// Currently that is only the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated visitor endpoints. The
// availability view additionally sits behind the Redis response cache;
// rdb may be nil, which disables caching.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cacheCfg config.CacheConfig, rdb *redis.Client) {
	e.GET("/v1/events", p.ListEvents)
	e.GET("/v1/events/:id/availability", p.Availability, middleware.NewRedisCache(cacheCfg, rdb))
}

// RegisterBooking registers the visitor booking endpoints. These are
// unauthenticated: possession of the token is the authorization.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler) {
	e.POST("/v1/events/:id/reservations", b.Reserve)
	e.GET("/v1/bookings/:token", b.Get)
	e.DELETE("/v1/bookings/:token", b.Cancel)
}

// RegisterAdmin registers the operator endpoints. Login is open; the
// rest require a valid admin JWT.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	e.POST("/v1/admin/login", a.Login)

	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	g.DELETE("/bookings/:token", a.CancelBooking)
	g.GET("/events/:id/bookings", a.ListEventBookings)
	g.POST("/jobs/reminders", a.DispatchReminders)
	g.POST("/jobs/status-refresh", a.RefreshStatuses)
}
