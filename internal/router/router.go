package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-payments/internal/handler"
	"github.com/iliyamo/rental-payments/internal/middleware"
	"github.com/iliyamo/rental-payments/internal/model"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Bookings *handler.BookingHandler
	Payments *handler.PaymentHandler
	Links    *handler.LinkHandler
}

// Guards carries the shared middleware built in main.  Nil entries are
// skipped.
type Guards struct {
	JWTSecret   string
	Idempotency echo.MiddlewareFunc
	RateLimit   echo.MiddlewareFunc
}

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterLedger mounts the booking, payment and link endpoints under /v1.
func RegisterLedger(e *echo.Echo, h Handlers, g Guards) {
	// Guests and admins.  Ownership is checked by the ledger per booking.
	v1 := e.Group("/v1", with(
		middleware.JWTAuth(g.JWTSecret),
		middleware.RequireRole(model.RoleGuest, model.RoleAdmin),
		g.Idempotency,
	)...)
	v1.POST("/bookings", h.Bookings.Create)
	v1.GET("/bookings/:id/milestones", h.Bookings.Milestones)
	v1.GET("/bookings/:id/invoice", h.Bookings.Invoice)
	v1.GET("/bookings/:id/payments", h.Payments.List)
	v1.POST("/bookings/:id/payments", h.Payments.Record)
	v1.POST("/milestones/:id/pay", h.Payments.PayMilestone)
	v1.POST("/milestones/:id/links", h.Links.Issue)
	v1.GET("/milestones/:id/links", h.Links.List)

	// Confirming or reversing a payment is an admin action.
	admin := e.Group("/v1", with(
		middleware.JWTAuth(g.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
	)...)
	admin.PATCH("/payments/:id/status", h.Payments.UpdateStatus)

	// Payment links are opened by whoever holds the URL.
	pay := e.Group("/v1/pay", with(g.RateLimit, g.Idempotency)...)
	pay.GET("/:uid", h.Links.Resolve)
	pay.POST("/:uid", h.Links.Submit)
}

func with(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := mws[:0]
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
