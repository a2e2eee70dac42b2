// Package router registers the HTTP routes of the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/handler"
)

// Handlers groups every handler the API exposes.
type Handlers struct {
	Health       *handler.HealthHandler
	Reservations *handler.ReservationHandler
	Courts       *handler.CourtHandler
	Payments     *handler.PaymentHandler
	Users        *handler.UserHandler
}

// RegisterRoutes registers the health check on e and every resource under
// /v1. The middleware apply to the /v1 group only, so health probes are
// neither cached nor rate limited.
func RegisterRoutes(e *echo.Echo, h Handlers, mw ...echo.MiddlewareFunc) *echo.Group {
	e.GET("/healthz", h.Health.Health)

	v1 := e.Group("/v1", mw...)
	RegisterReservations(v1, h.Reservations)
	RegisterCourts(v1, h.Courts)
	RegisterPayments(v1, h.Payments)
	RegisterUsers(v1, h.Users)
	return v1
}

func RegisterReservations(g *echo.Group, h *handler.ReservationHandler) {
	g.POST("/reservations", h.Create)
	g.POST("/reservations/check", h.Check)
	g.GET("/reservations", h.List)
	g.GET("/reservations/:id", h.Get)
	g.DELETE("/reservations/:id", h.Cancel)
	g.POST("/reservations/:id/payments", h.Pay)
	g.PUT("/reservations/:id/payment", h.LinkPayment)
}

// RegisterCourts registers court administration, operating hours and the
// free-slot lookup.
func RegisterCourts(g *echo.Group, h *handler.CourtHandler) {
	g.POST("/courts", h.Create)
	g.GET("/courts", h.List)
	g.GET("/courts/:id", h.Get)
	g.PUT("/courts/:id", h.Update)
	g.DELETE("/courts/:id", h.Delete)
	g.GET("/courts/:id/free-slots", h.FreeSlots)
	g.POST("/courts/:id/time-slots", h.CreateTimeSlot)
	g.GET("/courts/:id/time-slots", h.ListTimeSlots)
	g.DELETE("/time-slots/:id", h.DeleteTimeSlot)
}

func RegisterPayments(g *echo.Group, h *handler.PaymentHandler) {
	g.POST("/payments", h.Create)
	g.GET("/payments", h.List)
	g.GET("/payments/:id", h.Get)
	g.DELETE("/payments/:id", h.Delete)
}

func RegisterUsers(g *echo.Group, h *handler.UserHandler) {
	g.POST("/users", h.Create)
	g.GET("/users", h.List)
	g.GET("/users/:id", h.Get)
}
