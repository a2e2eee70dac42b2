package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports liveness. When DB is set the database must answer
// a ping for the service to count as up; the in-memory store has no DB.
type HealthHandler struct {
	DB *sql.DB
}

// Health is used by load balancers and monitoring systems. It returns a
// plain text "ok" with 200, or "unavailable" with 503.
func (h *HealthHandler) Health(c echo.Context) error {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			return c.String(http.StatusServiceUnavailable, "unavailable")
		}
	}
	return c.String(http.StatusOK, "ok")
}
