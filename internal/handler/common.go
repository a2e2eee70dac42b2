package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/booking"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/model"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/repository"
)

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// parseSlot parses the date and HH:MM bounds of a request.
func parseSlot(date, start, end string) (model.Date, model.TimeOfDay, model.TimeOfDay, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return model.Date{}, 0, 0, err
	}
	s, err := model.ParseTimeOfDay(start)
	if err != nil {
		return model.Date{}, 0, 0, err
	}
	e, err := model.ParseTimeOfDay(end)
	if err != nil {
		return model.Date{}, 0, 0, err
	}
	return d, s, e, nil
}

// respondError maps booking and repository errors to HTTP responses.
// Anything unrecognised is logged and reported as 500 without details.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	var conflict *booking.ConflictError
	switch {
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":                      "time slot already booked",
			"conflicting_reservation_id": conflict.Existing.ID,
		})
	case errors.Is(err, booking.ErrInvalidInterval),
		errors.Is(err, booking.ErrInvalidInput),
		errors.Is(err, booking.ErrInvalidAmount):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrAlreadyLinked),
		errors.Is(err, booking.ErrCancelled),
		errors.Is(err, booking.ErrInUse),
		errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("route", c.Path()),
		zap.Error(err),
	)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
