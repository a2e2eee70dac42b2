package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/booking"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/model"
)

// PaymentHandler records standalone payments. Linking them to a
// reservation goes through ReservationHandler.LinkPayment.
type PaymentHandler struct {
	Payments booking.PaymentStore
	Engine   *booking.Engine
	Log      *zap.Logger
}

func NewPaymentHandler(payments booking.PaymentStore, engine *booking.Engine, log *zap.Logger) *PaymentHandler {
	if payments == nil || engine == nil {
		panic("nil dependency passed to NewPaymentHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentHandler{Payments: payments, Engine: engine, Log: log}
}

func (h *PaymentHandler) Create(c echo.Context) error {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Amount <= 0 {
		return respondError(c, h.Log, booking.ErrInvalidAmount)
	}
	p, err := h.Payments.CreatePayment(c.Request().Context(), model.Payment{
		Amount: req.Amount,
		PaidAt: time.Now().UTC(),
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *PaymentHandler) List(c echo.Context) error {
	items, err := h.Payments.ListPayments(c.Request().Context())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if items == nil {
		items = []model.Payment{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *PaymentHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid payment id")
	}
	p, err := h.Payments.GetPayment(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Delete handles DELETE /v1/payments/:id. A reservation confirmed by the
// payment falls back to pending.
func (h *PaymentHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid payment id")
	}
	if err := h.Engine.DeletePayment(c.Request().Context(), id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
