package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/booking"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/model"
)

// ReservationHandler exposes the booking engine over HTTP.
type ReservationHandler struct {
	Engine *booking.Engine
	Log    *zap.Logger
}

func NewReservationHandler(engine *booking.Engine, log *zap.Logger) *ReservationHandler {
	if engine == nil {
		panic("nil booking engine passed to NewReservationHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ReservationHandler{Engine: engine, Log: log}
}

type slotRequest struct {
	CourtID uint64 `json:"court_id"`
	UserID  uint64 `json:"user_id"`
	Date    string `json:"date"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// Create handles POST /v1/reservations.
// Responds 201 with the pending reservation, or 409 with the id of the
// reservation already holding the slot.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req slotRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.CourtID == 0 || req.UserID == 0 {
		return badRequest(c, "court_id and user_id are required")
	}
	date, start, end, err := parseSlot(req.Date, req.Start, req.End)
	if err != nil {
		return respondError(c, h.Log, err)
	}

	r, err := h.Engine.Book(c.Request().Context(), booking.BookRequest{
		CourtID: req.CourtID,
		UserID:  req.UserID,
		Date:    date,
		Start:   start,
		End:     end,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// Check handles POST /v1/reservations/check. It answers whether the slot
// is free without booking it.
func (h *ReservationHandler) Check(c echo.Context) error {
	var req slotRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.CourtID == 0 {
		return badRequest(c, "court_id is required")
	}
	date, start, end, err := parseSlot(req.Date, req.Start, req.End)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	ok, err := h.Engine.Check(c.Request().Context(), req.CourtID, date, start, end)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"available": ok})
}

// List handles GET /v1/reservations with optional court_id, user_id,
// date and active filters.
func (h *ReservationHandler) List(c echo.Context) error {
	var f booking.Filter
	if v := c.QueryParam("court_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid court_id")
		}
		f.CourtID = id
	}
	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid user_id")
		}
		f.UserID = id
	}
	if v := c.QueryParam("date"); v != "" {
		d, err := model.ParseDate(v)
		if err != nil {
			return badRequest(c, "invalid date, expected YYYY-MM-DD")
		}
		f.Date = &d
	}
	if v := c.QueryParam("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "invalid active flag")
		}
		f.ActiveOnly = active
	}

	items, err := h.Engine.List(c.Request().Context(), f)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if items == nil {
		items = []model.Reservation{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *ReservationHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	r, err := h.Engine.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Cancel handles DELETE /v1/reservations/:id.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	if _, err := h.Engine.Cancel(c.Request().Context(), id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Pay handles POST /v1/reservations/:id/payments. It records a payment of
// the given amount and confirms the reservation.
func (h *ReservationHandler) Pay(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	r, err := h.Engine.Pay(c.Request().Context(), id, req.Amount)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// LinkPayment handles PUT /v1/reservations/:id/payment, attaching an
// existing payment.
func (h *ReservationHandler) LinkPayment(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var req struct {
		PaymentID uint64 `json:"payment_id"`
	}
	if err := c.Bind(&req); err != nil || req.PaymentID == 0 {
		return badRequest(c, "payment_id is required")
	}
	r, err := h.Engine.LinkPayment(c.Request().Context(), id, req.PaymentID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}
