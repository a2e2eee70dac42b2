package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/booking"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/model"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/repository"
)

// CourtHandler manages courts and their weekly operating hours.
type CourtHandler struct {
	Courts    repository.Courts
	TimeSlots repository.TimeSlots
	Engine    *booking.Engine
	Log       *zap.Logger
}

func NewCourtHandler(courts repository.Courts, slots repository.TimeSlots, engine *booking.Engine, log *zap.Logger) *CourtHandler {
	if courts == nil || slots == nil || engine == nil {
		panic("nil dependency passed to NewCourtHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CourtHandler{Courts: courts, TimeSlots: slots, Engine: engine, Log: log}
}

type courtRequest struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Price int64  `json:"price"`
}

func (r courtRequest) court() (model.Court, string) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return model.Court{}, "name is required"
	}
	if r.Price < 0 {
		return model.Court{}, "price must not be negative"
	}
	return model.Court{Name: name, Kind: strings.TrimSpace(r.Kind), Price: r.Price}, ""
}

func (h *CourtHandler) Create(c echo.Context) error {
	var req courtRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	court, msg := req.court()
	if msg != "" {
		return badRequest(c, msg)
	}
	created, err := h.Courts.CreateCourt(c.Request().Context(), court)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *CourtHandler) List(c echo.Context) error {
	courts, err := h.Courts.ListCourts(c.Request().Context())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if courts == nil {
		courts = []model.Court{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": courts})
}

func (h *CourtHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid court id")
	}
	court, err := h.Courts.GetCourt(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, court)
}

func (h *CourtHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid court id")
	}
	var req courtRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	court, msg := req.court()
	if msg != "" {
		return badRequest(c, msg)
	}
	court.ID = id
	updated, err := h.Courts.UpdateCourt(c.Request().Context(), court)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /v1/courts/:id. Courts that any reservation still
// references are refused with 409.
func (h *CourtHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid court id")
	}
	if err := h.Engine.DeleteCourt(c.Request().Context(), id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// FreeSlots handles GET /v1/courts/:id/free-slots?date=YYYY-MM-DD.
func (h *CourtHandler) FreeSlots(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid court id")
	}
	date, err := model.ParseDate(c.QueryParam("date"))
	if err != nil {
		return badRequest(c, "invalid date, expected YYYY-MM-DD")
	}
	free, err := h.Engine.FreeIntervals(c.Request().Context(), id, date)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if free == nil {
		free = []model.Interval{}
	}
	return c.JSON(http.StatusOK, echo.Map{"court_id": id, "date": date, "free": free})
}

type timeSlotRequest struct {
	Weekday *int   `json:"weekday"`
	Opens   string `json:"opens"`
	Closes  string `json:"closes"`
}

// CreateTimeSlot handles POST /v1/courts/:id/time-slots. Weekday follows
// Go's numbering, 0 for Sunday.
func (h *CourtHandler) CreateTimeSlot(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid court id")
	}
	var req timeSlotRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Weekday == nil || *req.Weekday < 0 || *req.Weekday > 6 {
		return badRequest(c, "weekday must be between 0 (Sunday) and 6")
	}
	opens, err := model.ParseTimeOfDay(req.Opens)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	closes, err := model.ParseTimeOfDay(req.Closes)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if _, err := model.NewInterval(opens, closes); err != nil {
		return respondError(c, h.Log, err)
	}

	ctx := c.Request().Context()
	if _, err := h.Courts.GetCourt(ctx, id); err != nil {
		return respondError(c, h.Log, err)
	}
	slot, err := h.TimeSlots.CreateTimeSlot(ctx, model.TimeSlot{
		CourtID: id,
		Weekday: time.Weekday(*req.Weekday),
		Opens:   opens,
		Closes:  closes,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, slot)
}

func (h *CourtHandler) ListTimeSlots(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid court id")
	}
	ctx := c.Request().Context()
	if _, err := h.Courts.GetCourt(ctx, id); err != nil {
		return respondError(c, h.Log, err)
	}
	slots, err := h.TimeSlots.ListTimeSlots(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if slots == nil {
		slots = []model.TimeSlot{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": slots})
}

// DeleteTimeSlot handles DELETE /v1/time-slots/:id.
func (h *CourtHandler) DeleteTimeSlot(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid time slot id")
	}
	if err := h.TimeSlots.DeleteTimeSlot(c.Request().Context(), id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
