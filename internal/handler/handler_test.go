package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/booking"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/handler"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/repository"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/router"
)

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T) *api {
	t.Helper()
	log := zaptest.NewLogger(t)
	set := repository.NewMemorySet()
	deps := set.EngineDeps()
	deps.Logger = log
	engine := booking.NewEngine(deps)

	e := echo.New()
	router.RegisterRoutes(e, router.Handlers{
		Health:       &handler.HealthHandler{},
		Reservations: handler.NewReservationHandler(engine, log),
		Courts:       handler.NewCourtHandler(set.Courts, set.TimeSlots, engine, log),
		Payments:     handler.NewPaymentHandler(set.Payments, engine, log),
		Users:        handler.NewUserHandler(set.Users, log),
	})
	return &api{t: t, e: e}
}

func (a *api) do(method, target, body string) (int, map[string]any) {
	a.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

// seed creates a user and a court open on Mondays from 08:00 to 22:00.
func (a *api) seed() {
	a.t.Helper()
	code, _ := a.do(http.MethodPost, "/v1/users", `{"name":"Ana","email":"Ana@Example.com"}`)
	require.Equal(a.t, http.StatusCreated, code)
	code, _ = a.do(http.MethodPost, "/v1/courts", `{"name":"Cancha 1","kind":"pádel","price":1500}`)
	require.Equal(a.t, http.StatusCreated, code)
	code, _ = a.do(http.MethodPost, "/v1/courts/1/time-slots", `{"weekday":1,"opens":"08:00","closes":"22:00"}`)
	require.Equal(a.t, http.StatusCreated, code)
}

func booking1(start, end string) string {
	return `{"court_id":1,"user_id":1,"date":"2025-12-01","start":"` + start + `","end":"` + end + `"}`
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestReservationLifecycle(t *testing.T) {
	a := newAPI(t)
	a.seed()

	code, body := a.do(http.MethodPost, "/v1/reservations", booking1("18:00", "19:00"))
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "18:00", body["start"])
	assert.Equal(t, "2025-12-01", body["date"])

	code, body = a.do(http.MethodPost, "/v1/reservations", booking1("18:30", "19:30"))
	assert.Equal(t, http.StatusConflict, code)
	assert.EqualValues(t, 1, body["conflicting_reservation_id"])

	code, _ = a.do(http.MethodPost, "/v1/reservations", booking1("19:00", "20:00"))
	assert.Equal(t, http.StatusCreated, code, "touching intervals do not overlap")

	code, body = a.do(http.MethodPost, "/v1/reservations/check", booking1("18:15", "18:45"))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["available"])
	_, body = a.do(http.MethodPost, "/v1/reservations/check", booking1("20:00", "21:00"))
	assert.Equal(t, true, body["available"])

	code, body = a.do(http.MethodGet, "/v1/courts/1/free-slots?date=2025-12-01", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{
		map[string]any{"start": "08:00", "end": "18:00"},
		map[string]any{"start": "20:00", "end": "22:00"},
	}, body["free"])

	code, body = a.do(http.MethodGet, "/v1/reservations?court_id=1&date=2025-12-01", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 2)

	code, _ = a.do(http.MethodDelete, "/v1/reservations/1", "")
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = a.do(http.MethodDelete, "/v1/reservations/1", "")
	assert.Equal(t, http.StatusConflict, code)

	_, body = a.do(http.MethodGet, "/v1/reservations/1", "")
	assert.Equal(t, "cancelled", body["status"])
	_, body = a.do(http.MethodGet, "/v1/reservations?court_id=1&active=true", "")
	assert.Len(t, body["items"], 1)

	code, _ = a.do(http.MethodPost, "/v1/reservations", booking1("18:30", "19:00"))
	assert.Equal(t, http.StatusCreated, code, "cancelled reservations free their slot")
}

func TestReservationValidation(t *testing.T) {
	a := newAPI(t)
	a.seed()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed time", booking1("6pm", "19:00"), http.StatusBadRequest},
		{"end before start", booking1("19:00", "18:00"), http.StatusBadRequest},
		{"empty interval", booking1("19:00", "19:00"), http.StatusBadRequest},
		{"outside hours", booking1("21:30", "22:30"), http.StatusBadRequest},
		{"closed weekday", `{"court_id":1,"user_id":1,"date":"2025-12-02","start":"10:00","end":"11:00"}`, http.StatusBadRequest},
		{"bad date", `{"court_id":1,"user_id":1,"date":"01/12/2025","start":"10:00","end":"11:00"}`, http.StatusBadRequest},
		{"missing ids", `{"date":"2025-12-01","start":"10:00","end":"11:00"}`, http.StatusBadRequest},
		{"unknown court", `{"court_id":9,"user_id":1,"date":"2025-12-01","start":"10:00","end":"11:00"}`, http.StatusNotFound},
		{"unknown user", `{"court_id":1,"user_id":9,"date":"2025-12-01","start":"10:00","end":"11:00"}`, http.StatusNotFound},
		{"not json", `{`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := a.do(http.MethodPost, "/v1/reservations", tc.body)
			assert.Equal(t, tc.want, code)
			assert.NotEmpty(t, body["error"])
		})
	}

	code, _ := a.do(http.MethodGet, "/v1/reservations/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(http.MethodGet, "/v1/reservations/42", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = a.do(http.MethodGet, "/v1/reservations?date=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPaymentsConfirmAndRevert(t *testing.T) {
	a := newAPI(t)
	a.seed()

	code, _ := a.do(http.MethodPost, "/v1/reservations", booking1("10:00", "11:00"))
	require.Equal(t, http.StatusCreated, code)

	code, _ = a.do(http.MethodPost, "/v1/reservations/1/payments", `{"amount":0}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := a.do(http.MethodPost, "/v1/reservations/1/payments", `{"amount":1500}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "confirmed", body["status"])
	assert.EqualValues(t, 1, body["payment_id"])

	code, _ = a.do(http.MethodPost, "/v1/reservations/1/payments", `{"amount":1500}`)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = a.do(http.MethodDelete, "/v1/courts/1", "")
	assert.Equal(t, http.StatusConflict, code, "referenced courts cannot be deleted")

	code, _ = a.do(http.MethodDelete, "/v1/payments/1", "")
	assert.Equal(t, http.StatusNoContent, code)
	_, body = a.do(http.MethodGet, "/v1/reservations/1", "")
	assert.Equal(t, "pending", body["status"])
	assert.Nil(t, body["payment_id"])

	code, body = a.do(http.MethodPost, "/v1/payments", `{"amount":2000}`)
	require.Equal(t, http.StatusCreated, code)
	payID := body["id"]

	code, body = a.do(http.MethodPut, "/v1/reservations/1/payment", `{"payment_id":`+jsonNum(payID)+`}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "confirmed", body["status"])

	code, body = a.do(http.MethodGet, "/v1/payments", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 1)

	code, _ = a.do(http.MethodPost, "/v1/payments", `{"amount":-5}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(http.MethodGet, "/v1/payments/99", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func jsonNum(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestCourtsAndUsers(t *testing.T) {
	a := newAPI(t)
	a.seed()

	code, _ := a.do(http.MethodPost, "/v1/users", `{"name":"Ana Bis","email":"ana@example.com"}`)
	assert.Equal(t, http.StatusConflict, code, "emails are unique regardless of case")
	code, _ = a.do(http.MethodPost, "/v1/users", `{"name":"Bob","email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, body := a.do(http.MethodGet, "/v1/users/1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ana@example.com", body["email"])

	code, _ = a.do(http.MethodPost, "/v1/courts", `{"name":"  ","price":10}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, body = a.do(http.MethodPut, "/v1/courts/1", `{"name":"Cancha Central","kind":"pádel","price":1800}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Cancha Central", body["name"])
	code, _ = a.do(http.MethodPut, "/v1/courts/7", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.do(http.MethodPost, "/v1/courts/1/time-slots", `{"weekday":7,"opens":"08:00","closes":"10:00"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(http.MethodPost, "/v1/courts/1/time-slots", `{"weekday":2,"opens":"10:00","closes":"08:00"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(http.MethodPost, "/v1/courts/5/time-slots", `{"weekday":2,"opens":"08:00","closes":"10:00"}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = a.do(http.MethodGet, "/v1/courts/1/time-slots", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 1)

	code, _ = a.do(http.MethodDelete, "/v1/time-slots/1", "")
	assert.Equal(t, http.StatusNoContent, code)
	_, body = a.do(http.MethodGet, "/v1/courts/1/free-slots?date=2025-12-02", "")
	assert.Equal(t, []any{map[string]any{"start": "00:00", "end": "24:00"}}, body["free"],
		"a court without operating hours is open all day")

	code, _ = a.do(http.MethodGet, "/v1/courts/1/free-slots", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(http.MethodDelete, "/v1/courts/1", "")
	assert.Equal(t, http.StatusNoContent, code)
	code, body = a.do(http.MethodGet, "/v1/courts", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["items"])
}
