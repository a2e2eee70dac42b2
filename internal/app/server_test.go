package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/config"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/database"
)

func testConfig() config.Config {
	return config.Config{
		Env:            "test",
		Port:           "0",
		DBDriver:       "memory",
		RequestTimeout: time.Second,
		Cache: config.CacheConfig{
			Enabled:     true,
			Methods:     map[string]bool{"GET": true},
			TTL:         time.Minute,
			KeyStrategy: "route_query",
			Prefix:      "cache",
		},
		RateLimit: config.RateLimitConfig{
			Enabled:        true,
			Capacity:       100,
			RefillTokens:   1,
			RefillInterval: time.Second,
			TTL:            time.Minute,
			KeyStrategy:    "ip_route",
			Prefix:         "rl",
		},
	}
}

func serve(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func TestServerWithoutRedis(t *testing.T) {
	s, err := New(context.Background(), testConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/healthz", "").Code)
	rec := serve(s, http.MethodPost, "/v1/courts", `{"name":"Cancha 1","price":1000}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = serve(s, http.MethodGet, "/v1/courts", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"), "cache needs redis")
}

func TestServerWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis.Addr = mr.Addr()

	s, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, http.StatusCreated, serve(s, http.MethodPost, "/v1/courts", `{"name":"Cancha 1","price":1000}`).Code)
	require.Equal(t, http.StatusCreated, serve(s, http.MethodPost, "/v1/users", `{"name":"Ana","email":"ana@example.com"}`).Code)

	free := "/v1/courts/1/free-slots?date=2025-12-01"
	assert.Equal(t, "MISS", serve(s, http.MethodGet, free, "").Header().Get("X-Cache"))
	assert.Equal(t, "HIT", serve(s, http.MethodGet, free, "").Header().Get("X-Cache"))

	rec := serve(s, http.MethodPost, "/v1/reservations",
		`{"court_id":1,"user_id":1,"date":"2025-12-01","start":"18:00","end":"19:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.False(t, mr.Exists("lock:court:1:2025-12-01"), "booking lock released")

	rec = serve(s, http.MethodGet, free, "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"), "bookings invalidate cached availability")
	assert.Contains(t, rec.Body.String(), `{"start":"19:00","end":"24:00"}`)
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
}

func TestServerRejectsUnreachableRedis(t *testing.T) {
	cfg := testConfig()
	cfg.Redis.Addr = "127.0.0.1:1"
	_, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestOpenStoreSQLiteMigrates(t *testing.T) {
	cfg := testConfig()
	cfg.DBDriver = "sqlite3"
	cfg.SQLitePath = filepath.Join(t.TempDir(), "reservas.db")
	cfg.AutoMigrate = true

	s, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	v, err := database.Version(context.Background(), s.db, database.SQLite)
	require.NoError(t, err)
	assert.Positive(t, v)

	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusCreated, serve(s, http.MethodPost, "/v1/courts", `{"name":"Cancha 2"}`).Code)
}

func TestRunStopsOnCancel(t *testing.T) {
	s, err := New(context.Background(), testConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
