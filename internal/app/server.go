// Package app wires configuration, storage, Redis, RabbitMQ and the HTTP
// API into a runnable server.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/booking"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/config"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/handler"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/lock"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/middleware"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/queue"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/repository"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/router"
)

const shutdownTimeout = 10 * time.Second

// Server is the assembled API server.
type Server struct {
	cfg config.Config
	log *zap.Logger

	Echo   *echo.Echo
	Engine *booking.Engine
	Stores repository.Set

	db        *sql.DB
	rdb       *redis.Client
	publisher *queue.Publisher
}

// New connects every backing service the configuration enables. Redis and
// RabbitMQ are optional; the database is not.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*Server, error) {
	s := &Server{cfg: cfg, log: log}

	stores, db, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	s.Stores, s.db = stores, db

	deps := stores.EngineDeps()
	deps.Logger = log

	if cfg.Redis.Enabled() {
		rdb, err := config.NewRedisClient(cfg.Redis)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.rdb = rdb
		deps.Locker = lock.NewRedis(rdb, lock.RedisOptions{TTL: cfg.LockTTL})
		log.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	} else {
		deps.Locker = lock.NewLocal()
		log.Info("redis disabled, using in-process locks")
	}

	if cfg.RabbitURL != "" {
		s.publisher = queue.NewPublisher(cfg.RabbitURL, cfg.EventsExchange, log)
		deps.Events = s.publisher
	}

	s.Engine = booking.NewEngine(deps)
	s.Echo = s.newEcho()
	return s, nil
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestID(), middleware.RequestLogger(s.log), echomw.Recover())

	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	router.RegisterRoutes(e, router.Handlers{
		Health:       &handler.HealthHandler{DB: s.db},
		Reservations: handler.NewReservationHandler(s.Engine, s.log),
		Courts:       handler.NewCourtHandler(s.Stores.Courts, s.Stores.TimeSlots, s.Engine, s.log),
		Payments:     handler.NewPaymentHandler(s.Stores.Payments, s.Engine, s.log),
		Users:        handler.NewUserHandler(s.Stores.Users, s.log),
	},
		echomw.ContextTimeout(timeout),
		middleware.NewTokenBucket(s.cfg.RateLimit, s.rdb, s.log),
		middleware.NewRedisCache(s.cfg.Cache, s.rdb, s.log),
	)
	return e
}

// Run serves HTTP until ctx is cancelled and then shuts down gracefully.
// The audit consumer, when enabled, runs alongside and stops with ctx.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.AuditConsumer && s.cfg.RabbitURL != "" {
		consumer := &queue.AuditConsumer{
			URL:      s.cfg.RabbitURL,
			Exchange: s.cfg.EventsExchange,
			Queue:    s.cfg.AuditQueue,
			Log:      queue.NewAuditLog(s.cfg.AuditLogPath),
			Logger:   s.log,
		}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	addr := ":" + s.cfg.Port
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr), zap.String("env", s.cfg.Env))
		if err := s.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases every connection New opened.
func (s *Server) Close() {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
