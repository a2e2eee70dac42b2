// Package booking holds the reservation core: availability checking, the
// create-if-available operation and payment reconciliation. It owns the
// guarantee that no two active reservations of a court overlap on a date.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/lock"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/model"
)

// Deps wires an Engine. Reservations, Payments, Courts, Schedule and Users
// are required; the rest default to an in-process locker, a discarding
// event sink, a no-op logger and time.Now.
type Deps struct {
	Reservations ReservationStore
	Payments     PaymentStore
	Courts       CourtStore
	Schedule     ScheduleDirectory
	Users        UserDirectory

	Locker lock.Locker
	Events EventSink
	Logger *zap.Logger
	Now    func() time.Time
}

// Engine serializes all mutations of one (court, date) key through Locker
// and re-checks availability while holding the lock, so that checking and
// inserting form one atomic step.
type Engine struct {
	reservations ReservationStore
	payments     PaymentStore
	courts       CourtStore
	users        UserDirectory
	checker      *Checker
	locker       lock.Locker
	events       EventSink
	log          *zap.Logger
	now          func() time.Time
}

func NewEngine(d Deps) *Engine {
	if d.Reservations == nil || d.Payments == nil || d.Courts == nil || d.Schedule == nil || d.Users == nil {
		panic("booking.NewEngine: missing store dependency")
	}
	if d.Locker == nil {
		d.Locker = lock.NewLocal()
	}
	if d.Events == nil {
		d.Events = NopSink{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Engine{
		reservations: d.Reservations,
		payments:     d.Payments,
		courts:       d.Courts,
		users:        d.Users,
		checker:      NewChecker(d.Reservations, d.Schedule, d.Logger),
		locker:       d.Locker,
		events:       d.Events,
		log:          d.Logger,
		now:          d.Now,
	}
}

// Checker exposes the read-only availability checker.
func (e *Engine) Checker() *Checker { return e.checker }

func courtKey(courtID uint64, date model.Date) string {
	return "court:" + strconv.FormatUint(courtID, 10) + ":" + date.String()
}

func reservationKey(id uint64) string {
	return "reservation:" + strconv.FormatUint(id, 10)
}

// BookRequest describes a new reservation.
type BookRequest struct {
	CourtID uint64
	UserID  uint64
	Date    model.Date
	Start   model.TimeOfDay
	End     model.TimeOfDay
}

// validate checks the interval shape, the court and its operating hours.
func (e *Engine) validate(ctx context.Context, courtID uint64, date model.Date, start, end model.TimeOfDay) (model.Interval, error) {
	if date.IsZero() {
		return model.Interval{}, fmt.Errorf("missing date: %w", ErrInvalidInterval)
	}
	iv, err := model.NewInterval(start, end)
	if err != nil {
		return model.Interval{}, err
	}
	if _, err := e.courts.GetCourt(ctx, courtID); err != nil {
		return model.Interval{}, fmt.Errorf("court %d: %w", courtID, err)
	}
	if err := e.checker.CheckHours(ctx, courtID, date, iv); err != nil {
		return model.Interval{}, err
	}
	return iv, nil
}

// Book creates a reservation if the interval is free. On overlap it
// returns a *ConflictError naming the blocking reservation and leaves the
// store untouched.
func (e *Engine) Book(ctx context.Context, req BookRequest) (model.Reservation, error) {
	iv, err := e.validate(ctx, req.CourtID, req.Date, req.Start, req.End)
	if err != nil {
		return model.Reservation{}, err
	}
	if _, err := e.users.GetUser(ctx, req.UserID); err != nil {
		return model.Reservation{}, fmt.Errorf("user %d: %w", req.UserID, err)
	}

	release, err := e.locker.Lock(ctx, courtKey(req.CourtID, req.Date))
	if err != nil {
		return model.Reservation{}, fmt.Errorf("lock court %d on %s: %w", req.CourtID, req.Date, err)
	}
	created, err := e.bookLocked(ctx, req, iv)
	release()
	if err != nil {
		return model.Reservation{}, err
	}

	e.log.Info("reservation created",
		zap.Uint64("reservation_id", created.ID),
		zap.Uint64("court_id", created.CourtID),
		zap.Uint64("user_id", created.UserID),
		zap.String("date", created.Date.String()),
		zap.String("interval", iv.String()),
	)
	e.publish(ctx, EventCreated, created)
	return created, nil
}

func (e *Engine) bookLocked(ctx context.Context, req BookRequest, iv model.Interval) (model.Reservation, error) {
	existing, err := e.checker.Conflicting(ctx, req.CourtID, req.Date, iv, 0)
	if err != nil {
		return model.Reservation{}, err
	}
	if existing != nil {
		return model.Reservation{}, &ConflictError{CourtID: req.CourtID, Date: req.Date, Existing: *existing}
	}
	created, err := e.reservations.Insert(ctx, model.Reservation{
		CourtID:   req.CourtID,
		UserID:    req.UserID,
		Date:      req.Date,
		Start:     iv.Start,
		End:       iv.End,
		CreatedAt: e.now().UTC(),
	})
	if err != nil {
		return model.Reservation{}, fmt.Errorf("insert reservation: %w", err)
	}
	return created, nil
}

// Check reports whether the interval could be booked right now. It
// validates like Book and never mutates.
func (e *Engine) Check(ctx context.Context, courtID uint64, date model.Date, start, end model.TimeOfDay) (bool, error) {
	iv, err := e.validate(ctx, courtID, date, start, end)
	if err != nil {
		return false, err
	}
	return e.checker.IsAvailable(ctx, courtID, date, iv, 0)
}

// Cancel marks the reservation cancelled, freeing its interval. Cancelling
// twice returns ErrCancelled.
func (e *Engine) Cancel(ctx context.Context, id uint64) (model.Reservation, error) {
	r, err := e.reservations.Get(ctx, id)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("reservation %d: %w", id, err)
	}
	if !r.Active() {
		return model.Reservation{}, fmt.Errorf("reservation %d: %w", id, ErrCancelled)
	}

	release, err := e.locker.Lock(ctx, courtKey(r.CourtID, r.Date))
	if err != nil {
		return model.Reservation{}, fmt.Errorf("lock court %d on %s: %w", r.CourtID, r.Date, err)
	}
	cancelled, err := e.reservations.Cancel(ctx, id, e.now().UTC())
	release()
	if err != nil {
		return model.Reservation{}, fmt.Errorf("cancel reservation %d: %w", id, err)
	}

	e.log.Info("reservation cancelled", zap.Uint64("reservation_id", id))
	e.publish(ctx, EventCancelled, cancelled)
	return cancelled, nil
}

func (e *Engine) Get(ctx context.Context, id uint64) (model.Reservation, error) {
	r, err := e.reservations.Get(ctx, id)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("reservation %d: %w", id, err)
	}
	return r, nil
}

func (e *Engine) List(ctx context.Context, f Filter) ([]model.Reservation, error) {
	rs, err := e.reservations.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return rs, nil
}

// FreeIntervals lists the bookable gaps of a court on date.
func (e *Engine) FreeIntervals(ctx context.Context, courtID uint64, date model.Date) ([]model.Interval, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("missing date: %w", ErrInvalidInterval)
	}
	if _, err := e.courts.GetCourt(ctx, courtID); err != nil {
		return nil, fmt.Errorf("court %d: %w", courtID, err)
	}
	return e.checker.FreeIntervals(ctx, courtID, date)
}

// publish never fails the caller: the state change is already durable.
func (e *Engine) publish(ctx context.Context, kind EventKind, r model.Reservation) {
	if err := e.events.Publish(ctx, kind, r); err != nil {
		e.log.Warn("publish event failed",
			zap.String("event", string(kind)),
			zap.Uint64("reservation_id", r.ID),
			zap.Error(err),
		)
	}
}

// IsClientError reports whether err is caused by the request rather than
// by storage or a broken invariant.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrInvalidInterval, ErrInvalidInput, ErrConflict, ErrNotFound,
		ErrAlreadyLinked, ErrCancelled, ErrInUse, ErrInvalidAmount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
