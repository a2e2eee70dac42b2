package booking_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/booking"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/model"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/repository"
)

var dec1 = model.Date{Year: 2025, Month: time.December, Day: 1} // a Monday

func hm(h, m int) model.TimeOfDay { return model.TimeOfDay(h*60 + m) }

type recordingSink struct {
	mu     sync.Mutex
	events []booking.EventKind
}

func (s *recordingSink) Publish(_ context.Context, kind booking.EventKind, _ model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, kind)
	return nil
}

func (s *recordingSink) kinds() []booking.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]booking.EventKind(nil), s.events...)
}

type env struct {
	engine *booking.Engine
	stores repository.Set
	sink   *recordingSink
	court  model.Court
	user   model.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	set := repository.NewMemorySet()
	court, err := set.Courts.CreateCourt(ctx, model.Court{Name: "Cancha 1", Kind: "pádel", Price: 1500})
	require.NoError(t, err)
	user, err := set.Users.CreateUser(ctx, model.User{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)

	sink := &recordingSink{}
	deps := set.EngineDeps()
	deps.Events = sink
	deps.Logger = zaptest.NewLogger(t)
	return &env{engine: booking.NewEngine(deps), stores: set, sink: sink, court: court, user: user}
}

func (e *env) req(start, end model.TimeOfDay) booking.BookRequest {
	return booking.BookRequest{CourtID: e.court.ID, UserID: e.user.ID, Date: dec1, Start: start, End: end}
}

func TestBookScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	r1, err := e.engine.Book(ctx, e.req(hm(18, 0), hm(19, 0)))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, r1.Status())

	_, err = e.engine.Book(ctx, e.req(hm(18, 30), hm(19, 30)))
	var ce *booking.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, r1.ID, ce.Existing.ID)

	_, err = e.engine.Book(ctx, e.req(hm(19, 0), hm(20, 0)))
	require.NoError(t, err, "back-to-back bookings do not conflict")

	paid, err := e.engine.Pay(ctx, r1.ID, 1500)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, paid.Status())

	_, err = e.engine.Pay(ctx, r1.ID, 1500)
	assert.ErrorIs(t, err, booking.ErrAlreadyLinked)
	payments, err := e.stores.Payments.ListPayments(ctx)
	require.NoError(t, err)
	assert.Len(t, payments, 1, "a second Pay must not create a payment")

	cancelled, err := e.engine.Cancel(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status())

	_, err = e.engine.Book(ctx, e.req(hm(18, 30), hm(19, 0)))
	require.NoError(t, err, "cancellation frees the slot")

	assert.Equal(t, []booking.EventKind{
		booking.EventCreated, booking.EventCreated, booking.EventConfirmed,
		booking.EventCancelled, booking.EventCreated,
	}, e.sink.kinds())
}

func TestBookValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.engine.Book(ctx, e.req(hm(10, 0), hm(10, 0)))
	assert.ErrorIs(t, err, booking.ErrInvalidInterval)
	_, err = e.engine.Book(ctx, e.req(hm(23, 0), hm(1, 0)))
	assert.ErrorIs(t, err, booking.ErrInvalidInterval)

	r := e.req(hm(10, 0), hm(11, 0))
	r.Date = model.Date{}
	_, err = e.engine.Book(ctx, r)
	assert.ErrorIs(t, err, booking.ErrInvalidInterval)

	r = e.req(hm(10, 0), hm(11, 0))
	r.CourtID = 999
	_, err = e.engine.Book(ctx, r)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	r = e.req(hm(10, 0), hm(11, 0))
	r.UserID = 999
	_, err = e.engine.Book(ctx, r)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	all, err := e.engine.List(ctx, booking.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOperatingHours(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// No time slots: open all day, "24:00" is a valid end.
	_, err := e.engine.Book(ctx, e.req(hm(23, 0), model.MinutesPerDay))
	require.NoError(t, err)

	_, err = e.stores.TimeSlots.CreateTimeSlot(ctx, model.TimeSlot{CourtID: e.court.ID, Weekday: time.Monday, Opens: hm(8, 0), Closes: hm(12, 0)})
	require.NoError(t, err)
	_, err = e.stores.TimeSlots.CreateTimeSlot(ctx, model.TimeSlot{CourtID: e.court.ID, Weekday: time.Monday, Opens: hm(16, 0), Closes: hm(22, 0)})
	require.NoError(t, err)

	_, err = e.engine.Book(ctx, e.req(hm(11, 0), hm(13, 0)))
	assert.ErrorIs(t, err, booking.ErrInvalidInterval, "crosses closing time")
	_, err = e.engine.Book(ctx, e.req(hm(7, 0), hm(8, 0)))
	assert.ErrorIs(t, err, booking.ErrInvalidInterval, "before opening")
	_, err = e.engine.Book(ctx, e.req(hm(16, 0), hm(17, 30)))
	require.NoError(t, err)

	tuesday := e.req(hm(9, 0), hm(10, 0))
	tuesday.Date = model.Date{Year: 2025, Month: time.December, Day: 2}
	_, err = e.engine.Book(ctx, tuesday)
	assert.ErrorIs(t, err, booking.ErrInvalidInterval, "closed on days without slots")

	ok, err := e.engine.Check(ctx, e.court.ID, dec1, hm(9, 0), hm(10, 0))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.engine.Check(ctx, e.court.ID, dec1, hm(17, 0), hm(18, 0))
	require.NoError(t, err)
	assert.False(t, ok)

	free, err := e.engine.FreeIntervals(ctx, e.court.ID, dec1)
	require.NoError(t, err)
	assert.Equal(t, []model.Interval{
		{Start: hm(8, 0), End: hm(12, 0)},
		{Start: hm(17, 30), End: hm(22, 0)},
	}, free)
}

func TestConcurrentIdenticalBooks(t *testing.T) {
	e := newEnv(t)
	const n = 32

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := e.engine.Book(context.Background(), e.req(hm(18, 0), hm(19, 0)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, booking.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
}

func TestRandomBooksNeverOverlap(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		seed := rng.Int63()
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			for i := 0; i < 50; i++ {
				start := model.TimeOfDay(r.Intn(model.MinutesPerDay - 15))
				end := start + model.TimeOfDay(15+r.Intn(120))
				if end > model.MinutesPerDay {
					end = model.MinutesPerDay
				}
				res, err := e.engine.Book(ctx, e.req(start, end))
				if err == nil && r.Intn(4) == 0 {
					_, _ = e.engine.Cancel(ctx, res.ID)
				}
			}
		}()
	}
	wg.Wait()

	list, err := e.engine.List(ctx, booking.Filter{CourtID: e.court.ID, ActiveOnly: true})
	require.NoError(t, err)
	for i := range list {
		for j := i + 1; j < len(list); j++ {
			assert.False(t, model.Overlaps(list[i].Interval(), list[j].Interval()),
				"%d %s overlaps %d %s", list[i].ID, list[i].Interval(), list[j].ID, list[j].Interval())
		}
	}
	free, err := e.engine.FreeIntervals(ctx, e.court.ID, dec1)
	require.NoError(t, err, "active set must stay consistent")
	assert.NotNil(t, free)
}

func TestCancelTwice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	r, err := e.engine.Book(ctx, e.req(hm(10, 0), hm(11, 0)))
	require.NoError(t, err)
	_, err = e.engine.Cancel(ctx, r.ID)
	require.NoError(t, err)
	_, err = e.engine.Cancel(ctx, r.ID)
	assert.ErrorIs(t, err, booking.ErrCancelled)
	_, err = e.engine.Cancel(ctx, 999)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestGetAndList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	late, err := e.engine.Book(ctx, e.req(hm(20, 0), hm(21, 0)))
	require.NoError(t, err)
	early, err := e.engine.Book(ctx, e.req(hm(9, 0), hm(10, 0)))
	require.NoError(t, err)

	got, err := e.engine.Get(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, late.Interval(), got.Interval())
	_, err = e.engine.Get(ctx, 999)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	d := dec1
	list, err := e.engine.List(ctx, booking.Filter{Date: &d})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, early.ID, list[0].ID)
	assert.Equal(t, late.ID, list[1].ID)
}
