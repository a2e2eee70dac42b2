package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/booking"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/model"
)

// Memory implements every store on maps guarded by one mutex. It mirrors
// the constraints of the SQL schema: foreign keys, the unique payment
// link and the overlap re-check on insert.
type Memory struct {
	mu           sync.RWMutex
	seq          map[string]uint64
	courts       map[uint64]model.Court
	slots        map[uint64]model.TimeSlot
	users        map[uint64]model.User
	payments     map[uint64]model.Payment
	reservations map[uint64]model.Reservation
}

func NewMemory() *Memory {
	return &Memory{
		seq:          make(map[string]uint64),
		courts:       make(map[uint64]model.Court),
		slots:        make(map[uint64]model.TimeSlot),
		users:        make(map[uint64]model.User),
		payments:     make(map[uint64]model.Payment),
		reservations: make(map[uint64]model.Reservation),
	}
}

func (m *Memory) next(table string) uint64 {
	m.seq[table]++
	return m.seq[table]
}

// ---- courts ----

func (m *Memory) CreateCourt(_ context.Context, c model.Court) (model.Court, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	c.ID = m.next("courts")
	c.CreatedAt, c.UpdatedAt = now, now
	m.courts[c.ID] = c
	return c, nil
}

func (m *Memory) UpdateCourt(_ context.Context, c model.Court) (model.Court, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.courts[c.ID]
	if !ok {
		return model.Court{}, booking.ErrNotFound
	}
	c.CreatedAt = old.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	m.courts[c.ID] = c
	return c, nil
}

func (m *Memory) GetCourt(_ context.Context, id uint64) (model.Court, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courts[id]
	if !ok {
		return model.Court{}, booking.ErrNotFound
	}
	return c, nil
}

func (m *Memory) ListCourts(_ context.Context) ([]model.Court, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Court, 0, len(m.courts))
	for _, c := range m.courts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteCourt(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courts[id]; !ok {
		return booking.ErrNotFound
	}
	for _, r := range m.reservations {
		if r.CourtID == id {
			return fmt.Errorf("court %d: %w", id, booking.ErrInUse)
		}
	}
	for sid, s := range m.slots {
		if s.CourtID == id {
			delete(m.slots, sid)
		}
	}
	delete(m.courts, id)
	return nil
}

// ---- time slots ----

func (m *Memory) CreateTimeSlot(_ context.Context, s model.TimeSlot) (model.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courts[s.CourtID]; !ok {
		return model.TimeSlot{}, fmt.Errorf("court %d: %w", s.CourtID, booking.ErrNotFound)
	}
	s.ID = m.next("time_slots")
	m.slots[s.ID] = s
	return s, nil
}

func (m *Memory) ListTimeSlots(_ context.Context, courtID uint64) ([]model.TimeSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.TimeSlot
	for _, s := range m.slots {
		if s.CourtID == courtID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		if out[i].Opens != out[j].Opens {
			return out[i].Opens < out[j].Opens
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) DeleteTimeSlot(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[id]; !ok {
		return booking.ErrNotFound
	}
	delete(m.slots, id)
	return nil
}

// ---- users ----

func (m *Memory) CreateUser(_ context.Context, u model.User) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return model.User{}, ErrEmailExists
		}
	}
	u.ID = m.next("users")
	u.CreatedAt = time.Now().UTC()
	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) GetUser(_ context.Context, id uint64) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, booking.ErrNotFound
	}
	return u, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- payments ----

func (m *Memory) CreatePayment(_ context.Context, p model.Payment) (model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Amount <= 0 {
		return model.Payment{}, fmt.Errorf("amount %d: %w", p.Amount, booking.ErrInvalidAmount)
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}
	p.ID = m.next("payments")
	m.payments[p.ID] = p
	return p, nil
}

func (m *Memory) GetPayment(_ context.Context, id uint64) (model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	if !ok {
		return model.Payment{}, booking.ErrNotFound
	}
	return p, nil
}

func (m *Memory) ListPayments(_ context.Context) ([]model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeletePayment(_ context.Context, id uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[id]; !ok {
		return 0, booking.ErrNotFound
	}
	var detached uint64
	for rid, r := range m.reservations {
		if r.PaymentID != nil && *r.PaymentID == id {
			r.PaymentID = nil
			m.reservations[rid] = r
			detached = rid
		}
	}
	delete(m.payments, id)
	return detached, nil
}

// ---- reservations ----

func (m *Memory) ListByCourtAndDate(_ context.Context, courtID uint64, date model.Date) ([]model.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Reservation
	for _, r := range m.reservations {
		if r.CourtID == courtID && r.Date == date {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) List(_ context.Context, f booking.Filter) ([]model.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.Reservation{}
	for _, r := range m.reservations {
		switch {
		case f.CourtID != 0 && r.CourtID != f.CourtID,
			f.UserID != 0 && r.UserID != f.UserID,
			f.Date != nil && r.Date != *f.Date,
			f.ActiveOnly && !r.Active():
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date.String() < b.Date.String()
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (m *Memory) Get(_ context.Context, id uint64) (model.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reservations[id]
	if !ok {
		return model.Reservation{}, booking.ErrNotFound
	}
	return r, nil
}

func (m *Memory) Insert(_ context.Context, r model.Reservation) (model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courts[r.CourtID]; !ok {
		return model.Reservation{}, fmt.Errorf("court %d: %w", r.CourtID, booking.ErrNotFound)
	}
	if _, ok := m.users[r.UserID]; !ok {
		return model.Reservation{}, fmt.Errorf("user %d: %w", r.UserID, booking.ErrNotFound)
	}
	for _, other := range m.reservations {
		if other.CourtID == r.CourtID && other.Date == r.Date && other.Active() &&
			model.Overlaps(other.Interval(), r.Interval()) {
			return model.Reservation{}, &booking.ConflictError{CourtID: r.CourtID, Date: r.Date, Existing: other}
		}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.ID = m.next("reservations")
	r.PaymentID = nil
	r.CancelledAt = nil
	m.reservations[r.ID] = r
	return r, nil
}

func (m *Memory) Cancel(_ context.Context, id uint64, at time.Time) (model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return model.Reservation{}, booking.ErrNotFound
	}
	if !r.Active() {
		return model.Reservation{}, booking.ErrCancelled
	}
	r.CancelledAt = &at
	m.reservations[id] = r
	return r, nil
}

func (m *Memory) AttachPayment(_ context.Context, reservationID, paymentID uint64) (model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[reservationID]
	if !ok {
		return model.Reservation{}, booking.ErrNotFound
	}
	if _, ok := m.payments[paymentID]; !ok {
		return model.Reservation{}, fmt.Errorf("payment %d: %w", paymentID, booking.ErrNotFound)
	}
	if !r.Active() {
		return model.Reservation{}, booking.ErrCancelled
	}
	if r.PaymentID != nil {
		return model.Reservation{}, booking.ErrAlreadyLinked
	}
	for _, other := range m.reservations {
		if other.PaymentID != nil && *other.PaymentID == paymentID {
			return model.Reservation{}, fmt.Errorf("payment %d used by reservation %d: %w", paymentID, other.ID, booking.ErrAlreadyLinked)
		}
	}
	pid := paymentID
	r.PaymentID = &pid
	m.reservations[reservationID] = r
	return r, nil
}

func (m *Memory) CountByCourt(_ context.Context, courtID uint64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.reservations {
		if r.CourtID == courtID {
			n++
		}
	}
	return n, nil
}
