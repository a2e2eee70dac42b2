// Package repository implements the booking stores and the court, time slot
// and user directories on SQL (MySQL, SQLite) and in memory.
package repository

import (
	"context"
	"database/sql"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/booking"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/database"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/model"
)

// Courts is the administrative view of courts.
type Courts interface {
	booking.CourtStore
	CreateCourt(ctx context.Context, c model.Court) (model.Court, error)
	UpdateCourt(ctx context.Context, c model.Court) (model.Court, error)
	ListCourts(ctx context.Context) ([]model.Court, error)
}

type TimeSlots interface {
	booking.ScheduleDirectory
	CreateTimeSlot(ctx context.Context, s model.TimeSlot) (model.TimeSlot, error)
	DeleteTimeSlot(ctx context.Context, id uint64) error
}

type Users interface {
	booking.UserDirectory
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

// Set bundles one implementation of every store.
type Set struct {
	Courts       Courts
	TimeSlots    TimeSlots
	Users        Users
	Payments     booking.PaymentStore
	Reservations booking.ReservationStore
}

// NewMemorySet returns a Set backed by a single in-memory store.
func NewMemorySet() Set {
	m := NewMemory()
	return Set{Courts: m, TimeSlots: m, Users: m, Payments: m, Reservations: m}
}

// NewSQLSet returns a Set backed by db.
func NewSQLSet(db *sql.DB, d database.Dialect) Set {
	return Set{
		Courts:       NewCourtRepo(db),
		TimeSlots:    NewTimeSlotRepo(db),
		Users:        NewUserRepo(db),
		Payments:     NewPaymentRepo(db, d),
		Reservations: NewReservationRepo(db, d),
	}
}

// EngineDeps fills the store fields of booking.Deps.
func (s Set) EngineDeps() booking.Deps {
	return booking.Deps{
		Reservations: s.Reservations,
		Payments:     s.Payments,
		Courts:       s.Courts,
		Schedule:     s.TimeSlots,
		Users:        s.Users,
	}
}
