package booking

import (
	"context"
	"time"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/model"
)

// Filter narrows List. Zero fields do not filter.
type Filter struct {
	CourtID    uint64
	UserID     uint64
	Date       *model.Date
	ActiveOnly bool
}

// ReservationStore persists reservations.
//
// Insert must reject, with a *ConflictError, a reservation that overlaps an
// active one on the same court and date, even when the caller already
// checked. Cancel and AttachPayment must be atomic with respect to each
// other: a cancelled reservation never gains a payment.
type ReservationStore interface {
	// ListByCourtAndDate returns every reservation of the key, cancelled
	// ones included, ordered by start then id.
	ListByCourtAndDate(ctx context.Context, courtID uint64, date model.Date) ([]model.Reservation, error)
	// List returns reservations ordered by date, start, id.
	List(ctx context.Context, f Filter) ([]model.Reservation, error)
	Get(ctx context.Context, id uint64) (model.Reservation, error)
	Insert(ctx context.Context, r model.Reservation) (model.Reservation, error)
	// Cancel returns ErrCancelled when the reservation is already cancelled.
	Cancel(ctx context.Context, id uint64, at time.Time) (model.Reservation, error)
	// AttachPayment returns ErrAlreadyLinked when the reservation already
	// has a payment or the payment belongs to another reservation.
	AttachPayment(ctx context.Context, reservationID, paymentID uint64) (model.Reservation, error)
	CountByCourt(ctx context.Context, courtID uint64) (int, error)
}

// PaymentStore persists payments.
type PaymentStore interface {
	CreatePayment(ctx context.Context, p model.Payment) (model.Payment, error)
	GetPayment(ctx context.Context, id uint64) (model.Payment, error)
	ListPayments(ctx context.Context) ([]model.Payment, error)
	// DeletePayment detaches the payment from its reservation and deletes
	// it in one transaction. It returns the detached reservation id, or 0.
	DeletePayment(ctx context.Context, id uint64) (uint64, error)
}

type CourtStore interface {
	GetCourt(ctx context.Context, id uint64) (model.Court, error)
	// DeleteCourt returns ErrInUse if a reservation still references it.
	DeleteCourt(ctx context.Context, id uint64) error
}

// ScheduleDirectory provides operating hours.
type ScheduleDirectory interface {
	ListTimeSlots(ctx context.Context, courtID uint64) ([]model.TimeSlot, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, id uint64) (model.User, error)
}

// EventKind names a reservation lifecycle event.
type EventKind string

const (
	EventCreated        EventKind = "reservation.created"
	EventConfirmed      EventKind = "reservation.confirmed"
	EventCancelled      EventKind = "reservation.cancelled"
	EventPaymentRemoved EventKind = "reservation.payment_removed"
)

// EventSink receives lifecycle events after the state change is durable.
// Delivery is best effort; a failing sink never undoes a booking.
type EventSink interface {
	Publish(ctx context.Context, kind EventKind, r model.Reservation) error
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Publish(context.Context, EventKind, model.Reservation) error { return nil }
