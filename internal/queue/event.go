package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/booking"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/model"
)

// ReservationEvent is published on every reservation state change. It
// carries the reservation as it is after the change so consumers never
// need to query the primary database.
type ReservationEvent struct {
	EventID       string            `json:"event_id"`
	Kind          booking.EventKind `json:"kind"`
	ReservationID uint64            `json:"reservation_id"`
	CourtID       uint64            `json:"court_id"`
	UserID        uint64            `json:"user_id"`
	Date          model.Date        `json:"date"`
	Start         model.TimeOfDay   `json:"start"`
	End           model.TimeOfDay   `json:"end"`
	Status        model.Status      `json:"status"`
	PaymentID     *uint64           `json:"payment_id,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

func NewReservationEvent(kind booking.EventKind, r model.Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		EventID:       uuid.NewString(),
		Kind:          kind,
		ReservationID: r.ID,
		CourtID:       r.CourtID,
		UserID:        r.UserID,
		Date:          r.Date,
		Start:         r.Start,
		End:           r.End,
		Status:        r.Status(),
		PaymentID:     r.PaymentID,
		OccurredAt:    at.UTC(),
	}
}
