package model

import (
	"encoding/json"
	"time"
)

// Status is the externally visible state of a reservation. It is always
// derived from CancelledAt and PaymentID and never stored on its own.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Reservation books one court for one user on a half-open time range of a
// single date.
//
// Fields:
//
//	ID          – primary key identifier.
//	CourtID     – booked court.
//	UserID      – user who made the booking.
//	Date        – local calendar day of the booking.
//	Start, End  – half-open range [Start, End) on Date.
//	PaymentID   – linked payment, nil while unpaid.
//	CreatedAt   – creation timestamp (UTC).
//	CancelledAt – set once the reservation is cancelled; cancelled rows are
//	              kept for history but no longer block the slot.
type Reservation struct {
	ID          uint64     `json:"id"`
	CourtID     uint64     `json:"court_id"`
	UserID      uint64     `json:"user_id"`
	Date        Date       `json:"date"`
	Start       TimeOfDay  `json:"start"`
	End         TimeOfDay  `json:"end"`
	PaymentID   *uint64    `json:"payment_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

func (r Reservation) Interval() Interval { return Interval{Start: r.Start, End: r.End} }

// Active reports whether the reservation still holds its slot.
func (r Reservation) Active() bool { return r.CancelledAt == nil }

func (r Reservation) Status() Status {
	switch {
	case r.CancelledAt != nil:
		return StatusCancelled
	case r.PaymentID != nil:
		return StatusConfirmed
	default:
		return StatusPending
	}
}

// MarshalJSON adds the derived status to the stored fields.
func (r Reservation) MarshalJSON() ([]byte, error) {
	type plain Reservation
	return json.Marshal(struct {
		plain
		Status Status `json:"status"`
	}{plain(r), r.Status()})
}
