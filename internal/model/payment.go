package model

import "time"

// Payment records money received. It exists on its own and is linked to at
// most one reservation through Reservation.PaymentID.
type Payment struct {
	ID     uint64    `json:"id"`
	Amount int64     `json:"amount"` // minor currency units
	PaidAt time.Time `json:"paid_at"`
}
