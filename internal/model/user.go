package model

import "time"

// User represents a customer as stored in the `users` table. Reservations
// reference users by id only; this core attaches no behaviour to them.
//
// Fields:
//
//	ID        – primary key identifier of the user.
//	Name      – display name.
//	Email     – unique email address, stored lower-cased.
//	Phone     – optional contact number.
//	CreatedAt – timestamp of creation.
type User struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
