package model

import "time"

// Court is a bookable playing field.
//
// Fields:
//
//	ID        – primary key identifier.
//	Name      – display name, required.
//	Kind      – free-form sport/surface label (e.g. "pádel", "fútbol 5").
//	Price     – price per slot in minor currency units.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last administrative edit.
type Court struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Price     int64     `json:"price"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TimeSlot is an operating-hours window of a court on one weekday. Slots
// are never booked themselves; a booking must fit inside one of them when
// the court has any configured.
type TimeSlot struct {
	ID      uint64       `json:"id"`
	CourtID uint64       `json:"court_id"`
	Weekday time.Weekday `json:"weekday"`
	Opens   TimeOfDay    `json:"opens"`
	Closes  TimeOfDay    `json:"closes"`
}

func (s TimeSlot) Hours() Interval { return Interval{Start: s.Opens, End: s.Closes} }
