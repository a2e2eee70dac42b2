package booking

import (
	"errors"
	"fmt"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/model"
)

// Sentinel errors returned by the booking core and its stores. Callers
// compare with errors.Is; every layer wraps with %w.
var (
	ErrInvalidInterval   = model.ErrInvalidInterval
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("reservation conflict")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyLinked     = errors.New("payment already linked")
	ErrCancelled         = errors.New("reservation cancelled")
	ErrInUse             = errors.New("resource in use")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvariantViolated = errors.New("stored reservations overlap")
)

// ConflictError reports the active reservation that blocks a booking.
// errors.Is(err, ErrConflict) holds for it.
type ConflictError struct {
	CourtID  uint64
	Date     model.Date
	Existing model.Reservation
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("court %d on %s: %s overlaps reservation %d",
		e.CourtID, e.Date, e.Existing.Interval(), e.Existing.ID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
