package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/booking"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/database"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/model"
)

// TimeSlotRepo stores the weekly operating hours of courts.
type TimeSlotRepo struct {
	db *sql.DB
}

func NewTimeSlotRepo(db *sql.DB) *TimeSlotRepo { return &TimeSlotRepo{db: db} }

func (r *TimeSlotRepo) CreateTimeSlot(ctx context.Context, s model.TimeSlot) (model.TimeSlot, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO time_slots (court_id, weekday, opens_minute, closes_minute) VALUES (?, ?, ?, ?)`,
		s.CourtID, int(s.Weekday), int(s.Opens), int(s.Closes))
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return model.TimeSlot{}, fmt.Errorf("court %d: %w", s.CourtID, booking.ErrNotFound)
		}
		return model.TimeSlot{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.TimeSlot{}, err
	}
	s.ID = uint64(id)
	return s, nil
}

// ListTimeSlots returns the slots of a court ordered by weekday and
// opening time.
func (r *TimeSlotRepo) ListTimeSlots(ctx context.Context, courtID uint64) ([]model.TimeSlot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, court_id, weekday, opens_minute, closes_minute FROM time_slots
		 WHERE court_id = ? ORDER BY weekday, opens_minute, id`, courtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TimeSlot
	for rows.Next() {
		var (
			s                      model.TimeSlot
			weekday, opens, closes int
		)
		if err := rows.Scan(&s.ID, &s.CourtID, &weekday, &opens, &closes); err != nil {
			return nil, err
		}
		s.Weekday = time.Weekday(weekday)
		s.Opens, s.Closes = model.TimeOfDay(opens), model.TimeOfDay(closes)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *TimeSlotRepo) DeleteTimeSlot(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM time_slots WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrNotFound
	}
	return nil
}
