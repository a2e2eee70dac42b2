package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/booking"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/database"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/model"
)

// ReservationRepo stores reservations in the reservations table. The date
// is kept as 'YYYY-MM-DD' text and times as minutes since midnight, so
// ordering and overlap predicates are plain integer comparisons. All
// timestamps are written in UTC.
type ReservationRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewReservationRepo(db *sql.DB, d database.Dialect) *ReservationRepo {
	return &ReservationRepo{db: db, dialect: d}
}

const reservationColumns = `id, court_id, user_id, booking_date, start_minute, end_minute, payment_id, created_at, cancelled_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(s rowScanner) (model.Reservation, error) {
	var (
		r         model.Reservation
		date      string
		start     int
		end       int
		paymentID sql.NullInt64
		cancelled sql.NullTime
	)
	if err := s.Scan(&r.ID, &r.CourtID, &r.UserID, &date, &start, &end, &paymentID, &r.CreatedAt, &cancelled); err != nil {
		return model.Reservation{}, err
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("reservation %d: stored %w", r.ID, err)
	}
	r.Date = d
	r.Start, r.End = model.TimeOfDay(start), model.TimeOfDay(end)
	if paymentID.Valid {
		pid := uint64(paymentID.Int64)
		r.PaymentID = &pid
	}
	if cancelled.Valid {
		at := cancelled.Time.UTC()
		r.CancelledAt = &at
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

func (r *ReservationRepo) query(ctx context.Context, q string, args ...interface{}) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ListByCourtAndDate returns every reservation of the court on date,
// cancelled ones included, ordered by start then id.
func (r *ReservationRepo) ListByCourtAndDate(ctx context.Context, courtID uint64, date model.Date) ([]model.Reservation, error) {
	return r.query(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE court_id = ? AND booking_date = ?
		 ORDER BY start_minute, id`,
		courtID, date.String())
}

// List returns reservations matching f ordered by date, start and id.
func (r *ReservationRepo) List(ctx context.Context, f booking.Filter) ([]model.Reservation, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.CourtID != 0 {
		where = append(where, "court_id = ?")
		args = append(args, f.CourtID)
	}
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Date != nil {
		where = append(where, "booking_date = ?")
		args = append(args, f.Date.String())
	}
	if f.ActiveOnly {
		where = append(where, "cancelled_at IS NULL")
	}
	q := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY booking_date, start_minute, id"
	return r.query(ctx, q, args...)
}

func (r *ReservationRepo) Get(ctx context.Context, id uint64) (model.Reservation, error) {
	return getReservation(ctx, r.db, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getReservation(ctx context.Context, q querier, id uint64) (model.Reservation, error) {
	res, err := scanReservation(q.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, booking.ErrNotFound
	}
	return res, err
}

// Insert stores res after re-checking, inside the same transaction, that
// no active reservation of the court overlaps it. The court row is locked
// first so concurrent inserts for the court queue behind each other.
func (r *ReservationRepo) Insert(ctx context.Context, res model.Reservation) (model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Reservation{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var courtID uint64
	err = tx.QueryRowContext(ctx, r.dialect.LockCourtRow(), res.CourtID).Scan(&courtID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, fmt.Errorf("court %d: %w", res.CourtID, booking.ErrNotFound)
	}
	if err != nil {
		return model.Reservation{}, err
	}

	existing, err := scanReservation(tx.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE court_id = ? AND booking_date = ? AND cancelled_at IS NULL
		   AND start_minute < ? AND end_minute > ?
		 ORDER BY start_minute, id LIMIT 1`,
		res.CourtID, res.Date.String(), int(res.End), int(res.Start)))
	switch {
	case err == nil:
		return model.Reservation{}, &booking.ConflictError{CourtID: res.CourtID, Date: res.Date, Existing: existing}
	case !errors.Is(err, sql.ErrNoRows):
		return model.Reservation{}, err
	}

	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (court_id, user_id, booking_date, start_minute, end_minute, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		res.CourtID, res.UserID, res.Date.String(), int(res.Start), int(res.End), res.CreatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return model.Reservation{}, fmt.Errorf("user %d: %w", res.UserID, booking.ErrNotFound)
		}
		return model.Reservation{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Reservation{}, err
	}
	created, err := getReservation(ctx, tx, uint64(id))
	if err != nil {
		return model.Reservation{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Reservation{}, err
	}
	committed = true
	return created, nil
}

// Cancel sets cancelled_at once. A second cancel returns ErrCancelled.
func (r *ReservationRepo) Cancel(ctx context.Context, id uint64, at time.Time) (model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Reservation{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE reservations SET cancelled_at = ? WHERE id = ? AND cancelled_at IS NULL`,
		at.UTC(), id)
	if err != nil {
		return model.Reservation{}, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return model.Reservation{}, err
	}
	res, err := getReservation(ctx, tx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	if n == 0 {
		return model.Reservation{}, booking.ErrCancelled
	}
	if err := tx.Commit(); err != nil {
		return model.Reservation{}, err
	}
	committed = true
	return res, nil
}

// AttachPayment links paymentID to an active, unpaid reservation. The
// conditional UPDATE makes the check and the write one statement; the
// UNIQUE index on payment_id rejects a payment used elsewhere.
func (r *ReservationRepo) AttachPayment(ctx context.Context, reservationID, paymentID uint64) (model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Reservation{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE reservations SET payment_id = ?
		 WHERE id = ? AND payment_id IS NULL AND cancelled_at IS NULL`,
		paymentID, reservationID)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return model.Reservation{}, fmt.Errorf("payment %d: %w", paymentID, booking.ErrAlreadyLinked)
		case database.IsForeignKeyViolation(err):
			return model.Reservation{}, fmt.Errorf("payment %d: %w", paymentID, booking.ErrNotFound)
		}
		return model.Reservation{}, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return model.Reservation{}, err
	}
	res, err := getReservation(ctx, tx, reservationID)
	if err != nil {
		return model.Reservation{}, err
	}
	if n == 0 {
		if !res.Active() {
			return model.Reservation{}, booking.ErrCancelled
		}
		return model.Reservation{}, booking.ErrAlreadyLinked
	}
	if err := tx.Commit(); err != nil {
		return model.Reservation{}, err
	}
	committed = true
	return res, nil
}

// CountByCourt counts reservations of the court, cancelled ones included.
func (r *ReservationRepo) CountByCourt(ctx context.Context, courtID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE court_id = ?`, courtID).Scan(&n)
	return n, err
}
