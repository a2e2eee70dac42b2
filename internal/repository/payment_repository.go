package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/booking"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/database"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/model"
)

// PaymentRepo stores payments. A payment is linked to a reservation from
// the reservation side (reservations.payment_id), so deleting one first
// clears that link.
type PaymentRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewPaymentRepo(db *sql.DB, d database.Dialect) *PaymentRepo {
	return &PaymentRepo{db: db, dialect: d}
}

func (r *PaymentRepo) CreatePayment(ctx context.Context, p model.Payment) (model.Payment, error) {
	if p.Amount <= 0 {
		return model.Payment{}, fmt.Errorf("amount %d: %w", p.Amount, booking.ErrInvalidAmount)
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now()
	}
	p.PaidAt = p.PaidAt.UTC()
	res, err := r.db.ExecContext(ctx, `INSERT INTO payments (amount, paid_at) VALUES (?, ?)`, p.Amount, p.PaidAt)
	if err != nil {
		return model.Payment{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Payment{}, err
	}
	p.ID = uint64(id)
	return p, nil
}

func (r *PaymentRepo) GetPayment(ctx context.Context, id uint64) (model.Payment, error) {
	var p model.Payment
	err := r.db.QueryRowContext(ctx, `SELECT id, amount, paid_at FROM payments WHERE id = ?`, id).
		Scan(&p.ID, &p.Amount, &p.PaidAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Payment{}, booking.ErrNotFound
	}
	p.PaidAt = p.PaidAt.UTC()
	return p, err
}

func (r *PaymentRepo) ListPayments(ctx context.Context) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, amount, paid_at FROM payments ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Payment{}
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.Amount, &p.PaidAt); err != nil {
			return nil, err
		}
		p.PaidAt = p.PaidAt.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePayment detaches the payment from its reservation and deletes it
// in one transaction. It returns the id of the detached reservation, or 0.
func (r *PaymentRepo) DeletePayment(ctx context.Context, id uint64) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	err = tx.QueryRowContext(ctx, r.dialect.LockPaymentRow(), id).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, booking.ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	var detached uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM reservations WHERE payment_id = ?`, id).Scan(&detached)
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, `UPDATE reservations SET payment_id = NULL WHERE id = ?`, detached); err != nil {
			return 0, err
		}
	case !errors.Is(err, sql.ErrNoRows):
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, booking.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return detached, nil
}
