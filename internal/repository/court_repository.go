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

// CourtRepo provides CRUD operations on the courts table.
type CourtRepo struct {
	db *sql.DB
}

func NewCourtRepo(db *sql.DB) *CourtRepo { return &CourtRepo{db: db} }

func (r *CourtRepo) CreateCourt(ctx context.Context, c model.Court) (model.Court, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO courts (name, kind, price, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.Kind, c.Price, now, now)
	if err != nil {
		return model.Court{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Court{}, err
	}
	return r.GetCourt(ctx, uint64(id))
}

// UpdateCourt rewrites the editable fields (name, kind, price).
func (r *CourtRepo) UpdateCourt(ctx context.Context, c model.Court) (model.Court, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE courts SET name = ?, kind = ?, price = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Kind, c.Price, time.Now().UTC(), c.ID)
	if err != nil {
		return model.Court{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.Court{}, err
	} else if n == 0 {
		return model.Court{}, booking.ErrNotFound
	}
	return r.GetCourt(ctx, c.ID)
}

func (r *CourtRepo) GetCourt(ctx context.Context, id uint64) (model.Court, error) {
	var c model.Court
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, kind, price, created_at, updated_at FROM courts WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Kind, &c.Price, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Court{}, booking.ErrNotFound
	}
	return c, err
}

func (r *CourtRepo) ListCourts(ctx context.Context) ([]model.Court, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, kind, price, created_at, updated_at FROM courts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Court{}
	for rows.Next() {
		var c model.Court
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind, &c.Price, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCourt removes the court and, through ON DELETE CASCADE, its time
// slots. Reservations reference courts with RESTRICT, so a court that was
// ever booked cannot be deleted.
func (r *CourtRepo) DeleteCourt(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courts WHERE id = ?`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("court %d: %w", id, booking.ErrInUse)
		}
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
