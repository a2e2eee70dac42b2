package booking

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/model"
)

// Pay records a payment of amount for the reservation and links it,
// confirming the reservation. A reservation that is already paid gets
// ErrAlreadyLinked and no new payment is created.
func (e *Engine) Pay(ctx context.Context, reservationID uint64, amount int64) (model.Reservation, error) {
	if amount <= 0 {
		return model.Reservation{}, fmt.Errorf("amount %d: %w", amount, ErrInvalidAmount)
	}

	release, err := e.locker.Lock(ctx, reservationKey(reservationID))
	if err != nil {
		return model.Reservation{}, fmt.Errorf("lock reservation %d: %w", reservationID, err)
	}
	paid, err := e.payLocked(ctx, reservationID, amount)
	release()
	if err != nil {
		return model.Reservation{}, err
	}

	e.log.Info("reservation paid",
		zap.Uint64("reservation_id", paid.ID),
		zap.Uint64("payment_id", *paid.PaymentID),
		zap.Int64("amount", amount),
	)
	e.publish(ctx, EventConfirmed, paid)
	return paid, nil
}

func (e *Engine) payLocked(ctx context.Context, reservationID uint64, amount int64) (model.Reservation, error) {
	r, err := e.reservations.Get(ctx, reservationID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("reservation %d: %w", reservationID, err)
	}
	if !r.Active() {
		return model.Reservation{}, fmt.Errorf("reservation %d: %w", reservationID, ErrCancelled)
	}
	if r.PaymentID != nil {
		return model.Reservation{}, fmt.Errorf("reservation %d has payment %d: %w", reservationID, *r.PaymentID, ErrAlreadyLinked)
	}

	p, err := e.payments.CreatePayment(ctx, model.Payment{Amount: amount, PaidAt: e.now().UTC()})
	if err != nil {
		return model.Reservation{}, fmt.Errorf("create payment: %w", err)
	}
	linked, err := e.reservations.AttachPayment(ctx, reservationID, p.ID)
	if err != nil {
		// A cancel may have slipped in between Get and AttachPayment.
		if _, derr := e.payments.DeletePayment(ctx, p.ID); derr != nil {
			e.log.Error("orphaned payment after failed attach",
				zap.Uint64("payment_id", p.ID),
				zap.Uint64("reservation_id", reservationID),
				zap.Error(derr),
			)
		}
		return model.Reservation{}, fmt.Errorf("attach payment %d to reservation %d: %w", p.ID, reservationID, err)
	}
	return linked, nil
}

// LinkPayment links an existing, unlinked payment to the reservation.
func (e *Engine) LinkPayment(ctx context.Context, reservationID, paymentID uint64) (model.Reservation, error) {
	if _, err := e.payments.GetPayment(ctx, paymentID); err != nil {
		return model.Reservation{}, fmt.Errorf("payment %d: %w", paymentID, err)
	}

	release, err := e.locker.Lock(ctx, reservationKey(reservationID))
	if err != nil {
		return model.Reservation{}, fmt.Errorf("lock reservation %d: %w", reservationID, err)
	}
	linked, err := e.reservations.AttachPayment(ctx, reservationID, paymentID)
	release()
	if err != nil {
		return model.Reservation{}, fmt.Errorf("attach payment %d to reservation %d: %w", paymentID, reservationID, err)
	}

	e.log.Info("payment linked",
		zap.Uint64("reservation_id", reservationID),
		zap.Uint64("payment_id", paymentID),
	)
	e.publish(ctx, EventConfirmed, linked)
	return linked, nil
}

// DeletePayment removes a payment. The reservation it paid, if any, goes
// back to pending in the same transaction.
func (e *Engine) DeletePayment(ctx context.Context, paymentID uint64) error {
	detached, err := e.payments.DeletePayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("delete payment %d: %w", paymentID, err)
	}
	e.log.Info("payment deleted",
		zap.Uint64("payment_id", paymentID),
		zap.Uint64("detached_reservation_id", detached),
	)
	if detached == 0 {
		return nil
	}
	r, err := e.reservations.Get(ctx, detached)
	if err != nil {
		e.log.Warn("reload detached reservation", zap.Uint64("reservation_id", detached), zap.Error(err))
		return nil
	}
	e.publish(ctx, EventPaymentRemoved, r)
	return nil
}

// DeleteCourt deletes a court that no reservation references, cancelled
// ones included. Otherwise it returns ErrInUse.
func (e *Engine) DeleteCourt(ctx context.Context, courtID uint64) error {
	if _, err := e.courts.GetCourt(ctx, courtID); err != nil {
		return fmt.Errorf("court %d: %w", courtID, err)
	}
	n, err := e.reservations.CountByCourt(ctx, courtID)
	if err != nil {
		return fmt.Errorf("count reservations of court %d: %w", courtID, err)
	}
	if n > 0 {
		return fmt.Errorf("court %d has %d reservations: %w", courtID, n, ErrInUse)
	}
	if err := e.courts.DeleteCourt(ctx, courtID); err != nil {
		return fmt.Errorf("delete court %d: %w", courtID, err)
	}
	e.log.Info("court deleted", zap.Uint64("court_id", courtID))
	return nil
}
