package booking

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/model"
)

// Checker answers availability questions for one (court, date) key. It
// reads through the store on every call and never mutates.
type Checker struct {
	store    ReservationStore
	schedule ScheduleDirectory
	log      *zap.Logger
}

func NewChecker(store ReservationStore, schedule ScheduleDirectory, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{store: store, schedule: schedule, log: log}
}

// active loads the non-cancelled reservations of the key ordered by start
// and verifies they do not overlap each other. An overlap means the store
// was corrupted; it is reported, never repaired.
func (c *Checker) active(ctx context.Context, courtID uint64, date model.Date) ([]model.Reservation, error) {
	all, err := c.store.ListByCourtAndDate(ctx, courtID, date)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	out := make([]model.Reservation, 0, len(all))
	for _, r := range all {
		if r.Active() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })

	// With starts sorted, comparing each reservation against the one that
	// reaches furthest so far catches every overlapping pair.
	var furthest model.Reservation
	if len(out) > 0 {
		furthest = out[0]
	}
	for i := 1; i < len(out); i++ {
		prev := furthest
		if model.Overlaps(prev.Interval(), out[i].Interval()) {
			c.log.Error("overlapping active reservations in store",
				zap.Uint64("court_id", courtID),
				zap.String("date", date.String()),
				zap.Uint64("reservation_a", prev.ID),
				zap.Uint64("reservation_b", out[i].ID),
			)
			return nil, fmt.Errorf("court %d on %s: reservations %d and %d: %w",
				courtID, date, prev.ID, out[i].ID, ErrInvariantViolated)
		}
		if out[i].End > furthest.End {
			furthest = out[i]
		}
	}
	return out, nil
}

// Conflicting returns the first active reservation overlapping iv, or nil.
// excludeID is ignored so a reservation can be checked against the others.
func (c *Checker) Conflicting(ctx context.Context, courtID uint64, date model.Date, iv model.Interval, excludeID uint64) (*model.Reservation, error) {
	rs, err := c.active(ctx, courtID, date)
	if err != nil {
		return nil, err
	}
	for i := range rs {
		if rs[i].ID == excludeID {
			continue
		}
		if model.Overlaps(rs[i].Interval(), iv) {
			return &rs[i], nil
		}
	}
	return nil, nil
}

func (c *Checker) IsAvailable(ctx context.Context, courtID uint64, date model.Date, iv model.Interval, excludeID uint64) (bool, error) {
	r, err := c.Conflicting(ctx, courtID, date, iv, excludeID)
	if err != nil {
		return false, err
	}
	return r == nil, nil
}

// OpeningHours returns the merged operating windows of the court on date.
// A court with no time slots at all is open the whole day; a court with
// slots but none on that weekday is closed.
func (c *Checker) OpeningHours(ctx context.Context, courtID uint64, date model.Date) ([]model.Interval, error) {
	slots, err := c.schedule.ListTimeSlots(ctx, courtID)
	if err != nil {
		return nil, fmt.Errorf("load time slots: %w", err)
	}
	if len(slots) == 0 {
		return []model.Interval{{Start: 0, End: model.MinutesPerDay}}, nil
	}
	var hours []model.Interval
	for _, s := range slots {
		if s.Weekday == date.Weekday() {
			hours = append(hours, s.Hours())
		}
	}
	return mergeIntervals(hours), nil
}

// CheckHours returns ErrInvalidInterval unless iv lies inside a single
// operating window.
func (c *Checker) CheckHours(ctx context.Context, courtID uint64, date model.Date, iv model.Interval) error {
	hours, err := c.OpeningHours(ctx, courtID, date)
	if err != nil {
		return err
	}
	if len(hours) == 0 {
		return fmt.Errorf("court %d is closed on %s: %w", courtID, date.Weekday(), ErrInvalidInterval)
	}
	for _, h := range hours {
		if h.Contains(iv) {
			return nil
		}
	}
	return fmt.Errorf("%s is outside the operating hours of court %d: %w", iv, courtID, ErrInvalidInterval)
}

// FreeIntervals returns the gaps in the operating hours of the court on
// date that no active reservation covers, ordered by start.
func (c *Checker) FreeIntervals(ctx context.Context, courtID uint64, date model.Date) ([]model.Interval, error) {
	hours, err := c.OpeningHours(ctx, courtID, date)
	if err != nil {
		return nil, err
	}
	rs, err := c.active(ctx, courtID, date)
	if err != nil {
		return nil, err
	}
	free := []model.Interval{}
	for _, h := range hours {
		cursor := h.Start
		for _, r := range rs {
			if r.End <= cursor || r.Start >= h.End {
				continue
			}
			if r.Start > cursor {
				free = append(free, model.Interval{Start: cursor, End: r.Start})
			}
			if r.End > cursor {
				cursor = r.End
			}
		}
		if cursor < h.End {
			free = append(free, model.Interval{Start: cursor, End: h.End})
		}
	}
	return free, nil
}

func mergeIntervals(in []model.Interval) []model.Interval {
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool { return in[i].Start < in[j].Start })
	out := []model.Interval{in[0]}
	for _, iv := range in[1:] {
		last := &out[len(out)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}
