package slotsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"venuecal/internal/app/timeslot"
	"venuecal/internal/domain/reservation"
	"venuecal/internal/domain/venueevent"
)

var ErrSlotsRequired = errors.New("slotsync: time-slot service required")

// Slots is the subset of the time-slot service the synchronizer writes through.
type Slots interface {
	CheckAvailability(ctx context.Context, req timeslot.CheckRequest) (timeslot.Availability, error)
	Create(ctx context.Context, req timeslot.Request) (*reservation.Reservation, error)
	Update(ctx context.Context, id reservation.ID, patch reservation.Patch) (*reservation.Reservation, error)
	Delete(ctx context.Context, id reservation.ID) error
	ReleaseEvent(ctx context.Context, eventID string) (int, error)
	ListForDate(ctx context.Context, date string) ([]reservation.Reservation, error)
	ListForRange(ctx context.Context, from, to string) ([]reservation.Reservation, error)
}

type action int

const (
	actionNone action = iota
	actionCreated
	actionUpdated
	actionMoved
	actionReleased
)

// Synchronizer keeps exactly one reservation per active event and none for any other.
type Synchronizer struct {
	Slots  Slots
	Logger *slog.Logger
}

func New(slots Slots, logger *slog.Logger) (*Synchronizer, error) {
	if slots == nil {
		return nil, ErrSlotsRequired
	}
	return &Synchronizer{Slots: slots, Logger: logger}, nil
}

// Apply moves the ledger from the state implied by prev to the one implied by next.
// A nil next means the event was deleted; a nil prev means it is new. On conflict
// nothing is changed and a *reservation.ConflictError is returned.
func (s *Synchronizer) Apply(ctx context.Context, prev, next *venueevent.Event) error {
	_, err := s.apply(ctx, prev, next)
	return err
}

func (s *Synchronizer) apply(ctx context.Context, prev, next *venueevent.Event) (action, error) {
	if next == nil {
		if prev == nil {
			return actionNone, nil
		}
		return s.release(ctx, prev.ID)
	}
	if !next.HoldsSlot() {
		return s.release(ctx, next.ID)
	}

	existing, err := s.slotsFor(ctx, next.ID, hintDates(prev, next)...)
	if err != nil {
		return actionNone, err
	}
	return s.converge(ctx, next, existing)
}

// converge makes existing, the slots currently held by an active event, match it.
func (s *Synchronizer) converge(ctx context.Context, next *venueevent.Event, existing []reservation.Reservation) (action, error) {
	if len(existing) == 0 {
		if _, err := s.create(ctx, next); err != nil {
			return actionNone, err
		}
		return actionCreated, nil
	}

	current := pickCurrent(existing, next)
	if len(existing) == 1 && sameSlot(current, next) {
		if sameDetails(current.Details, next.SlotDetails()) {
			return actionNone, nil
		}
		if _, err := s.Slots.Update(ctx, current.ID, reservation.Patch{Details: next.SlotDetails()}); err != nil {
			return actionNone, s.blocking(err)
		}
		return actionUpdated, nil
	}
	return actionMoved, s.move(ctx, current, next)
}

// move recreates the event's slot. The new interval is checked with the current slot
// excluded before anything is deleted; if the final create still loses a race the old
// slot is restored.
func (s *Synchronizer) move(ctx context.Context, current reservation.Reservation, next *venueevent.Event) error {
	avail, err := s.Slots.CheckAvailability(ctx, timeslot.CheckRequest{
		Date:      next.Date,
		Start:     next.Start,
		End:       next.End,
		ExcludeID: current.ID,
	})
	if err != nil {
		return err
	}
	if !avail.IsValid {
		if len(avail.Conflicts) == 0 {
			return &reservation.ValidationError{Field: "schedule", Message: avail.Message}
		}
		// Duplicate slots of the same event are released below and do not block.
		var others []reservation.Reservation
		for _, c := range avail.Conflicts {
			if c.EventID() != string(next.ID) {
				others = append(others, c)
			}
		}
		if len(others) > 0 {
			return &reservation.ConflictError{Message: takenMessage(others), Conflicts: others}
		}
	}

	if _, err := s.Slots.ReleaseEvent(ctx, string(next.ID)); err != nil {
		return err
	}
	if _, err := s.create(ctx, next); err != nil {
		restore := timeslot.Request{Date: current.Date, StartTime: current.StartTime, EndTime: current.EndTime, Details: current.Details}
		if _, rerr := s.Slots.Create(ctx, restore); rerr != nil {
			s.logger().ErrorContext(ctx, "restoring event slot failed", "event_id", next.ID, "interval", current.Interval(), "date", current.Date, "error", rerr)
		}
		return err
	}
	return nil
}

func (s *Synchronizer) create(ctx context.Context, e *venueevent.Event) (*reservation.Reservation, error) {
	r, err := s.Slots.Create(ctx, timeslot.Request{
		Date:      e.Date,
		StartTime: e.Start,
		EndTime:   e.End,
		Details:   e.SlotDetails(),
	})
	if err != nil {
		return nil, s.blocking(err)
	}
	return r, nil
}

func (s *Synchronizer) release(ctx context.Context, id venueevent.ID) (action, error) {
	removed, err := s.Slots.ReleaseEvent(ctx, string(id))
	if err != nil {
		return actionNone, err
	}
	if removed == 0 {
		return actionNone, nil
	}
	return actionReleased, nil
}

// slotsFor finds the reservations held by eventID on the given dates.
func (s *Synchronizer) slotsFor(ctx context.Context, eventID venueevent.ID, dates ...string) ([]reservation.Reservation, error) {
	var out []reservation.Reservation
	for _, d := range dates {
		items, err := s.Slots.ListForDate(ctx, d)
		if err != nil {
			return nil, err
		}
		for _, r := range items {
			if r.EventID() == string(eventID) {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// blocking rewrites conflicts into the message shown to event editors.
func (s *Synchronizer) blocking(err error) error {
	var conflict *reservation.ConflictError
	if errors.As(err, &conflict) {
		return &reservation.ConflictError{Message: takenMessage(conflict.Conflicts), Conflicts: conflict.Conflicts}
	}
	return err
}

func (s *Synchronizer) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func takenMessage(conflicts []reservation.Reservation) string {
	switch len(conflicts) {
	case 0:
		return "this time is already taken by another event"
	case 1:
		return fmt.Sprintf("this time is already taken by %q (%s)", conflicts[0].Title(), conflicts[0].Interval())
	default:
		return fmt.Sprintf("this time is already taken by %d other reservations", len(conflicts))
	}
}

func hintDates(prev, next *venueevent.Event) []string {
	dates := []string{next.Date}
	if prev != nil && prev.Date != "" && prev.Date != next.Date {
		dates = append(dates, prev.Date)
	}
	return dates
}

// pickCurrent prefers the slot that already matches the event.
func pickCurrent(items []reservation.Reservation, e *venueevent.Event) reservation.Reservation {
	for _, r := range items {
		if sameSlot(r, e) {
			return r
		}
	}
	return items[0]
}

func sameSlot(r reservation.Reservation, e *venueevent.Event) bool {
	if r.Date != e.Date || r.StartTime != e.Start || r.EndTime != e.End {
		return false
	}
	return detailsLocation(r.Details) == e.Location
}

func detailsLocation(d reservation.Details) string {
	switch v := d.(type) {
	case reservation.EventDetails:
		return v.Location
	case reservation.FestivalDetails:
		return v.Location
	default:
		return ""
	}
}

func sameDetails(a, b reservation.Details) bool {
	return reflect.DeepEqual(reservation.EncodeDetails(a), reservation.EncodeDetails(b))
}
