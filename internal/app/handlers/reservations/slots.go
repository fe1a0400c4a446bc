package reservations

import (
	"context"
	"fmt"

	"venuecal/internal/app/timeslot"
	"venuecal/internal/domain/reservation"
)

// Slots is the time-slot service surface used by the reservation handlers.
type Slots interface {
	CheckAvailability(ctx context.Context, req timeslot.CheckRequest) (timeslot.Availability, error)
	Create(ctx context.Context, req timeslot.Request) (*reservation.Reservation, error)
	Update(ctx context.Context, id reservation.ID, patch reservation.Patch) (*reservation.Reservation, error)
	Delete(ctx context.Context, id reservation.ID) error
	ReleaseEvent(ctx context.Context, eventID string) (int, error)
	Get(ctx context.Context, id reservation.ID) (*reservation.Reservation, error)
	ListForDate(ctx context.Context, date string) ([]reservation.Reservation, error)
	ListForRange(ctx context.Context, from, to string) ([]reservation.Reservation, error)
}

var _ Slots = (*timeslot.Service)(nil)

// ensureNotEventHeld rejects direct edits of a slot owned by an event. Those slots follow
// the event and change only through it.
func ensureNotEventHeld(ctx context.Context, slots Slots, id reservation.ID) error {
	r, err := slots.Get(ctx, id)
	if err != nil {
		return err
	}
	if eventID := r.EventID(); eventID != "" {
		return &reservation.ValidationError{Field: "id", Message: fmt.Sprintf("is held by event %s; change the event instead", eventID)}
	}
	return nil
}
