package reservations

import (
	"context"

	"venuecal/internal/app/commands"
	"venuecal/internal/app/dto"
	"venuecal/internal/app/middleware"
	"venuecal/internal/domain/reservation"
)

const updateReservationKey = "reservation.update"

// UpdateReservationCommand changes only the fields that are set.
type UpdateReservationCommand struct {
	ID              string
	Date            *string
	StartTime       *string
	EndTime         *string
	Details         *reservation.DetailsRecord
	IdempotencyKeyV string
}

func (c UpdateReservationCommand) Key() string { return updateReservationKey }

func (c UpdateReservationCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c UpdateReservationCommand) ResultPrototype() any { return &dto.Reservation{} }

func (c UpdateReservationCommand) patch() (reservation.Patch, error) {
	p := reservation.Patch{Date: c.Date, StartTime: c.StartTime, EndTime: c.EndTime}
	if c.Details != nil {
		d, err := reservation.DecodeDetails(*c.Details)
		if err != nil {
			return reservation.Patch{}, err
		}
		p.Details = d
	}
	return p, nil
}

type UpdateReservationHandler struct {
	Slots Slots
}

func (h *UpdateReservationHandler) Handle(ctx context.Context, cmd UpdateReservationCommand) (*dto.Reservation, error) {
	if h.Slots == nil {
		return nil, ErrSlotsRequired
	}
	patch, err := cmd.patch()
	if err != nil {
		return nil, err
	}
	if reservation.LinkedEventID(patch.Details) != "" {
		return nil, &reservation.ValidationError{Field: "details", Message: "event slots are managed through events"}
	}
	if err := ensureNotEventHeld(ctx, h.Slots, reservation.ID(cmd.ID)); err != nil {
		return nil, err
	}
	r, err := h.Slots.Update(ctx, reservation.ID(cmd.ID), patch)
	if err != nil {
		return nil, err
	}
	out := dto.MapReservation(*r)
	return &out, nil
}

var _ commands.Handler[UpdateReservationCommand, *dto.Reservation] = (*UpdateReservationHandler)(nil)
var _ middleware.IdempotentCommand = (*UpdateReservationCommand)(nil)
