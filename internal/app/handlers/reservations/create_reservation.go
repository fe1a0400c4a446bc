package reservations

import (
	"context"
	"errors"

	"venuecal/internal/app/commands"
	"venuecal/internal/app/dto"
	"venuecal/internal/app/middleware"
	"venuecal/internal/app/timeslot"
	"venuecal/internal/domain/reservation"
)

const createReservationKey = "reservation.create"

var ErrSlotsRequired = errors.New("reservations: time-slot service required")

type CreateReservationCommand struct {
	Date            string
	StartTime       string
	EndTime         string
	Details         reservation.DetailsRecord
	IdempotencyKeyV string
}

func (c CreateReservationCommand) Key() string { return createReservationKey }

func (c CreateReservationCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateReservationCommand) ResultPrototype() any { return &dto.Reservation{} }

func (c CreateReservationCommand) Validate() error {
	_, err := reservation.DecodeDetails(c.Details)
	return err
}

type CreateReservationHandler struct {
	Slots Slots
}

func (h *CreateReservationHandler) Handle(ctx context.Context, cmd CreateReservationCommand) (*dto.Reservation, error) {
	if h.Slots == nil {
		return nil, ErrSlotsRequired
	}
	details, err := reservation.DecodeDetails(cmd.Details)
	if err != nil {
		return nil, err
	}
	r, err := h.Slots.Create(ctx, timeslot.Request{
		Date:      cmd.Date,
		StartTime: cmd.StartTime,
		EndTime:   cmd.EndTime,
		Details:   details,
	})
	if err != nil {
		return nil, err
	}
	out := dto.MapReservation(*r)
	return &out, nil
}

var _ commands.Handler[CreateReservationCommand, *dto.Reservation] = (*CreateReservationHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateReservationCommand)(nil)
