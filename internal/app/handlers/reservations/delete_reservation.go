package reservations

import (
	"context"
	"strings"

	"venuecal/internal/app/commands"
	"venuecal/internal/app/dto"
	"venuecal/internal/domain/reservation"
)

const (
	deleteReservationKey = "reservation.delete"
	releaseEventKey      = "reservation.release_event"
)

type DeleteReservationCommand struct {
	ID string
}

func (c DeleteReservationCommand) Key() string { return deleteReservationKey }

func (c DeleteReservationCommand) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return &reservation.ValidationError{Field: "id", Message: "is required"}
	}
	return nil
}

type DeleteReservationResult struct {
	ID string `json:"id"`
}

type DeleteReservationHandler struct {
	Slots Slots
}

func (h *DeleteReservationHandler) Handle(ctx context.Context, cmd DeleteReservationCommand) (*DeleteReservationResult, error) {
	if h.Slots == nil {
		return nil, ErrSlotsRequired
	}
	if err := ensureNotEventHeld(ctx, h.Slots, reservation.ID(cmd.ID)); err != nil {
		return nil, err
	}
	if err := h.Slots.Delete(ctx, reservation.ID(cmd.ID)); err != nil {
		return nil, err
	}
	return &DeleteReservationResult{ID: cmd.ID}, nil
}

// ReleaseEventSlotsCommand drops every reservation held by an event.
type ReleaseEventSlotsCommand struct {
	EventID string
}

func (c ReleaseEventSlotsCommand) Key() string { return releaseEventKey }

type ReleaseEventSlotsHandler struct {
	Slots Slots
}

func (h *ReleaseEventSlotsHandler) Handle(ctx context.Context, cmd ReleaseEventSlotsCommand) (*dto.ReleaseResult, error) {
	if h.Slots == nil {
		return nil, ErrSlotsRequired
	}
	removed, err := h.Slots.ReleaseEvent(ctx, cmd.EventID)
	if err != nil {
		return nil, err
	}
	return &dto.ReleaseResult{EventID: cmd.EventID, Removed: removed}, nil
}

var _ commands.Handler[DeleteReservationCommand, *DeleteReservationResult] = (*DeleteReservationHandler)(nil)
var _ commands.Handler[ReleaseEventSlotsCommand, *dto.ReleaseResult] = (*ReleaseEventSlotsHandler)(nil)
