package events

import (
	"context"
	"log/slog"
	"strings"

	"venuecal/internal/app/commands"
	"venuecal/internal/app/dto"
	"venuecal/internal/app/outbox"
	"venuecal/internal/domain/reservation"
	"venuecal/internal/domain/venueevent"
)

const (
	deleteEventKey       = "event.delete"
	changeEventStatusKey = "event.change_status"
)

func invalidStatus() error {
	return &reservation.ValidationError{Field: "status", Message: "must be draft, active, past or cancelled"}
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &reservation.ValidationError{Field: "id", Message: "is required"}
	}
	return nil
}

type DeleteEventCommand struct {
	ID string
}

func (c DeleteEventCommand) Key() string { return deleteEventKey }

func (c DeleteEventCommand) Validate() error { return requireID(c.ID) }

type DeleteEventResult struct {
	ID string `json:"id"`
}

// DeleteEventHandler releases the event's hold before removing the event.
type DeleteEventHandler struct {
	writer
}

func NewDeleteEventHandler(repo venueevent.Repository, sync Synchronizer, box outbox.Outbox, logger *slog.Logger) *DeleteEventHandler {
	return &DeleteEventHandler{writer: writer{Events: repo, Sync: sync, Outbox: box, Logger: logger}}
}

func (h *DeleteEventHandler) Handle(ctx context.Context, cmd DeleteEventCommand) (*DeleteEventResult, error) {
	prev, err := h.load(ctx, venueevent.ID(cmd.ID), false)
	if err != nil {
		return nil, err
	}
	if err := h.Sync.Apply(ctx, prev, nil); err != nil {
		return nil, err
	}
	if err := h.Events.Delete(ctx, prev.ID); err != nil {
		h.compensate(ctx, nil, prev)
		return nil, err
	}
	h.record(ctx, venueevent.Removed{EventID: string(prev.ID), At: h.now()})
	return &DeleteEventResult{ID: cmd.ID}, nil
}

// ChangeEventStatusCommand moves an event through draft, active, past and cancelled.
type ChangeEventStatusCommand struct {
	ID     string
	Status string
}

func (c ChangeEventStatusCommand) Key() string { return changeEventStatusKey }

func (c ChangeEventStatusCommand) Validate() error {
	if err := requireID(c.ID); err != nil {
		return err
	}
	if strings.TrimSpace(c.Status) == "" {
		return &reservation.ValidationError{Field: "status", Message: "is required"}
	}
	if _, err := venueevent.ParseStatus(c.Status); err != nil {
		return invalidStatus()
	}
	return nil
}

type ChangeEventStatusHandler struct {
	writer
}

func NewChangeEventStatusHandler(repo venueevent.Repository, sync Synchronizer, box outbox.Outbox, logger *slog.Logger) *ChangeEventStatusHandler {
	return &ChangeEventStatusHandler{writer: writer{Events: repo, Sync: sync, Outbox: box, Logger: logger}}
}

func (h *ChangeEventStatusHandler) Handle(ctx context.Context, cmd ChangeEventStatusCommand) (*dto.Event, error) {
	status, err := venueevent.ParseStatus(cmd.Status)
	if err != nil {
		return nil, invalidStatus()
	}
	prev, err := h.load(ctx, venueevent.ID(cmd.ID), false)
	if err != nil {
		return nil, err
	}
	if prev.Status == status {
		out := dto.MapEvent(prev)
		return &out, nil
	}
	next := prev.Clone()
	next.Status = status
	saved, err := h.commit(ctx, prev, next)
	if err != nil {
		return nil, err
	}
	out := dto.MapEvent(saved)
	return &out, nil
}

var _ commands.Handler[DeleteEventCommand, *DeleteEventResult] = (*DeleteEventHandler)(nil)
var _ commands.Handler[ChangeEventStatusCommand, *dto.Event] = (*ChangeEventStatusHandler)(nil)
