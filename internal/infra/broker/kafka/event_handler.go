package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/IBM/sarama"

	"venuecal/internal/app/commands"
	"venuecal/internal/app/handlers/events"
	"venuecal/internal/domain/reservation"
	"venuecal/internal/domain/venueevent"
)

// ErrPoisonMessage marks a message that can never be applied. It is logged and skipped.
var ErrPoisonMessage = errors.New("kafka: message cannot be applied")

const (
	ActionUpsert = "upsert"
	ActionDelete = "delete"
)

// Inbox deduplicates deliveries by message id.
type Inbox interface {
	Seen(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

// EventMessage is an upstream event lifecycle notification.
type EventMessage struct {
	ID     string        `json:"id"`
	Action string        `json:"action"`
	Event  EventSnapshot `json:"event"`
}

type EventSnapshot struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Type      string   `json:"type"`
	Location  string   `json:"location"`
	Capacity  int      `json:"capacity"`
	Status    string   `json:"status"`
	Date      string   `json:"date"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Program   []string `json:"program,omitempty"`
}

// EventLifecycleHandler applies upstream event changes through the command bus so they
// take the same path as HTTP edits.
type EventLifecycleHandler struct {
	Commands commands.Bus
	Inbox    Inbox
	Logger   *slog.Logger
}

func (h *EventLifecycleHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var in EventMessage
	if err := json.Unmarshal(msg.Value, &in); err != nil {
		return fmt.Errorf("%w: %v", ErrPoisonMessage, err)
	}
	id := in.ID
	if id == "" {
		id = headerValue(msg, "ce-id")
	}
	if id == "" {
		id = msg.Topic + "/" + strconv.Itoa(int(msg.Partition)) + "/" + strconv.FormatInt(msg.Offset, 10)
	}

	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, id)
		if err != nil {
			return err
		}
		if seen {
			h.logger().DebugContext(ctx, "duplicate event message skipped", "message_id", id)
			return nil
		}
	}

	err := h.apply(ctx, in)
	if err == nil {
		h.logger().InfoContext(ctx, "event message applied", "message_id", id, "action", in.Action, "event_id", in.Event.ID)
		return nil
	}
	if permanent(err) {
		h.logger().WarnContext(ctx, "event message refused", "message_id", id, "action", in.Action, "event_id", in.Event.ID, "error", err)
		return fmt.Errorf("%w: %v", ErrPoisonMessage, err)
	}
	if h.Inbox != nil {
		if ferr := h.Inbox.Forget(ctx, id); ferr != nil {
			h.logger().ErrorContext(ctx, "inbox forget failed", "message_id", id, "error", ferr)
		}
	}
	return err
}

func (h *EventLifecycleHandler) apply(ctx context.Context, in EventMessage) error {
	if h.Commands == nil {
		return commands.ErrNilBus
	}
	switch in.Action {
	case ActionUpsert:
		e := in.Event
		_, err := h.Commands.Dispatch(ctx, events.SaveEventCommand{
			ID:        e.ID,
			Title:     e.Title,
			Type:      e.Type,
			Location:  e.Location,
			Capacity:  e.Capacity,
			Status:    e.Status,
			Date:      e.Date,
			StartTime: e.StartTime,
			EndTime:   e.EndTime,
			Program:   e.Program,
		})
		return err
	case ActionDelete:
		_, err := h.Commands.Dispatch(ctx, events.DeleteEventCommand{ID: in.Event.ID})
		if errors.Is(err, venueevent.ErrEventNotFound) {
			return nil
		}
		return err
	default:
		return &reservation.ValidationError{Field: "action", Message: "must be upsert or delete"}
	}
}

func (h *EventLifecycleHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// permanent reports errors that redelivery cannot fix.
func permanent(err error) bool {
	var verr *reservation.ValidationError
	if errors.As(err, &verr) || reservation.IsConflict(err) {
		return true
	}
	return errors.Is(err, venueevent.ErrInvalidStatus) || errors.Is(err, commands.ErrHandlerNotFound)
}

func headerValue(msg *sarama.ConsumerMessage, key string) string {
	for _, h := range msg.Headers {
		if h != nil && string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}
