package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"venuecal/internal/app/commands"
	"venuecal/internal/app/dto"
	"venuecal/internal/app/middleware"
	"venuecal/internal/app/outbox"
	"venuecal/internal/app/slotsync"
	domainevents "venuecal/internal/domain/shared/events"
	"venuecal/internal/domain/venueevent"
)

const saveEventKey = "event.save"

var (
	ErrRepositoryRequired = errors.New("events: event repository required")
	ErrSyncRequired       = errors.New("events: slot synchronizer required")
)

// Synchronizer keeps an event's calendar hold in line with the event.
type Synchronizer interface {
	Apply(ctx context.Context, prev, next *venueevent.Event) error
	Reconcile(ctx context.Context, evs []*venueevent.Event, opts slotsync.ReconcileOptions) (slotsync.Report, error)
}

var _ Synchronizer = (*slotsync.Synchronizer)(nil)

// SaveEventCommand creates or replaces an event. The calendar hold is converged first;
// when that is refused the event is not stored.
type SaveEventCommand struct {
	ID              string
	Title           string
	Type            string
	Location        string
	Capacity        int
	Status          string
	Date            string
	StartTime       string
	EndTime         string
	Program         []string
	IdempotencyKeyV string
}

func (c SaveEventCommand) Key() string { return saveEventKey }

func (c SaveEventCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c SaveEventCommand) ResultPrototype() any { return &dto.Event{} }

func (c SaveEventCommand) event() (*venueevent.Event, error) {
	status, err := venueevent.ParseStatus(c.Status)
	if err != nil {
		return nil, err
	}
	return &venueevent.Event{
		ID:       venueevent.ID(c.ID),
		Title:    c.Title,
		Type:     c.Type,
		Location: c.Location,
		Capacity: c.Capacity,
		Status:   status,
		Date:     c.Date,
		Start:    c.StartTime,
		End:      c.EndTime,
		Program:  append([]string(nil), c.Program...),
	}, nil
}

type SaveEventHandler struct {
	writer
}

func NewSaveEventHandler(repo venueevent.Repository, sync Synchronizer, box outbox.Outbox, logger *slog.Logger) *SaveEventHandler {
	return &SaveEventHandler{writer: writer{Events: repo, Sync: sync, Outbox: box, Logger: logger}}
}

func (h *SaveEventHandler) Handle(ctx context.Context, cmd SaveEventCommand) (*dto.Event, error) {
	next, err := cmd.event()
	if err != nil {
		return nil, invalidStatus()
	}
	prev, err := h.load(ctx, next.ID, true)
	if err != nil {
		return nil, err
	}
	saved, err := h.commit(ctx, prev, next)
	if err != nil {
		return nil, err
	}
	out := dto.MapEvent(saved)
	return &out, nil
}

// writer holds the steps every event write shares.
type writer struct {
	Events  venueevent.Repository
	Sync    Synchronizer
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

func (w *writer) ready() error {
	if w.Events == nil {
		return ErrRepositoryRequired
	}
	if w.Sync == nil {
		return ErrSyncRequired
	}
	return nil
}

// load fetches the stored event. With optional set a missing event yields nil, nil.
func (w *writer) load(ctx context.Context, id venueevent.ID, optional bool) (*venueevent.Event, error) {
	if err := w.ready(); err != nil {
		return nil, err
	}
	prev, err := w.Events.ByID(ctx, id)
	if errors.Is(err, venueevent.ErrEventNotFound) && optional {
		return nil, nil
	}
	return prev, err
}

// commit converges the hold, then stores the event. A failed store rolls the hold back.
func (w *writer) commit(ctx context.Context, prev, next *venueevent.Event) (*venueevent.Event, error) {
	if err := next.Validate(); err != nil {
		return nil, err
	}
	now := w.now()
	if prev != nil {
		next.CreatedAt = prev.CreatedAt
	} else {
		next.CreatedAt = now
	}
	next.UpdatedAt = now

	if err := w.Sync.Apply(ctx, prev, next); err != nil {
		return nil, err
	}
	if err := w.Events.Save(ctx, next); err != nil {
		w.compensate(ctx, next, prev)
		return nil, err
	}
	w.record(ctx, venueevent.SavedEvent(next, now))
	return next, nil
}

func (w *writer) compensate(ctx context.Context, from, to *venueevent.Event) {
	if err := w.Sync.Apply(ctx, from, to); err != nil {
		id := venueevent.ID("")
		if from != nil {
			id = from.ID
		} else if to != nil {
			id = to.ID
		}
		w.logger().ErrorContext(ctx, "rolling back event slot failed", "event_id", id, "error", err)
	}
}

func (w *writer) record(ctx context.Context, evs ...domainevents.DomainEvent) {
	if w.Outbox == nil {
		return
	}
	encoder := w.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	if err := outbox.RecordDomainEvents(ctx, w.Outbox, encoder, evs); err != nil {
		w.logger().ErrorContext(ctx, "recording event changes failed", "error", err)
	}
}

func (w *writer) now() time.Time {
	if w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

func (w *writer) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

var _ commands.Handler[SaveEventCommand, *dto.Event] = (*SaveEventHandler)(nil)
var _ middleware.IdempotentCommand = (*SaveEventCommand)(nil)
