package events

import (
	"context"
	"log/slog"
	"time"

	"venuecal/internal/app/commands"
	"venuecal/internal/app/dto"
	"venuecal/internal/app/slotsync"
	"venuecal/internal/domain/reservation"
	"venuecal/internal/domain/shared/timerange"
	"venuecal/internal/domain/venueevent"
)

const reconcileKey = "event.reconcile"

// ReconcileCommand repairs the calendar against the stored events for a date range.
type ReconcileCommand struct {
	From string
	To   string
}

func (c ReconcileCommand) Key() string { return reconcileKey }

func (c ReconcileCommand) Validate() error {
	if !timerange.ValidateDate(c.From) {
		return &reservation.ValidationError{Field: "date_from", Message: "must be YYYY-MM-DD"}
	}
	if !timerange.ValidateDate(c.To) {
		return &reservation.ValidationError{Field: "date_to", Message: "must be YYYY-MM-DD"}
	}
	if c.To < c.From {
		return &reservation.ValidationError{Field: "date_to", Message: "must not be before date_from"}
	}
	return nil
}

type ReconcileHandler struct {
	Events   venueevent.Repository
	Sync     Synchronizer
	Location *time.Location
	Logger   *slog.Logger
	Now      func() time.Time
}

func (h *ReconcileHandler) Handle(ctx context.Context, cmd ReconcileCommand) (*dto.ReconcileReport, error) {
	if h.Events == nil {
		return nil, ErrRepositoryRequired
	}
	if h.Sync == nil {
		return nil, ErrSyncRequired
	}
	evs, err := h.Events.List(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	report, err := h.Sync.Reconcile(ctx, evs, slotsync.ReconcileOptions{
		From:     cmd.From,
		To:       cmd.To,
		Now:      now,
		Location: h.Location,
		PersistPast: func(ctx context.Context, e *venueevent.Event) error {
			e.UpdatedAt = now.UTC()
			if err := h.Events.Save(ctx, e); err != nil {
				h.logger().ErrorContext(ctx, "persisting past event failed", "event_id", e.ID, "error", err)
				return err
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	out := mapReport(cmd.From, cmd.To, report)
	return &out, nil
}

func (h *ReconcileHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func mapReport(from, to string, r slotsync.Report) dto.ReconcileReport {
	out := dto.ReconcileReport{
		From:       from,
		To:         to,
		MarkedPast: eventIDs(r.MarkedPast),
		Created:    eventIDs(r.Created),
		Updated:    eventIDs(r.Updated),
		Moved:      eventIDs(r.Moved),
		Removed:    make([]string, 0, len(r.Removed)),
		Unresolved: make([]dto.ReconcileIssue, 0, len(r.Unresolved)),
		Overlaps:   make([]dto.ReconcileOverlap, 0, len(r.Overlaps)),
	}
	for _, id := range r.Removed {
		out.Removed = append(out.Removed, string(id))
	}
	for _, is := range r.Unresolved {
		out.Unresolved = append(out.Unresolved, dto.ReconcileIssue{EventID: string(is.EventID), Message: is.Message})
	}
	for _, o := range r.Overlaps {
		out.Overlaps = append(out.Overlaps, dto.ReconcileOverlap{Date: o.Date, First: string(o.First), Second: string(o.Second)})
	}
	return out
}

func eventIDs(ids []venueevent.ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

var _ commands.Handler[ReconcileCommand, *dto.ReconcileReport] = (*ReconcileHandler)(nil)
