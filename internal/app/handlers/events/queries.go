package events

import (
	"context"
	"sort"

	"venuecal/internal/app/dto"
	"venuecal/internal/app/queries"
	"venuecal/internal/domain/venueevent"
)

const (
	getEventKey   = "event.get"
	listEventsKey = "event.list"
)

type GetEventQuery struct {
	ID string
}

func (q GetEventQuery) Key() string { return getEventKey }

func (q GetEventQuery) Validate() error { return requireID(q.ID) }

type GetEventHandler struct {
	Events venueevent.Repository
}

func (h *GetEventHandler) Handle(ctx context.Context, q GetEventQuery) (*dto.Event, error) {
	if h.Events == nil {
		return nil, ErrRepositoryRequired
	}
	e, err := h.Events.ByID(ctx, venueevent.ID(q.ID))
	if err != nil {
		return nil, err
	}
	out := dto.MapEvent(e)
	return &out, nil
}

// ListEventsQuery optionally filters by status.
type ListEventsQuery struct {
	Status string
}

func (q ListEventsQuery) Key() string { return listEventsKey }

type ListEventsHandler struct {
	Events venueevent.Repository
}

func (h *ListEventsHandler) Handle(ctx context.Context, q ListEventsQuery) (dto.EventCollection, error) {
	if h.Events == nil {
		return dto.EventCollection{}, ErrRepositoryRequired
	}
	var filter venueevent.Status
	if q.Status != "" {
		s, err := venueevent.ParseStatus(q.Status)
		if err != nil {
			return dto.EventCollection{}, invalidStatus()
		}
		filter = s
	}
	evs, err := h.Events.List(ctx)
	if err != nil {
		return dto.EventCollection{}, err
	}
	sort.SliceStable(evs, func(i, j int) bool {
		if evs[i].Date != evs[j].Date {
			return evs[i].Date < evs[j].Date
		}
		if evs[i].Start != evs[j].Start {
			return evs[i].Start < evs[j].Start
		}
		return evs[i].ID < evs[j].ID
	})
	out := dto.EventCollection{Items: make([]dto.Event, 0, len(evs))}
	for _, e := range evs {
		if filter != "" && e.Status != filter {
			continue
		}
		out.Items = append(out.Items, dto.MapEvent(e))
	}
	return out, nil
}

var (
	_ queries.Handler[GetEventQuery, *dto.Event]            = (*GetEventHandler)(nil)
	_ queries.Handler[ListEventsQuery, dto.EventCollection] = (*ListEventsHandler)(nil)
)
