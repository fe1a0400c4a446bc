package calendar

import (
	"context"
	"errors"
	"time"

	"venuecal/internal/app/dto"
	"venuecal/internal/app/queries"
	"venuecal/internal/domain/availability"
	"venuecal/internal/domain/reservation"
	"venuecal/internal/domain/shared/timerange"
)

const (
	getCalendarKey = "calendar.get"
	// MaxRangeDays bounds a single calendar request.
	MaxRangeDays = 366
)

var (
	ErrSlotsRequired      = errors.New("calendar: reservation lister required")
	ErrClassifierRequired = errors.New("calendar: classifier required")
)

// Lister is the read side of the time-slot service.
type Lister interface {
	ListForRange(ctx context.Context, from, to string) ([]reservation.Reservation, error)
}

// GetCalendarQuery asks for the free/partial/busy status of every day in [From, To].
// An empty To means the single day From.
type GetCalendarQuery struct {
	From string
	To   string
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

func (q GetCalendarQuery) Validate() error {
	from, err := timerange.ParseDate(q.From)
	if err != nil {
		return &reservation.ValidationError{Field: "date_from", Message: "must be YYYY-MM-DD"}
	}
	if q.To == "" {
		return nil
	}
	to, err := timerange.ParseDate(q.To)
	if err != nil {
		return &reservation.ValidationError{Field: "date_to", Message: "must be YYYY-MM-DD"}
	}
	if to.Before(from) {
		return &reservation.ValidationError{Field: "date_to", Message: "must not be before date_from"}
	}
	if to.Sub(from) >= MaxRangeDays*24*time.Hour {
		return &reservation.ValidationError{Field: "date_to", Message: "range is too long"}
	}
	return nil
}

type GetCalendarHandler struct {
	Slots      Lister
	Classifier *availability.Classifier
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	if h.Slots == nil {
		return dto.Calendar{}, ErrSlotsRequired
	}
	if h.Classifier == nil {
		return dto.Calendar{}, ErrClassifierRequired
	}
	if err := q.Validate(); err != nil {
		return dto.Calendar{}, err
	}
	to := q.To
	if to == "" {
		to = q.From
	}
	items, err := h.Slots.ListForRange(ctx, q.From, to)
	if err != nil {
		return dto.Calendar{}, err
	}
	days, err := h.Classifier.ClassifyRange(q.From, to, items)
	if err != nil {
		return dto.Calendar{}, &reservation.ValidationError{Field: "date_to", Message: err.Error()}
	}
	return dto.MapCalendar(q.From, to, h.Classifier.Hours, days), nil
}

func Register(queryBus *queries.InMemoryBus, slots Lister, classifier *availability.Classifier) {
	queries.RegisterHandler(queryBus, GetCalendarQuery{}.Key(), &GetCalendarHandler{Slots: slots, Classifier: classifier})
}

var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)
