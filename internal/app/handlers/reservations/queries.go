package reservations

import (
	"context"
	"strings"

	"venuecal/internal/app/dto"
	"venuecal/internal/app/queries"
	"venuecal/internal/app/timeslot"
	"venuecal/internal/domain/reservation"
)

const (
	checkAvailabilityKey = "reservation.check"
	listReservationsKey  = "reservation.list"
	getReservationKey    = "reservation.get"
)

// CheckAvailabilityQuery is a dry run; it never writes.
type CheckAvailabilityQuery struct {
	Date      string
	StartTime string
	EndTime   string
	ExcludeID string
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

type CheckAvailabilityHandler struct {
	Slots Slots
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.Availability, error) {
	if h.Slots == nil {
		return dto.Availability{}, ErrSlotsRequired
	}
	avail, err := h.Slots.CheckAvailability(ctx, timeslot.CheckRequest{
		Date:      q.Date,
		Start:     q.StartTime,
		End:       q.EndTime,
		ExcludeID: reservation.ID(q.ExcludeID),
	})
	if err != nil {
		return dto.Availability{}, err
	}
	out := dto.Availability{IsValid: avail.IsValid, Message: avail.Message}
	if len(avail.Conflicts) > 0 {
		out.Conflicts = dto.MapReservations(avail.Conflicts)
	}
	return out, nil
}

// ListReservationsQuery lists one date, or an inclusive range when From is set.
type ListReservationsQuery struct {
	Date string
	From string
	To   string
}

func (q ListReservationsQuery) Key() string { return listReservationsKey }

func (q ListReservationsQuery) Validate() error {
	hasDate := strings.TrimSpace(q.Date) != ""
	hasRange := strings.TrimSpace(q.From) != "" || strings.TrimSpace(q.To) != ""
	switch {
	case hasDate && hasRange:
		return &reservation.ValidationError{Field: "date", Message: "cannot be combined with date_from/date_to"}
	case !hasDate && !hasRange:
		return &reservation.ValidationError{Field: "date", Message: "is required"}
	}
	return nil
}

type ListReservationsHandler struct {
	Slots Slots
}

func (h *ListReservationsHandler) Handle(ctx context.Context, q ListReservationsQuery) (dto.ReservationCollection, error) {
	if h.Slots == nil {
		return dto.ReservationCollection{}, ErrSlotsRequired
	}
	var (
		items []reservation.Reservation
		err   error
	)
	if q.Date != "" {
		items, err = h.Slots.ListForDate(ctx, q.Date)
	} else {
		to := q.To
		if to == "" {
			to = q.From
		}
		items, err = h.Slots.ListForRange(ctx, q.From, to)
	}
	if err != nil {
		return dto.ReservationCollection{}, err
	}
	return dto.ReservationCollection{Items: dto.MapReservations(items)}, nil
}

type GetReservationQuery struct {
	ID string
}

func (q GetReservationQuery) Key() string { return getReservationKey }

type GetReservationHandler struct {
	Slots Slots
}

func (h *GetReservationHandler) Handle(ctx context.Context, q GetReservationQuery) (*dto.Reservation, error) {
	if h.Slots == nil {
		return nil, ErrSlotsRequired
	}
	r, err := h.Slots.Get(ctx, reservation.ID(q.ID))
	if err != nil {
		return nil, err
	}
	out := dto.MapReservation(*r)
	return &out, nil
}

var (
	_ queries.Handler[CheckAvailabilityQuery, dto.Availability]        = (*CheckAvailabilityHandler)(nil)
	_ queries.Handler[ListReservationsQuery, dto.ReservationCollection] = (*ListReservationsHandler)(nil)
	_ queries.Handler[GetReservationQuery, *dto.Reservation]            = (*GetReservationHandler)(nil)
)
