package venueevent

import (
	"context"
	"errors"
	"strings"
	"time"

	"venuecal/internal/domain/reservation"
	"venuecal/internal/domain/shared/timerange"
)

var (
	ErrEventNotFound = errors.New("venueevent: event not found")
	ErrInvalidStatus = errors.New("venueevent: unknown status")
)

type ID string

type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusPast      Status = "past"
	StatusCancelled Status = "cancelled"
)

// TypeFestival events hold one slot for the whole festival; program items are payload only.
const TypeFestival = "festival"

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusDraft, StatusActive, StatusPast, StatusCancelled:
		return s, nil
	case "":
		return StatusDraft, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Event is the upstream record that may require a calendar hold.
type Event struct {
	ID        ID
	Title     string
	Type      string
	Location  string
	Capacity  int
	Status    Status
	Date      string
	Start     string
	End       string
	Program   []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HoldsSlot reports whether the event currently needs exactly one reservation.
func (e *Event) HoldsSlot() bool {
	return e != nil && e.Status == StatusActive
}

func (e *Event) IsFestival() bool {
	return strings.EqualFold(strings.TrimSpace(e.Type), TypeFestival)
}

func (e *Event) Validate() error {
	if strings.TrimSpace(string(e.ID)) == "" {
		return &reservation.ValidationError{Field: "id", Message: "is required"}
	}
	if strings.TrimSpace(e.Title) == "" {
		return &reservation.ValidationError{Field: "title", Message: "is required"}
	}
	if _, err := ParseStatus(string(e.Status)); err != nil {
		return &reservation.ValidationError{Field: "status", Message: "must be draft, active, past or cancelled"}
	}
	if e.Capacity < 0 {
		return &reservation.ValidationError{Field: "capacity", Message: "must not be negative"}
	}
	if !e.HoldsSlot() && e.Date == "" && e.Start == "" && e.End == "" {
		return nil
	}
	if !timerange.ValidateDate(e.Date) {
		return &reservation.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	if !timerange.ValidateTimeFormat(e.Start) {
		return &reservation.ValidationError{Field: "start_time", Message: "must be HH:MM"}
	}
	if !timerange.ValidateTimeFormat(e.End) {
		return &reservation.ValidationError{Field: "end_time", Message: "must be HH:MM"}
	}
	if !timerange.ValidateOrder(e.Start, e.End) {
		return &reservation.ValidationError{Field: "end_time", Message: "must be after start_time"}
	}
	return nil
}

// SlotDetails builds the reservation payload for this event.
func (e *Event) SlotDetails() reservation.Details {
	if e.IsFestival() {
		return reservation.FestivalDetails{
			EventID:    string(e.ID),
			EventTitle: e.Title,
			Location:   e.Location,
			Capacity:   e.Capacity,
			Program:    append([]string(nil), e.Program...),
		}
	}
	return reservation.EventDetails{
		EventID:    string(e.ID),
		EventTitle: e.Title,
		EventType:  e.Type,
		Location:   e.Location,
		Capacity:   e.Capacity,
	}
}

// SlotMoved reports a change that requires the reservation to be recreated.
func SlotMoved(prev, next *Event) bool {
	return prev.Date != next.Date || prev.Start != next.Start || prev.End != next.End || prev.Location != next.Location
}

// DetailsChanged reports a change that only touches the reservation payload.
func DetailsChanged(prev, next *Event) bool {
	if prev.Title != next.Title || prev.Type != next.Type || prev.Capacity != next.Capacity {
		return true
	}
	if len(prev.Program) != len(next.Program) {
		return true
	}
	for i := range prev.Program {
		if prev.Program[i] != next.Program[i] {
			return true
		}
	}
	return false
}

// Elapsed reports whether the event has ended at now, interpreted in loc.
func (e *Event) Elapsed(now time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	end, err := time.ParseInLocation(timerange.DateLayout+" "+timerange.TimeLayout, e.Date+" "+e.End, loc)
	if err != nil {
		return false
	}
	return !now.Before(end)
}

func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := *e
	out.Program = append([]string(nil), e.Program...)
	return &out
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Event, error)
	Save(ctx context.Context, e *Event) error
	Delete(ctx context.Context, id ID) error
	List(ctx context.Context) ([]*Event, error)
}
