package reservation

import (
	"context"
	"time"

	"venuecal/internal/domain/shared/timerange"
)

type ID string

// Reservation occupies [StartTime, EndTime) on Date of the venue timeline.
type Reservation struct {
	ID        ID
	Date      string
	StartTime string
	EndTime   string
	Details   Details
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r Reservation) Range() (timerange.Range, error) {
	return timerange.Parse(r.StartTime, r.EndTime)
}

func (r Reservation) Interval() string {
	return r.StartTime + "-" + r.EndTime
}

func (r Reservation) Title() string {
	if r.Details == nil {
		return string(r.ID)
	}
	return r.Details.Title()
}

// EventID returns the owning event for event-linked reservations, or "".
func (r Reservation) EventID() string {
	return LinkedEventID(r.Details)
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Date      *string
	StartTime *string
	EndTime   *string
	Details   Details
}

func (p Patch) Empty() bool {
	return p.Date == nil && p.StartTime == nil && p.EndTime == nil && p.Details == nil
}

func (p Patch) Apply(r Reservation) Reservation {
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.StartTime != nil {
		r.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		r.EndTime = *p.EndTime
	}
	if p.Details != nil {
		r.Details = p.Details
	}
	return r
}

// Gateway is the contract over the external persistence collaborator. Implementations
// hold no business logic; they assign ids when empty and stamp audit timestamps.
type Gateway interface {
	Get(ctx context.Context, id ID) (*Reservation, error)
	ListByDate(ctx context.Context, date string) ([]Reservation, error)
	ListByRange(ctx context.Context, from, to string) ([]Reservation, error)
	Insert(ctx context.Context, r *Reservation) error
	Update(ctx context.Context, id ID, patch Patch) (*Reservation, error)
	Delete(ctx context.Context, id ID) error
	DeleteByEventID(ctx context.Context, eventID string) (int, error)
}
