package reservation

import "time"

type Created struct {
	ReservationID ID
	Date          string
	Interval      string
	Kind          Kind
	EventID       string
	At            time.Time
}

func (e Created) EventName() string     { return "reservation.created" }
func (e Created) AggregateID() string   { return string(e.ReservationID) }
func (e Created) OccurredAt() time.Time { return e.At }

type Updated struct {
	ReservationID ID
	Date          string
	Interval      string
	At            time.Time
}

func (e Updated) EventName() string     { return "reservation.updated" }
func (e Updated) AggregateID() string   { return string(e.ReservationID) }
func (e Updated) OccurredAt() time.Time { return e.At }

type Deleted struct {
	ReservationID ID
	At            time.Time
}

func (e Deleted) EventName() string     { return "reservation.deleted" }
func (e Deleted) AggregateID() string   { return string(e.ReservationID) }
func (e Deleted) OccurredAt() time.Time { return e.At }

type EventReleased struct {
	EventID string
	Removed int
	At      time.Time
}

func (e EventReleased) EventName() string     { return "reservation.event_released" }
func (e EventReleased) AggregateID() string   { return e.EventID }
func (e EventReleased) OccurredAt() time.Time { return e.At }

func CreatedEvent(r Reservation, at time.Time) Created {
	return Created{ReservationID: r.ID, Date: r.Date, Interval: r.Interval(), Kind: kindOf(r.Details), EventID: r.EventID(), At: at.UTC()}
}

func UpdatedEvent(r Reservation, at time.Time) Updated {
	return Updated{ReservationID: r.ID, Date: r.Date, Interval: r.Interval(), At: at.UTC()}
}

func kindOf(d Details) Kind {
	if d == nil {
		return ""
	}
	return d.Kind()
}
