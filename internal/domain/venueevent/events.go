package venueevent

import "time"

type Saved struct {
	EventID string
	Status  Status
	Date    string
	At      time.Time
}

func (e Saved) EventName() string     { return "event.saved" }
func (e Saved) AggregateID() string   { return e.EventID }
func (e Saved) OccurredAt() time.Time { return e.At }

type Removed struct {
	EventID string
	At      time.Time
}

func (e Removed) EventName() string     { return "event.removed" }
func (e Removed) AggregateID() string   { return e.EventID }
func (e Removed) OccurredAt() time.Time { return e.At }

func SavedEvent(e *Event, at time.Time) Saved {
	return Saved{EventID: string(e.ID), Status: e.Status, Date: e.Date, At: at.UTC()}
}
