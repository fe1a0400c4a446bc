package dto

import (
	"time"

	"venuecal/internal/domain/venueevent"
)

type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	Location  string    `json:"location"`
	Capacity  int       `json:"capacity"`
	Status    string    `json:"status"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Program   []string  `json:"program,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type EventCollection struct {
	Items []Event `json:"items"`
}

type ReconcileIssue struct {
	EventID string `json:"event_id"`
	Message string `json:"message"`
}

type ReconcileOverlap struct {
	Date   string `json:"date"`
	First  string `json:"first"`
	Second string `json:"second"`
}

type ReconcileReport struct {
	From       string             `json:"date_from"`
	To         string             `json:"date_to"`
	MarkedPast []string           `json:"marked_past"`
	Created    []string           `json:"created"`
	Updated    []string           `json:"updated"`
	Moved      []string           `json:"moved"`
	Removed    []string           `json:"removed"`
	Unresolved []ReconcileIssue   `json:"unresolved"`
	Overlaps   []ReconcileOverlap `json:"overlaps"`
}

func MapEvent(e *venueevent.Event) Event {
	if e == nil {
		return Event{}
	}
	return Event{
		ID:        string(e.ID),
		Title:     e.Title,
		Type:      e.Type,
		Location:  e.Location,
		Capacity:  e.Capacity,
		Status:    string(e.Status),
		Date:      e.Date,
		StartTime: e.Start,
		EndTime:   e.End,
		Program:   append([]string(nil), e.Program...),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}
