package dto

import (
	"time"

	"venuecal/internal/domain/reservation"
)

type Reservation struct {
	ID        string                    `json:"id"`
	Date      string                    `json:"date"`
	StartTime string                    `json:"start_time"`
	EndTime   string                    `json:"end_time"`
	Title     string                    `json:"title"`
	Details   reservation.DetailsRecord `json:"details"`
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

type ReservationCollection struct {
	Items []Reservation `json:"items"`
}

// Availability mirrors the check endpoint's wire shape.
type Availability struct {
	IsValid   bool          `json:"isValid"`
	Message   string        `json:"message"`
	Conflicts []Reservation `json:"conflicts,omitempty"`
}

type ReleaseResult struct {
	EventID string `json:"event_id"`
	Removed int    `json:"removed"`
}

func MapReservation(r reservation.Reservation) Reservation {
	return Reservation{
		ID:        string(r.ID),
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Title:     r.Title(),
		Details:   reservation.EncodeDetails(r.Details),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func MapReservations(items []reservation.Reservation) []Reservation {
	out := make([]Reservation, 0, len(items))
	for _, r := range items {
		out = append(out, MapReservation(r))
	}
	return out
}
