package dto

import "venuecal/internal/app/session"

type SessionInstant struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// BookingSession is the view of an interactive booking session.
type BookingSession struct {
	ID        string          `json:"id"`
	Phase     string          `json:"phase"`
	Start     *SessionInstant `json:"start,omitempty"`
	End       *SessionInstant `json:"end,omitempty"`
	Checked   bool            `json:"checked"`
	Available bool            `json:"available"`
	Message   string          `json:"message,omitempty"`
	Conflicts []Reservation   `json:"conflicts,omitempty"`
	DayStatus string          `json:"day_status,omitempty"`
	Booked    *Reservation    `json:"booked,omitempty"`
}

func MapSession(id string, snap session.Snapshot) BookingSession {
	out := BookingSession{
		ID:        id,
		Phase:     string(snap.Phase),
		Checked:   snap.Checked,
		Available: snap.Available,
		Message:   snap.Message,
		DayStatus: string(snap.DayStatus),
	}
	if snap.Start != nil {
		out.Start = &SessionInstant{Date: snap.Start.Date, Time: snap.Start.Time}
	}
	if snap.End != nil {
		out.End = &SessionInstant{Date: snap.End.Date, Time: snap.End.Time}
	}
	if len(snap.Conflicts) > 0 {
		out.Conflicts = MapReservations(snap.Conflicts)
	}
	return out
}
