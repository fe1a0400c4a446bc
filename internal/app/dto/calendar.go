package dto

import "venuecal/internal/domain/availability"

type CalendarDay struct {
	Date            string `json:"date"`
	Status          string `json:"status"`
	ReservedMinutes int    `json:"reserved_minutes"`
	OpenMinutes     int    `json:"open_minutes"`
}

type Calendar struct {
	From           string        `json:"date_from"`
	To             string        `json:"date_to"`
	OperatingHours string        `json:"operating_hours"`
	Days           []CalendarDay `json:"days"`
}

func MapCalendar(from, to string, hours availability.OperatingHours, days []availability.DayAvailability) Calendar {
	out := Calendar{From: from, To: to, OperatingHours: hours.String(), Days: make([]CalendarDay, 0, len(days))}
	for _, d := range days {
		out.Days = append(out.Days, CalendarDay{
			Date:            d.Date,
			Status:          string(d.Status),
			ReservedMinutes: d.ReservedMinutes,
			OpenMinutes:     d.OpenMinutes,
		})
	}
	return out
}
