package availability

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"venuecal/internal/domain/reservation"
	"venuecal/internal/domain/shared/timerange"
)

var (
	ErrInvalidHours     = errors.New("availability: operating hours must be HH:MM with opens before closes")
	ErrInvalidThreshold = errors.New("availability: busy threshold must be in (0, 1]")
)

type Status string

const (
	StatusFree    Status = "free"
	StatusPartial Status = "partial"
	StatusBusy    Status = "busy"
)

// OperatingHours is the daily window the venue can be booked in.
type OperatingHours struct {
	Window timerange.Range
}

func ParseOperatingHours(opens, closes string) (OperatingHours, error) {
	start, err := timerange.ParseClock(strings.TrimSpace(opens))
	if err != nil {
		return OperatingHours{}, fmt.Errorf("%w: opens %q", ErrInvalidHours, opens)
	}
	// Same HH:MM grid as reservation ends; "24:00" is not accepted.
	end, err := timerange.ParseClock(strings.TrimSpace(closes))
	if err != nil {
		return OperatingHours{}, fmt.Errorf("%w: closes %q", ErrInvalidHours, closes)
	}
	window, err := timerange.New(start, end)
	if err != nil {
		return OperatingHours{}, fmt.Errorf("%w: %s-%s", ErrInvalidHours, opens, closes)
	}
	return OperatingHours{Window: window}, nil
}

func (h OperatingHours) Minutes() int {
	return h.Window.Minutes()
}

func (h OperatingHours) String() string {
	return h.Window.String()
}

// DayAvailability is derived on demand and never stored.
type DayAvailability struct {
	Date            string
	Status          Status
	ReservedMinutes int
	OpenMinutes     int
}

// Classifier derives free/partial/busy for calendar days.
type Classifier struct {
	Hours OperatingHours
	// BusyThreshold is the fraction of the operating window that must be covered for busy.
	// Zero means 1.0.
	BusyThreshold float64
	Logger        *slog.Logger
}

func NewClassifier(hours OperatingHours, threshold float64, logger *slog.Logger) (*Classifier, error) {
	if hours.Window.Validate() != nil {
		return nil, ErrInvalidHours
	}
	if threshold < 0 || threshold > 1 {
		return nil, ErrInvalidThreshold
	}
	return &Classifier{Hours: hours, BusyThreshold: threshold, Logger: logger}, nil
}

func (c *Classifier) ClassifyDay(date string, reservations []reservation.Reservation) Status {
	return c.Day(date, reservations).Status
}

// Day computes the reserved minutes within operating hours. Overlapping reservations are
// merged before summation and reported as an invariant violation.
func (c *Classifier) Day(date string, reservations []reservation.Reservation) DayAvailability {
	window := c.Hours.Window
	out := DayAvailability{Date: date, Status: StatusFree, OpenMinutes: window.Minutes()}

	var clipped []timerange.Range
	var seen []reservation.Reservation
	for _, r := range reservations {
		if r.Date != date {
			continue
		}
		rng, err := r.Range()
		if err != nil {
			c.logger().Warn("skipping reservation with malformed interval", "date", date, "reservation_id", r.ID, "interval", r.Interval())
			continue
		}
		for _, prev := range seen {
			prevRange, _ := prev.Range()
			if prevRange.Overlaps(rng) {
				c.logger().Warn("overlapping reservations detected", "kind", "invariant_violation", "date", date, "first", prev.ID, "second", r.ID)
			}
		}
		seen = append(seen, r)
		if part, ok := rng.Clip(window); ok {
			clipped = append(clipped, part)
		}
	}

	for _, rng := range timerange.MergeAll(clipped) {
		out.ReservedMinutes += rng.Minutes()
	}

	switch {
	case out.ReservedMinutes == 0:
		out.Status = StatusFree
	case float64(out.ReservedMinutes) >= c.threshold()*float64(out.OpenMinutes):
		out.Status = StatusBusy
	default:
		out.Status = StatusPartial
	}
	return out
}

// ClassifyRange returns one entry per calendar day in [from, to].
func (c *Classifier) ClassifyRange(from, to string, reservations []reservation.Reservation) ([]DayAvailability, error) {
	days, err := timerange.Days(from, to)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string][]reservation.Reservation, len(days))
	for _, r := range reservations {
		byDate[r.Date] = append(byDate[r.Date], r)
	}
	out := make([]DayAvailability, 0, len(days))
	for _, d := range days {
		out = append(out, c.Day(d, byDate[d]))
	}
	return out, nil
}

func (c *Classifier) threshold() float64 {
	if c.BusyThreshold <= 0 || c.BusyThreshold > 1 {
		return 1
	}
	return c.BusyThreshold
}

func (c *Classifier) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
