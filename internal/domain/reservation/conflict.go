package reservation

import (
	"fmt"

	"venuecal/internal/domain/shared/timerange"
)

// Candidate is a proposed interval on a date.
type Candidate struct {
	Date  string
	Start string
	End   string
}

func (c Candidate) Interval() string {
	return c.Start + "-" + c.End
}

// FindConflicts returns the reservations on the candidate's date whose interval overlaps it.
// excludeID skips the reservation being edited in place. A nil result means available.
func FindConflicts(candidate Candidate, existing []Reservation, excludeID ID) []Reservation {
	want, err := timerange.Parse(candidate.Start, candidate.End)
	if err != nil {
		return nil
	}
	var out []Reservation
	for _, r := range existing {
		if r.Date != candidate.Date {
			continue
		}
		if excludeID != "" && r.ID == excludeID {
			continue
		}
		rng, err := r.Range()
		if err != nil {
			continue
		}
		if rng.Overlaps(want) {
			out = append(out, r)
		}
	}
	return out
}

func DescribeConflicts(conflicts []Reservation) string {
	switch len(conflicts) {
	case 0:
		return "available"
	case 1:
		c := conflicts[0]
		return fmt.Sprintf("overlaps with %q (%s)", c.Title(), c.Interval())
	default:
		return fmt.Sprintf("overlaps with %d existing reservations", len(conflicts))
	}
}
