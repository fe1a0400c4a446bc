package timerange

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	minutesPerDay = 24 * 60
)

var (
	ErrInvalidTime  = errors.New("timerange: time must be HH:MM")
	ErrInvalidDate  = errors.New("timerange: date must be YYYY-MM-DD")
	ErrInvalidRange = errors.New("timerange: end must be after start")
)

// Clock is a wall-clock time of day expressed in minutes since midnight.
type Clock int

func ParseClock(s string) (Clock, error) {
	if !ValidateTimeFormat(s) {
		return 0, ErrInvalidTime
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return Clock(h*60 + m), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ValidateTimeFormat accepts only zero-padded 24-hour HH:MM.
func ValidateTimeFormat(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	for _, i := range [...]int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return h <= 23 && m <= 59
}

// ValidateOrder reports whether start is strictly before end. Malformed input yields false.
func ValidateOrder(start, end string) bool {
	s, err := ParseClock(start)
	if err != nil {
		return false
	}
	e, err := ParseClock(end)
	if err != nil {
		return false
	}
	return s < e
}

// Overlaps tests two half-open intervals. Intervals that only touch at an endpoint do not overlap.
func Overlaps(startA, endA, startB, endB string) bool {
	a, err := Parse(startA, endA)
	if err != nil {
		return false
	}
	b, err := Parse(startB, endB)
	if err != nil {
		return false
	}
	return a.Overlaps(b)
}

// NormalizeTime converts H:MM, HH:MM and HH:MM:SS into canonical HH:MM.
func NormalizeTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	if ValidateTimeFormat(s) {
		return s, nil
	}
	for _, layout := range []string{TimeLayout, "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(TimeLayout), nil
		}
	}
	return "", ErrInvalidTime
}

func ValidateDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

func ParseDate(s string) (time.Time, error) {
	if len(s) != len(DateLayout) {
		return time.Time{}, ErrInvalidDate
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// Days lists every calendar date in the inclusive range [from, to].
func Days(from, to string) ([]string, error) {
	start, err := ParseDate(from)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate(to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, ErrInvalidRange
	}
	var out []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(DateLayout))
	}
	return out, nil
}

// Range represents a half-open interval [Start, End) within one calendar day.
type Range struct {
	Start Clock
	End   Clock
}

func New(start, end Clock) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func Parse(start, end string) (Range, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Range{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Range{}, err
	}
	return New(s, e)
}

func (r Range) Validate() error {
	if r.Start < 0 || r.End > minutesPerDay {
		return ErrInvalidRange
	}
	if r.End <= r.Start {
		return ErrInvalidRange
	}
	return nil
}

func (r Range) Minutes() int {
	return int(r.End - r.Start)
}

func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

func (r Range) Adjacent(other Range) bool {
	return r.End == other.Start || r.Start == other.End
}

func (r Range) Merge(other Range) (Range, bool) {
	if !(r.Overlaps(other) || r.Adjacent(other)) {
		return Range{}, false
	}
	return Range{Start: min(r.Start, other.Start), End: max(r.End, other.End)}, true
}

// Clip returns the part of r that falls inside window.
func (r Range) Clip(window Range) (Range, bool) {
	out := Range{Start: max(r.Start, window.Start), End: min(r.End, window.End)}
	if out.End <= out.Start {
		return Range{}, false
	}
	return out, true
}

func (r Range) String() string {
	return r.Start.String() + "-" + r.End.String()
}

// MergeAll sorts ranges and collapses overlapping or adjacent ones.
func MergeAll(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]Range, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End < sorted[j].End
		}
		return sorted[i].Start < sorted[j].Start
	})
	out := []Range{sorted[0]}
	for _, r := range sorted[1:] {
		last := &out[len(out)-1]
		if merged, ok := last.Merge(r); ok {
			*last = merged
			continue
		}
		out = append(out, r)
	}
	return out
}
