package session

import (
	"context"
	"errors"
	"sync"

	"venuecal/internal/app/timeslot"
	"venuecal/internal/domain/availability"
	"venuecal/internal/domain/reservation"
	"venuecal/internal/domain/shared/timerange"
)

var (
	ErrDayBusy         = errors.New("session: day is fully booked")
	ErrNoStart         = errors.New("session: pick a start time first")
	ErrDifferentDay    = errors.New("session: start and end must be on the same date")
	ErrNothingSelected = errors.New("session: no range selected")
	// ErrSuperseded is returned by a check whose result was discarded because a newer
	// pick arrived while it was in flight.
	ErrSuperseded = errors.New("session: check superseded by a newer pick")
)

type Phase string

const (
	PhaseInitial       Phase = "initial"
	PhaseStartSelected Phase = "start-selected"
	PhaseRangeSelected Phase = "range-selected"
)

// Instant is a wall-clock moment on the venue calendar.
type Instant struct {
	Date string
	Time string
}

// Slots is what a booking session needs from the time-slot service.
type Slots interface {
	CheckAvailability(ctx context.Context, req timeslot.CheckRequest) (timeslot.Availability, error)
	Create(ctx context.Context, req timeslot.Request) (*reservation.Reservation, error)
	ListForDate(ctx context.Context, date string) ([]reservation.Reservation, error)
}

// Snapshot is an immutable view of the session.
type Snapshot struct {
	Phase     Phase
	Start     *Instant
	End       *Instant
	Checked   bool
	Available bool
	Message   string
	Conflicts []reservation.Reservation
	DayStatus availability.Status
}

// Session is one user's in-progress booking. Nothing is persisted.
type Session struct {
	slots      Slots
	classifier *availability.Classifier

	mu        sync.Mutex
	phase     Phase
	start     *Instant
	end       *Instant
	anchor    *Instant // the start as picked, before any swap
	checked   bool
	available bool
	message   string
	conflicts []reservation.Reservation
	dayStatus availability.Status
	gen       uint64
	cancel    context.CancelFunc
}

func New(slots Slots, classifier *availability.Classifier) *Session {
	return &Session{slots: slots, classifier: classifier, phase: PhaseInitial}
}

// PickStart records the start instant from any state. The day must not be busy.
func (s *Session) PickStart(ctx context.Context, at Instant) (Snapshot, error) {
	if err := validateInstant(at); err != nil {
		return s.Snapshot(), err
	}
	status, err := s.classify(ctx, at.Date)
	if err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersedeLocked()
	s.dayStatus = status
	if status == availability.StatusBusy {
		return s.snapshotLocked(), ErrDayBusy
	}
	start, anchor := at, at
	s.phase = PhaseStartSelected
	s.start = &start
	s.anchor = &anchor
	s.end = nil
	s.clearCheckLocked()
	return s.snapshotLocked(), nil
}

// PickEnd completes the range and runs a live availability check. An end before the
// start swaps the two; repeated end picks are always measured from the picked start.
// Only the latest pick's check result is applied.
func (s *Session) PickEnd(ctx context.Context, at Instant) (Snapshot, error) {
	if err := validateInstant(at); err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	if s.anchor == nil {
		s.mu.Unlock()
		return s.Snapshot(), ErrNoStart
	}
	if at.Date != s.anchor.Date {
		s.mu.Unlock()
		return s.Snapshot(), ErrDifferentDay
	}
	if at.Time == s.anchor.Time {
		s.mu.Unlock()
		return s.Snapshot(), &reservation.ValidationError{Field: "end_time", Message: "must differ from start_time"}
	}
	start, end := *s.anchor, at
	if end.Time < start.Time {
		start, end = end, start
	}
	s.supersedeLocked()
	s.phase = PhaseRangeSelected
	s.start = &start
	s.end = &end
	s.clearCheckLocked()
	checkCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	gen := s.gen
	s.mu.Unlock()

	avail, err := s.slots.CheckAvailability(checkCtx, timeslot.CheckRequest{Date: start.Date, Start: start.Time, End: end.Time})

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return s.snapshotLocked(), ErrSuperseded
	}
	cancel()
	s.cancel = nil
	if err != nil {
		s.message = reservation.StoreUnavailableMessage
		return s.snapshotLocked(), err
	}
	s.checked = true
	s.available = avail.IsValid
	s.message = avail.Message
	s.conflicts = avail.Conflicts
	return s.snapshotLocked(), nil
}

// Submit books the selected range. On success the session returns to initial with the
// day's status refreshed; on failure it stays in range-selected with the reason.
func (s *Session) Submit(ctx context.Context, details reservation.Details) (*reservation.Reservation, Snapshot, error) {
	s.mu.Lock()
	if s.phase != PhaseRangeSelected || s.start == nil || s.end == nil {
		s.mu.Unlock()
		return nil, s.Snapshot(), ErrNothingSelected
	}
	start, end := *s.start, *s.end
	s.supersedeLocked()
	gen := s.gen
	s.mu.Unlock()

	r, err := s.slots.Create(ctx, timeslot.Request{Date: start.Date, StartTime: start.Time, EndTime: end.Time, Details: details})
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen == s.gen {
			s.checked = true
			s.available = false
			s.message, s.conflicts = failureMessage(err)
		}
		return nil, s.snapshotLocked(), err
	}

	status, cerr := s.classify(ctx, start.Date)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.resetLocked()
	}
	if cerr == nil {
		s.dayStatus = status
	}
	return r, s.snapshotLocked(), nil
}

// Reset discards the selection from any state.
func (s *Session) Reset() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersedeLocked()
	s.resetLocked()
	return s.snapshotLocked()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) classify(ctx context.Context, date string) (availability.Status, error) {
	if s.classifier == nil {
		return "", nil
	}
	items, err := s.slots.ListForDate(ctx, date)
	if err != nil {
		return "", err
	}
	return s.classifier.ClassifyDay(date, items), nil
}

// supersedeLocked invalidates any in-flight check.
func (s *Session) supersedeLocked() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) clearCheckLocked() {
	s.checked = false
	s.available = false
	s.message = ""
	s.conflicts = nil
}

func (s *Session) resetLocked() {
	s.phase = PhaseInitial
	s.start = nil
	s.end = nil
	s.anchor = nil
	s.clearCheckLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:     s.phase,
		Checked:   s.checked,
		Available: s.available,
		Message:   s.message,
		DayStatus: s.dayStatus,
		Conflicts: append([]reservation.Reservation(nil), s.conflicts...),
	}
	if s.start != nil {
		start := *s.start
		snap.Start = &start
	}
	if s.end != nil {
		end := *s.end
		snap.End = &end
	}
	return snap
}

func failureMessage(err error) (string, []reservation.Reservation) {
	var conflict *reservation.ConflictError
	if errors.As(err, &conflict) {
		return conflict.Message, conflict.Conflicts
	}
	var verr *reservation.ValidationError
	if errors.As(err, &verr) {
		return verr.Error(), nil
	}
	return reservation.StoreUnavailableMessage, nil
}

func validateInstant(at Instant) error {
	if !timerange.ValidateDate(at.Date) {
		return &reservation.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	if !timerange.ValidateTimeFormat(at.Time) {
		return &reservation.ValidationError{Field: "time", Message: "must be HH:MM"}
	}
	return nil
}
