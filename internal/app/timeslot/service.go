package timeslot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"venuecal/internal/app/outbox"
	"venuecal/internal/domain/reservation"
	"venuecal/internal/domain/shared/events"
	"venuecal/internal/domain/shared/timerange"
)

const DefaultStoreTimeout = 5 * time.Second

var ErrGatewayRequired = errors.New("timeslot: reservation gateway required")

// Request describes a new reservation.
type Request struct {
	Date      string
	StartTime string
	EndTime   string
	Details   reservation.Details
}

type CheckRequest struct {
	Date      string
	Start     string
	End       string
	ExcludeID reservation.ID
}

// Availability is the outcome of a dry-run check.
type Availability struct {
	IsValid   bool
	Message   string
	Conflicts []reservation.Reservation
}

// Service is the only write path for reservations. Every write re-checks availability
// immediately before touching the store; the store itself offers no locking, so two
// interleaved writers can still both pass the check.
type Service struct {
	Gateway      reservation.Gateway
	Outbox       outbox.Outbox
	Encoder      outbox.EventEncoder
	Logger       *slog.Logger
	StoreTimeout time.Duration
	Now          func() time.Time
}

func NewService(gw reservation.Gateway, box outbox.Outbox, logger *slog.Logger, timeout time.Duration) (*Service, error) {
	if gw == nil {
		return nil, ErrGatewayRequired
	}
	return &Service{Gateway: gw, Outbox: box, Encoder: outbox.JSONEventEncoder{}, Logger: logger, StoreTimeout: timeout}, nil
}

// CheckAvailability validates the interval and scans the date for conflicts. Ordinary
// conflicts and malformed input yield IsValid=false; only store failures return an error.
func (s *Service) CheckAvailability(ctx context.Context, req CheckRequest) (Availability, error) {
	candidate, verr := normalizeCandidate(req.Date, req.Start, req.End)
	if verr != nil {
		return Availability{IsValid: false, Message: verr.Error()}, nil
	}
	return s.check(ctx, candidate, req.ExcludeID)
}

func (s *Service) Create(ctx context.Context, req Request) (*reservation.Reservation, error) {
	if err := reservation.ValidateDetails(req.Details); err != nil {
		return nil, err
	}
	candidate, verr := normalizeCandidate(req.Date, req.StartTime, req.EndTime)
	if verr != nil {
		return nil, verr
	}
	avail, err := s.check(ctx, candidate, "")
	if err != nil {
		return nil, err
	}
	if !avail.IsValid {
		return nil, &reservation.ConflictError{Message: avail.Message, Conflicts: avail.Conflicts}
	}

	r := &reservation.Reservation{
		Date:      candidate.Date,
		StartTime: candidate.Start,
		EndTime:   candidate.End,
		Details:   req.Details,
	}
	if _, err := invoke(ctx, s, "insert", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.Gateway.Insert(ctx, r)
	}); err != nil {
		return nil, err
	}
	s.record(ctx, reservation.CreatedEvent(*r, s.now()))
	return r, nil
}

// Update merges patch into the stored reservation and re-checks the result with the
// reservation itself excluded from the scan.
func (s *Service) Update(ctx context.Context, id reservation.ID, patch reservation.Patch) (*reservation.Reservation, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, &reservation.ValidationError{Field: "id", Message: "is required"}
	}
	if patch.Empty() {
		return nil, &reservation.ValidationError{Field: "patch", Message: "must change at least one field"}
	}
	if patch.Details != nil {
		if err := reservation.ValidateDetails(patch.Details); err != nil {
			return nil, err
		}
	}
	current, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := patch.Apply(*current)
	candidate, verr := normalizeCandidate(merged.Date, merged.StartTime, merged.EndTime)
	if verr != nil {
		return nil, verr
	}
	normalized := reservation.Patch{Details: patch.Details}
	if patch.Date != nil {
		normalized.Date = &candidate.Date
	}
	if patch.StartTime != nil {
		normalized.StartTime = &candidate.Start
	}
	if patch.EndTime != nil {
		normalized.EndTime = &candidate.End
	}

	avail, err := s.check(ctx, candidate, id)
	if err != nil {
		return nil, err
	}
	if !avail.IsValid {
		return nil, &reservation.ConflictError{Message: avail.Message, Conflicts: avail.Conflicts}
	}

	updated, err := invoke(ctx, s, "update", func(ctx context.Context) (*reservation.Reservation, error) {
		return s.Gateway.Update(ctx, id, normalized)
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, reservation.UpdatedEvent(*updated, s.now()))
	return updated, nil
}

// Delete removes a reservation unconditionally. A missing id is reported as a store error.
func (s *Service) Delete(ctx context.Context, id reservation.ID) error {
	if _, err := invoke(ctx, s, "delete", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.Gateway.Delete(ctx, id)
	}); err != nil {
		return err
	}
	s.record(ctx, reservation.Deleted{ReservationID: id, At: s.now()})
	return nil
}

// ReleaseEvent removes every reservation held by eventID and returns how many were removed.
func (s *Service) ReleaseEvent(ctx context.Context, eventID string) (int, error) {
	if strings.TrimSpace(eventID) == "" {
		return 0, &reservation.ValidationError{Field: "event_id", Message: "is required"}
	}
	removed, err := invoke(ctx, s, "delete_by_event_id", func(ctx context.Context) (int, error) {
		return s.Gateway.DeleteByEventID(ctx, eventID)
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.record(ctx, reservation.EventReleased{EventID: eventID, Removed: removed, At: s.now()})
	}
	return removed, nil
}

func (s *Service) Get(ctx context.Context, id reservation.ID) (*reservation.Reservation, error) {
	return s.get(ctx, id)
}

func (s *Service) ListForDate(ctx context.Context, date string) ([]reservation.Reservation, error) {
	if !timerange.ValidateDate(date) {
		return nil, &reservation.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	return s.listByDate(ctx, date)
}

func (s *Service) ListForRange(ctx context.Context, from, to string) ([]reservation.Reservation, error) {
	if !timerange.ValidateDate(from) {
		return nil, &reservation.ValidationError{Field: "date_from", Message: "must be YYYY-MM-DD"}
	}
	if !timerange.ValidateDate(to) {
		return nil, &reservation.ValidationError{Field: "date_to", Message: "must be YYYY-MM-DD"}
	}
	if to < from {
		return nil, &reservation.ValidationError{Field: "date_to", Message: "must not be before date_from"}
	}
	return invoke(ctx, s, "list_by_range", func(ctx context.Context) ([]reservation.Reservation, error) {
		return s.Gateway.ListByRange(ctx, from, to)
	})
}

func (s *Service) check(ctx context.Context, candidate reservation.Candidate, exclude reservation.ID) (Availability, error) {
	existing, err := s.listByDate(ctx, candidate.Date)
	if err != nil {
		return Availability{}, err
	}
	conflicts := reservation.FindConflicts(candidate, existing, exclude)
	if len(conflicts) == 0 {
		return Availability{IsValid: true, Message: reservation.DescribeConflicts(nil)}, nil
	}
	return Availability{IsValid: false, Message: reservation.DescribeConflicts(conflicts), Conflicts: conflicts}, nil
}

func (s *Service) listByDate(ctx context.Context, date string) ([]reservation.Reservation, error) {
	return invoke(ctx, s, "list_by_date", func(ctx context.Context) ([]reservation.Reservation, error) {
		return s.Gateway.ListByDate(ctx, date)
	})
}

func (s *Service) get(ctx context.Context, id reservation.ID) (*reservation.Reservation, error) {
	return invoke(ctx, s, "get", func(ctx context.Context) (*reservation.Reservation, error) {
		return s.Gateway.Get(ctx, id)
	})
}

type result[T any] struct {
	value T
	err   error
}

// invoke runs fn under the store timeout. A gateway that ignores its context still cannot
// block the caller past the deadline.
func invoke[T any](ctx context.Context, s *Service, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if s.Gateway == nil {
		return zero, &reservation.StoreError{Op: op, Err: ErrGatewayRequired}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	done := make(chan result[T], 1)
	go func() {
		v, err := fn(ctx)
		done <- result[T]{value: v, err: err}
	}()

	var res result[T]
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	if res.err != nil {
		s.logger().WarnContext(ctx, "reservation store call failed", "op", op, "error", res.err)
		return zero, &reservation.StoreError{Op: op, Err: res.err}
	}
	return res.value, nil
}

// record hands events to the outbox. The reservation write has already happened, so an
// outbox failure is logged rather than reported.
func (s *Service) record(ctx context.Context, evs ...events.DomainEvent) {
	if s.Outbox == nil {
		return
	}
	if err := outbox.RecordDomainEvents(ctx, s.Outbox, s.Encoder, evs); err != nil {
		s.logger().ErrorContext(ctx, "recording reservation events failed", "error", err)
	}
}

func (s *Service) timeout() time.Duration {
	if s.StoreTimeout <= 0 {
		return DefaultStoreTimeout
	}
	return s.StoreTimeout
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func normalizeCandidate(date, start, end string) (reservation.Candidate, *reservation.ValidationError) {
	date = strings.TrimSpace(date)
	if date == "" {
		return reservation.Candidate{}, &reservation.ValidationError{Field: "date", Message: "is required"}
	}
	if !timerange.ValidateDate(date) {
		return reservation.Candidate{}, &reservation.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	if strings.TrimSpace(start) == "" {
		return reservation.Candidate{}, &reservation.ValidationError{Field: "start_time", Message: "is required"}
	}
	if strings.TrimSpace(end) == "" {
		return reservation.Candidate{}, &reservation.ValidationError{Field: "end_time", Message: "is required"}
	}
	ns, err := timerange.NormalizeTime(start)
	if err != nil {
		return reservation.Candidate{}, &reservation.ValidationError{Field: "start_time", Message: "must be HH:MM"}
	}
	ne, err := timerange.NormalizeTime(end)
	if err != nil {
		return reservation.Candidate{}, &reservation.ValidationError{Field: "end_time", Message: "must be HH:MM"}
	}
	if !timerange.ValidateOrder(ns, ne) {
		return reservation.Candidate{}, &reservation.ValidationError{Field: "end_time", Message: "must be after start_time"}
	}
	return reservation.Candidate{Date: date, Start: ns, End: ne}, nil
}
