package slotsync

import (
	"context"
	"errors"
	"sort"
	"time"

	"venuecal/internal/domain/reservation"
	"venuecal/internal/domain/venueevent"
)

// Issue is an event the reconciler could not bring into line.
type Issue struct {
	EventID venueevent.ID
	Message string
}

// Overlap is a pair of reservations that share time on one date. Reconcile reports these
// but does not choose a winner.
type Overlap struct {
	Date   string
	First  reservation.ID
	Second reservation.ID
}

type Report struct {
	MarkedPast []venueevent.ID
	Created    []venueevent.ID
	Updated    []venueevent.ID
	Moved      []venueevent.ID
	Removed    []reservation.ID
	Unresolved []Issue
	Overlaps   []Overlap
}

// ReconcileOptions bounds one reconciliation pass.
type ReconcileOptions struct {
	From     string
	To       string
	Now      time.Time
	Location *time.Location
	// PersistPast stores an event that has just been marked past. It runs before the
	// event's slot is released; an event it fails for stays active and keeps its slot.
	PersistPast func(ctx context.Context, e *venueevent.Event) error
}

// Reconcile repairs the ledger for [From, To]: active events that have ended are marked
// past, every active event ends up with exactly one slot, and slots whose event is gone
// or no longer active are removed. Events in the returned report's MarkedPast have been
// modified in place.
func (s *Synchronizer) Reconcile(ctx context.Context, evs []*venueevent.Event, opts ReconcileOptions) (Report, error) {
	var report Report
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	byID := make(map[venueevent.ID]*venueevent.Event, len(evs))
	for _, e := range evs {
		if e == nil {
			continue
		}
		if e.HoldsSlot() && e.Elapsed(now, opts.Location) {
			if err := markPast(ctx, e, opts.PersistPast); err != nil {
				report.Unresolved = append(report.Unresolved, Issue{EventID: e.ID, Message: "marking past failed: " + err.Error()})
			} else {
				report.MarkedPast = append(report.MarkedPast, e.ID)
			}
		}
		byID[e.ID] = e
	}

	slots, err := s.Slots.ListForRange(ctx, opts.From, opts.To)
	if err != nil {
		return report, err
	}

	held := make(map[venueevent.ID][]reservation.Reservation)
	for _, r := range slots {
		eventID := venueevent.ID(r.EventID())
		if eventID == "" {
			continue
		}
		e, known := byID[eventID]
		if !known || !e.HoldsSlot() {
			if err := s.Slots.Delete(ctx, r.ID); err != nil {
				if errors.Is(err, reservation.ErrNotFound) {
					continue
				}
				return report, err
			}
			report.Removed = append(report.Removed, r.ID)
			continue
		}
		held[eventID] = append(held[eventID], r)
	}

	ids := make([]venueevent.ID, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		e := byID[id]
		if !e.HoldsSlot() {
			continue
		}
		existing := held[id]
		if e.Date < opts.From || e.Date > opts.To {
			if len(existing) == 0 {
				continue
			}
			outside, err := s.slotsFor(ctx, id, e.Date)
			if err != nil {
				return report, err
			}
			existing = append(existing, outside...)
		}
		act, err := s.converge(ctx, e, existing)
		if err != nil {
			if reservation.IsConflict(err) || reservation.IsValidation(err) {
				report.Unresolved = append(report.Unresolved, Issue{EventID: id, Message: err.Error()})
				continue
			}
			return report, err
		}
		switch act {
		case actionCreated:
			report.Created = append(report.Created, id)
		case actionUpdated:
			report.Updated = append(report.Updated, id)
		case actionMoved:
			report.Moved = append(report.Moved, id)
		}
	}

	remaining, err := s.Slots.ListForRange(ctx, opts.From, opts.To)
	if err != nil {
		return report, err
	}
	report.Overlaps = findOverlaps(remaining)

	if len(report.Removed)+len(report.Created)+len(report.Moved)+len(report.MarkedPast) > 0 || len(report.Overlaps) > 0 {
		s.logger().InfoContext(ctx, "ledger reconciled",
			"from", opts.From, "to", opts.To,
			"marked_past", len(report.MarkedPast), "created", len(report.Created),
			"moved", len(report.Moved), "removed", len(report.Removed),
			"unresolved", len(report.Unresolved), "overlaps", len(report.Overlaps))
	}
	return report, nil
}

func findOverlaps(items []reservation.Reservation) []Overlap {
	byDate := make(map[string][]reservation.Reservation)
	for _, r := range items {
		byDate[r.Date] = append(byDate[r.Date], r)
	}
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var out []Overlap
	for _, d := range dates {
		day := byDate[d]
		for i := 0; i < len(day); i++ {
			for _, other := range reservation.FindConflicts(reservation.Candidate{Date: d, Start: day[i].StartTime, End: day[i].EndTime}, day[i+1:], "") {
				out = append(out, Overlap{Date: d, First: day[i].ID, Second: other.ID})
			}
		}
	}
	return out
}

func markPast(ctx context.Context, e *venueevent.Event, persist func(context.Context, *venueevent.Event) error) error {
	if persist != nil {
		past := e.Clone()
		past.Status = venueevent.StatusPast
		if err := persist(ctx, past); err != nil {
			return err
		}
	}
	e.Status = venueevent.StatusPast
	return nil
}
