package slotsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuecal/internal/domain/reservation"
	"venuecal/internal/domain/venueevent"
)

func TestReconcileRepairsLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Orphan: slot for an event that no longer exists.
	orphan := &reservation.Reservation{Date: day, StartTime: "08:00", EndTime: "09:00", Details: reservation.EventDetails{EventID: "gone", EventTitle: "Gone"}}
	require.NoError(t, f.gw.Insert(ctx, orphan))

	// Duplicate: two slots for the same active event.
	dupA := &reservation.Reservation{Date: day, StartTime: "10:00", EndTime: "11:00", Details: reservation.EventDetails{EventID: "dup", EventTitle: "Event dup", EventType: "concert", Location: "Hall"}}
	dupB := &reservation.Reservation{Date: day, StartTime: "13:00", EndTime: "14:00", Details: reservation.EventDetails{EventID: "dup", EventTitle: "Event dup", EventType: "concert", Location: "Hall"}}
	require.NoError(t, f.gw.Insert(ctx, dupA))
	require.NoError(t, f.gw.Insert(ctx, dupB))

	// Overlapping manual bookings are reported, not repaired.
	require.NoError(t, f.gw.Insert(ctx, &reservation.Reservation{Date: day, StartTime: "15:00", EndTime: "16:00", Details: reservation.ManualDetails{RequesterName: "A", Contact: "a"}}))
	require.NoError(t, f.gw.Insert(ctx, &reservation.Reservation{Date: day, StartTime: "15:30", EndTime: "16:30", Details: reservation.ManualDetails{RequesterName: "B", Contact: "b"}}))

	missing := activeEvent("missing", "18:00", "19:00")
	dup := activeEvent("dup", "10:00", "11:00")
	ended := activeEvent("ended", "06:00", "07:00")
	require.NoError(t, f.sync.Apply(ctx, nil, ended))

	now := time.Date(2025, 7, 4, 7, 30, 0, 0, time.UTC)
	report, err := f.sync.Reconcile(ctx, []*venueevent.Event{missing, dup, ended}, ReconcileOptions{From: day, To: day, Now: now, Location: time.UTC})
	require.NoError(t, err)

	assert.Equal(t, []venueevent.ID{"ended"}, report.MarkedPast)
	assert.Equal(t, venueevent.StatusPast, ended.Status)
	assert.Equal(t, []venueevent.ID{"missing"}, report.Created)
	assert.Equal(t, []venueevent.ID{"dup"}, report.Moved)
	assert.Contains(t, report.Removed, orphan.ID)
	require.Len(t, report.Overlaps, 1)
	assert.Empty(t, report.Unresolved)

	assert.Empty(t, slotsOf(t, f.gw, "gone"))
	assert.Empty(t, slotsOf(t, f.gw, "ended"))
	assert.Len(t, slotsOf(t, f.gw, "missing"), 1)
	held := slotsOf(t, f.gw, "dup")
	require.Len(t, held, 1)
	assert.Equal(t, "10:00-11:00", held[0].Interval())
}

func TestReconcileReportsUnresolvableEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.gw.Insert(ctx, &reservation.Reservation{Date: day, StartTime: "18:00", EndTime: "20:00", Details: reservation.ManualDetails{RequesterName: "A", Contact: "a"}}))
	blocked := activeEvent("blocked", "19:00", "21:00")

	report, err := f.sync.Reconcile(ctx, []*venueevent.Event{blocked}, ReconcileOptions{From: day, To: day, Now: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, report.Unresolved, 1)
	assert.Equal(t, venueevent.ID("blocked"), report.Unresolved[0].EventID)
	assert.Empty(t, slotsOf(t, f.gw, "blocked"))
}

func TestReconcilePersistsPastBeforeRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok := activeEvent("ok", "06:00", "07:00")
	stuck := activeEvent("stuck", "08:00", "09:00")
	require.NoError(t, f.sync.Apply(ctx, nil, ok))
	require.NoError(t, f.sync.Apply(ctx, nil, stuck))

	var saved []venueevent.ID
	persist := func(_ context.Context, e *venueevent.Event) error {
		assert.Equal(t, venueevent.StatusPast, e.Status)
		// Slot is still held when the status is persisted.
		assert.Len(t, slotsOf(t, f.gw, string(e.ID)), 1)
		if e.ID == "stuck" {
			return errors.New("store unavailable")
		}
		saved = append(saved, e.ID)
		return nil
	}

	now := time.Date(2025, 7, 4, 10, 0, 0, 0, time.UTC)
	report, err := f.sync.Reconcile(ctx, []*venueevent.Event{ok, stuck}, ReconcileOptions{From: day, To: day, Now: now, Location: time.UTC, PersistPast: persist})
	require.NoError(t, err)

	assert.Equal(t, []venueevent.ID{"ok"}, saved)
	assert.Equal(t, []venueevent.ID{"ok"}, report.MarkedPast)
	require.Len(t, report.Unresolved, 1)
	assert.Equal(t, venueevent.ID("stuck"), report.Unresolved[0].EventID)
	assert.Equal(t, venueevent.StatusActive, stuck.Status)

	assert.Empty(t, slotsOf(t, f.gw, "ok"))
	assert.Len(t, slotsOf(t, f.gw, "stuck"), 1)
}
