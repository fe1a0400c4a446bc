package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuecal/internal/app/slotsync"
	"venuecal/internal/app/timeslot"
	"venuecal/internal/domain/reservation"
	"venuecal/internal/domain/venueevent"
	"venuecal/internal/infra/storage/memory"
)

const day = "2025-11-20"

type fixture struct {
	repo  *memory.EventRepository
	gw    *memory.ReservationGateway
	slots *timeslot.Service
	sync  *slotsync.Synchronizer
	box   *memory.Outbox
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	gw := memory.NewReservationGateway()
	svc, err := timeslot.NewService(gw, nil, nil, time.Second)
	require.NoError(t, err)
	sync, err := slotsync.New(svc, nil)
	require.NoError(t, err)
	return fixture{repo: memory.NewEventRepository(), gw: gw, slots: svc, sync: sync, box: memory.NewOutbox(true)}
}

func (f fixture) held(t *testing.T) []reservation.Reservation {
	t.Helper()
	items, err := f.gw.ListByRange(context.Background(), "2025-01-01", "2025-12-31")
	require.NoError(t, err)
	var out []reservation.Reservation
	for _, r := range items {
		if r.EventID() != "" {
			out = append(out, r)
		}
	}
	return out
}

func concert(status string) SaveEventCommand {
	return SaveEventCommand{ID: "ev-1", Title: "Concert", Type: "concert", Location: "Main hall", Capacity: 200, Status: status, Date: day, StartTime: "19:00", EndTime: "21:00"}
}

func TestSaveActiveEventHoldsOneSlot(t *testing.T) {
	f := newFixture(t)
	h := NewSaveEventHandler(f.repo, f.sync, f.box, nil)
	ctx := context.Background()

	out, err := h.Handle(ctx, concert("active"))
	require.NoError(t, err)
	assert.Equal(t, "active", out.Status)
	require.Len(t, f.held(t), 1)

	edited := concert("active")
	edited.StartTime, edited.EndTime = "18:00", "20:00"
	_, err = h.Handle(ctx, edited)
	require.NoError(t, err)
	held := f.held(t)
	require.Len(t, held, 1)
	assert.Equal(t, "18:00-20:00", held[0].Interval())

	require.Len(t, f.box.Pending(), 2)
	assert.Equal(t, "event.saved", f.box.Pending()[0].Name)
}

func TestSaveRefusedWhenSlotTaken(t *testing.T) {
	f := newFixture(t)
	h := NewSaveEventHandler(f.repo, f.sync, f.box, nil)
	ctx := context.Background()

	_, err := f.slots.Create(ctx, timeslot.Request{Date: day, StartTime: "20:00", EndTime: "22:00", Details: reservation.ManualDetails{RequesterName: "Ana", Contact: "ana@example.com"}})
	require.NoError(t, err)

	_, err = h.Handle(ctx, concert("active"))
	var conflict *reservation.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, conflict.Message, "Booking for Ana")

	_, err = f.repo.ByID(ctx, "ev-1")
	assert.ErrorIs(t, err, venueevent.ErrEventNotFound)
	assert.Empty(t, f.box.Pending())
}

func TestSaveRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	h := NewSaveEventHandler(f.repo, f.sync, nil, nil)
	_, err := h.Handle(context.Background(), concert("postponed"))
	assert.True(t, reservation.IsValidation(err))
}

type failingSave struct {
	*memory.EventRepository
}

func (failingSave) Save(context.Context, *venueevent.Event) error {
	return errors.New("disk full")
}

func TestFailedSaveRollsBackSlot(t *testing.T) {
	f := newFixture(t)
	h := NewSaveEventHandler(failingSave{f.repo}, f.sync, nil, nil)

	_, err := h.Handle(context.Background(), concert("active"))
	require.Error(t, err)
	assert.Empty(t, f.held(t))
}

func TestStatusChangesDriveTheHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	save := NewSaveEventHandler(f.repo, f.sync, nil, nil)
	change := NewChangeEventStatusHandler(f.repo, f.sync, nil, nil)

	_, err := save.Handle(ctx, concert("draft"))
	require.NoError(t, err)
	assert.Empty(t, f.held(t))

	out, err := change.Handle(ctx, ChangeEventStatusCommand{ID: "ev-1", Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, "active", out.Status)
	assert.Len(t, f.held(t), 1)

	_, err = change.Handle(ctx, ChangeEventStatusCommand{ID: "ev-1", Status: "cancelled"})
	require.NoError(t, err)
	assert.Empty(t, f.held(t))

	_, err = change.Handle(ctx, ChangeEventStatusCommand{ID: "missing", Status: "active"})
	assert.ErrorIs(t, err, venueevent.ErrEventNotFound)
}

func TestDeleteReleasesHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := NewSaveEventHandler(f.repo, f.sync, nil, nil).Handle(ctx, concert("active"))
	require.NoError(t, err)

	del := NewDeleteEventHandler(f.repo, f.sync, f.box, nil)
	_, err = del.Handle(ctx, DeleteEventCommand{ID: "ev-1"})
	require.NoError(t, err)
	assert.Empty(t, f.held(t))
	assert.Equal(t, "event.removed", f.box.Pending()[0].Name)

	_, err = del.Handle(ctx, DeleteEventCommand{ID: "ev-1"})
	assert.ErrorIs(t, err, venueevent.ErrEventNotFound)
}

func TestReconcilePersistsPastEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := NewSaveEventHandler(f.repo, f.sync, nil, nil).Handle(ctx, concert("active"))
	require.NoError(t, err)

	h := &ReconcileHandler{
		Events:   f.repo,
		Sync:     f.sync,
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2025, 11, 21, 0, 0, 0, 0, time.UTC) },
	}
	report, err := h.Handle(ctx, ReconcileCommand{From: day, To: day})
	require.NoError(t, err)
	assert.Equal(t, []string{"ev-1"}, report.MarkedPast)

	stored, err := f.repo.ByID(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, venueevent.StatusPast, stored.Status)
	assert.Empty(t, f.held(t))
}

func TestListEventsFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	save := NewSaveEventHandler(f.repo, f.sync, nil, nil)
	_, err := save.Handle(ctx, concert("active"))
	require.NoError(t, err)
	draft := concert("draft")
	draft.ID = "ev-2"
	_, err = save.Handle(ctx, draft)
	require.NoError(t, err)

	h := &ListEventsHandler{Events: f.repo}
	all, err := h.Handle(ctx, ListEventsQuery{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	active, err := h.Handle(ctx, ListEventsQuery{Status: "active"})
	require.NoError(t, err)
	require.Len(t, active.Items, 1)
	assert.Equal(t, "ev-1", active.Items[0].ID)

	got, err := (&GetEventHandler{Events: f.repo}).Handle(ctx, GetEventQuery{ID: "ev-2"})
	require.NoError(t, err)
	assert.Equal(t, "draft", got.Status)
}

func TestReconcileKeepsSlotWhenPastStatusCannotBeSaved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := NewSaveEventHandler(f.repo, f.sync, nil, nil).Handle(ctx, concert("active"))
	require.NoError(t, err)

	h := &ReconcileHandler{
		Events:   failingSave{f.repo},
		Sync:     f.sync,
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2025, 11, 21, 0, 0, 0, 0, time.UTC) },
	}
	report, err := h.Handle(ctx, ReconcileCommand{From: day, To: day})
	require.NoError(t, err)
	assert.Empty(t, report.MarkedPast)
	require.Len(t, report.Unresolved, 1)
	assert.Equal(t, "ev-1", report.Unresolved[0].EventID)

	stored, err := f.repo.ByID(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, venueevent.StatusActive, stored.Status)
	held := f.held(t)
	require.Len(t, held, 1)
	assert.Equal(t, "ev-1", held[0].EventID())
}
