package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"venuecal/internal/domain/reservation"
	"venuecal/internal/domain/venueevent"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(DriverSQLite, "file::memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestReservationGatewayRoundTrip(t *testing.T) {
	g := NewReservationGateway(newTestDB(t))
	ctx := context.Background()

	manual := &reservation.Reservation{Date: "2025-05-02", StartTime: "14:00", EndTime: "15:00", Details: reservation.ManualDetails{RequesterName: "Ana", Contact: "ana@example.com"}}
	held := &reservation.Reservation{Date: "2025-05-02", StartTime: "10:00", EndTime: "12:00", Details: reservation.EventDetails{EventID: "ev-1", EventTitle: "Talk", EventType: "talk", Location: "Hall"}}
	other := &reservation.Reservation{Date: "2025-05-04", StartTime: "09:00", EndTime: "10:00", Details: reservation.EventDetails{EventID: "ev-1", EventTitle: "Talk", EventType: "talk", Location: "Hall"}}
	for _, r := range []*reservation.Reservation{manual, held, other} {
		require.NoError(t, g.Insert(ctx, r))
		require.NotEmpty(t, r.ID)
	}

	day, err := g.ListByDate(ctx, "2025-05-02")
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, "10:00", day[0].StartTime)
	assert.Equal(t, "ev-1", day[0].EventID())
	assert.Equal(t, "Booking for Ana", day[1].Title())

	span, err := g.ListByRange(ctx, "2025-05-01", "2025-05-31")
	require.NoError(t, err)
	assert.Len(t, span, 3)

	got, err := g.Get(ctx, manual.ID)
	require.NoError(t, err)
	assert.Equal(t, manual.Details, got.Details)
	assert.WithinDuration(t, manual.CreatedAt, got.CreatedAt, time.Second)

	removed, err := g.DeleteByEventID(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	require.NoError(t, g.Delete(ctx, manual.ID))
	assert.ErrorIs(t, g.Delete(ctx, manual.ID), reservation.ErrNotFound)
	_, err = g.Get(ctx, manual.ID)
	assert.ErrorIs(t, err, reservation.ErrNotFound)
}

func TestReservationGatewayUpdate(t *testing.T) {
	g := NewReservationGateway(newTestDB(t))
	ctx := context.Background()
	r := &reservation.Reservation{Date: "2025-05-02", StartTime: "14:00", EndTime: "15:00", Details: reservation.ManualDetails{RequesterName: "Ana", Contact: "a"}}
	require.NoError(t, g.Insert(ctx, r))

	end := "16:30"
	updated, err := g.Update(ctx, r.ID, reservation.Patch{EndTime: &end, Details: reservation.EventDetails{EventID: "ev-2", EventTitle: "Gig"}})
	require.NoError(t, err)
	assert.Equal(t, "14:00-16:30", updated.Interval())
	assert.Equal(t, "ev-2", updated.EventID())

	removed, err := g.DeleteByEventID(ctx, "ev-2")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = g.Update(ctx, "missing", reservation.Patch{EndTime: &end})
	assert.ErrorIs(t, err, reservation.ErrNotFound)
}

func TestEventRepositoryUpsertKeepsCreatedAt(t *testing.T) {
	repo := NewEventRepository(newTestDB(t))
	ctx := context.Background()

	e := &venueevent.Event{ID: "ev-1", Title: "Fest", Type: venueevent.TypeFestival, Location: "Park", Status: venueevent.StatusActive, Date: "2025-06-01", Start: "12:00", End: "23:00", Program: []string{"Opening", "Headliner"}}
	require.NoError(t, repo.Save(ctx, e))
	created := e.CreatedAt

	changed := e.Clone()
	changed.Title = "Summer fest"
	changed.CreatedAt = time.Time{}
	require.NoError(t, repo.Save(ctx, changed))

	got, err := repo.ByID(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "Summer fest", got.Title)
	assert.Equal(t, []string{"Opening", "Headliner"}, got.Program)
	assert.WithinDuration(t, created, got.CreatedAt, time.Second)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Delete(ctx, "ev-1"))
	assert.ErrorIs(t, repo.Delete(ctx, "ev-1"), venueevent.ErrEventNotFound)
	_, err = repo.ByID(ctx, "ev-1")
	assert.ErrorIs(t, err, venueevent.ErrEventNotFound)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "", nil)
	assert.Error(t, err)
}
