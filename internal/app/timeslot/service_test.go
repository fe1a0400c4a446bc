package timeslot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuecal/internal/domain/reservation"
	"venuecal/internal/infra/storage/memory"
)

const date = "2025-04-12"

func newService(t *testing.T) (*Service, *memory.ReservationGateway, *memory.Outbox) {
	t.Helper()
	gw := memory.NewReservationGateway()
	box := memory.NewOutbox(true)
	svc, err := NewService(gw, box, nil, time.Second)
	require.NoError(t, err)
	return svc, gw, box
}

func booking(name string) reservation.Details {
	return reservation.ManualDetails{RequesterName: name, Contact: name + "@example.com"}
}

func TestCheckAvailabilityOverlapAndBackToBack(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, Request{Date: date, StartTime: "10:00", EndTime: "11:00", Details: booking("R1")})
	require.NoError(t, err)

	avail, err := svc.CheckAvailability(ctx, CheckRequest{Date: date, Start: "10:30", End: "11:30"})
	require.NoError(t, err)
	assert.False(t, avail.IsValid)
	require.Len(t, avail.Conflicts, 1)
	assert.Contains(t, avail.Message, "Booking for R1")

	avail, err = svc.CheckAvailability(ctx, CheckRequest{Date: date, Start: "11:00", End: "12:00"})
	require.NoError(t, err)
	assert.True(t, avail.IsValid)
	assert.Empty(t, avail.Conflicts)
}

func TestExcludeSelfRoundTrip(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, Request{Date: date, StartTime: "14:00", EndTime: "15:00", Details: booking("Ana")})
	require.NoError(t, err)

	avail, err := svc.CheckAvailability(ctx, CheckRequest{Date: date, Start: "14:00", End: "15:00", ExcludeID: r.ID})
	require.NoError(t, err)
	assert.True(t, avail.IsValid)

	avail, err = svc.CheckAvailability(ctx, CheckRequest{Date: date, Start: "14:00", End: "15:00"})
	require.NoError(t, err)
	assert.False(t, avail.IsValid)
}

func TestCheckAvailabilityValidation(t *testing.T) {
	svc, _, _ := newService(t)
	tests := []struct {
		name  string
		req   CheckRequest
		field string
	}{
		{name: "bad date", req: CheckRequest{Date: "12/04/2025", Start: "10:00", End: "11:00"}, field: "date"},
		{name: "bad start", req: CheckRequest{Date: date, Start: "25:00", End: "26:00"}, field: "start_time"},
		{name: "reversed", req: CheckRequest{Date: date, Start: "11:00", End: "10:00"}, field: "end_time"},
		{name: "empty interval", req: CheckRequest{Date: date, Start: "10:00", End: "10:00"}, field: "end_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avail, err := svc.CheckAvailability(context.Background(), tt.req)
			require.NoError(t, err)
			assert.False(t, avail.IsValid)
			assert.Contains(t, avail.Message, tt.field)
		})
	}
}

func TestCreateNormalizesTimes(t *testing.T) {
	svc, _, _ := newService(t)
	r, err := svc.Create(context.Background(), Request{Date: date, StartTime: "9:00", EndTime: "10:30:00", Details: booking("Ana")})
	require.NoError(t, err)
	assert.Equal(t, "09:00", r.StartTime)
	assert.Equal(t, "10:30", r.EndTime)
	assert.NotEmpty(t, r.ID)
	assert.False(t, r.CreatedAt.IsZero())
}

func TestCreateRejectsConflictAndRecordsOnlySuccess(t *testing.T) {
	svc, gw, box := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, Request{Date: date, StartTime: "10:00", EndTime: "12:00", Details: booking("Ana")})
	require.NoError(t, err)

	_, err = svc.Create(ctx, Request{Date: date, StartTime: "11:00", EndTime: "13:00", Details: booking("Bo")})
	var conflict *reservation.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Len(t, conflict.Conflicts, 1)

	all, err := gw.ListByDate(ctx, date)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	pending := box.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "reservation.created", pending[0].Name)
}

func TestCreateRequiresDetails(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Create(context.Background(), Request{Date: date, StartTime: "10:00", EndTime: "11:00"})
	var verr *reservation.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "details", verr.Field)
}

func TestUpdateExcludesItself(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, Request{Date: date, StartTime: "10:00", EndTime: "11:00", Details: booking("Ana")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Request{Date: date, StartTime: "12:00", EndTime: "13:00", Details: booking("Bo")})
	require.NoError(t, err)

	end := "11:30"
	updated, err := svc.Update(ctx, r.ID, reservation.Patch{EndTime: &end})
	require.NoError(t, err)
	assert.Equal(t, "10:00-11:30", updated.Interval())

	end = "12:30"
	_, err = svc.Update(ctx, r.ID, reservation.Patch{EndTime: &end})
	assert.True(t, reservation.IsConflict(err))

	current, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "11:30", current.EndTime)
}

func TestUpdateMissingIsStoreError(t *testing.T) {
	svc, _, _ := newService(t)
	end := "11:00"
	_, err := svc.Update(context.Background(), "nope", reservation.Patch{EndTime: &end})
	assert.True(t, reservation.IsStore(err))
	assert.ErrorIs(t, err, reservation.ErrNotFound)
}

func TestDeleteAndRelease(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	ev := reservation.EventDetails{EventID: "e1", EventTitle: "Gig"}
	_, err := svc.Create(ctx, Request{Date: date, StartTime: "18:00", EndTime: "20:00", Details: ev})
	require.NoError(t, err)
	m, err := svc.Create(ctx, Request{Date: date, StartTime: "09:00", EndTime: "10:00", Details: booking("Ana")})
	require.NoError(t, err)

	removed, err := svc.ReleaseEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	require.NoError(t, svc.Delete(ctx, m.ID))
	err = svc.Delete(ctx, m.ID)
	assert.True(t, reservation.IsStore(err))

	left, err := svc.ListForDate(ctx, date)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestListForRangeValidation(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.ListForRange(context.Background(), "2025-04-10", "2025-04-01")
	assert.True(t, reservation.IsValidation(err))
}

type blockingGateway struct {
	reservation.Gateway
}

func (blockingGateway) ListByDate(ctx context.Context, date string) ([]reservation.Reservation, error) {
	select {}
}

type failingGateway struct {
	reservation.Gateway
	err error
}

func (g failingGateway) ListByDate(ctx context.Context, date string) ([]reservation.Reservation, error) {
	return nil, g.err
}

func TestStoreTimeoutBecomesStoreError(t *testing.T) {
	svc := &Service{Gateway: blockingGateway{Gateway: memory.NewReservationGateway()}, StoreTimeout: 20 * time.Millisecond}

	start := time.Now()
	_, err := svc.CheckAvailability(context.Background(), CheckRequest{Date: date, Start: "10:00", End: "11:00"})
	assert.Less(t, time.Since(start), time.Second)

	var storeErr *reservation.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "list_by_date", storeErr.Op)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStoreFailureIsWrapped(t *testing.T) {
	cause := errors.New("connection refused")
	svc := &Service{Gateway: failingGateway{Gateway: memory.NewReservationGateway(), err: cause}}

	_, err := svc.Create(context.Background(), Request{Date: date, StartTime: "10:00", EndTime: "11:00", Details: booking("Ana")})
	assert.True(t, reservation.IsStore(err))
	assert.ErrorIs(t, err, cause)
}
