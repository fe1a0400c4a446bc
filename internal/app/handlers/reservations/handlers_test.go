package reservations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuecal/internal/app/commands"
	"venuecal/internal/app/dto"
	"venuecal/internal/app/middleware"
	"venuecal/internal/app/queries"
	"venuecal/internal/app/timeslot"
	"venuecal/internal/domain/reservation"
	"venuecal/internal/infra/storage/memory"
)

const day = "2025-10-01"

type buses struct {
	cmd   commands.Bus
	query queries.Bus
	gw    *memory.ReservationGateway
}

func newBuses(t *testing.T) buses {
	t.Helper()
	gw := memory.NewReservationGateway()
	svc, err := timeslot.NewService(gw, nil, nil, time.Second)
	require.NoError(t, err)

	cmdBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()
	Register(cmdBus, queryBus, svc)

	return buses{
		cmd: middleware.ChainCommands(cmdBus,
			middleware.Validation(middleware.MessageValidator{}),
			middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil),
		),
		query: middleware.ChainQueries(queryBus, middleware.QueryValidation(middleware.MessageValidator{})),
		gw:    gw,
	}
}

func manual(name string) reservation.DetailsRecord {
	return reservation.DetailsRecord{Kind: "manual", RequesterName: name, Contact: name + "@example.com"}
}

func TestCreateReplaysIdempotentResult(t *testing.T) {
	b := newBuses(t)
	ctx := context.Background()
	cmd := CreateReservationCommand{Date: day, StartTime: "10:00", EndTime: "11:00", Details: manual("Ana"), IdempotencyKeyV: "k1"}

	first, err := commands.Dispatch[CreateReservationCommand, *dto.Reservation](ctx, b.cmd, cmd)
	require.NoError(t, err)
	second, err := commands.Dispatch[CreateReservationCommand, *dto.Reservation](ctx, b.cmd, cmd)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Booking for Ana", second.Title)
	all, err := b.gw.ListByDate(ctx, day)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConflictIsNotRememberedByIdempotencyKey(t *testing.T) {
	b := newBuses(t)
	ctx := context.Background()

	blocker, err := commands.Dispatch[CreateReservationCommand, *dto.Reservation](ctx, b.cmd,
		CreateReservationCommand{Date: day, StartTime: "10:00", EndTime: "12:00", Details: manual("Bo")})
	require.NoError(t, err)

	retry := CreateReservationCommand{Date: day, StartTime: "11:00", EndTime: "13:00", Details: manual("Cy"), IdempotencyKeyV: "k2"}
	_, err = commands.Dispatch[CreateReservationCommand, *dto.Reservation](ctx, b.cmd, retry)
	require.True(t, reservation.IsConflict(err))

	_, err = commands.Dispatch[DeleteReservationCommand, *DeleteReservationResult](ctx, b.cmd, DeleteReservationCommand{ID: blocker.ID})
	require.NoError(t, err)

	created, err := commands.Dispatch[CreateReservationCommand, *dto.Reservation](ctx, b.cmd, retry)
	require.NoError(t, err)
	assert.Equal(t, "11:00", created.StartTime)
}

func TestCreateRejectsMissingDetailsKind(t *testing.T) {
	b := newBuses(t)
	_, err := commands.Dispatch[CreateReservationCommand, *dto.Reservation](context.Background(), b.cmd,
		CreateReservationCommand{Date: day, StartTime: "10:00", EndTime: "11:00"})
	assert.True(t, reservation.IsValidation(err))
}

func TestUpdateOnlyTouchesSetFields(t *testing.T) {
	b := newBuses(t)
	ctx := context.Background()
	created, err := commands.Dispatch[CreateReservationCommand, *dto.Reservation](ctx, b.cmd,
		CreateReservationCommand{Date: day, StartTime: "10:00", EndTime: "11:00", Details: manual("Ana")})
	require.NoError(t, err)

	end := "11:30"
	updated, err := commands.Dispatch[UpdateReservationCommand, *dto.Reservation](ctx, b.cmd,
		UpdateReservationCommand{ID: created.ID, EndTime: &end})
	require.NoError(t, err)
	assert.Equal(t, "10:00", updated.StartTime)
	assert.Equal(t, "11:30", updated.EndTime)
	assert.Equal(t, "manual", updated.Details.Kind)
}

func TestCheckAvailabilityQuery(t *testing.T) {
	b := newBuses(t)
	ctx := context.Background()
	created, err := commands.Dispatch[CreateReservationCommand, *dto.Reservation](ctx, b.cmd,
		CreateReservationCommand{Date: day, StartTime: "10:00", EndTime: "11:00", Details: manual("Ana")})
	require.NoError(t, err)

	res, err := queries.Ask[CheckAvailabilityQuery, dto.Availability](ctx, b.query,
		CheckAvailabilityQuery{Date: day, StartTime: "10:30", EndTime: "11:30"})
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, created.ID, res.Conflicts[0].ID)

	res, err = queries.Ask[CheckAvailabilityQuery, dto.Availability](ctx, b.query,
		CheckAvailabilityQuery{Date: day, StartTime: "10:30", EndTime: "11:30", ExcludeID: created.ID})
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Conflicts)
}

func TestListReservationsQuery(t *testing.T) {
	b := newBuses(t)
	ctx := context.Background()
	for _, d := range []string{day, "2025-10-02", "2025-10-05"} {
		_, err := commands.Dispatch[CreateReservationCommand, *dto.Reservation](ctx, b.cmd,
			CreateReservationCommand{Date: d, StartTime: "09:00", EndTime: "10:00", Details: manual("Ana")})
		require.NoError(t, err)
	}

	one, err := queries.Ask[ListReservationsQuery, dto.ReservationCollection](ctx, b.query, ListReservationsQuery{Date: day})
	require.NoError(t, err)
	assert.Len(t, one.Items, 1)

	span, err := queries.Ask[ListReservationsQuery, dto.ReservationCollection](ctx, b.query, ListReservationsQuery{From: day, To: "2025-10-03"})
	require.NoError(t, err)
	assert.Len(t, span.Items, 2)

	_, err = queries.Ask[ListReservationsQuery, dto.ReservationCollection](ctx, b.query, ListReservationsQuery{})
	assert.True(t, reservation.IsValidation(err))
}

func TestReleaseEventSlots(t *testing.T) {
	b := newBuses(t)
	ctx := context.Background()
	details := reservation.DetailsRecord{Kind: "event", EventID: "ev-1", EventTitle: "Gala"}
	_, err := commands.Dispatch[CreateReservationCommand, *dto.Reservation](ctx, b.cmd,
		CreateReservationCommand{Date: day, StartTime: "18:00", EndTime: "20:00", Details: details})
	require.NoError(t, err)

	res, err := commands.Dispatch[ReleaseEventSlotsCommand, *dto.ReleaseResult](ctx, b.cmd, ReleaseEventSlotsCommand{EventID: "ev-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)
}

func TestEventHeldSlotCannotBeEditedDirectly(t *testing.T) {
	b := newBuses(t)
	ctx := context.Background()
	details := reservation.DetailsRecord{Kind: "event", EventID: "ev-1", EventTitle: "Gala"}
	held, err := commands.Dispatch[CreateReservationCommand, *dto.Reservation](ctx, b.cmd,
		CreateReservationCommand{Date: day, StartTime: "18:00", EndTime: "20:00", Details: details})
	require.NoError(t, err)

	later := "21:00"
	_, err = commands.Dispatch[UpdateReservationCommand, *dto.Reservation](ctx, b.cmd,
		UpdateReservationCommand{ID: held.ID, EndTime: &later})
	assert.True(t, reservation.IsValidation(err))

	_, err = commands.Dispatch[DeleteReservationCommand, *DeleteReservationResult](ctx, b.cmd, DeleteReservationCommand{ID: held.ID})
	assert.True(t, reservation.IsValidation(err))

	stored, err := b.gw.Get(ctx, reservation.ID(held.ID))
	require.NoError(t, err)
	assert.Equal(t, "18:00-20:00", stored.Interval())

	own, err := commands.Dispatch[CreateReservationCommand, *dto.Reservation](ctx, b.cmd,
		CreateReservationCommand{Date: day, StartTime: "10:00", EndTime: "11:00", Details: manual("Ana")})
	require.NoError(t, err)
	_, err = commands.Dispatch[UpdateReservationCommand, *dto.Reservation](ctx, b.cmd,
		UpdateReservationCommand{ID: own.ID, Details: &details})
	assert.True(t, reservation.IsValidation(err))

	_, err = commands.Dispatch[DeleteReservationCommand, *DeleteReservationResult](ctx, b.cmd, DeleteReservationCommand{ID: own.ID})
	require.NoError(t, err)
}
