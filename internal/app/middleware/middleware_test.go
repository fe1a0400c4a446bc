package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuecal/internal/app/commands"
	"venuecal/internal/app/outbox"
	"venuecal/internal/app/queries"
)

type bookCommand struct {
	Slot string
	IdemKey string
}

func (c bookCommand) Key() string            { return "test.book" }
func (c bookCommand) IdempotencyKey() string { return c.IdemKey }
func (c bookCommand) ResultPrototype() any   { return &bookResult{} }

func (c bookCommand) Validate() error {
	if c.Slot == "" {
		return errors.New("slot is required")
	}
	return nil
}

type cancelCommand struct{ IdemKey string }

func (c cancelCommand) Key() string            { return "test.cancel" }
func (c cancelCommand) IdempotencyKey() string { return c.IdemKey }
func (c cancelCommand) ResultPrototype() any   { return &bookResult{} }

type bookResult struct {
	Slot  string `json:"slot"`
	Count int    `json:"count"`
}

type fakeStore struct {
	mu    sync.Mutex
	items map[string]IdempotencyRecord
}

func (s *fakeStore) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *fakeStore) Save(_ context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items == nil {
		s.items = map[string]IdempotencyRecord{}
	}
	s.items[rec.Key] = rec
	return nil
}

// countingBus books slots and fails when asked to.
type countingBus struct {
	calls int
	fail  error
}

func (b *countingBus) Dispatch(_ context.Context, cmd commands.Command) (any, error) {
	b.calls++
	if b.fail != nil {
		return nil, b.fail
	}
	if c, ok := cmd.(bookCommand); ok {
		return &bookResult{Slot: c.Slot, Count: b.calls}, nil
	}
	return &bookResult{Count: b.calls}, nil
}

func TestIdempotencyReplaysSuccess(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Idempotency(&fakeStore{}, nil))
	ctx := context.Background()

	first, err := bus.Dispatch(ctx, bookCommand{Slot: "10:00", IdemKey: "k"})
	require.NoError(t, err)
	again, err := bus.Dispatch(ctx, bookCommand{Slot: "10:00", IdemKey: "k"})
	require.NoError(t, err)

	assert.Equal(t, 1, base.calls)
	assert.Equal(t, first, again)
}

func TestIdempotencyDoesNotRememberFailures(t *testing.T) {
	base := &countingBus{fail: errors.New("taken")}
	bus := ChainCommands(base, Idempotency(&fakeStore{}, nil))
	ctx := context.Background()

	_, err := bus.Dispatch(ctx, bookCommand{Slot: "10:00", IdemKey: "k"})
	require.Error(t, err)

	base.fail = nil
	res, err := bus.Dispatch(ctx, bookCommand{Slot: "10:00", IdemKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "10:00", res.(*bookResult).Slot)
	assert.Equal(t, 2, base.calls)
}

func TestIdempotencyKeyReusedForAnotherCommand(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Idempotency(&fakeStore{}, nil))
	ctx := context.Background()

	_, err := bus.Dispatch(ctx, bookCommand{Slot: "10:00", IdemKey: "k"})
	require.NoError(t, err)
	_, err = bus.Dispatch(ctx, cancelCommand{IdemKey: "k"})
	assert.ErrorIs(t, err, ErrIdempotencyKeyReused)
}

func TestIdempotencyWithoutKeyPassesThrough(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Idempotency(&fakeStore{}, nil))

	for i := 0; i < 2; i++ {
		_, err := bus.Dispatch(context.Background(), bookCommand{Slot: "10:00"})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, base.calls)
}

func TestReadOnlyGuard(t *testing.T) {
	readOnly := true
	base := &countingBus{}
	bus := ChainCommands(base, Guarded(ReadOnlyGuard{Enabled: func() bool { return readOnly }}))

	_, err := bus.Dispatch(context.Background(), bookCommand{Slot: "10:00"})
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.Zero(t, base.calls)

	readOnly = false
	_, err = bus.Dispatch(context.Background(), bookCommand{Slot: "10:00"})
	require.NoError(t, err)
}

func TestValidationStopsBadCommands(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Validation(MessageValidator{}))

	_, err := bus.Dispatch(context.Background(), bookCommand{})
	require.EqualError(t, err, "slot is required")
	assert.Zero(t, base.calls)
}

type counter struct{ n int }

func (c *counter) Invalidate() { c.n++ }

func TestInvalidatingRunsOnSuccessAndFailure(t *testing.T) {
	inv := &counter{}
	base := &countingBus{}
	bus := ChainCommands(base, Invalidating(inv))

	_, err := bus.Dispatch(context.Background(), bookCommand{Slot: "10:00"})
	require.NoError(t, err)
	base.fail = errors.New("store down")
	_, err = bus.Dispatch(context.Background(), bookCommand{Slot: "10:00"})
	require.Error(t, err)

	assert.Equal(t, 2, inv.n)
}

type flushRecorder struct{ flushed int }

func (f *flushRecorder) Add(context.Context, outbox.EventRecord) error { return nil }
func (f *flushRecorder) Flush(context.Context) error             { f.flushed++; return nil }

func TestOutboxFlushOnlyAfterSuccess(t *testing.T) {
	box := &flushRecorder{}
	base := &countingBus{}
	bus := ChainCommands(base, OutboxFlush(box))

	_, err := bus.Dispatch(context.Background(), bookCommand{Slot: "10:00"})
	require.NoError(t, err)
	base.fail = errors.New("conflict")
	_, _ = bus.Dispatch(context.Background(), bookCommand{Slot: "10:00"})

	assert.Equal(t, 1, box.flushed)
}

func TestChainOrderIsOutermostFirst(t *testing.T) {
	var order []string
	tag := func(name string) CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			nextFn := wrapCommand(next)
			return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				order = append(order, name)
				return nextFn(ctx, cmd)
			})
		}
	}
	bus := ChainCommands(&countingBus{}, tag("outer"), tag("inner"))
	_, err := bus.Dispatch(context.Background(), bookCommand{Slot: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type listQuery struct{ Day string }

func (q listQuery) Key() string { return "test.list" }

func (q listQuery) Validate() error {
	if q.Day == "" {
		return errors.New("day is required")
	}
	return nil
}

type failingQueryBus struct{}

func (failingQueryBus) Ask(context.Context, queries.Query) (any, error) {
	return nil, errors.New("store down")
}

func TestQueryMiddlewares(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	bus := ChainQueries(failingQueryBus{}, QueryLogging(logger), QueryValidation(MessageValidator{}))

	_, err := bus.Ask(context.Background(), listQuery{})
	require.EqualError(t, err, "day is required")

	_, err = bus.Ask(context.Background(), listQuery{Day: "2025-01-01"})
	require.EqualError(t, err, "store down")
	assert.Contains(t, buf.String(), "query failed")
	assert.Contains(t, buf.String(), "test.list")
}
