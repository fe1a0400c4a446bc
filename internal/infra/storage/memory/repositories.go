package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"venuecal/internal/domain/reservation"
	"venuecal/internal/domain/venueevent"
)

// ErrDuplicateID is returned when an insert reuses an existing reservation id.
var ErrDuplicateID = errors.New("memory: reservation id already exists")

// ReservationGateway keeps the reservation ledger in a map.
type ReservationGateway struct {
	mu    sync.RWMutex
	items map[reservation.ID]reservation.Reservation
	now   func() time.Time
}

func NewReservationGateway() *ReservationGateway {
	return &ReservationGateway{
		items: make(map[reservation.ID]reservation.Reservation),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (g *ReservationGateway) Get(ctx context.Context, id reservation.ID) (*reservation.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.items[id]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	return &r, nil
}

func (g *ReservationGateway) ListByDate(ctx context.Context, date string) ([]reservation.Reservation, error) {
	return g.filter(ctx, func(r reservation.Reservation) bool { return r.Date == date })
}

// ListByRange returns reservations with from <= date <= to.
func (g *ReservationGateway) ListByRange(ctx context.Context, from, to string) ([]reservation.Reservation, error) {
	return g.filter(ctx, func(r reservation.Reservation) bool { return r.Date >= from && r.Date <= to })
}

func (g *ReservationGateway) Insert(ctx context.Context, r *reservation.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if r.ID == "" {
		r.ID = reservation.ID(uuid.NewString())
	}
	if _, exists := g.items[r.ID]; exists {
		return ErrDuplicateID
	}
	now := g.now()
	r.CreatedAt = now
	r.UpdatedAt = now
	g.items[r.ID] = *r
	return nil
}

func (g *ReservationGateway) Update(ctx context.Context, id reservation.ID, patch reservation.Patch) (*reservation.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	current, ok := g.items[id]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	updated := patch.Apply(current)
	updated.UpdatedAt = g.now()
	g.items[id] = updated
	return &updated, nil
}

func (g *ReservationGateway) Delete(ctx context.Context, id reservation.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.items[id]; !ok {
		return reservation.ErrNotFound
	}
	delete(g.items, id)
	return nil
}

func (g *ReservationGateway) DeleteByEventID(ctx context.Context, eventID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	removed := 0
	for id, r := range g.items {
		if r.EventID() == eventID {
			delete(g.items, id)
			removed++
		}
	}
	return removed, nil
}

func (g *ReservationGateway) filter(ctx context.Context, keep func(reservation.Reservation) bool) ([]reservation.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]reservation.Reservation, 0)
	for _, r := range g.items {
		if keep(r) {
			out = append(out, r)
		}
	}
	sortReservations(out)
	return out, nil
}

func sortReservations(items []reservation.Reservation) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date < items[j].Date
		}
		if items[i].StartTime != items[j].StartTime {
			return items[i].StartTime < items[j].StartTime
		}
		return items[i].ID < items[j].ID
	})
}

// EventRepository stores upstream event records.
type EventRepository struct {
	mu    sync.RWMutex
	items map[venueevent.ID]*venueevent.Event
}

func NewEventRepository() *EventRepository {
	return &EventRepository{items: make(map[venueevent.ID]*venueevent.Event)}
}

func (r *EventRepository) ByID(ctx context.Context, id venueevent.ID) (*venueevent.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[id]
	if !ok {
		return nil, venueevent.ErrEventNotFound
	}
	return e.Clone(), nil
}

func (r *EventRepository) Save(ctx context.Context, e *venueevent.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if prev, ok := r.items[e.ID]; ok {
		e.CreatedAt = prev.CreatedAt
	} else if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	r.items[e.ID] = e.Clone()
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, id venueevent.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return venueevent.ErrEventNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *EventRepository) List(ctx context.Context) ([]*venueevent.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*venueevent.Event, 0, len(r.items))
	for _, e := range r.items {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var (
	_ reservation.Gateway   = (*ReservationGateway)(nil)
	_ venueevent.Repository = (*EventRepository)(nil)
)
