package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"venuecal/internal/domain/reservation"
)

type reservationRow struct {
	ID        string                    `gorm:"primaryKey;size:64"`
	Date      string                    `gorm:"size:10;index:idx_reservations_date_start,priority:1"`
	StartTime string                    `gorm:"size:5;index:idx_reservations_date_start,priority:2"`
	EndTime   string                    `gorm:"size:5"`
	EventID   string                    `gorm:"size:64;index"`
	Details   reservation.DetailsRecord `gorm:"serializer:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (reservationRow) TableName() string { return "venue_reservations" }

func newReservationRow(r reservation.Reservation) reservationRow {
	rec := reservation.EncodeDetails(r.Details)
	return reservationRow{
		ID:        string(r.ID),
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		EventID:   rec.EventID,
		Details:   rec,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (row reservationRow) toDomain() reservation.Reservation {
	details, err := reservation.DecodeDetails(row.Details)
	if err != nil {
		details = nil
	}
	return reservation.Reservation{
		ID:        reservation.ID(row.ID),
		Date:      row.Date,
		StartTime: row.StartTime,
		EndTime:   row.EndTime,
		Details:   details,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

// ReservationGateway keeps the ledger in one table; event holds are indexed by event id.
type ReservationGateway struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReservationGateway(db *gorm.DB) *ReservationGateway {
	return &ReservationGateway{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (g *ReservationGateway) Get(ctx context.Context, id reservation.ID) (*reservation.Reservation, error) {
	var row reservationRow
	if err := g.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reservation.ErrNotFound
		}
		return nil, err
	}
	r := row.toDomain()
	return &r, nil
}

func (g *ReservationGateway) ListByDate(ctx context.Context, date string) ([]reservation.Reservation, error) {
	return g.find(g.db.WithContext(ctx).Where("date = ?", date))
}

func (g *ReservationGateway) ListByRange(ctx context.Context, from, to string) ([]reservation.Reservation, error) {
	return g.find(g.db.WithContext(ctx).Where("date >= ? AND date <= ?", from, to))
}

func (g *ReservationGateway) Insert(ctx context.Context, r *reservation.Reservation) error {
	if r.ID == "" {
		r.ID = reservation.ID(uuid.NewString())
	}
	now := g.now()
	r.CreatedAt = now
	r.UpdatedAt = now
	row := newReservationRow(*r)
	return g.db.WithContext(ctx).Create(&row).Error
}

func (g *ReservationGateway) Update(ctx context.Context, id reservation.ID, patch reservation.Patch) (*reservation.Reservation, error) {
	var out reservation.Reservation
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row reservationRow
		if err := tx.First(&row, "id = ?", string(id)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return reservation.ErrNotFound
			}
			return err
		}
		if patch.Date != nil {
			row.Date = *patch.Date
		}
		if patch.StartTime != nil {
			row.StartTime = *patch.StartTime
		}
		if patch.EndTime != nil {
			row.EndTime = *patch.EndTime
		}
		if patch.Details != nil {
			row.Details = reservation.EncodeDetails(patch.Details)
			row.EventID = row.Details.EventID
		}
		row.UpdatedAt = g.now()
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		out = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *ReservationGateway) Delete(ctx context.Context, id reservation.ID) error {
	res := g.db.WithContext(ctx).Delete(&reservationRow{}, "id = ?", string(id))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return reservation.ErrNotFound
	}
	return nil
}

func (g *ReservationGateway) DeleteByEventID(ctx context.Context, eventID string) (int, error) {
	if eventID == "" {
		return 0, nil
	}
	res := g.db.WithContext(ctx).Delete(&reservationRow{}, "event_id = ?", eventID)
	return int(res.RowsAffected), res.Error
}

func (g *ReservationGateway) find(q *gorm.DB) ([]reservation.Reservation, error) {
	var rows []reservationRow
	if err := q.Order("date, start_time, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]reservation.Reservation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

var _ reservation.Gateway = (*ReservationGateway)(nil)
