package sqlstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"venuecal/internal/domain/venueevent"
)

type eventRow struct {
	ID        string   `gorm:"primaryKey;size:64"`
	Title     string   `gorm:"size:200"`
	Type      string   `gorm:"size:64"`
	Location  string   `gorm:"size:200"`
	Capacity  int
	Status    string   `gorm:"size:16;index"`
	Date      string   `gorm:"size:10;index"`
	StartTime string   `gorm:"size:5"`
	EndTime   string   `gorm:"size:5"`
	Program   []string `gorm:"serializer:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (eventRow) TableName() string { return "venue_events" }

func newEventRow(e *venueevent.Event) eventRow {
	return eventRow{
		ID:        string(e.ID),
		Title:     e.Title,
		Type:      e.Type,
		Location:  e.Location,
		Capacity:  e.Capacity,
		Status:    string(e.Status),
		Date:      e.Date,
		StartTime: e.Start,
		EndTime:   e.End,
		Program:   append([]string(nil), e.Program...),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func (row eventRow) toDomain() *venueevent.Event {
	status, err := venueevent.ParseStatus(row.Status)
	if err != nil {
		status = venueevent.StatusDraft
	}
	return &venueevent.Event{
		ID:        venueevent.ID(row.ID),
		Title:     row.Title,
		Type:      row.Type,
		Location:  row.Location,
		Capacity:  row.Capacity,
		Status:    status,
		Date:      row.Date,
		Start:     row.StartTime,
		End:       row.EndTime,
		Program:   append([]string(nil), row.Program...),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) ByID(ctx context.Context, id venueevent.ID) (*venueevent.Event, error) {
	var row eventRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, venueevent.ErrEventNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// Save upserts e. The original creation time is kept on replace.
func (r *EventRepository) Save(ctx context.Context, e *venueevent.Event) error {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	row := newEventRow(e)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "type", "location", "capacity", "status", "date", "start_time", "end_time", "program", "updated_at"}),
	}).Create(&row).Error
}

func (r *EventRepository) Delete(ctx context.Context, id venueevent.ID) error {
	res := r.db.WithContext(ctx).Delete(&eventRow{}, "id = ?", string(id))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return venueevent.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) List(ctx context.Context) ([]*venueevent.Event, error) {
	var rows []eventRow
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*venueevent.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

var _ venueevent.Repository = (*EventRepository)(nil)
