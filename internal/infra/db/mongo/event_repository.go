package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"venuecal/internal/domain/venueevent"
)

const eventsCollection = "venue_events"

type EventRepository struct {
	col *mongo.Collection
}

func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{col: db.Collection(eventsCollection)}
}

func (r *EventRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}, {Key: "date", Value: 1}}})
	return err
}

func (r *EventRepository) ByID(ctx context.Context, id venueevent.ID) (*venueevent.Event, error) {
	var doc eventDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, venueevent.ErrEventNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

// Save upserts e. The original creation time is kept on replace.
func (r *EventRepository) Save(ctx context.Context, e *venueevent.Event) error {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	doc := newEventDocument(e)
	update := bson.M{
		"$set":         bson.M{"title": doc.Title, "type": doc.Type, "location": doc.Location, "capacity": doc.Capacity, "status": doc.Status, "date": doc.Date, "start_time": doc.StartTime, "end_time": doc.EndTime, "program": doc.Program, "updated_at": doc.UpdatedAt},
		"$setOnInsert": bson.M{"created_at": doc.CreatedAt},
	}
	_, err := r.col.UpdateByID(ctx, doc.ID, update, options.Update().SetUpsert(true))
	return err
}

func (r *EventRepository) Delete(ctx context.Context, id venueevent.ID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return venueevent.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) List(ctx context.Context) ([]*venueevent.Event, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []eventDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*venueevent.Event, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

type eventDocument struct {
	ID        string   `bson:"_id"`
	Title     string   `bson:"title"`
	Type      string   `bson:"type"`
	Location  string   `bson:"location"`
	Capacity  int      `bson:"capacity"`
	Status    string   `bson:"status"`
	Date      string   `bson:"date"`
	StartTime string   `bson:"start_time"`
	EndTime   string   `bson:"end_time"`
	Program   []string `bson:"program,omitempty"`
	CreatedAt int64    `bson:"created_at"`
	UpdatedAt int64    `bson:"updated_at"`
}

func newEventDocument(e *venueevent.Event) eventDocument {
	return eventDocument{
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
		CreatedAt: e.CreatedAt.UnixMilli(),
		UpdatedAt: e.UpdatedAt.UnixMilli(),
	}
}

func (d eventDocument) toDomain() *venueevent.Event {
	status, err := venueevent.ParseStatus(d.Status)
	if err != nil {
		status = venueevent.StatusDraft
	}
	return &venueevent.Event{
		ID:        venueevent.ID(d.ID),
		Title:     d.Title,
		Type:      d.Type,
		Location:  d.Location,
		Capacity:  d.Capacity,
		Status:    status,
		Date:      d.Date,
		Start:     d.StartTime,
		End:       d.EndTime,
		Program:   append([]string(nil), d.Program...),
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
	}
}

var _ venueevent.Repository = (*EventRepository)(nil)
