package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"venuecal/internal/domain/reservation"
)

const reservationsCollection = "venue_reservations"

// ReservationGateway stores the ledger in one document per reservation.
type ReservationGateway struct {
	col *mongo.Collection
	now func() time.Time
}

func NewReservationGateway(db *mongo.Database) *ReservationGateway {
	return &ReservationGateway{col: db.Collection(reservationsCollection), now: func() time.Time { return time.Now().UTC() }}
}

// EnsureIndexes creates the lookups used by the date scan and event release.
func (g *ReservationGateway) EnsureIndexes(ctx context.Context) error {
	_, err := g.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "date", Value: 1}, {Key: "start_time", Value: 1}}},
		{Keys: bson.D{{Key: "details.event_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	return err
}

func (g *ReservationGateway) Get(ctx context.Context, id reservation.ID) (*reservation.Reservation, error) {
	var doc reservationDocument
	if err := g.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservation.ErrNotFound
		}
		return nil, err
	}
	r := doc.toDomain()
	return &r, nil
}

func (g *ReservationGateway) ListByDate(ctx context.Context, date string) ([]reservation.Reservation, error) {
	return g.find(ctx, bson.M{"date": date})
}

func (g *ReservationGateway) ListByRange(ctx context.Context, from, to string) ([]reservation.Reservation, error) {
	return g.find(ctx, bson.M{"date": bson.M{"$gte": from, "$lte": to}})
}

func (g *ReservationGateway) Insert(ctx context.Context, r *reservation.Reservation) error {
	if r.ID == "" {
		r.ID = reservation.ID(uuid.NewString())
	}
	now := g.now()
	r.CreatedAt = now
	r.UpdatedAt = now
	_, err := g.col.InsertOne(ctx, newReservationDocument(*r))
	return err
}

func (g *ReservationGateway) Update(ctx context.Context, id reservation.ID, patch reservation.Patch) (*reservation.Reservation, error) {
	set := bson.M{"updated_at": g.now().UnixMilli()}
	if patch.Date != nil {
		set["date"] = *patch.Date
	}
	if patch.StartTime != nil {
		set["start_time"] = *patch.StartTime
	}
	if patch.EndTime != nil {
		set["end_time"] = *patch.EndTime
	}
	if patch.Details != nil {
		set["details"] = reservation.EncodeDetails(patch.Details)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc reservationDocument
	if err := g.col.FindOneAndUpdate(ctx, bson.M{"_id": string(id)}, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservation.ErrNotFound
		}
		return nil, err
	}
	r := doc.toDomain()
	return &r, nil
}

func (g *ReservationGateway) Delete(ctx context.Context, id reservation.ID) error {
	res, err := g.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return reservation.ErrNotFound
	}
	return nil
}

func (g *ReservationGateway) DeleteByEventID(ctx context.Context, eventID string) (int, error) {
	res, err := g.col.DeleteMany(ctx, bson.M{"details.event_id": eventID})
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}

func (g *ReservationGateway) find(ctx context.Context, filter bson.M) ([]reservation.Reservation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "start_time", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := g.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []reservationDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]reservation.Reservation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

type reservationDocument struct {
	ID        string                    `bson:"_id"`
	Date      string                    `bson:"date"`
	StartTime string                    `bson:"start_time"`
	EndTime   string                    `bson:"end_time"`
	Details   reservation.DetailsRecord `bson:"details"`
	CreatedAt int64                     `bson:"created_at"`
	UpdatedAt int64                     `bson:"updated_at"`
}

func newReservationDocument(r reservation.Reservation) reservationDocument {
	return reservationDocument{
		ID:        string(r.ID),
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Details:   reservation.EncodeDetails(r.Details),
		CreatedAt: r.CreatedAt.UnixMilli(),
		UpdatedAt: r.UpdatedAt.UnixMilli(),
	}
}

// toDomain keeps rows with unreadable details; the conflict scan still sees their interval.
func (d reservationDocument) toDomain() reservation.Reservation {
	details, err := reservation.DecodeDetails(d.Details)
	if err != nil {
		details = nil
	}
	return reservation.Reservation{
		ID:        reservation.ID(d.ID),
		Date:      d.Date,
		StartTime: d.StartTime,
		EndTime:   d.EndTime,
		Details:   details,
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
	}
}

func timestampToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

var _ reservation.Gateway = (*ReservationGateway)(nil)
