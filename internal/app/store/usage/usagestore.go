// Package usagestore reads and writes per-pharmacy daily usage counters.
package usagestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/pharmausage/internal/app/system/usage"
	"github.com/dalemusser/pharmausage/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var errNegativeCount = errors.New("count must be >= 0")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("daily_usage")}
}

// ListByPharmacy returns every daily counter for a pharmacy, oldest first.
func (s *Store) ListByPharmacy(ctx context.Context, pharmacyID primitive.ObjectID) ([]models.DailyUsage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"pharmacy_id": pharmacyID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.DailyUsage
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Records converts stored counters into aggregator input.
func Records(rows []models.DailyUsage) []usage.Record {
	out := make([]usage.Record, len(rows))
	for i, r := range rows {
		out[i] = usage.Record{Date: r.Date, Count: r.Count}
	}
	return out
}

// Set stores count for (pharmacyID, date), replacing any previous value.
func (s *Store) Set(ctx context.Context, pharmacyID primitive.ObjectID, date string, count int64) error {
	if count < 0 {
		return errNegativeCount
	}
	_, err := s.c.UpdateOne(ctx,
		bson.M{"pharmacy_id": pharmacyID, "date": date},
		bson.M{"$set": bson.M{"count": count, "updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true))
	return err
}

// Increment adds delta to the counter for (pharmacyID, date), creating it if needed.
func (s *Store) Increment(ctx context.Context, pharmacyID primitive.ObjectID, date string, delta int64) error {
	if delta < 0 {
		return errNegativeCount
	}
	_, err := s.c.UpdateOne(ctx,
		bson.M{"pharmacy_id": pharmacyID, "date": date},
		bson.M{
			"$inc": bson.M{"count": delta},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
		options.Update().SetUpsert(true))
	return err
}
