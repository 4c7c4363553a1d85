package databases

// go generate: mockery --name CounterDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/legal-case-api/models"
)

const counterName = "counters"

// CounterDatabase contains the methods to use with the counter database
type CounterDatabase interface {
	Next(ctx context.Context, key string) (int64, error)
}

type counterDatabase struct {
	db DatabaseHelper
}

// NewCounterDatabase initializes a new instance of counter database with the provided db connection
func NewCounterDatabase(db DatabaseHelper) CounterDatabase {
	return &counterDatabase{
		db: db,
	}
}

// Next atomically increments the named sequence and returns the new value.
// The counter is created at 1 when it does not exist yet.
func (c *counterDatabase) Next(ctx context.Context, key string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	counter := &models.Counter{}
	err := c.db.Collection(counterName).FindOneAndUpdate(
		ctx,
		bson.M{"name": key},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}
