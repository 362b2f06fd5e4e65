package databases

// go generate: mockery --name CounterDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gramasevaka/gs-portal-api/models"
)

const counterName = "counters"

// CounterDatabase hands out sequence values for human readable numbers
type CounterDatabase interface {
	// Next atomically increments the counter for scope and returns the new
	// value. The first call for a scope returns 1.
	Next(ctx context.Context, scope string) (int64, error)
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

func (c *counterDatabase) Next(ctx context.Context, scope string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter models.Counter
	err := c.db.Collection(counterName).
		FindOneAndUpdate(ctx, bson.M{"_id": scope}, bson.M{"$inc": bson.M{"seq": 1}}, opts).
		Decode(&counter)
	if err != nil {
		return 0, translate(err)
	}
	return counter.Seq, nil
}
