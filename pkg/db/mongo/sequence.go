package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CountersCollection = "Counters"

// SequenceGenerator hands out monotonically increasing numeric ids per entity.
type SequenceGenerator interface {
	Next(ctx context.Context, name string) (int64, error)
}

type counter struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

type mongoSequenceGenerator struct {
	collection *mongo.Collection
}

func NewSequenceGenerator(db *mongo.Database) SequenceGenerator {
	return &mongoSequenceGenerator{collection: db.Collection(CountersCollection)}
}

// Next must be called outside of a transaction; the counter document is
// shared by every writer and would otherwise cause write conflicts.
func (g *mongoSequenceGenerator) Next(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var c counter
	err := g.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", name, err)
	}
	return c.Seq, nil
}
