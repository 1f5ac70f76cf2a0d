package mongo

import (
	"context"
	"fmt"
	bookingsrepo "shareit/internal/bookings/repository"
	itemsrepo "shareit/internal/items/repository"
	"shareit/internal/migrations/mongo/validators"
	requestsrepo "shareit/internal/requests/repository"
	usersrepo "shareit/internal/users/repository"
	mongotx "shareit/pkg/db/mongo"
	"shareit/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	UsersIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
	}

	ItemsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "request_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	}

	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "item_id", Value: 1},
			{Key: "start", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "booker_id", Value: 1},
			{Key: "start", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "item_id", Value: 1},
			{Key: "status", Value: 1},
		}},
	}

	BookingLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at"),
		},
	}

	CommentsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "item_id", Value: 1}, {Key: "created", Value: -1}}},
		{Keys: bson.D{{Key: "author_id", Value: 1}}},
	}

	RequestsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "requestor_id", Value: 1}, {Key: "created", Value: -1}}},
		{Keys: bson.D{{Key: "created", Value: -1}}},
	}
)

type Collection struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// Collections lists every collection the server reads or writes.
func Collections() []Collection {
	return []Collection{
		{Name: usersrepo.CollectionName, Indexes: UsersIndexes, Validator: validators.UserValidator},
		{Name: itemsrepo.CollectionName, Indexes: ItemsIndexes, Validator: validators.ItemValidator},
		{Name: itemsrepo.CommentCollectionName, Indexes: CommentsIndexes, Validator: validators.CommentValidator},
		{Name: bookingsrepo.CollectionName, Indexes: BookingsIndexes, Validator: validators.BookingValidator},
		{Name: bookingsrepo.LockCollectionName, Indexes: BookingLocksIndexes, Validator: validators.BookingLockValidator},
		{Name: bookingsrepo.GuardCollectionName, Validator: validators.BookingGuardValidator},
		{Name: requestsrepo.CollectionName, Indexes: RequestsIndexes, Validator: validators.RequestValidator},
		{Name: mongotx.CountersCollection, Validator: validators.CounterValidator},
	}
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for _, def := range Collections() {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
