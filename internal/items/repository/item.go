package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	itemserrors "shareit/internal/items/errors"
	"shareit/pkg/config"
	mongotx "shareit/pkg/db/mongo"
	"shareit/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Items"
	SequenceName   = "items"
)

type ItemRepository interface {
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, item *model.Item) error
	FindByID(ctx context.Context, id int64) (*model.Item, error)
	FindByIDs(ctx context.Context, ids []int64) ([]*model.Item, error)
	FindByOwner(ctx context.Context, ownerID int64, page model.Page) ([]*model.Item, error)
	FindIDsByOwner(ctx context.Context, ownerID int64) ([]int64, error)
	Search(ctx context.Context, text string, page model.Page) ([]*model.Item, error)
	FindByRequestIDs(ctx context.Context, requestIDs []int64) ([]*model.Item, error)
	Update(ctx context.Context, item *model.Item) error
	Delete(ctx context.Context, id int64) error
}

type mongoItemRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	sequence   mongotx.SequenceGenerator
}

func NewMongoItemRepository(cfg *config.Config) ItemRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoItemRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		sequence:   mongotx.NewSequenceGenerator(db),
	}
}

func (r *mongoItemRepository) NextID(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()
	return r.sequence.Next(ctx, SequenceName)
}

func (r *mongoItemRepository) Create(ctx context.Context, item *model.Item) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

func (r *mongoItemRepository) FindByID(ctx context.Context, id int64) (*model.Item, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var item model.Item
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, itemserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find item: %w", err)
	}
	return &item, nil
}

func (r *mongoItemRepository) FindByIDs(ctx context.Context, ids []int64) ([]*model.Item, error) {
	if len(ids) == 0 {
		return []*model.Item{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, byID())
}

func (r *mongoItemRepository) FindByOwner(ctx context.Context, ownerID int64, page model.Page) ([]*model.Item, error) {
	return r.find(ctx, bson.M{"owner_id": ownerID}, byID().SetSkip(page.Skip()).SetLimit(page.Limit()))
}

func (r *mongoItemRepository) FindIDsByOwner(ctx context.Context, ownerID int64) ([]int64, error) {
	items, err := r.find(ctx, bson.M{"owner_id": ownerID}, byID().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids, nil
}

// Search matches text case-insensitively inside name or description of
// available items.
func (r *mongoItemRepository) Search(ctx context.Context, text string, page model.Page) ([]*model.Item, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
	filter := bson.M{
		"available": true,
		"$or": bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		},
	}
	return r.find(ctx, filter, byID().SetSkip(page.Skip()).SetLimit(page.Limit()))
}

func (r *mongoItemRepository) FindByRequestIDs(ctx context.Context, requestIDs []int64) ([]*model.Item, error) {
	if len(requestIDs) == 0 {
		return []*model.Item{}, nil
	}
	return r.find(ctx, bson.M{"request_id": bson.M{"$in": requestIDs}}, byID())
}

func (r *mongoItemRepository) Update(ctx context.Context, item *model.Item) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": item.ID},
		bson.M{"$set": bson.M{
			"name":        item.Name,
			"description": item.Description,
			"available":   item.Available,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if result.MatchedCount == 0 {
		return itemserrors.ErrNotFound
	}
	return nil
}

func (r *mongoItemRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if result.DeletedCount == 0 {
		return itemserrors.ErrNotFound
	}
	return nil
}

func (r *mongoItemRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Item, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find items: %w", err)
	}
	defer cursor.Close(ctx)

	items := []*model.Item{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return items, nil
}

func byID() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
}
