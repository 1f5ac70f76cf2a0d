package repository

import (
	"context"
	"fmt"
	"shareit/pkg/config"
	mongotx "shareit/pkg/db/mongo"
	"shareit/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CommentCollectionName = "Comments"
	CommentSequenceName   = "comments"
)

type CommentRepository interface {
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, comment *model.Comment) error
	FindByItemIDs(ctx context.Context, itemIDs []int64) ([]*model.Comment, error)
}

type mongoCommentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	sequence   mongotx.SequenceGenerator
}

func NewMongoCommentRepository(cfg *config.Config) CommentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCommentRepository{
		cfg:        cfg,
		collection: db.Collection(CommentCollectionName),
		sequence:   mongotx.NewSequenceGenerator(db),
	}
}

func (r *mongoCommentRepository) NextID(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()
	return r.sequence.Next(ctx, CommentSequenceName)
}

func (r *mongoCommentRepository) Create(ctx context.Context, comment *model.Comment) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, comment); err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// FindByItemIDs returns comments newest first.
func (r *mongoCommentRepository) FindByItemIDs(ctx context.Context, itemIDs []int64) ([]*model.Comment, error) {
	if len(itemIDs) == 0 {
		return []*model.Comment{}, nil
	}
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"item_id": bson.M{"$in": itemIDs}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find comments: %w", err)
	}
	defer cursor.Close(ctx)

	comments := []*model.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("failed to decode comments: %w", err)
	}
	return comments, nil
}
