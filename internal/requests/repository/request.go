package repository

import (
	"context"
	"errors"
	"fmt"
	requestserrors "shareit/internal/requests/errors"
	"shareit/pkg/config"
	mongotx "shareit/pkg/db/mongo"
	"shareit/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Requests"
	SequenceName   = "requests"
)

type RequestRepository interface {
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, request *model.Request) error
	FindByID(ctx context.Context, id int64) (*model.Request, error)
	FindByRequestor(ctx context.Context, requestorID int64) ([]*model.Request, error)
	FindOthers(ctx context.Context, userID int64, page model.Page) ([]*model.Request, error)
}

type mongoRequestRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	sequence   mongotx.SequenceGenerator
}

func NewMongoRequestRepository(cfg *config.Config) RequestRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRequestRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		sequence:   mongotx.NewSequenceGenerator(db),
	}
}

func (r *mongoRequestRepository) NextID(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()
	return r.sequence.Next(ctx, SequenceName)
}

func (r *mongoRequestRepository) Create(ctx context.Context, request *model.Request) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, request); err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

func (r *mongoRequestRepository) FindByID(ctx context.Context, id int64) (*model.Request, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var request model.Request
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&request); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, requestserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find request: %w", err)
	}
	return &request, nil
}

func (r *mongoRequestRepository) FindByRequestor(ctx context.Context, requestorID int64) ([]*model.Request, error) {
	return r.find(ctx, bson.M{"requestor_id": requestorID}, newestFirst())
}

func (r *mongoRequestRepository) FindOthers(ctx context.Context, userID int64, page model.Page) ([]*model.Request, error) {
	return r.find(ctx,
		bson.M{"requestor_id": bson.M{"$ne": userID}},
		newestFirst().SetSkip(page.Skip()).SetLimit(page.Limit()),
	)
}

func (r *mongoRequestRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Request, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find requests: %w", err)
	}
	defer cursor.Close(ctx)

	requests := []*model.Request{}
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode requests: %w", err)
	}
	return requests, nil
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created", Value: -1}, {Key: "_id", Value: -1}})
}
