package repository

import (
	"context"
	"errors"
	"fmt"
	bookingserrors "shareit/internal/bookings/errors"
	"shareit/internal/bookings/query"
	"shareit/pkg/config"
	mongotx "shareit/pkg/db/mongo"
	"shareit/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName      = "Bookings"
	GuardCollectionName = "Booking_guards"
	SequenceName        = "bookings"
)

type BookingRepository interface {
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id int64) (*model.Booking, error)
	FindOverlapping(ctx context.Context, itemID int64, start, end time.Time) ([]*model.Booking, error)
	FindByBooker(ctx context.Context, bookerID int64, filter query.Filter, page model.Page) ([]*model.Booking, error)
	FindByItems(ctx context.Context, itemIDs []int64, filter query.Filter, page model.Page) ([]*model.Booking, error)
	FindActiveByItems(ctx context.Context, itemIDs []int64) ([]*model.Booking, error)
	ExistsCompleted(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus) (*model.Booking, error)
	GuardItem(ctx context.Context, itemID int64) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	guards     *mongo.Collection
	sequence   mongotx.SequenceGenerator
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		guards:     db.Collection(GuardCollectionName),
		sequence:   mongotx.NewSequenceGenerator(db),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// Create expects booking.ID to come from NextID.
func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if booking.ID == 0 {
		return fmt.Errorf("failed to create booking: id not allocated")
	}
	booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.collection.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// NextID reserves the next booking id. Call it before opening a transaction.
func (r *mongoBookingRepository) NextID(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()
	return r.sequence.Next(ctx, SequenceName)
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id int64) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

// FindOverlapping returns non rejected bookings of the item whose half open
// interval intersects [start, end).
func (r *mongoBookingRepository) FindOverlapping(ctx context.Context, itemID int64, start, end time.Time) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.find(ctx, overlapFilter(itemID, start, end), options.Find().SetSort(bson.D{{Key: "start", Value: 1}}))
}

// GuardItem bumps the item's guard document. Called inside a transaction
// before the overlap read, it makes two creates on the same item write to
// the same document, so one of them aborts with a write conflict and is
// retried against the other's committed booking.
func (r *mongoBookingRepository) GuardItem(ctx context.Context, itemID int64) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.guards.UpdateOne(ctx, bson.M{"_id": itemID}, guardUpdate(), options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to guard item %d: %w", itemID, err)
	}
	return nil
}

func (r *mongoBookingRepository) FindByBooker(ctx context.Context, bookerID int64, filter query.Filter, page model.Page) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	f := stateFilter(filter)
	f["booker_id"] = bookerID
	return r.find(ctx, f, pagedNewestFirst(page))
}

func (r *mongoBookingRepository) FindByItems(ctx context.Context, itemIDs []int64, filter query.Filter, page model.Page) ([]*model.Booking, error) {
	if len(itemIDs) == 0 {
		return []*model.Booking{}, nil
	}
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	f := stateFilter(filter)
	f["item_id"] = bson.M{"$in": itemIDs}
	return r.find(ctx, f, pagedNewestFirst(page))
}

// FindActiveByItems loads every non rejected booking of the given items for
// the availability projection.
func (r *mongoBookingRepository) FindActiveByItems(ctx context.Context, itemIDs []int64) ([]*model.Booking, error) {
	if len(itemIDs) == 0 {
		return []*model.Booking{}, nil
	}
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"item_id": bson.M{"$in": itemIDs},
		"status":  bson.M{"$ne": model.StatusRejected},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "item_id", Value: 1}, {Key: "start", Value: 1}}))
}

// ExistsCompleted reports an approved booking of the item that ended before now.
func (r *mongoBookingRepository) ExistsCompleted(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{
		"booker_id": bookerID,
		"item_id":   itemID,
		"status":    model.StatusApproved,
		"end":       bson.M{"$lt": now},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check completed bookings: %w", err)
	}
	return count > 0, nil
}

// UpdateStatus moves a booking to `to` only while its status is one of
// `from`. ErrStatusChanged means the guard failed.
func (r *mongoBookingRepository) UpdateStatus(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var booking model.Booking
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": from}},
		bson.M{"$set": bson.M{"status": to}},
		opts,
	).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrStatusChanged
		}
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func pagedNewestFirst(page model.Page) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "start", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(page.Limit())
}

func overlapFilter(itemID int64, start, end time.Time) bson.M {
	return bson.M{
		"item_id": itemID,
		"status":  bson.M{"$ne": model.StatusRejected},
		"start":   bson.M{"$lt": end},
		"end":     bson.M{"$gt": start},
	}
}

func guardUpdate() bson.M {
	return bson.M{"$inc": bson.M{"version": int64(1)}}
}

// stateFilter compiles query.Filter to the same predicate Matches applies.
func stateFilter(f query.Filter) bson.M {
	switch f.State {
	case query.StateCurrent:
		return bson.M{"start": bson.M{"$lte": f.Now}, "end": bson.M{"$gt": f.Now}}
	case query.StatePast:
		return bson.M{"end": bson.M{"$lt": f.Now}}
	case query.StateFuture:
		return bson.M{"start": bson.M{"$gt": f.Now}}
	case query.StateWaiting:
		return bson.M{"status": model.StatusWaiting}
	case query.StateRejected:
		return bson.M{"status": model.StatusRejected}
	default:
		return bson.M{}
	}
}
