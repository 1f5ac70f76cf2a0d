package repository

import (
	"context"
	"fmt"
	bookingserrors "shareit/internal/bookings/errors"
	"shareit/pkg/config"
	"shareit/pkg/model"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Booking_locks"

// BookingLockRepository provides per-item advisory locks. Acquire returns an
// owner token; Release only removes the lock while that token still owns it.
type BookingLockRepository interface {
	Acquire(ctx context.Context, itemID int64) (string, error)
	Release(ctx context.Context, itemID int64, token string) error
}

type mongoBookingLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewBookingLockRepository(cfg *config.Config) BookingLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

func lockID(itemID int64) string {
	return fmt.Sprintf("item_lock_%d", itemID)
}

// releaseFilter matches the lock only while token owns it, so a lock reaped by
// the TTL index and re-acquired by another request survives a late Release.
func releaseFilter(itemID int64, token string) bson.M {
	return bson.M{"_id": lockID(itemID), "token": token}
}

// Acquire inserts the lock document; a duplicate key means another create
// on the same item is in flight and yields ErrLockHeld.
func (r *mongoBookingLockRepository) Acquire(ctx context.Context, itemID int64) (string, error) {
	now := time.Now().UTC()
	lock := &model.BookingLock{
		ID:        lockID(itemID),
		ItemID:    itemID,
		Token:     uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(r.cfg.BookingLockTTL),
	}

	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", bookingserrors.ErrLockHeld
		}
		return "", fmt.Errorf("failed to acquire booking lock: %w", err)
	}
	return lock.Token, nil
}

func (r *mongoBookingLockRepository) Release(ctx context.Context, itemID int64, token string) error {
	_, err := r.collection.DeleteOne(ctx, releaseFilter(itemID, token))
	return err
}
