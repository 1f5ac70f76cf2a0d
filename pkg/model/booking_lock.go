package model

import "time"

// BookingLock is an advisory lock document keyed by item. A TTL index on
// expires_at removes locks left behind by a crashed process.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	ItemID    int64     `bson:"item_id" json:"item_id"`
	Token     string    `bson:"token" json:"-"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
