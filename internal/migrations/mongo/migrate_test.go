package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestCollections_CoverEveryStore(t *testing.T) {
	names := map[string]Collection{}
	for _, c := range Collections() {
		require.NotContains(t, names, c.Name, "duplicate collection %s", c.Name)
		require.NotNil(t, c.Validator, c.Name)
		names[c.Name] = c
	}

	for _, want := range []string{"Users", "Items", "Comments", "Bookings", "Booking_locks", "Booking_guards", "Requests", "Counters"} {
		assert.Contains(t, names, want)
	}
}

func TestIndexes(t *testing.T) {
	require.Len(t, UsersIndexes, 1)
	assert.True(t, *UsersIndexes[0].Options.Unique, "email must be unique")

	require.Len(t, BookingLocksIndexes, 1)
	require.NotNil(t, BookingLocksIndexes[0].Options.ExpireAfterSeconds)
	assert.EqualValues(t, 0, *BookingLocksIndexes[0].Options.ExpireAfterSeconds)

	assert.Equal(t, bson.D{{Key: "item_id", Value: 1}, {Key: "start", Value: 1}}, BookingsIndexes[0].Keys)
}

func TestBookingValidator_StatusEnum(t *testing.T) {
	schema := Collections()[3].Validator["$jsonSchema"].(bson.M)
	status := schema["properties"].(bson.M)["status"].(bson.M)
	assert.ElementsMatch(t, []string{"WAITING", "APPROVED", "REJECTED", "CANCELED"}, status["enum"])
}
