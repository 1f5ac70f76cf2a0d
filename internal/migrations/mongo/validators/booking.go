package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"start",
			"end",
			"item_id",
			"booker_id",
			"status",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"start": bson.M{
				"bsonType": "date",
			},

			"end": bson.M{
				"bsonType": "date",
			},

			"item_id": bson.M{
				"bsonType": "long",
			},

			"booker_id": bson.M{
				"bsonType": "long",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"WAITING",
					"APPROVED",
					"REJECTED",
					"CANCELED",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var BookingLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "item_id", "token", "expires_at"},
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string"},
			"item_id":    bson.M{"bsonType": "long"},
			"token":      bson.M{"bsonType": "string"},
			"expires_at": bson.M{"bsonType": "date"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}

var BookingGuardValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "version"},
		"properties": bson.M{
			"_id":     bson.M{"bsonType": "long"},
			"version": bson.M{"bsonType": "long"},
		},
	},
}
