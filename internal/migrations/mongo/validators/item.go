package validators

import "go.mongodb.org/mongo-driver/bson"

var ItemValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "name", "description", "available", "owner_id"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},
			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 255,
			},
			"description": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 2000,
			},
			"available": bson.M{
				"bsonType": "bool",
			},
			"owner_id": bson.M{
				"bsonType": "long",
			},
			"request_id": bson.M{
				"bsonType": "long",
			},
		},
	},
}

var CommentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "text", "item_id", "author_id", "created"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":       bson.M{"bsonType": "long"},
			"text":      bson.M{"bsonType": "string", "minLength": 1, "maxLength": 2000},
			"item_id":   bson.M{"bsonType": "long"},
			"author_id": bson.M{"bsonType": "long"},
			"created":   bson.M{"bsonType": "date"},
		},
	},
}
