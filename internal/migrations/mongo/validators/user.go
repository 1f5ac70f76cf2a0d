package validators

import "go.mongodb.org/mongo-driver/bson"

var UserValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "name", "email"},
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
			"email": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 512,
			},
		},
	},
}
