package validators

import "go.mongodb.org/mongo-driver/bson"

var IdempotencyValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"key",
			"operation_type",
			"fingerprint",
			"result_id",
			"expires_at",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"key": bson.M{
				"bsonType":  "string",
				"minLength": 8,
				"maxLength": 128,
			},

			"operation_type": bson.M{
				"bsonType": "string",
				"enum": []string{
					"create_reservation",
					"update_reservation",
				},
			},

			"fingerprint": bson.M{
				"bsonType":  "string",
				"minLength": 64,
				"maxLength": 64,
			},

			"result_id": bson.M{
				"bsonType": "string",
			},

			"expires_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
