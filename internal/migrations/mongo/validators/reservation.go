package validators

import "go.mongodb.org/mongo-driver/bson"

var ReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"provider_id",
			"client_id",
			"service_id",
			"start_time",
			"duration_min",
			"effective_start",
			"effective_end",
			"status",
			"version",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"provider_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"client_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"service_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"duration_min": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  480,
			},

			"buffer_before_min": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  120,
			},

			"buffer_after_min": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  120,
			},

			"effective_start": bson.M{
				"bsonType": "date",
			},

			"effective_end": bson.M{
				"bsonType": "date",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"scheduled",
					"completed",
					"cancelled",
					"no_show",
				},
			},

			"version": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"notes": bson.M{
				"bsonType":  "string",
				"maxLength": 2000,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
