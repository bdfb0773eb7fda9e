package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Rating bounds
const (
	MinRating = 1
	MaxRating = 5
)

// Rating holds the structure for the rating collection in mongo. A unique index
// on (rating.farmer, rating.expert, rating.consultOrder) is the authoritative
// guard against duplicate submissions.
type Rating struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details RatingDetails      `json:"rating" bson:"rating"`
	Version int32              `json:"__v" bson:"__v"`
}

// RatingDetails holds the structure for the inner rating structure as defined
// in the rating collection in mongo
type RatingDetails struct {
	Farmer       string             `json:"farmer" bson:"farmer"`
	Expert       string             `json:"expert" bson:"expert"`
	RoomID       string             `json:"roomId" bson:"roomId"`
	ConsultOrder string             `json:"consultOrder" bson:"consultOrder"`
	Rating       int                `json:"rating" bson:"rating"`
	Feedback     string             `json:"feedback" bson:"feedback"`
	CreatedAt    primitive.DateTime `json:"createdAt" bson:"createdAt"`
}

// ValidRating reports whether the star value is inside the 1-5 range
func ValidRating(value int) bool {
	return value >= MinRating && value <= MaxRating
}
