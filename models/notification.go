package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Notification types produced by the lifecycle engine
const (
	NotificationTypeConsultOrder = "consultOrder"
	NotificationTypeRating       = "rating"
)

// Notification is a single entry in a user's embedded notification list.
// Delivery beyond this record (websocket, email) is best effort.
type Notification struct {
	ID        string                 `json:"_id" bson:"_id"`
	Recipient string                 `json:"recipient" bson:"recipient"`
	From      string                 `json:"from" bson:"from"`
	Type      string                 `json:"type" bson:"type"`
	Message   string                 `json:"message" bson:"message"`
	Order     string                 `json:"order,omitempty" bson:"order,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
	IsRead    bool                   `json:"isRead" bson:"isRead"`
	CreatedAt primitive.DateTime     `json:"createdAt" bson:"createdAt"`
}
