package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Consultation order statuses. Transitions are expert-initiated and
// unidirectional; rejected and completed are terminal.
const (
	OrderStatusPending   = "pending"
	OrderStatusAccepted  = "accepted"
	OrderStatusRejected  = "rejected"
	OrderStatusCompleted = "completed"
)

// ConsultOrder holds the structure for the consultorder collection in mongo
type ConsultOrder struct {
	ID      primitive.ObjectID  `json:"_id" bson:"_id"`
	Details ConsultOrderDetails `json:"consultOrder" bson:"consultOrder"`
	Version int32               `json:"__v" bson:"__v"`
}

// ConsultOrderDetails holds the structure for the inner consultorder structure
// as defined in the consultorder collection in mongo
type ConsultOrderDetails struct {
	Farmer    string             `json:"farmer" bson:"farmer"`
	Expert    string             `json:"expert" bson:"expert"`
	Problem   string             `json:"problem" bson:"problem"`
	Status    string             `json:"status" bson:"status"`
	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// ValidOrderStatus reports whether the value belongs to the closed status enum
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusRejected, OrderStatusCompleted:
		return true
	}
	return false
}

// ValidOrderTransition reports whether a status change is legal:
// pending -> accepted|rejected, accepted -> completed.
func ValidOrderTransition(from, to string) bool {
	switch from {
	case OrderStatusPending:
		return to == OrderStatusAccepted || to == OrderStatusRejected
	case OrderStatusAccepted:
		return to == OrderStatusCompleted
	}
	return false
}

// Terminal reports whether the order can never transition again
func (c ConsultOrder) Terminal() bool {
	return c.Details.Status == OrderStatusRejected || c.Details.Status == OrderStatusCompleted
}
