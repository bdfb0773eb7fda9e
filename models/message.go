package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Message kinds. System kinds are only produced by the lifecycle engine and
// carry a fixed visibility; callers cannot widen it.
const (
	MessageKindUser         = "user"
	MessageKindRejection    = "system_rejection"
	MessageKindRatingPrompt = "system_rating_prompt"
)

// Message types
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

// VisibilityAll marks a message readable by both participants
const VisibilityAll = "all"

// Message holds the structure for the message collection in mongo
type Message struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details MessageDetails     `json:"message" bson:"message"`
	Version int32              `json:"__v" bson:"__v"`
}

// MessageDetails holds the structure for the inner message structure as defined
// in the message collection in mongo. Sender is empty for system messages.
type MessageDetails struct {
	RoomID      string             `json:"roomId" bson:"roomId"`
	Sender      string             `json:"sender" bson:"sender"`
	Content     string             `json:"content" bson:"content"`
	IsSystem    bool               `json:"isSystem" bson:"isSystem"`
	Kind        string             `json:"kind" bson:"kind"`
	VisibleTo   []string           `json:"visibleTo" bson:"visibleTo"`
	MessageType string             `json:"messageType" bson:"messageType"`
	ImageURL    string             `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	ImageName   string             `json:"imageName,omitempty" bson:"imageName,omitempty"`
	CreatedAt   primitive.DateTime `json:"createdAt" bson:"createdAt"`
}

// ValidVisibility reports whether every scope value is drawn from
// {farmer, expert, all} and the set is non-empty.
func ValidVisibility(scopes []string) bool {
	if len(scopes) == 0 {
		return false
	}
	for _, s := range scopes {
		switch s {
		case UserTypeFarmer, UserTypeExpert, VisibilityAll:
		default:
			return false
		}
	}
	return true
}

// VisibilityForKind returns the fixed visibility of a system message kind,
// or nil for user messages (caller supplied).
func VisibilityForKind(kind string) []string {
	switch kind {
	case MessageKindRejection, MessageKindRatingPrompt:
		return []string{UserTypeFarmer}
	}
	return nil
}

// VisibleToRole reports whether a reader with the given user type may see the message
func (m MessageDetails) VisibleToRole(role string) bool {
	for _, s := range m.VisibleTo {
		if s == VisibilityAll || s == role {
			return true
		}
	}
	return false
}

// FarmerOnly reports whether the message is scoped to exactly the farmer role.
// Farmer-only messages never touch the room preview the expert sees.
func (m MessageDetails) FarmerOnly() bool {
	return len(m.VisibleTo) == 1 && m.VisibleTo[0] == UserTypeFarmer
}
