package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// NoMessagesPreview is the room preview shown once every message has been deleted
const NoMessagesPreview = "No messages"

// NewConversationPreview is the room preview set at creation time
const NewConversationPreview = "New conversation"

// ChatRoom holds the structure for the chatroom collection in mongo
type ChatRoom struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details ChatRoomDetails    `json:"chatRoom" bson:"chatRoom"`
	Version int32              `json:"__v" bson:"__v"`
}

// ChatRoomDetails holds the structure for the inner chatroom structure as defined
// in the chatroom collection in mongo. UserA/UserB are stored in canonical order
// (lexicographically smaller id first) so the unique index on the pair holds for
// either initiator.
type ChatRoomDetails struct {
	UserA              string             `json:"userA" bson:"userA"`
	UserB              string             `json:"userB" bson:"userB"`
	LastMessagePreview string             `json:"lastMessagePreview" bson:"lastMessagePreview"`
	IsRated            bool               `json:"isRated" bson:"isRated"`
	CreatedAt          primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt          primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// CanonicalPair orders two participant ids so that the same unordered pair always
// maps to the same (userA, userB) storage order.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// HasParticipant reports whether the given user id belongs to the room
func (c ChatRoom) HasParticipant(userID string) bool {
	return c.Details.UserA == userID || c.Details.UserB == userID
}

// OtherParticipant returns the id of the participant other than the given user
func (c ChatRoom) OtherParticipant(userID string) string {
	if c.Details.UserA == userID {
		return c.Details.UserB
	}
	return c.Details.UserA
}
