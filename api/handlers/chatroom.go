package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/agriconnect/agriconnect-api/config"
	"github.com/agriconnect/agriconnect-api/databases"
	"github.com/agriconnect/agriconnect-api/models"
)

// ChatRoom exported for testing purposes
type ChatRoom struct {
	DB  databases.ChatRoomDatabase
	MDB databases.MessageDatabase
	UDB databases.UserDatabase
}

type createRoomRequest struct {
	UserID   string `json:"userId"`
	ExpertID string `json:"expertId"`
	FarmerID string `json:"farmerId"`
}

// GetOrCreateRoomHandler returns the room for an unordered farmer/expert pair,
// creating it on first contact. Repeated calls from either side return the
// same room.
func (c ChatRoom) GetOrCreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	req := createRoomRequest{}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if req.UserID == "" {
		config.ErrorStatus("userId is required", http.StatusBadRequest, w, fmt.Errorf("userId is required"))
		return
	}

	uID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	initiator, err := c.UDB.FindOne(context.Background(), bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("user not found", http.StatusNotFound, w, err)
		return
	}

	// The counterpart id field is chosen by the initiator's role
	var counterpartHex string
	switch {
	case initiator.IsFarmer():
		counterpartHex = req.ExpertID
	case initiator.IsExpert():
		counterpartHex = req.FarmerID
	}
	if counterpartHex == "" {
		config.ErrorStatus("counterpart id is required", http.StatusBadRequest, w,
			fmt.Errorf("no counterpart id resolvable for user type %q", initiator.Details.UserType))
		return
	}

	cID, err := primitive.ObjectIDFromHex(counterpartHex)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	counterpart, err := c.UDB.FindOne(context.Background(), bson.M{"_id": cID})
	if err != nil {
		config.ErrorStatus("counterpart not found", http.StatusNotFound, w, err)
		return
	}
	if counterpart.Details.UserType != initiator.CounterpartType() {
		config.ErrorStatus("counterpart not found", http.StatusNotFound, w,
			fmt.Errorf("counterpart has wrong user type"))
		return
	}

	userA, userB := models.CanonicalPair(req.UserID, counterpartHex)
	pairFilter := bson.M{"chatRoom.userA": userA, "chatRoom.userB": userB}

	room, err := c.DB.FindOne(context.Background(), pairFilter)
	if err == nil {
		writeRoomResponse(w, http.StatusOK, "room found", *room)
		return
	}
	if err != mongo.ErrNoDocuments {
		config.ErrorStatus("failed to look up chat room", http.StatusInternalServerError, w, err)
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	newRoom := models.ChatRoom{
		ID: primitive.NewObjectID(),
		Details: models.ChatRoomDetails{
			UserA:              userA,
			UserB:              userB,
			LastMessagePreview: models.NewConversationPreview,
			IsRated:            false,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
	}

	_, err = c.DB.InsertOne(context.Background(), newRoom)
	if err != nil {
		// A racing create from the other side hit the unique pair index first;
		// the stored room is the winner
		if mongo.IsDuplicateKeyError(err) {
			existing, ferr := c.DB.FindOne(context.Background(), pairFilter)
			if ferr == nil {
				writeRoomResponse(w, http.StatusOK, "room found", *existing)
				return
			}
		}
		config.ErrorStatus("failed to create chat room", http.StatusInternalServerError, w, err)
		return
	}

	writeRoomResponse(w, http.StatusCreated, "room created", newRoom)
}

func writeRoomResponse(w http.ResponseWriter, status int, message string, room models.ChatRoom) {
	b, err := json.Marshal(map[string]interface{}{
		"message": message,
		"room":    room,
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(status)
	w.Write(b)
}

// ListRoomsHandler returns every room the user participates in, each annotated
// with the counterpart and the last message visible to the requesting role.
// The raw stored preview is not enough here: visibility is per viewer.
func (c ChatRoom) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	zap.S().Debugf("user_id: %v", userID)

	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	user, err := c.UDB.FindOne(context.Background(), bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("user not found", http.StatusNotFound, w, err)
		return
	}

	rooms, err := c.DB.Find(context.Background(), bson.M{"$or": []bson.M{
		{"chatRoom.userA": userID},
		{"chatRoom.userB": userID},
	}})
	if err != nil {
		config.ErrorStatus("failed to list chat rooms", http.StatusInternalServerError, w, err)
		return
	}

	annotated := make([]map[string]interface{}, 0, len(rooms))
	for _, room := range rooms {
		entry := map[string]interface{}{
			"room":        room,
			"lastMessage": c.lastVisibleMessage(room.ID.Hex(), user.Details.UserType),
		}

		otherHex := room.OtherParticipant(userID)
		if oID, oerr := primitive.ObjectIDFromHex(otherHex); oerr == nil {
			if other, oerr := c.UDB.FindOne(context.Background(), bson.M{"_id": oID}); oerr == nil {
				entry["counterpart"] = map[string]interface{}{
					"_id":            other.ID.Hex(),
					"name":           other.Details.Name,
					"userType":       other.Details.UserType,
					"profilePicture": other.Details.ProfilePicture,
				}
			}
		}

		annotated = append(annotated, entry)
	}

	b, err := json.Marshal(annotated)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// lastVisibleMessage returns the newest message in the room readable by the
// given role, or nil when the role has no visible messages
func (c ChatRoom) lastVisibleMessage(roomID, role string) *models.Message {
	opts := options.Find().
		SetSort(bson.M{"message.createdAt": -1}).
		SetLimit(1)
	messages, err := c.MDB.Find(context.Background(), bson.M{
		"message.roomId":    roomID,
		"message.visibleTo": bson.M{"$in": []string{models.VisibilityAll, role}},
	}, opts)
	if err != nil || len(messages) == 0 {
		return nil
	}
	return &messages[0]
}
