package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/agriconnect/agriconnect-api/config"
	"github.com/agriconnect/agriconnect-api/databases"
	"github.com/agriconnect/agriconnect-api/models"
)

// previewMaxLen is the truncation point for the room's last message preview
const previewMaxLen = 30

// Message exported for testing purposes
type Message struct {
	MDB databases.MessageDatabase
	RDB databases.ChatRoomDatabase
	UDB databases.UserDatabase
}

type postMessageRequest struct {
	SenderID    string   `json:"senderId"`
	Content     string   `json:"content"`
	VisibleTo   []string `json:"visibleTo"`
	MessageType string   `json:"messageType"`
	ImageURL    string   `json:"imageUrl"`
	ImageName   string   `json:"imageName"`
}

// PostMessageHandler appends a user message to a room the sender participates
// in, then refreshes the room preview unless the message is scoped to the
// farmer alone
func (m Message) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["room_id"]

	req := postMessageRequest{}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if req.SenderID == "" {
		config.ErrorStatus("senderId is required", http.StatusBadRequest, w, fmt.Errorf("senderId is required"))
		return
	}

	room, err := m.findRoom(roomID)
	if err != nil {
		config.ErrorStatus("chat room not found", http.StatusNotFound, w, err)
		return
	}
	if !room.HasParticipant(req.SenderID) {
		config.ErrorStatus("not authorized", http.StatusForbidden, w, fmt.Errorf("sender is not a participant"))
		return
	}

	visibleTo := req.VisibleTo
	if len(visibleTo) == 0 {
		visibleTo = []string{models.VisibilityAll}
	}
	if !models.ValidVisibility(visibleTo) {
		config.ErrorStatus("invalid visibility scope", http.StatusBadRequest, w,
			fmt.Errorf("visibleTo values must be drawn from {farmer, expert, all}"))
		return
	}

	messageType := req.MessageType
	if messageType == "" {
		messageType = models.MessageTypeText
	}
	if messageType != models.MessageTypeText && messageType != models.MessageTypeImage {
		config.ErrorStatus("invalid message type", http.StatusBadRequest, w,
			fmt.Errorf("messageType must be text or image"))
		return
	}

	message := models.Message{
		ID: primitive.NewObjectID(),
		Details: models.MessageDetails{
			RoomID:      roomID,
			Sender:      req.SenderID,
			Content:     req.Content,
			IsSystem:    false,
			Kind:        models.MessageKindUser,
			VisibleTo:   visibleTo,
			MessageType: messageType,
			ImageURL:    req.ImageURL,
			ImageName:   req.ImageName,
			CreatedAt:   primitive.NewDateTimeFromTime(time.Now()),
		},
	}

	_, err = m.MDB.InsertOne(context.Background(), message)
	if err != nil {
		config.ErrorStatus("failed to create message", http.StatusInternalServerError, w, err)
		return
	}

	if !message.Details.FarmerOnly() {
		m.updatePreview(room.ID, previewFor(message.Details))
	}

	b, err := json.Marshal(message)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// ListMessagesHandler returns the room transcript visible to the viewer's
// role, ascending by creation time, each message annotated with isMine
func (m Message) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["room_id"]
	viewerID := r.URL.Query().Get("viewerId")

	if viewerID == "" {
		config.ErrorStatus("viewerId is required", http.StatusBadRequest, w, fmt.Errorf("viewerId is required"))
		return
	}

	room, err := m.findRoom(roomID)
	if err != nil {
		config.ErrorStatus("chat room not found", http.StatusNotFound, w, err)
		return
	}
	if !room.HasParticipant(viewerID) {
		config.ErrorStatus("not authorized", http.StatusForbidden, w, fmt.Errorf("viewer is not a participant"))
		return
	}

	vID, err := primitive.ObjectIDFromHex(viewerID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	viewer, err := m.UDB.FindOne(context.Background(), bson.M{"_id": vID})
	if err != nil {
		config.ErrorStatus("user not found", http.StatusNotFound, w, err)
		return
	}

	filter := bson.M{
		"message.roomId":    roomID,
		"message.visibleTo": bson.M{"$in": []string{models.VisibilityAll, viewer.Details.UserType}},
	}

	var messages []models.Message
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit > 0 {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		messages, err = m.MDB.FindPaginated(context.Background(), filter, limit, page)
	} else {
		messages, err = m.MDB.Find(context.Background(), filter,
			options.Find().SetSort(bson.M{"message.createdAt": 1}))
	}
	if err != nil {
		config.ErrorStatus("failed to list messages", http.StatusInternalServerError, w, err)
		return
	}

	annotated := make([]map[string]interface{}, 0, len(messages))
	for _, msg := range messages {
		annotated = append(annotated, map[string]interface{}{
			"message": msg,
			"isMine":  msg.Details.Sender == viewerID,
		})
	}

	b, err := json.Marshal(annotated)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DeleteMessageHandler removes a message when the caller is its original
// sender, then recomputes the room preview from what remains
func (m Message) DeleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	roomID := vars["room_id"]
	messageID := vars["message_id"]
	userID := r.URL.Query().Get("userId")

	if userID == "" {
		config.ErrorStatus("userId is required", http.StatusBadRequest, w, fmt.Errorf("userId is required"))
		return
	}

	room, err := m.findRoom(roomID)
	if err != nil {
		config.ErrorStatus("chat room not found", http.StatusNotFound, w, err)
		return
	}

	mID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	message, err := m.MDB.FindOne(context.Background(), bson.M{"_id": mID, "message.roomId": roomID})
	if err != nil {
		config.ErrorStatus("message not found", http.StatusNotFound, w, err)
		return
	}
	if message.Details.Sender != userID {
		config.ErrorStatus("not authorized", http.StatusForbidden, w, fmt.Errorf("only the sender may delete a message"))
		return
	}

	err = m.MDB.DeleteOne(context.Background(), bson.M{"_id": mID})
	if err != nil {
		config.ErrorStatus("failed to delete message", http.StatusInternalServerError, w, err)
		return
	}

	// Farmer-only messages never feed the preview, so the recompute scans the
	// remaining messages visible beyond the farmer scope
	preview := models.NoMessagesPreview
	remaining, err := m.MDB.Find(context.Background(), bson.M{
		"message.roomId":    roomID,
		"message.visibleTo": bson.M{"$in": []string{models.VisibilityAll, models.UserTypeExpert}},
	}, options.Find().SetSort(bson.M{"message.createdAt": -1}).SetLimit(1))
	if err != nil {
		zap.S().Warnw("failed to recompute room preview", "roomId", roomID, "error", err)
	} else if len(remaining) > 0 {
		preview = previewFor(remaining[0].Details)
	}
	m.updatePreview(room.ID, preview)

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "message deleted successfully"}`))
}

// InsertSystemMessage appends a lifecycle-engine message to a room. The kind
// fixes the visibility; callers cannot widen it.
func (m Message) InsertSystemMessage(ctx context.Context, room models.ChatRoom, kind, content string) error {
	visibleTo := models.VisibilityForKind(kind)
	if visibleTo == nil {
		return fmt.Errorf("unknown system message kind %q", kind)
	}

	message := models.Message{
		ID: primitive.NewObjectID(),
		Details: models.MessageDetails{
			RoomID:      room.ID.Hex(),
			Sender:      "",
			Content:     content,
			IsSystem:    true,
			Kind:        kind,
			VisibleTo:   visibleTo,
			MessageType: models.MessageTypeText,
			CreatedAt:   primitive.NewDateTimeFromTime(time.Now()),
		},
	}

	_, err := m.MDB.InsertOne(ctx, message)
	if err != nil {
		return err
	}

	if !message.Details.FarmerOnly() {
		m.updatePreview(room.ID, previewFor(message.Details))
	}
	return nil
}

func (m Message) findRoom(roomID string) (*models.ChatRoom, error) {
	rID, err := primitive.ObjectIDFromHex(roomID)
	if err != nil {
		return nil, err
	}
	return m.RDB.FindOne(context.Background(), bson.M{"_id": rID})
}

func (m Message) updatePreview(roomID primitive.ObjectID, preview string) {
	_, err := m.RDB.UpdateOne(context.Background(), bson.M{"_id": roomID}, bson.M{"$set": bson.M{
		"chatRoom.lastMessagePreview": preview,
		"chatRoom.updatedAt":          primitive.NewDateTimeFromTime(time.Now()),
	}})
	if err != nil {
		zap.S().Warnw("failed to update room preview", "roomId", roomID.Hex(), "error", err)
	}
}

// previewFor derives the room preview line from a message
func previewFor(details models.MessageDetails) string {
	content := details.Content
	if details.MessageType == models.MessageTypeImage && content == "" {
		content = "Image"
	}
	return truncatePreview(content)
}

func truncatePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewMaxLen {
		return content
	}
	return string(runes[:previewMaxLen]) + "..."
}
