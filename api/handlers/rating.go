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
	"go.uber.org/zap"

	"github.com/agriconnect/agriconnect-api/config"
	"github.com/agriconnect/agriconnect-api/databases"
	"github.com/agriconnect/agriconnect-api/models"
)

// ratingFeedbackPreviewLen bounds how much feedback text lands in the
// notification line
const ratingFeedbackPreviewLen = 50

// Rating exported for testing purposes
type Rating struct {
	DB       databases.RatingDatabase
	RDB      databases.ChatRoomDatabase
	ODB      databases.ConsultOrderDatabase
	UDB      databases.UserDatabase
	Notifier Notifier
}

type rateExpertRequest struct {
	FarmerID string `json:"farmerId"`
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// RateExpertHandler records the farmer's one-time rating of a completed
// consultation and rewrites the expert's aggregate from the full ratings
// collection. The unique index on (farmer, expert, consultOrder) is the
// authoritative duplicate guard; the pre-check here is advisory.
func (rt Rating) RateExpertHandler(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["room_id"]

	req := rateExpertRequest{}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if req.FarmerID == "" {
		config.ErrorStatus("farmerId is required", http.StatusBadRequest, w, fmt.Errorf("farmerId is required"))
		return
	}
	if !models.ValidRating(req.Rating) {
		config.ErrorStatus("rating must be between 1 and 5", http.StatusBadRequest, w,
			fmt.Errorf("rating %d out of range", req.Rating))
		return
	}

	rID, err := primitive.ObjectIDFromHex(roomID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	room, err := rt.RDB.FindOne(context.Background(), bson.M{"_id": rID})
	if err != nil {
		config.ErrorStatus("chat room not found", http.StatusNotFound, w, err)
		return
	}
	if !room.HasParticipant(req.FarmerID) {
		config.ErrorStatus("not authorized", http.StatusForbidden, w,
			fmt.Errorf("acting user is not a participant"))
		return
	}

	fID, err := primitive.ObjectIDFromHex(req.FarmerID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	farmer, err := rt.UDB.FindOne(context.Background(), bson.M{"_id": fID})
	if err != nil {
		config.ErrorStatus("user not found", http.StatusNotFound, w, err)
		return
	}
	if !farmer.IsFarmer() {
		config.ErrorStatus("not authorized", http.StatusForbidden, w,
			fmt.Errorf("only farmers may rate"))
		return
	}

	expertHex := room.OtherParticipant(req.FarmerID)
	eID, err := primitive.ObjectIDFromHex(expertHex)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	expert, err := rt.UDB.FindOne(context.Background(), bson.M{"_id": eID})
	if err != nil {
		config.ErrorStatus("user not found", http.StatusNotFound, w, err)
		return
	}
	if !expert.IsExpert() {
		config.ErrorStatus("counterpart is not an expert", http.StatusBadRequest, w,
			fmt.Errorf("counterpart has wrong user type"))
		return
	}

	order, err := rt.latestCompletedOrder(context.Background(), req.FarmerID, expertHex)
	if err != nil {
		config.ErrorStatus("failed to fetch consultation orders", http.StatusInternalServerError, w, err)
		return
	}
	if order == nil {
		config.ErrorStatus("no completed consultation", http.StatusBadRequest, w,
			fmt.Errorf("no completed consultation between the pair"))
		return
	}

	// Advisory pre-check; the unique index settles races
	count, err := rt.DB.CountDocuments(context.Background(), bson.M{
		"rating.farmer":       req.FarmerID,
		"rating.expert":       expertHex,
		"rating.consultOrder": order.ID.Hex(),
	})
	if err != nil {
		config.ErrorStatus("failed to check existing rating", http.StatusInternalServerError, w, err)
		return
	}
	if count > 0 {
		config.ErrorStatus("already rated", http.StatusBadRequest, w,
			fmt.Errorf("consultation has already been rated"))
		return
	}

	rating := models.Rating{
		ID: primitive.NewObjectID(),
		Details: models.RatingDetails{
			Farmer:       req.FarmerID,
			Expert:       expertHex,
			RoomID:       roomID,
			ConsultOrder: order.ID.Hex(),
			Rating:       req.Rating,
			Feedback:     req.Feedback,
			CreatedAt:    primitive.NewDateTimeFromTime(time.Now()),
		},
	}

	_, err = rt.DB.InsertOne(context.Background(), rating)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			config.ErrorStatus("already rated", http.StatusBadRequest, w,
				fmt.Errorf("consultation has already been rated"))
			return
		}
		config.ErrorStatus("failed to create rating", http.StatusInternalServerError, w, err)
		return
	}

	// Full recompute from the ratings collection. Self-healing: a stale
	// aggregate from an earlier partial failure is corrected here.
	average, total, err := rt.recomputeAggregate(context.Background(), expertHex, eID)
	if err != nil {
		zap.S().Errorw("failed to recompute expert aggregate",
			"expert", expertHex, "error", err)
	}

	_, err = rt.RDB.UpdateOne(context.Background(), bson.M{"_id": rID}, bson.M{"$set": bson.M{
		"chatRoom.isRated":   true,
		"chatRoom.updatedAt": primitive.NewDateTimeFromTime(time.Now()),
	}})
	if err != nil {
		zap.S().Errorw("failed to flag room as rated", "roomId", roomID, "error", err)
	}

	rt.Notifier.Notify(context.Background(), models.Notification{
		Recipient: expertHex,
		From:      req.FarmerID,
		Type:      models.NotificationTypeRating,
		Message:   ratingNotificationMessage(farmer.Details.Name, req.Rating, req.Feedback),
		Order:     order.ID.Hex(),
	})

	b, err := json.Marshal(map[string]interface{}{
		"message":       "rating submitted successfully",
		"rating":        rating,
		"averageRating": average,
		"totalReviews":  total,
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// latestCompletedOrder mirrors the listing policy: the newest order for the
// pair must itself be the completed one
func (rt Rating) latestCompletedOrder(ctx context.Context, farmerID, expertID string) (*models.ConsultOrder, error) {
	helper := ConsultOrder{ODB: rt.ODB}
	return helper.latestCompletedForPair(ctx, farmerID, expertID)
}

// recomputeAggregate rewrites the expert's denormalized rating fields from an
// authoritative scan of the ratings collection
func (rt Rating) recomputeAggregate(ctx context.Context, expertHex string, expertID primitive.ObjectID) (float64, int, error) {
	ratings, err := rt.DB.Find(ctx, bson.M{"rating.expert": expertHex})
	if err != nil {
		return 0, 0, err
	}

	total := len(ratings)
	sum := 0
	for _, rating := range ratings {
		sum += rating.Details.Rating
	}
	average := float64(0)
	if total > 0 {
		average = float64(sum) / float64(total)
	}

	_, err = rt.UDB.UpdateOne(ctx, bson.M{"_id": expertID}, bson.M{"$set": bson.M{
		"user.expertDetails.averageRating": average,
		"user.expertDetails.totalReviews":  total,
		"user.expertDetails.ratingsCount":  total,
	}})
	if err != nil {
		return average, total, err
	}
	return average, total, nil
}

func ratingNotificationMessage(farmerName string, stars int, feedback string) string {
	msg := fmt.Sprintf("%s rated your consultation %d/5", farmerName, stars)
	if feedback != "" {
		runes := []rune(feedback)
		if len(runes) > ratingFeedbackPreviewLen {
			feedback = string(runes[:ratingFeedbackPreviewLen]) + "..."
		}
		msg += fmt.Sprintf(": %q", feedback)
	}
	return msg
}
