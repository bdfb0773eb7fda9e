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
	templates "github.com/agriconnect/agriconnect-api/templates/html"
)

// Localized system message bodies surfaced inside the farmer's transcript
const (
	rejectionMessageText    = "عذراً، قام الخبير برفض طلب الاستشارة الخاص بك"
	ratingPromptMessageText = "تمت الاستشارة بنجاح، يرجى تقييم الخبير"
)

// ConsultOrder exported for testing purposes
type ConsultOrder struct {
	ODB      databases.ConsultOrderDatabase
	RatDB    databases.RatingDatabase
	UDB      databases.UserDatabase
	Msg      Message
	Notifier Notifier
}

type createOrderRequest struct {
	FarmerID string `json:"farmerId"`
	ExpertID string `json:"expertId"`
	Problem  string `json:"problem"`
}

// CreateOrderHandler creates a pending consultation order and notifies the
// expert
func (c ConsultOrder) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	req := createOrderRequest{}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if req.Problem == "" || req.ExpertID == "" || req.FarmerID == "" {
		config.ErrorStatus("farmerId, expertId and problem are required", http.StatusBadRequest, w,
			fmt.Errorf("missing required field"))
		return
	}

	fID, err := primitive.ObjectIDFromHex(req.FarmerID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	farmer, err := c.UDB.FindOne(context.Background(), bson.M{"_id": fID})
	if err != nil {
		config.ErrorStatus("user not found", http.StatusNotFound, w, err)
		return
	}
	if !farmer.IsFarmer() {
		config.ErrorStatus("not authorized", http.StatusForbidden, w,
			fmt.Errorf("only farmers may create consultation orders"))
		return
	}

	eID, err := primitive.ObjectIDFromHex(req.ExpertID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	expert, err := c.UDB.FindOne(context.Background(), bson.M{"_id": eID})
	if err != nil {
		config.ErrorStatus("expert not found", http.StatusNotFound, w, err)
		return
	}
	if !expert.IsExpert() {
		config.ErrorStatus("expert not found", http.StatusNotFound, w,
			fmt.Errorf("counterpart has wrong user type"))
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	order := models.ConsultOrder{
		ID: primitive.NewObjectID(),
		Details: models.ConsultOrderDetails{
			Farmer:    req.FarmerID,
			Expert:    req.ExpertID,
			Problem:   req.Problem,
			Status:    models.OrderStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	_, err = c.ODB.InsertOne(context.Background(), order)
	if err != nil {
		config.ErrorStatus("failed to create consultation order", http.StatusInternalServerError, w, err)
		return
	}

	c.Notifier.Notify(context.Background(), models.Notification{
		Recipient: req.ExpertID,
		From:      req.FarmerID,
		Type:      models.NotificationTypeConsultOrder,
		Message:   fmt.Sprintf("%s has requested a consultation", farmer.Details.Name),
		Order:     order.ID.Hex(),
	})

	go func() {
		email, name := c.Notifier.UserContact(context.Background(), eID)
		c.Notifier.SendEmail(email, name,
			"New Consultation Request - AgriConnect",
			templates.RenderNewConsultOrderEmail(name, farmer.Details.Name, req.Problem),
			fmt.Sprintf("%s has requested a consultation with you. Open AgriConnect to respond.", farmer.Details.Name))
	}()

	b, err := json.Marshal(order)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

type setStatusRequest struct {
	ExpertID string `json:"expertId"`
	Status   string `json:"status"`
}

// SetStatusHandler advances the order through its lifecycle. Only the owning
// expert may transition an order, the status enum is closed, and terminal
// orders never move again.
func (c ConsultOrder) SetStatusHandler(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["order_id"]

	req := setStatusRequest{}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if req.ExpertID == "" {
		config.ErrorStatus("expertId is required", http.StatusBadRequest, w, fmt.Errorf("expertId is required"))
		return
	}
	if !models.ValidOrderStatus(req.Status) {
		config.ErrorStatus("invalid status", http.StatusBadRequest, w,
			fmt.Errorf("status must be one of pending, accepted, rejected, completed"))
		return
	}

	oID, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	order, err := c.ODB.FindOne(context.Background(), bson.M{"_id": oID})
	if err != nil {
		config.ErrorStatus("consultation order not found", http.StatusNotFound, w, err)
		return
	}
	if order.Details.Expert != req.ExpertID {
		config.ErrorStatus("not authorized", http.StatusForbidden, w,
			fmt.Errorf("acting expert does not own the order"))
		return
	}
	if !models.ValidOrderTransition(order.Details.Status, req.Status) {
		config.ErrorStatus("invalid status transition", http.StatusBadRequest, w,
			fmt.Errorf("cannot transition from %s to %s", order.Details.Status, req.Status))
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	_, err = c.ODB.UpdateOne(context.Background(), bson.M{"_id": oID}, bson.M{"$set": bson.M{
		"consultOrder.status":    req.Status,
		"consultOrder.updatedAt": now,
	}})
	if err != nil {
		config.ErrorStatus("failed to update consultation order", http.StatusInternalServerError, w, err)
		return
	}
	order.Details.Status = req.Status
	order.Details.UpdatedAt = now

	c.applyStatusSideEffects(context.Background(), *order)

	b, err := json.Marshal(order)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// applyStatusSideEffects fans out the notifications and transcript messages
// keyed by the new status. All of it is best effort: the status write has
// already committed.
func (c ConsultOrder) applyStatusSideEffects(ctx context.Context, order models.ConsultOrder) {
	switch order.Details.Status {
	case models.OrderStatusAccepted:
		c.Notifier.Notify(ctx, models.Notification{
			Recipient: order.Details.Farmer,
			From:      order.Details.Expert,
			Type:      models.NotificationTypeConsultOrder,
			Message:   "Your consultation request was accepted",
			Order:     order.ID.Hex(),
		})

	case models.OrderStatusRejected:
		c.Notifier.Notify(ctx, models.Notification{
			Recipient: order.Details.Farmer,
			From:      order.Details.Expert,
			Type:      models.NotificationTypeConsultOrder,
			Message:   "Your consultation request was rejected",
			Order:     order.ID.Hex(),
		})
		c.postSystemMessage(ctx, order, models.MessageKindRejection, rejectionMessageText)

	case models.OrderStatusCompleted:
		c.Notifier.Notify(ctx, models.Notification{
			Recipient: order.Details.Farmer,
			From:      order.Details.Expert,
			Type:      models.NotificationTypeConsultOrder,
			Message:   "Your consultation was completed",
			Order:     order.ID.Hex(),
			Metadata: map[string]interface{}{
				"showRatingPrompt": true,
				"expert":           order.Details.Expert,
				"consultOrder":     order.ID.Hex(),
			},
		})
		c.postSystemMessage(ctx, order, models.MessageKindRatingPrompt, ratingPromptMessageText)

		go func() {
			fID, err := primitive.ObjectIDFromHex(order.Details.Farmer)
			if err != nil {
				return
			}
			email, name := c.Notifier.UserContact(context.Background(), fID)
			_, expertName := c.expertContact(context.Background(), order.Details.Expert)
			c.Notifier.SendEmail(email, name,
				"Consultation Completed - AgriConnect",
				templates.RenderOrderCompletedEmail(name, expertName),
				"Your consultation has been completed. Please rate your expert on AgriConnect.")
		}()
	}
}

func (c ConsultOrder) expertContact(ctx context.Context, expertHex string) (email, name string) {
	eID, err := primitive.ObjectIDFromHex(expertHex)
	if err != nil {
		return "", ""
	}
	return c.Notifier.UserContact(ctx, eID)
}

// postSystemMessage drops a farmer-only lifecycle message into the pair's
// room when one exists. No room, no message.
func (c ConsultOrder) postSystemMessage(ctx context.Context, order models.ConsultOrder, kind, content string) {
	userA, userB := models.CanonicalPair(order.Details.Farmer, order.Details.Expert)
	room, err := c.Msg.RDB.FindOne(ctx, bson.M{"chatRoom.userA": userA, "chatRoom.userB": userB})
	if err != nil {
		if err != mongo.ErrNoDocuments {
			zap.S().Warnw("failed to look up room for system message", "order", order.ID.Hex(), "error", err)
		}
		return
	}
	if err := c.Msg.InsertSystemMessage(ctx, *room, kind, content); err != nil {
		zap.S().Warnw("failed to insert system message", "order", order.ID.Hex(), "kind", kind, "error", err)
	}
}

// LatestCompletedHandler reports the pair's most recent completed order, but
// only when it is also the pair's most recent order overall: a newer request
// supersedes visibility of an older completed consultation until it resolves.
func (c ConsultOrder) LatestCompletedHandler(w http.ResponseWriter, r *http.Request) {
	farmerID := r.URL.Query().Get("farmerId")
	expertID := r.URL.Query().Get("expertId")

	if farmerID == "" || expertID == "" {
		config.ErrorStatus("farmerId and expertId are required", http.StatusBadRequest, w,
			fmt.Errorf("farmerId and expertId are required"))
		return
	}

	order, err := c.latestCompletedForPair(context.Background(), farmerID, expertID)
	if err != nil {
		config.ErrorStatus("failed to fetch consultation orders", http.StatusInternalServerError, w, err)
		return
	}
	if order == nil {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"hasCompleted": false}`))
		return
	}

	count, err := c.RatDB.CountDocuments(context.Background(), bson.M{
		"rating.farmer":       farmerID,
		"rating.expert":       expertID,
		"rating.consultOrder": order.ID.Hex(),
	})
	if err != nil {
		config.ErrorStatus("failed to check existing rating", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(map[string]interface{}{
		"hasCompleted": true,
		"order":        order,
		"alreadyRated": count > 0,
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// latestCompletedForPair returns the pair's newest order when it is completed,
// nil otherwise
func (c ConsultOrder) latestCompletedForPair(ctx context.Context, farmerID, expertID string) (*models.ConsultOrder, error) {
	opts := options.Find().
		SetSort(bson.M{"consultOrder.updatedAt": -1}).
		SetLimit(2)
	orders, err := c.ODB.Find(ctx, bson.M{
		"consultOrder.farmer": farmerID,
		"consultOrder.expert": expertID,
	}, opts)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 || orders[0].Details.Status != models.OrderStatusCompleted {
		return nil, nil
	}
	return &orders[0], nil
}
