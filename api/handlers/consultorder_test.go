package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/agriconnect/agriconnect-api/api/handlers"
	"github.com/agriconnect/agriconnect-api/databases/mocks"
	"github.com/agriconnect/agriconnect-api/models"
)

const orderHex = "65d000000000000000000001"

func pendingOrder(t *testing.T) *models.ConsultOrder {
	now := primitive.NewDateTimeFromTime(time.Now())
	return &models.ConsultOrder{
		ID: oid(t, orderHex),
		Details: models.ConsultOrderDetails{
			Farmer:    farmerHex,
			Expert:    expertHex,
			Problem:   "tomato blight spreading",
			Status:    models.OrderStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func newOrderHandler(orderDB *mocks.ConsultOrderDatabase, ratingDB *mocks.RatingDatabase,
	userDB *mocks.UserDatabase, roomDB *mocks.ChatRoomDatabase, messageDB *mocks.MessageDatabase) handlers.ConsultOrder {
	return handlers.ConsultOrder{
		ODB:      orderDB,
		RatDB:    ratingDB,
		UDB:      userDB,
		Msg:      handlers.Message{MDB: messageDB, RDB: roomDB, UDB: userDB},
		Notifier: handlers.Notifier{UDB: userDB},
	}
}

func TestConsultOrder_CreateOrderHandlerMissingFields(t *testing.T) {
	body := `{"farmerId": "` + farmerHex + `"}`
	req, err := http.NewRequest("POST", "/api/v1/consult-orders", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}

	c := newOrderHandler(&mocks.ConsultOrderDatabase{}, &mocks.RatingDatabase{},
		&mocks.UserDatabase{}, &mocks.ChatRoomDatabase{}, &mocks.MessageDatabase{})

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.CreateOrderHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "required")
}

func TestConsultOrder_CreateOrderHandlerCreatesPendingAndNotifiesExpert(t *testing.T) {
	body := `{"farmerId": "` + farmerHex + `", "expertId": "` + expertHex + `", "problem": "tomato blight spreading"}`
	req, err := http.NewRequest("POST", "/api/v1/consult-orders", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}

	orderDB := &mocks.ConsultOrderDatabase{}
	userDB := &mocks.UserDatabase{}

	userDB.On("FindOne", mock.Anything, bson.M{"_id": oid(t, farmerHex)}).Return(farmerUser(t), nil)
	userDB.On("FindOne", mock.Anything, bson.M{"_id": oid(t, expertHex)}).Return(expertUser(t), nil)

	orderDB.On("InsertOne", mock.Anything, mock.MatchedBy(func(order models.ConsultOrder) bool {
		return order.Details.Status == models.OrderStatusPending &&
			order.Details.Farmer == farmerHex &&
			order.Details.Expert == expertHex
	})).Return(&mocks.InsertOneResultHelper{}, nil)

	// notification lands on the expert's embedded inbox
	userDB.On("UpdateOne", mock.Anything, bson.M{"_id": oid(t, expertHex)}, mock.Anything).
		Return(&mongo.UpdateResult{}, nil)

	c := newOrderHandler(orderDB, &mocks.RatingDatabase{}, userDB,
		&mocks.ChatRoomDatabase{}, &mocks.MessageDatabase{})

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.CreateOrderHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), models.OrderStatusPending)
	userDB.AssertCalled(t, "UpdateOne", mock.Anything, bson.M{"_id": oid(t, expertHex)}, mock.Anything)
}

func TestConsultOrder_SetStatusHandlerInvalidStatus(t *testing.T) {
	body := `{"expertId": "` + expertHex + `", "status": "archived"}`
	req, err := http.NewRequest("PUT", "/api/v1/consult-order/"+orderHex+"/status", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"order_id": orderHex})

	c := newOrderHandler(&mocks.ConsultOrderDatabase{}, &mocks.RatingDatabase{},
		&mocks.UserDatabase{}, &mocks.ChatRoomDatabase{}, &mocks.MessageDatabase{})

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.SetStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid status")
}

func TestConsultOrder_SetStatusHandlerNotOwner(t *testing.T) {
	otherExpert := "65a000000000000000000077"
	body := `{"expertId": "` + otherExpert + `", "status": "accepted"}`
	req, err := http.NewRequest("PUT", "/api/v1/consult-order/"+orderHex+"/status", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"order_id": orderHex})

	orderDB := &mocks.ConsultOrderDatabase{}
	orderDB.On("FindOne", mock.Anything, mock.Anything).Return(pendingOrder(t), nil)

	c := newOrderHandler(orderDB, &mocks.RatingDatabase{},
		&mocks.UserDatabase{}, &mocks.ChatRoomDatabase{}, &mocks.MessageDatabase{})

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.SetStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "not authorized")
	orderDB.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestConsultOrder_SetStatusHandlerTerminalOrderImmutable(t *testing.T) {
	rejected := pendingOrder(t)
	rejected.Details.Status = models.OrderStatusRejected

	body := `{"expertId": "` + expertHex + `", "status": "accepted"}`
	req, err := http.NewRequest("PUT", "/api/v1/consult-order/"+orderHex+"/status", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"order_id": orderHex})

	orderDB := &mocks.ConsultOrderDatabase{}
	orderDB.On("FindOne", mock.Anything, mock.Anything).Return(rejected, nil)

	c := newOrderHandler(orderDB, &mocks.RatingDatabase{},
		&mocks.UserDatabase{}, &mocks.ChatRoomDatabase{}, &mocks.MessageDatabase{})

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.SetStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid status transition")
	orderDB.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestConsultOrder_SetStatusHandlerAcceptedNotifiesFarmer(t *testing.T) {
	body := `{"expertId": "` + expertHex + `", "status": "accepted"}`
	req, err := http.NewRequest("PUT", "/api/v1/consult-order/"+orderHex+"/status", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"order_id": orderHex})

	orderDB := &mocks.ConsultOrderDatabase{}
	userDB := &mocks.UserDatabase{}

	orderDB.On("FindOne", mock.Anything, mock.Anything).Return(pendingOrder(t), nil)
	orderDB.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{}, nil)
	userDB.On("UpdateOne", mock.Anything, bson.M{"_id": oid(t, farmerHex)}, mock.Anything).
		Return(&mongo.UpdateResult{}, nil)

	c := newOrderHandler(orderDB, &mocks.RatingDatabase{}, userDB,
		&mocks.ChatRoomDatabase{}, &mocks.MessageDatabase{})

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.SetStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), models.OrderStatusAccepted)
	userDB.AssertCalled(t, "UpdateOne", mock.Anything, bson.M{"_id": oid(t, farmerHex)}, mock.Anything)
}

func TestConsultOrder_SetStatusHandlerRejectedPostsFarmerOnlySystemMessage(t *testing.T) {
	body := `{"expertId": "` + expertHex + `", "status": "rejected"}`
	req, err := http.NewRequest("PUT", "/api/v1/consult-order/"+orderHex+"/status", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"order_id": orderHex})

	orderDB := &mocks.ConsultOrderDatabase{}
	userDB := &mocks.UserDatabase{}
	roomDB := &mocks.ChatRoomDatabase{}
	messageDB := &mocks.MessageDatabase{}

	orderDB.On("FindOne", mock.Anything, mock.Anything).Return(pendingOrder(t), nil)
	orderDB.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{}, nil)
	userDB.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{}, nil)

	userA, userB := models.CanonicalPair(farmerHex, expertHex)
	roomDB.On("FindOne", mock.Anything, bson.M{"chatRoom.userA": userA, "chatRoom.userB": userB}).
		Return(pairRoom(t), nil)

	messageDB.On("InsertOne", mock.Anything, mock.MatchedBy(func(msg models.Message) bool {
		return msg.Details.IsSystem &&
			msg.Details.Kind == models.MessageKindRejection &&
			msg.Details.Sender == "" &&
			len(msg.Details.VisibleTo) == 1 &&
			msg.Details.VisibleTo[0] == models.UserTypeFarmer
	})).Return(&mocks.InsertOneResultHelper{}, nil)

	c := newOrderHandler(orderDB, &mocks.RatingDatabase{}, userDB, roomDB, messageDB)

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.SetStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	messageDB.AssertCalled(t, "InsertOne", mock.Anything, mock.Anything)
	// farmer-only system message must not touch the expert-facing preview
	roomDB.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestConsultOrder_SetStatusHandlerRejectedWithoutRoomSkipsMessage(t *testing.T) {
	body := `{"expertId": "` + expertHex + `", "status": "rejected"}`
	req, err := http.NewRequest("PUT", "/api/v1/consult-order/"+orderHex+"/status", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"order_id": orderHex})

	orderDB := &mocks.ConsultOrderDatabase{}
	userDB := &mocks.UserDatabase{}
	roomDB := &mocks.ChatRoomDatabase{}
	messageDB := &mocks.MessageDatabase{}

	orderDB.On("FindOne", mock.Anything, mock.Anything).Return(pendingOrder(t), nil)
	orderDB.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{}, nil)
	userDB.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{}, nil)
	roomDB.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	c := newOrderHandler(orderDB, &mocks.RatingDatabase{}, userDB, roomDB, messageDB)

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.SetStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	messageDB.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestConsultOrder_LatestCompletedHandlerNewerPendingSupersedes(t *testing.T) {
	completed := *pendingOrder(t)
	completed.Details.Status = models.OrderStatusCompleted

	req, err := http.NewRequest("GET",
		"/api/v1/consult-orders/latest-completed?farmerId="+farmerHex+"&expertId="+expertHex, nil)
	if err != nil {
		t.Fatal(err)
	}

	orderDB := &mocks.ConsultOrderDatabase{}
	// newest first: a fresh pending order hides the older completed one
	orderDB.On("Find", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.ConsultOrder{*pendingOrder(t), completed}, nil)

	c := newOrderHandler(orderDB, &mocks.RatingDatabase{},
		&mocks.UserDatabase{}, &mocks.ChatRoomDatabase{}, &mocks.MessageDatabase{})

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.LatestCompletedHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"hasCompleted": false`)
}

func TestConsultOrder_LatestCompletedHandlerReturnsOrderAndRatedFlag(t *testing.T) {
	completed := *pendingOrder(t)
	completed.Details.Status = models.OrderStatusCompleted

	req, err := http.NewRequest("GET",
		"/api/v1/consult-orders/latest-completed?farmerId="+farmerHex+"&expertId="+expertHex, nil)
	if err != nil {
		t.Fatal(err)
	}

	orderDB := &mocks.ConsultOrderDatabase{}
	ratingDB := &mocks.RatingDatabase{}

	orderDB.On("Find", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.ConsultOrder{completed}, nil)
	ratingDB.On("CountDocuments", mock.Anything, bson.M{
		"rating.farmer":       farmerHex,
		"rating.expert":       expertHex,
		"rating.consultOrder": orderHex,
	}).Return(int64(1), nil)

	c := newOrderHandler(orderDB, ratingDB,
		&mocks.UserDatabase{}, &mocks.ChatRoomDatabase{}, &mocks.MessageDatabase{})

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.LatestCompletedHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"hasCompleted":true`)
	assert.Contains(t, rr.Body.String(), `"alreadyRated":true`)
	assert.Contains(t, rr.Body.String(), orderHex)
}
