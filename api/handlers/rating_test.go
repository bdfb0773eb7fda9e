package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

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

func newRatingHandler(ratingDB *mocks.RatingDatabase, roomDB *mocks.ChatRoomDatabase,
	orderDB *mocks.ConsultOrderDatabase, userDB *mocks.UserDatabase) handlers.Rating {
	return handlers.Rating{
		DB:       ratingDB,
		RDB:      roomDB,
		ODB:      orderDB,
		UDB:      userDB,
		Notifier: handlers.Notifier{UDB: userDB},
	}
}

func rateRequest(t *testing.T, body string) *http.Request {
	req, err := http.NewRequest("POST", "/api/v1/chat/room/"+roomHex+"/rate", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	return mux.SetURLVars(req, map[string]string{"room_id": roomHex})
}

func completedOrder(t *testing.T) *models.ConsultOrder {
	order := pendingOrder(t)
	order.Details.Status = models.OrderStatusCompleted
	return order
}

func TestRating_RateExpertHandlerOutOfRange(t *testing.T) {
	req := rateRequest(t, `{"farmerId": "`+farmerHex+`", "rating": 6}`)

	rt := newRatingHandler(&mocks.RatingDatabase{}, &mocks.ChatRoomDatabase{},
		&mocks.ConsultOrderDatabase{}, &mocks.UserDatabase{})

	rr := httptest.NewRecorder()
	http.HandlerFunc(rt.RateExpertHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "rating must be between 1 and 5")
}

func TestRating_RateExpertHandlerNonParticipant(t *testing.T) {
	outsider := "65a000000000000000000099"
	req := rateRequest(t, `{"farmerId": "`+outsider+`", "rating": 5}`)

	roomDB := &mocks.ChatRoomDatabase{}
	roomDB.On("FindOne", mock.Anything, mock.Anything).Return(pairRoom(t), nil)

	rt := newRatingHandler(&mocks.RatingDatabase{}, roomDB,
		&mocks.ConsultOrderDatabase{}, &mocks.UserDatabase{})

	rr := httptest.NewRecorder()
	http.HandlerFunc(rt.RateExpertHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "not authorized")
}

func TestRating_RateExpertHandlerExpertCannotRate(t *testing.T) {
	req := rateRequest(t, `{"farmerId": "`+expertHex+`", "rating": 5}`)

	roomDB := &mocks.ChatRoomDatabase{}
	userDB := &mocks.UserDatabase{}

	roomDB.On("FindOne", mock.Anything, mock.Anything).Return(pairRoom(t), nil)
	userDB.On("FindOne", mock.Anything, bson.M{"_id": oid(t, expertHex)}).Return(expertUser(t), nil)

	rt := newRatingHandler(&mocks.RatingDatabase{}, roomDB, &mocks.ConsultOrderDatabase{}, userDB)

	rr := httptest.NewRecorder()
	http.HandlerFunc(rt.RateExpertHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "not authorized")
}

func TestRating_RateExpertHandlerCounterpartNotExpert(t *testing.T) {
	otherFarmerHex := "65a000000000000000000050"
	userA, userB := models.CanonicalPair(farmerHex, otherFarmerHex)
	farmerPairRoom := &models.ChatRoom{
		ID:      oid(t, roomHex),
		Details: models.ChatRoomDetails{UserA: userA, UserB: userB},
	}

	req := rateRequest(t, `{"farmerId": "`+farmerHex+`", "rating": 5}`)

	roomDB := &mocks.ChatRoomDatabase{}
	userDB := &mocks.UserDatabase{}

	roomDB.On("FindOne", mock.Anything, mock.Anything).Return(farmerPairRoom, nil)
	userDB.On("FindOne", mock.Anything, bson.M{"_id": oid(t, farmerHex)}).Return(farmerUser(t), nil)
	userDB.On("FindOne", mock.Anything, bson.M{"_id": oid(t, otherFarmerHex)}).Return(&models.User{
		ID:      oid(t, otherFarmerHex),
		Details: models.UserDetails{UserType: models.UserTypeFarmer},
	}, nil)

	rt := newRatingHandler(&mocks.RatingDatabase{}, roomDB, &mocks.ConsultOrderDatabase{}, userDB)

	rr := httptest.NewRecorder()
	http.HandlerFunc(rt.RateExpertHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "counterpart is not an expert")
}

func TestRating_RateExpertHandlerNoCompletedConsultation(t *testing.T) {
	req := rateRequest(t, `{"farmerId": "`+farmerHex+`", "rating": 5}`)

	roomDB := &mocks.ChatRoomDatabase{}
	userDB := &mocks.UserDatabase{}
	orderDB := &mocks.ConsultOrderDatabase{}

	roomDB.On("FindOne", mock.Anything, mock.Anything).Return(pairRoom(t), nil)
	userDB.On("FindOne", mock.Anything, bson.M{"_id": oid(t, farmerHex)}).Return(farmerUser(t), nil)
	userDB.On("FindOne", mock.Anything, bson.M{"_id": oid(t, expertHex)}).Return(expertUser(t), nil)
	orderDB.On("Find", mock.Anything, mock.Anything, mock.Anything).Return([]models.ConsultOrder{}, nil)

	rt := newRatingHandler(&mocks.RatingDatabase{}, roomDB, orderDB, userDB)

	rr := httptest.NewRecorder()
	http.HandlerFunc(rt.RateExpertHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "no completed consultation")
}

func TestRating_RateExpertHandlerAlreadyRated(t *testing.T) {
	req := rateRequest(t, `{"farmerId": "`+farmerHex+`", "rating": 5}`)

	roomDB := &mocks.ChatRoomDatabase{}
	userDB := &mocks.UserDatabase{}
	orderDB := &mocks.ConsultOrderDatabase{}
	ratingDB := &mocks.RatingDatabase{}

	roomDB.On("FindOne", mock.Anything, mock.Anything).Return(pairRoom(t), nil)
	userDB.On("FindOne", mock.Anything, bson.M{"_id": oid(t, farmerHex)}).Return(farmerUser(t), nil)
	userDB.On("FindOne", mock.Anything, bson.M{"_id": oid(t, expertHex)}).Return(expertUser(t), nil)
	orderDB.On("Find", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.ConsultOrder{*completedOrder(t)}, nil)
	ratingDB.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(1), nil)

	rt := newRatingHandler(ratingDB, roomDB, orderDB, userDB)

	rr := httptest.NewRecorder()
	http.HandlerFunc(rt.RateExpertHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "already rated")
	ratingDB.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestRating_RateExpertHandlerDuplicateInsertRejected(t *testing.T) {
	req := rateRequest(t, `{"farmerId": "`+farmerHex+`", "rating": 5}`)

	roomDB := &mocks.ChatRoomDatabase{}
	userDB := &mocks.UserDatabase{}
	orderDB := &mocks.ConsultOrderDatabase{}
	ratingDB := &mocks.RatingDatabase{}

	roomDB.On("FindOne", mock.Anything, mock.Anything).Return(pairRoom(t), nil)
	userDB.On("FindOne", mock.Anything, bson.M{"_id": oid(t, farmerHex)}).Return(farmerUser(t), nil)
	userDB.On("FindOne", mock.Anything, bson.M{"_id": oid(t, expertHex)}).Return(expertUser(t), nil)
	orderDB.On("Find", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.ConsultOrder{*completedOrder(t)}, nil)

	// a concurrent rating slipped past the advisory check; the unique index
	// rejects the second insert
	ratingDB.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(0), nil)
	dupErr := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	ratingDB.On("InsertOne", mock.Anything, mock.Anything).Return(nil, dupErr)

	rt := newRatingHandler(ratingDB, roomDB, orderDB, userDB)

	rr := httptest.NewRecorder()
	http.HandlerFunc(rt.RateExpertHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "already rated")
	userDB.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestRating_RateExpertHandlerRecomputesAggregate(t *testing.T) {
	req := rateRequest(t, `{"farmerId": "`+farmerHex+`", "rating": 4, "feedback": "clear and practical advice"}`)

	roomDB := &mocks.ChatRoomDatabase{}
	userDB := &mocks.UserDatabase{}
	orderDB := &mocks.ConsultOrderDatabase{}
	ratingDB := &mocks.RatingDatabase{}

	roomDB.On("FindOne", mock.Anything, mock.Anything).Return(pairRoom(t), nil)
	userDB.On("FindOne", mock.Anything, bson.M{"_id": oid(t, farmerHex)}).Return(farmerUser(t), nil)
	userDB.On("FindOne", mock.Anything, bson.M{"_id": oid(t, expertHex)}).Return(expertUser(t), nil)
	orderDB.On("Find", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.ConsultOrder{*completedOrder(t)}, nil)
	ratingDB.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(0), nil)

	ratingDB.On("InsertOne", mock.Anything, mock.MatchedBy(func(rating models.Rating) bool {
		return rating.Details.Farmer == farmerHex &&
			rating.Details.Expert == expertHex &&
			rating.Details.ConsultOrder == orderHex &&
			rating.Details.Rating == 4
	})).Return(&mocks.InsertOneResultHelper{}, nil)

	// the full scan drives the aggregate, not an incremental bump
	ratingDB.On("Find", mock.Anything, bson.M{"rating.expert": expertHex}).Return([]models.Rating{
		{ID: primitive.NewObjectID(), Details: models.RatingDetails{Expert: expertHex, Rating: 5}},
		{ID: primitive.NewObjectID(), Details: models.RatingDetails{Expert: expertHex, Rating: 4}},
	}, nil)

	userDB.On("UpdateOne", mock.Anything, bson.M{"_id": oid(t, expertHex)}, mock.MatchedBy(func(update interface{}) bool {
		set, ok := update.(bson.M)["$set"].(bson.M)
		return ok &&
			set["user.expertDetails.averageRating"] == 4.5 &&
			set["user.expertDetails.totalReviews"] == 2
	})).Return(&mongo.UpdateResult{}, nil)

	roomDB.On("UpdateOne", mock.Anything, bson.M{"_id": oid(t, roomHex)}, mock.MatchedBy(func(update interface{}) bool {
		set, ok := update.(bson.M)["$set"].(bson.M)
		return ok && set["chatRoom.isRated"] == true
	})).Return(&mongo.UpdateResult{}, nil)

	// notification push to the expert's inbox
	userDB.On("UpdateOne", mock.Anything, bson.M{"_id": oid(t, expertHex)}, mock.MatchedBy(func(update interface{}) bool {
		_, ok := update.(bson.M)["$push"]
		return ok
	})).Return(&mongo.UpdateResult{}, nil)

	rt := newRatingHandler(ratingDB, roomDB, orderDB, userDB)

	rr := httptest.NewRecorder()
	http.HandlerFunc(rt.RateExpertHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), "rating submitted successfully")
	assert.Contains(t, rr.Body.String(), `"averageRating":4.5`)
	assert.Contains(t, rr.Body.String(), `"totalReviews":2`)
	roomDB.AssertCalled(t, "UpdateOne", mock.Anything, bson.M{"_id": oid(t, roomHex)}, mock.Anything)
}
