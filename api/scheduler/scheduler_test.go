package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/agriconnect/agriconnect-api/databases/mocks"
)

func init() {
	logger := zap.NewNop()
	zap.ReplaceGlobals(logger)
}

func TestNewSchedulerGetsInstanceID(t *testing.T) {
	s := NewScheduler(&mocks.RatingDatabase{}, &mocks.UserDatabase{}, &mocks.SchedulerLockDatabase{})
	assert.NotEmpty(t, s.instanceID)
	assert.NotNil(t, s.cron)
}

func TestReconcileExpertAggregatesSkipsWhenLockHeld(t *testing.T) {
	lockDB := &mocks.SchedulerLockDatabase{}
	ratingDB := &mocks.RatingDatabase{}

	lockDB.On("TryAcquireLock", mock.Anything, "aggregate_reconcile_job", mock.Anything, 10*time.Minute).
		Return(false, nil)

	s := NewScheduler(ratingDB, &mocks.UserDatabase{}, lockDB)
	s.ReconcileExpertAggregates()

	ratingDB.AssertNotCalled(t, "Aggregate", mock.Anything, mock.Anything)
}

func TestReconcileExpertAggregatesRewritesUserDocs(t *testing.T) {
	expertHex := "65a000000000000000000002"
	expertID, err := primitive.ObjectIDFromHex(expertHex)
	if err != nil {
		t.Fatal(err)
	}

	lockDB := &mocks.SchedulerLockDatabase{}
	ratingDB := &mocks.RatingDatabase{}
	userDB := &mocks.UserDatabase{}
	cursor := &mocks.CursorHelper{}

	lockDB.On("TryAcquireLock", mock.Anything, "aggregate_reconcile_job", mock.Anything, 10*time.Minute).
		Return(true, nil)
	lockDB.On("ReleaseLock", mock.Anything, "aggregate_reconcile_job", mock.Anything).Return(nil)

	ratingDB.On("Aggregate", mock.Anything, mock.Anything).Return(cursor, nil)

	cursor.On("All", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(1).(*[]expertAggregate)
		(*arg) = []expertAggregate{
			{Expert: expertHex, AverageRating: 4.5, RatingsCount: 2},
			{Expert: "not-a-hex-id", AverageRating: 1, RatingsCount: 1},
		}
	})
	cursor.On("Close", mock.Anything).Return(nil)

	userDB.On("UpdateOne", mock.Anything, bson.M{"_id": expertID}, mock.MatchedBy(func(update interface{}) bool {
		set, ok := update.(bson.M)["$set"].(bson.M)
		return ok &&
			set["user.expertDetails.averageRating"] == 4.5 &&
			set["user.expertDetails.totalReviews"] == 2
	})).Return(&mongo.UpdateResult{}, nil)

	s := NewScheduler(ratingDB, userDB, lockDB)
	s.ReconcileExpertAggregates()

	// the well-formed aggregate lands on the expert doc; the malformed id is skipped
	userDB.AssertNumberOfCalls(t, "UpdateOne", 1)
	lockDB.AssertCalled(t, "ReleaseLock", mock.Anything, "aggregate_reconcile_job", mock.Anything)
}
