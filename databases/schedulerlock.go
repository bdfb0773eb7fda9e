package databases

// go generate: mockery --name SchedulerLockDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const schedulerLockName = "schedulerlocks"

// SchedulerLockDatabase hands out short-lived named locks so background jobs
// run on a single instance at a time.
type SchedulerLockDatabase interface {
	TryAcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, owner string) error
}

type schedulerLockDatabase struct {
	db DatabaseHelper
}

// NewSchedulerLockDatabase initializes a new instance of scheduler lock database with the provided db connection
func NewSchedulerLockDatabase(db DatabaseHelper) SchedulerLockDatabase {
	return &schedulerLockDatabase{
		db: db,
	}
}

// TryAcquireLock upserts the lock document if it is free, expired, or already
// held by this owner. A duplicate-key error means another instance won the
// upsert race and is reported as "not acquired", not as a failure.
func (s *schedulerLockDatabase) TryAcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()
	filter := bson.M{
		"_id": name,
		"$or": []bson.M{
			{"owner": owner},
			{"expiresAt": bson.M{"$lt": primitive.NewDateTimeFromTime(now)}},
		},
	}
	update := bson.M{"$set": bson.M{
		"owner":     owner,
		"expiresAt": primitive.NewDateTimeFromTime(now.Add(ttl)),
	}}
	opts := options.Update().SetUpsert(true)

	res, err := s.db.Collection(schedulerLockName).UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return res.MatchedCount > 0 || res.UpsertedCount > 0, nil
}

func (s *schedulerLockDatabase) ReleaseLock(ctx context.Context, name, owner string) error {
	return s.db.Collection(schedulerLockName).DeleteOne(ctx, bson.M{"_id": name, "owner": owner})
}
