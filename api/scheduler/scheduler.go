package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/agriconnect/agriconnect-api/databases"
)

// Scheduler handles periodic background jobs. Its one job reconciles every
// expert's denormalized rating aggregate against the ratings collection: the
// rating path writes the aggregate without a transaction, so a crash between
// steps can leave it stale. Re-derivation closes that window.
type Scheduler struct {
	cron       *cron.Cron
	RatDB      databases.RatingDatabase
	UDB        databases.UserDatabase
	LockDB     databases.SchedulerLockDatabase
	instanceID string
}

// expertAggregate is the shape produced by the group-by-expert pipeline
type expertAggregate struct {
	Expert        string  `bson:"_id"`
	AverageRating float64 `bson:"averageRating"`
	RatingsCount  int     `bson:"ratingsCount"`
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	ratDB databases.RatingDatabase,
	uDB databases.UserDatabase,
	lockDB databases.SchedulerLockDatabase,
) *Scheduler {
	// Generate a unique instance ID for this pod
	instanceID := os.Getenv("DYNO") // Heroku sets this to "web.1", "web.2", etc.
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		RatDB:      ratDB,
		UDB:        uDB,
		LockDB:     lockDB,
		instanceID: instanceID,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Reconcile expert aggregates nightly at 2:30 AM UTC
	_, err := s.cron.AddFunc("30 2 * * *", s.ReconcileExpertAggregates)
	if err != nil {
		zap.S().Errorw("failed to register aggregate reconciliation job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Rating aggregate scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Rating aggregate scheduler stopped")
}

// ReconcileExpertAggregates rewrites every expert's averageRating,
// totalReviews and ratingsCount from an authoritative scan of the ratings
// collection
func (s *Scheduler) ReconcileExpertAggregates() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Try to acquire distributed lock (10 minute TTL)
	acquired, err := s.LockDB.TryAcquireLock(ctx, "aggregate_reconcile_job", s.instanceID, 10*time.Minute)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for aggregate reconciliation", "error", err)
		return
	}
	if !acquired {
		zap.S().Debug("Aggregate reconciliation already running on another instance, skipping")
		return
	}
	defer s.LockDB.ReleaseLock(ctx, "aggregate_reconcile_job", s.instanceID)

	zap.S().Infow("Running expert aggregate reconciliation", "instance", s.instanceID)

	pipeline := []bson.M{
		{"$group": bson.M{
			"_id":           "$rating.expert",
			"averageRating": bson.M{"$avg": "$rating.rating"},
			"ratingsCount":  bson.M{"$sum": 1},
		}},
	}

	cursor, err := s.RatDB.Aggregate(ctx, pipeline)
	if err != nil {
		zap.S().Errorw("failed to aggregate ratings", "error", err)
		return
	}

	var aggregates []expertAggregate
	if err := cursor.All(ctx, &aggregates); err != nil {
		zap.S().Errorw("failed to decode rating aggregates", "error", err)
		return
	}
	cursor.Close(ctx)

	updated := 0
	for _, agg := range aggregates {
		eID, err := primitive.ObjectIDFromHex(agg.Expert)
		if err != nil {
			zap.S().Warnw("skipping aggregate with bad expert id", "expert", agg.Expert)
			continue
		}

		_, err = s.UDB.UpdateOne(ctx, bson.M{"_id": eID}, bson.M{"$set": bson.M{
			"user.expertDetails.averageRating": agg.AverageRating,
			"user.expertDetails.totalReviews":  agg.RatingsCount,
			"user.expertDetails.ratingsCount":  agg.RatingsCount,
		}})
		if err != nil {
			zap.S().Errorw("failed to write expert aggregate", "expert", agg.Expert, "error", err)
			continue
		}
		updated++
	}

	zap.S().Infow("Expert aggregate reconciliation complete",
		"expertsUpdated", updated,
		"aggregatesFound", len(aggregates),
	)
}
