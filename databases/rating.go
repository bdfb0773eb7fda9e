package databases

// go generate: mockery --name RatingDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agriconnect/agriconnect-api/models"
)

const ratingName = "ratings"

// RatingDatabase contains the methods to use with the rating database
type RatingDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Rating, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Rating, error)
	InsertOne(ctx context.Context, rating models.Rating) (InsertOneResultHelper, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	Aggregate(ctx context.Context, pipeline interface{}) (CursorHelper, error)
	EnsureIndexes(ctx context.Context) error
}

type ratingDatabase struct {
	db DatabaseHelper
}

// NewRatingDatabase initializes a new instance of rating database with the provided db connection
func NewRatingDatabase(db DatabaseHelper) RatingDatabase {
	return &ratingDatabase{
		db: db,
	}
}

func (r *ratingDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Rating, error) {
	rating := &models.Rating{}
	err := r.db.Collection(ratingName).FindOne(ctx, filter).Decode(rating)
	if err != nil {
		return nil, err
	}
	return rating, nil
}

func (r *ratingDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Rating, error) {
	var ratings []models.Rating
	curr, err := r.db.Collection(ratingName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &ratings)
	if err != nil {
		return nil, err
	}
	return ratings, nil
}

func (r *ratingDatabase) InsertOne(ctx context.Context, rating models.Rating) (InsertOneResultHelper, error) {
	return r.db.Collection(ratingName).InsertOne(ctx, rating)
}

func (r *ratingDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return r.db.Collection(ratingName).CountDocuments(ctx, filter, opts...)
}

func (r *ratingDatabase) Aggregate(ctx context.Context, pipeline interface{}) (CursorHelper, error) {
	return r.db.Collection(ratingName).Aggregate(ctx, pipeline)
}

// EnsureIndexes declares the unique index that serializes concurrent rating
// submissions for the same consultation. The advisory pre-check in the handler
// is not a guarantee; this index is.
func (r *ratingDatabase) EnsureIndexes(ctx context.Context) error {
	return r.db.Collection(ratingName).CreateIndex(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "rating.farmer", Value: 1},
			{Key: "rating.expert", Value: 1},
			{Key: "rating.consultOrder", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
}
