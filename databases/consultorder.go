package databases

// go generate: mockery --name ConsultOrderDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agriconnect/agriconnect-api/models"
)

const consultOrderName = "consultorders"

// ConsultOrderDatabase contains the methods to use with the consultorder database
type ConsultOrderDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.ConsultOrder, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ConsultOrder, error)
	InsertOne(ctx context.Context, order models.ConsultOrder) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

type consultOrderDatabase struct {
	db DatabaseHelper
}

// NewConsultOrderDatabase initializes a new instance of consultorder database with the provided db connection
func NewConsultOrderDatabase(db DatabaseHelper) ConsultOrderDatabase {
	return &consultOrderDatabase{
		db: db,
	}
}

func (c *consultOrderDatabase) FindOne(ctx context.Context, filter interface{}) (*models.ConsultOrder, error) {
	order := &models.ConsultOrder{}
	err := c.db.Collection(consultOrderName).FindOne(ctx, filter).Decode(order)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (c *consultOrderDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ConsultOrder, error) {
	var orders []models.ConsultOrder
	curr, err := c.db.Collection(consultOrderName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &orders)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *consultOrderDatabase) InsertOne(ctx context.Context, order models.ConsultOrder) (InsertOneResultHelper, error) {
	return c.db.Collection(consultOrderName).InsertOne(ctx, order)
}

func (c *consultOrderDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return c.db.Collection(consultOrderName).UpdateOne(ctx, filter, update, opts...)
}

func (c *consultOrderDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return c.db.Collection(consultOrderName).CountDocuments(ctx, filter, opts...)
}
