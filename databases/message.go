package databases

// go generate: mockery --name MessageDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agriconnect/agriconnect-api/models"
)

const messageName = "messages"

// MessageDatabase contains the methods to use with the message database
type MessageDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Message, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Message, error)
	FindPaginated(ctx context.Context, filter interface{}, limit, page int) ([]models.Message, error)
	InsertOne(ctx context.Context, message models.Message) (InsertOneResultHelper, error)
	DeleteOne(ctx context.Context, filter interface{}) error
}

type messageDatabase struct {
	db DatabaseHelper
}

// NewMessageDatabase initializes a new instance of message database with the provided db connection
func NewMessageDatabase(db DatabaseHelper) MessageDatabase {
	return &messageDatabase{
		db: db,
	}
}

func (m *messageDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Message, error) {
	message := &models.Message{}
	err := m.db.Collection(messageName).FindOne(ctx, filter).Decode(message)
	if err != nil {
		return nil, err
	}
	return message, nil
}

func (m *messageDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Message, error) {
	var messages []models.Message
	curr, err := m.db.Collection(messageName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &messages)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// FindPaginated returns one page of messages in ascending creation order
func (m *messageDatabase) FindPaginated(ctx context.Context, filter interface{}, limit, page int) ([]models.Message, error) {
	opts := newMongoPaginate(limit, page).getPaginatedOpts()
	opts.SetSort(bson.M{"message.createdAt": 1})
	return m.Find(ctx, filter, opts)
}

func (m *messageDatabase) InsertOne(ctx context.Context, message models.Message) (InsertOneResultHelper, error) {
	return m.db.Collection(messageName).InsertOne(ctx, message)
}

func (m *messageDatabase) DeleteOne(ctx context.Context, filter interface{}) error {
	return m.db.Collection(messageName).DeleteOne(ctx, filter)
}
