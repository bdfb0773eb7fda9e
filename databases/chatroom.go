package databases

// go generate: mockery --name ChatRoomDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agriconnect/agriconnect-api/models"
)

const chatRoomName = "chatrooms"

// ChatRoomDatabase contains the methods to use with the chatroom database
type ChatRoomDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.ChatRoom, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ChatRoom, error)
	InsertOne(ctx context.Context, room models.ChatRoom) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	EnsureIndexes(ctx context.Context) error
}

type chatRoomDatabase struct {
	db DatabaseHelper
}

// NewChatRoomDatabase initializes a new instance of chatroom database with the provided db connection
func NewChatRoomDatabase(db DatabaseHelper) ChatRoomDatabase {
	return &chatRoomDatabase{
		db: db,
	}
}

func (c *chatRoomDatabase) FindOne(ctx context.Context, filter interface{}) (*models.ChatRoom, error) {
	room := &models.ChatRoom{}
	err := c.db.Collection(chatRoomName).FindOne(ctx, filter).Decode(room)
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (c *chatRoomDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	curr, err := c.db.Collection(chatRoomName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &rooms)
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *chatRoomDatabase) InsertOne(ctx context.Context, room models.ChatRoom) (InsertOneResultHelper, error) {
	return c.db.Collection(chatRoomName).InsertOne(ctx, room)
}

func (c *chatRoomDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return c.db.Collection(chatRoomName).UpdateOne(ctx, filter, update, opts...)
}

// EnsureIndexes declares the unique index over the canonical participant pair.
// Pairs are normalized before insert, so one ordering is enough to make the
// room-per-pair invariant hold under racing creates.
func (c *chatRoomDatabase) EnsureIndexes(ctx context.Context) error {
	return c.db.Collection(chatRoomName).CreateIndex(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "chatRoom.userA", Value: 1}, {Key: "chatRoom.userB", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
}
