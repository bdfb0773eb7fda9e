package databases_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/agriconnect/agriconnect-api/config"
	"github.com/agriconnect/agriconnect-api/databases"
	"github.com/agriconnect/agriconnect-api/databases/mocks"
	"github.com/agriconnect/agriconnect-api/models"
)

func TestNewChatRoomDatabase(t *testing.T) {
	os.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	os.Setenv("DB_NAME", "test")
	conf := config.New()

	dbClient, err := databases.NewClient(conf)
	assert.NoError(t, err)

	db := databases.NewDatabase(conf, dbClient)

	roomDB := databases.NewChatRoomDatabase(db)

	assert.NotEmpty(t, roomDB)
}

func TestChatRoomDatabase_FindOne(t *testing.T) {

	// define variables for interfaces
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var srHelperErr databases.SingleResultHelper
	var srHelperCorrect databases.SingleResultHelper

	// set interfaces implementation to mocked structures
	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	srHelperErr = &mocks.SingleResultHelper{}
	srHelperCorrect = &mocks.SingleResultHelper{}

	srHelperErr.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(errors.New("mocked-error"))

	srHelperCorrect.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*models.ChatRoom)
		arg.Details.UserA = "mocked-farmer"
		arg.Details.UserB = "mocked-expert"
	})

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"error": true}).
		Return(srHelperErr)

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"error": false}).
		Return(srHelperCorrect)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "chatrooms").Return(collectionHelper)

	// Create new database with mocked Database interface
	roomDba := databases.NewChatRoomDatabase(dbHelper)

	// Call method with defined filter, that in our mocked function returns
	// mocked-error
	room, err := roomDba.FindOne(context.Background(), bson.M{"error": true})

	assert.Empty(t, room)
	assert.EqualError(t, err, "mocked-error")

	// Now call the same function with different filter for correct result
	room, err = roomDba.FindOne(context.Background(), bson.M{"error": false})

	assert.NoError(t, err)
	assert.Equal(t, "mocked-farmer", room.Details.UserA)
	assert.Equal(t, "mocked-expert", room.Details.UserB)
}

func TestChatRoomDatabase_Find(t *testing.T) {

	// define variables for interfaces
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var cursorHelper databases.CursorHelper

	// set interfaces implementation to mocked structures
	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	cursorHelper = &mocks.CursorHelper{}

	cursorHelper.(*mocks.CursorHelper).
		On("All", context.Background(), mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(1).(*[]models.ChatRoom)
		(*arg) = []models.ChatRoom{{Details: models.ChatRoomDetails{UserA: "mocked-farmer"}}}
	})
	cursorHelper.(*mocks.CursorHelper).
		On("Close", context.Background()).
		Return(nil)

	collectionHelper.(*mocks.CollectionHelper).
		On("Find", context.Background(), bson.M{"error": true}).
		Return(nil, errors.New("mocked-error"))

	collectionHelper.(*mocks.CollectionHelper).
		On("Find", context.Background(), bson.M{"error": false}).
		Return(cursorHelper, nil)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "chatrooms").Return(collectionHelper)

	// Create new database with mocked Database interface
	roomDba := databases.NewChatRoomDatabase(dbHelper)

	// Call method with defined filter, that in our mocked function returns
	// mocked-error
	rooms, err := roomDba.Find(context.Background(), bson.M{"error": true})

	assert.Empty(t, rooms)
	assert.EqualError(t, err, "mocked-error")

	// Now call the same function with different filter for correct result
	rooms, err = roomDba.Find(context.Background(), bson.M{"error": false})

	assert.NoError(t, err)
	assert.Equal(t, []models.ChatRoom{{Details: models.ChatRoomDetails{UserA: "mocked-farmer"}}}, rooms)
}
