package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gramasevaka/gs-portal-api/databases"
	"github.com/gramasevaka/gs-portal-api/databases/mocks"
)

func TestEnsureIndexes(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	appointments := &mocks.CollectionHelper{}

	var slotIndex *mongo.IndexModel
	appointments.On("CreateIndexes", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		for _, idx := range args.Get(1).([]mongo.IndexModel) {
			if idx.Options != nil && idx.Options.Name != nil && *idx.Options.Name == "slot_held_unique" {
				idx := idx
				slotIndex = &idx
			}
		}
	})
	collectionHelper.On("CreateIndexes", mock.Anything, mock.Anything).Return(nil)
	dbHelper.On("Collection", "appointments").Return(appointments)
	dbHelper.On("Collection", mock.Anything).Return(collectionHelper)

	assert.NoError(t, databases.EnsureIndexes(context.Background(), dbHelper))

	if assert.NotNil(t, slotIndex) {
		assert.True(t, *slotIndex.Options.Unique)
		assert.Equal(t, bson.M{"slotHeld": true}, slotIndex.Options.PartialFilterExpression)
	}
}

func TestEnsureIndexesError(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("CreateIndexes", mock.Anything, mock.Anything).Return(errors.New("mocked-error"))
	dbHelper.On("Collection", mock.Anything).Return(collectionHelper)

	err := databases.EnsureIndexes(context.Background(), dbHelper)
	assert.ErrorContains(t, err, "mocked-error")
}

func TestPageOptions(t *testing.T) {
	opts := databases.PageOptions(10, 3, databases.NewestFirst)
	assert.EqualValues(t, 10, *opts.Limit)
	assert.EqualValues(t, 20, *opts.Skip)
	assert.Equal(t, databases.NewestFirst, opts.Sort)

	opts = databases.PageOptions(25, 0, nil)
	assert.EqualValues(t, 0, *opts.Skip)
	assert.Nil(t, opts.Sort)
}
