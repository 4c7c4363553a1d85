package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/legal-case-api/api/testhelpers"
	"github.com/linesmerrill/legal-case-api/databases"
	"github.com/linesmerrill/legal-case-api/databases/mocks"
	"github.com/linesmerrill/legal-case-api/models"
)

func TestCounterDatabase_Next(t *testing.T) {
	coll := &mocks.CollectionHelper{}
	db := testhelpers.NewDB(map[string]*mocks.CollectionHelper{"counters": coll})

	coll.On("FindOneAndUpdate", context.Background(), bson.M{"name": "case_2025"}, bson.M{"$inc": bson.M{"seq": 1}}, mock.Anything).
		Return(testhelpers.FoundOne(models.Counter{Name: "case_2025", Seq: 7}))
	coll.On("FindOneAndUpdate", context.Background(), bson.M{"name": "case_broken"}, mock.Anything, mock.Anything).
		Return(testhelpers.Failing(errors.New("mocked-error")))

	counterDB := databases.NewCounterDatabase(db)

	seq, err := counterDB.Next(context.Background(), "case_2025")
	assert.NoError(t, err)
	assert.Equal(t, int64(7), seq)

	seq, err = counterDB.Next(context.Background(), "case_broken")
	assert.EqualError(t, err, "mocked-error")
	assert.Zero(t, seq)
}

func TestCounterDatabase_NextUpserts(t *testing.T) {
	coll := &mocks.CollectionHelper{}
	db := testhelpers.NewDB(map[string]*mocks.CollectionHelper{"counters": coll})

	coll.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(testhelpers.FoundOne(models.Counter{Seq: 1})).
		Run(func(args mock.Arguments) {
			opts := args.Get(3).(*options.FindOneAndUpdateOptions)
			assert.True(t, *opts.Upsert)
			assert.Equal(t, options.After, *opts.ReturnDocument)
		})

	seq, err := databases.NewCounterDatabase(db).Next(context.Background(), "case_2026")

	assert.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}
