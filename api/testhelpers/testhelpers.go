// Package testhelpers builds the mocked mongo wrappers shared by handler and
// middleware tests.
package testhelpers

import (
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/legal-case-api/databases/mocks"
)

// NewDB returns a DatabaseHelper mock that hands out the given collections by name
func NewDB(collections map[string]*mocks.CollectionHelper) *mocks.DatabaseHelper {
	db := &mocks.DatabaseHelper{}
	for name, coll := range collections {
		db.On("Collection", name).Return(coll)
	}
	return db
}

// FoundOne returns a single result that decodes v into the caller's **T
func FoundOne[T any](v T) *mocks.SingleResultHelper {
	sr := &mocks.SingleResultHelper{}
	sr.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**T)
		*arg = &v
	})
	return sr
}

// NotFound returns a single result failing with mongo.ErrNoDocuments
func NotFound() *mocks.SingleResultHelper {
	return Failing(mongo.ErrNoDocuments)
}

// Failing returns a single result whose Decode fails with err
func Failing(err error) *mocks.SingleResultHelper {
	sr := &mocks.SingleResultHelper{}
	sr.On("Decode", mock.Anything).Return(err)
	return sr
}

// Cursor returns a cursor yielding items
func Cursor[T any](items []T) *mocks.CursorHelper {
	c := &mocks.CursorHelper{}
	c.On("All", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(1).(*[]T)
		*arg = append([]T(nil), items...)
	})
	c.On("Close", mock.Anything).Return(nil)
	return c
}

// InsertedID returns an insert result reporting id
func InsertedID(id interface{}) *mocks.InsertOneResultHelper {
	r := &mocks.InsertOneResultHelper{}
	r.On("Decode").Return(id)
	return r
}
