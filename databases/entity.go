package databases

// go generate: mockery --name EntityDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"
)

// EntityDatabase contains the methods every collection of this project supports.
// T is the document type stored in the collection.
type EntityDatabase[T any] interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*T, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]T, error)
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
	InsertOne(ctx context.Context, doc *T) error
	// FindOneAndUpdate applies update to the first match and returns the
	// updated document. A filter that matches nothing yields ErrNotFound.
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}) (*T, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) (int64, error)
	UpdateMany(ctx context.Context, filter interface{}, update interface{}) (int64, error)
	DeleteOne(ctx context.Context, filter interface{}) (int64, error)
}

type entityDatabase[T any] struct {
	db         DatabaseHelper
	collection string
}

// NewEntityDatabase initializes a typed view over the named collection
func NewEntityDatabase[T any](db DatabaseHelper, collection string) EntityDatabase[T] {
	return &entityDatabase[T]{
		db:         db,
		collection: collection,
	}
}

func (e *entityDatabase[T]) coll() CollectionHelper {
	return e.db.Collection(e.collection)
}

func (e *entityDatabase[T]) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*T, error) {
	doc := new(T)
	if err := e.coll().FindOne(ctx, filter, opts...).Decode(doc); err != nil {
		return nil, translate(err)
	}
	return doc, nil
}

func (e *entityDatabase[T]) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := e.coll().Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (e *entityDatabase[T]) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return e.coll().CountDocuments(ctx, filter)
}

func (e *entityDatabase[T]) InsertOne(ctx context.Context, doc *T) error {
	_, err := e.coll().InsertOne(ctx, doc)
	return translate(err)
}

func (e *entityDatabase[T]) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}) (*T, error) {
	doc := new(T)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := e.coll().FindOneAndUpdate(ctx, filter, update, opts).Decode(doc); err != nil {
		return nil, translate(err)
	}
	return doc, nil
}

func (e *entityDatabase[T]) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (int64, error) {
	res, err := e.coll().UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, translate(err)
	}
	return res.MatchedCount, nil
}

func (e *entityDatabase[T]) UpdateMany(ctx context.Context, filter interface{}, update interface{}) (int64, error) {
	res, err := e.coll().UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, translate(err)
	}
	return res.ModifiedCount, nil
}

func (e *entityDatabase[T]) DeleteOne(ctx context.Context, filter interface{}) (int64, error) {
	return e.coll().DeleteOne(ctx, filter)
}
