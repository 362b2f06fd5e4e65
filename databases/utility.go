package databases

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoPaginate struct {
	limit int64
	page  int64
}

func newMongoPaginate(limit, page int) *mongoPaginate {
	if page < 1 {
		page = 1
	}
	return &mongoPaginate{
		limit: int64(limit),
		page:  int64(page),
	}
}

func (mp *mongoPaginate) getPaginatedOpts() *options.FindOptions {
	l := mp.limit
	skip := mp.page*mp.limit - mp.limit
	fOpt := options.FindOptions{Limit: &l, Skip: &skip}

	return &fOpt
}

// PageOptions builds find options for a 1-based page of the given size, sorted by sort.
func PageOptions(limit, page int, sort bson.D) *options.FindOptions {
	opts := newMongoPaginate(limit, page).getPaginatedOpts()
	if len(sort) > 0 {
		opts.SetSort(sort)
	}
	return opts
}

// NewestFirst is the default listing order.
var NewestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
