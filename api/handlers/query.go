package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gramasevaka/gs-portal-api/api"
	"github.com/gramasevaka/gs-portal-api/databases"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

const (
	defaultLimit = 10
	maxLimit     = 100
	dateLayout   = "2006-01-02"
)

// listQuery holds the optional listing parameters shared by every collection.
type listQuery struct {
	Page     int
	Limit    int
	Search   string
	Status   workflow.Status
	Category string
	Start    *time.Time
	End      *time.Time
}

func parseListQuery(r *http.Request) (listQuery, error) {
	v := r.URL.Query()
	q := listQuery{
		Page:     1,
		Limit:    defaultLimit,
		Search:   strings.TrimSpace(v.Get("search")),
		Status:   workflow.Status(v.Get("status")),
		Category: v.Get("category"),
	}
	if p, err := strconv.Atoi(v.Get("page")); err == nil && p > 0 {
		q.Page = p
	}
	if l, err := strconv.Atoi(v.Get("limit")); err == nil && l > 0 {
		q.Limit = l
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}

	var err error
	if q.Start, err = parseBound(v.Get("startDate"), false); err != nil {
		return q, invalid("startDate must be YYYY-MM-DD or RFC 3339")
	}
	if q.End, err = parseBound(v.Get("endDate"), true); err != nil {
		return q, invalid("endDate must be YYYY-MM-DD or RFC 3339")
	}
	if q.Start != nil && q.End != nil && q.End.Before(*q.Start) {
		return q, invalid("endDate is before startDate")
	}
	return q, nil
}

// parseBound parses a date range bound. A bare end date covers the whole day.
func parseBound(s string, end bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	if end {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// apply adds the query's filters to filter. machine validates the status
// filter; it may be nil for collections without a status machine.
func (q listQuery) apply(filter bson.M, m *workflow.Machine, categoryField string) error {
	if q.Status != "" {
		if m != nil && !m.Valid(q.Status) {
			return invalid("%q is not a %s status", q.Status, m.Kind())
		}
		filter["status"] = q.Status
	}
	if q.Category != "" && categoryField != "" {
		filter[categoryField] = q.Category
	}
	if q.Search != "" {
		filter["$text"] = bson.M{"$search": q.Search}
	}
	if q.Start != nil || q.End != nil {
		rng := bson.M{}
		if q.Start != nil {
			rng["$gte"] = *q.Start
		}
		if q.End != nil {
			rng["$lte"] = *q.End
		}
		filter["createdAt"] = rng
	}
	return nil
}

func (q listQuery) findOptions(sort bson.D) *options.FindOptions {
	return databases.PageOptions(q.Limit, q.Page, sort)
}

func (q listQuery) page(items interface{}, total int64) models.Page {
	return models.Page{
		Items:       items,
		Total:       total,
		PageCount:   int(math.Ceil(float64(total) / float64(q.Limit))),
		CurrentPage: q.Page,
	}
}

// listPage runs the count and the page query concurrently.
func listPage[T any](r *http.Request, db databases.EntityDatabase[T], filter bson.M, q listQuery, sort bson.D) ([]T, int64, error) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	type findResult struct {
		items []T
		err   error
	}
	type countResult struct {
		count int64
		err   error
	}

	findChan := make(chan findResult, 1)
	countChan := make(chan countResult, 1)

	go func() {
		items, err := db.Find(ctx, filter, q.findOptions(sort))
		findChan <- findResult{items: items, err: err}
	}()

	go func() {
		count, err := db.CountDocuments(ctx, filter)
		countChan <- countResult{count: count, err: err}
	}()

	findRes := <-findChan
	countRes := <-countChan

	if findRes.err != nil {
		return nil, 0, findRes.err
	}
	if countRes.err != nil {
		return nil, 0, countRes.err
	}
	if findRes.items == nil {
		findRes.items = []T{}
	}
	return findRes.items, countRes.count, nil
}

// objectID reads a hex object id from the route variable name.
func objectID(vars map[string]string, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(vars[name])
	if err != nil {
		return primitive.NilObjectID, invalid("%s is not a valid id", name)
	}
	return id, nil
}
