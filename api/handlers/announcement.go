package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/gramasevaka/gs-portal-api/api"
	"github.com/gramasevaka/gs-portal-api/databases"
	"github.com/gramasevaka/gs-portal-api/models"
)

// Audiences
const (
	AudienceAll      = "all"
	AudienceCitizens = "citizens"
	AudienceOfficers = "officers"
)

var (
	announcementCategories = []string{"general", "health", "event", "notice", "emergency"}
	audiences              = []string{AudienceAll, AudienceCitizens, AudienceOfficers}
	announcementPriorities = []string{"low", "medium", "high", "urgent"}
	byStartDate            = bson.D{{Key: "startDate", Value: -1}, {Key: "_id", Value: -1}}
)

// Announcement struct for handling announcement operations
type Announcement struct {
	DB  databases.AnnouncementDatabase
	Now func() time.Time
}

func (a Announcement) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

func withDefault(v, def string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return def
	}
	return v
}

func validateAnnouncement(req *models.AnnouncementRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	req.Category = withDefault(req.Category, "general")
	req.Audience = withDefault(req.Audience, AudienceAll)
	req.Priority = withDefault(req.Priority, "medium")
	switch {
	case req.Title == "":
		return invalid("title is required")
	case req.Content == "":
		return invalid("content is required")
	case !oneOf(req.Category, announcementCategories):
		return invalid("category must be one of %s", strings.Join(announcementCategories, ", "))
	case !oneOf(req.Audience, audiences):
		return invalid("audience must be one of %s", strings.Join(audiences, ", "))
	case !oneOf(req.Priority, announcementPriorities):
		return invalid("priority must be one of %s", strings.Join(announcementPriorities, ", "))
	case req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate):
		return invalid("endDate is before startDate")
	}
	return nil
}

// audienceFilter limits the audiences a caller may read. Anonymous callers
// read what citizens read.
func audienceFilter(r *http.Request) (interface{}, error) {
	caller, ok := api.CallerFromContext(r.Context())
	officer := ok && caller.IsOfficer()
	want := r.URL.Query().Get("audience")
	switch {
	case want == "" && officer:
		return nil, nil
	case want == "":
		return bson.M{"$in": []string{AudienceAll, AudienceCitizens}}, nil
	case !oneOf(want, audiences):
		return nil, invalid("audience must be one of %s", strings.Join(audiences, ", "))
	case want == AudienceOfficers && !officer:
		return nil, invalid("audience %s is only available to officers", want)
	}
	return bson.M{"$in": []string{want, AudienceAll}}, nil
}

// GetAnnouncementsHandler returns the announcements running now, newest
// first. Officers may pass includeInactive=true to see scheduled and expired
// ones as well.
func (a Announcement) GetAnnouncementsHandler(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, "", err)
		return
	}
	filter := bson.M{}
	aud, err := audienceFilter(r)
	if err != nil {
		writeError(w, "", err)
		return
	}
	if aud != nil {
		filter["audience"] = aud
	}
	if p := r.URL.Query().Get("priority"); p != "" {
		filter["priority"] = p
	}
	if !includeInactive(r) {
		now := a.now()
		filter["startDate"] = bson.M{"$lte": now}
		filter["$or"] = bson.A{
			bson.M{"endDate": nil},
			bson.M{"endDate": bson.M{"$gte": now}},
		}
	}
	q.Status = ""
	if err := q.apply(filter, nil, "category"); err != nil {
		writeError(w, "", err)
		return
	}

	items, total, err := listPage[models.Announcement](r, a.DB, filter, q, byStartDate)
	if err != nil {
		writeError(w, "failed to get announcements", err)
		return
	}
	writeJSON(w, http.StatusOK, q.page(items, total))
}

// CreateAnnouncementHandler publishes an announcement. It starts now unless
// a start date is given.
func (a Announcement) CreateAnnouncementHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	var req models.AnnouncementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}
	if err := validateAnnouncement(&req); err != nil {
		writeError(w, "", err)
		return
	}

	now := a.now()
	doc := &models.Announcement{
		ID:        primitive.NewObjectID(),
		Creator:   caller.ID,
		Title:     req.Title,
		Content:   req.Content,
		Category:  req.Category,
		Audience:  req.Audience,
		Priority:  req.Priority,
		StartDate: now,
		EndDate:   req.EndDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.StartDate != nil {
		doc.StartDate = req.StartDate.UTC()
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := a.DB.InsertOne(ctx, doc); err != nil {
		writeError(w, "failed to create announcement", err)
		return
	}
	zap.S().Infow("announcement created", "id", doc.ID.Hex(), "audience", doc.Audience, "by", caller.ID.Hex())
	writeJSON(w, http.StatusCreated, doc)
}

// UpdateAnnouncementHandler replaces the content and schedule of an announcement.
func (a Announcement) UpdateAnnouncementHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	id, err := objectID(mux.Vars(r), "id")
	if err != nil {
		writeError(w, "", err)
		return
	}
	var req models.AnnouncementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}
	if err := validateAnnouncement(&req); err != nil {
		writeError(w, "", err)
		return
	}

	set := bson.M{
		"title":     req.Title,
		"content":   req.Content,
		"category":  req.Category,
		"audience":  req.Audience,
		"priority":  req.Priority,
		"endDate":   req.EndDate,
		"updatedAt": a.now(),
	}
	if req.StartDate != nil {
		set["startDate"] = req.StartDate.UTC()
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	doc, err := a.DB.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		writeError(w, "announcement not found", err)
		return
	}
	if doc.EndDate != nil && doc.EndDate.Before(doc.StartDate) {
		zap.S().Warnw("announcement ends before it starts", "id", id.Hex())
	}
	zap.S().Infow("announcement updated", "id", id.Hex(), "by", caller.ID.Hex())
	writeJSON(w, http.StatusOK, doc)
}

// DeleteAnnouncementHandler removes an announcement.
func (a Announcement) DeleteAnnouncementHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	id, err := objectID(mux.Vars(r), "id")
	if err != nil {
		writeError(w, "", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	n, err := a.DB.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		writeError(w, "failed to delete announcement", err)
		return
	}
	if n == 0 {
		writeError(w, "announcement not found", databases.ErrNotFound)
		return
	}
	zap.S().Infow("announcement deleted", "id", id.Hex(), "by", caller.ID.Hex())
	writeJSON(w, http.StatusOK, map[string]string{"message": "announcement deleted"})
}
