package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/gramasevaka/gs-portal-api/api"
	"github.com/gramasevaka/gs-portal-api/databases"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

const (
	defaultNearMeters = 2000
	maxNearMeters     = 50000
)

var locationTypes = []string{"residence", "business", "temple", "school", "hospital", "public", "other"}

// Location handles the register of places in the division.
type Location struct {
	DB  databases.LocationDatabase
	Now func() time.Time
}

func (l Location) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now().UTC()
}

func validateLocation(req *models.LocationRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	if req.Type == "" {
		req.Type = "other"
	}
	switch {
	case req.Name == "":
		return invalid("name is required")
	case !oneOf(req.Type, locationTypes):
		return invalid("type must be one of %s", strings.Join(locationTypes, ", "))
	case strings.TrimSpace(req.Address) == "":
		return invalid("address is required")
	case !validCoordinates(req.Latitude, req.Longitude):
		return invalid("coordinates are out of range")
	}
	return nil
}

// CreateHandler registers a place. Places registered by officers are
// verified on creation.
func (l Location) CreateHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	var req models.LocationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}
	if err := validateLocation(&req); err != nil {
		writeError(w, "", err)
		return
	}

	now := l.now()
	doc := &models.Location{
		ID:            primitive.NewObjectID(),
		Name:          req.Name,
		Type:          req.Type,
		Address:       strings.TrimSpace(req.Address),
		Coordinates:   *models.NewGeoPoint(req.Latitude, req.Longitude),
		Description:   req.Description,
		ContactNumber: req.ContactNumber,
		RegisteredBy:  caller.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if caller.IsOfficer() {
		doc.Verified = true
		doc.VerifiedBy = &caller.ID
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := l.DB.InsertOne(ctx, doc); err != nil {
		writeError(w, "failed to register location", err)
		return
	}
	zap.S().Infow("location registered", "name", doc.Name, "type", doc.Type, "by", caller.ID.Hex(), "verified", doc.Verified)
	writeJSON(w, http.StatusCreated, doc)
}

// ListHandler lists registered places by name.
func (l Location) ListHandler(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, "", err)
		return
	}
	filter := bson.M{}
	if t := r.URL.Query().Get("type"); t != "" {
		filter["type"] = t
	}
	if v := r.URL.Query().Get("verified"); v != "" {
		verified, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, "", invalid("verified must be true or false"))
			return
		}
		filter["verified"] = verified
	}
	q.Status = ""
	if err := q.apply(filter, nil, ""); err != nil {
		writeError(w, "", err)
		return
	}

	items, total, err := listPage[models.Location](r, l.DB, filter, q, byName)
	if err != nil {
		writeError(w, "failed to get locations", err)
		return
	}
	writeJSON(w, http.StatusOK, q.page(items, total))
}

// NearHandler returns the places closest to lat/lng, nearest first, within
// radius meters.
func (l Location) NearHandler(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	lat, err1 := strconv.ParseFloat(v.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(v.Get("lng"), 64)
	if err1 != nil || err2 != nil || !validCoordinates(lat, lng) {
		writeError(w, "", invalid("lat and lng must be valid coordinates"))
		return
	}
	radius := defaultNearMeters
	if s := v.Get("radius"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, "", invalid("radius must be a positive number of meters"))
			return
		}
		radius = n
	}
	if radius > maxNearMeters {
		radius = maxNearMeters
	}
	limit := defaultLimit
	if n, err := strconv.Atoi(v.Get("limit")); err == nil && n > 0 {
		limit = n
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	filter := bson.M{"coordinates": bson.M{"$nearSphere": bson.M{
		"$geometry":    models.NewGeoPoint(lat, lng),
		"$maxDistance": radius,
	}}}
	if t := v.Get("type"); t != "" {
		filter["type"] = t
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	items, err := l.DB.Find(ctx, filter, options.Find().SetLimit(int64(limit)))
	if err != nil {
		writeError(w, "failed to get nearby locations", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetHandler returns one place.
func (l Location) GetHandler(w http.ResponseWriter, r *http.Request) {
	id, err := objectID(mux.Vars(r), "id")
	if err != nil {
		writeError(w, "", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	doc, err := l.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		writeError(w, "location not found", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// VerifyHandler marks a place as verified by the calling officer.
func (l Location) VerifyHandler(w http.ResponseWriter, r *http.Request) {
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

	doc, err := l.DB.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"verified":   true,
		"verifiedBy": caller.ID,
		"updatedAt":  l.now(),
	}})
	if err != nil {
		writeError(w, "location not found", err)
		return
	}
	zap.S().Infow("location verified", "id", id.Hex(), "by", caller.ID.Hex())
	writeJSON(w, http.StatusOK, doc)
}

// DeleteHandler removes a place. Only its registrant or an officer may.
func (l Location) DeleteHandler(w http.ResponseWriter, r *http.Request) {
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

	filter := bson.M{"_id": id}
	if !caller.IsOfficer() {
		filter["registeredBy"] = caller.ID
	}
	n, err := l.DB.DeleteOne(ctx, filter)
	if err != nil {
		writeError(w, "failed to delete location", err)
		return
	}
	if n == 0 {
		if _, err := l.DB.FindOne(ctx, bson.M{"_id": id}); err != nil {
			writeError(w, "location not found", err)
			return
		}
		writeError(w, "", fmt.Errorf("%w: only the registrant or an officer can remove a location", workflow.ErrForbidden))
		return
	}
	zap.S().Infow("location deleted", "id", id.Hex(), "by", caller.ID.Hex(), "role", caller.Role)
	writeJSON(w, http.StatusOK, map[string]string{"message": "location deleted"})
}
