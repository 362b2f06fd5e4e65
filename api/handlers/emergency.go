package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/gramasevaka/gs-portal-api/api"
	"github.com/gramasevaka/gs-portal-api/databases"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

const earthRadiusKm = 6378.1

var (
	emergencyTypes = []string{"fire", "flood", "medical", "crime", "accident", "other"}
	severities     = []string{"low", "medium", "high", "critical"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func validCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Emergency handles emergency reports.
type Emergency struct {
	Records[models.Emergency, *models.Emergency]
}

// NewEmergency builds the emergency handlers.
func NewEmergency(d Deps, db databases.EmergencyDatabase) Emergency {
	return Emergency{Records: NewRecords[models.Emergency](d, db, workflow.Emergencies)}
}

func validateEmergency(req *models.EmergencyRequest) error {
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	req.Severity = strings.ToLower(strings.TrimSpace(req.Severity))
	if req.Severity == "" {
		req.Severity = "medium"
	}
	switch {
	case !oneOf(req.Type, emergencyTypes):
		return invalid("type must be one of %s", strings.Join(emergencyTypes, ", "))
	case !oneOf(req.Severity, severities):
		return invalid("severity must be one of %s", strings.Join(severities, ", "))
	case strings.TrimSpace(req.Description) == "":
		return invalid("description is required")
	case (req.Latitude == nil) != (req.Longitude == nil):
		return invalid("latitude and longitude must be given together")
	case req.Latitude == nil && strings.TrimSpace(req.Address) == "":
		return invalid("an address or coordinates are required")
	case req.Latitude != nil && !validCoordinates(*req.Latitude, *req.Longitude):
		return invalid("coordinates are out of range")
	}
	return nil
}

// ReportHandler files an emergency report. Up to five photos may be attached
// under the "photos" multipart field. Connected officers are told at once.
func (e Emergency) ReportHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	var req models.EmergencyRequest
	staged, err := decodeSubmission(ctx, e.Store, r, &req, "photos", maxPhotos)
	if err != nil {
		writeError(w, "failed to read report", err)
		return
	}
	if err := validateEmergency(&req); err != nil {
		discardStaged(ctx, e.Store, staged)
		writeError(w, "", err)
		return
	}

	now := e.now()
	number, err := e.nextNumber(ctx, "", now)
	if err != nil {
		discardStaged(ctx, e.Store, staged)
		writeError(w, "failed to assign report number", err)
		return
	}
	doc := &models.Emergency{
		WorkflowFields: models.NewWorkflowFields(e.Machine, number, caller.ID, now),
		Type:           req.Type,
		Severity:       req.Severity,
		Description:    strings.TrimSpace(req.Description),
		Address:        strings.TrimSpace(req.Address),
		ContactPhone:   req.ContactPhone,
	}
	if req.Latitude != nil {
		doc.Location = models.NewGeoPoint(*req.Latitude, *req.Longitude)
	}
	doc.Attachments = attachmentsFrom(staged, now)

	if err := e.create(ctx, doc, staged); err != nil {
		writeError(w, "failed to submit report", err)
		return
	}
	if e.Feed != nil {
		e.Feed.Publish(feedReported, doc)
	}
	writeJSON(w, http.StatusCreated, doc)
}

// ListHandler lists emergencies. Officers may narrow the list to reports
// within radiusKm of lat/lng.
func (e Emergency) ListHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, "", err)
		return
	}
	v := r.URL.Query()
	filter := bson.M{}
	if t := v.Get("type"); t != "" {
		filter["type"] = t
	}
	if s := v.Get("severity"); s != "" {
		filter["severity"] = s
	}
	if v.Get("lat") != "" || v.Get("lng") != "" {
		within, err := withinRadius(v.Get("lat"), v.Get("lng"), v.Get("radiusKm"))
		if err != nil {
			writeError(w, "", err)
			return
		}
		filter["location"] = within
	}

	page, err := e.list(r, caller, q, filter, "type", databases.NewestFirst)
	if err != nil {
		writeError(w, "failed to get emergencies", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// withinRadius builds a $geoWithin filter. $geoWithin, unlike $near, can be
// counted, so it works with paged listings.
func withinRadius(latS, lngS, radiusS string) (bson.M, error) {
	lat, err1 := strconv.ParseFloat(latS, 64)
	lng, err2 := strconv.ParseFloat(lngS, 64)
	if err1 != nil || err2 != nil || !validCoordinates(lat, lng) {
		return nil, invalid("lat and lng must be valid coordinates")
	}
	radius := 5.0
	if radiusS != "" {
		if radius, err1 = strconv.ParseFloat(radiusS, 64); err1 != nil || radius <= 0 {
			return nil, invalid("radiusKm must be a positive number")
		}
	}
	return bson.M{"$geoWithin": bson.M{
		"$centerSphere": bson.A{bson.A{lng, lat}, radius / earthRadiusKm},
	}}, nil
}
