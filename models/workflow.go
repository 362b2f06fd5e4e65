package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gramasevaka/gs-portal-api/workflow"
)

// WorkflowFields are shared by every officer-moderated record and are inlined
// into each record's document.
type WorkflowFields struct {
	ID              primitive.ObjectID      `json:"_id" bson:"_id"`
	Number          string                  `json:"number" bson:"number"`
	Submitter       primitive.ObjectID      `json:"submitter" bson:"submitter"`
	Status          workflow.Status         `json:"status" bson:"status"`
	AssignedOfficer *primitive.ObjectID     `json:"assignedOfficer,omitempty" bson:"assignedOfficer"`
	Notes           []workflow.Note         `json:"notes" bson:"notes"`
	History         []workflow.StatusChange `json:"history" bson:"history"`
	Attachments     []workflow.Attachment   `json:"attachments" bson:"attachments"`
	ResolvedAt      *time.Time              `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
	CreatedAt       time.Time               `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time               `json:"updatedAt" bson:"updatedAt"`
}

// Fields gives generic code access to the shared workflow fields.
func (w *WorkflowFields) Fields() *WorkflowFields { return w }

// NewWorkflowFields initialises the shared fields of a freshly submitted record.
func NewWorkflowFields(m *workflow.Machine, number string, submitter primitive.ObjectID, now time.Time) WorkflowFields {
	return WorkflowFields{
		ID:          primitive.NewObjectID(),
		Number:      number,
		Submitter:   submitter,
		Status:      m.Initial(),
		Notes:       []workflow.Note{},
		History:     []workflow.StatusChange{},
		Attachments: []workflow.Attachment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// GeoPoint is a GeoJSON point; coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string     `json:"type" bson:"type"`
	Coordinates [2]float64 `json:"coordinates" bson:"coordinates"`
}

// NewGeoPoint builds a point from latitude and longitude.
func NewGeoPoint(lat, lng float64) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

// Page is the envelope for every paginated listing.
type Page struct {
	Items       interface{} `json:"items"`
	Total       int64       `json:"total"`
	PageCount   int         `json:"pageCount"`
	CurrentPage int         `json:"currentPage"`
}

// StatusUpdateRequest is the body of every officer status endpoint.
type StatusUpdateRequest struct {
	Status   workflow.Status `json:"status"`
	Note     string          `json:"note,omitempty"`
	IsPublic *bool           `json:"isPublic,omitempty"`
}

// NoteRequest is the body of every add-note endpoint.
type NoteRequest struct {
	Content  string `json:"content"`
	IsPublic *bool  `json:"isPublic,omitempty"`
}
