package handlers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/gramasevaka/gs-portal-api/api"
	"github.com/gramasevaka/gs-portal-api/config"
	"github.com/gramasevaka/gs-portal-api/databases"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

var serviceCode = regexp.MustCompile(`^[A-Z]{2,4}$`)

var byName = bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}

// Service exposes the service catalog
type Service struct {
	Deps
	DB  databases.ServiceDatabase
	RDB databases.ServiceRequestDatabase
}

func validateService(in *models.ServiceInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	switch {
	case in.Name == "":
		return invalid("name is required")
	case !serviceCode.MatchString(in.Code):
		return invalid("code must be 2 to 4 letters")
	case in.Fee < 0:
		return invalid("fee cannot be negative")
	case in.ProcessingDays < 0:
		return invalid("processingDays cannot be negative")
	}
	if in.RequiredDocuments == nil {
		in.RequiredDocuments = []string{}
	}
	return nil
}

// includeInactive reports whether an officer asked to see inactive entries.
func includeInactive(r *http.Request) bool {
	caller, ok := api.CallerFromContext(r.Context())
	return ok && caller.IsOfficer() && r.URL.Query().Get("includeInactive") == "true"
}

// ListHandler returns active services, optionally filtered by category or text search
func (s Service) ListHandler(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, "", err)
		return
	}
	filter := bson.M{"isActive": true}
	if includeInactive(r) {
		delete(filter, "isActive")
	}
	q.Status = ""
	if err := q.apply(filter, nil, "category"); err != nil {
		writeError(w, "", err)
		return
	}

	items, total, err := listPage[models.Service](r, s.DB, filter, q, byName)
	if err != nil {
		config.ErrorStatus("failed to get services", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, q.page(items, total))
}

// GetHandler returns a single service
func (s Service) GetHandler(w http.ResponseWriter, r *http.Request) {
	id, err := objectID(mux.Vars(r), "id")
	if err != nil {
		writeError(w, "", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	svc, err := s.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		writeError(w, "failed to get service", err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

// CreateHandler adds a service to the catalog
func (s Service) CreateHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	var in models.ServiceInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, "", err)
		return
	}
	if err := validateService(&in); err != nil {
		writeError(w, "", err)
		return
	}

	now := s.now()
	svc := models.Service{
		ID:                primitive.NewObjectID(),
		Name:              in.Name,
		Code:              in.Code,
		Description:       in.Description,
		Category:          in.Category,
		RequiredDocuments: in.RequiredDocuments,
		ProcessingDays:    in.ProcessingDays,
		Fee:               in.Fee,
		IsActive:          in.IsActive == nil || *in.IsActive,
		CreatedBy:         caller.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := s.DB.InsertOne(ctx, &svc); err != nil {
		writeError(w, "a service with this code already exists", err)
		return
	}
	zap.S().Infow("service created", "code", svc.Code, "by", caller.ID.Hex())
	writeJSON(w, http.StatusCreated, svc)
}

// UpdateHandler replaces the editable fields of a service
func (s Service) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := objectID(mux.Vars(r), "id")
	if err != nil {
		writeError(w, "", err)
		return
	}
	var in models.ServiceInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, "", err)
		return
	}
	if err := validateService(&in); err != nil {
		writeError(w, "", err)
		return
	}

	set := bson.M{
		"name":              in.Name,
		"code":              in.Code,
		"description":       in.Description,
		"category":          in.Category,
		"requiredDocuments": in.RequiredDocuments,
		"processingDays":    in.ProcessingDays,
		"fee":               in.Fee,
		"updatedAt":         s.now(),
	}
	if in.IsActive != nil {
		set["isActive"] = *in.IsActive
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	svc, err := s.DB.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		writeError(w, "failed to update service", err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

// DeleteHandler removes a service. Services with pending requests cannot be deleted.
func (s Service) DeleteHandler(w http.ResponseWriter, r *http.Request) {
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

	pending, err := s.RDB.CountDocuments(ctx, bson.M{"service": id, "status": workflow.StatusPending})
	if err != nil {
		config.ErrorStatus("failed to check pending requests", http.StatusInternalServerError, w, err)
		return
	}
	if pending > 0 {
		config.ErrorStatus("service has pending requests and cannot be deleted", http.StatusConflict, w, nil)
		return
	}

	n, err := s.DB.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		config.ErrorStatus("failed to delete service", http.StatusInternalServerError, w, err)
		return
	}
	if n == 0 {
		config.ErrorStatus("service not found", http.StatusNotFound, w, nil)
		return
	}
	zap.S().Infow("service deleted", "service", id.Hex(), "by", caller.ID.Hex())
	writeJSON(w, http.StatusOK, map[string]string{"message": "service deleted"})
}
