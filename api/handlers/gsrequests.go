package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/gramasevaka/gs-portal-api/api"
	"github.com/gramasevaka/gs-portal-api/config"
	"github.com/gramasevaka/gs-portal-api/databases"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/payments"
	"github.com/gramasevaka/gs-portal-api/storage"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

// ServiceRequest handles applications for catalog services, from the
// citizen's application through officer review.
type ServiceRequest struct {
	Records[models.ServiceRequest, *models.ServiceRequest]
	Services databases.ServiceDatabase
}

// NewServiceRequest builds the service request handlers.
func NewServiceRequest(d Deps, db databases.ServiceRequestDatabase, services databases.ServiceDatabase) ServiceRequest {
	return ServiceRequest{
		Records:  NewRecords[models.ServiceRequest](d, db, workflow.ServiceRequests),
		Services: services,
	}
}

// ApplyHandler submits an application for a service. Supporting documents
// may be attached under the "documents" multipart field.
func (sr ServiceRequest) ApplyHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	var req models.ApplyRequest
	staged, err := decodeSubmission(ctx, sr.Store, r, &req, "documents", maxDocuments)
	if err != nil {
		writeError(w, "failed to read application", err)
		return
	}
	fail := func(message string, err error) {
		discardStaged(ctx, sr.Store, staged)
		writeError(w, message, err)
	}

	serviceID, err := primitive.ObjectIDFromHex(req.ServiceID)
	if err != nil {
		fail("", invalid("serviceId is not a valid id"))
		return
	}
	if strings.TrimSpace(req.Purpose) == "" {
		fail("", invalid("purpose is required"))
		return
	}
	svc, err := sr.Services.FindOne(ctx, bson.M{"_id": serviceID})
	if err != nil {
		fail("service not found", err)
		return
	}
	if !svc.IsActive {
		fail("", invalid("service %s is not currently offered", svc.Name))
		return
	}

	now := sr.now()
	number, err := sr.nextNumber(ctx, svc.Code, now)
	if err != nil {
		fail("failed to assign request number", err)
		return
	}

	doc := &models.ServiceRequest{
		WorkflowFields: models.NewWorkflowFields(sr.Machine, number, caller.ID, now),
		Service:        svc.ID,
		ServiceName:    svc.Name,
		ServiceCode:    svc.Code,
		Category:       svc.Category,
		Purpose:        strings.TrimSpace(req.Purpose),
		FormData:       req.FormData,
	}
	doc.Attachments = attachmentsFrom(staged, now)

	if svc.Fee > 0 && sr.Payments != nil {
		payment, err := sr.Payments.CreateIntent(ctx, svc.Fee, sr.Currency, number)
		switch {
		case errors.Is(err, payments.ErrDisabled):
		case err != nil:
			discardStaged(ctx, sr.Store, staged)
			config.ErrorStatus("failed to create payment", http.StatusBadGateway, w, err)
			return
		default:
			doc.Payment = payment
		}
	}

	if err := sr.create(ctx, doc, staged); err != nil {
		writeError(w, "failed to submit request", err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// ListHandler lists service requests. Citizens get their own, officers get
// every request and may filter by service.
func (sr ServiceRequest) ListHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, "", err)
		return
	}
	filter := bson.M{}
	if s := r.URL.Query().Get("service"); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			writeError(w, "", invalid("service is not a valid id"))
			return
		}
		filter["service"] = id
	}

	page, err := sr.list(r, caller, q, filter, "category", databases.NewestFirst)
	if err != nil {
		writeError(w, "failed to get service requests", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// AdditionalInfoHandler lets the submitter answer an information request,
// which sends the application back for review.
func (sr ServiceRequest) AdditionalInfoHandler(w http.ResponseWriter, r *http.Request) {
	var req models.InfoResponse
	ctx := r.Context()
	staged, err := decodeSubmission(ctx, sr.Store, r, &req, "documents", maxDocuments)
	if err != nil {
		writeError(w, "failed to read response", err)
		return
	}
	if strings.TrimSpace(req.Response) == "" {
		discardStaged(ctx, sr.Store, staged)
		writeError(w, "", invalid("response is required"))
		return
	}

	c := change{
		To:     workflow.StatusInReview,
		Note:   req.Response,
		Public: true,
		Set:    bson.M{"additionalInfoResponse": req.Response},
	}
	if len(staged) > 0 {
		c.Push = bson.M{"attachments": bson.M{"$each": attachmentsFrom(staged, sr.now())}}
	}
	rec, ok := sr.applyWithFiles(w, r, c, staged)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sr.redact(rec, mustCaller(r)))
}

// applyWithFiles runs a transition that also records staged files, committing
// them only if the transition succeeds.
func (sr ServiceRequest) applyWithFiles(w http.ResponseWriter, r *http.Request, c change, staged []storage.Staged) (*models.ServiceRequest, bool) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		discardStaged(r.Context(), sr.Store, staged)
		return nil, false
	}
	id, err := objectID(mux.Vars(r), "id")
	if err != nil {
		discardStaged(r.Context(), sr.Store, staged)
		writeError(w, "", err)
		return nil, false
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	rec, err := sr.transition(ctx, id, caller, c)
	if err != nil {
		discardStaged(ctx, sr.Store, staged)
		writeError(w, "failed to update service request", err)
		return nil, false
	}
	if len(staged) > 0 {
		if err := storage.CommitAll(ctx, sr.Store, staged); err != nil {
			zap.S().Errorw("failed to commit attachments", "number", rec.Number, "error", err)
		}
	}
	return rec, true
}

// PaymentHandler refreshes and returns the fee payment of a request.
func (sr ServiceRequest) PaymentHandler(w http.ResponseWriter, r *http.Request) {
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

	rec, err := sr.load(ctx, id, caller)
	if err != nil {
		writeError(w, "failed to get service request", err)
		return
	}
	if rec.Payment == nil {
		config.ErrorStatus("this request has no payment", http.StatusNotFound, w, nil)
		return
	}
	if sr.Payments == nil {
		writeJSON(w, http.StatusOK, rec.Payment)
		return
	}

	current, err := sr.Payments.Refresh(ctx, rec.Payment.IntentID)
	if errors.Is(err, payments.ErrDisabled) {
		writeJSON(w, http.StatusOK, rec.Payment)
		return
	}
	if err != nil {
		config.ErrorStatus("failed to get payment", http.StatusBadGateway, w, err)
		return
	}
	if current.Status != rec.Payment.Status {
		if _, err := sr.DB.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"payment.status": current.Status}}); err != nil {
			zap.S().Errorw("failed to store payment status", "number", rec.Number, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, current)
}

// ApproveHandler approves a request with an expected completion date.
func (sr ServiceRequest) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ApproveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}
	due, err := parseBound(req.ExpectedCompletionDate, false)
	if err != nil || due == nil {
		writeError(w, "", invalid("expectedCompletionDate must be YYYY-MM-DD or RFC 3339"))
		return
	}
	sr.respondTransition(w, r, change{
		To:     workflow.StatusApproved,
		Note:   req.Note,
		Public: true,
		Set:    bson.M{"expectedCompletionDate": *due},
	}, nil)
}

// RejectHandler rejects a request. The reason is shown to the citizen.
func (sr ServiceRequest) RejectHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RejectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		writeError(w, "", invalid("reason is required"))
		return
	}
	sr.respondTransition(w, r, change{
		To:     workflow.StatusRejected,
		Note:   req.Reason,
		Public: true,
		Set:    bson.M{"rejectionReason": req.Reason},
	}, nil)
}

// RequestInfoHandler asks the citizen for more information.
func (sr ServiceRequest) RequestInfoHandler(w http.ResponseWriter, r *http.Request) {
	var req models.InfoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, "", invalid("message is required"))
		return
	}
	sr.respondTransition(w, r, change{
		To:     workflow.StatusAdditionalInfo,
		Note:   req.Message,
		Public: true,
		Set:    bson.M{"additionalInfoRequest": req.Message},
	}, nil)
}

// StatusHandler applies the remaining officer transitions. Approval,
// rejection and information requests carry extra data and have their own
// endpoints.
func (sr ServiceRequest) StatusHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStatus(w, r)
	if !ok {
		return
	}
	c := change{To: req.Status, Note: req.Note, Public: isPublic(req.IsPublic)}
	switch req.Status {
	case workflow.StatusApproved, workflow.StatusRejected, workflow.StatusAdditionalInfo:
		writeError(w, "", invalid("use the %s endpoint to move a request to %s", endpointFor(req.Status), req.Status))
		return
	case workflow.StatusCompleted:
		c.Set = bson.M{"completedAt": sr.now()}
	}
	sr.respondTransition(w, r, c, nil)
}

func endpointFor(s workflow.Status) string {
	switch s {
	case workflow.StatusApproved:
		return "approve"
	case workflow.StatusRejected:
		return "reject"
	default:
		return "request-info"
	}
}

// mustCaller returns the caller of a request that already passed callerOrAbort.
func mustCaller(r *http.Request) api.Caller {
	caller, _ := api.CallerFromContext(r.Context())
	return caller
}
