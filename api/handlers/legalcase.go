package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/gramasevaka/gs-portal-api/api"
	"github.com/gramasevaka/gs-portal-api/databases"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

var (
	caseTypes  = []string{"land-dispute", "family", "neighbour", "boundary", "other"}
	priorities = []string{"low", "medium", "high"}
)

// LegalCase handles mediation and legal case filings.
type LegalCase struct {
	Records[models.LegalCase, *models.LegalCase]
}

// NewLegalCase builds the legal case handlers.
func NewLegalCase(d Deps, db databases.LegalCaseDatabase) LegalCase {
	return LegalCase{Records: NewRecords[models.LegalCase](d, db, workflow.LegalCases)}
}

func validateLegalCase(req *models.LegalCaseRequest) error {
	req.CaseType = strings.ToLower(strings.TrimSpace(req.CaseType))
	req.Priority = strings.ToLower(strings.TrimSpace(req.Priority))
	if req.Priority == "" {
		req.Priority = "medium"
	}
	switch {
	case !oneOf(req.CaseType, caseTypes):
		return invalid("caseType must be one of %s", strings.Join(caseTypes, ", "))
	case !oneOf(req.Priority, priorities):
		return invalid("priority must be one of %s", strings.Join(priorities, ", "))
	case strings.TrimSpace(req.Title) == "":
		return invalid("title is required")
	case strings.TrimSpace(req.Description) == "":
		return invalid("description is required")
	case req.OpposingParty != nil && strings.TrimSpace(req.OpposingParty.Name) == "":
		return invalid("opposingParty.name is required")
	}
	return nil
}

// FileHandler files a legal case. Evidence may be attached under the
// "documents" multipart field.
func (lc LegalCase) FileHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	var req models.LegalCaseRequest
	staged, err := decodeSubmission(ctx, lc.Store, r, &req, "documents", maxDocuments)
	if err != nil {
		writeError(w, "failed to read case", err)
		return
	}
	if err := validateLegalCase(&req); err != nil {
		discardStaged(ctx, lc.Store, staged)
		writeError(w, "", err)
		return
	}

	now := lc.now()
	number, err := lc.nextNumber(ctx, "", now)
	if err != nil {
		discardStaged(ctx, lc.Store, staged)
		writeError(w, "failed to assign case number", err)
		return
	}
	doc := &models.LegalCase{
		WorkflowFields: models.NewWorkflowFields(lc.Machine, number, caller.ID, now),
		CaseType:       req.CaseType,
		Title:          strings.TrimSpace(req.Title),
		Description:    strings.TrimSpace(req.Description),
		Priority:       req.Priority,
		OpposingParty:  req.OpposingParty,
	}
	doc.Attachments = attachmentsFrom(staged, now)

	if err := lc.create(ctx, doc, staged); err != nil {
		writeError(w, "failed to file case", err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// ListHandler lists legal cases.
func (lc LegalCase) ListHandler(w http.ResponseWriter, r *http.Request) {
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
	if p := r.URL.Query().Get("priority"); p != "" {
		filter["priority"] = p
	}

	page, err := lc.list(r, caller, q, filter, "caseType", databases.NewestFirst)
	if err != nil {
		writeError(w, "failed to get legal cases", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// StatusHandler applies an officer status change. Closing or resolving a
// case also cancels its scheduled hearing.
func (lc LegalCase) StatusHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStatus(w, r)
	if !ok {
		return
	}
	c := change{To: req.Status, Note: req.Note, Public: isPublic(req.IsPublic)}
	lc.respondTransition(w, r, c, func(cur *models.LegalCase, c *change) error {
		if !lc.Machine.Valid(c.To) || !lc.Machine.IsTerminal(c.To) {
			return nil
		}
		if cur.Hearing == nil || cur.Hearing.Status != models.HearingScheduled {
			return nil
		}
		c.Set = bson.M{
			"hearing.status":      models.HearingCancelled,
			"hearing.cancelledAt": lc.now(),
			"hearing.reason":      fmt.Sprintf("case %s", c.To),
		}
		c.Filter = bson.M{"hearing.status": models.HearingScheduled}
		return nil
	})
}

// SetHearingHandler schedules, or reschedules, the mediation hearing of an
// open case.
func (lc LegalCase) SetHearingHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	id, err := objectID(mux.Vars(r), "id")
	if err != nil {
		writeError(w, "", err)
		return
	}
	var req models.HearingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}
	if _, err := parseDay(req.Date); err != nil {
		writeError(w, "", err)
		return
	}
	now := lc.now()
	switch {
	case req.Date < now.Format(dateLayout):
		writeError(w, "", invalid("date is in the past"))
		return
	case !validSlot(req.TimeSlot):
		writeError(w, "", invalid("timeSlot must be one of %s", strings.Join(OfficeSlots(), ", ")))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	current, err := lc.load(ctx, id, caller)
	if err != nil {
		writeError(w, "failed to get legal case", err)
		return
	}
	if lc.Machine.IsTerminal(current.Status) {
		writeError(w, "", fmt.Errorf("%w: case %s is %s", workflow.ErrTerminal, current.Number, current.Status))
		return
	}

	filter := bson.M{"_id": id, "status": bson.M{"$in": lc.openStatuses()}}
	set := bson.M{
		"hearing":   models.Hearing{Date: req.Date, TimeSlot: req.TimeSlot, Venue: req.Venue, Status: models.HearingScheduled},
		"updatedAt": now,
	}
	if current.AssignedOfficer == nil {
		set["assignedOfficer"] = caller.ID
		filter["assignedOfficer"] = nil
	}
	note := req.Note
	if strings.TrimSpace(note) == "" {
		note = fmt.Sprintf("Hearing scheduled for %s %s", req.Date, req.TimeSlot)
	}
	update := bson.M{
		"$set":  set,
		"$push": bson.M{"notes": workflow.NewNote(note, caller.ID, caller.Role, true, now)},
	}

	updated, err := lc.DB.FindOneAndUpdate(ctx, filter, update)
	if err != nil {
		writeError(w, "failed to schedule hearing", conflictIfMissing(err, "case %s was changed by someone else", current.Number))
		return
	}
	zap.S().Infow("hearing scheduled", "number", current.Number, "date", req.Date, "slot", req.TimeSlot, "by", caller.ID.Hex())
	writeJSON(w, http.StatusOK, updated)
}

// CancelHearingHandler cancels a scheduled hearing whose date has not
// passed. Both the submitter and officers may cancel.
func (lc LegalCase) CancelHearingHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	id, err := objectID(mux.Vars(r), "id")
	if err != nil {
		writeError(w, "", err)
		return
	}
	var req models.CancelRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	current, err := lc.load(ctx, id, caller)
	if err != nil {
		writeError(w, "failed to get legal case", err)
		return
	}
	now := lc.now()
	h := current.Hearing
	switch {
	case lc.Machine.IsTerminal(current.Status):
		writeError(w, "", fmt.Errorf("%w: case %s is %s", workflow.ErrTerminal, current.Number, current.Status))
		return
	case h == nil || h.Status != models.HearingScheduled:
		writeError(w, "", fmt.Errorf("%w: case %s has no scheduled hearing", workflow.ErrNotCancellable, current.Number))
		return
	case h.Date < now.Format(dateLayout):
		writeError(w, "", fmt.Errorf("%w: the hearing of case %s has already taken place", workflow.ErrNotCancellable, current.Number))
		return
	}

	note := "Hearing cancelled"
	if strings.TrimSpace(req.Reason) != "" {
		note += ": " + req.Reason
	}
	filter := bson.M{
		"_id":              id,
		"status":           bson.M{"$in": lc.openStatuses()},
		"hearing.status":   models.HearingScheduled,
		"hearing.date":     h.Date,
		"hearing.timeSlot": h.TimeSlot,
	}
	update := bson.M{
		"$set": bson.M{
			"hearing.status":      models.HearingCancelled,
			"hearing.cancelledAt": now,
			"hearing.reason":      req.Reason,
			"updatedAt":           now,
		},
		"$push": bson.M{"notes": workflow.NewNote(note, caller.ID, caller.Role, true, now)},
	}
	updated, err := lc.DB.FindOneAndUpdate(ctx, filter, update)
	if err != nil {
		writeError(w, "failed to cancel hearing", conflictIfMissing(err, "the hearing of case %s was changed by someone else", current.Number))
		return
	}
	zap.S().Infow("hearing cancelled", "number", current.Number, "by", caller.ID.Hex(), "role", caller.Role)
	writeJSON(w, http.StatusOK, lc.redact(updated, caller))
}

// conflictIfMissing turns a failed conditional update into a conflict.
func conflictIfMissing(err error, format string, args ...interface{}) error {
	if errors.Is(err, databases.ErrNotFound) {
		return fmt.Errorf("%w: %s", workflow.ErrConflict, fmt.Sprintf(format, args...))
	}
	return err
}
