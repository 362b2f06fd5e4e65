package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/gramasevaka/gs-portal-api/api"
	"github.com/gramasevaka/gs-portal-api/config"
	"github.com/gramasevaka/gs-portal-api/databases"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/notifications"
	"github.com/gramasevaka/gs-portal-api/payments"
	"github.com/gramasevaka/gs-portal-api/storage"
	templates "github.com/gramasevaka/gs-portal-api/templates/html"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

const notifyTimeout = 15 * time.Second

// Deps are the collaborators shared by the handlers.
type Deps struct {
	Users    databases.UserDatabase
	Counters databases.CounterDatabase
	Store    storage.Store
	Notifier notifications.Notifier
	Payments payments.Provider
	Feed     *LiveFeed
	Currency string
	Now      func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

// record is a pointer to a document that carries the shared workflow fields.
type record[T any] interface {
	*T
	Fields() *models.WorkflowFields
}

// Records implements the operations every workflow collection shares:
// role-scoped reads, status transitions, notes and deletion.
type Records[T any, PT record[T]] struct {
	Deps
	DB      databases.EntityDatabase[T]
	Machine *workflow.Machine
}

// NewRecords builds the shared workflow operations for one collection.
func NewRecords[T any, PT record[T]](d Deps, db databases.EntityDatabase[T], m *workflow.Machine) Records[T, PT] {
	return Records[T, PT]{Deps: d, DB: db, Machine: m}
}

// change describes one status transition.
type change struct {
	To     workflow.Status
	Note   string
	Public bool
	// Set, Push and Filter extend the update and its match condition.
	Set    bson.M
	Push   bson.M
	Filter bson.M
}

func (rs Records[T, PT]) kind() string { return string(rs.Machine.Kind()) }

// load fetches a record the caller may see. Citizens only see their own
// records; anything else reads as not found.
func (rs Records[T, PT]) load(ctx context.Context, id primitive.ObjectID, caller api.Caller) (PT, error) {
	doc, err := rs.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	rec := PT(doc)
	if !caller.IsOfficer() && rec.Fields().Submitter != caller.ID {
		return nil, databases.ErrNotFound
	}
	return rec, nil
}

// redact hides officer-only notes from citizens.
func (rs Records[T, PT]) redact(rec PT, caller api.Caller) PT {
	f := rec.Fields()
	f.Notes = workflow.VisibleNotes(f.Notes, caller.IsOfficer())
	return rec
}

func (rs Records[T, PT]) nextNumber(ctx context.Context, prefix string, at time.Time) (string, error) {
	kind := rs.Machine.Kind()
	seq, err := rs.Counters.Next(ctx, workflow.CounterScope(kind, at, prefix))
	if err != nil {
		return "", fmt.Errorf("allocate %s number: %w", kind, err)
	}
	return workflow.FormatNumber(kind, at, prefix, seq), nil
}

// create inserts rec and then commits its staged files. Staged files are
// discarded when the insert fails.
func (rs Records[T, PT]) create(ctx context.Context, rec PT, staged []storage.Staged) error {
	if err := rs.DB.InsertOne(ctx, (*T)(rec)); err != nil {
		discardStaged(ctx, rs.Store, staged)
		return err
	}
	f := rec.Fields()
	if len(staged) > 0 {
		if err := storage.CommitAll(ctx, rs.Store, staged); err != nil {
			zap.S().Errorw("failed to commit attachments", "kind", rs.kind(), "number", f.Number, "error", err)
		}
	}
	zap.S().Infow("record submitted", "kind", rs.kind(), "number", f.Number, "submitter", f.Submitter.Hex())
	return nil
}

// transition moves a record to c.To. The update only applies if the record
// is still in the status it was read in, so concurrent changes surface as a
// conflict instead of overwriting each other. The first officer to act on an
// unassigned record becomes its assignee.
func (rs Records[T, PT]) transition(ctx context.Context, id primitive.ObjectID, caller api.Caller, c change) (PT, error) {
	return rs.transitionIf(ctx, id, caller, c, nil)
}

// transitionIf is transition with an extra precondition checked against the
// current record. The guard may also extend the change from what it reads.
func (rs Records[T, PT]) transitionIf(ctx context.Context, id primitive.ObjectID, caller api.Caller, c change, guard func(PT, *change) error) (PT, error) {
	current, err := rs.load(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if guard != nil {
		if err := guard(current, &c); err != nil {
			return nil, err
		}
	}
	f := current.Fields()
	actor := workflow.Actor{Role: caller.Role, IsSubmitter: f.Submitter == caller.ID}
	if err := rs.Machine.Check(f.Status, c.To, actor); err != nil {
		return nil, err
	}

	now := rs.now()
	filter := bson.M{"_id": id, "status": f.Status}
	set := bson.M{"status": c.To, "updatedAt": now}
	if rs.Machine.IsResolved(c.To) {
		set["resolvedAt"] = now
	}
	if caller.IsOfficer() && f.AssignedOfficer == nil {
		set["assignedOfficer"] = caller.ID
		filter["assignedOfficer"] = nil
	}
	for k, v := range c.Filter {
		filter[k] = v
	}
	for k, v := range c.Set {
		set[k] = v
	}
	push := bson.M{"history": workflow.StatusChange{From: f.Status, To: c.To, By: caller.ID, ByRole: caller.Role, At: now}}
	if strings.TrimSpace(c.Note) != "" {
		push["notes"] = workflow.NewNote(c.Note, caller.ID, caller.Role, c.Public, now)
	}
	for k, v := range c.Push {
		push[k] = v
	}

	updated, err := rs.DB.FindOneAndUpdate(ctx, filter, bson.M{"$set": set, "$push": push})
	if errors.Is(err, databases.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s %s was changed by someone else, reload and try again", workflow.ErrConflict, rs.kind(), f.Number)
	}
	if err != nil {
		return nil, err
	}

	api.RecordTransition(rs.kind(), string(c.To))
	zap.S().Infow("status changed",
		"kind", rs.kind(),
		"number", f.Number,
		"from", f.Status,
		"to", c.To,
		"by", caller.ID.Hex(),
		"role", caller.Role)

	rec := PT(updated)
	if caller.IsOfficer() {
		note := ""
		if c.Public {
			note = c.Note
		}
		rs.notify(rec.Fields(), note)
	}
	return rec, nil
}

// notify emails the submitter about a status change in the background.
func (rs Records[T, PT]) notify(f *models.WorkflowFields, note string) {
	if rs.Notifier == nil || rs.Users == nil {
		return
	}
	submitter, number, status := f.Submitter, f.Number, f.Status
	kind := strings.ReplaceAll(rs.kind(), "-", " ")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		user, err := rs.Users.FindOne(ctx, bson.M{"_id": submitter})
		if err != nil {
			zap.S().Errorw("failed to load submitter for notification", "number", number, "error", err)
			return
		}
		err = rs.Notifier.StatusChanged(ctx, notifications.Recipient{Name: user.FullName, Email: user.Email}, templates.StatusEmailData{
			FullName: user.FullName,
			Kind:     kind,
			Number:   number,
			Status:   string(status),
			Note:     note,
		})
		if err != nil {
			zap.S().Errorw("failed to send status email", "number", number, "error", err)
		}
	}()
}

// addNote appends a note. Notes are never edited or removed. Submitters
// write public notes only, and only while the record is still open.
func (rs Records[T, PT]) addNote(ctx context.Context, id primitive.ObjectID, caller api.Caller, content string, public bool) (PT, error) {
	if strings.TrimSpace(content) == "" {
		return nil, invalid("note content is required")
	}
	current, err := rs.load(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	f := current.Fields()
	filter := bson.M{"_id": id}
	if !caller.IsOfficer() {
		if rs.Machine.IsTerminal(f.Status) {
			return nil, fmt.Errorf("%w: %s %s is %s", workflow.ErrTerminal, rs.kind(), f.Number, f.Status)
		}
		public = true
		filter["status"] = bson.M{"$in": rs.openStatuses()}
	}
	now := rs.now()
	note := workflow.NewNote(content, caller.ID, caller.Role, public, now)
	updated, err := rs.DB.FindOneAndUpdate(ctx, filter, bson.M{
		"$push": bson.M{"notes": note},
		"$set":  bson.M{"updatedAt": now},
	})
	if errors.Is(err, databases.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s %s was changed by someone else, reload and try again", workflow.ErrConflict, rs.kind(), f.Number)
	}
	if err != nil {
		return nil, err
	}
	return PT(updated), nil
}

// removeAttachment drops one attachment from a record and then deletes its
// file. Submitters may only do so while the record could still be deleted.
func (rs Records[T, PT]) removeAttachment(ctx context.Context, id, attachmentID primitive.ObjectID, caller api.Caller) (PT, error) {
	current, err := rs.load(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	f := current.Fields()
	var target *workflow.Attachment
	for i := range f.Attachments {
		if f.Attachments[i].ID == attachmentID {
			target = &f.Attachments[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s %s has no attachment %s", databases.ErrNotFound, rs.kind(), f.Number, attachmentID.Hex())
	}

	filter := bson.M{"_id": id, "attachments._id": attachmentID}
	if !caller.IsOfficer() {
		if !rs.Machine.SubmitterMayDelete(f.Status) {
			return nil, fmt.Errorf("%w: %s %s is %s", workflow.ErrNotDeletable, rs.kind(), f.Number, f.Status)
		}
		filter["submitter"] = caller.ID
		filter["status"] = f.Status
	}
	now := rs.now()
	updated, err := rs.DB.FindOneAndUpdate(ctx, filter, bson.M{
		"$pull": bson.M{"attachments": bson.M{"_id": attachmentID}},
		"$set":  bson.M{"updatedAt": now},
	})
	if errors.Is(err, databases.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s %s was changed by someone else, reload and try again", workflow.ErrConflict, rs.kind(), f.Number)
	}
	if err != nil {
		return nil, err
	}
	zap.S().Infow("attachment removed", "kind", rs.kind(), "number", f.Number, "key", target.StoragePath, "by", caller.ID.Hex(), "role", caller.Role)
	deleteFiles(ctx, rs.Store, []workflow.Attachment{*target})
	return PT(updated), nil
}

// remove hard-deletes a record and then its files. Submitters may only delete
// records whose status still allows it.
func (rs Records[T, PT]) remove(ctx context.Context, id primitive.ObjectID, caller api.Caller) error {
	current, err := rs.load(ctx, id, caller)
	if err != nil {
		return err
	}
	f := current.Fields()
	filter := bson.M{"_id": id}
	if !caller.IsOfficer() {
		if !rs.Machine.SubmitterMayDelete(f.Status) {
			return fmt.Errorf("%w: %s %s is %s", workflow.ErrNotDeletable, rs.kind(), f.Number, f.Status)
		}
		filter["submitter"] = caller.ID
		filter["status"] = f.Status
	}
	n, err := rs.DB.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s was changed by someone else", workflow.ErrConflict, rs.kind(), f.Number)
	}
	zap.S().Infow("record deleted", "kind", rs.kind(), "number", f.Number, "by", caller.ID.Hex(), "role", caller.Role)
	deleteFiles(ctx, rs.Store, f.Attachments)
	return nil
}

// openStatuses lists the statuses a record can still leave.
func (rs Records[T, PT]) openStatuses() []workflow.Status {
	var out []workflow.Status
	for _, st := range rs.Machine.States() {
		if !rs.Machine.IsTerminal(st) {
			out = append(out, st)
		}
	}
	return out
}

// list returns a page of records. Citizens only ever see their own.
func (rs Records[T, PT]) list(r *http.Request, caller api.Caller, q listQuery, filter bson.M, categoryField string, sort bson.D) (models.Page, error) {
	if !caller.IsOfficer() {
		filter["submitter"] = caller.ID
	}
	if err := q.apply(filter, rs.Machine, categoryField); err != nil {
		return models.Page{}, err
	}
	items, total, err := listPage(r, rs.DB, filter, q, sort)
	if err != nil {
		return models.Page{}, err
	}
	for i := range items {
		rs.redact(PT(&items[i]), caller)
	}
	return q.page(items, total), nil
}

// GetHandler returns one record.
func (rs Records[T, PT]) GetHandler(w http.ResponseWriter, r *http.Request) {
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

	rec, err := rs.load(ctx, id, caller)
	if err != nil {
		writeError(w, fmt.Sprintf("failed to get %s", rs.kind()), err)
		return
	}
	writeJSON(w, http.StatusOK, rs.redact(rec, caller))
}

// StatusHandler applies an officer status change.
func (rs Records[T, PT]) StatusHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStatus(w, r)
	if !ok {
		return
	}
	rs.respondTransition(w, r, change{To: req.Status, Note: req.Note, Public: isPublic(req.IsPublic)}, nil)
}

// respondTransition runs a transition on the record named by the id route
// variable and writes the updated record.
func (rs Records[T, PT]) respondTransition(w http.ResponseWriter, r *http.Request, c change, guard func(PT, *change) error) {
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

	rec, err := rs.transitionIf(ctx, id, caller, c, guard)
	if err != nil {
		writeError(w, fmt.Sprintf("failed to update %s status", rs.kind()), err)
		return
	}
	rs.published(rec)
	writeJSON(w, http.StatusOK, rs.redact(rec, caller))
}

func decodeStatus(w http.ResponseWriter, r *http.Request) (models.StatusUpdateRequest, bool) {
	var req models.StatusUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return req, false
	}
	if req.Status == "" {
		writeError(w, "", invalid("status is required"))
		return req, false
	}
	return req, true
}

// NoteHandler appends a note to a record.
func (rs Records[T, PT]) NoteHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	id, err := objectID(mux.Vars(r), "id")
	if err != nil {
		writeError(w, "", err)
		return
	}
	var req models.NoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	rec, err := rs.addNote(ctx, id, caller, req.Content, isPublic(req.IsPublic))
	if err != nil {
		writeError(w, "failed to add note", err)
		return
	}
	writeJSON(w, http.StatusCreated, rs.redact(rec, caller))
}

// DeleteHandler deletes a record and its attachments.
func (rs Records[T, PT]) DeleteHandler(w http.ResponseWriter, r *http.Request) {
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

	if err := rs.remove(ctx, id, caller); err != nil {
		writeError(w, fmt.Sprintf("failed to delete %s", rs.kind()), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("%s deleted", rs.kind())})
}

// RemoveAttachmentHandler removes one attachment from a record.
func (rs Records[T, PT]) RemoveAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	v := mux.Vars(r)
	id, err := objectID(v, "id")
	if err != nil {
		writeError(w, "", err)
		return
	}
	attachmentID, err := objectID(v, "attachmentId")
	if err != nil {
		writeError(w, "", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	rec, err := rs.removeAttachment(ctx, id, attachmentID, caller)
	if err != nil {
		writeError(w, "failed to remove attachment", err)
		return
	}
	writeJSON(w, http.StatusOK, rs.redact(rec, caller))
}

// published pushes emergency changes to the officer feed.
func (rs Records[T, PT]) published(rec PT) {
	if rs.Feed == nil || rs.Machine.Kind() != workflow.KindEmergency {
		return
	}
	rs.Feed.Publish(feedStatusChanged, rec)
}

// isPublic defaults unspecified note visibility to public.
func isPublic(p *bool) bool {
	return p == nil || *p
}

// callerOrAbort returns the authenticated caller or writes a 401.
func callerOrAbort(w http.ResponseWriter, r *http.Request) (api.Caller, bool) {
	caller, ok := api.CallerFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, nil)
	}
	return caller, ok
}
