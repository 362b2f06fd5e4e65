package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/gramasevaka/gs-portal-api/api"
	"github.com/gramasevaka/gs-portal-api/databases"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

const maxTags = 10

var (
	forumCategories = []string{"general", "infrastructure", "events", "safety", "suggestions", "other"}
	// listed are the discussion statuses everyone can browse.
	listed          = []workflow.Status{workflow.StatusActive, workflow.StatusReported, workflow.StatusClosed}
	reportable      = []workflow.Status{workflow.StatusActive, workflow.StatusReported}
	byPinned        = bson.D{{Key: "isPinned", Value: -1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	oldestFirst     = bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}
)

// Forum handles community discussions and their replies.
type Forum struct {
	Records[models.Discussion, *models.Discussion]
	Replies databases.ReplyDatabase
}

// NewForum builds the forum handlers.
func NewForum(d Deps, discussions databases.DiscussionDatabase, replies databases.ReplyDatabase) Forum {
	return Forum{
		Records: NewRecords[models.Discussion](d, discussions, workflow.Discussions),
		Replies: replies,
	}
}

// canSee reports whether caller may read forum content in status s written by author.
// Hidden content stays visible to its author; deleted content only to officers.
func canSee(s workflow.Status, author primitive.ObjectID, caller api.Caller) bool {
	switch {
	case caller.IsOfficer():
		return true
	case s == workflow.StatusDeleted:
		return false
	case s == workflow.StatusHidden:
		return author == caller.ID
	}
	return true
}

func statusIn(s workflow.Status, list []workflow.Status) bool {
	for _, l := range list {
		if s == l {
			return true
		}
	}
	return false
}

func (f Forum) loadDiscussion(ctx context.Context, id primitive.ObjectID, caller api.Caller) (*models.Discussion, error) {
	d, err := f.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if !canSee(d.Status, d.Submitter, caller) {
		return nil, databases.ErrNotFound
	}
	return d, nil
}

func (f Forum) loadReply(ctx context.Context, id primitive.ObjectID, caller api.Caller) (*models.Reply, error) {
	rp, err := f.Replies.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if !canSee(rp.Status, rp.Author, caller) {
		return nil, databases.ErrNotFound
	}
	return rp, nil
}

// Voters are never shown, only the counts and the caller's own vote. Report
// lists are only shown to officers.
func scrubDiscussion(d *models.Discussion, caller api.Caller) *models.Discussion {
	votes := models.Tally(d.Upvotes, d.Downvotes, caller.ID)
	d.Votes = &votes
	if !caller.IsOfficer() {
		d.Reports = nil
	}
	return d
}

func scrubReply(rp *models.Reply, caller api.Caller) *models.Reply {
	votes := models.Tally(rp.Upvotes, rp.Downvotes, caller.ID)
	rp.Votes = &votes
	if !caller.IsOfficer() {
		rp.Reports = nil
	}
	return rp
}

func normalizeTags(tags []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func validateDiscussion(req *models.DiscussionRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	if req.Category == "" {
		req.Category = "general"
	}
	req.Tags = normalizeTags(req.Tags)
	switch {
	case req.Title == "":
		return invalid("title is required")
	case req.Content == "":
		return invalid("content is required")
	case !oneOf(req.Category, forumCategories):
		return invalid("category must be one of %s", strings.Join(forumCategories, ", "))
	case len(req.Tags) > maxTags:
		return invalid("at most %d tags are allowed", maxTags)
	}
	return nil
}

// ListDiscussionsHandler lists discussions, pinned ones first.
func (f Forum) ListDiscussionsHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, "", err)
		return
	}
	if !caller.IsOfficer() && q.Status != "" && !statusIn(q.Status, listed) {
		writeError(w, "", invalid("discussions in %s are not listed", q.Status))
		return
	}

	filter := bson.M{}
	if !caller.IsOfficer() {
		filter["status"] = bson.M{"$in": listed}
	}
	if tag := r.URL.Query().Get("tag"); tag != "" {
		filter["tags"] = strings.ToLower(tag)
	}
	if err := q.apply(filter, f.Machine, "category"); err != nil {
		writeError(w, "", err)
		return
	}

	items, total, err := listPage[models.Discussion](r, f.DB, filter, q, byPinned)
	if err != nil {
		writeError(w, "failed to get discussions", err)
		return
	}
	for i := range items {
		scrubDiscussion(&items[i], caller)
	}
	writeJSON(w, http.StatusOK, q.page(items, total))
}

// GetDiscussionHandler returns a discussion and counts the view.
func (f Forum) GetDiscussionHandler(w http.ResponseWriter, r *http.Request) {
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

	d, err := f.loadDiscussion(ctx, id, caller)
	if err != nil {
		writeError(w, "failed to get discussion", err)
		return
	}
	if _, err := f.DB.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}}); err != nil {
		zap.S().Errorw("failed to count discussion view", "number", d.Number, "error", err)
	} else {
		d.Views++
	}
	writeJSON(w, http.StatusOK, scrubDiscussion(d, caller))
}

// CreateDiscussionHandler opens a new discussion.
func (f Forum) CreateDiscussionHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	var req models.DiscussionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}
	if err := validateDiscussion(&req); err != nil {
		writeError(w, "", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	now := f.now()
	number, err := f.nextNumber(ctx, "", now)
	if err != nil {
		writeError(w, "failed to assign discussion number", err)
		return
	}
	doc := &models.Discussion{
		WorkflowFields: models.NewWorkflowFields(f.Machine, number, caller.ID, now),
		Title:          req.Title,
		Content:        req.Content,
		Category:       req.Category,
		Tags:           req.Tags,
		Upvotes:        []primitive.ObjectID{},
		Downvotes:      []primitive.ObjectID{},
		Reports:        []models.ContentReport{},
	}
	if err := f.create(ctx, doc, nil); err != nil {
		writeError(w, "failed to create discussion", err)
		return
	}
	writeJSON(w, http.StatusCreated, scrubDiscussion(doc, caller))
}

// UpdateDiscussionHandler lets the author edit an active discussion.
func (f Forum) UpdateDiscussionHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	id, err := objectID(mux.Vars(r), "id")
	if err != nil {
		writeError(w, "", err)
		return
	}
	var req models.DiscussionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}
	if err := validateDiscussion(&req); err != nil {
		writeError(w, "", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	d, err := f.loadDiscussion(ctx, id, caller)
	if err != nil {
		writeError(w, "failed to get discussion", err)
		return
	}
	switch {
	case d.Submitter != caller.ID:
		writeError(w, "", fmt.Errorf("%w: only the author can edit a discussion", workflow.ErrForbidden))
		return
	case d.Status != workflow.StatusActive:
		writeError(w, "", fmt.Errorf("%w: discussion %s is %s", workflow.ErrConflict, d.Number, d.Status))
		return
	}

	filter := bson.M{"_id": id, "submitter": caller.ID, "status": workflow.StatusActive}
	update := bson.M{"$set": bson.M{
		"title":     req.Title,
		"content":   req.Content,
		"category":  req.Category,
		"tags":      req.Tags,
		"updatedAt": f.now(),
	}}
	updated, err := f.DB.FindOneAndUpdate(ctx, filter, update)
	if err != nil {
		writeError(w, "failed to update discussion", conflictIfMissing(err, "discussion %s was changed by someone else", d.Number))
		return
	}
	writeJSON(w, http.StatusOK, scrubDiscussion(updated, caller))
}

// DeleteDiscussionHandler soft-deletes a discussion.
func (f Forum) DeleteDiscussionHandler(w http.ResponseWriter, r *http.Request) {
	f.respondTransition(w, r, change{To: workflow.StatusDeleted}, nil)
}

// StatusHandler applies an officer moderation decision. Restoring a
// discussion to active clears its reports.
func (f Forum) StatusHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStatus(w, r)
	if !ok {
		return
	}
	c := change{To: req.Status, Note: req.Note, Public: isPublic(req.IsPublic)}
	if req.Status == workflow.StatusActive {
		c.Set = bson.M{"reports": []models.ContentReport{}}
	}
	f.respondTransition(w, r, c, nil)
}

// PinHandler pins or unpins a discussion.
func (f Forum) PinHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	id, err := objectID(mux.Vars(r), "id")
	if err != nil {
		writeError(w, "", err)
		return
	}
	var req models.PinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	updated, err := f.DB.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"isPinned": req.Pinned, "updatedAt": f.now()}})
	if err != nil {
		writeError(w, "failed to pin discussion", err)
		return
	}
	zap.S().Infow("discussion pinned", "number", updated.Number, "pinned", req.Pinned, "by", caller.ID.Hex())
	writeJSON(w, http.StatusOK, updated)
}

// voteUpdate moves voter between the up and down sets. Each set holds a
// voter at most once, so repeating a vote changes nothing.
func voteUpdate(direction string, voter primitive.ObjectID) (bson.M, error) {
	switch direction {
	case models.VoteUp:
		return bson.M{"$pull": bson.M{"downvotes": voter}, "$addToSet": bson.M{"upvotes": voter}}, nil
	case models.VoteDown:
		return bson.M{"$pull": bson.M{"upvotes": voter}, "$addToSet": bson.M{"downvotes": voter}}, nil
	case models.VoteNone:
		return bson.M{"$pull": bson.M{"upvotes": voter, "downvotes": voter}}, nil
	}
	return nil, invalid("type must be %s, %s or %s", models.VoteUp, models.VoteDown, models.VoteNone)
}

func decodeVote(w http.ResponseWriter, r *http.Request) (api.Caller, primitive.ObjectID, bson.M, bool) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return caller, primitive.NilObjectID, nil, false
	}
	id, err := objectID(mux.Vars(r), "id")
	if err != nil {
		writeError(w, "", err)
		return caller, id, nil, false
	}
	var req models.VoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return caller, id, nil, false
	}
	update, err := voteUpdate(strings.ToLower(req.Type), caller.ID)
	if err != nil {
		writeError(w, "", err)
		return caller, id, nil, false
	}
	return caller, id, update, true
}

// VoteDiscussionHandler records the caller's vote on an active discussion.
func (f Forum) VoteDiscussionHandler(w http.ResponseWriter, r *http.Request) {
	caller, id, update, ok := decodeVote(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	updated, err := f.DB.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": workflow.StatusActive}, update)
	if errors.Is(err, databases.ErrNotFound) {
		err = f.inactiveDiscussion(ctx, id, caller, "voted on")
	}
	if err != nil {
		writeError(w, "failed to record vote", err)
		return
	}
	writeJSON(w, http.StatusOK, models.Tally(updated.Upvotes, updated.Downvotes, caller.ID))
}

// inactiveDiscussion explains why a conditional update on an active
// discussion matched nothing.
func (f Forum) inactiveDiscussion(ctx context.Context, id primitive.ObjectID, caller api.Caller, action string) error {
	d, err := f.loadDiscussion(ctx, id, caller)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: discussion %s is %s and cannot be %s", workflow.ErrConflict, d.Number, d.Status, action)
}

func decodeReport(w http.ResponseWriter, r *http.Request) (api.Caller, primitive.ObjectID, string, bool) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return caller, primitive.NilObjectID, "", false
	}
	id, err := objectID(mux.Vars(r), "id")
	if err != nil {
		writeError(w, "", err)
		return caller, id, "", false
	}
	var req models.ReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return caller, id, "", false
	}
	if strings.TrimSpace(req.Reason) == "" {
		writeError(w, "", invalid("reason is required"))
		return caller, id, "", false
	}
	return caller, id, strings.TrimSpace(req.Reason), true
}

// reportFilter matches content that can still take a report from reporter.
func reportFilter(id, reporter primitive.ObjectID) bson.M {
	return bson.M{
		"_id":              id,
		"status":           bson.M{"$in": reportable},
		"reports.reporter": bson.M{"$ne": reporter},
	}
}

// thresholdFilter matches active content holding at least ReportThreshold reports.
func thresholdFilter(id primitive.ObjectID) bson.M {
	return bson.M{
		"_id":    id,
		"status": workflow.StatusActive,
		fmt.Sprintf("reports.%d", models.ReportThreshold-1): bson.M{"$exists": true},
	}
}

// whyNotReported explains a report that matched nothing.
func whyNotReported(status workflow.Status, reports []models.ContentReport, reporter primitive.ObjectID, what string) error {
	if !statusIn(status, reportable) {
		return fmt.Errorf("%w: this %s is %s and cannot be reported", workflow.ErrConflict, what, status)
	}
	for _, rep := range reports {
		if rep.Reporter == reporter {
			return fmt.Errorf("%w: you have already reported this %s", workflow.ErrConflict, what)
		}
	}
	return fmt.Errorf("%w: this %s was changed by someone else", workflow.ErrConflict, what)
}

// ReportDiscussionHandler records a report. Each user reports a discussion
// at most once; the report that reaches the threshold flags it for review.
func (f Forum) ReportDiscussionHandler(w http.ResponseWriter, r *http.Request) {
	caller, id, reason, ok := decodeReport(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	now := f.now()
	report := models.ContentReport{Reporter: caller.ID, Reason: reason, CreatedAt: now}
	_, err := f.DB.FindOneAndUpdate(ctx, reportFilter(id, caller.ID), bson.M{"$push": bson.M{"reports": report}})
	if errors.Is(err, databases.ErrNotFound) {
		d, lerr := f.loadDiscussion(ctx, id, caller)
		if lerr != nil {
			err = lerr
		} else {
			err = whyNotReported(d.Status, d.Reports, caller.ID, "discussion")
		}
	}
	if err != nil {
		writeError(w, "failed to report discussion", err)
		return
	}

	status := workflow.StatusActive
	flagged := bson.M{
		"$set":  bson.M{"status": workflow.StatusReported, "updatedAt": now},
		"$push": bson.M{"history": workflow.StatusChange{From: workflow.StatusActive, To: workflow.StatusReported, ByRole: workflow.RoleSystem, At: now}},
	}
	if n, err := f.DB.UpdateOne(ctx, thresholdFilter(id), flagged); err != nil {
		zap.S().Errorw("failed to flag reported discussion", "id", id.Hex(), "error", err)
	} else if n > 0 {
		status = workflow.StatusReported
		api.RecordTransition(string(workflow.KindDiscussion), string(workflow.StatusReported))
		zap.S().Infow("discussion flagged for review", "id", id.Hex())
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "report received", "status": string(status)})
}

// ListRepliesHandler lists the replies of a discussion, oldest first.
func (f Forum) ListRepliesHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	id, err := objectID(mux.Vars(r), "id")
	if err != nil {
		writeError(w, "", err)
		return
	}
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, "", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := f.loadDiscussion(ctx, id, caller); err != nil {
		writeError(w, "failed to get discussion", err)
		return
	}

	filter := bson.M{"discussion": id}
	if !caller.IsOfficer() {
		filter["$or"] = bson.A{
			bson.M{"status": bson.M{"$in": reportable}},
			bson.M{"status": workflow.StatusHidden, "author": caller.ID},
		}
	}
	items, total, err := listPage[models.Reply](r, f.Replies, filter, q, oldestFirst)
	if err != nil {
		writeError(w, "failed to get replies", err)
		return
	}
	for i := range items {
		scrubReply(&items[i], caller)
	}
	writeJSON(w, http.StatusOK, q.page(items, total))
}

// CreateReplyHandler posts a reply to an active discussion.
func (f Forum) CreateReplyHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	id, err := objectID(mux.Vars(r), "id")
	if err != nil {
		writeError(w, "", err)
		return
	}
	var req models.ReplyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, "", invalid("content is required"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	now := f.now()
	// The reply count only moves while the discussion is active, which
	// doubles as the check that it still accepts replies.
	n, err := f.DB.UpdateOne(ctx, bson.M{"_id": id, "status": workflow.StatusActive},
		bson.M{"$inc": bson.M{"replyCount": 1}, "$set": bson.M{"updatedAt": now}})
	if err == nil && n == 0 {
		err = f.inactiveDiscussion(ctx, id, caller, "replied to")
	}
	if err != nil {
		writeError(w, "failed to post reply", err)
		return
	}

	reply := &models.Reply{
		ID:         primitive.NewObjectID(),
		Discussion: id,
		Author:     caller.ID,
		Content:    strings.TrimSpace(req.Content),
		Status:     workflow.Replies.Initial(),
		Upvotes:    []primitive.ObjectID{},
		Downvotes:  []primitive.ObjectID{},
		Reports:    []models.ContentReport{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := f.Replies.InsertOne(ctx, reply); err != nil {
		if _, uerr := f.DB.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"replyCount": -1}}); uerr != nil {
			zap.S().Errorw("failed to restore reply count", "discussion", id.Hex(), "error", uerr)
		}
		writeError(w, "failed to post reply", err)
		return
	}
	writeJSON(w, http.StatusCreated, scrubReply(reply, caller))
}

// VoteReplyHandler records the caller's vote on an active reply.
func (f Forum) VoteReplyHandler(w http.ResponseWriter, r *http.Request) {
	caller, id, update, ok := decodeVote(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	updated, err := f.Replies.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": workflow.StatusActive}, update)
	if errors.Is(err, databases.ErrNotFound) {
		rp, lerr := f.loadReply(ctx, id, caller)
		if lerr != nil {
			err = lerr
		} else {
			err = fmt.Errorf("%w: this reply is %s and cannot be voted on", workflow.ErrConflict, rp.Status)
		}
	}
	if err != nil {
		writeError(w, "failed to record vote", err)
		return
	}
	writeJSON(w, http.StatusOK, models.Tally(updated.Upvotes, updated.Downvotes, caller.ID))
}

// ReportReplyHandler records a report against a reply.
func (f Forum) ReportReplyHandler(w http.ResponseWriter, r *http.Request) {
	caller, id, reason, ok := decodeReport(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	now := f.now()
	report := models.ContentReport{Reporter: caller.ID, Reason: reason, CreatedAt: now}
	_, err := f.Replies.FindOneAndUpdate(ctx, reportFilter(id, caller.ID), bson.M{"$push": bson.M{"reports": report}})
	if errors.Is(err, databases.ErrNotFound) {
		rp, lerr := f.loadReply(ctx, id, caller)
		if lerr != nil {
			err = lerr
		} else {
			err = whyNotReported(rp.Status, rp.Reports, caller.ID, "reply")
		}
	}
	if err != nil {
		writeError(w, "failed to report reply", err)
		return
	}

	status := workflow.StatusActive
	flagged := bson.M{"$set": bson.M{"status": workflow.StatusReported, "updatedAt": now}}
	if n, err := f.Replies.UpdateOne(ctx, thresholdFilter(id), flagged); err != nil {
		zap.S().Errorw("failed to flag reported reply", "id", id.Hex(), "error", err)
	} else if n > 0 {
		status = workflow.StatusReported
		api.RecordTransition(string(workflow.KindReply), string(workflow.StatusReported))
		zap.S().Infow("reply flagged for review", "id", id.Hex())
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "report received", "status": string(status)})
}

// moveReply applies a reply transition guarded on the status it was read in.
func (f Forum) moveReply(ctx context.Context, id primitive.ObjectID, caller api.Caller, to workflow.Status) (*models.Reply, error) {
	rp, err := f.loadReply(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	actor := workflow.Actor{Role: caller.Role, IsSubmitter: rp.Author == caller.ID}
	if err := workflow.Replies.Check(rp.Status, to, actor); err != nil {
		return nil, err
	}
	set := bson.M{"status": to, "updatedAt": f.now()}
	if to == workflow.StatusActive {
		set["reports"] = []models.ContentReport{}
	}
	updated, err := f.Replies.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": rp.Status}, bson.M{"$set": set})
	if err != nil {
		return nil, conflictIfMissing(err, "this reply was changed by someone else")
	}
	api.RecordTransition(string(workflow.KindReply), string(to))
	zap.S().Infow("reply status changed", "id", id.Hex(), "from", rp.Status, "to", to, "by", caller.ID.Hex(), "role", caller.Role)
	return updated, nil
}

// DeleteReplyHandler soft-deletes a reply.
func (f Forum) DeleteReplyHandler(w http.ResponseWriter, r *http.Request) {
	f.respondReply(w, r, workflow.StatusDeleted)
}

// ReplyStatusHandler applies an officer moderation decision to a reply.
func (f Forum) ReplyStatusHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStatus(w, r)
	if !ok {
		return
	}
	f.respondReply(w, r, req.Status)
}

func (f Forum) respondReply(w http.ResponseWriter, r *http.Request, to workflow.Status) {
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

	updated, err := f.moveReply(ctx, id, caller, to)
	if err != nil {
		writeError(w, "failed to update reply", err)
		return
	}
	writeJSON(w, http.StatusOK, scrubReply(updated, caller))
}
