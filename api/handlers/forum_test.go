package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gramasevaka/gs-portal-api/api"
	"github.com/gramasevaka/gs-portal-api/api/handlers"
	"github.com/gramasevaka/gs-portal-api/api/testhelpers"
	"github.com/gramasevaka/gs-portal-api/databases"
	mocksdb "github.com/gramasevaka/gs-portal-api/databases/mocks"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

type forumFixture struct {
	discussions *mocksdb.EntityDatabase[models.Discussion]
	replies     *mocksdb.EntityDatabase[models.Reply]
	counters    *mocksdb.CounterDatabase
	forum       handlers.Forum
}

func newForumFixture() forumFixture {
	f := forumFixture{
		discussions: &mocksdb.EntityDatabase[models.Discussion]{},
		replies:     &mocksdb.EntityDatabase[models.Reply]{},
		counters:    &mocksdb.CounterDatabase{},
	}
	f.forum = handlers.NewForum(testDeps(f.counters), f.discussions, f.replies)
	return f
}

func discussionBy(author primitive.ObjectID, status workflow.Status) *models.Discussion {
	d := &models.Discussion{
		WorkflowFields: models.NewWorkflowFields(workflow.Discussions, "FD-25-0001", author, fixedNow),
		Title:          "Street lights on Temple Road",
		Content:        "Three lights have been out for a week.",
		Category:       "infrastructure",
		Tags:           []string{"lights"},
		Upvotes:        []primitive.ObjectID{},
		Downvotes:      []primitive.ObjectID{},
		Reports:        []models.ContentReport{},
	}
	d.Status = status
	return d
}

func vars(id primitive.ObjectID) map[string]string {
	return map[string]string{"id": id.Hex()}
}

func TestForum_CreateDiscussion(t *testing.T) {
	citizen := testhelpers.Citizen()
	fx := newForumFixture()
	fx.counters.On("Next", mock.Anything, "discussion:2025").Return(int64(4), nil)
	fx.discussions.On("InsertOne", mock.Anything, mock.AnythingOfType("*models.Discussion")).Return(nil)

	req := models.DiscussionRequest{Title: " Street lights ", Content: "Out again", Tags: []string{"Lights", "lights", " road "}}
	rr := serve(fx.forum.CreateDiscussionHandler, testhelpers.Request("POST", "/", testhelpers.JSON(t, req), &citizen, nil))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var got models.Discussion
	testhelpers.Decode(t, rr, &got)
	assert.Equal(t, "FD-25-0004", got.Number)
	assert.Equal(t, "Street lights", got.Title)
	assert.Equal(t, "general", got.Category)
	assert.Equal(t, []string{"lights", "road"}, got.Tags)
	assert.Equal(t, workflow.StatusActive, got.Status)

	req = models.DiscussionRequest{Title: "x", Content: "y", Category: "politics"}
	rr = serve(fx.forum.CreateDiscussionHandler, testhelpers.Request("POST", "/", testhelpers.JSON(t, req), &citizen, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestForum_VoteDiscussion(t *testing.T) {
	citizen := testhelpers.Citizen()
	d := discussionBy(primitive.NewObjectID(), workflow.StatusActive)

	t.Run("upvote moves the voter into the up set", func(t *testing.T) {
		fx := newForumFixture()
		voted := *d
		voted.Upvotes = []primitive.ObjectID{citizen.ID}
		fx.discussions.On("FindOneAndUpdate", mock.Anything,
			bson.M{"_id": d.ID, "status": workflow.StatusActive},
			bson.M{"$pull": bson.M{"downvotes": citizen.ID}, "$addToSet": bson.M{"upvotes": citizen.ID}},
		).Return(&voted, nil).Twice()

		body := models.VoteRequest{Type: "up"}
		for i := 0; i < 2; i++ {
			rr := serve(fx.forum.VoteDiscussionHandler, testhelpers.Request("POST", "/", testhelpers.JSON(t, body), &citizen, vars(d.ID)))
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			var tally models.VoteSummary
			testhelpers.Decode(t, rr, &tally)
			assert.Equal(t, models.VoteSummary{Upvotes: 1, Downvotes: 0, Score: 1, UserVote: models.VoteUp}, tally)
		}
		fx.discussions.AssertExpectations(t)
	})

	t.Run("none withdraws the vote", func(t *testing.T) {
		fx := newForumFixture()
		fx.discussions.On("FindOneAndUpdate", mock.Anything, mock.Anything,
			bson.M{"$pull": bson.M{"upvotes": citizen.ID, "downvotes": citizen.ID}},
		).Return(d, nil)

		rr := serve(fx.forum.VoteDiscussionHandler, testhelpers.Request("POST", "/", testhelpers.JSON(t, models.VoteRequest{Type: "none"}), &citizen, vars(d.ID)))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var tally models.VoteSummary
		testhelpers.Decode(t, rr, &tally)
		assert.Equal(t, models.VoteNone, tally.UserVote)
	})

	t.Run("unknown direction", func(t *testing.T) {
		fx := newForumFixture()
		rr := serve(fx.forum.VoteDiscussionHandler, testhelpers.Request("POST", "/", testhelpers.JSON(t, models.VoteRequest{Type: "sideways"}), &citizen, vars(d.ID)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		fx.discussions.AssertNotCalled(t, "FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("closed discussion", func(t *testing.T) {
		fx := newForumFixture()
		closed := discussionBy(primitive.NewObjectID(), workflow.StatusClosed)
		fx.discussions.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(nil, databases.ErrNotFound)
		fx.discussions.On("FindOne", mock.Anything, bson.M{"_id": closed.ID}).Return(closed, nil)

		rr := serve(fx.forum.VoteDiscussionHandler, testhelpers.Request("POST", "/", testhelpers.JSON(t, models.VoteRequest{Type: "down"}), &citizen, vars(closed.ID)))
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Contains(t, testhelpers.ErrorMessage(t, rr), "cannot be voted on")
	})
}

func TestForum_ReportDiscussion(t *testing.T) {
	reporter := testhelpers.Citizen()
	d := discussionBy(primitive.NewObjectID(), workflow.StatusActive)
	reportFor := mock.MatchedBy(func(f bson.M) bool {
		return f["_id"] == d.ID && assert.ObjectsAreEqual(bson.M{"$ne": reporter.ID}, f["reports.reporter"])
	})
	body := models.ReportRequest{Reason: "spam"}

	t.Run("below threshold", func(t *testing.T) {
		fx := newForumFixture()
		fx.discussions.On("FindOneAndUpdate", mock.Anything, reportFor, mock.Anything).Return(d, nil)
		fx.discussions.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil)

		rr := serve(fx.forum.ReportDiscussionHandler, testhelpers.Request("POST", "/", testhelpers.JSON(t, body), &reporter, vars(d.ID)))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var resp map[string]string
		testhelpers.Decode(t, rr, &resp)
		assert.Equal(t, "active", resp["status"])
	})

	t.Run("threshold report flags the discussion", func(t *testing.T) {
		fx := newForumFixture()
		fx.discussions.On("FindOneAndUpdate", mock.Anything, reportFor, mock.Anything).Return(d, nil)
		fx.discussions.On("UpdateOne", mock.Anything, mock.MatchedBy(func(f bson.M) bool {
			_, ok := f["reports.2"]
			return ok && f["status"] == workflow.StatusActive
		}), mock.MatchedBy(func(u bson.M) bool {
			set := u["$set"].(bson.M)
			return set["status"] == workflow.StatusReported
		})).Return(int64(1), nil)

		rr := serve(fx.forum.ReportDiscussionHandler, testhelpers.Request("POST", "/", testhelpers.JSON(t, body), &reporter, vars(d.ID)))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var resp map[string]string
		testhelpers.Decode(t, rr, &resp)
		assert.Equal(t, "reported", resp["status"])
	})

	t.Run("second report by the same user", func(t *testing.T) {
		fx := newForumFixture()
		already := *d
		already.Reports = []models.ContentReport{{Reporter: reporter.ID, Reason: "spam"}}
		fx.discussions.On("FindOneAndUpdate", mock.Anything, reportFor, mock.Anything).Return(nil, databases.ErrNotFound)
		fx.discussions.On("FindOne", mock.Anything, bson.M{"_id": d.ID}).Return(&already, nil)

		rr := serve(fx.forum.ReportDiscussionHandler, testhelpers.Request("POST", "/", testhelpers.JSON(t, body), &reporter, vars(d.ID)))
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Contains(t, testhelpers.ErrorMessage(t, rr), "already reported")
		fx.discussions.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("reason is required", func(t *testing.T) {
		fx := newForumFixture()
		rr := serve(fx.forum.ReportDiscussionHandler, testhelpers.Request("POST", "/", testhelpers.JSON(t, models.ReportRequest{}), &reporter, vars(d.ID)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestForum_CreateReply(t *testing.T) {
	citizen := testhelpers.Citizen()
	body := models.ReplyRequest{Content: "Reported it to the council too."}

	t.Run("active discussion", func(t *testing.T) {
		fx := newForumFixture()
		d := discussionBy(primitive.NewObjectID(), workflow.StatusActive)
		fx.discussions.On("UpdateOne", mock.Anything, bson.M{"_id": d.ID, "status": workflow.StatusActive}, mock.Anything).Return(int64(1), nil)
		fx.replies.On("InsertOne", mock.Anything, mock.MatchedBy(func(rp *models.Reply) bool {
			return rp.Discussion == d.ID && rp.Author == citizen.ID && rp.Status == workflow.StatusActive
		})).Return(nil)

		rr := serve(fx.forum.CreateReplyHandler, testhelpers.Request("POST", "/", testhelpers.JSON(t, body), &citizen, vars(d.ID)))
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		fx.replies.AssertExpectations(t)
	})

	t.Run("closed discussion", func(t *testing.T) {
		fx := newForumFixture()
		d := discussionBy(primitive.NewObjectID(), workflow.StatusClosed)
		fx.discussions.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil)
		fx.discussions.On("FindOne", mock.Anything, bson.M{"_id": d.ID}).Return(d, nil)

		rr := serve(fx.forum.CreateReplyHandler, testhelpers.Request("POST", "/", testhelpers.JSON(t, body), &citizen, vars(d.ID)))
		assert.Equal(t, http.StatusConflict, rr.Code)
		fx.replies.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
	})
}

func TestForum_Visibility(t *testing.T) {
	author := testhelpers.Citizen()
	other := testhelpers.Citizen()
	officer := testhelpers.Officer()

	fx := newForumFixture()
	hidden := discussionBy(author.ID, workflow.StatusHidden)
	hidden.Reports = []models.ContentReport{{Reporter: other.ID, Reason: "rude"}}
	fx.discussions.On("FindOne", mock.Anything, bson.M{"_id": hidden.ID}).Return(func(context.Context, interface{}) *models.Discussion {
		cp := *hidden
		return &cp
	}, nil)
	fx.discussions.On("UpdateOne", mock.Anything, bson.M{"_id": hidden.ID}, bson.M{"$inc": bson.M{"views": 1}}).Return(int64(1), nil)

	tests := []struct {
		name        string
		caller      api.Caller
		code        int
		seesReports bool
	}{
		{"other citizen", other, http.StatusNotFound, false},
		{"author", author, http.StatusOK, false},
		{"officer", officer, http.StatusOK, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(fx.forum.GetDiscussionHandler, testhelpers.Request("GET", "/", nil, &tt.caller, vars(hidden.ID)))
			require.Equal(t, tt.code, rr.Code, rr.Body.String())
			if tt.code != http.StatusOK {
				return
			}
			var got models.Discussion
			testhelpers.Decode(t, rr, &got)
			assert.Equal(t, tt.seesReports, len(got.Reports) > 0)
		})
	}
}

func TestForum_CitizenListing(t *testing.T) {
	citizen := testhelpers.Citizen()
	fx := newForumFixture()
	fx.discussions.On("Find", mock.Anything, mock.MatchedBy(func(f bson.M) bool {
		return assert.ObjectsAreEqual(bson.M{"$in": []workflow.Status{workflow.StatusActive, workflow.StatusReported, workflow.StatusClosed}}, f["status"]) &&
			f["tags"] == "lights"
	})).Return([]models.Discussion{*discussionBy(citizen.ID, workflow.StatusActive)}, nil)
	fx.discussions.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(1), nil)

	rr := serve(fx.forum.ListDiscussionsHandler, testhelpers.Request("GET", "/api/forums/discussions?tag=Lights", nil, &citizen, nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got page[models.Discussion]
	testhelpers.Decode(t, rr, &got)
	assert.Len(t, got.Items, 1)

	rr = serve(fx.forum.ListDiscussionsHandler, testhelpers.Request("GET", "/api/forums/discussions?status=hidden", nil, &citizen, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestForum_UpdateDiscussionAuthorOnly(t *testing.T) {
	author := testhelpers.Citizen()
	other := testhelpers.Citizen()
	fx := newForumFixture()
	d := discussionBy(author.ID, workflow.StatusActive)
	fx.discussions.On("FindOne", mock.Anything, bson.M{"_id": d.ID}).Return(d, nil)

	req := models.DiscussionRequest{Title: "Edited", Content: "Edited content"}
	rr := serve(fx.forum.UpdateDiscussionHandler, testhelpers.Request("PUT", "/", testhelpers.JSON(t, req), &other, vars(d.ID)))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	fx.discussions.AssertNotCalled(t, "FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestForum_ReplyModeration(t *testing.T) {
	author := testhelpers.Citizen()
	officer := testhelpers.Officer()
	reply := &models.Reply{ID: primitive.NewObjectID(), Author: author.ID, Status: workflow.StatusReported}

	fx := newForumFixture()
	fx.replies.On("FindOne", mock.Anything, bson.M{"_id": reply.ID}).Return(reply, nil)
	fx.replies.On("FindOneAndUpdate", mock.Anything,
		bson.M{"_id": reply.ID, "status": workflow.StatusReported},
		mock.MatchedBy(func(u bson.M) bool {
			set := u["$set"].(bson.M)
			_, cleared := set["reports"]
			return set["status"] == workflow.StatusActive && cleared
		}),
	).Return(&models.Reply{ID: reply.ID, Author: author.ID, Status: workflow.StatusActive}, nil)

	body := testhelpers.JSON(t, models.StatusUpdateRequest{Status: workflow.StatusActive})
	rr := serve(fx.forum.ReplyStatusHandler, testhelpers.Request("PUT", "/", body, &officer, vars(reply.ID)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// the author cannot delete a reply under review
	rr = serve(fx.forum.DeleteReplyHandler, testhelpers.Request("DELETE", "/", nil, &author, vars(reply.ID)))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestForum_VotersAreNotExposed(t *testing.T) {
	author := testhelpers.Citizen()
	voter := testhelpers.Citizen()
	critic := testhelpers.Citizen()

	fx := newForumFixture()
	d := discussionBy(author.ID, workflow.StatusActive)
	d.Upvotes = []primitive.ObjectID{voter.ID, author.ID}
	d.Downvotes = []primitive.ObjectID{critic.ID}
	fx.discussions.On("FindOne", mock.Anything, bson.M{"_id": d.ID}).Return(func(context.Context, interface{}) *models.Discussion {
		cp := *d
		return &cp
	}, nil)
	fx.discussions.On("UpdateOne", mock.Anything, bson.M{"_id": d.ID}, mock.Anything).Return(int64(1), nil)

	rr := serve(fx.forum.GetDiscussionHandler, testhelpers.Request("GET", "/", nil, &voter, vars(d.ID)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := rr.Body.String()
	assert.NotContains(t, body, critic.ID.Hex())
	assert.NotContains(t, body, voter.ID.Hex())
	assert.NotContains(t, body, `"upvotes":[`)

	var got models.Discussion
	testhelpers.Decode(t, rr, &got)
	require.NotNil(t, got.Votes)
	assert.Equal(t, models.VoteSummary{Upvotes: 2, Downvotes: 1, Score: 1, UserVote: models.VoteUp}, *got.Votes)
}
