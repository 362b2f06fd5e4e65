package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gramasevaka/gs-portal-api/api/handlers"
	"github.com/gramasevaka/gs-portal-api/api/testhelpers"
	"github.com/gramasevaka/gs-portal-api/databases"
	mocksdb "github.com/gramasevaka/gs-portal-api/databases/mocks"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

func submittedCase(submitter primitive.ObjectID) *models.LegalCase {
	return &models.LegalCase{
		WorkflowFields: models.NewWorkflowFields(workflow.LegalCases, "LC2025000001", submitter, fixedNow),
		CaseType:       "boundary",
		Title:          "Fence moved onto my land",
		Description:    "The neighbour moved the fence two meters.",
		Priority:       "medium",
	}
}

func TestLegalCase_File(t *testing.T) {
	citizen := testhelpers.Citizen()
	cases := &mocksdb.EntityDatabase[models.LegalCase]{}
	counters := &mocksdb.CounterDatabase{}
	counters.On("Next", mock.Anything, "legal-case:2025").Return(int64(12), nil)
	cases.On("InsertOne", mock.Anything, mock.AnythingOfType("*models.LegalCase")).Return(nil)
	h := handlers.NewLegalCase(testDeps(counters), cases)

	req := models.LegalCaseRequest{
		CaseType:      "Boundary",
		Title:         "Fence moved",
		Description:   "Moved two meters",
		OpposingParty: &models.Party{Name: "S. Silva"},
	}
	rr := serve(h.FileHandler, testhelpers.Request("POST", "/api/legal-cases", testhelpers.JSON(t, req), &citizen, nil))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var got models.LegalCase
	testhelpers.Decode(t, rr, &got)
	assert.Equal(t, "LC2025000012", got.Number)
	assert.Equal(t, workflow.StatusSubmitted, got.Status)
	assert.Equal(t, "boundary", got.CaseType)
	assert.Equal(t, "medium", got.Priority)

	req.CaseType = "murder"
	rr = serve(h.FileHandler, testhelpers.Request("POST", "/api/legal-cases", testhelpers.JSON(t, req), &citizen, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLegalCase_SetHearing(t *testing.T) {
	citizen := testhelpers.Citizen()
	officer := testhelpers.Officer()

	t.Run("schedules and assigns", func(t *testing.T) {
		rec := submittedCase(citizen.ID)
		cases := &mocksdb.EntityDatabase[models.LegalCase]{}
		cases.On("FindOne", mock.Anything, bson.M{"_id": rec.ID}).Return(rec, nil)
		cases.On("FindOneAndUpdate", mock.Anything,
			mock.MatchedBy(func(f bson.M) bool {
				_, open := f["status"]
				return open && f["assignedOfficer"] == nil
			}),
			mock.MatchedBy(func(u bson.M) bool {
				set := u["$set"].(bson.M)
				h, ok := set["hearing"].(models.Hearing)
				return ok && h.Date == "2025-06-03" && h.Status == models.HearingScheduled && set["assignedOfficer"] == officer.ID
			}),
		).Return(rec, nil)
		h := handlers.NewLegalCase(testDeps(nil), cases)

		body := testhelpers.JSON(t, models.HearingRequest{Date: "2025-06-03", TimeSlot: "11:00-11:30", Venue: "GS office"})
		rr := serve(h.SetHearingHandler, testhelpers.Request("PUT", "/", body, &officer, vars(rec.ID)))
		assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		cases.AssertExpectations(t)
	})

	t.Run("closed case", func(t *testing.T) {
		rec := submittedCase(citizen.ID)
		rec.Status = workflow.StatusClosed
		cases := &mocksdb.EntityDatabase[models.LegalCase]{}
		cases.On("FindOne", mock.Anything, bson.M{"_id": rec.ID}).Return(rec, nil)
		h := handlers.NewLegalCase(testDeps(nil), cases)

		body := testhelpers.JSON(t, models.HearingRequest{Date: "2025-06-03", TimeSlot: "11:00-11:30"})
		rr := serve(h.SetHearingHandler, testhelpers.Request("PUT", "/", body, &officer, vars(rec.ID)))
		assert.Equal(t, http.StatusConflict, rr.Code)
		cases.AssertNotCalled(t, "FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("past date", func(t *testing.T) {
		cases := &mocksdb.EntityDatabase[models.LegalCase]{}
		h := handlers.NewLegalCase(testDeps(nil), cases)
		body := testhelpers.JSON(t, models.HearingRequest{Date: "2025-05-01", TimeSlot: "11:00-11:30"})
		rr := serve(h.SetHearingHandler, testhelpers.Request("PUT", "/", body, &officer, vars(submittedCase(citizen.ID).ID)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestLegalCase_CancelHearing(t *testing.T) {
	citizen := testhelpers.Citizen()

	tests := []struct {
		name    string
		hearing *models.Hearing
		code    int
	}{
		{"no hearing", nil, http.StatusConflict},
		{"already cancelled", &models.Hearing{Date: "2025-06-03", TimeSlot: "11:00-11:30", Status: models.HearingCancelled}, http.StatusConflict},
		{"hearing passed", &models.Hearing{Date: "2025-05-02", TimeSlot: "11:00-11:30", Status: models.HearingScheduled}, http.StatusConflict},
		{"upcoming hearing", &models.Hearing{Date: "2025-06-03", TimeSlot: "11:00-11:30", Status: models.HearingScheduled}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := submittedCase(citizen.ID)
			rec.Hearing = tt.hearing
			cases := &mocksdb.EntityDatabase[models.LegalCase]{}
			cases.On("FindOne", mock.Anything, bson.M{"_id": rec.ID}).Return(rec, nil)
			cases.On("FindOneAndUpdate", mock.Anything,
				bson.M{
					"_id":              rec.ID,
					"status":           bson.M{"$in": []workflow.Status{workflow.StatusSubmitted, workflow.StatusUnderReview, workflow.StatusInvestigating}},
					"hearing.status":   models.HearingScheduled,
					"hearing.date":     "2025-06-03",
					"hearing.timeSlot": "11:00-11:30",
				},
				mock.Anything,
			).Return(rec, nil)
			h := handlers.NewLegalCase(testDeps(nil), cases)

			body := testhelpers.JSON(t, models.CancelRequest{Reason: "travelling"})
			rr := serve(h.CancelHearingHandler, testhelpers.Request("PUT", "/", body, &citizen, vars(rec.ID)))
			assert.Equal(t, tt.code, rr.Code, rr.Body.String())
		})
	}
}

func TestLegalCase_ConcurrentHearingChange(t *testing.T) {
	citizen := testhelpers.Citizen()
	officer := testhelpers.Officer()
	rec := submittedCase(citizen.ID)
	cases := &mocksdb.EntityDatabase[models.LegalCase]{}
	cases.On("FindOne", mock.Anything, bson.M{"_id": rec.ID}).Return(rec, nil)
	cases.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(nil, databases.ErrNotFound)
	h := handlers.NewLegalCase(testDeps(nil), cases)

	body := testhelpers.JSON(t, models.HearingRequest{Date: "2025-06-03", TimeSlot: "11:00-11:30"})
	rr := serve(h.SetHearingHandler, testhelpers.Request("PUT", "/", body, &officer, vars(rec.ID)))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestLegalCase_CancelHearingOnClosedCase(t *testing.T) {
	citizen := testhelpers.Citizen()
	rec := submittedCase(citizen.ID)
	rec.Status = workflow.StatusClosed
	rec.Hearing = &models.Hearing{Date: "2025-06-03", TimeSlot: "11:00-11:30", Status: models.HearingScheduled}
	cases := &mocksdb.EntityDatabase[models.LegalCase]{}
	cases.On("FindOne", mock.Anything, bson.M{"_id": rec.ID}).Return(rec, nil)
	h := handlers.NewLegalCase(testDeps(nil), cases)

	rr := serve(h.CancelHearingHandler, testhelpers.Request("DELETE", "/", nil, &citizen, vars(rec.ID)))
	assert.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())
	cases.AssertNotCalled(t, "FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestLegalCase_ClosingCancelsHearing(t *testing.T) {
	citizen := testhelpers.Citizen()
	officer := testhelpers.Officer()

	tests := []struct {
		name    string
		to      workflow.Status
		hearing *models.Hearing
		cancels bool
	}{
		{"closing with a scheduled hearing", workflow.StatusClosed, &models.Hearing{Date: "2025-06-03", TimeSlot: "11:00-11:30", Status: models.HearingScheduled}, true},
		{"resolving with a scheduled hearing", workflow.StatusResolved, &models.Hearing{Date: "2025-06-03", TimeSlot: "11:00-11:30", Status: models.HearingScheduled}, true},
		{"closing without a hearing", workflow.StatusClosed, nil, false},
		{"moving to investigation", workflow.StatusInvestigating, &models.Hearing{Date: "2025-06-03", TimeSlot: "11:00-11:30", Status: models.HearingScheduled}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := submittedCase(citizen.ID)
			rec.Status = workflow.StatusUnderReview
			rec.AssignedOfficer = &officer.ID
			rec.Hearing = tt.hearing
			cases := &mocksdb.EntityDatabase[models.LegalCase]{}
			cases.On("FindOne", mock.Anything, bson.M{"_id": rec.ID}).Return(rec, nil)

			var filter, update bson.M
			cases.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) {
					filter = args.Get(1).(bson.M)
					update = args.Get(2).(bson.M)
				}).
				Return(rec, nil)
			h := handlers.NewLegalCase(testDeps(nil), cases)

			body := testhelpers.JSON(t, models.StatusUpdateRequest{Status: tt.to})
			rr := serve(h.StatusHandler, testhelpers.Request("PUT", "/", body, &officer, vars(rec.ID)))
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			set := update["$set"].(bson.M)
			assert.Equal(t, tt.to, set["status"])
			if tt.cancels {
				assert.Equal(t, models.HearingCancelled, set["hearing.status"])
				assert.Equal(t, fixedNow, set["hearing.cancelledAt"])
				assert.Equal(t, models.HearingScheduled, filter["hearing.status"])
			} else {
				assert.NotContains(t, set, "hearing.status")
				assert.NotContains(t, filter, "hearing.status")
			}
		})
	}
}
