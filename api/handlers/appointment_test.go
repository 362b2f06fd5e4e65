package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/gramasevaka/gs-portal-api/api/handlers"
	"github.com/gramasevaka/gs-portal-api/api/testhelpers"
	"github.com/gramasevaka/gs-portal-api/databases"
	mocksdb "github.com/gramasevaka/gs-portal-api/databases/mocks"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

func TestOfficeSlots(t *testing.T) {
	slots := handlers.OfficeSlots()
	require.Len(t, slots, 14)
	assert.Equal(t, "09:00-09:30", slots[0])
	assert.Equal(t, "10:00-10:30", slots[2])
	assert.Equal(t, "15:30-16:00", slots[13])
}

func TestAppointment_DoubleBookingAndRebook(t *testing.T) {
	alice := testhelpers.Citizen()
	bob := testhelpers.Citizen()

	appointments := &mocksdb.EntityDatabase[models.Appointment]{}
	counters := &mocksdb.CounterDatabase{}
	counters.On("Next", mock.Anything, "appointment:2025").Return(int64(1), nil).Once()
	counters.On("Next", mock.Anything, "appointment:2025").Return(int64(2), nil).Once()
	counters.On("Next", mock.Anything, "appointment:2025").Return(int64(3), nil).Once()

	var first *models.Appointment
	appointments.On("InsertOne", mock.Anything, mock.AnythingOfType("*models.Appointment")).
		Run(func(args mock.Arguments) { first = args.Get(1).(*models.Appointment) }).
		Return(nil).Once()
	appointments.On("InsertOne", mock.Anything, mock.AnythingOfType("*models.Appointment")).
		Return(databases.ErrDuplicate).Once()
	appointments.On("InsertOne", mock.Anything, mock.AnythingOfType("*models.Appointment")).
		Return(nil).Once()

	h := handlers.NewAppointment(testDeps(counters), appointments)
	booking := models.AppointmentRequest{Date: "2025-06-01", TimeSlot: "10:00-10:30", Purpose: "certificate collection"}

	rr := serve(h.BookHandler, testhelpers.Request("POST", "/api/appointments", testhelpers.JSON(t, booking), &alice, nil))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var booked models.Appointment
	testhelpers.Decode(t, rr, &booked)
	assert.Equal(t, "APT-25-0001", booked.Number)
	assert.Equal(t, workflow.StatusPending, booked.Status)
	require.NotNil(t, first)
	assert.True(t, first.SlotHeld)

	rr = serve(h.BookHandler, testhelpers.Request("POST", "/api/appointments", testhelpers.JSON(t, booking), &bob, nil))
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "slot already booked", testhelpers.ErrorMessage(t, rr))

	// alice cancels, freeing the slot
	cancelled := *first
	cancelled.Status = workflow.StatusCancelled
	cancelled.SlotHeld = false
	appointments.On("FindOne", mock.Anything, bson.M{"_id": first.ID}).Return(first, nil)
	appointments.On("FindOneAndUpdate", mock.Anything,
		bson.M{"_id": first.ID, "status": workflow.StatusPending},
		mock.MatchedBy(func(u bson.M) bool {
			set := u["$set"].(bson.M)
			return set["status"] == workflow.StatusCancelled && set["slotHeld"] == false
		}),
	).Return(&cancelled, nil)

	rr = serve(h.CancelHandler, testhelpers.Request("PUT", "/", nil, &alice, map[string]string{"id": first.ID.Hex()}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got models.Appointment
	testhelpers.Decode(t, rr, &got)
	assert.Equal(t, workflow.StatusCancelled, got.Status)

	rr = serve(h.BookHandler, testhelpers.Request("POST", "/api/appointments", testhelpers.JSON(t, booking), &bob, nil))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	testhelpers.Decode(t, rr, &booked)
	assert.Equal(t, "APT-25-0003", booked.Number)

	appointments.AssertExpectations(t)
	counters.AssertExpectations(t)
}

func TestAppointment_BookValidation(t *testing.T) {
	citizen := testhelpers.Citizen()
	tests := []struct {
		name    string
		request models.AppointmentRequest
	}{
		{"bad date", models.AppointmentRequest{Date: "01/06/2025", TimeSlot: "10:00-10:30", Purpose: "visit"}},
		{"past date", models.AppointmentRequest{Date: "2025-05-19", TimeSlot: "10:00-10:30", Purpose: "visit"}},
		{"slot off the grid", models.AppointmentRequest{Date: "2025-06-01", TimeSlot: "10:15-10:45", Purpose: "visit"}},
		{"after hours", models.AppointmentRequest{Date: "2025-06-01", TimeSlot: "16:00-16:30", Purpose: "visit"}},
		{"no purpose", models.AppointmentRequest{Date: "2025-06-01", TimeSlot: "10:00-10:30"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appointments := &mocksdb.EntityDatabase[models.Appointment]{}
			counters := &mocksdb.CounterDatabase{}
			h := handlers.NewAppointment(testDeps(counters), appointments)

			rr := serve(h.BookHandler, testhelpers.Request("POST", "/", testhelpers.JSON(t, tt.request), &citizen, nil))
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			counters.AssertNotCalled(t, "Next", mock.Anything, mock.Anything)
		})
	}
}

func TestAppointment_SlotsHandler(t *testing.T) {
	appointments := &mocksdb.EntityDatabase[models.Appointment]{}
	appointments.On("Find", mock.Anything, bson.M{"date": "2025-06-01", "slotHeld": true}).
		Return([]models.Appointment{{Date: "2025-06-01", TimeSlot: "10:00-10:30", SlotHeld: true}}, nil)
	appointments.On("Find", mock.Anything, bson.M{"date": "2025-05-01", "slotHeld": true}).
		Return([]models.Appointment{}, nil)
	h := handlers.NewAppointment(testDeps(nil), appointments)

	rr := serve(h.SlotsHandler, testhelpers.Request("GET", "/api/appointments/available-slots?date=2025-06-01", nil, nil, nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var day models.SlotAvailability
	testhelpers.Decode(t, rr, &day)
	require.Len(t, day.Slots, 14)
	for _, s := range day.Slots {
		assert.Equal(t, s.TimeSlot != "10:00-10:30", s.Available, s.TimeSlot)
	}

	rr = serve(h.SlotsHandler, testhelpers.Request("GET", "/api/appointments/available-slots?date=2025-05-01", nil, nil, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	testhelpers.Decode(t, rr, &day)
	for _, s := range day.Slots {
		assert.False(t, s.Available, "past days are never bookable")
	}

	rr = serve(h.SlotsHandler, testhelpers.Request("GET", "/api/appointments/available-slots", nil, nil, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAppointment_CitizenCannotCancelPastAppointment(t *testing.T) {
	citizen := testhelpers.Citizen()
	past := &models.Appointment{
		WorkflowFields: models.NewWorkflowFields(workflow.Appointments, "APT-25-0007", citizen.ID, fixedNow),
		Date:           "2025-05-01",
		TimeSlot:       "09:00-09:30",
		SlotHeld:       true,
	}
	past.Status = workflow.StatusConfirmed

	appointments := &mocksdb.EntityDatabase[models.Appointment]{}
	appointments.On("FindOne", mock.Anything, bson.M{"_id": past.ID}).Return(past, nil)
	h := handlers.NewAppointment(testDeps(nil), appointments)

	rr := serve(h.CancelHandler, testhelpers.Request("PUT", "/", nil, &citizen, map[string]string{"id": past.ID.Hex()}))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, testhelpers.ErrorMessage(t, rr), "already taken place")
	appointments.AssertNotCalled(t, "FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestAppointment_CitizenCannotConfirm(t *testing.T) {
	citizen := testhelpers.Citizen()
	appt := &models.Appointment{
		WorkflowFields: models.NewWorkflowFields(workflow.Appointments, "APT-25-0008", citizen.ID, fixedNow),
		Date:           "2025-06-01",
		TimeSlot:       "09:00-09:30",
	}
	appointments := &mocksdb.EntityDatabase[models.Appointment]{}
	appointments.On("FindOne", mock.Anything, bson.M{"_id": appt.ID}).Return(appt, nil)
	h := handlers.NewAppointment(testDeps(nil), appointments)

	body := testhelpers.JSON(t, models.StatusUpdateRequest{Status: workflow.StatusConfirmed})
	rr := serve(h.StatusHandler, testhelpers.Request("PUT", "/", body, &citizen, map[string]string{"id": appt.ID.Hex()}))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
