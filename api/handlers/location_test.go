package handlers_test

import (
	"net/http"
	"testing"
	"time"

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
)

func newLocations(db *mocksdb.EntityDatabase[models.Location]) handlers.Location {
	return handlers.Location{DB: db, Now: func() time.Time { return fixedNow }}
}

func temple() models.LocationRequest {
	return models.LocationRequest{
		Name:      "Sri Bodhirukkarama",
		Type:      "Temple",
		Address:   "12 Temple Road, Kolonnawa",
		Latitude:  6.9271,
		Longitude: 79.8612,
	}
}

func TestLocation_Create(t *testing.T) {
	citizen := testhelpers.Citizen()
	officer := testhelpers.Officer()

	t.Run("officer registrations are verified", func(t *testing.T) {
		db := &mocksdb.EntityDatabase[models.Location]{}
		db.On("InsertOne", mock.Anything, mock.AnythingOfType("*models.Location")).Return(nil)

		rr := serve(newLocations(db).CreateHandler, testhelpers.Request("POST", "/api/locations", testhelpers.JSON(t, temple()), &officer, nil))
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var got models.Location
		testhelpers.Decode(t, rr, &got)
		assert.True(t, got.Verified)
		require.NotNil(t, got.VerifiedBy)
		assert.Equal(t, officer.ID, *got.VerifiedBy)
		assert.Equal(t, "temple", got.Type)
		assert.Equal(t, [2]float64{79.8612, 6.9271}, got.Coordinates.Coordinates)
	})

	t.Run("citizen registrations wait for an officer", func(t *testing.T) {
		db := &mocksdb.EntityDatabase[models.Location]{}
		db.On("InsertOne", mock.Anything, mock.AnythingOfType("*models.Location")).Return(nil)

		rr := serve(newLocations(db).CreateHandler, testhelpers.Request("POST", "/api/locations", testhelpers.JSON(t, temple()), &citizen, nil))
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var got models.Location
		testhelpers.Decode(t, rr, &got)
		assert.False(t, got.Verified)
		assert.Nil(t, got.VerifiedBy)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*models.LocationRequest)
		}{
			{"missing name", func(r *models.LocationRequest) { r.Name = " " }},
			{"unknown type", func(r *models.LocationRequest) { r.Type = "castle" }},
			{"missing address", func(r *models.LocationRequest) { r.Address = "" }},
			{"latitude out of range", func(r *models.LocationRequest) { r.Latitude = 91 }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				db := &mocksdb.EntityDatabase[models.Location]{}
				req := temple()
				tt.mutate(&req)
				rr := serve(newLocations(db).CreateHandler, testhelpers.Request("POST", "/", testhelpers.JSON(t, req), &citizen, nil))
				assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
				db.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
			})
		}
	})
}

func TestLocation_NearHandler(t *testing.T) {
	db := &mocksdb.EntityDatabase[models.Location]{}
	db.On("Find", mock.Anything, mock.MatchedBy(func(f bson.M) bool {
		near, ok := f["coordinates"].(bson.M)["$nearSphere"].(bson.M)
		return ok && near["$maxDistance"] == 500 && f["type"] == "hospital"
	})).Return([]models.Location{{Name: "Base hospital", Type: "hospital"}}, nil)
	l := newLocations(db)

	rr := serve(l.NearHandler, testhelpers.Request("GET", "/api/locations/near?lat=6.92&lng=79.86&radius=500&type=hospital", nil, nil, nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got []models.Location
	testhelpers.Decode(t, rr, &got)
	require.Len(t, got, 1)
	assert.Equal(t, "Base hospital", got[0].Name)

	for _, target := range []string{
		"/api/locations/near?lat=abc&lng=79.86",
		"/api/locations/near?lat=6.92",
		"/api/locations/near?lat=100&lng=79.86",
		"/api/locations/near?lat=6.92&lng=79.86&radius=-5",
	} {
		rr := serve(l.NearHandler, testhelpers.Request("GET", target, nil, nil, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
	db.AssertNumberOfCalls(t, "Find", 1)
}

func TestLocation_Delete(t *testing.T) {
	citizen := testhelpers.Citizen()
	id := primitive.NewObjectID()
	own := bson.M{"_id": id, "registeredBy": citizen.ID}

	t.Run("registrant", func(t *testing.T) {
		db := &mocksdb.EntityDatabase[models.Location]{}
		db.On("DeleteOne", mock.Anything, own).Return(int64(1), nil)
		rr := serve(newLocations(db).DeleteHandler, testhelpers.Request("DELETE", "/", nil, &citizen, vars(id)))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("someone else's location", func(t *testing.T) {
		db := &mocksdb.EntityDatabase[models.Location]{}
		db.On("DeleteOne", mock.Anything, own).Return(int64(0), nil)
		db.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.Location{ID: id}, nil)
		rr := serve(newLocations(db).DeleteHandler, testhelpers.Request("DELETE", "/", nil, &citizen, vars(id)))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("missing location", func(t *testing.T) {
		db := &mocksdb.EntityDatabase[models.Location]{}
		db.On("DeleteOne", mock.Anything, own).Return(int64(0), nil)
		db.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(nil, databases.ErrNotFound)
		rr := serve(newLocations(db).DeleteHandler, testhelpers.Request("DELETE", "/", nil, &citizen, vars(id)))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
