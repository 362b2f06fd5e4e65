package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gramasevaka/gs-portal-api/databases/mocks"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

func newTestMiddleware(t *testing.T, user *models.User, now time.Time) (*MiddlewareDB, *mocks.EntityDatabase[models.User]) {
	t.Helper()
	db := &mocks.EntityDatabase[models.User]{}
	db.On("FindOne", mock.Anything, mock.Anything).Return(user, nil)

	m := &MiddlewareDB{DB: db, Tokens: fixedIssuer(now)}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m.SetupGoGuardian(ctx, time.Minute)
	return m, db
}

func callerEcho(t *testing.T, got *Caller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := CallerFromContext(r.Context())
		require.True(t, ok)
		*got = c
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_ValidToken(t *testing.T) {
	now := time.Now()
	user := &models.User{ID: primitive.NewObjectID(), Username: "kamal", Role: workflow.RoleOfficer, AccountStatus: models.AccountActive}
	m, db := newTestMiddleware(t, user, now)

	token, _, err := m.Tokens.Issue(user.ID.Hex(), time.Time{})
	require.NoError(t, err)

	var got Caller
	h := m.Middleware(callerEcho(t, &got))
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/api/auth/profile", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "kamal", got.Username)
	assert.Equal(t, workflow.RoleOfficer, got.Role)
	// the second request is served from the token cache
	db.AssertNumberOfCalls(t, "FindOne", 1)
}

func TestMiddleware_Rejects(t *testing.T) {
	now := time.Now()
	id := primitive.NewObjectID()

	tests := []struct {
		name string
		user *models.User
	}{
		{"pending account", &models.User{ID: id, Role: workflow.RoleOfficer, AccountStatus: models.AccountPending}},
		{"suspended account", &models.User{ID: id, Role: workflow.RoleCitizen, AccountStatus: models.AccountSuspended}},
		{"revoked token", &models.User{ID: id, Role: workflow.RoleCitizen, AccountStatus: models.AccountActive, TokensValidAfter: now.Add(time.Minute)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestMiddleware(t, tt.user, now)
			token, _, err := m.Tokens.Issue(id.Hex(), time.Time{})
			require.NoError(t, err)

			req := httptest.NewRequest("GET", "/api/auth/profile", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rr := httptest.NewRecorder()
			m.Middleware(http.NotFoundHandler()).ServeHTTP(rr, req)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestMiddleware_MissingToken(t *testing.T) {
	m, _ := newTestMiddleware(t, &models.User{}, time.Now())
	rr := httptest.NewRecorder()
	m.Middleware(http.NotFoundHandler()).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddleware_RevokeEvictsCachedToken(t *testing.T) {
	now := time.Now()
	user := &models.User{ID: primitive.NewObjectID(), Username: "nimal", Role: workflow.RoleCitizen, AccountStatus: models.AccountActive}
	m, db := newTestMiddleware(t, user, now)
	token, _, err := m.Tokens.Issue(user.ID.Hex(), time.Time{})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, m.Revoke(r))
	})).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	// after logout the account rejects older tokens
	revoked := *user
	revoked.TokensValidAfter = now.Add(time.Second)
	db.ExpectedCalls = nil
	db.On("FindOne", mock.Anything, mock.Anything).Return(&revoked, nil)

	rr = httptest.NewRecorder()
	m.Middleware(http.NotFoundHandler()).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthorize(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := Authorize(workflow.RoleOfficer)(ok)

	req := httptest.NewRequest("GET", "/api/gs/requests", nil)
	req = req.WithContext(WithCaller(req.Context(), Caller{Role: workflow.RoleCitizen}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), `role \"citizen\" is not allowed`)

	req = req.WithContext(WithCaller(req.Context(), Caller{Role: workflow.RoleOfficer}))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	_, ok := BearerToken(req)
	assert.False(t, ok)

	req.Header.Set("Authorization", "Bearer abc")
	token, ok := BearerToken(req)
	assert.True(t, ok)
	assert.Equal(t, "abc", token)
}
