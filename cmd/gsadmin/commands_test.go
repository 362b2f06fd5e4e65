package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gramasevaka/gs-portal-api/databases"
	mocksdb "github.com/gramasevaka/gs-portal-api/databases/mocks"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/notifications"
	templates "github.com/gramasevaka/gs-portal-api/templates/html"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

var testNow = time.Date(2025, 5, 20, 8, 30, 0, 0, time.UTC)

type approvals struct {
	sent []notifications.Recipient
}

func (n *approvals) StatusChanged(context.Context, notifications.Recipient, templates.StatusEmailData) error {
	return nil
}

func (n *approvals) AccountApproved(_ context.Context, to notifications.Recipient, _ string) error {
	n.sent = append(n.sent, to)
	return nil
}

func run(t *testing.T, a *admin, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	if a.now == nil {
		a.now = func() time.Time { return testNow }
	}
	var out bytes.Buffer
	root := newRootCmd(a)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestOfficersList(t *testing.T) {
	users := &mocksdb.EntityDatabase[models.User]{}
	users.On("Find", mock.Anything, bson.M{"role": workflow.RoleOfficer, "accountStatus": models.AccountPending}).
		Return([]models.User{{Username: "nimal", FullName: "Nimal Silva", GSID: "GS-042", Division: "Kolonnawa", AccountStatus: models.AccountPending, CreatedAt: testNow}}, nil)
	users.On("Find", mock.Anything, bson.M{"role": workflow.RoleOfficer}).Return([]models.User{}, nil)

	out, err := run(t, &admin{users: users}, "officers", "list", "--pending")
	require.NoError(t, err)
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "nimal")
	assert.Contains(t, out, "GS-042")
	assert.Contains(t, out, "2025-05-20")

	out, err = run(t, &admin{users: users}, "officers", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No officers found.")
	users.AssertExpectations(t)
}

func TestOfficersApprove(t *testing.T) {
	t.Run("pending officer", func(t *testing.T) {
		users := &mocksdb.EntityDatabase[models.User]{}
		users.On("FindOneAndUpdate", mock.Anything,
			bson.M{"username": "nimal", "role": workflow.RoleOfficer, "accountStatus": models.AccountPending},
			bson.M{"$set": bson.M{"accountStatus": models.AccountActive, "updatedAt": testNow}},
		).Return(&models.User{Username: "nimal", FullName: "Nimal Silva", Email: "nimal@example.lk", GSID: "GS-042"}, nil)
		n := &approvals{}

		out, err := run(t, &admin{users: users, notifier: n}, "officers", "approve", "nimal")
		require.NoError(t, err)
		assert.Contains(t, out, "approved nimal (GS-042)")
		assert.Equal(t, []notifications.Recipient{{Name: "Nimal Silva", Email: "nimal@example.lk"}}, n.sent)
	})

	t.Run("nobody pending", func(t *testing.T) {
		users := &mocksdb.EntityDatabase[models.User]{}
		users.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(nil, databases.ErrNotFound)
		n := &approvals{}

		_, err := run(t, &admin{users: users, notifier: n}, "officers", "approve", "kamal")
		require.Error(t, err)
		assert.Equal(t, `no pending officer named "kamal"`, err.Error())
		assert.Empty(t, n.sent)
	})

	t.Run("requires a username", func(t *testing.T) {
		_, err := run(t, &admin{users: &mocksdb.EntityDatabase[models.User]{}}, "officers", "approve")
		assert.Error(t, err)
	})
}

func TestUsersSuspend(t *testing.T) {
	id := primitive.NewObjectID()

	t.Run("revokes tokens", func(t *testing.T) {
		users := &mocksdb.EntityDatabase[models.User]{}
		users.On("FindOne", mock.Anything, bson.M{"username": "kamal"}).
			Return(&models.User{ID: id, Username: "kamal", Role: workflow.RoleCitizen, AccountStatus: models.AccountActive}, nil)
		users.On("UpdateOne", mock.Anything, bson.M{"_id": id}, bson.M{"$set": bson.M{
			"accountStatus":    models.AccountSuspended,
			"tokensValidAfter": testNow.Add(time.Second),
			"updatedAt":        testNow,
		}}).Return(int64(1), nil)

		out, err := run(t, &admin{users: users}, "users", "suspend", "kamal")
		require.NoError(t, err)
		assert.Contains(t, out, "suspended kamal")
		users.AssertExpectations(t)
	})

	t.Run("already suspended", func(t *testing.T) {
		users := &mocksdb.EntityDatabase[models.User]{}
		users.On("FindOne", mock.Anything, mock.Anything).
			Return(&models.User{ID: id, Username: "kamal", AccountStatus: models.AccountSuspended}, nil)

		out, err := run(t, &admin{users: users}, "users", "suspend", "kamal")
		require.NoError(t, err)
		assert.Contains(t, out, "already suspended")
		users.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		users := &mocksdb.EntityDatabase[models.User]{}
		users.On("FindOne", mock.Anything, mock.Anything).Return(nil, databases.ErrNotFound)

		_, err := run(t, &admin{users: users}, "users", "suspend", "ghost")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `no user named "ghost"`)
	})
}

func TestUsersActivate(t *testing.T) {
	id := primitive.NewObjectID()

	tests := []struct {
		name    string
		status  models.AccountStatus
		updates bool
		wantErr bool
	}{
		{"suspended", models.AccountSuspended, true, false},
		{"already active", models.AccountActive, false, false},
		{"pending officer", models.AccountPending, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mocksdb.EntityDatabase[models.User]{}
			users.On("FindOne", mock.Anything, bson.M{"username": "kamal"}).
				Return(&models.User{ID: id, Username: "kamal", AccountStatus: tt.status}, nil)
			users.On("UpdateOne", mock.Anything, bson.M{"_id": id}, mock.Anything).Return(int64(1), nil)

			_, err := run(t, &admin{users: users}, "users", "activate", "kamal")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.updates {
				users.AssertCalled(t, "UpdateOne", mock.Anything, bson.M{"_id": id}, mock.Anything)
			} else {
				users.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestEnsureIndexes(t *testing.T) {
	calls := 0
	a := &admin{
		users:         &mocksdb.EntityDatabase[models.User]{},
		ensureIndexes: func(context.Context) error { calls++; return nil },
	}
	out, err := run(t, a, "db", "ensure-indexes")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, out, "indexes ensured")

	a.ensureIndexes = func(context.Context) error { return errors.New("not primary") }
	_, err = run(t, a, "db", "ensure-indexes")
	assert.EqualError(t, err, "not primary")
}
