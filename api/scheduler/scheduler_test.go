package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/gramasevaka/gs-portal-api/databases/mocks"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

type fakeSweeper struct {
	removed int
	err     error
	maxAge  time.Duration
}

func (f *fakeSweeper) SweepStaging(_ context.Context, olderThan time.Duration) (int, error) {
	f.maxAge = olderThan
	return f.removed, f.err
}

func TestMarkNoShows(t *testing.T) {
	adb := &mocks.EntityDatabase[models.Appointment]{}
	lock := &mocks.LockDatabase{}
	lock.On("TryAcquireLock", mock.Anything, noShowJob, mock.Anything, mock.Anything).Return(true, nil)
	lock.On("ReleaseLock", mock.Anything, noShowJob, mock.Anything).Return(nil)

	adb.On("UpdateMany", mock.Anything, mock.MatchedBy(func(f bson.M) bool {
		return f["status"] == workflow.StatusConfirmed &&
			assert.ObjectsAreEqual(bson.M{"$lt": "2025-06-02"}, f["date"])
	}), mock.MatchedBy(func(u bson.M) bool {
		set := u["$set"].(bson.M)
		push := u["$push"].(bson.M)["history"].(workflow.StatusChange)
		return set["status"] == workflow.StatusNoShow && push.ByRole == workflow.RoleSystem
	})).Return(int64(3), nil)

	s := NewScheduler(nil, adb, lock)
	s.now = func() time.Time { return time.Date(2025, 6, 2, 0, 5, 0, 0, time.UTC) }

	assert.EqualValues(t, 3, s.markNoShows())
	adb.AssertExpectations(t)
	lock.AssertExpectations(t)
}

func TestMarkNoShowsSkipsWhenLocked(t *testing.T) {
	adb := &mocks.EntityDatabase[models.Appointment]{}
	lock := &mocks.LockDatabase{}
	lock.On("TryAcquireLock", mock.Anything, noShowJob, mock.Anything, mock.Anything).Return(false, nil)

	s := NewScheduler(nil, adb, lock)
	assert.EqualValues(t, 0, s.markNoShows())
	adb.AssertNotCalled(t, "UpdateMany", mock.Anything, mock.Anything, mock.Anything)
}

func TestSweepStaging(t *testing.T) {
	lock := &mocks.LockDatabase{}
	lock.On("TryAcquireLock", mock.Anything, sweepJob, mock.Anything, mock.Anything).Return(true, nil)
	lock.On("ReleaseLock", mock.Anything, sweepJob, mock.Anything).Return(nil)

	sw := &fakeSweeper{removed: 2}
	s := NewScheduler(sw, nil, lock)
	assert.Equal(t, 2, s.sweepStaging())
	assert.Equal(t, StagingMaxAge, sw.maxAge)
}

func TestSweepStagingLockError(t *testing.T) {
	lock := &mocks.LockDatabase{}
	lock.On("TryAcquireLock", mock.Anything, sweepJob, mock.Anything, mock.Anything).Return(false, errors.New("mocked-error"))

	sw := &fakeSweeper{removed: 2}
	s := NewScheduler(sw, nil, lock)
	assert.Equal(t, 0, s.sweepStaging())
	assert.Zero(t, sw.maxAge)
}
