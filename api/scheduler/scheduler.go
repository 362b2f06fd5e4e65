package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/gramasevaka/gs-portal-api/databases"
	"github.com/gramasevaka/gs-portal-api/storage"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

const (
	// StagingMaxAge is how long a staged upload may wait for its record.
	StagingMaxAge = time.Hour

	sweepJob  = "sweep_staging"
	noShowJob = "mark_no_shows"
)

// Scheduler handles periodic background jobs
type Scheduler struct {
	cron       *cron.Cron
	Sweeper    storage.Sweeper
	ADB        databases.AppointmentDatabase
	LockDB     databases.LockDatabase
	instanceID string
	now        func() time.Time
}

// NewScheduler creates a new scheduler instance. sweeper may be nil when the
// configured store has nothing to sweep.
func NewScheduler(sweeper storage.Sweeper, aDB databases.AppointmentDatabase, lockDB databases.LockDatabase) *Scheduler {
	instanceID := os.Getenv("DYNO")
	if instanceID == "" {
		host, _ := os.Hostname()
		instanceID = fmt.Sprintf("%s-%d", host, time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		Sweeper:    sweeper,
		ADB:        aDB,
		LockDB:     lockDB,
		instanceID: instanceID,
		now:        time.Now,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	if s.Sweeper != nil {
		if _, err := s.cron.AddFunc("@every 15m", func() { s.sweepStaging() }); err != nil {
			zap.S().Errorw("failed to register staging sweep job", "error", err)
		}
	}

	// just after midnight, confirmed appointments of earlier days become no-shows
	if _, err := s.cron.AddFunc("5 0 * * *", func() { s.markNoShows() }); err != nil {
		zap.S().Errorw("failed to register no-show job", "error", err)
	}

	s.cron.Start()
	zap.S().Infow("scheduler started", "instance", s.instanceID)
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("scheduler stopped")
}

// withLock runs job while holding the named lease.
func (s *Scheduler) withLock(ctx context.Context, name string, ttl time.Duration, job func(context.Context)) bool {
	acquired, err := s.LockDB.TryAcquireLock(ctx, name, s.instanceID, ttl)
	if err != nil {
		zap.S().Errorw("failed to acquire lock", "job", name, "error", err)
		return false
	}
	if !acquired {
		zap.S().Debugw("job already running on another instance, skipping", "job", name)
		return false
	}
	defer func() {
		if err := s.LockDB.ReleaseLock(context.Background(), name, s.instanceID); err != nil {
			zap.S().Warnw("failed to release lock", "job", name, "error", err)
		}
	}()
	job(ctx)
	return true
}

func (s *Scheduler) sweepStaging() int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed := 0
	s.withLock(ctx, sweepJob, 10*time.Minute, func(ctx context.Context) {
		n, err := s.Sweeper.SweepStaging(ctx, StagingMaxAge)
		if err != nil {
			zap.S().Errorw("staging sweep failed", "error", err)
		}
		removed = n
		if n > 0 {
			zap.S().Infow("removed abandoned uploads", "count", n)
		}
	})
	return removed
}

func (s *Scheduler) markNoShows() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var marked int64
	s.withLock(ctx, noShowJob, 10*time.Minute, func(ctx context.Context) {
		now := s.now().UTC()
		today := now.Format("2006-01-02")

		filter := bson.M{
			"status": workflow.StatusConfirmed,
			"date":   bson.M{"$lt": today},
		}
		update := bson.M{
			"$set": bson.M{"status": workflow.StatusNoShow, "updatedAt": now},
			"$push": bson.M{"history": workflow.StatusChange{
				From:   workflow.StatusConfirmed,
				To:     workflow.StatusNoShow,
				By:     primitive.NilObjectID,
				ByRole: workflow.RoleSystem,
				At:     now,
			}},
		}
		n, err := s.ADB.UpdateMany(ctx, filter, update)
		if err != nil {
			zap.S().Errorw("failed to mark no-show appointments", "error", err)
			return
		}
		marked = n
		zap.S().Infow("marked missed appointments as no-show", "count", n, "before", today)
	})
	return marked
}
