package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

// ErrInvalidTransition is returned when a job is not in the status a transition requires
var ErrInvalidTransition = errors.New("invalid sync job transition")

// JobStore persists sync jobs
type JobStore interface {
	CreateJob(ctx context.Context, job *models.SyncJob) error
	GetJobByID(ctx context.Context, id uuid.UUID) (*models.SyncJob, error)
	TransitionJob(ctx context.Context, id uuid.UUID, from models.SyncStatus, updates map[string]interface{}) (bool, error)
	ListRecent(ctx context.Context, limit int) ([]models.SyncJob, error)
	LastPerTypeAndMarketplace(ctx context.Context) ([]models.SyncJob, error)
}

// EventPublisher announces sync and projection outcomes
type EventPublisher interface {
	PublishSyncJob(ctx context.Context, job *models.SyncJob)
	PublishProjectionRefreshed(ctx context.Context, kind string, rows int)
}

// JobTracker drives sync jobs through pending -> running -> completed|failed
type JobTracker struct {
	store     JobStore
	publisher EventPublisher
	now       func() time.Time
	logger    *logrus.Entry
}

// NewJobTracker creates a job tracker; publisher may be nil
func NewJobTracker(store JobStore, publisher EventPublisher, logger *logrus.Logger) *JobTracker {
	if logger == nil {
		logger = logrus.New()
	}
	return &JobTracker{
		store:     store,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.WithField("component", "job-tracker"),
	}
}

// Create records a pending job
func (t *JobTracker) Create(ctx context.Context, jobType models.JobType, marketplace string) (*models.SyncJob, error) {
	job := &models.SyncJob{
		ID:          uuid.New(),
		JobType:     jobType,
		Marketplace: marketplace,
		Status:      models.SyncStatusPending,
		CreatedAt:   t.now(),
	}
	if err := t.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create %s job for %s: %w", jobType, marketplace, err)
	}
	return job, nil
}

// Start moves a pending job to running
func (t *JobTracker) Start(ctx context.Context, id uuid.UUID) error {
	return t.transition(ctx, id, models.SyncStatusPending, map[string]interface{}{
		"status":     models.SyncStatusRunning,
		"started_at": t.now(),
	})
}

// Complete moves a running job to completed with its record count
func (t *JobTracker) Complete(ctx context.Context, id uuid.UUID, records int) error {
	if err := t.transition(ctx, id, models.SyncStatusRunning, map[string]interface{}{
		"status":            models.SyncStatusCompleted,
		"completed_at":      t.now(),
		"records_processed": records,
	}); err != nil {
		return err
	}
	t.announce(ctx, id)
	return nil
}

// Fail moves a running job to failed with the error message
func (t *JobTracker) Fail(ctx context.Context, id uuid.UUID, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	if err := t.transition(ctx, id, models.SyncStatusRunning, map[string]interface{}{
		"status":        models.SyncStatusFailed,
		"completed_at":  t.now(),
		"error_message": msg,
	}); err != nil {
		return err
	}
	t.announce(ctx, id)
	return nil
}

// Abandon fails a job that never started
func (t *JobTracker) Abandon(ctx context.Context, id uuid.UUID, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	if err := t.transition(ctx, id, models.SyncStatusPending, map[string]interface{}{
		"status":        models.SyncStatusFailed,
		"completed_at":  t.now(),
		"error_message": msg,
	}); err != nil {
		return err
	}
	t.announce(ctx, id)
	return nil
}

// ListRecent returns the newest jobs first
func (t *JobTracker) ListRecent(ctx context.Context, limit int) ([]models.SyncJob, error) {
	return t.store.ListRecent(ctx, limit)
}

// LastPerTypeAndMarketplace returns the newest job per (job_type, marketplace)
func (t *JobTracker) LastPerTypeAndMarketplace(ctx context.Context) ([]models.SyncJob, error) {
	return t.store.LastPerTypeAndMarketplace(ctx)
}

// transition and announce write under a detached context so a cancelled
// run still leaves its job in a terminal state
func (t *JobTracker) transition(ctx context.Context, id uuid.UUID, from models.SyncStatus, updates map[string]interface{}) error {
	changed, err := t.store.TransitionJob(context.WithoutCancel(ctx), id, from, updates)
	if err != nil {
		return fmt.Errorf("update sync job %s: %w", id, err)
	}
	if !changed {
		return fmt.Errorf("%w: job %s is not %s", ErrInvalidTransition, id, from)
	}
	return nil
}

func (t *JobTracker) announce(ctx context.Context, id uuid.UUID) {
	if t.publisher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	job, err := t.store.GetJobByID(ctx, id)
	if err != nil {
		t.logger.WithError(err).WithField("job_id", id).Warn("Failed to reload job for event")
		return
	}
	t.publisher.PublishSyncJob(ctx, job)
}
