package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

// SyncRepository handles database operations for sync jobs
type SyncRepository struct {
	db *gorm.DB
}

// NewSyncRepository creates a new sync repository
func NewSyncRepository(db *gorm.DB) *SyncRepository {
	return &SyncRepository{db: db}
}

// CreateJob inserts a new sync job
func (r *SyncRepository) CreateJob(ctx context.Context, job *models.SyncJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetJobByID retrieves a sync job by ID
func (r *SyncRepository) GetJobByID(ctx context.Context, id uuid.UUID) (*models.SyncJob, error) {
	var job models.SyncJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// TransitionJob applies updates only while the job is still in status from.
// It reports whether a row was changed.
func (r *SyncRepository) TransitionJob(ctx context.Context, id uuid.UUID, from models.SyncStatus, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SyncJob{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListRecent returns the newest jobs first
func (r *SyncRepository) ListRecent(ctx context.Context, limit int) ([]models.SyncJob, error) {
	var jobs []models.SyncJob
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// LastPerTypeAndMarketplace returns the newest job for every (job_type, marketplace) pair
func (r *SyncRepository) LastPerTypeAndMarketplace(ctx context.Context) ([]models.SyncJob, error) {
	var jobs []models.SyncJob
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT ON (job_type, marketplace)
			id, job_type, marketplace, status, started_at, completed_at,
			records_processed, error_message, created_at
		FROM sync_jobs
		ORDER BY job_type, marketplace, created_at DESC
	`).Scan(&jobs).Error
	return jobs, err
}
