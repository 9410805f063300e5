package models

import (
	"time"

	"github.com/google/uuid"
)

// JobType identifies what a sync job synchronized
type JobType string

const (
	JobTypeInventorySync JobType = "inventory_sync"
	JobTypeSalesSync     JobType = "sales_sync"
	JobTypeSalesBackfill JobType = "sales_backfill"
)

// SyncStatus represents the status of a sync job
type SyncStatus string

const (
	SyncStatusPending   SyncStatus = "pending"
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed
func (s SyncStatus) IsTerminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusFailed
}

// SyncJob is one attempt to synchronize a marketplace (or a group of
// marketplaces sharing a credential). Rows are never deleted.
type SyncJob struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	JobType          JobType    `gorm:"type:varchar(50);not null;index:idx_sync_jobs_type_mp" json:"job_type"`
	Marketplace      string     `gorm:"type:varchar(50);not null;index:idx_sync_jobs_type_mp" json:"marketplace"`
	Status           SyncStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	StartedAt        *time.Time `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	RecordsProcessed int        `gorm:"not null;default:0" json:"records_processed"`
	ErrorMessage     *string    `gorm:"type:text" json:"error_message"`
	CreatedAt        time.Time  `gorm:"index:idx_sync_jobs_created" json:"created_at"`
}

// TableName specifies the table name for GORM
func (SyncJob) TableName() string {
	return "sync_jobs"
}
