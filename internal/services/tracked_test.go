package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
	"github.com/ahmtersoy23-ui/databridge/internal/repository"
)

func TestSyncSales_CancelledRunStillRecordsFailure(t *testing.T) {
	mockDB, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}),
		&gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlMock.ExpectQuery(`INSERT INTO "sync_jobs"`).
		WillReturnRows(sqlmock.NewRows([]string{"records_processed"}).AddRow(0))
	sqlMock.ExpectExec(`UPDATE "sync_jobs" SET "started_at"=\$1,"status"=\$2 WHERE id = \$3 AND status = \$4`).
		WithArgs(sqlmock.AnyArg(), models.SyncStatusRunning, sqlmock.AnyArg(), models.SyncStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectExec(`UPDATE "sync_jobs" SET "completed_at"=\$1,"error_message"=\$2,"status"=\$3 WHERE id = \$4 AND status = \$5`).
		WithArgs(sqlmock.AnyArg(), context.Canceled.Error(), models.SyncStatusFailed, sqlmock.AnyArg(), models.SyncStatusRunning).
		WillReturnResult(sqlmock.NewResult(0, 1))

	f := newSyncFixture()
	f.svc.deps.Tracker = NewJobTracker(repository.NewSyncRepository(db), nil, nil)
	mp := euMarketplaces()[0]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.fetcher.On("FetchOrders", mock.Anything, mp, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return([]models.RawOrder(nil), context.Canceled)

	_, err = f.svc.SyncSalesForMarketplace(ctx, mp, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, sqlMock.ExpectationsWereMet(), "job must reach failed")
}

func TestSyncInventory_EmptySnapshotKeepsWarehouse(t *testing.T) {
	f := newSyncFixture()
	mp := euMarketplaces()[2]
	f.fetcher.On("FetchInventorySnapshot", mock.Anything, mp).Return([]models.FbaInventoryItem{}, nil)

	n, err := f.svc.SyncInventoryForMarketplace(context.Background(), mp)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	f.inventory.AssertNotCalled(t, "ReplaceWarehouse", mock.Anything, mock.Anything, mock.Anything)

	jobs, _ := f.jobs.ListRecent(context.Background(), 1)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.SyncStatusCompleted, jobs[0].Status)
	assert.Equal(t, 0, jobs[0].RecordsProcessed)
}

// startFailingStore rejects the pending -> running transition
type startFailingStore struct {
	*memJobStore
}

func (s startFailingStore) TransitionJob(ctx context.Context, id uuid.UUID, from models.SyncStatus, updates map[string]interface{}) (bool, error) {
	if updates["status"] == models.SyncStatusRunning {
		return false, errors.New("connection reset")
	}
	return s.memJobStore.TransitionJob(ctx, id, from, updates)
}

func TestTracked_StartFailureFailsJob(t *testing.T) {
	f := newSyncFixture()
	f.svc.deps.Tracker = NewJobTracker(startFailingStore{f.jobs}, nil, nil)
	mp := euMarketplaces()[0]

	_, err := f.svc.SyncInventoryForMarketplace(context.Background(), mp)
	assert.ErrorContains(t, err, "connection reset")
	f.fetcher.AssertNotCalled(t, "FetchInventorySnapshot", mock.Anything, mock.Anything)

	jobs, _ := f.jobs.ListRecent(context.Background(), 1)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.SyncStatusFailed, jobs[0].Status)
	require.NotNil(t, jobs[0].ErrorMessage)
	assert.Contains(t, *jobs[0].ErrorMessage, "connection reset")
}

func TestJobTracker_AbandonOnlyFromPending(t *testing.T) {
	store := newMemJobStore()
	tracker := NewJobTracker(store, nil, nil)
	ctx := context.Background()

	job, err := tracker.Create(ctx, models.JobTypeSalesSync, "US")
	require.NoError(t, err)
	require.NoError(t, tracker.Abandon(ctx, job.ID, errors.New("lock lost")))

	stored, _ := store.GetJobByID(ctx, job.ID)
	assert.Equal(t, models.SyncStatusFailed, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
	assert.ErrorIs(t, tracker.Abandon(ctx, job.ID, nil), ErrInvalidTransition)
}
