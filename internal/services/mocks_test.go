package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

// memJobStore is an in-memory JobStore that honours the status guard
type memJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.SyncJob
	seq  []uuid.UUID
}

var _ JobStore = (*memJobStore)(nil)

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[uuid.UUID]*models.SyncJob)}
}

func (s *memJobStore) CreateJob(_ context.Context, job *models.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	s.seq = append(s.seq, job.ID)
	return nil
}

func (s *memJobStore) GetJobByID(_ context.Context, id uuid.UUID) (*models.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.jobs[id]
	return &cp, nil
}

func (s *memJobStore) TransitionJob(_ context.Context, id uuid.UUID, from models.SyncStatus, updates map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != from {
		return false, nil
	}
	for k, v := range updates {
		switch k {
		case "status":
			job.Status = v.(models.SyncStatus)
		case "started_at":
			ts := v.(time.Time)
			job.StartedAt = &ts
		case "completed_at":
			ts := v.(time.Time)
			job.CompletedAt = &ts
		case "records_processed":
			job.RecordsProcessed = v.(int)
		case "error_message":
			msg := v.(string)
			job.ErrorMessage = &msg
		}
	}
	return true, nil
}

func (s *memJobStore) ListRecent(_ context.Context, limit int) ([]models.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SyncJob, 0, limit)
	for i := len(s.seq) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *s.jobs[s.seq[i]])
	}
	return out, nil
}

func (s *memJobStore) LastPerTypeAndMarketplace(_ context.Context) ([]models.SyncJob, error) {
	return nil, nil
}

// all returns jobs in creation order
func (s *memJobStore) all() []models.SyncJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SyncJob, 0, len(s.seq))
	for _, id := range s.seq {
		out = append(out, *s.jobs[id])
	}
	return out
}

type MockEventPublisher struct {
	mock.Mock
}

var _ EventPublisher = (*MockEventPublisher)(nil)

func (m *MockEventPublisher) PublishSyncJob(ctx context.Context, job *models.SyncJob) {
	m.Called(ctx, job)
}

func (m *MockEventPublisher) PublishProjectionRefreshed(ctx context.Context, kind string, rows int) {
	m.Called(ctx, kind, rows)
}
