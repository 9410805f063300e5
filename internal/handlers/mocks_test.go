package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
	"github.com/ahmtersoy23-ui/databridge/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

// MockSyncRunner is a mock implementation of SyncRunner
type MockSyncRunner struct {
	mock.Mock
}

var _ SyncRunner = (*MockSyncRunner)(nil)

func (m *MockSyncRunner) Running() bool {
	return m.Called().Bool(0)
}

func (m *MockSyncRunner) RunInventorySync(ctx context.Context) (*services.RunSummary, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*services.RunSummary)
	return s, args.Error(1)
}

func (m *MockSyncRunner) RunSalesSync(ctx context.Context) (*services.RunSummary, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*services.RunSummary)
	return s, args.Error(1)
}

func (m *MockSyncRunner) SyncInventoryForMarketplace(ctx context.Context, mp models.MarketplaceConfig) (int, error) {
	args := m.Called(ctx, mp)
	return args.Int(0), args.Error(1)
}

func (m *MockSyncRunner) SyncSalesForMarketplace(ctx context.Context, mp models.MarketplaceConfig, daysBack int) (int, error) {
	args := m.Called(ctx, mp, daysBack)
	return args.Int(0), args.Error(1)
}

func (m *MockSyncRunner) BackfillSales(ctx context.Context, mp models.MarketplaceConfig, months int) (int, error) {
	args := m.Called(ctx, mp, months)
	return args.Int(0), args.Error(1)
}

func (m *MockSyncRunner) NormalizeBackfillMonths(months int) int {
	if months <= 0 {
		return services.DefaultBackfillMonths
	}
	return months
}

// MockProjectionRefresher is a mock implementation of ProjectionRefresher
type MockProjectionRefresher struct {
	mock.Mock
}

var _ ProjectionRefresher = (*MockProjectionRefresher)(nil)

func (m *MockProjectionRefresher) RefreshSales(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockProjectionRefresher) RefreshInventory(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockProjectionRefresher) RefreshAll(ctx context.Context) (int, int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Int(1), args.Error(2)
}

// MockMarketplaceFinder is a mock implementation of MarketplaceFinder
type MockMarketplaceFinder struct {
	mock.Mock
}

var _ MarketplaceFinder = (*MockMarketplaceFinder)(nil)

func (m *MockMarketplaceFinder) GetByCountryCode(ctx context.Context, code string) (*models.MarketplaceConfig, error) {
	args := m.Called(ctx, code)
	mp, _ := args.Get(0).(*models.MarketplaceConfig)
	return mp, args.Error(1)
}

// MockJobLister is a mock implementation of JobLister
type MockJobLister struct {
	mock.Mock
}

var _ JobLister = (*MockJobLister)(nil)

func (m *MockJobLister) ListRecent(ctx context.Context, limit int) ([]models.SyncJob, error) {
	args := m.Called(ctx, limit)
	jobs, _ := args.Get(0).([]models.SyncJob)
	return jobs, args.Error(1)
}

func (m *MockJobLister) LastPerTypeAndMarketplace(ctx context.Context) ([]models.SyncJob, error) {
	args := m.Called(ctx)
	jobs, _ := args.Get(0).([]models.SyncJob)
	return jobs, args.Error(1)
}

// MockCredentialStore is a mock implementation of CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

var _ CredentialStore = (*MockCredentialStore)(nil)

func (m *MockCredentialStore) List(ctx context.Context) ([]models.Credential, error) {
	args := m.Called(ctx)
	creds, _ := args.Get(0).([]models.Credential)
	return creds, args.Error(1)
}

func (m *MockCredentialStore) Create(ctx context.Context, cred *models.Credential) error {
	return m.Called(ctx, cred).Error(0)
}

func (m *MockCredentialStore) Update(ctx context.Context, id uint, updates map[string]interface{}) (*models.Credential, error) {
	args := m.Called(ctx, id, updates)
	cred, _ := args.Get(0).(*models.Credential)
	return cred, args.Error(1)
}

func (m *MockCredentialStore) Toggle(ctx context.Context, id uint) (*models.Credential, error) {
	args := m.Called(ctx, id)
	cred, _ := args.Get(0).(*models.Credential)
	return cred, args.Error(1)
}

func (m *MockCredentialStore) Deactivate(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

type countingCache struct {
	clears int
}

func (c *countingCache) Clear() { c.clears++ }
