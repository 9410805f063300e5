package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
	"github.com/ahmtersoy23-ui/databridge/internal/repository"
	"github.com/ahmtersoy23-ui/databridge/internal/services"
)

type syncFixture struct {
	runner      *MockSyncRunner
	projections *MockProjectionRefresher
	finder      *MockMarketplaceFinder
	jobs        *MockJobLister
	router      *gin.Engine
}

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		runner:      new(MockSyncRunner),
		projections: new(MockProjectionRefresher),
		finder:      new(MockMarketplaceFinder),
		jobs:        new(MockJobLister),
	}
	h := NewSyncHandler(f.runner, f.projections, f.finder, f.jobs, nil)
	h.background = func(fn func(ctx context.Context)) { fn(context.Background()) }

	f.router = gin.New()
	f.router.POST("/sync/trigger", h.Trigger)
	f.router.GET("/sync/jobs", h.ListJobs)
	f.router.GET("/sync/jobs/last", h.LastJobs)
	return f
}

var deMarketplace = &models.MarketplaceConfig{
	MarketplaceID: "A1PA6795UKMFR9",
	CountryCode:   "DE",
	Channel:       "de",
	Warehouse:     "EU",
	Region:        "EU",
	IsActive:      true,
}

func TestTrigger_Validation(t *testing.T) {
	cases := []struct {
		name   string
		body   map[string]interface{}
		status int
		errMsg string
	}{
		{"missing type", map[string]interface{}{}, http.StatusBadRequest, "Type"},
		{"unknown type", map[string]interface{}{"type": "everything"}, http.StatusBadRequest, "oneof"},
		{"months too large", map[string]interface{}{"type": "backfill", "marketplace": "DE", "months": 25}, http.StatusBadRequest, "max"},
		{"months too small", map[string]interface{}{"type": "backfill", "marketplace": "DE", "months": 0}, http.StatusBadRequest, "min"},
		{"backfill without marketplace", map[string]interface{}{"type": "backfill"}, http.StatusBadRequest, "Marketplace required for backfill"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newSyncFixture()
			w := doJSON(f.router, http.MethodPost, "/sync/trigger", tc.body)

			assert.Equal(t, tc.status, w.Code)
			body := decode(w)
			assert.Equal(t, false, body["success"])
			assert.Contains(t, body["error"], tc.errMsg)
			f.runner.AssertNotCalled(t, "BackfillSales", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestTrigger_UnknownMarketplace(t *testing.T) {
	f := newSyncFixture()
	f.finder.On("GetByCountryCode", mock.Anything, "XX").Return(nil, repository.ErrMarketplaceNotFound)

	w := doJSON(f.router, http.MethodPost, "/sync/trigger", map[string]interface{}{"type": "inventory", "marketplace": "xx"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Marketplace not found: xx", decode(w)["error"])
}

func TestTrigger_SingleMarketplaceInventory(t *testing.T) {
	f := newSyncFixture()
	f.finder.On("GetByCountryCode", mock.Anything, "DE").Return(deMarketplace, nil)
	f.runner.On("SyncInventoryForMarketplace", mock.Anything, *deMarketplace).Return(412, nil)

	w := doJSON(f.router, http.MethodPost, "/sync/trigger", map[string]interface{}{"type": "inventory", "marketplace": "de"})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Inventory synced for de", body["message"])
	assert.Equal(t, float64(412), body["records"])
}

func TestTrigger_SingleMarketplaceOutlivesClientDisconnect(t *testing.T) {
	f := newSyncFixture()
	f.finder.On("GetByCountryCode", mock.Anything, "DE").Return(deMarketplace, nil)
	f.runner.On("SyncSalesForMarketplace", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), *deMarketplace, 0).Return(9, nil)

	body, _ := json.Marshal(map[string]interface{}{"type": "sales", "marketplace": "DE"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/sync/trigger", bytes.NewReader(body)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(9), decode(w)["records"])
	f.runner.AssertExpectations(t)
}

func TestTrigger_SingleMarketplaceSalesBusy(t *testing.T) {
	f := newSyncFixture()
	f.finder.On("GetByCountryCode", mock.Anything, "DE").Return(deMarketplace, nil)
	f.runner.On("SyncSalesForMarketplace", mock.Anything, *deMarketplace, 0).Return(0, services.ErrSyncInProgress)

	w := doJSON(f.router, http.MethodPost, "/sync/trigger", map[string]interface{}{"type": "sales", "marketplace": "DE"})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTrigger_FullRunStartsInBackground(t *testing.T) {
	f := newSyncFixture()
	f.runner.On("Running").Return(false)
	f.runner.On("RunSalesSync", mock.Anything).Return(&services.RunSummary{Groups: 3}, nil).Once()

	w := doJSON(f.router, http.MethodPost, "/sync/trigger", map[string]interface{}{"type": "sales"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Sales sync started for all marketplaces", decode(w)["message"])
	f.runner.AssertExpectations(t)
}

func TestTrigger_FullRunRejectedWhileRunning(t *testing.T) {
	f := newSyncFixture()
	f.runner.On("Running").Return(true)

	w := doJSON(f.router, http.MethodPost, "/sync/trigger", map[string]interface{}{"type": "inventory"})

	assert.Equal(t, http.StatusConflict, w.Code)
	f.runner.AssertNotCalled(t, "RunInventorySync", mock.Anything)
}

func TestTrigger_BackfillDefaultsMonths(t *testing.T) {
	f := newSyncFixture()
	f.finder.On("GetByCountryCode", mock.Anything, "DE").Return(deMarketplace, nil)
	f.runner.On("Running").Return(false)
	f.runner.On("BackfillSales", mock.Anything, *deMarketplace, services.DefaultBackfillMonths).Return(900, nil).Once()

	w := doJSON(f.router, http.MethodPost, "/sync/trigger", map[string]interface{}{"type": "backfill", "marketplace": "DE"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Sales backfill started for DE (13 months)", decode(w)["message"])
	f.runner.AssertExpectations(t)
}

func TestTrigger_RefreshProjection(t *testing.T) {
	f := newSyncFixture()
	f.projections.On("RefreshAll", mock.Anything).Return(120, 80, nil)

	w := doJSON(f.router, http.MethodPost, "/sync/trigger", map[string]interface{}{"type": "refresh_projection"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(200), decode(w)["records"])
}

func TestTrigger_RefreshInventoryFailure(t *testing.T) {
	f := newSyncFixture()
	f.projections.On("RefreshInventory", mock.Anything).Return(0, errors.New("shared db down"))

	w := doJSON(f.router, http.MethodPost, "/sync/trigger", map[string]interface{}{"type": "refresh_inventory_data"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "shared db down", decode(w)["error"])
}

func TestListJobs(t *testing.T) {
	f := newSyncFixture()
	f.jobs.On("ListRecent", mock.Anything, 50).Return(nil, nil)

	w := doJSON(f.router, http.MethodGet, "/sync/jobs", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())
}
