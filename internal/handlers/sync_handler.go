package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
	"github.com/ahmtersoy23-ui/databridge/internal/repository"
	"github.com/ahmtersoy23-ui/databridge/internal/services"
)

// Trigger types accepted by POST /sync/trigger
const (
	TriggerInventory         = "inventory"
	TriggerSales             = "sales"
	TriggerBackfill          = "backfill"
	TriggerRefreshProjection = "refresh_projection"
	TriggerRefreshSales      = "refresh_sales_data"
	TriggerRefreshInventory  = "refresh_inventory_data"
)

// SyncRunner is the orchestrator surface the trigger endpoint drives
type SyncRunner interface {
	Running() bool
	RunInventorySync(ctx context.Context) (*services.RunSummary, error)
	RunSalesSync(ctx context.Context) (*services.RunSummary, error)
	SyncInventoryForMarketplace(ctx context.Context, mp models.MarketplaceConfig) (int, error)
	SyncSalesForMarketplace(ctx context.Context, mp models.MarketplaceConfig, daysBack int) (int, error)
	BackfillSales(ctx context.Context, mp models.MarketplaceConfig, months int) (int, error)
	NormalizeBackfillMonths(months int) int
}

// ProjectionRefresher rebuilds the shared-store projections
type ProjectionRefresher interface {
	RefreshSales(ctx context.Context) (int, error)
	RefreshInventory(ctx context.Context) (int, error)
	RefreshAll(ctx context.Context) (sales, inventory int, err error)
}

// MarketplaceFinder looks marketplaces up by country code
type MarketplaceFinder interface {
	GetByCountryCode(ctx context.Context, code string) (*models.MarketplaceConfig, error)
}

// JobLister reads the sync job history
type JobLister interface {
	ListRecent(ctx context.Context, limit int) ([]models.SyncJob, error)
	LastPerTypeAndMarketplace(ctx context.Context) ([]models.SyncJob, error)
}

// TriggerRequest is the body of POST /sync/trigger
type TriggerRequest struct {
	Type        string `json:"type" binding:"required,oneof=inventory sales backfill refresh_projection refresh_sales_data refresh_inventory_data"`
	Marketplace string `json:"marketplace"`
	Months      *int   `json:"months" binding:"omitempty,min=1,max=24"`
}

// SyncHandler handles manual sync triggers and the job history
type SyncHandler struct {
	runner       SyncRunner
	projections  ProjectionRefresher
	marketplaces MarketplaceFinder
	jobs         JobLister
	logger       *logrus.Entry

	// background runs async triggers; tests replace it to run inline
	background func(func(ctx context.Context))
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(runner SyncRunner, projections ProjectionRefresher, marketplaces MarketplaceFinder, jobs JobLister, logger *logrus.Logger) *SyncHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &SyncHandler{
		runner:       runner,
		projections:  projections,
		marketplaces: marketplaces,
		jobs:         jobs,
		logger:       logger.WithField("component", "sync-handler"),
		background: func(fn func(ctx context.Context)) {
			go fn(context.Background())
		},
	}
}

// Trigger starts a manual sync or projection refresh
func (h *SyncHandler) Trigger(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	// a dropped client must not abort a synchronous run
	ctx := context.WithoutCancel(c.Request.Context())

	switch req.Type {
	case TriggerInventory, TriggerSales:
		if req.Marketplace == "" {
			h.startFullRun(c, req.Type)
			return
		}
		mp, ok := h.lookupMarketplace(c, req.Marketplace)
		if !ok {
			return
		}
		var n int
		var err error
		if req.Type == TriggerInventory {
			n, err = h.runner.SyncInventoryForMarketplace(ctx, *mp)
		} else {
			n, err = h.runner.SyncSalesForMarketplace(ctx, *mp, 0)
		}
		if err != nil {
			h.writeSyncError(c, err)
			return
		}
		label := "Inventory"
		if req.Type == TriggerSales {
			label = "Sales"
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": fmt.Sprintf("%s synced for %s", label, req.Marketplace),
			"records": n,
		})

	case TriggerBackfill:
		if req.Marketplace == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Marketplace required for backfill"})
			return
		}
		mp, ok := h.lookupMarketplace(c, req.Marketplace)
		if !ok {
			return
		}
		if h.runner.Running() {
			h.writeSyncError(c, services.ErrSyncInProgress)
			return
		}
		months := 0
		if req.Months != nil {
			months = *req.Months
		}
		months = h.runner.NormalizeBackfillMonths(months)
		target := *mp
		h.background(func(bg context.Context) {
			if _, err := h.runner.BackfillSales(bg, target, months); err != nil {
				h.logger.WithError(err).WithField("marketplace", target.CountryCode).Error("Backfill failed")
			}
		})
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": fmt.Sprintf("Sales backfill started for %s (%d months)", req.Marketplace, months),
		})

	case TriggerRefreshProjection:
		sales, inventory, err := h.projections.RefreshAll(ctx)
		if err != nil {
			h.writeSyncError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Projections refreshed",
			"records": sales + inventory,
		})

	case TriggerRefreshSales:
		n, err := h.projections.RefreshSales(ctx)
		if err != nil {
			h.writeSyncError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Sales data refreshed", "records": n})

	case TriggerRefreshInventory:
		n, err := h.projections.RefreshInventory(ctx)
		if err != nil {
			h.writeSyncError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Inventory data refreshed", "records": n})
	}
}

func (h *SyncHandler) startFullRun(c *gin.Context, kind string) {
	if h.runner.Running() {
		h.writeSyncError(c, services.ErrSyncInProgress)
		return
	}
	h.background(func(bg context.Context) {
		var err error
		if kind == TriggerInventory {
			_, err = h.runner.RunInventorySync(bg)
		} else {
			_, err = h.runner.RunSalesSync(bg)
		}
		if err != nil {
			h.logger.WithError(err).WithField("sync", kind).Error("Manual sync failed")
		}
	})
	label := "Inventory"
	if kind == TriggerSales {
		label = "Sales"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": label + " sync started for all marketplaces",
	})
}

func (h *SyncHandler) lookupMarketplace(c *gin.Context, code string) (*models.MarketplaceConfig, bool) {
	mp, err := h.marketplaces.GetByCountryCode(c.Request.Context(), strings.ToUpper(code))
	if errors.Is(err, repository.ErrMarketplaceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Marketplace not found: " + code})
		return nil, false
	}
	if err != nil {
		h.logger.WithError(err).Error("Marketplace lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return nil, false
	}
	return mp, true
}

func (h *SyncHandler) writeSyncError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrSyncInProgress) {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Sync already in progress"})
		return
	}
	h.logger.WithError(err).Error("Sync trigger failed")
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
}

// ListJobs returns the most recent sync jobs
func (h *SyncHandler) ListJobs(c *gin.Context) {
	jobs, err := h.jobs.ListRecent(c.Request.Context(), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if jobs == nil {
		jobs = []models.SyncJob{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": jobs})
}

// LastJobs returns the latest job per type and marketplace
func (h *SyncHandler) LastJobs(c *gin.Context) {
	jobs, err := h.jobs.LastPerTypeAndMarketplace(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if jobs == nil {
		jobs = []models.SyncJob{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": jobs})
}
