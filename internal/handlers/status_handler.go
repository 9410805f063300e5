package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

// StatusSources are the reads behind the status overview
type StatusSources struct {
	Jobs         JobLister
	Marketplaces interface {
		List(ctx context.Context) ([]models.MarketplaceConfig, error)
	}
	Credentials interface {
		StatusByRegion(ctx context.Context) ([]models.RegionCredentialStatus, error)
	}
	Stats interface {
		DataCounts(ctx context.Context) (*models.DataCounts, error)
	}
}

// StatusHandler serves the sync status overview
type StatusHandler struct {
	src StatusSources
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(src StatusSources) *StatusHandler {
	return &StatusHandler{src: src}
}

// Status returns last syncs, marketplaces, credential status and data counts
func (h *StatusHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()

	lastSyncs, err := h.src.Jobs.LastPerTypeAndMarketplace(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	marketplaces, err := h.src.Marketplaces.List(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	credentials, err := h.src.Credentials.StatusByRegion(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	counts, err := h.src.Stats.DataCounts(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"lastSyncs":    nonNil(lastSyncs),
			"marketplaces": nonNil(marketplaces),
			"credentials":  nonNil(credentials),
			"dataCounts":   counts,
		},
	})
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
