package handlers

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
	"github.com/ahmtersoy23-ui/databridge/internal/services"
)

// LiveSalesSource computes rolling sales windows on demand
type LiveSalesSource interface {
	LiveSales(ctx context.Context, channel string) ([]models.SalesRow, error)
}

// WarehouseInventorySource lists one warehouse's inventory rows
type WarehouseInventorySource interface {
	ListByWarehouse(ctx context.Context, warehouse string) ([]models.FbaInventoryItem, error)
}

// FbaRow is the StockPulse inventory item; iwasku falls back to the seller SKU
type FbaRow struct {
	Iwasku string `json:"iwasku"`
	ASIN   string `json:"asin"`
	FNSKU  string `json:"fnsku"`
	models.InventoryQuantities
}

// StockPulseHandler serves the StockPulse-compatible read endpoints.
// Responses are bare arrays; errors are {"error": "..."}.
type StockPulseHandler struct {
	sales     LiveSalesSource
	inventory WarehouseInventorySource
	logger    *logrus.Entry
}

// NewStockPulseHandler creates a new StockPulse handler
func NewStockPulseHandler(sales LiveSalesSource, inventory WarehouseInventorySource, logger *logrus.Logger) *StockPulseHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &StockPulseHandler{
		sales:     sales,
		inventory: inventory,
		logger:    logger.WithField("component", "stockpulse"),
	}
}

// AmazonSales returns live rolling windows per (iwasku, asin) for a channel
func (h *StockPulseHandler) AmazonSales(c *gin.Context) {
	channel := strings.ToLower(c.Param("channel"))
	if !slices.Contains(services.LiveSalesChannels, channel) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid channel: " + channel + ". Valid: " + strings.Join(services.LiveSalesChannels, ", "),
		})
		return
	}

	rows, err := h.sales.LiveSales(c.Request.Context(), channel)
	if err != nil {
		h.logger.WithError(err).WithField("channel", channel).Error("Live sales failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sales data"})
		return
	}
	h.logger.WithFields(logrus.Fields{"channel": channel, "items": len(rows)}).Info("Serving sales")
	c.JSON(http.StatusOK, rows)
}

// AmazonFBA returns the raw inventory rows of a warehouse
func (h *StockPulseHandler) AmazonFBA(c *gin.Context) {
	warehouse := strings.ToUpper(c.Param("warehouse"))
	if !slices.Contains(services.ProjectionWarehouses, warehouse) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid warehouse: " + warehouse + ". Valid: " + strings.Join(services.ProjectionWarehouses, ", "),
		})
		return
	}

	items, err := h.inventory.ListByWarehouse(c.Request.Context(), warehouse)
	if err != nil {
		h.logger.WithError(err).WithField("warehouse", warehouse).Error("Inventory read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch inventory data"})
		return
	}

	rows := make([]FbaRow, 0, len(items))
	for _, it := range items {
		key := it.SKU
		if it.Iwasku != nil {
			key = *it.Iwasku
		}
		rows = append(rows, FbaRow{
			Iwasku:              key,
			ASIN:                it.ASIN,
			FNSKU:               it.FNSKU,
			InventoryQuantities: it.InventoryQuantities,
		})
	}
	h.logger.WithFields(logrus.Fields{"warehouse": warehouse, "items": len(rows)}).Info("Serving inventory")
	c.JSON(http.StatusOK, rows)
}
