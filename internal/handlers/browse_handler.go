package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// OrderBrowser pages through raw orders
type OrderBrowser interface {
	List(ctx context.Context, f models.OrderFilter) ([]models.RawOrder, int64, error)
	Channels(ctx context.Context) ([]string, error)
}

// InventoryBrowser pages through raw inventory rows
type InventoryBrowser interface {
	List(ctx context.Context, f models.InventoryFilter) ([]models.FbaInventoryItem, int64, error)
	Warehouses(ctx context.Context) ([]string, error)
}

// BrowseHandler serves the read-only orders and inventory browsers
type BrowseHandler struct {
	orders    OrderBrowser
	inventory InventoryBrowser
	logger    *logrus.Entry
}

// NewBrowseHandler creates a new browse handler
func NewBrowseHandler(orders OrderBrowser, inventory InventoryBrowser, logger *logrus.Logger) *BrowseHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &BrowseHandler{
		orders:    orders,
		inventory: inventory,
		logger:    logger.WithField("component", "browse"),
	}
}

// pagination reads page (>= 1) and limit (1..200, default 50)
func pagination(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

// ListOrders browses raw orders
func (h *BrowseHandler) ListOrders(c *gin.Context) {
	page, limit := pagination(c)
	f := models.OrderFilter{
		Channel:  c.Query("channel"),
		DateFrom: c.Query("dateFrom"),
		DateTo:   c.Query("dateTo"),
		Search:   c.Query("search"),
		Matched:  c.Query("matched"),
		SortAsc:  c.Query("sort") == "date_asc",
		Page:     page,
		Limit:    limit,
	}

	rows, total, err := h.orders.List(c.Request.Context(), f)
	if err != nil {
		h.logger.WithError(err).Error("Orders browse failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": models.NewPage(rows, total, page, limit)})
}

// OrderChannels lists the channels that have orders
func (h *BrowseHandler) OrderChannels(c *gin.Context) {
	channels, err := h.orders.Channels(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Order channels failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch channels"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": nonNil(channels)})
}

// ListInventory browses raw inventory rows
func (h *BrowseHandler) ListInventory(c *gin.Context) {
	page, limit := pagination(c)
	f := models.InventoryFilter{
		Warehouse: c.Query("warehouse"),
		Search:    c.Query("search"),
		Matched:   c.Query("matched"),
		Page:      page,
		Limit:     limit,
	}

	rows, total, err := h.inventory.List(c.Request.Context(), f)
	if err != nil {
		h.logger.WithError(err).Error("Inventory browse failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch inventory"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": models.NewPage(rows, total, page, limit)})
}

// InventoryWarehouses lists the warehouses that have inventory
func (h *BrowseHandler) InventoryWarehouses(c *gin.Context) {
	warehouses, err := h.inventory.Warehouses(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Inventory warehouses failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch warehouses"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": nonNil(warehouses)})
}
