package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

var inventoryColumns = []string{
	"warehouse", "marketplace_id", "sku", "asin", "fnsku", "iwasku",
	"fulfillable_quantity", "total_reserved_quantity",
	"pending_customer_order_quantity", "pending_transshipment_quantity",
	"fc_processing_quantity", "total_unfulfillable_quantity",
	"customer_damaged_quantity", "warehouse_damaged_quantity",
	"distributor_damaged_quantity", "inbound_shipped_quantity",
	"inbound_working_quantity", "inbound_receiving_quantity",
	"last_synced_at",
}

var inventoryUpsertSQL = "INSERT INTO fba_inventory (" + strings.Join(inventoryColumns, ", ") + ") VALUES %s " +
	"ON CONFLICT (warehouse, sku) DO UPDATE SET " + excludedSet(inventoryColumns[1:]...)

// InventoryRepository handles the operational FBA inventory snapshot
type InventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// ReplaceWarehouse deletes the warehouse's rows and inserts items in batches.
// An empty snapshot leaves the warehouse untouched.
// Each statement commits on its own; a failed batch leaves earlier ones in place.
func (r *InventoryRepository) ReplaceWarehouse(ctx context.Context, warehouse string, items []models.FbaInventoryItem) error {
	if len(items) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)

	if err := db.Exec("DELETE FROM fba_inventory WHERE warehouse = ?", warehouse).Error; err != nil {
		return fmt.Errorf("clear warehouse %s: %w", warehouse, err)
	}

	now := time.Now()
	for _, w := range chunks(len(items), batchSize) {
		batch := items[w[0]:w[1]]
		args := make([]interface{}, 0, len(batch)*len(inventoryColumns))
		for _, it := range batch {
			q := it.InventoryQuantities
			args = append(args,
				warehouse, it.MarketplaceID, it.SKU, it.ASIN, it.FNSKU, it.Iwasku,
				q.FulfillableQuantity, q.TotalReservedQuantity,
				q.PendingCustomerOrderQuantity, q.PendingTransshipmentQuantity,
				q.FCProcessingQuantity, q.TotalUnfulfillableQuantity,
				q.CustomerDamagedQuantity, q.WarehouseDamagedQuantity,
				q.DistributorDamagedQuantity, q.InboundShippedQuantity,
				q.InboundWorkingQuantity, q.InboundReceivingQuantity,
				now,
			)
		}
		stmt := fmt.Sprintf(inventoryUpsertSQL, valuesClause(len(batch), len(inventoryColumns)))
		if err := db.Exec(stmt, args...).Error; err != nil {
			return fmt.Errorf("insert inventory batch %d-%d for %s: %w", w[0], w[1], warehouse, err)
		}
	}
	return nil
}

// List browses inventory rows with filters and pagination
func (r *InventoryRepository) List(ctx context.Context, f models.InventoryFilter) ([]models.FbaInventoryItem, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.FbaInventoryItem{})

	if f.Warehouse != "" {
		query = query.Where("warehouse = ?", strings.ToUpper(f.Warehouse))
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Where("(sku ILIKE ? OR asin ILIKE ? OR fnsku ILIKE ? OR iwasku ILIKE ?)", like, like, like, like)
	}
	switch f.Matched {
	case "matched":
		query = query.Where("iwasku IS NOT NULL")
	case "unmatched":
		query = query.Where("iwasku IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.FbaInventoryItem
	err := query.
		Order("COALESCE(iwasku, sku)").
		Order("warehouse").
		Limit(f.Limit).
		Offset((f.Page - 1) * f.Limit).
		Find(&items).Error
	return items, total, err
}

// Warehouses returns the distinct warehouses that have inventory
func (r *InventoryRepository) Warehouses(ctx context.Context) ([]string, error) {
	var warehouses []string
	err := r.db.WithContext(ctx).
		Model(&models.FbaInventoryItem{}).
		Distinct("warehouse").
		Order("warehouse").
		Pluck("warehouse", &warehouses).Error
	return warehouses, err
}

// ListByWarehouse returns a warehouse's rows without returns SKUs, ordered by product key
func (r *InventoryRepository) ListByWarehouse(ctx context.Context, warehouse string) ([]models.FbaInventoryItem, error) {
	var items []models.FbaInventoryItem
	err := r.db.WithContext(ctx).
		Where("warehouse = ?", warehouse).
		Where("sku NOT LIKE ?", returnsSKUPattern).
		Order("COALESCE(iwasku, sku)").
		Find(&items).Error
	return items, err
}

// ListForProjection returns every non-returns row in the given warehouses
func (r *InventoryRepository) ListForProjection(ctx context.Context, warehouses []string) ([]models.FbaInventoryItem, error) {
	var items []models.FbaInventoryItem
	err := r.db.WithContext(ctx).
		Where("warehouse IN ?", warehouses).
		Where("sku NOT LIKE ?", returnsSKUPattern).
		Find(&items).Error
	return items, err
}
