package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

var salesWindowColumns = []string{
	"last7", "last30", "last90", "last180", "last366",
	"pre_year_last7", "pre_year_last30", "pre_year_last90", "pre_year_last180", "pre_year_last365",
	"pre_year_next7", "pre_year_next30", "pre_year_next90", "pre_year_next180",
}

var salesDataColumns = append([]string{"channel", "iwasku", "asin"}, salesWindowColumns...)

var salesDataUpsertSQL = "INSERT INTO sales_data (" + strings.Join(salesDataColumns, ", ") + ") VALUES %s " +
	"ON CONFLICT (iwasku, channel) DO UPDATE SET " +
	excludedSet(append([]string{"asin"}, salesWindowColumns...)...) + ", updated_at = NOW()"

var inventoryDataColumns = []string{
	"iwasku", "asin", "warehouse", "fnsku",
	"sku_list", "total_quantity",
	"fc_processing_quantity", "total_reserved_quantity",
	"pending_customer_order_quantity", "pending_transshipment_quantity",
	"fulfillable_quantity",
	"total_researching_quantity", "future_supply_buyable_quantity",
	"reserved_future_supply_quantity", "expired_quantity", "defective_quantity",
	"carrier_damaged_quantity",
	"customer_damaged_quantity", "warehouse_damaged_quantity",
	"distributor_damaged_quantity", "total_unfulfillable_quantity",
	"inbound_shipped_quantity", "inbound_working_quantity", "inbound_receiving_quantity",
}

var inventoryDataUpsertSQL = "INSERT INTO fba_inventory (" + strings.Join(inventoryDataColumns, ", ") + ") VALUES %s " +
	"ON CONFLICT (iwasku, warehouse) DO UPDATE SET " +
	excludedSet(
		"asin", "fnsku", "sku_list", "total_quantity",
		"fc_processing_quantity", "total_reserved_quantity",
		"pending_customer_order_quantity", "pending_transshipment_quantity",
		"fulfillable_quantity",
		"customer_damaged_quantity", "warehouse_damaged_quantity",
		"distributor_damaged_quantity", "total_unfulfillable_quantity",
		"inbound_shipped_quantity", "inbound_working_quantity", "inbound_receiving_quantity",
	) + ", updated_at = NOW()"

// ProjectionRepository writes the downstream projection tables in the shared database
type ProjectionRepository struct {
	db *gorm.DB
}

// NewProjectionRepository creates a new projection repository over the shared database
func NewProjectionRepository(sharedDB *gorm.DB) *ProjectionRepository {
	return &ProjectionRepository{db: sharedDB}
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// UpsertSales merges sales rows on (iwasku, channel)
func (r *ProjectionRepository) UpsertSales(ctx context.Context, rows []models.SalesProjection) (int, error) {
	written := 0
	for _, w := range chunks(len(rows), batchSize) {
		batch := rows[w[0]:w[1]]
		args := make([]interface{}, 0, len(batch)*len(salesDataColumns))
		for _, p := range batch {
			args = append(args,
				p.Channel, p.Iwasku, nullIfEmpty(p.ASIN),
				p.Last7, p.Last30, p.Last90, p.Last180, p.Last366,
				p.PreYearLast7, p.PreYearLast30, p.PreYearLast90, p.PreYearLast180, p.PreYearLast365,
				p.PreYearNext7, p.PreYearNext30, p.PreYearNext90, p.PreYearNext180,
			)
		}
		stmt := fmt.Sprintf(salesDataUpsertSQL, valuesClause(len(batch), len(salesDataColumns)))
		if err := r.db.WithContext(ctx).Exec(stmt, args...).Error; err != nil {
			return written, fmt.Errorf("upsert sales_data batch %d-%d: %w", w[0], w[1], err)
		}
		written += len(batch)
	}
	return written, nil
}

// UpsertInventory merges inventory rows on (iwasku, warehouse)
func (r *ProjectionRepository) UpsertInventory(ctx context.Context, rows []models.InventoryProjection) (int, error) {
	written := 0
	for _, w := range chunks(len(rows), batchSize) {
		batch := rows[w[0]:w[1]]
		args := make([]interface{}, 0, len(batch)*len(inventoryDataColumns))
		for _, p := range batch {
			q := p.InventoryQuantities
			args = append(args,
				p.Iwasku, nullIfEmpty(p.ASIN), p.Warehouse, nullIfEmpty(p.FNSKU),
				nullIfEmpty(p.SKUList), p.TotalQuantity,
				q.FCProcessingQuantity, q.TotalReservedQuantity,
				q.PendingCustomerOrderQuantity, q.PendingTransshipmentQuantity,
				q.FulfillableQuantity,
				p.TotalResearchingQuantity, p.FutureSupplyBuyableQuantity,
				p.ReservedFutureSupplyQuantity, p.ExpiredQuantity, p.DefectiveQuantity,
				p.CarrierDamagedQuantity,
				q.CustomerDamagedQuantity, q.WarehouseDamagedQuantity,
				q.DistributorDamagedQuantity, q.TotalUnfulfillableQuantity,
				q.InboundShippedQuantity, q.InboundWorkingQuantity, q.InboundReceivingQuantity,
			)
		}
		stmt := fmt.Sprintf(inventoryDataUpsertSQL, valuesClause(len(batch), len(inventoryDataColumns)))
		if err := r.db.WithContext(ctx).Exec(stmt, args...).Error; err != nil {
			return written, fmt.Errorf("upsert fba_inventory batch %d-%d: %w", w[0], w[1], err)
		}
		written += len(batch)
	}
	return written, nil
}
