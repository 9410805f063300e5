package models

import (
	"time"
)

// InventoryQuantities are the FBA quantity breakdown reported per SKU.
// All values are absolute point-in-time totals.
type InventoryQuantities struct {
	FulfillableQuantity          int `gorm:"not null;default:0" json:"fulfillable_quantity"`
	TotalReservedQuantity        int `gorm:"not null;default:0" json:"total_reserved_quantity"`
	PendingCustomerOrderQuantity int `gorm:"not null;default:0" json:"pending_customer_order_quantity"`
	PendingTransshipmentQuantity int `gorm:"not null;default:0" json:"pending_transshipment_quantity"`
	FCProcessingQuantity         int `gorm:"column:fc_processing_quantity;not null;default:0" json:"fc_processing_quantity"`
	TotalUnfulfillableQuantity   int `gorm:"not null;default:0" json:"total_unfulfillable_quantity"`
	CustomerDamagedQuantity      int `gorm:"not null;default:0" json:"customer_damaged_quantity"`
	WarehouseDamagedQuantity     int `gorm:"not null;default:0" json:"warehouse_damaged_quantity"`
	DistributorDamagedQuantity   int `gorm:"not null;default:0" json:"distributor_damaged_quantity"`
	InboundShippedQuantity       int `gorm:"not null;default:0" json:"inbound_shipped_quantity"`
	InboundWorkingQuantity       int `gorm:"not null;default:0" json:"inbound_working_quantity"`
	InboundReceivingQuantity     int `gorm:"not null;default:0" json:"inbound_receiving_quantity"`
}

// Add accumulates o into q
func (q *InventoryQuantities) Add(o InventoryQuantities) {
	q.FulfillableQuantity += o.FulfillableQuantity
	q.TotalReservedQuantity += o.TotalReservedQuantity
	q.PendingCustomerOrderQuantity += o.PendingCustomerOrderQuantity
	q.PendingTransshipmentQuantity += o.PendingTransshipmentQuantity
	q.FCProcessingQuantity += o.FCProcessingQuantity
	q.TotalUnfulfillableQuantity += o.TotalUnfulfillableQuantity
	q.CustomerDamagedQuantity += o.CustomerDamagedQuantity
	q.WarehouseDamagedQuantity += o.WarehouseDamagedQuantity
	q.DistributorDamagedQuantity += o.DistributorDamagedQuantity
	q.InboundShippedQuantity += o.InboundShippedQuantity
	q.InboundWorkingQuantity += o.InboundWorkingQuantity
	q.InboundReceivingQuantity += o.InboundReceivingQuantity
}

// Total is fulfillable + reserved + unfulfillable + every inbound sub-state
func (q InventoryQuantities) Total() int {
	return q.FulfillableQuantity + q.TotalReservedQuantity + q.TotalUnfulfillableQuantity +
		q.InboundShippedQuantity + q.InboundWorkingQuantity + q.InboundReceivingQuantity
}

// FbaInventoryItem is one raw inventory summary row in the operational store.
// A warehouse's rows are replaced wholesale on every sync.
type FbaInventoryItem struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	Warehouse     string  `gorm:"type:varchar(10);not null;uniqueIndex:idx_fba_inventory_wh_sku,priority:1" json:"warehouse"`
	MarketplaceID string  `gorm:"type:varchar(20);not null" json:"marketplace_id"`
	SKU           string  `gorm:"column:sku;type:varchar(255);not null;uniqueIndex:idx_fba_inventory_wh_sku,priority:2" json:"sku"`
	ASIN          string  `gorm:"column:asin;type:varchar(20)" json:"asin"`
	FNSKU         string  `gorm:"column:fnsku;type:varchar(20)" json:"fnsku"`
	Iwasku        *string `gorm:"type:varchar(100);index" json:"iwasku"`

	InventoryQuantities `gorm:"embedded"`

	LastSyncedAt time.Time `gorm:"autoUpdateTime" json:"last_synced_at"`
}

// TableName specifies the table name for GORM
func (FbaInventoryItem) TableName() string {
	return "fba_inventory"
}

// InventoryFilter narrows the inventory browse query
type InventoryFilter struct {
	Warehouse string
	Search    string
	Matched   string // "matched", "unmatched" or empty
	Page      int
	Limit     int
}
