package models

import "time"

// SkuMapping is a row of the shared product master
type SkuMapping struct {
	SKU         string `gorm:"column:sku" json:"sku"`
	Iwasku      string `gorm:"column:iwasku" json:"iwasku"`
	ASIN        string `gorm:"column:asin" json:"asin"`
	CountryCode string `gorm:"column:country_code" json:"country_code"`
}

// TableName specifies the table name for GORM
func (SkuMapping) TableName() string {
	return "sku_master"
}

// SalesWindows holds the rolling-window quantity sums for one product
type SalesWindows struct {
	Last7          int `json:"last7"`
	Last30         int `json:"last30"`
	Last90         int `json:"last90"`
	Last180        int `json:"last180"`
	Last366        int `json:"last366"`
	PreYearLast7   int `json:"preYearLast7"`
	PreYearLast30  int `json:"preYearLast30"`
	PreYearLast90  int `json:"preYearLast90"`
	PreYearLast180 int `json:"preYearLast180"`
	PreYearLast365 int `json:"preYearLast365"`
	PreYearNext7   int `json:"preYearNext7"`
	PreYearNext30  int `json:"preYearNext30"`
	PreYearNext90  int `json:"preYearNext90"`
	PreYearNext180 int `json:"preYearNext180"`
}

// Add accumulates o into w
func (w *SalesWindows) Add(o SalesWindows) {
	w.Last7 += o.Last7
	w.Last30 += o.Last30
	w.Last90 += o.Last90
	w.Last180 += o.Last180
	w.Last366 += o.Last366
	w.PreYearLast7 += o.PreYearLast7
	w.PreYearLast30 += o.PreYearLast30
	w.PreYearLast90 += o.PreYearLast90
	w.PreYearLast180 += o.PreYearLast180
	w.PreYearLast365 += o.PreYearLast365
	w.PreYearNext7 += o.PreYearNext7
	w.PreYearNext30 += o.PreYearNext30
	w.PreYearNext90 += o.PreYearNext90
	w.PreYearNext180 += o.PreYearNext180
}

// SalesProjection is a sales_data row in the projection store
type SalesProjection struct {
	Channel string `gorm:"column:channel" json:"channel"`
	Iwasku  string `gorm:"column:iwasku" json:"iwasku"`
	ASIN    string `gorm:"column:asin" json:"asin"`

	Last7          int `gorm:"column:last7"`
	Last30         int `gorm:"column:last30"`
	Last90         int `gorm:"column:last90"`
	Last180        int `gorm:"column:last180"`
	Last366        int `gorm:"column:last366"`
	PreYearLast7   int `gorm:"column:pre_year_last7"`
	PreYearLast30  int `gorm:"column:pre_year_last30"`
	PreYearLast90  int `gorm:"column:pre_year_last90"`
	PreYearLast180 int `gorm:"column:pre_year_last180"`
	PreYearLast365 int `gorm:"column:pre_year_last365"`
	PreYearNext7   int `gorm:"column:pre_year_next7"`
	PreYearNext30  int `gorm:"column:pre_year_next30"`
	PreYearNext90  int `gorm:"column:pre_year_next90"`
	PreYearNext180 int `gorm:"column:pre_year_next180"`

	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (SalesProjection) TableName() string {
	return "sales_data"
}

// NewSalesProjection flattens windows into a projection row
func NewSalesProjection(channel, iwasku, asin string, w SalesWindows) SalesProjection {
	return SalesProjection{
		Channel:        channel,
		Iwasku:         iwasku,
		ASIN:           asin,
		Last7:          w.Last7,
		Last30:         w.Last30,
		Last90:         w.Last90,
		Last180:        w.Last180,
		Last366:        w.Last366,
		PreYearLast7:   w.PreYearLast7,
		PreYearLast30:  w.PreYearLast30,
		PreYearLast90:  w.PreYearLast90,
		PreYearLast180: w.PreYearLast180,
		PreYearLast365: w.PreYearLast365,
		PreYearNext7:   w.PreYearNext7,
		PreYearNext30:  w.PreYearNext30,
		PreYearNext90:  w.PreYearNext90,
		PreYearNext180: w.PreYearNext180,
	}
}

// SalesRow is the StockPulse-compatible live sales item, one per (iwasku, asin)
type SalesRow struct {
	Iwasku string `json:"iwasku"`
	ASIN   string `json:"asin"`
	SalesWindows
}

// InventoryProjection is an fba_inventory row in the projection store
type InventoryProjection struct {
	Iwasku        string `gorm:"column:iwasku" json:"iwasku"`
	ASIN          string `gorm:"column:asin" json:"asin"`
	Warehouse     string `gorm:"column:warehouse" json:"warehouse"`
	FNSKU         string `gorm:"column:fnsku" json:"fnsku"`
	SKUList       string `gorm:"column:sku_list" json:"sku_list"`
	TotalQuantity int    `gorm:"column:total_quantity" json:"total_quantity"`

	InventoryQuantities `gorm:"embedded"`

	TotalResearchingQuantity     int `gorm:"column:total_researching_quantity" json:"total_researching_quantity"`
	FutureSupplyBuyableQuantity  int `gorm:"column:future_supply_buyable_quantity" json:"future_supply_buyable_quantity"`
	ReservedFutureSupplyQuantity int `gorm:"column:reserved_future_supply_quantity" json:"reserved_future_supply_quantity"`
	ExpiredQuantity              int `gorm:"column:expired_quantity" json:"expired_quantity"`
	DefectiveQuantity            int `gorm:"column:defective_quantity" json:"defective_quantity"`
	CarrierDamagedQuantity       int `gorm:"column:carrier_damaged_quantity" json:"carrier_damaged_quantity"`

	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (InventoryProjection) TableName() string {
	return "fba_inventory"
}

// DataCounts summarizes operational-store volume for the status page
type DataCounts struct {
	TotalOrders        int64 `json:"total_orders"`
	TotalInventory     int64 `json:"total_inventory"`
	ChannelsWithData   int64 `json:"channels_with_data"`
	WarehousesWithData int64 `json:"warehouses_with_data"`
}
