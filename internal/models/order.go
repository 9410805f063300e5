package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawOrder is one order line from the flat-file orders report.
// Natural key is (amazon_order_id, sku); rows are upserted and never deleted.
type RawOrder struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	MarketplaceID      string          `gorm:"type:varchar(20);not null" json:"marketplace_id"`
	Channel            string          `gorm:"type:varchar(10);not null;index" json:"channel"`
	AmazonOrderID      string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_raw_orders_order_sku,priority:1" json:"amazon_order_id"`
	PurchaseDate       time.Time       `gorm:"not null" json:"purchase_date"`
	PurchaseDateLocal  time.Time       `gorm:"type:date;not null;index" json:"purchase_date_local"`
	SKU                string          `gorm:"column:sku;type:varchar(255);not null;uniqueIndex:idx_raw_orders_order_sku,priority:2" json:"sku"`
	ASIN               string          `gorm:"column:asin;type:varchar(20)" json:"asin"`
	Iwasku             *string         `gorm:"type:varchar(100);index" json:"iwasku"`
	Quantity           int             `gorm:"not null;default:0" json:"quantity"`
	ItemPrice          decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"item_price"`
	Currency           string          `gorm:"type:varchar(5)" json:"currency"`
	OrderStatus        string          `gorm:"type:varchar(50)" json:"order_status"`
	FulfillmentChannel string          `gorm:"type:varchar(20)" json:"fulfillment_channel"`
	CreatedAt          time.Time       `json:"created_at"`
}

// TableName specifies the table name for GORM
func (RawOrder) TableName() string {
	return "raw_orders"
}

// Key returns the natural key used for coalescing and conflict resolution
func (o *RawOrder) Key() string {
	return o.AmazonOrderID + "|" + o.SKU
}

// OrderFilter narrows the orders browse query
type OrderFilter struct {
	Channel  string
	DateFrom string
	DateTo   string
	Search   string
	Matched  string // "matched", "unmatched" or empty
	SortAsc  bool
	Page     int
	Limit    int
}

// Page is a paginated result
type Page[T any] struct {
	Rows       []T   `json:"rows"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// NewPage computes totalPages for a result set
func NewPage[T any](rows []T, total int64, page, limit int) Page[T] {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	if rows == nil {
		rows = []T{}
	}
	return Page[T]{Rows: rows, Total: total, Page: page, Limit: limit, TotalPages: pages}
}
