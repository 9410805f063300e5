package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

var orderColumns = []string{
	"marketplace_id", "channel", "amazon_order_id", "purchase_date", "purchase_date_local",
	"sku", "asin", "iwasku", "quantity", "item_price",
	"currency", "order_status", "fulfillment_channel", "created_at",
}

var orderUpsertSQL = "INSERT INTO raw_orders (" + strings.Join(orderColumns, ", ") + ") VALUES %s " +
	"ON CONFLICT (amazon_order_id, sku) DO UPDATE SET " +
	excludedSet("iwasku", "quantity", "item_price", "order_status", "channel")

// OrderRepository handles raw order lines
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// coalesceOrders merges lines sharing (amazon_order_id, sku), summing quantity
// and item_price. Other fields come from the first line; input order is kept.
func coalesceOrders(orders []models.RawOrder) []models.RawOrder {
	index := make(map[string]int, len(orders))
	out := make([]models.RawOrder, 0, len(orders))
	for _, o := range orders {
		key := o.Key()
		if i, ok := index[key]; ok {
			out[i].Quantity += o.Quantity
			out[i].ItemPrice = out[i].ItemPrice.Add(o.ItemPrice)
			continue
		}
		index[key] = len(out)
		out = append(out, o)
	}
	return out
}

// UpsertOrders coalesces duplicate lines and upserts them in batches.
// A failed batch aborts the call; earlier batches stay committed.
func (r *OrderRepository) UpsertOrders(ctx context.Context, orders []models.RawOrder) (int, error) {
	merged := coalesceOrders(orders)
	now := time.Now()

	for _, w := range chunks(len(merged), batchSize) {
		batch := merged[w[0]:w[1]]
		args := make([]interface{}, 0, len(batch)*len(orderColumns))
		for _, o := range batch {
			args = append(args,
				o.MarketplaceID, o.Channel, o.AmazonOrderID, o.PurchaseDate, o.PurchaseDateLocal,
				o.SKU, o.ASIN, o.Iwasku, o.Quantity, o.ItemPrice,
				o.Currency, o.OrderStatus, o.FulfillmentChannel, now,
			)
		}
		stmt := fmt.Sprintf(orderUpsertSQL, valuesClause(len(batch), len(orderColumns)))
		if err := r.db.WithContext(ctx).Exec(stmt, args...).Error; err != nil {
			return 0, fmt.Errorf("upsert orders batch %d-%d: %w", w[0], w[1], err)
		}
	}
	return len(merged), nil
}

// List browses orders with filters and pagination
func (r *OrderRepository) List(ctx context.Context, f models.OrderFilter) ([]models.RawOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.RawOrder{})

	if f.Channel != "" {
		query = query.Where("channel = ?", strings.ToLower(f.Channel))
	}
	if f.DateFrom != "" {
		query = query.Where("purchase_date_local >= ?", f.DateFrom)
	}
	if f.DateTo != "" {
		query = query.Where("purchase_date_local <= ?", f.DateTo)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Where("(sku ILIKE ? OR asin ILIKE ? OR iwasku ILIKE ?)", like, like, like)
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

	dir := "DESC"
	if f.SortAsc {
		dir = "ASC"
	}

	var orders []models.RawOrder
	err := query.
		Order("purchase_date_local " + dir).
		Order("id DESC").
		Limit(f.Limit).
		Offset((f.Page - 1) * f.Limit).
		Find(&orders).Error
	return orders, total, err
}

// Channels returns the distinct channels that have orders
func (r *OrderRepository) Channels(ctx context.Context) ([]string, error) {
	var channels []string
	err := r.db.WithContext(ctx).
		Model(&models.RawOrder{}).
		Distinct("channel").
		Order("channel").
		Pluck("channel", &channels).Error
	return channels, err
}

// ListForProjection returns the order lines feeding the sales projection:
// lines on or after since, for the given channels, without returns SKUs
func (r *OrderRepository) ListForProjection(ctx context.Context, since time.Time, channels []string) ([]models.RawOrder, error) {
	var orders []models.RawOrder
	err := r.db.WithContext(ctx).
		Select("channel", "sku", "asin", "iwasku", "quantity", "purchase_date_local").
		Where("channel IN ?", channels).
		Where("purchase_date_local >= ?", since.Format("2006-01-02")).
		Where("sku NOT LIKE ?", returnsSKUPattern).
		Find(&orders).Error
	return orders, err
}
