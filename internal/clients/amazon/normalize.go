package amazon

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

// OrderRow is one orders report line with header aliases already resolved
type OrderRow struct {
	PurchaseDate       string
	SalesChannel       string
	Quantity           string
	AmazonOrderID      string
	SKU                string
	ASIN               string
	ItemPrice          string
	Currency           string
	OrderStatus        string
	FulfillmentChannel string
}

// purchaseDateLayouts are tried in order when parsing purchase-date
var purchaseDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseFlatFile reads a tab-separated report into header-keyed rows
func parseFlatFile(data []byte) ([]map[string]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []map[string]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read report line: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, v := range record {
			if i < len(header) {
				row[header[i]] = strings.TrimSpace(v)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// firstOf returns the first non-empty value among keys
func firstOf(row map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := row[k]; v != "" {
			return v
		}
	}
	return ""
}

func normalizeOrderRow(row map[string]string) OrderRow {
	return OrderRow{
		PurchaseDate:       firstOf(row, "purchase-date", "PurchaseDate"),
		SalesChannel:       firstOf(row, "sales-channel", "SalesChannel"),
		Quantity:           firstOf(row, "quantity", "item-quantity"),
		AmazonOrderID:      firstOf(row, "amazon-order-id", "AmazonOrderId"),
		SKU:                firstOf(row, "sku", "seller-sku"),
		ASIN:               row["asin"],
		ItemPrice:          firstOf(row, "item-price", "item-total"),
		Currency:           row["currency"],
		OrderStatus:        firstOf(row, "order-status", "OrderStatus"),
		FulfillmentChannel: firstOf(row, "fulfillment-channel", "FulfillmentChannel"),
	}
}

func parsePurchaseDate(s string) (time.Time, bool) {
	for _, layout := range purchaseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// toLocalDate shifts a UTC instant by a fixed hour offset and truncates it
// to a calendar date
func toLocalDate(t time.Time, offsetHours int) time.Time {
	local := t.UTC().Add(time.Duration(offsetHours) * time.Hour)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// toRawOrder converts a normalized row; ok is false for rows that must be skipped
func toRawOrder(r OrderRow, mp models.MarketplaceConfig) (models.RawOrder, bool) {
	purchased, ok := parsePurchaseDate(r.PurchaseDate)
	if !ok {
		return models.RawOrder{}, false
	}

	qty, _ := strconv.Atoi(r.Quantity)
	if qty == 0 {
		return models.RawOrder{}, false
	}

	channel, found := SalesChannels[r.SalesChannel]
	if !found {
		channel = mp.Channel
	}
	offset, found := ChannelTimezoneOffsets[channel]
	if !found {
		offset = mp.TimezoneOffset
	}

	price, err := decimal.NewFromString(r.ItemPrice)
	if err != nil {
		price = decimal.Zero
	}

	return models.RawOrder{
		MarketplaceID:      mp.MarketplaceID,
		Channel:            channel,
		AmazonOrderID:      r.AmazonOrderID,
		PurchaseDate:       purchased,
		PurchaseDateLocal:  toLocalDate(purchased, offset),
		SKU:                r.SKU,
		ASIN:               r.ASIN,
		Quantity:           qty,
		ItemPrice:          price,
		Currency:           r.Currency,
		OrderStatus:        r.OrderStatus,
		FulfillmentChannel: r.FulfillmentChannel,
	}, true
}

// toInventoryItem maps one summary onto the marketplace's warehouse
func toInventoryItem(s InventorySummary, mp models.MarketplaceConfig) models.FbaInventoryItem {
	item := models.FbaInventoryItem{
		Warehouse:     mp.Warehouse,
		MarketplaceID: mp.MarketplaceID,
		SKU:           s.SellerSku,
		ASIN:          s.ASIN,
		FNSKU:         s.FnSku,
	}
	if d := s.InventoryDetails; d != nil {
		item.InventoryQuantities = d.quantities()
	}
	return item
}

func (d *InventoryDetails) quantities() models.InventoryQuantities {
	q := models.InventoryQuantities{
		FulfillableQuantity:          d.FulfillableQuantity,
		InboundWorkingQuantity:       d.InboundWorkingQuantity,
		InboundShippedQuantity:       d.InboundShippedQuantity,
		InboundReceivingQuantity:     d.InboundReceivingQuantity,
		TotalReservedQuantity:        d.TotalReservedQuantity,
		PendingCustomerOrderQuantity: d.PendingCustomerOrderQuantity,
		PendingTransshipmentQuantity: d.PendingTransshipmentQuantity,
		FCProcessingQuantity:         d.FCProcessingQuantity,
		TotalUnfulfillableQuantity:   d.TotalUnfulfillableQuantity,
		CustomerDamagedQuantity:      d.CustomerDamagedQuantity,
		WarehouseDamagedQuantity:     d.WarehouseDamagedQuantity,
		DistributorDamagedQuantity:   d.DistributorDamagedQuantity,
	}
	if r := d.ReservedQuantity; r != nil {
		q.TotalReservedQuantity = r.TotalReservedQuantity
		q.PendingCustomerOrderQuantity = r.PendingCustomerOrderQuantity
		q.PendingTransshipmentQuantity = r.PendingTransshipmentQuantity
		q.FCProcessingQuantity = r.FCProcessingQuantity
	}
	if u := d.UnfulfillableQuantity; u != nil {
		q.TotalUnfulfillableQuantity = u.TotalUnfulfillableQuantity
		q.CustomerDamagedQuantity = u.CustomerDamagedQuantity
		q.WarehouseDamagedQuantity = u.WarehouseDamagedQuantity
		q.DistributorDamagedQuantity = u.DistributorDamagedQuantity
	}
	return q
}
