package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ahmtersoy23-ui/databridge/internal/clients/amazon"
	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

// SalesChannels are the channels projected individually, in write order
var SalesChannels = []string{"us", "uk", "de", "fr", "it", "es", "ca", "au", "ae", "sa", "others"}

// LiveSalesChannels are the channels served by the live sales endpoint
var LiveSalesChannels = []string{"us", "uk", "de", "fr", "it", "es", "ca", "au", "ae", "sa"}

// EUChannels feed the synthetic "eu" channel
var EUChannels = []string{"de", "fr", "it", "es"}

// ProjectionWarehouses are the warehouses projected into the shared inventory table
var ProjectionWarehouses = []string{"US", "UK", "EU", "CA", "AU", "AE", "SA"}

const euChannel = "eu"

// OrderSource reads order lines for aggregation
type OrderSource interface {
	ListForProjection(ctx context.Context, since time.Time, channels []string) ([]models.RawOrder, error)
}

// InventorySource reads inventory rows for aggregation
type InventorySource interface {
	ListForProjection(ctx context.Context, warehouses []string) ([]models.FbaInventoryItem, error)
}

// ProjectionWriter merges projection rows into the shared database
type ProjectionWriter interface {
	UpsertSales(ctx context.Context, rows []models.SalesProjection) (int, error)
	UpsertInventory(ctx context.Context, rows []models.InventoryProjection) (int, error)
}

// civilDate drops the clock, keeping the calendar date
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func within(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}

// salesHorizon is the oldest local date that counts toward any window
func salesHorizon(today time.Time) time.Time {
	return yearsBack(civilDate(today), 2)
}

// yearsBack subtracts n calendar years, clamping Feb 29 to Feb 28
func yearsBack(d time.Time, n int) time.Time {
	y := d.Year() - n
	last := time.Date(y, d.Month()+1, 0, 0, 0, 0, 0, d.Location()).Day()
	day := d.Day()
	if day > last {
		day = last
	}
	return time.Date(y, d.Month(), day, d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
}

// windowsFor returns the windows a single order line of qty on date contributes to
func windowsFor(date, today time.Time, qty int) models.SalesWindows {
	today = civilDate(today)
	date = civilDate(date)
	py := yearsBack(today, 1)
	since := func(n int) bool { return !date.Before(today.AddDate(0, 0, -n)) }
	before := func(n int) bool { return within(date, py.AddDate(0, 0, -n), py) }
	after := func(n int) bool { return within(date, py, py.AddDate(0, 0, n)) }
	pick := func(ok bool) int {
		if ok {
			return qty
		}
		return 0
	}

	return models.SalesWindows{
		Last7:          pick(since(7)),
		Last30:         pick(since(30)),
		Last90:         pick(since(90)),
		Last180:        pick(since(180)),
		Last366:        pick(since(366)),
		PreYearLast7:   pick(before(7)),
		PreYearLast30:  pick(before(30)),
		PreYearLast90:  pick(before(90)),
		PreYearLast180: pick(before(180)),
		PreYearLast365: pick(before(365)),
		PreYearNext7:   pick(after(7)),
		PreYearNext30:  pick(after(30)),
		PreYearNext90:  pick(after(90)),
		PreYearNext180: pick(after(180)),
	}
}

func productKey(iwasku *string, sku string) string {
	if iwasku != nil && *iwasku != "" {
		return *iwasku
	}
	return sku
}

// SalesByProductASIN sums windows per (product key, asin), sorted by key then asin.
// Returns SKUs and lines older than two years are ignored.
func SalesByProductASIN(orders []models.RawOrder, today time.Time) []models.SalesRow {
	horizon := salesHorizon(today)
	type key struct{ iwasku, asin string }
	index := make(map[key]int)
	var rows []models.SalesRow

	for _, o := range orders {
		if amazon.IsReturnsSKU(o.SKU) || civilDate(o.PurchaseDateLocal).Before(horizon) {
			continue
		}
		k := key{productKey(o.Iwasku, o.SKU), o.ASIN}
		i, ok := index[k]
		if !ok {
			i = len(rows)
			index[k] = i
			rows = append(rows, models.SalesRow{Iwasku: k.iwasku, ASIN: k.asin})
		}
		rows[i].Add(windowsFor(o.PurchaseDateLocal, today, o.Quantity))
	}

	sort.Slice(rows, func(a, b int) bool {
		if rows[a].Iwasku != rows[b].Iwasku {
			return rows[a].Iwasku < rows[b].Iwasku
		}
		return rows[a].ASIN < rows[b].ASIN
	})
	return rows
}

// AggregateSales merges per-(key, asin) sums into one row per key.
// The representative asin has the highest last30; ties go to the smaller asin.
func AggregateSales(channel string, orders []models.RawOrder, today time.Time) []models.SalesProjection {
	perASIN := SalesByProductASIN(orders, today)

	var out []models.SalesProjection
	for start := 0; start < len(perASIN); {
		end := start
		var sum models.SalesWindows
		best := perASIN[start]
		for end < len(perASIN) && perASIN[end].Iwasku == perASIN[start].Iwasku {
			r := perASIN[end]
			sum.Add(r.SalesWindows)
			if r.Last30 > best.Last30 {
				best = r
			}
			end++
		}
		out = append(out, models.NewSalesProjection(channel, perASIN[start].Iwasku, best.ASIN, sum))
		start = end
	}
	return out
}

// AggregateSalesByChannel projects every individual channel with data plus "eu"
func AggregateSalesByChannel(orders []models.RawOrder, today time.Time) map[string][]models.SalesProjection {
	byChannel := make(map[string][]models.RawOrder)
	for _, o := range orders {
		byChannel[o.Channel] = append(byChannel[o.Channel], o)
	}

	out := make(map[string][]models.SalesProjection)
	var eu []models.RawOrder
	for _, ch := range SalesChannels {
		lines, ok := byChannel[ch]
		if !ok {
			continue
		}
		out[ch] = AggregateSales(ch, lines, today)
	}
	for _, ch := range EUChannels {
		eu = append(eu, byChannel[ch]...)
	}
	if len(eu) > 0 {
		out[euChannel] = AggregateSales(euChannel, eu, today)
	}
	return out
}

// AggregateInventory projects one warehouse's raw rows.
// Rows are first deduplicated on (key, fnsku) keeping the highest fulfillable quantity.
func AggregateInventory(warehouse string, items []models.FbaInventoryItem) []models.InventoryProjection {
	type dedupKey struct{ key, fnsku string }
	kept := make(map[dedupKey]models.FbaInventoryItem)
	var order []dedupKey
	for _, it := range items {
		if it.Warehouse != "" && it.Warehouse != warehouse {
			continue
		}
		if amazon.IsReturnsSKU(it.SKU) {
			continue
		}
		k := dedupKey{productKey(it.Iwasku, it.SKU), it.FNSKU}
		prev, ok := kept[k]
		if !ok {
			order = append(order, k)
		}
		if !ok || it.FulfillableQuantity > prev.FulfillableQuantity {
			kept[k] = it
		}
	}

	type group struct {
		proj     models.InventoryProjection
		bestFul  int
		skus     map[string]struct{}
		hasFirst bool
	}
	groups := make(map[string]*group)
	var keys []string
	for _, k := range order {
		it := kept[k]
		g, ok := groups[k.key]
		if !ok {
			g = &group{
				proj: models.InventoryProjection{Iwasku: k.key, Warehouse: warehouse},
				skus: make(map[string]struct{}),
			}
			groups[k.key] = g
			keys = append(keys, k.key)
		}
		if !g.hasFirst || it.FulfillableQuantity > g.bestFul {
			g.proj.ASIN = it.ASIN
			g.proj.FNSKU = it.FNSKU
			g.bestFul = it.FulfillableQuantity
			g.hasFirst = true
		}
		g.proj.InventoryQuantities.Add(it.InventoryQuantities)
		g.skus[it.SKU] = struct{}{}
	}

	sort.Strings(keys)
	out := make([]models.InventoryProjection, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		skus := make([]string, 0, len(g.skus))
		for s := range g.skus {
			skus = append(skus, s)
		}
		sort.Strings(skus)
		g.proj.SKUList = strings.Join(skus, ", ")
		g.proj.TotalQuantity = g.proj.InventoryQuantities.Total()
		out = append(out, g.proj)
	}
	return out
}

// ProjectionService rebuilds the shared sales_data and fba_inventory projections
type ProjectionService struct {
	orders    OrderSource
	inventory InventorySource
	writer    ProjectionWriter
	publisher EventPublisher
	today     func() time.Time
	logger    *logrus.Entry
}

// NewProjectionService creates a projection service; publisher may be nil
func NewProjectionService(orders OrderSource, inventory InventorySource, writer ProjectionWriter, publisher EventPublisher, logger *logrus.Logger) *ProjectionService {
	if logger == nil {
		logger = logrus.New()
	}
	return &ProjectionService{
		orders:    orders,
		inventory: inventory,
		writer:    writer,
		publisher: publisher,
		today:     func() time.Time { return civilDate(time.Now()) },
		logger:    logger.WithField("component", "projection"),
	}
}

// LiveSales returns per-(key, asin) windows for one channel
func (s *ProjectionService) LiveSales(ctx context.Context, channel string) ([]models.SalesRow, error) {
	today := s.today()
	orders, err := s.orders.ListForProjection(ctx, salesHorizon(today), []string{channel})
	if err != nil {
		return nil, fmt.Errorf("load %s orders: %w", channel, err)
	}
	rows := SalesByProductASIN(orders, today)
	if rows == nil {
		rows = []models.SalesRow{}
	}
	return rows, nil
}

// RefreshSales recomputes sales_data for every channel with orders
func (s *ProjectionService) RefreshSales(ctx context.Context) (int, error) {
	started := time.Now()
	today := s.today()

	orders, err := s.orders.ListForProjection(ctx, salesHorizon(today), SalesChannels)
	if err != nil {
		return 0, fmt.Errorf("load orders: %w", err)
	}

	byChannel := AggregateSalesByChannel(orders, today)
	total := 0
	for _, ch := range append(append([]string{}, SalesChannels...), euChannel) {
		rows, ok := byChannel[ch]
		if !ok {
			continue
		}
		n, err := s.writer.UpsertSales(ctx, rows)
		total += n
		if err != nil {
			return total, fmt.Errorf("write sales_data %s: %w", ch, err)
		}
		s.logger.WithFields(logrus.Fields{"channel": ch, "rows": n}).Info("Sales projection written")
	}

	s.logger.WithFields(logrus.Fields{
		"rows":     total,
		"channels": len(byChannel),
		"elapsed":  time.Since(started).Round(100 * time.Millisecond).String(),
	}).Info("Sales projection refresh complete")
	if s.publisher != nil {
		s.publisher.PublishProjectionRefreshed(ctx, "sales", total)
	}
	return total, nil
}

// RefreshInventory recomputes fba_inventory for every warehouse with rows
func (s *ProjectionService) RefreshInventory(ctx context.Context) (int, error) {
	started := time.Now()

	items, err := s.inventory.ListForProjection(ctx, ProjectionWarehouses)
	if err != nil {
		return 0, fmt.Errorf("load inventory: %w", err)
	}

	byWarehouse := make(map[string][]models.FbaInventoryItem)
	for _, it := range items {
		byWarehouse[it.Warehouse] = append(byWarehouse[it.Warehouse], it)
	}

	total := 0
	for _, wh := range ProjectionWarehouses {
		rows := byWarehouse[wh]
		if len(rows) == 0 {
			continue
		}
		n, err := s.writer.UpsertInventory(ctx, AggregateInventory(wh, rows))
		total += n
		if err != nil {
			return total, fmt.Errorf("write fba_inventory %s: %w", wh, err)
		}
		s.logger.WithFields(logrus.Fields{"warehouse": wh, "rows": n}).Info("Inventory projection written")
	}

	s.logger.WithFields(logrus.Fields{
		"rows":    total,
		"elapsed": time.Since(started).Round(100 * time.Millisecond).String(),
	}).Info("Inventory projection refresh complete")
	if s.publisher != nil {
		s.publisher.PublishProjectionRefreshed(ctx, "inventory", total)
	}
	return total, nil
}

// RefreshAll refreshes sales then inventory
func (s *ProjectionService) RefreshAll(ctx context.Context) (sales, inventory int, err error) {
	if sales, err = s.RefreshSales(ctx); err != nil {
		return sales, 0, err
	}
	inventory, err = s.RefreshInventory(ctx)
	return sales, inventory, err
}
