package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

const (
	// DefaultBackfillMonths is used when a backfill does not name a month count
	DefaultBackfillMonths = 13
	// MaxBackfillMonths caps how far back a backfill reaches
	MaxBackfillMonths = 24
	// DefaultSalesOverlapDays is the look-back window of the scheduled sales sync
	DefaultSalesOverlapDays = 2
)

// ReportFetcher pulls data for one marketplace from SP-API
type ReportFetcher interface {
	FetchInventorySnapshot(ctx context.Context, mp models.MarketplaceConfig) ([]models.FbaInventoryItem, error)
	FetchOrders(ctx context.Context, mp models.MarketplaceConfig, start, end time.Time) ([]models.RawOrder, error)
}

// BulkResolver maps SKUs to iwasku
type BulkResolver interface {
	ResolveBulk(ctx context.Context, items []SkuLookup) (map[string]*string, error)
}

// MarketplaceLister lists marketplaces eligible for syncing
type MarketplaceLister interface {
	ListEligible(ctx context.Context) ([]models.MarketplaceConfig, error)
}

// InventoryWriter replaces a warehouse's inventory snapshot
type InventoryWriter interface {
	ReplaceWarehouse(ctx context.Context, warehouse string, items []models.FbaInventoryItem) error
}

// OrderWriter upserts order lines
type OrderWriter interface {
	UpsertOrders(ctx context.Context, orders []models.RawOrder) (int, error)
}

// ProjectionRefresher rebuilds the downstream projections
type ProjectionRefresher interface {
	RefreshSales(ctx context.Context) (int, error)
	RefreshInventory(ctx context.Context) (int, error)
}

// SyncDeps wires the orchestrator to its collaborators
type SyncDeps struct {
	Marketplaces MarketplaceLister
	Fetcher      ReportFetcher
	Resolver     BulkResolver
	Inventory    InventoryWriter
	Orders       OrderWriter
	Projections  ProjectionRefresher
	Tracker      *JobTracker
	Guard        *SyncGuard
}

// RunSummary reports the outcome of a multi-group run
type RunSummary struct {
	Groups  int `json:"groups"`
	Failed  int `json:"failed"`
	Records int `json:"records"`
}

// SyncService orchestrates inventory and sales syncs from SP-API into the operational store
type SyncService struct {
	deps         SyncDeps
	pacing       PacingPolicy
	overlapDays  int
	backfillDflt int
	pause        pauseFunc
	now          func() time.Time
	logger       *logrus.Entry
}

// SyncOption configures a SyncService
type SyncOption func(*SyncService)

// WithPacing overrides the delays between sync units
func WithPacing(p PacingPolicy) SyncOption {
	return func(s *SyncService) { s.pacing = p }
}

// WithSalesOverlapDays overrides the scheduled sales look-back
func WithSalesOverlapDays(days int) SyncOption {
	return func(s *SyncService) {
		if days > 0 {
			s.overlapDays = days
		}
	}
}

// WithBackfillDefaultMonths overrides the month count used when a backfill names none
func WithBackfillDefaultMonths(months int) SyncOption {
	return func(s *SyncService) {
		if months > 0 {
			s.backfillDflt = months
		}
	}
}

// NewSyncService creates a new sync orchestrator
func NewSyncService(deps SyncDeps, logger *logrus.Logger, opts ...SyncOption) *SyncService {
	if logger == nil {
		logger = logrus.New()
	}
	if deps.Guard == nil {
		deps.Guard = NewSyncGuard(nil, logger)
	}
	s := &SyncService{
		deps:         deps,
		pacing:       DefaultPacingPolicy(),
		overlapDays:  DefaultSalesOverlapDays,
		backfillDflt: DefaultBackfillMonths,
		pause:        contextPause,
		now:          time.Now,
		logger:       logger.WithField("component", "sync"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Running reports whether a sync run is in progress in this process
func (s *SyncService) Running() bool {
	return s.deps.Guard.Running()
}

func (s *SyncService) acquire(ctx context.Context, what string) error {
	if !s.deps.Guard.TryAcquire(ctx) {
		s.logger.WithField("run", what).Warn("Sync already in progress, skipping")
		return ErrSyncInProgress
	}
	return nil
}

// RunInventorySync syncs every eligible marketplace group, one group at a time
func (s *SyncService) RunInventorySync(ctx context.Context) (*RunSummary, error) {
	if err := s.acquire(ctx, "inventory"); err != nil {
		return nil, err
	}
	defer s.deps.Guard.Release(ctx)

	mps, err := s.deps.Marketplaces.ListEligible(ctx)
	if err != nil {
		return nil, fmt.Errorf("list marketplaces: %w", err)
	}

	groups := groupMarketplaces(mps, true)
	summary := &RunSummary{Groups: len(groups)}
	s.logger.WithField("groups", len(groups)).Info("Inventory sync started")

	for i, g := range groups {
		if i > 0 {
			if err := s.pause(ctx, s.pacing.InventoryGroupDelay); err != nil {
				return summary, err
			}
		}
		n, err := s.syncInventory(ctx, g[0])
		if err != nil {
			summary.Failed++
			continue
		}
		summary.Records += n
	}

	if _, err := s.deps.Projections.RefreshInventory(ctx); err != nil {
		s.logger.WithError(err).Error("Inventory projection refresh failed")
	}

	s.logger.WithFields(logrus.Fields{
		"groups":  summary.Groups,
		"failed":  summary.Failed,
		"records": summary.Records,
	}).Info("Inventory sync finished")
	return summary, nil
}

// RunSalesSync syncs recent orders for every credential, one credential at a time
func (s *SyncService) RunSalesSync(ctx context.Context) (*RunSummary, error) {
	if err := s.acquire(ctx, "sales"); err != nil {
		return nil, err
	}
	defer s.deps.Guard.Release(ctx)

	mps, err := s.deps.Marketplaces.ListEligible(ctx)
	if err != nil {
		return nil, fmt.Errorf("list marketplaces: %w", err)
	}

	groups := groupMarketplaces(mps, false)
	summary := &RunSummary{Groups: len(groups)}
	s.logger.WithField("groups", len(groups)).Info("Sales sync started")

	for i, g := range groups {
		if i > 0 {
			if err := s.pause(ctx, s.pacing.SalesGroupDelay); err != nil {
				return summary, err
			}
		}
		end := s.now()
		n, err := s.syncSales(ctx, models.JobTypeSalesSync, g[0], end.AddDate(0, 0, -s.overlapDays), end)
		if err != nil {
			summary.Failed++
			continue
		}
		summary.Records += n
	}

	if _, err := s.deps.Projections.RefreshSales(ctx); err != nil {
		s.logger.WithError(err).Error("Sales projection refresh failed")
	}

	s.logger.WithFields(logrus.Fields{
		"groups":  summary.Groups,
		"failed":  summary.Failed,
		"records": summary.Records,
	}).Info("Sales sync finished")
	return summary, nil
}

// SyncInventoryForMarketplace syncs a single marketplace's warehouse and returns the record count
func (s *SyncService) SyncInventoryForMarketplace(ctx context.Context, mp models.MarketplaceConfig) (int, error) {
	if err := s.acquire(ctx, "inventory:"+mp.CountryCode); err != nil {
		return 0, err
	}
	defer s.deps.Guard.Release(ctx)
	return s.syncInventory(ctx, mp)
}

// SyncSalesForMarketplace syncs the last daysBack days of orders for one marketplace
func (s *SyncService) SyncSalesForMarketplace(ctx context.Context, mp models.MarketplaceConfig, daysBack int) (int, error) {
	if daysBack <= 0 {
		daysBack = s.overlapDays
	}
	if err := s.acquire(ctx, "sales:"+mp.CountryCode); err != nil {
		return 0, err
	}
	defer s.deps.Guard.Release(ctx)

	end := s.now()
	return s.syncSales(ctx, models.JobTypeSalesSync, mp, end.AddDate(0, 0, -daysBack), end)
}

// NormalizeBackfillMonths applies the default and the cap
func (s *SyncService) NormalizeBackfillMonths(months int) int {
	if months <= 0 {
		months = s.backfillDflt
	}
	if months > MaxBackfillMonths {
		months = MaxBackfillMonths
	}
	return months
}

// BackfillSales fetches one calendar month per cycle, oldest first.
// A failed month is logged and skipped.
func (s *SyncService) BackfillSales(ctx context.Context, mp models.MarketplaceConfig, months int) (int, error) {
	if err := s.acquire(ctx, "backfill:"+mp.CountryCode); err != nil {
		return 0, err
	}
	defer s.deps.Guard.Release(ctx)

	months = s.NormalizeBackfillMonths(months)
	ranges := backfillRanges(s.now(), months)
	log := s.logger.WithFields(logrus.Fields{"marketplace": mp.CountryCode, "months": months})
	log.Info("Sales backfill started")

	total := 0
	for i, r := range ranges {
		if i > 0 {
			if err := s.pause(ctx, s.pacing.BackfillMonthDelay); err != nil {
				return total, err
			}
		}
		n, err := s.syncSales(ctx, models.JobTypeSalesBackfill, mp, r.Start, r.End)
		if err != nil {
			log.WithError(err).WithField("month", r.Start.Format("2006-01")).Error("Backfill month failed")
			continue
		}
		total += n
		log.WithFields(logrus.Fields{
			"month":  r.Start.Format("2006-01"),
			"orders": n,
		}).Info("Backfill month completed")
	}

	if _, err := s.deps.Projections.RefreshSales(ctx); err != nil {
		log.WithError(err).Error("Sales projection refresh failed")
	}

	log.WithField("orders", total).Info("Sales backfill finished")
	return total, nil
}

// syncInventory runs one tracked fetch, resolve and replace cycle
func (s *SyncService) syncInventory(ctx context.Context, mp models.MarketplaceConfig) (int, error) {
	return s.tracked(ctx, models.JobTypeInventorySync, mp, func() (int, error) {
		items, err := s.deps.Fetcher.FetchInventorySnapshot(ctx, mp)
		if err != nil {
			return 0, err
		}
		if len(items) == 0 {
			return 0, nil
		}

		lookups := make([]SkuLookup, len(items))
		for i, it := range items {
			lookups[i] = SkuLookup{SKU: it.SKU, CountryCode: mp.CountryCode, ASIN: it.ASIN}
		}
		mapping, err := s.deps.Resolver.ResolveBulk(ctx, lookups)
		if err != nil {
			return 0, err
		}
		for i := range items {
			items[i].Warehouse = mp.Warehouse
			items[i].Iwasku = mapping[items[i].SKU]
		}

		if err := s.deps.Inventory.ReplaceWarehouse(ctx, mp.Warehouse, items); err != nil {
			return 0, err
		}
		return len(items), nil
	})
}

// syncSales runs one tracked fetch, resolve and upsert cycle over [start, end)
func (s *SyncService) syncSales(ctx context.Context, jobType models.JobType, mp models.MarketplaceConfig, start, end time.Time) (int, error) {
	return s.tracked(ctx, jobType, mp, func() (int, error) {
		orders, err := s.deps.Fetcher.FetchOrders(ctx, mp, start, end)
		if err != nil {
			return 0, err
		}
		if len(orders) == 0 {
			return 0, nil
		}

		lookups := make([]SkuLookup, len(orders))
		for i, o := range orders {
			lookups[i] = SkuLookup{SKU: o.SKU, CountryCode: mp.CountryCode, ASIN: o.ASIN}
		}
		mapping, err := s.deps.Resolver.ResolveBulk(ctx, lookups)
		if err != nil {
			return 0, err
		}
		for i := range orders {
			orders[i].Iwasku = mapping[orders[i].SKU]
		}

		return s.deps.Orders.UpsertOrders(ctx, orders)
	})
}

// tracked wraps work in a sync job: create, start, then complete or fail
func (s *SyncService) tracked(ctx context.Context, jobType models.JobType, mp models.MarketplaceConfig, work func() (int, error)) (int, error) {
	log := s.logger.WithFields(logrus.Fields{
		"job_type":    jobType,
		"marketplace": mp.CountryCode,
	})

	job, err := s.deps.Tracker.Create(ctx, jobType, mp.CountryCode)
	if err != nil {
		log.WithError(err).Error("Failed to create sync job")
		return 0, err
	}
	if err := s.deps.Tracker.Start(ctx, job.ID); err != nil {
		log.WithError(err).Error("Failed to start sync job")
		if aerr := s.deps.Tracker.Abandon(ctx, job.ID, err); aerr != nil {
			log.WithError(aerr).Error("Failed to mark sync job failed")
		}
		return 0, err
	}

	n, workErr := work()
	if workErr != nil {
		log.WithError(workErr).Error("Sync failed")
		if err := s.deps.Tracker.Fail(ctx, job.ID, workErr); err != nil {
			log.WithError(err).Error("Failed to mark sync job failed")
		}
		return 0, workErr
	}

	if err := s.deps.Tracker.Complete(ctx, job.ID, n); err != nil {
		log.WithError(err).Error("Failed to mark sync job completed")
		return n, err
	}
	log.WithField("records", n).Info("Sync completed")
	return n, nil
}

// groupMarketplaces groups by credential, and by warehouse too when byWarehouse is set.
// Group order and member order follow the input.
func groupMarketplaces(mps []models.MarketplaceConfig, byWarehouse bool) [][]models.MarketplaceConfig {
	index := make(map[string]int)
	var groups [][]models.MarketplaceConfig
	for _, mp := range mps {
		var cred uint
		if mp.CredentialID != nil {
			cred = *mp.CredentialID
		}
		key := fmt.Sprintf("%d", cred)
		if byWarehouse {
			key += "|" + mp.Warehouse
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], mp)
	}
	return groups
}

// TimeRange is a half-open [Start, End) interval
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// backfillRanges returns months calendar-month ranges ending with the current month,
// oldest first. The current month ends at now.
func backfillRanges(now time.Time, months int) []TimeRange {
	now = now.UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	ranges := make([]TimeRange, 0, months)
	for k := 0; k < months; k++ {
		start := current.AddDate(0, -(months - 1 - k), 0)
		end := start.AddDate(0, 1, 0)
		if end.After(now) {
			end = now
		}
		ranges = append(ranges, TimeRange{Start: start, End: end})
	}
	return ranges
}
