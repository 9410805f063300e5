package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ahmtersoy23-ui/databridge/internal/services"
)

// SyncRunner runs the full inventory and sales syncs
type SyncRunner interface {
	RunInventorySync(ctx context.Context) (*services.RunSummary, error)
	RunSalesSync(ctx context.Context) (*services.RunSummary, error)
}

// Scheduler triggers the periodic syncs on cron schedules evaluated in UTC
type Scheduler struct {
	runner        SyncRunner
	cron          *cron.Cron
	inventorySpec string
	salesSpec     string
	timeout       time.Duration
	logger        *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler; empty specs disable the corresponding sync
func NewScheduler(runner SyncRunner, inventorySpec, salesSpec string, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner:        runner,
		cron:          cron.New(cron.WithLocation(time.UTC)),
		inventorySpec: inventorySpec,
		salesSpec:     salesSpec,
		timeout:       12 * time.Hour,
		logger:        logger.WithField("component", "scheduler"),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start registers the schedules and starts the cron loop
func (s *Scheduler) Start() error {
	if s.inventorySpec != "" {
		if _, err := s.cron.AddFunc(s.inventorySpec, s.runInventory); err != nil {
			return fmt.Errorf("invalid inventory schedule %q: %w", s.inventorySpec, err)
		}
		s.logger.WithField("schedule", s.inventorySpec).Info("Inventory sync scheduled")
	}
	if s.salesSpec != "" {
		if _, err := s.cron.AddFunc(s.salesSpec, s.runSales); err != nil {
			return fmt.Errorf("invalid sales schedule %q: %w", s.salesSpec, err)
		}
		s.logger.WithField("schedule", s.salesSpec).Info("Sales sync scheduled")
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedules, cancels in-flight runs and waits for them to return
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	s.cancel()
	<-done.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) runInventory() {
	s.logger.Info("Starting scheduled inventory sync")
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	s.report("inventory", func() (*services.RunSummary, error) { return s.runner.RunInventorySync(ctx) })
}

func (s *Scheduler) runSales() {
	s.logger.Info("Starting scheduled sales sync")
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	s.report("sales", func() (*services.RunSummary, error) { return s.runner.RunSalesSync(ctx) })
}

func (s *Scheduler) report(kind string, run func() (*services.RunSummary, error)) {
	summary, err := run()
	switch {
	case errors.Is(err, services.ErrSyncInProgress):
		s.logger.WithField("sync", kind).Warn("Skipping scheduled sync, another sync is in progress")
	case err != nil:
		s.logger.WithError(err).WithField("sync", kind).Error("Scheduled sync failed")
	default:
		s.logger.WithFields(logrus.Fields{
			"sync":    kind,
			"groups":  summary.Groups,
			"failed":  summary.Failed,
			"records": summary.Records,
		}).Info("Scheduled sync finished")
	}
}
