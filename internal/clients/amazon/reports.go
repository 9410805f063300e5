package amazon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

var (
	// ErrReportFailed is returned when Amazon cancels or fails a report
	ErrReportFailed = errors.New("report processing failed")
	// ErrReportTimeout is returned when a report is not ready after MaxAttempts polls
	ErrReportTimeout = errors.New("report polling timed out")
)

// Sleeper blocks for d or until ctx is done
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type contextSleeper struct{}

func (contextSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// PollPolicy bounds report status polling
type PollPolicy struct {
	MaxAttempts int
	Delay       func(attempt int) time.Duration
}

// DefaultPollPolicy waits 10s, 15s, 20s... capped at 60s, for 30 attempts
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		MaxAttempts: 30,
		Delay: func(attempt int) time.Duration {
			d := 10*time.Second + time.Duration(attempt)*5*time.Second
			if d > 60*time.Second {
				d = 60 * time.Second
			}
			return d
		},
	}
}

// ClientProvider hands out the SP-API client serving a marketplace
type ClientProvider interface {
	ClientFor(ctx context.Context, mp models.MarketplaceConfig) (*Client, error)
}

// Fetcher pulls inventory snapshots and order reports for one marketplace at a time
type Fetcher struct {
	clients ClientProvider
	poll    PollPolicy
	sleeper Sleeper
	logger  *logrus.Entry
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithPollPolicy overrides the report polling policy
func WithPollPolicy(p PollPolicy) FetcherOption {
	return func(f *Fetcher) { f.poll = p }
}

// WithSleeper overrides how the fetcher waits between polls
func WithSleeper(s Sleeper) FetcherOption {
	return func(f *Fetcher) { f.sleeper = s }
}

// NewFetcher creates a report fetcher
func NewFetcher(provider ClientProvider, logger *logrus.Logger, opts ...FetcherOption) *Fetcher {
	if logger == nil {
		logger = logrus.New()
	}
	f := &Fetcher{
		clients: provider,
		poll:    DefaultPollPolicy(),
		sleeper: contextSleeper{},
		logger:  logger.WithField("component", "sp-api"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchInventorySnapshot returns every FBA inventory summary for the marketplace
func (f *Fetcher) FetchInventorySnapshot(ctx context.Context, mp models.MarketplaceConfig) ([]models.FbaInventoryItem, error) {
	client, err := f.clients.ClientFor(ctx, mp)
	if err != nil {
		return nil, err
	}

	var items []models.FbaInventoryItem
	nextToken := ""
	for {
		resp, err := client.GetInventorySummaries(ctx, mp.MarketplaceID, nextToken)
		if err != nil {
			return nil, fmt.Errorf("inventory summaries for %s: %w", mp.CountryCode, err)
		}

		summaries := resp.Summaries()
		for _, s := range summaries {
			if s.SellerSku == "" {
				continue
			}
			items = append(items, toInventoryItem(s, mp))
		}

		nextToken = resp.Token()
		f.logger.WithFields(logrus.Fields{
			"marketplace": mp.CountryCode,
			"batch":       len(summaries),
			"has_more":    nextToken != "",
		}).Debug("Inventory batch fetched")
		if nextToken == "" {
			break
		}
	}

	f.logger.Infof("Fetched %d inventory items for %s", len(items), mp.CountryCode)
	return items, nil
}

// FetchOrders requests the orders flat-file report for [start, end] and parses it
func (f *Fetcher) FetchOrders(ctx context.Context, mp models.MarketplaceConfig, start, end time.Time) ([]models.RawOrder, error) {
	client, err := f.clients.ClientFor(ctx, mp)
	if err != nil {
		return nil, err
	}

	f.logger.Infof("Requesting orders report for %s: %s - %s",
		mp.CountryCode, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))

	reportID, err := client.CreateReport(ctx, OrdersReportType, mp.MarketplaceID, start, end)
	if err != nil {
		return nil, fmt.Errorf("create report for %s: %w", mp.CountryCode, err)
	}
	if reportID == "" {
		return nil, fmt.Errorf("failed to create report for %s: empty report id", mp.CountryCode)
	}

	doc, err := f.waitForReport(ctx, client, reportID)
	if err != nil {
		return nil, err
	}

	data, err := client.Download(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("download report %s: %w", reportID, err)
	}

	rows, err := parseFlatFile(data)
	if err != nil {
		return nil, fmt.Errorf("parse report %s: %w", reportID, err)
	}

	orders := make([]models.RawOrder, 0, len(rows))
	for _, row := range rows {
		if order, ok := toRawOrder(normalizeOrderRow(row), mp); ok {
			orders = append(orders, order)
		}
	}

	f.logger.Infof("Parsed %d order items for %s", len(orders), mp.CountryCode)
	return orders, nil
}

func (f *Fetcher) waitForReport(ctx context.Context, client *Client, reportID string) (*ReportDocument, error) {
	for attempt := 0; attempt < f.poll.MaxAttempts; attempt++ {
		report, err := client.GetReport(ctx, reportID)
		if err != nil {
			return nil, fmt.Errorf("get report %s: %w", reportID, err)
		}

		switch report.ProcessingStatus {
		case ReportStatusDone:
			doc, err := client.GetReportDocument(ctx, report.ReportDocumentID)
			if err != nil {
				return nil, fmt.Errorf("get report document %s: %w", report.ReportDocumentID, err)
			}
			return doc, nil
		case ReportStatusCancelled, ReportStatusFatal:
			return nil, fmt.Errorf("report %s: %s: %w", reportID, report.ProcessingStatus, ErrReportFailed)
		}

		wait := f.poll.Delay(attempt)
		f.logger.Debugf("Report %s status: %s, waiting %s", reportID, report.ProcessingStatus, wait)
		if err := f.sleeper.Sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("report %s after %d attempts: %w", reportID, f.poll.MaxAttempts, ErrReportTimeout)
}
