package services

import (
	"context"
	"time"
)

// PacingPolicy spaces out SP-API calls between sync units
type PacingPolicy struct {
	InventoryGroupDelay time.Duration
	SalesGroupDelay     time.Duration
	BackfillMonthDelay  time.Duration
}

// DefaultPacingPolicy returns 2s between inventory groups and 5s between sales groups and backfill months
func DefaultPacingPolicy() PacingPolicy {
	return PacingPolicy{
		InventoryGroupDelay: 2 * time.Second,
		SalesGroupDelay:     5 * time.Second,
		BackfillMonthDelay:  5 * time.Second,
	}
}

// pauseFunc waits for d or until ctx is done
type pauseFunc func(ctx context.Context, d time.Duration) error

func contextPause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
