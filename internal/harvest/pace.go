// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/pdiddy/scholar-harvest/pkg/types"
)

// Pacing bounds the randomized pauses of the search loop.
type Pacing struct {
	// ItemMin and ItemMax bound the pause after every yielded item.
	ItemMin, ItemMax time.Duration
	// RetryMin and RetryMax bound the pause before reopening a throttled search.
	RetryMin, RetryMax time.Duration
}

// DefaultPacing returns 2-5s between items and 5-15s before a retry.
func DefaultPacing() Pacing {
	return Pacing{
		ItemMin:  2 * time.Second,
		ItemMax:  5 * time.Second,
		RetryMin: 5 * time.Second,
		RetryMax: 15 * time.Second,
	}
}

// PacingFrom reads the delay bounds from cfg, keeping the default for any
// bound left zero. A max below its min is raised to the min.
func PacingFrom(cfg types.HarvestConfig) Pacing {
	p := DefaultPacing()
	if cfg.ItemDelayMin > 0 {
		p.ItemMin = cfg.ItemDelayMin
	}
	if cfg.ItemDelayMax > 0 {
		p.ItemMax = cfg.ItemDelayMax
	}
	if cfg.RetryDelayMin > 0 {
		p.RetryMin = cfg.RetryDelayMin
	}
	if cfg.RetryDelayMax > 0 {
		p.RetryMax = cfg.RetryDelayMax
	}
	p.ItemMax = max(p.ItemMax, p.ItemMin)
	p.RetryMax = max(p.RetryMax, p.RetryMin)
	return p
}

// jitter returns a duration drawn uniformly from [lo, hi].
func jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return max(lo, 0)
	}
	return lo + rand.N(hi-lo+1)
}

// sleepCtx pauses for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
