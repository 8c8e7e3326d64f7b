// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest drives a search provider page by page, filters results by
// publication year, and retries throttled searches on a fresh proxy.
//
// Run never fails outright: it returns whatever was collected together with
// the reason the loop stopped, so callers can always persist partial results.
package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdiddy/scholar-harvest/internal/proxy"
	"github.com/pdiddy/scholar-harvest/internal/scholar"
	"github.com/pdiddy/scholar-harvest/pkg/types"
)

// Outcome names the reason a run stopped.
type Outcome string

const (
	// OutcomeExhausted means the provider had no more results.
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeMaxResults means the collection cap was reached.
	OutcomeMaxResults Outcome = "max_results"
	// OutcomeRetriesExhausted means throttling outlasted the retry budget.
	OutcomeRetriesExhausted Outcome = "retries_exhausted"
	// OutcomeProxyFailed means no new proxy could be set up after throttling.
	OutcomeProxyFailed Outcome = "proxy_failed"
	// OutcomeFatal means an unexpected error stopped the run.
	OutcomeFatal Outcome = "fatal"
)

// Complete reports whether the run stopped for a non-failure reason.
func (o Outcome) Complete() bool {
	return o == OutcomeExhausted || o == OutcomeMaxResults
}

// Result is what a run produced and why it stopped.
type Result struct {
	Records []types.PublicationRecord
	// Visited counts every item the provider yielded, including skipped ones.
	Visited int
	// Skipped counts items dropped for an invalid year.
	Skipped int
	// Attempts counts throttling failures.
	Attempts int
	Outcome  Outcome
	// Err holds the cause for every outcome except exhausted and max_results.
	Err error
	// Session is the egress path in use when the run stopped.
	Session *proxy.Session
}

// Reconnector sets up a fresh egress path after a throttling failure.
// *proxy.Initializer satisfies it.
type Reconnector interface {
	Setup(ctx context.Context) (*proxy.Session, error)
}

// Harvester runs searches against one provider.
type Harvester struct {
	provider scholar.Provider
	proxies  Reconnector
	pacing   Pacing
	logger   *slog.Logger

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Harvester. A nil logger uses slog.Default.
func New(provider scholar.Provider, proxies Reconnector, pacing Pacing, logger *slog.Logger) *Harvester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Harvester{
		provider: provider,
		proxies:  proxies,
		pacing:   pacing,
		logger:   logger.With("provider", provider.Name()),
		sleep:    sleepCtx,
	}
}

// action is what the loop does with a step.
type action int

const (
	actConsume action = iota
	actRetry
	actStop
)

// decide maps a step to the loop's next action. attempts is the number of
// throttling failures seen before this step.
func decide(kind scholar.StepKind, attempts, maxRetries int) (action, Outcome) {
	switch kind {
	case scholar.StepItem:
		return actConsume, ""
	case scholar.StepExhausted:
		return actStop, OutcomeExhausted
	case scholar.StepThrottled:
		if attempts+1 > maxRetries {
			return actStop, OutcomeRetriesExhausted
		}
		return actRetry, ""
	default:
		return actStop, OutcomeFatal
	}
}

// Run searches for req starting on session and returns the collected
// records. Every record satisfies req.StartYear <= Year <= req.EndYear.
// Throttled searches are reopened on a new session at the number of items
// visited so far.
func (h *Harvester) Run(ctx context.Context, session *proxy.Session, req Request) Result {
	res := Result{Session: session}
	if session == nil {
		res.Outcome, res.Err = OutcomeFatal, fmt.Errorf("no session")
		return res
	}
	if err := req.Validate(); err != nil {
		res.Outcome, res.Err = OutcomeFatal, err
		return res
	}
	if req.EmptyRange() {
		h.logger.Warn("start year is after end year, no record can match; skipping search",
			"start_year", req.StartYear, "end_year", req.EndYear)
		res.Outcome = OutcomeExhausted
		return res
	}
	q := req.query()

	for {
		h.logger.Info("searching",
			"attempt", res.Attempts+1, "max_attempts", req.MaxRetries+1,
			"keywords", req.Keywords, "start_year", req.StartYear, "end_year", req.EndYear,
			"start_index", res.Visited, "session", res.Session.String())

		pager := h.provider.Open(res.Session.Client, q, res.Visited)
		step := h.consume(ctx, pager, req, &res)
		if res.Outcome != "" {
			return res
		}

		act, outcome := decide(step.Kind, res.Attempts, req.MaxRetries)
		switch act {
		case actStop:
			res.Outcome = outcome
			if outcome != OutcomeExhausted {
				res.Err = step.Err
			}
			if step.Kind == scholar.StepThrottled {
				res.Attempts++
				h.logger.Error("max retries exceeded, stopping search", "attempts", res.Attempts, "error", step.Err)
			} else if res.Err != nil {
				h.logger.Error("unexpected error, stopping search", "error", step.Err)
			} else {
				h.logger.Info("no more results for this query", "collected", len(res.Records))
			}
			return res

		case actRetry:
			res.Attempts++
			h.logger.Warn("provider throttled the search, retrying with a new proxy",
				"attempt", res.Attempts, "start_index", res.Visited, "error", step.Err)

			s, err := h.proxies.Setup(ctx)
			if err != nil {
				h.logger.Error("failed to set up a new proxy, cannot continue", "error", err)
				res.Outcome, res.Err = OutcomeProxyFailed, err
				return res
			}
			res.Session = s

			if err := h.sleep(ctx, jitter(h.pacing.RetryMin, h.pacing.RetryMax)); err != nil {
				res.Outcome, res.Err = OutcomeFatal, err
				return res
			}
		}
	}
}

// consume pulls items until the pager stops or the run finishes. It returns
// the first non-item step; when the run finishes inside the page loop it
// sets res.Outcome instead.
func (h *Harvester) consume(ctx context.Context, pager scholar.Pager, req Request, res *Result) scholar.Step {
	for {
		step := pager.Next(ctx)
		if step.Kind != scholar.StepItem {
			return step
		}

		if err := h.sleep(ctx, jitter(h.pacing.ItemMin, h.pacing.ItemMax)); err != nil {
			res.Outcome, res.Err = OutcomeFatal, err
			return step
		}

		rec, err := MapRecord(step.Item)
		res.Visited++
		if err != nil {
			res.Skipped++
			h.logger.Warn("skipping entry with invalid publication year",
				"pub_year", step.Item.Bib.PubYear, "title", step.Item.Bib.Title)
			continue
		}
		if !InRange(rec, req) {
			continue
		}

		res.Records = append(res.Records, rec)
		if n := len(res.Records); n%10 == 0 {
			h.logger.Info("progress", "collected", n, "visited", res.Visited)
		}
		if req.MaxResults > 0 && len(res.Records) >= req.MaxResults {
			h.logger.Info("reached maximum requested results, stopping search", "max_results", req.MaxResults)
			res.Outcome = OutcomeMaxResults
			return step
		}
	}
}

// Summary renders a one-line description of the result.
func (r Result) Summary() string {
	s := fmt.Sprintf("%s: %d records collected, %d visited, %d skipped, %d throttled attempts",
		r.Outcome, len(r.Records), r.Visited, r.Skipped, r.Attempts)
	if r.Err != nil {
		s += " (" + r.Err.Error() + ")"
	}
	return s
}
