// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"errors"
	"fmt"
)

// fetchPage returns the results starting at offset and whether more may
// follow. An empty page ends the stream.
type fetchPage func(ctx context.Context, offset int) (items []Item, more bool, err error)

// pagedCursor adapts a page fetcher to the one-item-at-a-time Pager.
type pagedCursor struct {
	fetch  fetchPage
	offset int
	buf    []Item
	more   bool
	final  *Step
}

func newPagedCursor(start int, fetch fetchPage) *pagedCursor {
	return &pagedCursor{fetch: fetch, offset: start, more: true}
}

// Next implements Pager.
func (c *pagedCursor) Next(ctx context.Context) Step {
	if c.final != nil {
		return *c.final
	}
	if len(c.buf) == 0 {
		if !c.more {
			return c.finish(Step{Kind: StepExhausted})
		}
		if err := ctx.Err(); err != nil {
			return c.finish(Step{Kind: StepFatal, Err: err})
		}
		items, more, err := c.fetch(ctx, c.offset)
		if err != nil {
			return c.finish(classify(err))
		}
		if len(items) == 0 {
			return c.finish(Step{Kind: StepExhausted})
		}
		c.buf, c.more = items, more
	}

	it := c.buf[0]
	c.buf = c.buf[1:]
	c.offset++
	return Step{Kind: StepItem, Item: it}
}

func (c *pagedCursor) finish(s Step) Step {
	c.final = &s
	return s
}

// classify maps a fetch error to its step kind.
func classify(err error) Step {
	if errors.Is(err, ErrThrottled) {
		return Step{Kind: StepThrottled, Err: err}
	}
	return Step{Kind: StepFatal, Err: err}
}

// requestError wraps a failed round trip. A request that never got a
// response through the session's egress path counts as throttled so the
// search is retried on a new proxy; a cancelled context stays fatal.
func requestError(ctx context.Context, provider string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	return fmt.Errorf("%w: %s request: %v", ErrThrottled, provider, err)
}
