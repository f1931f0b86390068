// Package chain implements the quote enrichment pipeline applied to each
// drained batch before aggregation: asset filtering, synthetic mid-price
// generation and terminal collection.
package chain

import (
	"context"

	"github.com/amirphl/candle-writer/internal/quote"
)

// Stage consumes one enriched quote and returns the quotes to forward to the
// next stage. Returning nothing drops the quote. The terminal stage writes to
// the chain's output accumulator instead of forwarding.
type Stage interface {
	Handle(ctx context.Context, q quote.Ext, out *[]quote.Ext) []quote.Ext
}

// Chain is a fixed, ordered sequence of stages driven by an explicit loop.
type Chain struct {
	stages []Stage
}

func New(stages ...Stage) *Chain {
	return &Chain{stages: stages}
}

// Run pushes every quote of the batch through the chain in order and returns
// the collected output. The batch is expected to be pre-sorted ascending by
// timestamp; mid quotes are emitted before their triggering quote, so the
// output is not guaranteed to stay globally sorted.
func (c *Chain) Run(ctx context.Context, batch []quote.Ext) []quote.Ext {
	out := make([]quote.Ext, 0, len(batch))
	for _, q := range batch {
		c.dispatch(ctx, 0, q, &out)
	}
	return out
}

func (c *Chain) dispatch(ctx context.Context, idx int, q quote.Ext, out *[]quote.Ext) {
	if idx >= len(c.stages) {
		return
	}
	for _, fwd := range c.stages[idx].Handle(ctx, q, out) {
		c.dispatch(ctx, idx+1, fwd, out)
	}
}
