package procurement

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"procurement-engine/decision/tools"
	"procurement-engine/internal/metrics"
)

// investigate runs both tools for every candidate. Lookups run concurrently
// but findings and trace entries follow candidate order.
func (e *Engine) investigate(ctx context.Context, candidates []ScoredItem, r *run) error {
	started := time.Now()
	asOf := e.now()
	findings := make([]tools.Findings, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.investigationLimit)
	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ph := tools.LookupPriceHistoryAt(cand.ID, asOf)
			av := tools.LookupAvailability(cand.Vendor)
			findings[i] = tools.Findings{PriceHistory: &ph, Availability: &av}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range candidates {
		f := findings[i]
		candidates[i].Tools = &f

		r.add(TraceEntry{
			Step:    StepToolCall,
			Tool:    tools.ToolPriceHistory,
			Input:   candidates[i].ID,
			Summary: f.PriceHistory.Summary(),
		})
		r.add(TraceEntry{
			Step:    StepToolCall,
			Tool:    tools.ToolAvailability,
			Input:   candidates[i].Vendor,
			Summary: f.Availability.Summary(),
		})
		r.metrics.ToolsCalled += 2
		metrics.RecordToolCall(tools.ToolPriceHistory)
		metrics.RecordToolCall(tools.ToolAvailability)
	}

	r.observe(StepInvestigation, started)
	r.add(TraceEntry{
		Step:   StepInvestigation,
		Result: fmt.Sprintf("called tools for %d candidates", len(candidates)),
	})
	return nil
}
