package procurement

import (
	"fmt"
	"sort"
	"time"

	"procurement-engine/decision/catalog"
	"procurement-engine/decision/scoring"
)

// Trace step names.
const (
	StepCatalogSearch       = "catalog_search"
	StepConstraintFiltering = "constraint_filtering"
	StepComputeBounds       = "compute_bounds"
	StepScoring             = "scoring"
	StepRanking             = "ranking"
	StepToolCall            = "tool_call"
	StepInvestigation       = "investigation"
	StepJustification       = "llm_justification"
	StepVendorConstraints   = "vendor_constraints"
	StepPolicy              = "policy_evaluation"
)

// run accumulates trace and metrics for one Plan call.
type run struct {
	start   time.Time
	trace   []TraceEntry
	metrics Metrics
}

func newRun() *run {
	return &run{
		start:   time.Now(),
		metrics: Metrics{StepLatencies: make(map[string]float64)},
	}
}

func (r *run) add(e TraceEntry) {
	if e.Status == "" {
		e.Status = StatusSuccess
	}
	r.trace = append(r.trace, e)
}

func (r *run) observe(step string, since time.Time) {
	r.metrics.StepLatencies[step] = time.Since(since).Seconds()
}

func (r *run) finish() {
	r.metrics.TotalLatency = time.Since(r.start).Seconds()
}

// fail stamps the trace and metrics collected so far onto err.
func (r *run) fail(err *Error) *Error {
	r.finish()
	m := r.metrics
	err.Trace = r.trace
	err.Metrics = &m
	return err
}

// ranking is the output of the pure ranking stages.
type ranking struct {
	top     []ScoredItem
	bounds  scoring.Bounds
	weights scoring.Weights
}

// Rank runs the ranking stages alone and returns the top-K candidates, best
// first. It never touches the items held by store.
func Rank(store Searcher, req Request, topK int) ([]ScoredItem, error) {
	rk, err := rank(store, req, topK, newRun())
	if err != nil {
		return nil, err
	}
	return rk.top, nil
}

func rank(store Searcher, req Request, topK int, r *run) (*ranking, error) {
	// Step 1: Validate
	if req.Component == "" {
		return nil, r.fail(invalidRequest("no component specified"))
	}
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK < 1 {
		return nil, r.fail(invalidRequest(fmt.Sprintf("top_k must be at least 1, got %d", topK)))
	}

	// Step 2: Search
	started := time.Now()
	candidates := store.Search(req.Component, req.SpecFilters)
	r.observe(StepCatalogSearch, started)
	r.metrics.TotalCandidates = len(candidates)
	r.add(TraceEntry{
		Step:   StepCatalogSearch,
		Input:  map[string]any{"component": req.Component, "spec_filters": req.SpecFilters},
		Result: fmt.Sprintf("found %d candidates", len(candidates)),
	})

	// Step 3: Hard-constraint filter
	searched := len(candidates)
	candidates = applyHardConstraints(candidates, req)
	if len(candidates) < searched {
		r.add(TraceEntry{
			Step:   StepConstraintFiltering,
			Input:  map[string]any{"max_cost": req.MaxCost, "latest_delivery_days": req.LatestDeliveryDays},
			Result: fmt.Sprintf("filtered from %d to %d candidates", searched, len(candidates)),
		})
	}

	// Step 4: Empty check
	if len(candidates) == 0 {
		err := &Error{
			Kind:     KindNoCandidates,
			Message:  "no candidates match constraints",
			Searched: searched,
			Filtered: 0,
		}
		return nil, r.fail(err)
	}

	// Step 5: Bounds
	started = time.Now()
	bounds, err := scoring.ComputeBounds(candidates)
	if err != nil {
		return nil, r.fail(&Error{Kind: KindInternal, Message: "failed to compute bounds", Err: err})
	}
	r.add(TraceEntry{
		Step: StepComputeBounds,
		Result: fmt.Sprintf("price: [%v, %v], lead_time: [%d, %d]",
			bounds.PriceMin, bounds.PriceMax, bounds.LeadMin, bounds.LeadMax),
	})

	// Step 6: Score into request-local copies
	weights := req.Weights.Resolve()
	scored := make([]ScoredItem, 0, len(candidates))
	for _, item := range candidates {
		scored = append(scored, NewScoredItem(item, scoring.Score(item, weights, bounds)))
	}
	r.observe(StepScoring, started)
	r.metrics.CandidatesAfterFiltering = len(scored)
	r.add(TraceEntry{
		Step:   StepScoring,
		Input:  weights,
		Result: fmt.Sprintf("scored %d candidates", len(scored)),
	})

	// Step 7: Rank, ties keep catalog order
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	r.metrics.TopKSelected = len(scored)
	r.add(TraceEntry{
		Step:   StepRanking,
		Result: fmt.Sprintf("selected top %d candidates", len(scored)),
	})

	return &ranking{top: scored, bounds: bounds, weights: weights}, nil
}

func applyHardConstraints(items []catalog.Item, req Request) []catalog.Item {
	if req.MaxCost == nil && req.LatestDeliveryDays == nil {
		return items
	}

	kept := make([]catalog.Item, 0, len(items))
	for _, item := range items {
		if req.MaxCost != nil && item.Price > *req.MaxCost {
			continue
		}
		if req.LatestDeliveryDays != nil && item.LeadTimeDays > *req.LatestDeliveryDays {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}
