// Package procurement provides the procurement decision engine. It ranks
// catalog candidates for a request, optionally investigates the shortlist,
// and asks a text generator to justify the selection.
//
// The ranking stages run strictly in order:
//
//	validate -> search -> hard-constraint filter -> empty check -> bounds -> score -> rank -> select
//
// Hard constraints are applied before bounds are computed, so scores are only
// comparable within a single request.
package procurement

import (
	"procurement-engine/decision/catalog"
	"procurement-engine/decision/policy"
	"procurement-engine/decision/scoring"
	"procurement-engine/decision/tools"
)

// DefaultTopK is used when Options.TopK is zero.
const DefaultTopK = 3

// Searcher is the catalog capability the pipeline needs.
type Searcher interface {
	Search(component string, specFilters map[string]float64) []catalog.Item
}

// Request describes what to buy.
type Request struct {
	Component          string                   `json:"component" yaml:"component"`
	SpecFilters        map[string]float64       `json:"spec_filters,omitempty" yaml:"spec_filters,omitempty"`
	MaxCost            *float64                 `json:"max_cost,omitempty" yaml:"max_cost,omitempty" validate:"omitempty,gte=0"`
	LatestDeliveryDays *int                     `json:"latest_delivery_days,omitempty" yaml:"latest_delivery_days,omitempty" validate:"omitempty,gte=0"`
	Weights            *scoring.WeightOverrides `json:"weights,omitempty" yaml:"weights,omitempty"`

	// VendorConstraints are applied after ranking and never change the
	// ranked list itself.
	VendorConstraints *Constraints `json:"vendor_constraints,omitempty" yaml:"vendor_constraints,omitempty"`
}

// Options control a single Plan call.
type Options struct {
	TopK        int    // 0 means DefaultTopK
	Investigate bool   // run price_history and availability on the shortlist
	Provider    string // text generator name, "mock" by default
	APIKey      string // credential for Provider, env fallback applies
}

// ScoredItem is a request-local view of a catalog item. It carries its own
// copy of the specs so nothing attached here reaches the shared catalog.
type ScoredItem struct {
	ID           string             `json:"id"`
	Component    string             `json:"component"`
	Vendor       string             `json:"vendor"`
	Price        float64            `json:"price"`
	LeadTimeDays int                `json:"lead_time_days"`
	Reliability  float64            `json:"reliability"`
	Specs        map[string]float64 `json:"specs,omitempty"`
	Score        float64            `json:"score"`
	Tools        *tools.Findings    `json:"tools,omitempty"`
}

// NewScoredItem copies item and attaches score.
func NewScoredItem(item catalog.Item, score float64) ScoredItem {
	return ScoredItem{
		ID:           item.ID,
		Component:    item.Component,
		Vendor:       item.Vendor,
		Price:        item.Price,
		LeadTimeDays: item.LeadTimeDays,
		Reliability:  item.Reliability,
		Specs:        item.CloneSpecs(),
		Score:        score,
	}
}

// TraceEntry records one pipeline step.
type TraceEntry struct {
	Step    string `json:"step"`
	Status  string `json:"status,omitempty"`
	Tool    string `json:"tool,omitempty"`
	Input   any    `json:"input,omitempty"`
	Result  string `json:"result,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Trace statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics are collected for every Plan call, including failed ones.
// Latencies are in seconds.
type Metrics struct {
	StepLatencies            map[string]float64 `json:"step_latencies"`
	TotalCandidates          int                `json:"total_candidates"`
	CandidatesAfterFiltering int                `json:"candidates_after_filtering"`
	TopKSelected             int                `json:"top_k_selected"`
	ToolsCalled              int                `json:"tools_called"`
	TotalLatency             float64            `json:"total_latency"`
}

// Result is the full output of a Plan call.
type Result struct {
	RequestID          string          `json:"request_id"`
	Request            Request         `json:"request"`
	Candidates         []ScoredItem    `json:"candidates"`
	Selected           ScoredItem      `json:"selected"`
	Justification      string          `json:"justification"`
	JustificationError string          `json:"justification_error,omitempty"`
	Bounds             scoring.Bounds  `json:"bounds"`
	Weights            scoring.Weights `json:"weights"`

	// ConstrainedCandidates is the post-filtered view of Candidates, set
	// only when the request carried vendor constraints.
	ConstrainedCandidates []ScoredItem `json:"constrained_candidates,omitempty"`

	Policy  *policy.Result `json:"policy,omitempty"`
	Trace   []TraceEntry   `json:"trace"`
	Metrics Metrics        `json:"metrics"`
}
