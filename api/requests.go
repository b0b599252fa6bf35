package api

import (
	"procurement-engine/decision/constraints"
	"procurement-engine/decision/negotiation"
	"procurement-engine/decision/procurement"
	"procurement-engine/decision/scoring"
)

// ProcurementRequest is the body of POST /api/procurement.
type ProcurementRequest struct {
	Component          string                   `json:"component" validate:"required"`
	SpecFilters        map[string]float64       `json:"spec_filters,omitempty"`
	MaxCost            *float64                 `json:"max_cost,omitempty" validate:"omitempty,gte=0"`
	LatestDeliveryDays *int                     `json:"latest_delivery_days,omitempty" validate:"omitempty,gte=0"`
	Weights            *scoring.WeightOverrides `json:"weights,omitempty"`
	VendorConstraints  *procurement.Constraints `json:"vendor_constraints,omitempty"`

	TopK        *int   `json:"top_k,omitempty" validate:"omitempty,gte=1"`
	Investigate bool   `json:"investigate"`
	LLMProvider string `json:"llm_provider,omitempty"`
	APIKey      string `json:"api_key,omitempty"`
}

func (r ProcurementRequest) plan() (procurement.Request, procurement.Options) {
	opts := procurement.Options{
		Investigate: r.Investigate,
		Provider:    r.LLMProvider,
		APIKey:      r.APIKey,
	}
	if r.TopK != nil {
		opts.TopK = *r.TopK
	}
	return procurement.Request{
		Component:          r.Component,
		SpecFilters:        r.SpecFilters,
		MaxCost:            r.MaxCost,
		LatestDeliveryDays: r.LatestDeliveryDays,
		Weights:            r.Weights,
		VendorConstraints:  r.VendorConstraints,
	}, opts
}

// NegotiationRequest is the body of POST /api/negotiate and POST /api/optimize.
type NegotiationRequest struct {
	SelectedItem *procurement.ScoredItem `json:"selected_item" validate:"required"`
	Request      procurement.Request     `json:"request"`
}

// VendorNegotiationRequest is the body of POST /api/negotiate/vendor. An
// empty message asks for the vendor's opening position.
type VendorNegotiationRequest struct {
	SelectedItem *procurement.ScoredItem `json:"selected_item" validate:"required"`
	Request      procurement.Request     `json:"request"`
	Message      string                  `json:"message,omitempty"`
	Conversation []negotiation.Message   `json:"conversation,omitempty"`
	LLMProvider  string                  `json:"llm_provider,omitempty"`
	APIKey       string                  `json:"api_key,omitempty"`
}

// ConstraintsRequest is the body of POST /api/vendor-constraints.
type ConstraintsRequest struct {
	RequestID   string                   `json:"request_id,omitempty"`
	Candidates  []procurement.ScoredItem `json:"candidates" validate:"required"`
	Constraints *procurement.Constraints `json:"constraints"`
}

// BulkConstraintsRequest is the body of POST /api/vendor-constraints/bulk.
type BulkConstraintsRequest struct {
	Requests []constraints.BulkRequest `json:"requests" validate:"required,min=1,dive"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error    string                   `json:"error"`
	Status   int                      `json:"status"`
	Searched *int                     `json:"searched,omitempty"`
	Filtered *int                     `json:"filtered,omitempty"`
	Trace    []procurement.TraceEntry `json:"trace,omitempty"`
	Metrics  *procurement.Metrics     `json:"metrics,omitempty"`
}

// VendorReply is the response of POST /api/negotiate/vendor.
type VendorReply struct {
	Reply        negotiation.Message   `json:"reply"`
	Conversation []negotiation.Message `json:"conversation"`
}
