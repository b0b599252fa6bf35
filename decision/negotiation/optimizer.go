package negotiation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"procurement-engine/decision/procurement"
)

// Savings shares applied to the current unit price.
var (
	vendorNegotiationShare = decimal.RequireFromString("0.20")
	specRelaxationShare    = decimal.RequireFromString("0.25")
	logisticsShare         = decimal.RequireFromString("0.10")
	hundred                = decimal.NewFromInt(100)
)

// unboundedDeliveryDays stands in for a missing latest_delivery_days.
const unboundedDeliveryDays = 999

// Role describes one participant in the optimization review.
type Role struct {
	Agent       string
	Description string
	strategy    func(item procurement.ScoredItem, req procurement.Request) string
}

// Contribution is one message in the optimization discussion.
type Contribution struct {
	Agent     string    `json:"agent"`
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Savings is the estimated cost reduction for one unit, rounded to cents.
type Savings struct {
	CurrentCost              decimal.Decimal `json:"current_cost"`
	VendorNegotiationSavings decimal.Decimal `json:"vendor_negotiation_savings"`
	SpecRelaxationSavings    decimal.Decimal `json:"spec_relaxation_savings"`
	LogisticsSavings         decimal.Decimal `json:"logistics_savings"`
	TotalPotentialSavings    decimal.Decimal `json:"total_potential_savings"`
	CostAfterOptimization    decimal.Decimal `json:"cost_after_optimization"`
}

// Optimization is the outcome of a cost optimization review.
type Optimization struct {
	SelectedItem     procurement.ScoredItem `json:"selected_item"`
	Discussion       []Contribution         `json:"discussion"`
	EstimatedSavings Savings                `json:"estimated_savings"`
	TotalLatency     float64                `json:"total_latency"`
}

// CostOptimizer runs a fixed four-role discussion about a selection followed
// by a summary. The output depends only on the item and request.
type CostOptimizer struct {
	roles []Role
	now   func() time.Time
}

// NewCostOptimizer creates an optimizer with the standard roles.
func NewCostOptimizer() *CostOptimizer {
	return &CostOptimizer{
		roles: []Role{
			{Agent: "Cost Analyst", Description: "Finds cheaper alternatives and identifies price opportunities", strategy: costAnalyst},
			{Agent: "Supply Chain Manager", Description: "Proposes bulk deals, long-term contracts, vendor negotiations", strategy: supplyChain},
			{Agent: "Requirements Engineer", Description: "Questions if specs can be relaxed to save costs", strategy: requirements},
			{Agent: "Logistics Officer", Description: "Optimizes delivery strategy to reduce expediting costs", strategy: logistics},
		},
		now: time.Now,
	}
}

// Roles lists the participating agents in speaking order.
func (o *CostOptimizer) Roles() []string {
	out := make([]string, len(o.roles))
	for i, r := range o.roles {
		out[i] = r.Agent
	}
	return out
}

// Optimize runs the discussion for item.
func (o *CostOptimizer) Optimize(item procurement.ScoredItem, req procurement.Request) Optimization {
	start := o.now()

	discussion := make([]Contribution, 0, len(o.roles)+1)
	for _, r := range o.roles {
		discussion = append(discussion, Contribution{
			Agent:     r.Agent,
			Role:      r.Agent + " - " + r.Description,
			Message:   r.strategy(item, req),
			Timestamp: o.now(),
		})
	}
	discussion = append(discussion, Contribution{
		Agent:     "Optimization Summary",
		Role:      "Multi-Agent Consensus",
		Message:   summary(item),
		Timestamp: o.now(),
	})

	return Optimization{
		SelectedItem:     item,
		Discussion:       discussion,
		EstimatedSavings: EstimateSavings(item.Price),
		TotalLatency:     o.now().Sub(start).Seconds(),
	}
}

// EstimateSavings splits the potential savings on price by lever. The total
// is the sum of the levers and the remainder is what is left to pay.
func EstimateSavings(price float64) Savings {
	current := decimal.NewFromFloat(price)
	vendor := current.Mul(vendorNegotiationShare).Round(2)
	spec := current.Mul(specRelaxationShare).Round(2)
	logi := current.Mul(logisticsShare).Round(2)
	total := current.Mul(vendorNegotiationShare.Add(specRelaxationShare).Add(logisticsShare)).Round(2)

	return Savings{
		CurrentCost:              current,
		VendorNegotiationSavings: vendor,
		SpecRelaxationSavings:    spec,
		LogisticsSavings:         logi,
		TotalPotentialSavings:    total,
		CostAfterOptimization:    current.Sub(total).Round(2),
	}
}

func costAnalyst(item procurement.ScoredItem, _ procurement.Request) string {
	price := decimal.NewFromFloat(item.Price)
	potential := price.Mul(decimal.NewFromInt(15)).Div(hundred)

	return fmt.Sprintf("I've analyzed the pricing. The current selection at $%s shows potential for $%s in savings. ", price.String(), potential.StringFixed(0)) +
		"I recommend comparing with at least 2-3 other vendors to leverage competitive pricing. " +
		"If we negotiate volume discounts (10+ units), we could reduce the unit cost by 10-20%."
}

func supplyChain(item procurement.ScoredItem, _ procurement.Request) string {
	return fmt.Sprintf("From a supply chain perspective, %s is a reliable partner for %s. ",
		orDefault(item.Vendor, "Unknown"), orDefault(item.Component, "unknown")) +
		"I propose a long-term supply agreement for 50+ units over 12 months, " +
		"which typically yields 15-25% volume discounts. Additionally, we should consolidate " +
		"our orders with this vendor to get preferred pricing on complementary components."
}

func requirements(item procurement.ScoredItem, _ procurement.Request) string {
	specs := "{}"
	if len(item.Specs) > 0 {
		if raw, err := json.Marshal(item.Specs); err == nil {
			specs = string(raw)
		}
	}

	return fmt.Sprintf("Let me challenge the specifications. For %s, do we really need all the specs we defined? ", orDefault(item.Component, "component")) +
		fmt.Sprintf("Current specs: %s. ", specs) +
		"I suggest revisiting the 'nice-to-have' requirements. Relaxing any non-critical spec by 10-15% " +
		"could open up cheaper alternatives from tier-2 vendors at 20-30% lower cost."
}

func logistics(item procurement.ScoredItem, req procurement.Request) string {
	deadline := unboundedDeliveryDays
	if req.LatestDeliveryDays != nil {
		deadline = *req.LatestDeliveryDays
	}

	relation := "within"
	if item.LeadTimeDays > deadline {
		relation = "outside"
	}

	return fmt.Sprintf("On the logistics side, the current %d-day lead time is %s our %d-day requirement. ", item.LeadTimeDays, relation, deadline) +
		fmt.Sprintf("However, if we relax the deadline to %d days, we can shift to economy shipping and ", item.LeadTimeDays+10) +
		"consolidate shipments, saving approximately 8-12% on logistics costs. " +
		"Alternatively, we could negotiate free expedited shipping with volume commitments."
}

func summary(item procurement.ScoredItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on our multi-agent analysis for %s ($%s), ", orDefault(item.ID, "Unknown"), decimal.NewFromFloat(item.Price).String())
	b.WriteString("we've identified the following cost optimization opportunities:\n\n")
	b.WriteString("1. Vendor negotiation & volume discounts: 15-25% savings potential\n")
	b.WriteString("2. Specification relaxation: 20-30% cost reduction via alternative vendors\n")
	b.WriteString("3. Logistics optimization: 8-12% savings on delivery costs\n")
	b.WriteString("4. Long-term supply agreements: 15-25% annual savings\n\n")
	b.WriteString("Recommended action: Negotiate with current vendor for volume discounts while evaluating ")
	b.WriteString("alternative vendors that meet relaxed specifications.")
	return b.String()
}
