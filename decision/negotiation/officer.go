// Package negotiation provides the discussion handlers that run around a
// procurement selection: a deterministic officer review, a vendor agent
// backed by a text generator, and a multi-role cost optimization review.
// None of them keep state between calls.
package negotiation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"procurement-engine/decision/procurement"
)

// Verdict is the officer's decision on a selection.
type Verdict string

const (
	VerdictApproved               Verdict = "APPROVED"
	VerdictApprovedWithConditions Verdict = "APPROVED_WITH_CONDITIONS"
	VerdictEscalated              Verdict = "ESCALATED"
)

// comfortableShare of the budget below which a price is approved outright.
var comfortableShare = decimal.NewFromFloat(0.8)

// Review is the outcome of an officer negotiation.
type Review struct {
	Transcript []string `json:"transcript"`
	Verdict    Verdict  `json:"verdict"`
	ItemID     string   `json:"item_id"`
	Vendor     string   `json:"vendor"`
	Price      float64  `json:"price"`
}

// Negotiate simulates the agent presenting the selection to a procurement
// officer. Prices up to 80% of max_cost are approved, up to max_cost are
// approved with conditions, anything above is escalated. Without max_cost
// the budget is unlimited.
func Negotiate(selected procurement.ScoredItem, req procurement.Request) Review {
	itemID := orDefault(selected.ID, "Unknown")
	vendor := orDefault(selected.Vendor, "Unknown")
	price := decimal.NewFromFloat(selected.Price)

	transcript := []string{
		fmt.Sprintf("Agent: I recommend %s from %s at $%s. It has the best overall score considering price, lead time, and reliability.",
			itemID, vendor, price.String()),
	}

	var verdict Verdict
	switch {
	case req.MaxCost == nil:
		verdict = VerdictApproved
		transcript = append(transcript,
			fmt.Sprintf("Officer: No budget ceiling was set. Price of $%s is accepted.", price.String()))

	case price.LessThanOrEqual(decimal.NewFromFloat(*req.MaxCost).Mul(comfortableShare)):
		verdict = VerdictApproved
		transcript = append(transcript,
			fmt.Sprintf("Officer: Excellent choice. Price of $%s is well within budget (max: $%s). This gives us good cost flexibility.",
				price.String(), decimal.NewFromFloat(*req.MaxCost).String()))

	case price.LessThanOrEqual(decimal.NewFromFloat(*req.MaxCost)):
		verdict = VerdictApprovedWithConditions
		transcript = append(transcript,
			fmt.Sprintf("Officer: The price of $%s is at the edge of our budget (max: $%s). Can you verify reliability meets mission-critical needs?",
				price.String(), decimal.NewFromFloat(*req.MaxCost).String()),
			fmt.Sprintf("Agent: Reliability of %v is among the best available for this component. Lead time of %d days also allows buffer.",
				selected.Reliability, selected.LeadTimeDays))

	default:
		verdict = VerdictEscalated
		transcript = append(transcript,
			fmt.Sprintf("Officer: Price of $%s exceeds budget (max: $%s). This requires executive approval or we need to reconsider alternatives.",
				price.String(), decimal.NewFromFloat(*req.MaxCost).String()))
	}

	transcript = append(transcript, fmt.Sprintf("Officer: Procurement decision for %s is %s.", itemID, verdict))

	return Review{
		Transcript: transcript,
		Verdict:    verdict,
		ItemID:     itemID,
		Vendor:     vendor,
		Price:      selected.Price,
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
