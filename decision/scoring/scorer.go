package scoring

import (
	"procurement-engine/decision/catalog"
	"procurement-engine/pkg/normalize"
)

// Breakdown shows how each criterion contributed to a score.
type Breakdown struct {
	NormalizedPrice    float64 `json:"normalized_price"`
	NormalizedLeadTime float64 `json:"normalized_lead_time"`
	Reliability        float64 `json:"reliability"`
	Score              float64 `json:"score"`
}

// Score computes the weighted score of item within bounds, clamped to [0, 1].
func Score(item catalog.Item, w Weights, b Bounds) float64 {
	return Explain(item, w, b).Score
}

// Explain computes the score along with its normalized components.
//
// Price and lead time are inverted min-max normalized (cheapest and fastest
// score 1). Reliability is used as-is.
func Explain(item catalog.Item, w Weights, b Bounds) Breakdown {
	np := normalize.InvertedMinMax(item.Price, b.PriceMin, b.PriceMax)
	nl := normalize.InvertedMinMax(float64(item.LeadTimeDays), float64(b.LeadMin), float64(b.LeadMax))

	raw := normalize.WeightedSum(
		[]float64{np, nl, item.Reliability},
		[]float64{w.Price, w.LeadTime, w.Reliability},
	)

	return Breakdown{
		NormalizedPrice:    np,
		NormalizedLeadTime: nl,
		Reliability:        item.Reliability,
		Score:              normalize.Clamp(raw),
	}
}
