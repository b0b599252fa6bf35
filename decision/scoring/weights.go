// Package scoring turns raw item attributes into a comparable [0, 1] score.
// Scores are only comparable within one candidate set because price and lead
// time are normalized against that set's bounds.
package scoring

import "fmt"

// Default weight per criterion.
const (
	DefaultPriceWeight       = 0.4
	DefaultLeadTimeWeight    = 0.3
	DefaultReliabilityWeight = 0.3
)

// Weights are the resolved multipliers for each criterion. They need not sum
// to 1; the score is a weighted sum, not an average.
type Weights struct {
	Price       float64 `json:"price"`
	LeadTime    float64 `json:"lead_time"`
	Reliability float64 `json:"reliability"`
}

// DefaultWeights returns {0.4, 0.3, 0.3}.
func DefaultWeights() Weights {
	return Weights{
		Price:       DefaultPriceWeight,
		LeadTime:    DefaultLeadTimeWeight,
		Reliability: DefaultReliabilityWeight,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Price + w.LeadTime + w.Reliability
}

func (w Weights) String() string {
	return fmt.Sprintf("price=%.2f lead_time=%.2f reliability=%.2f", w.Price, w.LeadTime, w.Reliability)
}

// WeightOverrides is the caller-facing weight mapping. Any key left unset
// falls back to its default, not to zero.
type WeightOverrides struct {
	Price       *float64 `json:"price,omitempty" yaml:"price,omitempty" validate:"omitempty,gte=0"`
	LeadTime    *float64 `json:"lead_time,omitempty" yaml:"lead_time,omitempty" validate:"omitempty,gte=0"`
	Reliability *float64 `json:"reliability,omitempty" yaml:"reliability,omitempty" validate:"omitempty,gte=0"`
}

// Resolve fills unset keys from DefaultWeights. A nil receiver yields the defaults.
func (o *WeightOverrides) Resolve() Weights {
	w := DefaultWeights()
	if o == nil {
		return w
	}
	if o.Price != nil {
		w.Price = *o.Price
	}
	if o.LeadTime != nil {
		w.LeadTime = *o.LeadTime
	}
	if o.Reliability != nil {
		w.Reliability = *o.Reliability
	}
	return w
}
