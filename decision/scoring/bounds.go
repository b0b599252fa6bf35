package scoring

import (
	"errors"

	"procurement-engine/decision/catalog"
)

// ErrEmptyCandidateSet is returned when bounds are requested for no items.
var ErrEmptyCandidateSet = errors.New("cannot compute bounds of an empty candidate set")

// Bounds are the price and lead time extremes of one candidate set.
type Bounds struct {
	PriceMin float64 `json:"price_min"`
	PriceMax float64 `json:"price_max"`
	LeadMin  int     `json:"lead_min"`
	LeadMax  int     `json:"lead_max"`
}

// ComputeBounds returns min/max price and lead time across exactly items.
func ComputeBounds(items []catalog.Item) (Bounds, error) {
	if len(items) == 0 {
		return Bounds{}, ErrEmptyCandidateSet
	}

	b := Bounds{
		PriceMin: items[0].Price,
		PriceMax: items[0].Price,
		LeadMin:  items[0].LeadTimeDays,
		LeadMax:  items[0].LeadTimeDays,
	}
	for _, item := range items[1:] {
		if item.Price < b.PriceMin {
			b.PriceMin = item.Price
		}
		if item.Price > b.PriceMax {
			b.PriceMax = item.Price
		}
		if item.LeadTimeDays < b.LeadMin {
			b.LeadMin = item.LeadTimeDays
		}
		if item.LeadTimeDays > b.LeadMax {
			b.LeadMax = item.LeadTimeDays
		}
	}
	return b, nil
}
