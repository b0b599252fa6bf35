// Package catalog provides the hardware component catalog: the item model,
// loading from static sources, and the exact-match search used by ranking.
package catalog

import (
	"errors"
	"fmt"
)

// Item is a single catalog entry. Items are loaded once and never mutated.
type Item struct {
	ID           string             `json:"id" yaml:"id"`
	Component    string             `json:"component" yaml:"component"`
	Vendor       string             `json:"vendor" yaml:"vendor"`
	Price        float64            `json:"price" yaml:"price"`
	LeadTimeDays int                `json:"lead_time_days" yaml:"lead_time_days"`
	Reliability  float64            `json:"reliability" yaml:"reliability"`
	Specs        map[string]float64 `json:"specs,omitempty" yaml:"specs,omitempty"`
}

// ErrInvalidItem is returned when a loaded item fails validation.
var ErrInvalidItem = errors.New("invalid catalog item")

// Validate checks the item's invariants.
func (i Item) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidItem)
	}
	if i.Price < 0 {
		return fmt.Errorf("%w: %s has negative price %v", ErrInvalidItem, i.ID, i.Price)
	}
	if i.LeadTimeDays < 0 {
		return fmt.Errorf("%w: %s has negative lead time %d", ErrInvalidItem, i.ID, i.LeadTimeDays)
	}
	if i.Reliability < 0 || i.Reliability > 1 {
		return fmt.Errorf("%w: %s reliability %v outside [0, 1]", ErrInvalidItem, i.ID, i.Reliability)
	}
	return nil
}

// CloneSpecs returns a copy of the spec map so callers can hold it past the item.
func (i Item) CloneSpecs() map[string]float64 {
	if i.Specs == nil {
		return nil
	}
	out := make(map[string]float64, len(i.Specs))
	for k, v := range i.Specs {
		out[k] = v
	}
	return out
}

// MeetsSpecs reports whether every filter key is present with a value >= the
// threshold. A missing key fails.
func (i Item) MeetsSpecs(filters map[string]float64) bool {
	for key, min := range filters {
		v, ok := i.Specs[key]
		if !ok || v < min {
			return false
		}
	}
	return true
}
