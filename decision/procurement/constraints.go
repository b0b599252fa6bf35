package procurement

// Constraints are caller-supplied vendor business rules applied after
// ranking. They filter and reorder but never rescore.
type Constraints struct {
	ExcludedVendors  []string `json:"excluded_vendors,omitempty" yaml:"excluded_vendors,omitempty"`
	PreferredVendors []string `json:"preferred_vendors,omitempty" yaml:"preferred_vendors,omitempty"`
	MinReliability   *float64 `json:"min_reliability,omitempty" yaml:"min_reliability,omitempty" validate:"omitempty,gte=0,lte=1"`
	MaxLeadTime      *int     `json:"max_lead_time,omitempty" yaml:"max_lead_time,omitempty" validate:"omitempty,gte=0"`
}

// IsZero reports whether no rule is set.
func (c *Constraints) IsZero() bool {
	return c == nil ||
		(len(c.ExcludedVendors) == 0 && len(c.PreferredVendors) == 0 &&
			c.MinReliability == nil && c.MaxLeadTime == nil)
}

// ApplyConstraints drops candidates from excluded vendors, below
// MinReliability or above MaxLeadTime, then moves preferred vendors to the
// front with a stable partition. The input slice is not modified; with no
// rules set it is returned as is.
func ApplyConstraints(candidates []ScoredItem, c *Constraints) []ScoredItem {
	if c.IsZero() {
		return candidates
	}

	excluded := toSet(c.ExcludedVendors)
	preferred := toSet(c.PreferredVendors)

	var first, rest []ScoredItem
	for _, cand := range candidates {
		if _, skip := excluded[cand.Vendor]; skip {
			continue
		}
		if c.MinReliability != nil && cand.Reliability < *c.MinReliability {
			continue
		}
		if c.MaxLeadTime != nil && cand.LeadTimeDays > *c.MaxLeadTime {
			continue
		}
		if _, ok := preferred[cand.Vendor]; ok {
			first = append(first, cand)
		} else {
			rest = append(rest, cand)
		}
	}

	out := make([]ScoredItem, 0, len(first)+len(rest))
	out = append(out, first...)
	return append(out, rest...)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
