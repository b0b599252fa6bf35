package catalog

import (
	"fmt"
	"sort"
)

// Catalog is an in-memory, read-only collection of items.
// It is safe for concurrent use once constructed.
type Catalog struct {
	items  []Item
	byID   map[string]int
	oracle SimilarityOracle
}

// ComponentSummary describes one component type in the catalog.
type ComponentSummary struct {
	Component  string     `json:"component"`
	Count      int        `json:"count"`
	Vendors    []string   `json:"vendors"`
	PriceRange [2]float64 `json:"price_range"`
}

// VendorSummary describes one vendor in the catalog.
type VendorSummary struct {
	Vendor     string   `json:"vendor"`
	ItemCount  int      `json:"item_count"`
	Components []string `json:"components"`
}

// New validates items and builds a catalog that keeps their order.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{
		items:  make([]Item, 0, len(items)),
		byID:   make(map[string]int, len(items)),
		oracle: HashEmbedding{Dim: DefaultEmbeddingDim},
	}

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[item.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidItem, item.ID)
		}
		c.byID[item.ID] = len(c.items)
		c.items = append(c.items, item)
	}

	return c, nil
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.items)
}

// Items returns a copy of all items in catalog order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Search returns items whose component matches exactly and which satisfy
// every spec filter. Catalog order is preserved.
func (c *Catalog) Search(component string, specFilters map[string]float64) []Item {
	var results []Item
	for _, item := range c.items {
		if item.Component != component {
			continue
		}
		if len(specFilters) > 0 && !item.MeetsSpecs(specFilters) {
			continue
		}
		results = append(results, item)
	}
	return results
}

// Get looks up an item by id.
func (c *Catalog) Get(id string) (Item, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Item{}, false
	}
	return c.items[idx], true
}

// ListVendors returns the distinct non-empty vendor names, sorted.
func (c *Catalog) ListVendors() []string {
	seen := make(map[string]struct{})
	for _, item := range c.items {
		if item.Vendor == "" {
			continue
		}
		seen[item.Vendor] = struct{}{}
	}
	return sortedKeys(seen)
}

// Components summarizes each component type, sorted by name.
func (c *Catalog) Components() []ComponentSummary {
	type acc struct {
		count    int
		vendors  map[string]struct{}
		min, max float64
	}
	byComponent := make(map[string]*acc)

	for _, item := range c.items {
		a, ok := byComponent[item.Component]
		if !ok {
			a = &acc{vendors: make(map[string]struct{}), min: item.Price, max: item.Price}
			byComponent[item.Component] = a
		}
		a.count++
		if item.Vendor != "" {
			a.vendors[item.Vendor] = struct{}{}
		}
		if item.Price < a.min {
			a.min = item.Price
		}
		if item.Price > a.max {
			a.max = item.Price
		}
	}

	out := make([]ComponentSummary, 0, len(byComponent))
	for name, a := range byComponent {
		out = append(out, ComponentSummary{
			Component:  name,
			Count:      a.count,
			Vendors:    sortedKeys(a.vendors),
			PriceRange: [2]float64{a.min, a.max},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Component < out[j].Component })
	return out
}

// VendorSummaries summarizes each vendor, sorted by name.
func (c *Catalog) VendorSummaries() []VendorSummary {
	counts := make(map[string]int)
	components := make(map[string]map[string]struct{})

	for _, item := range c.items {
		if item.Vendor == "" {
			continue
		}
		counts[item.Vendor]++
		if components[item.Vendor] == nil {
			components[item.Vendor] = make(map[string]struct{})
		}
		components[item.Vendor][item.Component] = struct{}{}
	}

	out := make([]VendorSummary, 0, len(counts))
	for vendor, n := range counts {
		out = append(out, VendorSummary{
			Vendor:     vendor,
			ItemCount:  n,
			Components: sortedKeys(components[vendor]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Vendor < out[j].Vendor })
	return out
}

// ByComponent returns items for one component, or all items when component is empty.
func (c *Catalog) ByComponent(component string) []Item {
	if component == "" {
		return c.Items()
	}
	return c.Search(component, nil)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
