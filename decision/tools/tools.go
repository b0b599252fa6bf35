// Package tools provides the deterministic investigation tools run against
// shortlisted candidates. Every output is derived from an MD5 hash of the
// lookup key, so the same key always yields the same record.
package tools

import (
	"crypto/md5"
	"fmt"
	"math/big"
	"math/rand"
	"time"
)

// Tool names as they appear in traces.
const (
	ToolPriceHistory = "price_history"
	ToolAvailability = "availability"
)

const (
	historyPoints      = 4
	historyStepDays    = 30
	priceVariation     = 200
	availabilitySample = 3
	leadVariation      = 5
)

// PricePoint is one monthly price observation.
type PricePoint struct {
	Date  string `json:"date"`
	Price int    `json:"price"`
}

// PriceHistory is the price_history tool output.
type PriceHistory struct {
	ItemID  string       `json:"item_id"`
	History []PricePoint `json:"history"`
}

// Availability is the availability tool output.
type Availability struct {
	Vendor          string  `json:"vendor"`
	AvgLeadTimeDays float64 `json:"avg_lead_time_days"`
	InStock         bool    `json:"in_stock"`
	LeadTimeSamples []int   `json:"lead_time_samples"`
}

// Findings groups tool output attached to a candidate.
type Findings struct {
	PriceHistory *PriceHistory `json:"price_history,omitempty"`
	Availability *Availability `json:"availability,omitempty"`
}

// LookupPriceHistory returns four monthly price points for itemID ending
// today (UTC).
func LookupPriceHistory(itemID string) PriceHistory {
	return LookupPriceHistoryAt(itemID, time.Now())
}

// LookupPriceHistoryAt is LookupPriceHistory anchored at asOf. Points are
// oldest first, 30 days apart, the newest 30 days before asOf.
func LookupPriceHistoryAt(itemID string, asOf time.Time) PriceHistory {
	h := keyHash(itemID)
	rng := rand.New(rand.NewSource(seedOf(h)))
	base := 1000 + int(mod(h, 10000))

	day := asOf.UTC().Truncate(24 * time.Hour)
	history := make([]PricePoint, 0, historyPoints)
	for i := 0; i < historyPoints; i++ {
		date := day.AddDate(0, 0, -historyStepDays*(historyPoints-i))
		history = append(history, PricePoint{
			Date:  date.Format("2006-01-02"),
			Price: base + between(rng, -priceVariation, priceVariation),
		})
	}

	return PriceHistory{ItemID: itemID, History: history}
}

// LookupAvailability returns a lead time estimate and stock flag for vendor.
func LookupAvailability(vendor string) Availability {
	h := keyHash(vendor)
	rng := rand.New(rand.NewSource(seedOf(h)))

	avg := 10 + int(mod(h, 30))
	samples := make([]int, 0, availabilitySample)
	for i := 0; i < availabilitySample; i++ {
		s := avg + between(rng, -leadVariation, leadVariation)
		if s < 1 {
			s = 1
		}
		samples = append(samples, s)
	}

	return Availability{
		Vendor:          vendor,
		AvgLeadTimeDays: float64(avg),
		InStock:         mod(h, 2) == 0,
		LeadTimeSamples: samples,
	}
}

// Last returns the newest price, or 0 for an empty history.
func (p PriceHistory) Last() int {
	if len(p.History) == 0 {
		return 0
	}
	return p.History[len(p.History)-1].Price
}

// Trend classifies the move from the oldest to the newest point. Moves
// within 2% of the oldest price are stable.
func (p PriceHistory) Trend() string {
	if len(p.History) < 2 {
		return "stable"
	}
	first := float64(p.History[0].Price)
	last := float64(p.Last())
	switch {
	case first == 0:
		return "stable"
	case (last-first)/first > 0.02:
		return "rising"
	case (first-last)/first > 0.02:
		return "falling"
	default:
		return "stable"
	}
}

// Summary is the one-line trace summary.
func (p PriceHistory) Summary() string {
	return fmt.Sprintf("last price=%d; trend=%s", p.Last(), p.Trend())
}

// Summary is the one-line trace summary.
func (a Availability) Summary() string {
	return fmt.Sprintf("avg_lead=%.1f days; in_stock=%t", a.AvgLeadTimeDays, a.InStock)
}

func keyHash(key string) *big.Int {
	sum := md5.Sum([]byte(key))
	return new(big.Int).SetBytes(sum[:])
}

func mod(h *big.Int, m int64) int64 {
	return new(big.Int).Mod(h, big.NewInt(m)).Int64()
}

// seedOf keeps the low 63 bits of h so the seed is a non-negative int64.
func seedOf(h *big.Int) int64 {
	mask := new(big.Int).SetUint64(1<<63 - 1)
	return new(big.Int).And(h, mask).Int64()
}

// between returns a uniform int in [lo, hi].
func between(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}
