package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const defaultReply = "Based on the analysis, this item provides the best value considering price, lead time, and reliability metrics."

var firstNumber = regexp.MustCompile(`\d+(\.\d+)?`)

// Mock is a deterministic Generator. For decision prompts it parses the item
// blocks (ID, Vendor, Price, Lead Time, Reliability lines), picks the best
// by a fixed heuristic and names it. Negotiation prompts get a canned vendor
// reply. Anything else gets a generic sentence.
type Mock struct{}

// NewMock creates a mock generator.
func NewMock() *Mock {
	return &Mock{}
}

type promptItem struct {
	id          string
	vendor      string
	price       float64
	leadTime    float64
	reliability float64
}

func (m *Mock) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "negotiation"):
		return vendorReply(prompt), nil
	case strings.Contains(lower, "choose between") || strings.Contains(lower, "selected"):
		return justify(parseItems(prompt)), nil
	default:
		return defaultReply, nil
	}
}

// heuristic mirrors the default weights against fixed scales of 10000 for
// price and 100 days for lead time.
func heuristic(it promptItem) float64 {
	priceScore := 1 - it.price/10000
	if priceScore < 0 {
		priceScore = 0
	}
	leadScore := 1 - it.leadTime/100
	if leadScore < 0 {
		leadScore = 0
	}
	return 0.4*priceScore + 0.3*leadScore + 0.3*it.reliability
}

func justify(items []promptItem) string {
	if len(items) == 0 {
		return "Unable to parse items from prompt."
	}

	best := items[0]
	bestScore := heuristic(best)
	for _, it := range items[1:] {
		if s := heuristic(it); s > bestScore {
			best, bestScore = it, s
		}
	}

	var factors []string
	if best.price != 0 {
		factors = append(factors, fmt.Sprintf("cost (%d)", int(best.price)))
	}
	if best.leadTime != 0 {
		factors = append(factors, fmt.Sprintf("delivery (%d days)", int(best.leadTime)))
	}
	if best.reliability != 0 {
		factors = append(factors, fmt.Sprintf("strong reliability (%s)", strconv.FormatFloat(best.reliability, 'f', -1, 64)))
	}

	out := fmt.Sprintf("Selected %s from %s.", orUnknown(best.id), orUnknown(best.vendor))
	if len(factors) == 0 {
		return out + " It provides the best balance of price, delivery time, and reliability for the requirements."
	}
	return out + " It balances " + strings.Join(factors, " and ") + ", making it the best fit for the request."
}

func vendorReply(prompt string) string {
	items := parseItems(prompt)
	it := promptItem{id: "this product"}
	if len(items) > 0 {
		it = items[0]
	}

	buyer := strings.ToLower(lineValue(prompt, "buyer's latest message:"))
	switch {
	case buyer == "":
		return fmt.Sprintf("%s lists at $%d/unit with a %d-day lead time and proven field reliability. Better pricing requires a volume commitment of 50+ units.",
			it.id, int(it.price), int(it.leadTime))
	case strings.Contains(buyer, "deliver") || strings.Contains(buyer, "faster") || strings.Contains(buyer, "expedit"):
		return fmt.Sprintf("Standard lead time for %s is %d days. We can expedite by a week for a 15%% shipping surcharge.",
			it.id, int(it.leadTime))
	case strings.Contains(buyer, "discount") || strings.Contains(buyer, "price") || strings.Contains(buyer, "cheaper"):
		return fmt.Sprintf("We hold $%d/unit for small orders of %s. Commit to 50+ units and we will take 12%% off the unit price.",
			int(it.price), it.id)
	default:
		return fmt.Sprintf("Our terms for %s stand at $%d/unit and %d days. Volume commitments are the lever for better pricing.",
			it.id, int(it.price), int(it.leadTime))
	}
}

// parseItems reads "Key: value" lines. Each ID line starts a new item.
func parseItems(prompt string) []promptItem {
	var items []promptItem
	var cur *promptItem

	for _, raw := range strings.Split(prompt, "\n") {
		line := strings.TrimSpace(raw)
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if key == "id" {
			items = append(items, promptItem{id: value})
			cur = &items[len(items)-1]
			continue
		}
		if cur == nil {
			continue
		}

		switch key {
		case "vendor":
			cur.vendor = value
		case "price":
			cur.price = number(value)
		case "lead time":
			cur.leadTime = number(value)
		case "reliability":
			cur.reliability = number(value)
		}
	}
	return items
}

func lineValue(prompt, prefix string) string {
	for _, raw := range strings.Split(prompt, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(strings.ToLower(line), prefix) {
			return strings.TrimSpace(line[len(prefix):])
		}
	}
	return ""
}

func number(s string) float64 {
	m := firstNumber.FindString(s)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
