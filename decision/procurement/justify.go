package procurement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"procurement-engine/decision/llm"
	"procurement-engine/internal/metrics"
)

// JustificationMaxTokens bounds the generated justification.
const JustificationMaxTokens = 150

// JustificationPrompt renders the prompt sent to the generator for the
// selected item.
func JustificationPrompt(selected ScoredItem, req Request) string {
	maxCost := "N/A"
	if req.MaxCost != nil {
		maxCost = fmt.Sprintf("%v", *req.MaxCost)
	}
	latest := "N/A"
	if req.LatestDeliveryDays != nil {
		latest = fmt.Sprintf("%d", *req.LatestDeliveryDays)
	}

	var b strings.Builder
	b.WriteString("Selected item details:\n")
	fmt.Fprintf(&b, "ID: %s\n", selected.ID)
	fmt.Fprintf(&b, "Vendor: %s\n", selected.Vendor)
	fmt.Fprintf(&b, "Price: %v\n", selected.Price)
	fmt.Fprintf(&b, "Lead Time: %d days\n", selected.LeadTimeDays)
	fmt.Fprintf(&b, "Reliability: %v\n", selected.Reliability)
	b.WriteString("\nRequest constraints:\n")
	fmt.Fprintf(&b, "Max Cost: %s\n", maxCost)
	fmt.Fprintf(&b, "Latest Delivery: %s days\n", latest)
	b.WriteString("\nPlease provide a brief justification (2-3 sentences) for why this item is the best choice.\n")
	return b.String()
}

// justify resolves the provider and generates the justification. Only a
// missing credential is returned as an error; generator failures are
// recorded on the result.
func (e *Engine) justify(ctx context.Context, result *Result, opts Options, r *run) *Error {
	started := time.Now()

	gen, err := e.selector(opts.Provider, opts.APIKey)
	if err != nil {
		if errors.Is(err, llm.ErrCredentialRequired) {
			return &Error{
				Kind:    KindCredentialRequired,
				Message: fmt.Sprintf("API key required for %s. Please provide an API key.", providerName(opts.Provider)),
				Err:     err,
			}
		}
		return &Error{Kind: KindInternal, Message: "failed to select llm provider", Err: err}
	}

	text, err := gen.Generate(ctx, JustificationPrompt(result.Selected, result.Request), JustificationMaxTokens)
	r.observe(StepJustification, started)

	if err != nil {
		result.JustificationError = err.Error()
		metrics.RecordJustificationFailure(providerName(opts.Provider))
		r.add(TraceEntry{Step: StepJustification, Status: StatusError, Result: err.Error()})
		return nil
	}

	result.Justification = text
	r.add(TraceEntry{Step: StepJustification, Result: "generated justification"})
	return nil
}

func providerName(p string) string {
	if p == "" {
		return llm.ProviderMock
	}
	return strings.ToLower(p)
}
