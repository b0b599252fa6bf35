package negotiation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"procurement-engine/decision/llm"
	"procurement-engine/decision/procurement"
)

// VendorMaxTokens bounds each vendor reply.
const VendorMaxTokens = 200

// Conversation roles.
const (
	RoleVendor = "vendor"
	RoleBuyer  = "buyer"
)

// Message is one turn of a vendor negotiation.
type Message struct {
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// VendorAgent plays the vendor's sales representative. The conversation is
// owned by the caller and passed in on every turn.
type VendorAgent struct {
	gen llm.Generator
	now func() time.Time
}

// NewVendorAgent creates an agent that speaks through gen.
func NewVendorAgent(gen llm.Generator) *VendorAgent {
	return &VendorAgent{gen: gen, now: time.Now}
}

// Open returns the vendor's opening position for item given what the buyer
// asked for.
func (a *VendorAgent) Open(ctx context.Context, item procurement.ScoredItem, req procurement.Request) (Message, error) {
	reply, err := a.gen.Generate(ctx, OpeningPrompt(item, req), VendorMaxTokens)
	if err != nil {
		return Message{}, fmt.Errorf("vendor opening failed: %w", err)
	}
	return Message{Role: RoleVendor, Message: reply, Timestamp: a.now()}, nil
}

// Respond answers the buyer's latest message given the prior conversation.
func (a *VendorAgent) Respond(ctx context.Context, item procurement.ScoredItem, buyerMessage string, conversation []Message) (Message, error) {
	reply, err := a.gen.Generate(ctx, ResponsePrompt(item, buyerMessage, conversation), VendorMaxTokens)
	if err != nil {
		return Message{}, fmt.Errorf("vendor response failed: %w", err)
	}
	return Message{Role: RoleVendor, Message: reply, Timestamp: a.now()}, nil
}

// OpeningPrompt renders the prompt for the vendor's first message.
func OpeningPrompt(item procurement.ScoredItem, req procurement.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a sales representative from %s opening a negotiation.\n", orDefault(item.Vendor, "Unknown"))
	writeItem(&b, item)
	if req.MaxCost != nil {
		fmt.Fprintf(&b, "Buyer Budget: %v per unit\n", *req.MaxCost)
	}
	if req.LatestDeliveryDays != nil {
		fmt.Fprintf(&b, "Buyer Deadline: %d days\n", *req.LatestDeliveryDays)
	}
	b.WriteString("\nState your opening position directly (2-3 sentences). Do not thank the buyer.\n")
	b.WriteString("State the price, what makes this a good product, and ONE condition for better pricing (volume, long-term contract, etc.)\n")
	return b.String()
}

// ResponsePrompt renders the prompt for a vendor reply.
func ResponsePrompt(item procurement.ScoredItem, buyerMessage string, conversation []Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a sales representative from %s in an ongoing negotiation.\n", orDefault(item.Vendor, "Unknown"))
	writeItem(&b, item)

	b.WriteString("\nYour negotiation goals:\n")
	b.WriteString("1. Protect pricing for small orders\n")
	b.WriteString("2. Offer meaningful discounts only for volume commitments (50+ units)\n")
	b.WriteString("3. Be flexible on delivery timelines but charge for expedited shipping\n")
	b.WriteString("4. Maintain a professional but firm tone\n")
	b.WriteString("5. Stay consistent with every previous offer in this conversation\n")

	if len(conversation) > 0 {
		b.WriteString("\nNegotiation History:\n")
		for _, m := range conversation {
			role := "Vendor"
			if m.Role == RoleBuyer {
				role = "Buyer"
			}
			fmt.Fprintf(&b, "%s: %s\n", role, m.Message)
		}
	}

	fmt.Fprintf(&b, "\nBuyer's Latest Message: %s\n", buyerMessage)
	b.WriteString("\nRespond as the vendor in 2-3 sentences.\n")
	return b.String()
}

func writeItem(b *strings.Builder, item procurement.ScoredItem) {
	fmt.Fprintf(b, "ID: %s\n", item.ID)
	fmt.Fprintf(b, "Vendor: %s\n", item.Vendor)
	fmt.Fprintf(b, "Price: %v\n", item.Price)
	fmt.Fprintf(b, "Lead Time: %d days\n", item.LeadTimeDays)
	fmt.Fprintf(b, "Reliability: %v\n", item.Reliability)
}
