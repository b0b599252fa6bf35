package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"procurement-engine/decision/catalog"
	"procurement-engine/decision/constraints"
	"procurement-engine/decision/negotiation"
	"procurement-engine/decision/policy"
	"procurement-engine/decision/procurement"
	"procurement-engine/decision/tools"
)

// Output formats
const (
	formatTable    = "table"
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

func validFormat(f string) error {
	switch f {
	case formatTable, formatJSON, formatMarkdown:
		return nil
	}
	return fmt.Errorf("unknown format %q (want table, json or markdown)", f)
}

func newTable(format string) table.Writer {
	tw := table.NewWriter()
	if format == formatTable {
		tw.SetStyle(table.StyleLight)
	}
	return tw
}

func render(w io.Writer, format string, tw table.Writer) {
	if format == formatMarkdown {
		fmt.Fprintln(w, tw.RenderMarkdown())
		return
	}
	fmt.Fprintln(w, tw.Render())
}

func heading(w io.Writer, format, title string) {
	if format == formatMarkdown {
		fmt.Fprintf(w, "\n### %s\n\n", title)
		return
	}
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("=", len(title)))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatPrice(p float64) string {
	return "$" + strconv.FormatFloat(p, 'f', -1, 64)
}

func optionalFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func specsString(specs map[string]float64) string {
	if len(specs) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s>=%s", k, strconv.FormatFloat(specs[k], 'f', -1, 64))
	}
	return strings.Join(parts, ", ")
}

// =============================================================================
// PLAN
// =============================================================================

// planReport is the JSON shape of `procure plan`.
type planReport struct {
	*procurement.Result
	Negotiation *negotiation.Review `json:"negotiation,omitempty"`
}

func renderPlan(w io.Writer, format string, result *procurement.Result, review *negotiation.Review, showMetrics bool) error {
	if format == formatJSON {
		return writeJSON(w, planReport{Result: result, Negotiation: review})
	}

	req := result.Request
	heading(w, format, "Request")
	rt := newTable(format)
	rt.AppendRows([]table.Row{
		{"Component", req.Component},
		{"Spec Filters", specsString(req.SpecFilters)},
		{"Max Cost", optionalFloat(req.MaxCost)},
		{"Latest Delivery (days)", optionalInt(req.LatestDeliveryDays)},
		{"Weights", result.Weights.String()},
	})
	render(w, format, rt)

	heading(w, format, fmt.Sprintf("Candidates (%d)", len(result.Candidates)))
	renderCandidates(w, format, result.Candidates)

	if req.VendorConstraints != nil {
		heading(w, format, fmt.Sprintf("After Vendor Constraints (%d)", len(result.ConstrainedCandidates)))
		renderCandidates(w, format, result.ConstrainedCandidates)
	}

	heading(w, format, "Selected: "+result.Selected.ID)
	fmt.Fprintln(w, result.Justification)
	if result.JustificationError != "" {
		fmt.Fprintf(w, "Justification unavailable: %s\n", result.JustificationError)
	}

	if result.Policy != nil {
		renderPolicy(w, format, result.Policy)
	}

	if showMetrics {
		renderMetrics(w, format, result.Metrics)
	}

	if review != nil {
		heading(w, format, "Negotiation")
		for _, line := range review.Transcript {
			fmt.Fprintf(w, "  %s\n", line)
		}
		fmt.Fprintf(w, "\nVerdict: %s\n", review.Verdict)
	}

	heading(w, format, fmt.Sprintf("Trace (%d steps)", len(result.Trace)))
	tt := newTable(format)
	tt.AppendHeader(table.Row{"Step", "Status", "Detail"})
	for _, e := range result.Trace {
		detail := e.Result
		step := e.Step
		if e.Step == procurement.StepToolCall {
			step = e.Tool
			detail = e.Summary
		}
		tt.AppendRow(table.Row{step, e.Status, detail})
	}
	render(w, format, tt)
	return nil
}

func renderCandidates(w io.Writer, format string, candidates []procurement.ScoredItem) {
	ct := newTable(format)
	ct.AppendHeader(table.Row{"#", "ID", "Vendor", "Price", "Lead Time", "Reliability", "Score", "Tools"})
	for i, c := range candidates {
		ct.AppendRow(table.Row{
			i + 1, c.ID, c.Vendor, formatPrice(c.Price),
			fmt.Sprintf("%dd", c.LeadTimeDays), c.Reliability,
			fmt.Sprintf("%.4f", c.Score), toolsSummary(c.Tools),
		})
	}
	ct.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	render(w, format, ct)
}

func toolsSummary(f *tools.Findings) string {
	if f == nil {
		return "-"
	}
	var parts []string
	if f.PriceHistory != nil {
		parts = append(parts, f.PriceHistory.Summary())
	}
	if f.Availability != nil {
		parts = append(parts, f.Availability.Summary())
	}
	return strings.Join(parts, "; ")
}

func renderPolicy(w io.Writer, format string, p *policy.Result) {
	heading(w, format, "Policy: "+strings.ToUpper(string(p.Decision)))
	for _, d := range p.Denials {
		fmt.Fprintf(w, "  DENY  %s\n", d)
	}
	for _, warn := range p.Warnings {
		fmt.Fprintf(w, "  WARN  %s\n", warn)
	}
}

func renderMetrics(w io.Writer, format string, m procurement.Metrics) {
	heading(w, format, "Performance Metrics")
	mt := newTable(format)
	mt.AppendRows([]table.Row{
		{"Total Latency", fmt.Sprintf("%.4fs", m.TotalLatency)},
		{"Total Candidates", m.TotalCandidates},
		{"Candidates After Filtering", m.CandidatesAfterFiltering},
		{"Top K Selected", m.TopKSelected},
		{"Tools Called", m.ToolsCalled},
	})

	steps := make([]string, 0, len(m.StepLatencies))
	for s := range m.StepLatencies {
		steps = append(steps, s)
	}
	sort.Strings(steps)
	for _, s := range steps {
		mt.AppendRow(table.Row{"  " + s, fmt.Sprintf("%.4fs", m.StepLatencies[s])})
	}
	render(w, format, mt)
}

// =============================================================================
// OPTIMIZE
// =============================================================================

func renderOptimization(w io.Writer, format string, opt negotiation.Optimization) error {
	if format == formatJSON {
		return writeJSON(w, opt)
	}

	heading(w, format, "Cost Optimization: "+opt.SelectedItem.ID)
	for _, c := range opt.Discussion {
		fmt.Fprintf(w, "\n[%s]\n%s\n", c.Agent, c.Message)
	}

	s := opt.EstimatedSavings
	heading(w, format, "Estimated Savings")
	st := newTable(format)
	st.AppendHeader(table.Row{"Lever", "Amount"})
	st.AppendRows([]table.Row{
		{"Current cost", "$" + s.CurrentCost.StringFixed(2)},
		{"Vendor negotiation", "$" + s.VendorNegotiationSavings.StringFixed(2)},
		{"Spec relaxation", "$" + s.SpecRelaxationSavings.StringFixed(2)},
		{"Logistics", "$" + s.LogisticsSavings.StringFixed(2)},
	})
	st.AppendFooter(table.Row{"After optimization", "$" + s.CostAfterOptimization.StringFixed(2)})
	st.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	render(w, format, st)
	return nil
}

// =============================================================================
// CONSTRAINTS
// =============================================================================

func renderConstraints(w io.Writer, format string, resp constraints.Response) error {
	if format == formatJSON {
		return writeJSON(w, resp)
	}

	heading(w, format, fmt.Sprintf("Vendor Constraints (%d -> %d candidates)", resp.CandidatesBefore, resp.CandidatesAfter))
	renderCandidates(w, format, resp.Candidates)
	return nil
}

// =============================================================================
// CATALOG
// =============================================================================

func renderComponents(w io.Writer, format string, summaries []catalog.ComponentSummary) error {
	if format == formatJSON {
		return writeJSON(w, summaries)
	}

	tw := newTable(format)
	tw.AppendHeader(table.Row{"Component", "Items", "Vendors", "Price Range"})
	for _, s := range summaries {
		tw.AppendRow(table.Row{
			s.Component, s.Count, strings.Join(s.Vendors, ", "),
			formatPrice(s.PriceRange[0]) + " - " + formatPrice(s.PriceRange[1]),
		})
	}
	render(w, format, tw)
	return nil
}

func renderVendors(w io.Writer, format string, summaries []catalog.VendorSummary) error {
	if format == formatJSON {
		return writeJSON(w, summaries)
	}

	tw := newTable(format)
	tw.AppendHeader(table.Row{"Vendor", "Items", "Components"})
	for _, s := range summaries {
		tw.AppendRow(table.Row{s.Vendor, s.ItemCount, strings.Join(s.Components, ", ")})
	}
	render(w, format, tw)
	return nil
}

func renderItems(w io.Writer, format string, items []catalog.Item) error {
	if format == formatJSON {
		return writeJSON(w, items)
	}

	tw := newTable(format)
	tw.AppendHeader(table.Row{"ID", "Component", "Vendor", "Price", "Lead Time", "Reliability", "Specs"})
	for _, it := range items {
		tw.AppendRow(table.Row{
			it.ID, it.Component, it.Vendor, formatPrice(it.Price),
			fmt.Sprintf("%dd", it.LeadTimeDays), it.Reliability, specsString(it.Specs),
		})
	}
	render(w, format, tw)
	return nil
}

func renderMatches(w io.Writer, format string, matches []catalog.Match) error {
	if format == formatJSON {
		return writeJSON(w, matches)
	}

	tw := newTable(format)
	tw.AppendHeader(table.Row{"ID", "Component", "Vendor", "Similarity"})
	for _, m := range matches {
		tw.AppendRow(table.Row{m.Item.ID, m.Item.Component, m.Item.Vendor, fmt.Sprintf("%.4f", m.Similarity)})
	}
	render(w, format, tw)
	return nil
}
