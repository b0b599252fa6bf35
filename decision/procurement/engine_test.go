package procurement

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-engine/decision/llm"
	"procurement-engine/decision/policy"
	"procurement-engine/decision/scoring"
)

var fixedClock = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, string, int) (string, error) {
	return "", errors.New("upstream timeout")
}

type captureRecorder struct {
	mu      sync.Mutex
	results []*Result
	err     error
}

func (c *captureRecorder) RecordDecision(_ context.Context, r *Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
	return c.err
}

func solarRequest() Request {
	return Request{
		Component:          "solar_panel",
		MaxCost:            f64(6000),
		LatestDeliveryDays: intp(30),
		Weights: &scoring.WeightOverrides{
			Price:       f64(0.9),
			LeadTime:    f64(0.05),
			Reliability: f64(0.05),
		},
	}
}

func TestPlanEndToEnd(t *testing.T) {
	e := NewEngine(defaultCatalog(t))

	res, err := e.Plan(context.Background(), solarRequest(), Options{TopK: 2})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RequestID)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "SP-100", res.Selected.ID)
	assert.Equal(t, res.Candidates[0], res.Selected)
	assert.Equal(t,
		"Selected SP-100 from Helios Dynamics. It balances cost (4800) and delivery (21 days) and strong reliability (0.985), making it the best fit for the request.",
		res.Justification)
	assert.Empty(t, res.JustificationError)

	assert.Equal(t, 2, res.Metrics.TotalCandidates)
	assert.Equal(t, 2, res.Metrics.CandidatesAfterFiltering)
	assert.Equal(t, 2, res.Metrics.TopKSelected)
	assert.Equal(t, 0, res.Metrics.ToolsCalled)
	assert.Contains(t, res.Metrics.StepLatencies, StepCatalogSearch)
	assert.Contains(t, res.Metrics.StepLatencies, StepScoring)
	assert.Contains(t, res.Metrics.StepLatencies, StepJustification)

	var steps []string
	for _, e := range res.Trace {
		steps = append(steps, e.Step)
	}
	want := []string{StepCatalogSearch, StepComputeBounds, StepScoring, StepRanking, StepJustification}
	if diff := cmp.Diff(want, steps); diff != "" {
		t.Errorf("trace steps mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanResultJSONShape(t *testing.T) {
	res, err := NewEngine(defaultCatalog(t)).Plan(context.Background(), solarRequest(), Options{TopK: 2})
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	for _, key := range []string{"request", "candidates", "selected", "justification", "trace", "metrics"} {
		assert.Contains(t, doc, key)
	}
	selected := doc["selected"].(map[string]any)
	assert.Contains(t, selected, "score")
}

func TestPlanErrorsCarryStatus(t *testing.T) {
	e := NewEngine(defaultCatalog(t))

	_, err := e.Plan(context.Background(), Request{Component: "nonexistent"}, Options{})
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
	assert.Contains(t, err.Error(), "no candidates")

	_, err = e.Plan(context.Background(), Request{}, Options{})
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
}

func TestPlanInvestigate(t *testing.T) {
	e := NewEngine(defaultCatalog(t)).WithClock(fixedClock)

	res, err := e.Plan(context.Background(), Request{Component: "battery"}, Options{TopK: 3, Investigate: true})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 3)

	assert.Equal(t, 6, res.Metrics.ToolsCalled)
	assert.Contains(t, res.Metrics.StepLatencies, StepInvestigation)
	for _, cand := range res.Candidates {
		require.NotNil(t, cand.Tools)
		require.NotNil(t, cand.Tools.PriceHistory)
		require.NotNil(t, cand.Tools.Availability)
		assert.Equal(t, cand.ID, cand.Tools.PriceHistory.ItemID)
		assert.Equal(t, cand.Vendor, cand.Tools.Availability.Vendor)
	}
	assert.NotNil(t, res.Selected.Tools)

	var toolInputs []any
	for _, entry := range res.Trace {
		if entry.Step == StepToolCall {
			toolInputs = append(toolInputs, entry.Input)
			assert.NotEmpty(t, entry.Summary)
		}
	}
	want := []any{
		res.Candidates[0].ID, res.Candidates[0].Vendor,
		res.Candidates[1].ID, res.Candidates[1].Vendor,
		res.Candidates[2].ID, res.Candidates[2].Vendor,
	}
	assert.Equal(t, want, toolInputs)

	again, err := e.Plan(context.Background(), Request{Component: "battery"}, Options{TopK: 3, Investigate: true})
	require.NoError(t, err)
	if diff := cmp.Diff(res.Candidates, again.Candidates); diff != "" {
		t.Errorf("investigation not deterministic:\n%s", diff)
	}
}

func TestPlanDoesNotLeakBetweenRequests(t *testing.T) {
	c := defaultCatalog(t)
	e := NewEngine(c)

	first, err := e.Plan(context.Background(), Request{Component: "battery"}, Options{Investigate: true})
	require.NoError(t, err)
	require.NotNil(t, first.Candidates[0].Tools)

	second, err := e.Plan(context.Background(), Request{Component: "battery"}, Options{})
	require.NoError(t, err)
	for _, cand := range second.Candidates {
		assert.Nil(t, cand.Tools)
	}

	item, ok := c.Get(first.Candidates[0].ID)
	require.True(t, ok)
	want := item.Specs["capacity_wh"]
	first.Candidates[0].Specs["capacity_wh"] = 0

	again, _ := c.Get(item.ID)
	assert.Equal(t, want, again.Specs["capacity_wh"])
	assert.NotZero(t, want)
}

func TestPlanConcurrentRequests(t *testing.T) {
	e := NewEngine(defaultCatalog(t))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := Request{Component: "battery"}
			if i%2 == 0 {
				req.Weights = &scoring.WeightOverrides{Price: f64(1), LeadTime: f64(0), Reliability: f64(0)}
			}
			res, err := e.Plan(context.Background(), req, Options{Investigate: i%3 == 0})
			if err != nil {
				errs <- err
				return
			}
			if i%2 == 0 && res.Selected.ID != "BAT-50" {
				errs <- errors.New("price-only weights should select BAT-50, got " + res.Selected.ID)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestPlanCredentialRequired(t *testing.T) {
	t.Setenv(llm.EnvOpenAIKey, "")
	e := NewEngine(defaultCatalog(t))

	_, err := e.Plan(context.Background(), solarRequest(), Options{Provider: "openai"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCredentialRequired)
	assert.ErrorIs(t, err, llm.ErrCredentialRequired)
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.NotEmpty(t, pe.Trace)
	assert.Contains(t, pe.Message, "openai")
}

func TestPlanProviderFailureDegrades(t *testing.T) {
	e := NewEngine(defaultCatalog(t)).WithGenerator(failingGenerator{})

	res, err := e.Plan(context.Background(), solarRequest(), Options{TopK: 2})
	require.NoError(t, err)

	assert.Equal(t, "SP-100", res.Selected.ID)
	assert.Empty(t, res.Justification)
	assert.Equal(t, "upstream timeout", res.JustificationError)

	last := res.Trace[len(res.Trace)-1]
	assert.Equal(t, StepJustification, last.Step)
	assert.Equal(t, StatusError, last.Status)
}

func TestPlanVendorConstraints(t *testing.T) {
	req := solarRequest()
	req.VendorConstraints = &Constraints{ExcludedVendors: []string{"Helios Dynamics"}}

	res, err := NewEngine(defaultCatalog(t)).Plan(context.Background(), req, Options{TopK: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"SP-100", "SP-200"}, ids(res.Candidates))
	assert.Equal(t, []string{"SP-200"}, ids(res.ConstrainedCandidates))
	assert.Equal(t, "SP-100", res.Selected.ID)
}

func TestPlanPolicyAndAudit(t *testing.T) {
	ev, err := policy.NewDefault(context.Background())
	require.NoError(t, err)
	rec := &captureRecorder{}

	e := NewEngine(defaultCatalog(t)).WithPolicy(ev).WithRecorder(rec)
	res, err := e.Plan(context.Background(), solarRequest(), Options{TopK: 2})
	require.NoError(t, err)

	require.NotNil(t, res.Policy)
	assert.Equal(t, policy.DecisionPass, res.Policy.Decision)
	require.Len(t, rec.results, 1)
	assert.Equal(t, res.RequestID, rec.results[0].RequestID)
}

func TestPlanAuditFailureIsNotFatal(t *testing.T) {
	rec := &captureRecorder{err: errors.New("clickhouse down")}
	res, err := NewEngine(defaultCatalog(t)).WithRecorder(rec).Plan(context.Background(), solarRequest(), Options{})
	require.NoError(t, err)
	assert.Equal(t, "SP-100", res.Selected.ID)
}

func TestJustificationPrompt(t *testing.T) {
	sel := ScoredItem{ID: "SP-100", Vendor: "Helios Dynamics", Price: 4800, LeadTimeDays: 21, Reliability: 0.985}

	got := JustificationPrompt(sel, Request{Component: "solar_panel"})
	want := "Selected item details:\n" +
		"ID: SP-100\n" +
		"Vendor: Helios Dynamics\n" +
		"Price: 4800\n" +
		"Lead Time: 21 days\n" +
		"Reliability: 0.985\n" +
		"\nRequest constraints:\n" +
		"Max Cost: N/A\n" +
		"Latest Delivery: N/A days\n" +
		"\nPlease provide a brief justification (2-3 sentences) for why this item is the best choice.\n"
	assert.Equal(t, want, got)
}
