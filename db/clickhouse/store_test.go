package clickhouse

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-engine/decision/catalog"
	"procurement-engine/decision/policy"
	"procurement-engine/decision/procurement"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "procurement", cfg.Database)
}

func TestItemRowRoundTrip(t *testing.T) {
	item := catalog.Item{
		ID:           "SP-100",
		Component:    "solar_panel",
		Vendor:       "Helios",
		Price:        4800.5,
		LeadTimeDays: 21,
		Reliability:  0.985,
		Specs:        map[string]float64{"power_w": 160},
	}

	row := NewItemRow(item)
	assert.Equal(t, "4800.5", row.Price.String())
	assert.Equal(t, uint32(21), row.LeadTimeDays)

	row.Specs["power_w"] = 1
	assert.Equal(t, 160.0, item.Specs["power_w"], "row must not share the item's specs")

	back := NewItemRow(item).Item()
	assert.Equal(t, item, back)
}

func TestNewDecisionRow(t *testing.T) {
	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.FixedZone("X", 3600))
	maxCost := 6000.0
	result := &procurement.Result{
		RequestID: "req-1",
		Request:   procurement.Request{Component: "solar_panel", MaxCost: &maxCost},
		Selected: procurement.ScoredItem{
			ID: "SP-100", Vendor: "Helios", Price: 4800, Score: 0.7,
		},
		Justification: "Selected SP-100 from Helios.",
		Policy:        &policy.Result{Decision: policy.DecisionWarn},
		Metrics: procurement.Metrics{
			CandidatesAfterFiltering: 2,
			ToolsCalled:              4,
			TotalLatency:             0.25,
		},
	}

	row, err := NewDecisionRow(result, at)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, row.ID)
	assert.Equal(t, "req-1", row.RequestID)
	assert.Equal(t, "solar_panel", row.Component)
	assert.Equal(t, "SP-100", row.SelectedID)
	assert.Equal(t, "Helios", row.Vendor)
	assert.Equal(t, "4800", row.Price.String())
	assert.Equal(t, uint32(2), row.CandidateCount)
	assert.Equal(t, uint32(4), row.ToolsCalled)
	assert.Equal(t, "warn", row.PolicyDecision)
	assert.Equal(t, time.UTC, row.CreatedAt.Location())
	assert.True(t, at.Equal(row.CreatedAt))

	var req procurement.Request
	require.NoError(t, json.Unmarshal([]byte(row.RequestJSON), &req))
	assert.Equal(t, "solar_panel", req.Component)
	require.NotNil(t, req.MaxCost)
	assert.Equal(t, 6000.0, *req.MaxCost)
}

func TestNewDecisionRowWithoutPolicy(t *testing.T) {
	row, err := NewDecisionRow(&procurement.Result{RequestID: "req-2"}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, row.PolicyDecision)
}

func TestNewDecisionRowNil(t *testing.T) {
	_, err := NewDecisionRow(nil, time.Now())
	assert.Error(t, err)
}

func TestSchemaMentionsTables(t *testing.T) {
	assert.Contains(t, CatalogTableDDL, "catalog_items")
	assert.Contains(t, CatalogTableDDL, "Map(String, Float64)")
	assert.Contains(t, DecisionsTableDDL, "procurement_decisions")
}
