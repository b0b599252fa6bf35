package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-engine/decision/catalog"
	"procurement-engine/decision/procurement"
)

func newTestServer(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	cat, err := catalog.LoadDefault()
	require.NoError(t, err)
	return NewServer(cat, procurement.NewEngine(cat), cfg).Router()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func solarBody() map[string]any {
	return map[string]any{
		"component":            "solar_panel",
		"max_cost":             6000,
		"latest_delivery_days": 30,
		"weights":              map[string]float64{"price": 0.9, "lead_time": 0.05, "reliability": 0.05},
		"top_k":                2,
	}
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["catalog_loaded"])

	rec = do(t, h, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/version", nil)
	assert.Equal(t, Version, decodeBody(t, rec)["version"])

	rec = do(t, h, http.MethodGet, "/", nil)
	assert.Equal(t, "operational", decodeBody(t, rec)["status"])
}

func TestReadinessFailure(t *testing.T) {
	cat, err := catalog.LoadDefault()
	require.NoError(t, err)
	h := NewServer(cat, procurement.NewEngine(cat), nil).
		WithReadiness(func(context.Context) error { return errors.New("clickhouse unreachable") }).
		Router()

	rec := do(t, h, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "clickhouse unreachable")
}

func TestCatalogEndpoints(t *testing.T) {
	h := newTestServer(t, nil)

	body := decodeBody(t, do(t, h, http.MethodGet, "/api/catalog/components", nil))
	assert.Len(t, body["components"], 6)
	assert.EqualValues(t, 12, body["total_items"])
	details := body["details"].(map[string]any)
	battery := details["battery"].(map[string]any)
	assert.EqualValues(t, 3, battery["count"])

	body = decodeBody(t, do(t, h, http.MethodGet, "/api/catalog/vendors", nil))
	assert.EqualValues(t, 5, body["total_vendors"])

	body = decodeBody(t, do(t, h, http.MethodGet, "/api/catalog/items?component=battery", nil))
	assert.EqualValues(t, 3, body["count"])

	body = decodeBody(t, do(t, h, http.MethodGet, "/api/catalog/items", nil))
	assert.EqualValues(t, 12, body["count"])

	body = decodeBody(t, do(t, h, http.MethodGet, "/api/catalog/items?component=unknown", nil))
	assert.EqualValues(t, 0, body["count"])
	assert.Equal(t, []any{}, body["items"])
}

func TestCatalogSearch(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/api/catalog/search", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/catalog/search?q=solar&top_k=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/catalog/search?q=high+power+solar&top_k=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decodeBody(t, rec)["count"])
}

func TestProcurement(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/procurement", solarBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res procurement.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "SP-100", res.Selected.ID)
	assert.Len(t, res.Candidates, 2)
	assert.NotEmpty(t, res.RequestID)
	assert.NotEmpty(t, res.Justification)
	assert.Equal(t, 2, res.Metrics.TopKSelected)
}

func TestProcurementTopKBeyondCandidates(t *testing.T) {
	h := newTestServer(t, nil)

	body := solarBody()
	body["top_k"] = 500
	rec := do(t, h, http.MethodPost, "/api/procurement", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res procurement.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.Candidates, 2)
	assert.Equal(t, 2, res.Metrics.TopKSelected)
	assert.Equal(t, "SP-100", res.Selected.ID)
}

func TestProcurementErrors(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	h := newTestServer(t, nil)

	tests := []struct {
		name    string
		body    any
		status  int
		message string
	}{
		{"missing component", map[string]any{"max_cost": 100}, http.StatusBadRequest, "component is required"},
		{"zero top_k", map[string]any{"component": "battery", "top_k": 0}, http.StatusBadRequest, "top_k must be at least 1"},
		{"negative max_cost", map[string]any{"component": "battery", "max_cost": -1}, http.StatusBadRequest, "max_cost must be at least 0"},
		{"no candidates", map[string]any{"component": "nonexistent"}, http.StatusNotFound, "no candidates match constraints"},
		{"openai without key", map[string]any{"component": "battery", "llm_provider": "openai"}, http.StatusBadRequest, "API key required"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/procurement", tc.body)
			assert.Equal(t, tc.status, rec.Code)

			body := decodeBody(t, rec)
			assert.EqualValues(t, tc.status, body["status"])
			assert.Contains(t, body["error"], tc.message)
		})
	}
}

func TestProcurementNoCandidatesCarriesTrace(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/procurement", map[string]any{"component": "solar_panel", "max_cost": 1})
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Searched)
	require.NotNil(t, resp.Filtered)
	assert.Equal(t, 2, *resp.Searched)
	assert.Equal(t, 0, *resp.Filtered)
	assert.NotEmpty(t, resp.Trace)
	require.NotNil(t, resp.Metrics)
	assert.Equal(t, 2, resp.Metrics.TotalCandidates)
}

func TestMalformedBody(t *testing.T) {
	h := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/procurement", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func selectedItem() map[string]any {
	return map[string]any{
		"id": "SP-100", "component": "solar_panel", "vendor": "Helios Dynamics",
		"price": 4800, "lead_time_days": 21, "reliability": 0.985,
		"specs": map[string]float64{"power_w": 160},
	}
}

func TestNegotiate(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/negotiate", map[string]any{
		"selected_item": selectedItem(),
		"request":       map[string]any{"component": "solar_panel", "max_cost": 6000},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "APPROVED", body["verdict"])
	assert.Equal(t, "SP-100", body["item_id"])

	rec = do(t, h, http.MethodPost, "/api/negotiate", map[string]any{"request": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "selected_item is required")
}

func TestVendorNegotiation(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/negotiate/vendor", map[string]any{
		"selected_item": selectedItem(),
		"request":       map[string]any{"component": "solar_panel"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var opening VendorReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opening))
	assert.Equal(t, "vendor", opening.Reply.Role)
	assert.Len(t, opening.Conversation, 1)

	rec = do(t, h, http.MethodPost, "/api/negotiate/vendor", map[string]any{
		"selected_item": selectedItem(),
		"message":       "Any discount for volume?",
		"conversation":  opening.Conversation,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var reply VendorReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Contains(t, reply.Reply.Message, "12% off")
	require.Len(t, reply.Conversation, 3)
	assert.Equal(t, "buyer", reply.Conversation[1].Role)
}

func TestOptimize(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/optimize", map[string]any{
		"selected_item": selectedItem(),
		"request":       map[string]any{"component": "solar_panel", "latest_delivery_days": 30},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Len(t, body["discussion"], 5)
	savings := body["estimated_savings"].(map[string]any)
	assert.Equal(t, "2640", savings["total_potential_savings"])
}

func TestVendorConstraints(t *testing.T) {
	h := newTestServer(t, nil)

	candidates := []map[string]any{
		{"id": "A", "vendor": "V1", "reliability": 0.99, "lead_time_days": 10},
		{"id": "B", "vendor": "V2", "reliability": 0.95, "lead_time_days": 5},
		{"id": "C", "vendor": "V3", "reliability": 0.97, "lead_time_days": 20},
	}

	rec := do(t, h, http.MethodPost, "/api/vendor-constraints", map[string]any{
		"request_id": "req-42",
		"candidates": candidates,
		"constraints": map[string]any{
			"excluded_vendors":  []string{"V2"},
			"preferred_vendors": []string{"V3"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.EqualValues(t, 3, body["candidates_before"])
	assert.EqualValues(t, 2, body["candidates_after"])
	first := body["candidates"].([]any)[0].(map[string]any)
	assert.Equal(t, "C", first["id"])

	rec = do(t, h, http.MethodGet, "/api/vendor-constraints/req-42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", decodeBody(t, rec)["request_id"])

	rec = do(t, h, http.MethodGet, "/api/vendor-constraints/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/vendor-constraints/bulk", map[string]any{
		"requests": []map[string]any{
			{"request_id": "b1", "candidates": candidates, "constraints": map[string]any{"min_reliability": 0.97}},
			{"request_id": "b2", "candidates": candidates},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decodeBody(t, rec)
	assert.EqualValues(t, 2, body["total_requests"])

	rec = do(t, h, http.MethodPost, "/api/vendor-constraints/bulk", map[string]any{"requests": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIKeyProtectsAPIRoutes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "secret"
	h := newTestServer(t, cfg)

	rec := do(t, h, http.MethodGet, "/api/catalog/components", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/catalog/components", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/procurement", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, nil)
	do(t, h, http.MethodGet, "/health", nil)

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "procurement_api_requests_total")
}

func TestMetricsCanBeDisabled(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "false")
	cfg := ConfigFromEnv()
	assert.False(t, cfg.MetricsEnabled)

	h := newTestServer(t, cfg)
	rec := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", nil).Code)
}
