package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-engine/decision/catalog"
)

func TestSelectItemsQuotesTable(t *testing.T) {
	q := selectItems(`hw"items`)
	assert.Contains(t, q, `FROM "hw""items"`)
	assert.Contains(t, q, "ORDER BY position, id")
}

func TestSchemaDDLUsesTable(t *testing.T) {
	ddl := schemaDDL("hw_items")
	assert.Contains(t, ddl, `CREATE TABLE IF NOT EXISTS "hw_items"`)
	assert.Contains(t, ddl, `CREATE INDEX IF NOT EXISTS "hw_items_component_idx" ON "hw_items" (component)`)
	assert.Contains(t, ddl, "CHECK (reliability BETWEEN 0 AND 1)")
}

func TestWithTable(t *testing.T) {
	s := New(nil)
	assert.Equal(t, DefaultTable, s.table)
	assert.Equal(t, "hw_items", s.WithTable("hw_items").table)
}

func TestDecodeSpecs(t *testing.T) {
	specs, err := decodeSpecs([]byte(`{"power_w": 160, "mass_kg": 2.5}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"power_w": 160, "mass_kg": 2.5}, specs)

	for _, raw := range []string{"", "null", "{}"} {
		specs, err := decodeSpecs([]byte(raw))
		require.NoError(t, err, raw)
		assert.Nil(t, specs, raw)
	}

	_, err = decodeSpecs([]byte(`{"power_w": "high"}`))
	assert.Error(t, err)
}

func TestItemRow(t *testing.T) {
	row := itemRow{id: "BAT-50", component: "battery", vendor: "Helios", price: 2200, leadTimeDays: 18, reliability: 0.97}

	item, err := row.item([]byte(`{"capacity_wh": 50}`))
	require.NoError(t, err)
	assert.Equal(t, catalog.Item{
		ID: "BAT-50", Component: "battery", Vendor: "Helios", Price: 2200,
		LeadTimeDays: 18, Reliability: 0.97, Specs: map[string]float64{"capacity_wh": 50},
	}, item)

	_, err = row.item([]byte(`[1,2]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item BAT-50")
}

func TestIsUndefinedTable(t *testing.T) {
	wrapped := fmt.Errorf("query: %w", &pq.Error{Code: "42P01"})
	assert.True(t, isUndefinedTable(wrapped))
	assert.False(t, isUndefinedTable(&pq.Error{Code: "23505"}))
	assert.False(t, isUndefinedTable(errors.New("boom")))
}
