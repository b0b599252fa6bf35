package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRequestJSON(t *testing.T) {
	path := writeFile(t, "request.json", `{
		"component": "solar_panel",
		"spec_filters": {"power_w": 140},
		"max_cost": 6000,
		"latest_delivery_days": 30,
		"weights": {"price": 0.5},
		"vendor_constraints": {"excluded_vendors": ["Astra Components"]}
	}`)

	req, err := loadRequest(path)
	require.NoError(t, err)
	assert.Equal(t, "solar_panel", req.Component)
	assert.Equal(t, 140.0, req.SpecFilters["power_w"])
	require.NotNil(t, req.MaxCost)
	assert.Equal(t, 6000.0, *req.MaxCost)
	require.NotNil(t, req.Weights)
	assert.Equal(t, 0.5, *req.Weights.Price)
	assert.Nil(t, req.Weights.LeadTime)
	require.NotNil(t, req.VendorConstraints)
	assert.Equal(t, []string{"Astra Components"}, req.VendorConstraints.ExcludedVendors)
}

func TestLoadRequestYAML(t *testing.T) {
	path := writeFile(t, "request.yaml", `
component: battery
max_cost: 3000
latest_delivery_days: 20
weights:
  reliability: 0.6
`)

	req, err := loadRequest(path)
	require.NoError(t, err)
	assert.Equal(t, "battery", req.Component)
	require.NotNil(t, req.LatestDeliveryDays)
	assert.Equal(t, 20, *req.LatestDeliveryDays)
	require.NotNil(t, req.Weights)
	assert.Equal(t, 0.6, *req.Weights.Reliability)
}

func TestLoadRequestErrors(t *testing.T) {
	_, err := loadRequest(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = loadRequest(writeFile(t, "bad.json", "{"))
	assert.Error(t, err)
}

func TestLoadConstraints(t *testing.T) {
	path := writeFile(t, "constraints.yml", `
preferred_vendors: [Helios Dynamics]
min_reliability: 0.97
max_lead_time: 25
`)

	c, err := loadConstraints(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Helios Dynamics"}, c.PreferredVendors)
	require.NotNil(t, c.MinReliability)
	assert.Equal(t, 0.97, *c.MinReliability)
	require.NotNil(t, c.MaxLeadTime)
	assert.Equal(t, 25, *c.MaxLeadTime)
}

func cliContext(t *testing.T, args map[string]string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("catalog", "", "")
	set.String("catalog-driver", driverFile, "")
	set.String("catalog-dsn", "", "")
	set.String("catalog-table", "", "")
	for k, v := range args {
		require.NoError(t, set.Set(k, v))
	}
	return cli.NewContext(newApp(), set, nil)
}

func TestOpenBackendFile(t *testing.T) {
	b, err := openBackend(context.Background(), cliContext(t, nil))
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, 12, b.catalog.Len())
	assert.Nil(t, b.recorder)
	assert.Nil(t, b.ping)

	path := writeFile(t, "catalog.json", `[
		{"id": "X-1", "component": "battery", "vendor": "V", "price": 10, "lead_time_days": 1, "reliability": 0.9}
	]`)
	b, err = openBackend(context.Background(), cliContext(t, map[string]string{"catalog": path}))
	require.NoError(t, err)
	assert.Equal(t, 1, b.catalog.Len())
}

func TestOpenBackendErrors(t *testing.T) {
	_, err := openBackend(context.Background(), cliContext(t, map[string]string{"catalog-driver": "mongo"}))
	assert.ErrorContains(t, err, "unknown catalog driver")

	_, err = openBackend(context.Background(), cliContext(t, map[string]string{"catalog-driver": "postgres"}))
	assert.ErrorContains(t, err, "--catalog-dsn is required")
}

func TestMigrateStoreRejectsFileDriver(t *testing.T) {
	_, err := migrateStore(context.Background(), cliContext(t, nil))
	assert.ErrorContains(t, err, "has no tables to migrate")

	_, err = migrateStore(context.Background(), cliContext(t, map[string]string{"catalog-driver": "postgres"}))
	assert.ErrorContains(t, err, "--catalog-dsn is required")
}

func TestAppCommands(t *testing.T) {
	app := newApp()
	var names []string
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"plan", "optimize", "constraints", "catalog", "policy", "serve"}, names)
}
