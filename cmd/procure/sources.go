package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"procurement-engine/db/clickhouse"
	"procurement-engine/db/postgres"
	"procurement-engine/decision/catalog"
	"procurement-engine/decision/procurement"
)

// Catalog drivers.
const (
	driverFile       = "file"
	driverClickHouse = "clickhouse"
	driverPostgres   = "postgres"
)

// backend is the loaded catalog plus whatever store it came from.
type backend struct {
	catalog *catalog.Catalog
	// recorder is set when the store can keep an audit log.
	recorder procurement.DecisionRecorder
	// ping checks the store, nil for file catalogs.
	ping  func(ctx context.Context) error
	close func() error
}

func (b *backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

func openClickHouse(c *cli.Context) (*clickhouse.Store, error) {
	if dsn := c.String("catalog-dsn"); dsn != "" {
		return clickhouse.NewStoreFromDSN(dsn)
	}
	return clickhouse.NewStore(&clickhouse.Config{
		Host:     c.String("clickhouse-host"),
		Port:     c.Int("clickhouse-port"),
		Database: c.String("clickhouse-database"),
		Username: c.String("clickhouse-user"),
		Password: c.String("clickhouse-password"),
	})
}

func openPostgres(ctx context.Context, c *cli.Context) (*postgres.Store, error) {
	dsn := c.String("catalog-dsn")
	if dsn == "" {
		return nil, fmt.Errorf("--catalog-dsn is required for the postgres driver")
	}
	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if table := c.String("catalog-table"); table != "" {
		store.WithTable(table)
	}
	return store, nil
}

// migrateStore creates the catalog tables of the configured driver.
func migrateStore(ctx context.Context, c *cli.Context) (string, error) {
	switch driver := strings.ToLower(c.String("catalog-driver")); driver {
	case driverClickHouse:
		store, err := openClickHouse(c)
		if err != nil {
			return "", err
		}
		defer store.Close()
		return driver, store.Migrate(ctx)

	case driverPostgres:
		store, err := openPostgres(ctx, c)
		if err != nil {
			return "", err
		}
		defer store.Close()
		return driver, store.Migrate(ctx)

	default:
		return "", fmt.Errorf("catalog driver %q has no tables to migrate (want clickhouse or postgres)", driver)
	}
}

// openBackend loads the catalog from the configured driver.
func openBackend(ctx context.Context, c *cli.Context) (*backend, error) {
	switch driver := strings.ToLower(c.String("catalog-driver")); driver {
	case "", driverFile:
		cat, err := loadFileCatalog(ctx, c.String("catalog"))
		if err != nil {
			return nil, err
		}
		return &backend{catalog: cat}, nil

	case driverClickHouse:
		store, err := openClickHouse(c)
		if err != nil {
			return nil, err
		}
		cat, err := catalog.Load(ctx, store)
		if err != nil {
			store.Close()
			return nil, err
		}
		return &backend{catalog: cat, recorder: store, ping: store.Ping, close: store.Close}, nil

	case driverPostgres:
		store, err := openPostgres(ctx, c)
		if err != nil {
			return nil, err
		}
		cat, err := catalog.Load(ctx, store)
		if err != nil {
			store.Close()
			return nil, err
		}
		return &backend{catalog: cat, close: store.Close}, nil

	default:
		return nil, fmt.Errorf("unknown catalog driver %q (want file, clickhouse or postgres)", driver)
	}
}

func loadFileCatalog(ctx context.Context, path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.LoadDefault()
	}
	return catalog.Load(ctx, catalog.NewFileSource(path))
}

// readDocument decodes a JSON or YAML file into v, picked by extension.
func readDocument(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("invalid document %s: %w", path, err)
	}
	return nil
}

func loadRequest(path string) (procurement.Request, error) {
	var req procurement.Request
	if err := readDocument(path, &req); err != nil {
		return req, err
	}
	return req, nil
}

func loadConstraints(path string) (*procurement.Constraints, error) {
	var c procurement.Constraints
	if err := readDocument(path, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// requestArg returns the request file from the first positional argument.
func requestArg(c *cli.Context) (string, error) {
	path := c.Args().First()
	if path == "" {
		return "", fmt.Errorf("request file is required")
	}
	return path, nil
}
