package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"procurement-engine/api"
	"procurement-engine/db/ingestion"
	"procurement-engine/decision/catalog"
	"procurement-engine/decision/constraints"
	"procurement-engine/decision/negotiation"
	"procurement-engine/decision/policy"
	"procurement-engine/decision/procurement"
)

// =============================================================================
// OPTIMIZE COMMAND
// =============================================================================

func optimizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "optimize",
		Usage:     "Plan a request and run the cost optimization review on the selection",
		ArgsUsage: "<request.json|request.yaml>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top-k", Value: procurement.DefaultTopK, Usage: "Number of top candidates"},
			formatFlag(),
		},
		Action: func(c *cli.Context) error {
			format := c.String("format")
			if err := validFormat(format); err != nil {
				return err
			}
			path, err := requestArg(c)
			if err != nil {
				return err
			}
			req, err := loadRequest(path)
			if err != nil {
				return err
			}

			b, err := openBackend(c.Context, c)
			if err != nil {
				return err
			}
			defer b.Close()

			top, err := procurement.Rank(b.catalog, req, c.Int("top-k"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("ERROR (%d): %v", procurement.StatusOf(err), err), ExitError)
			}

			return renderOptimization(os.Stdout, format, negotiation.NewCostOptimizer().Optimize(top[0], req))
		},
	}
}

// =============================================================================
// CONSTRAINTS COMMAND
// =============================================================================

func constraintsCommand() *cli.Command {
	return &cli.Command{
		Name:      "constraints",
		Usage:     "Rank a request and apply vendor constraints to the shortlist",
		ArgsUsage: "<request.json|request.yaml>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "constraints-file",
				Usage:    "Vendor constraints file (.json, .yaml)",
				Required: true,
			},
			&cli.IntFlag{Name: "top-k", Value: procurement.DefaultTopK, Usage: "Number of top candidates"},
			&cli.StringFlag{Name: "request-id", Usage: "Request id to record the constraints under"},
			formatFlag(),
		},
		Action: func(c *cli.Context) error {
			format := c.String("format")
			if err := validFormat(format); err != nil {
				return err
			}
			path, err := requestArg(c)
			if err != nil {
				return err
			}
			req, err := loadRequest(path)
			if err != nil {
				return err
			}
			rules, err := loadConstraints(c.String("constraints-file"))
			if err != nil {
				return err
			}

			b, err := openBackend(c.Context, c)
			if err != nil {
				return err
			}
			defer b.Close()

			top, err := procurement.Rank(b.catalog, req, c.Int("top-k"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("ERROR (%d): %v", procurement.StatusOf(err), err), ExitError)
			}

			resp := constraints.NewEndpoint().Post(c.String("request-id"), top, rules)
			return renderConstraints(os.Stdout, format, resp)
		},
	}
}

// =============================================================================
// CATALOG COMMAND
// =============================================================================

func catalogCommand() *cli.Command {
	withCatalog := func(fn func(c *cli.Context, cat *catalog.Catalog, format string) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			format := c.String("format")
			if err := validFormat(format); err != nil {
				return err
			}
			b, err := openBackend(c.Context, c)
			if err != nil {
				return err
			}
			defer b.Close()
			return fn(c, b.catalog, format)
		}
	}

	return &cli.Command{
		Name:  "catalog",
		Usage: "Browse and load the hardware catalog",
		Subcommands: []*cli.Command{
			{
				Name:  "components",
				Usage: "List component types with counts, vendors and price ranges",
				Flags: []cli.Flag{formatFlag()},
				Action: withCatalog(func(c *cli.Context, cat *catalog.Catalog, format string) error {
					return renderComponents(os.Stdout, format, cat.Components())
				}),
			},
			{
				Name:  "vendors",
				Usage: "List vendors with their item counts",
				Flags: []cli.Flag{formatFlag()},
				Action: withCatalog(func(c *cli.Context, cat *catalog.Catalog, format string) error {
					return renderVendors(os.Stdout, format, cat.VendorSummaries())
				}),
			},
			{
				Name:  "items",
				Usage: "List catalog items",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "component", Usage: "Only items of this component type"},
					formatFlag(),
				},
				Action: withCatalog(func(c *cli.Context, cat *catalog.Catalog, format string) error {
					items := cat.Items()
					if comp := c.String("component"); comp != "" {
						items = cat.ByComponent(comp)
					}
					return renderItems(os.Stdout, format, items)
				}),
			},
			{
				Name:      "search",
				Usage:     "Free-text similarity search over the catalog",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "top-k", Value: 5, Usage: "Number of matches"},
					formatFlag(),
				},
				Action: withCatalog(func(c *cli.Context, cat *catalog.Catalog, format string) error {
					query := c.Args().First()
					if query == "" {
						return fmt.Errorf("query is required")
					}
					return renderMatches(os.Stdout, format, cat.SearchSimilar(query, c.Int("top-k")))
				}),
			},
			{
				Name:  "import",
				Usage: "Load a catalog file (or the built-in catalog) into ClickHouse",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "Catalog file (.json, .yaml); built-in catalog when empty"},
					&cli.IntFlag{Name: "batch-size", Value: ingestion.DefaultBatchSize, Usage: "Rows per insert"},
					&cli.BoolFlag{Name: "migrate", Usage: "Create tables first"},
				},
				Action: runImport,
			},
			{
				Name:  "migrate",
				Usage: "Create the catalog tables for the clickhouse or postgres driver",
				Action: func(c *cli.Context) error {
					driver, err := migrateStore(c.Context, c)
					if err != nil {
						return err
					}
					fmt.Printf("Migrated %s catalog tables\n", driver)
					return nil
				},
			},
		},
	}
}

func runImport(c *cli.Context) error {
	ctx := c.Context
	store, err := openClickHouse(c)
	if err != nil {
		return err
	}
	defer store.Close()

	if c.Bool("migrate") {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}

	var src catalog.Source
	if f := c.String("file"); f != "" {
		src = catalog.NewFileSource(f)
	} else {
		cat, err := catalog.LoadDefault()
		if err != nil {
			return err
		}
		src = catalog.StaticSource(cat.Items())
	}

	res, err := ingestion.NewImporter(store).WithBatchSize(c.Int("batch-size")).Import(ctx, src)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d items (%d components, %d vendors) in %d batches (%s)\n",
		res.Items, res.Components, res.Vendors, res.Batches, res.Duration)
	return nil
}

// =============================================================================
// POLICY COMMAND
// =============================================================================

func policyCommand() *cli.Command {
	return &cli.Command{
		Name:  "policy",
		Usage: "Manage procurement policies",
		Subcommands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "Compile every .rego file in a directory",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "policies",
						Usage:    "Directory of .rego policies",
						EnvVars:  []string{"POLICIES_DIR"},
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					if err := policy.Validate(c.Context, c.String("policies")); err != nil {
						return err
					}
					fmt.Println("All policies compiled")
					return nil
				},
			},
		},
	}
}

// =============================================================================
// SERVE COMMAND
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   api.DefaultConfig().Port,
				Usage:   "Port to listen on",
				EnvVars: []string{"PORT"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "Require this X-API-Key on /api routes",
				EnvVars: []string{"API_KEY"},
			},
			&cli.StringFlag{
				Name:    "policies",
				Usage:   "Directory of .rego policies; the built-in policy is used when empty",
				EnvVars: []string{"POLICIES_DIR"},
			},
			&cli.BoolFlag{
				Name:  "skip-policy",
				Usage: "Skip policy evaluation",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			b, err := openBackend(ctx, c)
			if err != nil {
				return err
			}
			defer b.Close()

			engine := procurement.NewEngine(b.catalog).WithLogger(log.Logger)
			if !c.Bool("skip-policy") {
				evaluator, err := loadPolicies(ctx, c.String("policies"))
				if err != nil {
					return err
				}
				engine.WithPolicy(evaluator)
			}
			if b.recorder != nil {
				engine.WithRecorder(b.recorder)
			}

			cfg := api.ConfigFromEnv()
			cfg.Port = c.Int("port")
			cfg.APIKey = c.String("api-key")

			server := api.NewServer(b.catalog, engine, cfg).WithLogger(log.Logger)
			if b.ping != nil {
				server.WithReadiness(b.ping)
			}
			return server.StartWithGracefulShutdown(ctx)
		},
	}
}
