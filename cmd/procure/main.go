// procure - hardware procurement decision CLI
//
// Usage:
//
//	procure plan request.json [--investigate] [--top-k N] [--negotiate] [--metrics]
//	procure optimize request.json
//	procure constraints request.json --constraints-file constraints.json
//	procure catalog components|vendors|items|search|import|migrate
//	procure policy validate --policies ./policies
//	procure serve --port 8000
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"procurement-engine/db/postgres"
	"procurement-engine/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes for CI/CD integration
const (
	ExitError      = 1
	ExitPolicyDeny = 2
)

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		platform.LogFatal(log.Logger, "procure failed", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "procure",
		Usage:   "Hardware procurement decision engine",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"PROCURE_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "log-json",
				Usage:   "Log JSON lines instead of console output",
				EnvVars: []string{"PROCURE_LOG_JSON"},
			},
			&cli.StringFlag{
				Name:    "catalog",
				Usage:   "Catalog file (.json, .yaml); the built-in catalog is used when empty",
				EnvVars: []string{"PROCURE_CATALOG"},
			},
			&cli.StringFlag{
				Name:    "catalog-driver",
				Value:   driverFile,
				Usage:   "Catalog source (file, clickhouse, postgres)",
				EnvVars: []string{"PROCURE_CATALOG_DRIVER"},
			},
			&cli.StringFlag{
				Name:    "catalog-dsn",
				Usage:   "DSN for the clickhouse or postgres catalog driver",
				EnvVars: []string{"PROCURE_CATALOG_DSN", "DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "catalog-table",
				Value:   postgres.DefaultTable,
				Usage:   "Catalog table for the postgres driver",
				EnvVars: []string{"PROCURE_CATALOG_TABLE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-host",
				Value:   "localhost",
				Usage:   "ClickHouse host",
				EnvVars: []string{"CLICKHOUSE_HOST"},
			},
			&cli.IntFlag{
				Name:    "clickhouse-port",
				Value:   9000,
				Usage:   "ClickHouse native port",
				EnvVars: []string{"CLICKHOUSE_PORT"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-database",
				Value:   "procurement",
				Usage:   "ClickHouse database",
				EnvVars: []string{"CLICKHOUSE_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-user",
				Value:   "default",
				Usage:   "ClickHouse user",
				EnvVars: []string{"CLICKHOUSE_USER"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-password",
				Value:   "",
				Usage:   "ClickHouse password",
				EnvVars: []string{"CLICKHOUSE_PASSWORD"},
			},
		},

		Before: func(c *cli.Context) error {
			platform.InitLogger(c.String("log-level"), !c.Bool("log-json"))
			return nil
		},

		Commands: []*cli.Command{
			planCommand(),
			optimizeCommand(),
			constraintsCommand(),
			catalogCommand(),
			policyCommand(),
			serveCommand(),
		},
	}
}
