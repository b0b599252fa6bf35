package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"procurement-engine/decision/negotiation"
	"procurement-engine/decision/policy"
	"procurement-engine/decision/procurement"
)

// =============================================================================
// PLAN COMMAND
// =============================================================================

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   formatTable,
		Usage:   "Output format (table, json, markdown)",
	}
}

func planCommand() *cli.Command {
	return &cli.Command{
		Name:      "plan",
		Usage:     "Select the best catalog item for a procurement request",
		ArgsUsage: "<request.json|request.yaml>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "investigate",
				Usage: "Run price_history and availability on the shortlist",
			},
			&cli.IntFlag{
				Name:  "top-k",
				Value: procurement.DefaultTopK,
				Usage: "Number of top candidates",
			},
			&cli.StringFlag{
				Name:    "llm-provider",
				Value:   "mock",
				Usage:   "Text generator for the justification (mock, openai)",
				EnvVars: []string{"PROCURE_LLM_PROVIDER"},
			},
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "API key for the LLM provider (falls back to OPENAI_API_KEY)",
			},
			&cli.BoolFlag{
				Name:  "negotiate",
				Usage: "Run the procurement officer negotiation on the selection",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "Display performance metrics",
			},
			&cli.StringFlag{
				Name:  "constraints-file",
				Usage: "Vendor constraints file; overrides vendor_constraints in the request",
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
			&cli.BoolFlag{
				Name:  "audit",
				Usage: "Record the decision when the catalog store supports it",
			},
			formatFlag(),
		},
		Action: runPlan,
	}
}

func runPlan(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

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
	if f := c.String("constraints-file"); f != "" {
		if req.VendorConstraints, err = loadConstraints(f); err != nil {
			return err
		}
	}

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
	if c.Bool("audit") && b.recorder != nil {
		engine.WithRecorder(b.recorder)
	}

	result, err := engine.Plan(ctx, req, procurement.Options{
		TopK:        c.Int("top-k"),
		Investigate: c.Bool("investigate"),
		Provider:    c.String("llm-provider"),
		APIKey:      c.String("api-key"),
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("ERROR (%d): %v", procurement.StatusOf(err), err), ExitError)
	}

	var review *negotiation.Review
	if c.Bool("negotiate") {
		r := negotiation.Negotiate(result.Selected, req)
		review = &r
	}

	if err := renderPlan(os.Stdout, format, result, review, c.Bool("metrics")); err != nil {
		return err
	}

	if result.Policy != nil && result.Policy.Decision == policy.DecisionDeny {
		return cli.Exit("", ExitPolicyDeny)
	}
	return nil
}

func loadPolicies(ctx context.Context, dir string) (*policy.Evaluator, error) {
	if dir == "" {
		return policy.NewDefault(ctx)
	}
	return policy.LoadDir(ctx, dir)
}
