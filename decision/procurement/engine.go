package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"procurement-engine/decision/llm"
	"procurement-engine/decision/policy"
	"procurement-engine/internal/metrics"
)

// ProviderSelector resolves a provider name and key to a Generator.
type ProviderSelector func(provider, apiKey string) (llm.Generator, error)

// PolicyEvaluator checks a selection against governance rules.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, input any) (*policy.Result, error)
}

// DecisionRecorder persists finished results for audit.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, result *Result) error
}

// Engine is the procurement decision engine
type Engine struct {
	catalog  Searcher
	selector ProviderSelector
	policy   PolicyEvaluator
	recorder DecisionRecorder
	logger   zerolog.Logger
	now      func() time.Time

	// investigationLimit caps concurrent tool lookups.
	investigationLimit int
}

// NewEngine creates an engine over a loaded catalog.
func NewEngine(catalog Searcher) *Engine {
	return &Engine{
		catalog:            catalog,
		selector:           llm.Select,
		logger:             log.With().Str("component", "procurement").Logger(),
		now:                time.Now,
		investigationLimit: 4,
	}
}

// WithSelector replaces provider resolution.
func (e *Engine) WithSelector(s ProviderSelector) *Engine {
	e.selector = s
	return e
}

// WithGenerator makes every plan use g regardless of the requested provider.
func (e *Engine) WithGenerator(g llm.Generator) *Engine {
	e.selector = func(string, string) (llm.Generator, error) { return g, nil }
	return e
}

// WithPolicy enables governance evaluation of the selection.
func (e *Engine) WithPolicy(p PolicyEvaluator) *Engine {
	e.policy = p
	return e
}

// WithRecorder enables decision auditing.
func (e *Engine) WithRecorder(r DecisionRecorder) *Engine {
	e.recorder = r
	return e
}

// WithLogger sets the engine logger.
func (e *Engine) WithLogger(l zerolog.Logger) *Engine {
	e.logger = l
	return e
}

// WithClock sets the clock used to date tool output.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Plan ranks candidates for req and justifies the best one.
//
// Failures in ranking and a missing credential are returned as *Error. A
// generator that fails after ranking does not fail the plan: the result
// comes back with an empty Justification and JustificationError set.
func (e *Engine) Plan(ctx context.Context, req Request, opts Options) (*Result, error) {
	r := newRun()
	requestID := uuid.NewString()
	logger := e.logger.With().Str("request_id", requestID).Str("component_type", req.Component).Logger()

	rk, err := rank(e.catalog, req, opts.TopK, r)
	if err != nil {
		e.recordOutcome(err, r)
		logger.Warn().Err(err).Msg("Ranking failed")
		return nil, err
	}
	metrics.RecordCandidates(r.metrics.CandidatesAfterFiltering)

	result := &Result{
		RequestID:  requestID,
		Request:    req,
		Candidates: rk.top,
		Bounds:     rk.bounds,
		Weights:    rk.weights,
	}

	// Step 9: Investigate
	if opts.Investigate {
		if err := e.investigate(ctx, result.Candidates, r); err != nil {
			perr := r.fail(&Error{Kind: KindInternal, Message: "investigation failed", Err: err})
			e.recordOutcome(perr, r)
			return nil, perr
		}
	}

	// Step 10: Select and justify
	result.Selected = result.Candidates[0]
	if err := e.justify(ctx, result, opts, r); err != nil {
		perr := r.fail(err)
		e.recordOutcome(perr, r)
		logger.Warn().Err(err).Str("provider", opts.Provider).Msg("Justification unavailable")
		return nil, perr
	}

	// Step 11: Vendor constraints
	if !req.VendorConstraints.IsZero() {
		result.ConstrainedCandidates = ApplyConstraints(result.Candidates, req.VendorConstraints)
		r.add(TraceEntry{
			Step:   StepVendorConstraints,
			Input:  req.VendorConstraints,
			Result: fmt.Sprintf("kept %d of %d candidates", len(result.ConstrainedCandidates), len(result.Candidates)),
		})
	}

	// Step 12: Policy
	if e.policy != nil {
		e.evaluatePolicy(ctx, result, r, logger)
	}

	r.finish()
	result.Trace = r.trace
	result.Metrics = r.metrics

	// Step 13: Audit
	if e.recorder != nil {
		if err := e.recorder.RecordDecision(ctx, result); err != nil {
			logger.Warn().Err(err).Msg("Failed to record decision")
		}
	}

	e.recordOutcome(nil, r)
	logger.Debug().
		Str("selected", result.Selected.ID).
		Float64("score", result.Selected.Score).
		Int("candidates", len(result.Candidates)).
		Float64("latency_s", result.Metrics.TotalLatency).
		Msg("Plan complete")

	return result, nil
}

func (e *Engine) evaluatePolicy(ctx context.Context, result *Result, r *run, logger zerolog.Logger) {
	started := time.Now()
	res, err := e.policy.Evaluate(ctx, map[string]any{
		"selected":        result.Selected,
		"request":         result.Request,
		"candidate_count": len(result.Candidates),
	})
	r.observe(StepPolicy, started)

	if err != nil {
		logger.Warn().Err(err).Msg("Policy evaluation failed")
		r.add(TraceEntry{Step: StepPolicy, Status: StatusError, Result: err.Error()})
		return
	}

	result.Policy = res
	r.add(TraceEntry{
		Step:   StepPolicy,
		Result: string(res.Decision),
	})
}

func (e *Engine) recordOutcome(err error, r *run) {
	outcome := "success"
	if err != nil {
		outcome = string(KindInternal)
		var pe *Error
		if errors.As(err, &pe) {
			outcome = string(pe.Kind)
		}
	}
	metrics.RecordPlan(outcome, r.metrics.TotalLatency)
	metrics.RecordSteps(r.metrics.StepLatencies)
}
