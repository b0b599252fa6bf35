// Package policy provides procurement governance: Rego policies evaluated
// against the selected candidate before an order is placed.
package policy

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
)

//go:embed policies/*.rego
var builtin embed.FS

// Queries evaluated against every policy set.
const (
	DenyQuery = "data.procurement.deny"
	WarnQuery = "data.procurement.warn"
)

// Decision is the policy evaluation outcome
type Decision string

const (
	DecisionPass Decision = "pass"
	DecisionWarn Decision = "warn"
	DecisionDeny Decision = "deny"
)

// Result holds policy evaluation outcomes.
type Result struct {
	Decision    Decision  `json:"decision"`
	Denials     []string  `json:"denials"`
	Warnings    []string  `json:"warnings"`
	Passed      bool      `json:"passed"`
	PoliciesRan int       `json:"policies_ran"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Evaluator runs a compiled set of Rego modules.
type Evaluator struct {
	modules map[string]string
	deny    rego.PreparedEvalQuery
	warn    rego.PreparedEvalQuery
}

// New compiles modules (file name -> source). An empty set always passes.
func New(ctx context.Context, modules map[string]string) (*Evaluator, error) {
	e := &Evaluator{modules: modules}
	if len(modules) == 0 {
		return e, nil
	}

	var err error
	if e.deny, err = e.prepare(ctx, DenyQuery); err != nil {
		return nil, err
	}
	if e.warn, err = e.prepare(ctx, WarnQuery); err != nil {
		return nil, err
	}
	return e, nil
}

// NewDefault compiles the built-in procurement policy.
func NewDefault(ctx context.Context) (*Evaluator, error) {
	entries, err := builtin.ReadDir("policies")
	if err != nil {
		return nil, fmt.Errorf("failed to list built-in policies: %w", err)
	}
	modules := make(map[string]string, len(entries))
	for _, entry := range entries {
		src, err := builtin.ReadFile("policies/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read built-in policy %s: %w", entry.Name(), err)
		}
		modules[entry.Name()] = string(src)
	}
	return New(ctx, modules)
}

// LoadDir compiles every *.rego file in dir. A missing directory or one with
// no policies yields an evaluator that always passes.
func LoadDir(ctx context.Context, dir string) (*Evaluator, error) {
	modules, err := readDir(dir)
	if err != nil {
		return nil, err
	}
	return New(ctx, modules)
}

// Evaluate runs deny and warn rules against input. Input is converted through
// JSON so struct tags decide field names.
func (e *Evaluator) Evaluate(ctx context.Context, input any) (*Result, error) {
	result := &Result{
		Decision:    DecisionPass,
		Denials:     []string{},
		Warnings:    []string{},
		Passed:      true,
		PoliciesRan: len(e.modules),
		EvaluatedAt: time.Now(),
	}
	if len(e.modules) == 0 {
		return result, nil
	}

	doc, err := toDocument(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy input: %w", err)
	}

	denials, err := collect(ctx, e.deny, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %s: %w", DenyQuery, err)
	}
	warnings, err := collect(ctx, e.warn, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %s: %w", WarnQuery, err)
	}

	result.Denials = append(result.Denials, denials...)
	result.Warnings = append(result.Warnings, warnings...)
	result.Passed = len(result.Denials) == 0

	switch {
	case !result.Passed:
		result.Decision = DecisionDeny
	case len(result.Warnings) > 0:
		result.Decision = DecisionWarn
	}
	return result, nil
}

// Validate compiles every policy in dir on its own and reports the first
// invalid one.
func Validate(ctx context.Context, dir string) error {
	modules, err := readDir(dir)
	if err != nil {
		return err
	}
	for _, name := range sortedNames(modules) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := ast.CompileModules(map[string]string{name: modules[name]}); err != nil {
			return fmt.Errorf("invalid policy %s: %w", name, err)
		}
	}
	return nil
}

func (e *Evaluator) prepare(ctx context.Context, query string) (rego.PreparedEvalQuery, error) {
	opts := []func(*rego.Rego){rego.Query(query)}
	for _, name := range sortedNames(e.modules) {
		opts = append(opts, rego.Module(name, e.modules[name]))
	}
	pq, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("failed to compile policies for %s: %w", query, err)
	}
	return pq, nil
}

func collect(ctx context.Context, pq rego.PreparedEvalQuery, input any) ([]string, error) {
	rs, err := pq.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, err
	}

	var messages []string
	for _, result := range rs {
		for _, expr := range result.Expressions {
			if set, ok := expr.Value.([]interface{}); ok {
				for _, v := range set {
					if msg, ok := v.(string); ok {
						messages = append(messages, msg)
					}
				}
			}
		}
	}
	sort.Strings(messages)
	return messages, nil
}

func readDir(dir string) (map[string]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.rego"))
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	modules := make(map[string]string, len(files))
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		modules[file] = string(content)
	}
	return modules, nil
}

func toDocument(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func sortedNames(modules map[string]string) []string {
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
