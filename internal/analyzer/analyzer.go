package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/sqlscorer/internal/plan"
	"github.com/ppiankov/sqlscorer/internal/scanner"
)

// PlanProvider supplies the execution plan for a SELECT statement.
// Timeouts and retries are the provider's concern; the analyzer only sees
// success or failure.
type PlanProvider interface {
	Plan(ctx context.Context, text string) (*plan.Node, error)
}

// PlanProviderFunc adapts a function to PlanProvider.
type PlanProviderFunc func(ctx context.Context, text string) (*plan.Node, error)

// Plan calls f.
func (f PlanProviderFunc) Plan(ctx context.Context, text string) (*plan.Node, error) {
	return f(ctx, text)
}

// ErrPlanUnavailable matches every PlanUnavailableError.
var ErrPlanUnavailable = errors.New("plan unavailable")

// PlanUnavailableError wraps connectivity failures, engine rejections and
// shape mismatches from a PlanProvider.
type PlanUnavailableError struct {
	Cause error
}

func (e *PlanUnavailableError) Error() string {
	return "plan unavailable: " + e.Cause.Error()
}

func (e *PlanUnavailableError) Unwrap() error { return e.Cause }

func (e *PlanUnavailableError) Is(target error) bool { return target == ErrPlanUnavailable }

// Analyzer runs the rule set on every statement and, for SELECT statements,
// walks the execution plan from the provider.
type Analyzer struct {
	rules    *Registry
	walker   *Walker
	provider PlanProvider
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRegistry replaces the built-in rule registry.
func WithRegistry(r *Registry) Option {
	return func(a *Analyzer) { a.rules = r }
}

// WithWalker replaces the built-in plan walker.
func WithWalker(w *Walker) Option {
	return func(a *Analyzer) { a.walker = w }
}

// WithProvider enables plan analysis. A nil provider disables it.
func WithProvider(p PlanProvider) Option {
	return func(a *Analyzer) { a.provider = p }
}

// New returns an analyzer with the built-in rules and node rules.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		rules:  DefaultRegistry(),
		walker: DefaultWalker(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Registry returns the analyzer's rule registry.
func (a *Analyzer) Registry() *Registry { return a.rules }

// Walker returns the analyzer's plan walker.
func (a *Analyzer) Walker() *Walker { return a.walker }

// Catalog describes every finding the analyzer can produce.
func (a *Analyzer) Catalog() Catalog {
	c := make(Catalog)
	for _, r := range a.rules.Rules() {
		c[r.Name] = Info{Severity: r.Severity, Description: r.Description}
	}
	for _, r := range a.walker.Rules() {
		if _, ok := c[r.Finding]; !ok {
			c[r.Finding] = Info{Severity: r.Severity, Description: r.Description}
		}
	}
	return c
}

// IsSelect reports whether text, left-trimmed and uppercased, starts with SELECT.
func IsSelect(text string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimLeftFunc(text, unicode.IsSpace)), "SELECT")
}

// Analyze returns the findings for one statement. Plan failures are logged
// and recorded on the result; syntactic findings are always kept.
func (a *Analyzer) Analyze(ctx context.Context, stmt scanner.Statement) AnalysisResult {
	result := AnalysisResult{
		Statement: stmt,
		Findings:  a.rules.Evaluate(stmt.Text),
	}

	if !IsSelect(stmt.Text) {
		if len(result.Findings) > 0 {
			slog.Debug("antipatterns found in non-SELECT statement, skipping plan analysis",
				"file", stmt.Source, "line", stmt.Line)
		}
		return result
	}
	if a.provider == nil {
		return result
	}

	node, err := a.requestPlan(ctx, stmt.Text)
	if err != nil {
		slog.Warn("could not analyze query plan", "file", stmt.Source, "line", stmt.Line, "error", err)
		result.PlanError = err.Error()
		return result
	}

	result.Findings = append(result.Findings, a.walker.Walk(node)...)
	return result
}

func (a *Analyzer) requestPlan(ctx context.Context, text string) (node *plan.Node, err error) {
	defer func() {
		if p := recover(); p != nil {
			node = nil
			err = &PlanUnavailableError{Cause: fmt.Errorf("provider panic: %v", p)}
		}
	}()

	node, err = a.provider.Plan(ctx, text)
	if err != nil {
		return nil, &PlanUnavailableError{Cause: err}
	}
	if node == nil {
		return nil, &PlanUnavailableError{Cause: plan.ErrShape}
	}
	return node, nil
}

// AnalyzeAll analyzes statements with up to workers goroutines and returns
// results in input order. workers<=0 means runtime.NumCPU().
func (a *Analyzer) AnalyzeAll(ctx context.Context, stmts []scanner.Statement, workers int) []AnalysisResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]AnalysisResult, len(stmts))
	var g errgroup.Group
	g.SetLimit(workers)

	for i := range stmts {
		g.Go(func() error {
			results[i] = a.Analyze(ctx, stmts[i])
			return nil
		})
	}
	_ = g.Wait()

	return results
}
