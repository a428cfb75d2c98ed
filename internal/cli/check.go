package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ppiankov/sqlscorer/internal/analyzer"
	"github.com/ppiankov/sqlscorer/internal/baseline"
	"github.com/ppiankov/sqlscorer/internal/config"
	"github.com/ppiankov/sqlscorer/internal/postgres"
	"github.com/ppiankov/sqlscorer/internal/reporter"
	"github.com/ppiankov/sqlscorer/internal/scanner"
	"github.com/ppiankov/sqlscorer/internal/store"
	"github.com/ppiankov/sqlscorer/internal/suppress"
)

type checkOptions struct {
	repo           string
	noPlan         bool
	noStore        bool
	baselinePath   string
	updateBaseline string
}

func newCheckCmd(info BuildInfo) *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Scan .sql files, analyze every statement and fail on antipatterns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, info, opts)
		},
	}

	cmd.Flags().StringVar(&opts.repo, "repo", ".", "path to the repository to scan")
	cmd.Flags().String("format", "text", "output format: text, json, sarif or table")
	cmd.Flags().Int("parallel", 0, "number of worker goroutines (0=NumCPU, 1=sequential)")
	cmd.Flags().StringSlice("exclude", nil, "glob patterns of paths to skip")
	cmd.Flags().String("timeout", "", "connect and store timeout, e.g. 30s")
	cmd.Flags().String("plan-timeout", "", "per-statement EXPLAIN timeout, e.g. 10s")
	cmd.Flags().BoolVar(&opts.noPlan, "no-plan", false, "skip execution plan analysis")
	cmd.Flags().BoolVar(&opts.noStore, "no-store", false, "do not persist findings")
	cmd.Flags().StringVar(&opts.baselinePath, "baseline", "", "path to baseline file (suppress known findings)")
	cmd.Flags().StringVar(&opts.updateBaseline, "update-baseline", "", "save current findings as new baseline")

	return cmd
}

func runCheck(cmd *cobra.Command, info BuildInfo, opts checkOptions) error {
	ctx := cmd.Context()
	startedAt := time.Now()

	format, err := reporter.ParseFormat(cfg.Defaults.Format)
	if err != nil {
		return err
	}

	scan, err := scanner.ScanParallel(opts.repo, scanner.Options{Exclude: cfg.Exclude.Paths}, cfg.Defaults.Parallel)
	if err != nil {
		return fmt.Errorf("scan repo: %w", err)
	}
	logScanErrors(&scan)
	slog.Info("scan complete", "files", scan.FilesScanned, "statements", len(scan.Statements))

	registry, err := buildRegistry(cfg.Rules)
	if err != nil {
		return err
	}
	analyzerOpts := []analyzer.Option{analyzer.WithRegistry(registry)}

	if url := planURL(&cfg); url != "" && !opts.noPlan && needsPlan(scan.Statements) {
		explainer, err := connectExplainer(ctx, url)
		if err != nil {
			return err
		}
		defer explainer.Close()
		analyzerOpts = append(analyzerOpts, analyzer.WithProvider(explainer))
	} else {
		slog.Debug("plan analysis skipped", "no_plan", opts.noPlan, "backend", cfg.Backend)
	}

	az := analyzer.New(analyzerOpts...)
	results := az.AnalyzeAll(ctx, scan.Statements, cfg.Defaults.Parallel)

	planErrors := 0
	for i := range results {
		if results[i].PlanError != "" {
			planErrors++
		}
	}

	if opts.updateBaseline != "" {
		if err := baseline.Save(opts.updateBaseline, results); err != nil {
			return fmt.Errorf("save baseline: %w", err)
		}
		slog.Info("baseline saved", "path", opts.updateBaseline)
	}

	results, suppressed, err := filterResults(results, opts.repo, opts.baselinePath)
	if err != nil {
		return err
	}

	agg := analyzer.Aggregate(results)
	runID := uuid.NewString()

	rep := reporter.NewReport("check", info.Version, &agg, az.Catalog(), reporter.Stats{
		FilesScanned: scan.FilesScanned,
		FilesFailed:  scan.FilesFailed,
		Statements:   len(scan.Statements),
		PlanErrors:   planErrors,
		Suppressed:   suppressed,
	})
	rep.Metadata.RunID = runID
	if suppressed > 0 {
		slog.Info("findings filtered", "suppressed", suppressed)
	}

	if err := reporter.Write(cmd.OutOrStdout(), &rep, format); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if !agg.Clean() && !opts.noStore {
		persist(ctx, store.Run{ID: runID, StartedAt: startedAt, Report: agg})
	}

	if code := agg.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// needsPlan reports whether any statement is a SELECT. Without one the plan
// database is never contacted.
func needsPlan(stmts []scanner.Statement) bool {
	for i := range stmts {
		if analyzer.IsSelect(stmts[i].Text) {
			return true
		}
	}
	return false
}

// planURL returns the database used for EXPLAIN: db_url when set, otherwise
// the discrete postgres settings when postgres is the backend.
func planURL(c *config.Config) string {
	if c.DBURL != "" {
		return c.DBURL
	}
	if c.Backend == config.BackendPostgres {
		return c.PostgresURL()
	}
	return ""
}

func connectExplainer(ctx context.Context, url string) (*postgres.Explainer, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.TimeoutDuration())
	defer cancel()

	explainer, err := postgres.NewExplainer(connectCtx, postgres.Config{
		URL:         url,
		PlanTimeout: cfg.PlanTimeoutDuration(),
	})
	if err != nil {
		return nil, fmt.Errorf("plan provider: %w", err)
	}

	if ver, err := explainer.ServerVersion(connectCtx); err == nil {
		slog.Info("connected", "version", ver)
	}
	return explainer, nil
}

// buildRegistry returns the built-in rules followed by the configured pattern rules.
func buildRegistry(rules []config.RuleConfig) (*analyzer.Registry, error) {
	registry := analyzer.DefaultRegistry()
	for _, rc := range rules {
		rule, err := analyzer.NewPatternRule(rc.Name, rc.Prefix, rc.Pattern, analyzer.Severity(rc.Severity), rc.Description)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(rule); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// filterResults applies baseline and suppression rules to results.
func filterResults(results []analyzer.AnalysisResult, repo, baselinePath string) ([]analyzer.AnalysisResult, int, error) {
	total := 0

	if baselinePath != "" {
		bl, err := baseline.Load(baselinePath)
		if err != nil {
			return nil, 0, fmt.Errorf("load baseline: %w", err)
		}
		var n int
		results, n = bl.Filter(results)
		total += n
	}

	rules, err := suppress.LoadRules(repo)
	if err != nil {
		return nil, 0, fmt.Errorf("load suppress rules: %w", err)
	}
	rules.WithConfigFindings(cfg.Exclude.Findings)

	var n int
	results, n = rules.Filter(results)
	total += n

	return results, total, nil
}

// persist stores a dirty run. Failures are logged and never change the verdict.
func persist(ctx context.Context, run store.Run) {
	ctx, cancel := context.WithTimeout(ctx, cfg.TimeoutDuration())
	defer cancel()

	sink, err := store.Open(ctx, cfg)
	if err != nil {
		logPersistError(err)
		return
	}
	defer func() { _ = sink.Close() }()

	if err := sink.Store(ctx, run); err != nil {
		logPersistError(err)
	}
}

func logPersistError(err error) {
	backend := cfg.Backend
	var pe *store.PersistenceError
	if errors.As(err, &pe) {
		backend = pe.Backend
	}
	slog.Warn("could not persist findings", "backend", backend, "error", err)
}

func logScanErrors(scan *scanner.ScanResult) {
	for _, e := range scan.Errors {
		slog.Warn("could not read source file", "file", e.Path, "error", e.Err)
	}
}
