package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sqlscorer/internal/scanner"
)

func newScanCmd() *cobra.Command {
	var repo string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List the SQL statements found in a repository (no database required)",
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Debug("scanning repo", "path", repo)
			result, err := scanner.ScanParallel(repo, scanner.Options{Exclude: cfg.Exclude.Paths}, cfg.Defaults.Parallel)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			logScanErrors(&result)
			slog.Info("scan complete",
				"files", result.FilesScanned,
				"skipped", result.FilesSkipped,
				"failed", result.FilesFailed,
				"statements", len(result.Statements))

			return writeScanResult(cmd.OutOrStdout(), &result, cfg.Defaults.Format)
		},
	}

	cmd.Flags().StringVar(&repo, "repo", ".", "path to the repository to scan")
	cmd.Flags().String("format", "text", "output format: text or json")
	cmd.Flags().Int("parallel", 0, "number of scanner goroutines (0=NumCPU, 1=sequential)")
	cmd.Flags().StringSlice("exclude", nil, "glob patterns of paths to skip")

	return cmd
}

func writeScanResult(w io.Writer, result *scanner.ScanResult, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return writeScanResultText(w, result)
}

func writeScanResultText(w io.Writer, result *scanner.ScanResult) error {
	if len(result.Statements) == 0 {
		_, err := fmt.Fprintln(w, "No SQL statements found.")
		return err
	}

	_, _ = fmt.Fprintf(w, "Statements (%d):\n", len(result.Statements))
	for _, s := range result.Statements {
		loc := fmt.Sprintf("%s:%d", s.Source, s.Line)
		_, _ = fmt.Fprintf(w, "  %-30s %s\n", loc, strings.Join(strings.Fields(s.Text), " "))
	}

	_, err := fmt.Fprintf(w, "\nSummary: %d statements in %d files (%d unreadable)\n",
		len(result.Statements), result.FilesScanned, result.FilesFailed)
	return err
}
