package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sqlscorer/internal/config"
	"github.com/ppiankov/sqlscorer/internal/logging"
)

// BuildInfo holds version metadata injected via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// ExitError signals a non-zero exit without an error message of its own.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

var (
	verbose   bool
	logFormat string
	cfg       config.Config
)

func newRootCmd(info BuildInfo) *cobra.Command {
	root := &cobra.Command{
		Use:           "sqlscorer",
		Short:         "SQL antipattern analyzer for CI",
		Long:          "Scans a repository for .sql files, flags unguarded writes and costly query plans, and exits non-zero when antipatterns are found.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.Init(verbose, logFormat, cmd.ErrOrStderr()); err != nil {
				return err
			}

			cwd, err := os.Getwd()
			if err != nil {
				cwd = "."
			}
			cfg, err = config.Load(cwd, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			slog.Debug("config loaded", "file", cfg.File, "backend", cfg.Backend)
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug-level logging")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	root.PersistentFlags().String("backend", "", "result store: postgres, mongo, sqlite or none (or set SCORER_DB)")
	root.PersistentFlags().String("db-url", "", "PostgreSQL URL for plans and storage (or set SQLSCORER_DB_URL)")

	root.AddCommand(newVersionCmd(info))
	root.AddCommand(newCheckCmd(info))
	root.AddCommand(newScanCmd())
	root.AddCommand(newRulesCmd())
	root.AddCommand(newMigrateCmd())

	return root
}

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "sqlscorer %s (commit %s, built %s)\n", info.Version, info.Commit, info.Date)
			return err
		},
	}
}

// Execute runs the root command.
func Execute(version, commit, date string) error {
	return newRootCmd(BuildInfo{Version: version, Commit: commit, Date: date}).Execute()
}
