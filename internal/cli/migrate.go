package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sqlscorer/internal/config"
	"github.com/ppiankov/sqlscorer/internal/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the result store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Backend == config.BackendNone {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Backend none: nothing to migrate.")
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.TimeoutDuration())
			defer cancel()

			// Open applies pending migrations.
			sink, err := store.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = sink.Close() }()

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied (backend %s).\n", cfg.Backend)
			return err
		},
	}
}
