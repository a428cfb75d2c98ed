package cli

import (
	"encoding/json"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ppiankov/sqlscorer/internal/analyzer"
)

type ruleRow struct {
	Name        analyzer.Finding  `json:"name"`
	Kind        string            `json:"kind"`
	Match       string            `json:"match,omitempty"`
	Severity    analyzer.Severity `json:"severity"`
	Description string            `json:"description"`
}

func newRulesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List syntactic rules and plan node rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := buildRegistry(cfg.Rules)
			if err != nil {
				return err
			}
			az := analyzer.New(analyzer.WithRegistry(registry))
			return writeRules(cmd.OutOrStdout(), listRules(az), format)
		},
	}

	cmd.Flags().StringVar(&format, "output", "table", "output format: table or json")
	return cmd
}

func listRules(az *analyzer.Analyzer) []ruleRow {
	var rows []ruleRow
	for _, r := range az.Registry().Rules() {
		rows = append(rows, ruleRow{Name: r.Name, Kind: "statement", Severity: r.Severity, Description: r.Description})
	}
	for _, r := range az.Walker().Rules() {
		rows = append(rows, ruleRow{Name: r.Finding, Kind: "plan", Match: r.NodeType, Severity: r.Severity, Description: r.Description})
	}
	return rows
}

func writeRules(w io.Writer, rows []ruleRow, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Kind", "Node Type", "Severity", "Description"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Name, r.Kind, r.Match, r.Severity, r.Description})
	}
	t.Render()
	return nil
}
