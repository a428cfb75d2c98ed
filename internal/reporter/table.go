package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ppiankov/sqlscorer/internal/analyzer"
)

var severityRank = map[analyzer.Severity]int{
	analyzer.SeverityInfo:   0,
	analyzer.SeverityLow:    1,
	analyzer.SeverityMedium: 2,
	analyzer.SeverityHigh:   3,
}

func writeTable(w io.Writer, report *Report) error {
	if report.Clean {
		_, err := fmt.Fprintln(w, "No anti-patterns found")
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"File", "Line", "Severity", "Findings", "Query"})

	for _, e := range report.Results {
		names := make([]string, len(e.Findings))
		worst := analyzer.SeverityInfo
		for i, f := range e.Findings {
			names[i] = string(f.Name)
			if severityRank[f.Severity] > severityRank[worst] {
				worst = f.Severity
			}
		}
		t.AppendRow(table.Row{e.File, e.Line, string(worst), strings.Join(names, "\n"), oneLine(e.Query, 60)})
	}

	s := report.Summary
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d findings", s.Total), fmt.Sprintf("%d of %d statements", s.DirtyStatements, s.Statements)})
	t.Render()
	return nil
}
