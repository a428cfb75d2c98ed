package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

const maxQueryWidth = 100

func writeText(w io.Writer, report *Report) error {
	p := newPalette(w)

	if report.Clean {
		_, err := fmt.Fprintln(w, p.paint("No anti-patterns found", color.FgGreen))
		return err
	}

	if _, err := fmt.Fprintln(w, p.paint("Found anti-patterns:", color.FgRed, color.Bold)); err != nil {
		return err
	}

	for _, e := range report.Results {
		names := make([]string, len(e.Findings))
		for i, f := range e.Findings {
			names[i] = p.severity(f.Severity, string(f.Name))
		}
		if _, err := fmt.Fprintf(w, "- %s:%d :: [%s]\n", e.File, e.Line, strings.Join(names, ", ")); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "    %s\n", p.paint(oneLine(e.Query, maxQueryWidth), color.FgCyan)); err != nil {
			return err
		}
		if e.PlanError != "" {
			if _, err := fmt.Fprintf(w, "    plan: %s\n", e.PlanError); err != nil {
				return err
			}
		}
	}

	s := report.Summary
	_, err := fmt.Fprintf(w, "\nSummary: %d findings in %d of %d statements (high=%d medium=%d low=%d info=%d)\n",
		s.Total, s.DirtyStatements, s.Statements, s.High, s.Medium, s.Low, s.Info)
	return err
}

// oneLine collapses whitespace and truncates to max runes.
func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > max {
		return string(r[:max]) + "..."
	}
	return s
}
