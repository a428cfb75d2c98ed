// Package reporter renders analysis reports for humans and CI tooling.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ppiankov/sqlscorer/internal/analyzer"
)

// Format controls report output format.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
	FormatTable Format = "table"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatSARIF, FormatTable:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json, sarif or table)", s)
	}
}

// Metadata holds report context.
type Metadata struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	Command   string `json:"command"`
	RunID     string `json:"runId,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Stats describes the run that produced the report.
type Stats struct {
	FilesScanned int
	FilesFailed  int
	Statements   int
	PlanErrors   int
	Suppressed   int
}

// Summary counts statements and findings by severity.
type Summary struct {
	FilesScanned    int `json:"filesScanned"`
	FilesFailed     int `json:"filesFailed"`
	Statements      int `json:"statements"`
	DirtyStatements int `json:"dirtyStatements"`
	PlanErrors      int `json:"planErrors"`
	Suppressed      int `json:"suppressed"`
	Total           int `json:"total"`
	High            int `json:"high"`
	Medium          int `json:"medium"`
	Low             int `json:"low"`
	Info            int `json:"info"`
}

// Entry is one dirty statement with its findings resolved against the catalog.
type Entry struct {
	File      string         `json:"file"`
	Line      int            `json:"line"`
	Query     string         `json:"query"`
	Findings  []FindingEntry `json:"findings"`
	PlanError string         `json:"planError,omitempty"`
}

// FindingEntry is a finding name with its severity and description.
type FindingEntry struct {
	Name        analyzer.Finding  `json:"name"`
	Severity    analyzer.Severity `json:"severity"`
	Description string            `json:"description"`
}

// Report is the top-level check output.
type Report struct {
	Metadata    Metadata          `json:"metadata"`
	Clean       bool              `json:"clean"`
	Results     []Entry           `json:"results"`
	MaxSeverity analyzer.Severity `json:"maxSeverity"`
	Summary     Summary           `json:"summary"`
}

// NewReport resolves every finding of the aggregated report against catalog.
func NewReport(command, version string, report *analyzer.Report, catalog analyzer.Catalog, stats Stats) Report {
	summary := Summary{
		FilesScanned:    stats.FilesScanned,
		FilesFailed:     stats.FilesFailed,
		Statements:      stats.Statements,
		DirtyStatements: len(report.Results),
		PlanErrors:      stats.PlanErrors,
		Suppressed:      stats.Suppressed,
		Total:           report.FindingCount(),
	}

	entries := make([]Entry, 0, len(report.Results))
	for i := range report.Results {
		r := &report.Results[i]
		e := Entry{
			File:      r.Statement.Source,
			Line:      r.Statement.Line,
			Query:     r.Statement.Text,
			Findings:  make([]FindingEntry, 0, len(r.Findings)),
			PlanError: r.PlanError,
		}
		for _, f := range r.Findings {
			info := catalog.Lookup(f)
			e.Findings = append(e.Findings, FindingEntry{Name: f, Severity: info.Severity, Description: info.Description})

			switch info.Severity {
			case analyzer.SeverityHigh:
				summary.High++
			case analyzer.SeverityMedium:
				summary.Medium++
			case analyzer.SeverityLow:
				summary.Low++
			case analyzer.SeverityInfo:
				summary.Info++
			}
		}
		entries = append(entries, e)
	}

	return Report{
		Metadata: Metadata{
			Tool:      "sqlscorer",
			Version:   version,
			Command:   command,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		Clean:       report.Clean(),
		Results:     entries,
		MaxSeverity: analyzer.MaxSeverity(report, catalog),
		Summary:     summary,
	}
}

// Write outputs the report in the given format.
func Write(w io.Writer, report *Report, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatSARIF:
		return writeSARIF(w, report)
	case FormatTable:
		return writeTable(w, report)
	default:
		return writeText(w, report)
	}
}

func writeJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
