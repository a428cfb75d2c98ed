package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/ppiankov/sqlscorer/internal/analyzer"
)

// SARIF 2.1.0 types, minimal subset for code scanning upload.

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string            `json:"id"`
	ShortDescription sarifMessage      `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaults `json:"defaultConfiguration"`
}

type sarifRuleDefaults struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

const rulePrefix = "sqlscorer/"

var severityToLevel = map[analyzer.Severity]string{
	analyzer.SeverityHigh:   "error",
	analyzer.SeverityMedium: "warning",
	analyzer.SeverityLow:    "note",
	analyzer.SeverityInfo:   "note",
}

func level(s analyzer.Severity) string {
	if l, ok := severityToLevel[s]; ok {
		return l
	}
	return "note"
}

func writeSARIF(w io.Writer, report *Report) error {
	rules := make([]sarifRule, 0)
	seen := make(map[analyzer.Finding]bool)
	results := make([]sarifResult, 0)

	for _, e := range report.Results {
		for _, f := range e.Findings {
			if !seen[f.Name] {
				seen[f.Name] = true
				rules = append(rules, sarifRule{
					ID:               rulePrefix + string(f.Name),
					ShortDescription: sarifMessage{Text: f.Description},
					DefaultConfig:    sarifRuleDefaults{Level: level(f.Severity)},
				})
			}

			line := e.Line
			if line < 1 {
				line = 1
			}
			results = append(results, sarifResult{
				RuleID:  rulePrefix + string(f.Name),
				Level:   level(f.Severity),
				Message: sarifMessage{Text: fmt.Sprintf("%s: %s", f.Description, oneLine(e.Query, maxQueryWidth))},
				Locations: []sarifLocation{{
					PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifactLocation{URI: filepath.ToSlash(e.File)},
						Region:           sarifRegion{StartLine: line},
					},
				}},
			})
		}
	}

	log := sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:           "sqlscorer",
				Version:        report.Metadata.Version,
				InformationURI: "https://github.com/ppiankov/sqlscorer",
				Rules:          rules,
			}},
			Results: results,
		}},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(log); err != nil {
		return fmt.Errorf("encode SARIF: %w", err)
	}
	return nil
}
