package reporter

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ppiankov/sqlscorer/internal/analyzer"
	"github.com/ppiankov/sqlscorer/internal/scanner"
)

func TestWriteSARIF_ValidStructure(t *testing.T) {
	r := NewReport("check", "0.1.0", testReport(), testCatalog, Stats{})
	var buf bytes.Buffer
	if err := Write(&buf, &r, FormatSARIF); err != nil {
		t.Fatal(err)
	}

	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid SARIF JSON: %v\n%s", err, buf.String())
	}

	if log.Version != "2.1.0" {
		t.Errorf("version = %q, want 2.1.0", log.Version)
	}
	if len(log.Runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(log.Runs))
	}

	run := log.Runs[0]
	if run.Tool.Driver.Name != "sqlscorer" || run.Tool.Driver.Version != "0.1.0" {
		t.Errorf("driver = %+v", run.Tool.Driver)
	}
	if len(run.Tool.Driver.Rules) != 3 {
		t.Errorf("rules = %d, want 3", len(run.Tool.Driver.Rules))
	}
	if len(run.Results) != 3 {
		t.Fatalf("expected one result per finding, got %d", len(run.Results))
	}

	r0 := run.Results[0]
	if r0.RuleID != "sqlscorer/missing_where_delete" {
		t.Errorf("ruleId = %q", r0.RuleID)
	}
	if r0.Level != "error" {
		t.Errorf("level = %q, want error", r0.Level)
	}
	loc := r0.Locations[0].PhysicalLocation
	if loc.ArtifactLocation.URI != "queries/a.sql" || loc.Region.StartLine != 3 {
		t.Errorf("location = %+v", loc)
	}

	if run.Results[1].Level != "warning" || run.Results[2].Level != "note" {
		t.Errorf("levels = %q, %q", run.Results[1].Level, run.Results[2].Level)
	}
	if run.Results[2].Locations[0].PhysicalLocation.Region.StartLine != 10 {
		t.Error("both findings of a statement should share its line")
	}
}

func TestWriteSARIF_Empty(t *testing.T) {
	r := NewReport("check", "test", &analyzer.Report{}, testCatalog, Stats{})
	var buf bytes.Buffer
	if err := Write(&buf, &r, FormatSARIF); err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	runs := raw["runs"].([]any)
	run := runs[0].(map[string]any)
	results, ok := run["results"].([]any)
	if !ok {
		t.Fatalf("results should be an empty array, got %T", run["results"])
	}
	if len(results) != 0 {
		t.Errorf("results = %d, want 0", len(results))
	}
}

func TestWriteSARIF_LineClampedToOne(t *testing.T) {
	report := &analyzer.Report{Results: []analyzer.AnalysisResult{{
		Statement: scanner.Statement{Source: "x.sql", Line: 0, Text: "DELETE FROM t"},
		Findings:  []analyzer.Finding{analyzer.FindingMissingWhereDelete},
	}}}
	r := NewReport("check", "test", report, testCatalog, Stats{})
	var buf bytes.Buffer
	if err := Write(&buf, &r, FormatSARIF); err != nil {
		t.Fatal(err)
	}
	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatal(err)
	}
	if got := log.Runs[0].Results[0].Locations[0].PhysicalLocation.Region.StartLine; got != 1 {
		t.Errorf("startLine = %d, want 1", got)
	}
}
