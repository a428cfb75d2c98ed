package suppress

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/sqlscorer/internal/analyzer"
	"github.com/ppiankov/sqlscorer/internal/scanner"
)

func writeIgnore(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadRules_NoFile(t *testing.T) {
	rules, err := LoadRules(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(rules.ignoreFile.Suppressions) != 0 {
		t.Error("expected empty rules")
	}
}

func TestLoadRules_ValidFile(t *testing.T) {
	dir := t.TempDir()
	writeIgnore(t, dir, `suppressions:
  - file: seeds/*.sql
    reason: "Seed data is truncated on purpose"
  - file: reports/daily.sql
    finding: sequential_scan
    reason: "Full table report"
  - finding: nested_loop
`)

	rules, err := LoadRules(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(rules.ignoreFile.Suppressions) != 3 {
		t.Fatalf("expected 3 suppressions, got %d", len(rules.ignoreFile.Suppressions))
	}
}

func TestLoadRules_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeIgnore(t, dir, "{{invalid")

	if _, err := LoadRules(dir); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadRules_RejectsEmptyOrBadEntries(t *testing.T) {
	for _, content := range []string{
		"suppressions:\n  - reason: nothing to match\n",
		"suppressions:\n  - file: \"[bad\"\n",
	} {
		dir := t.TempDir()
		writeIgnore(t, dir, content)
		if _, err := LoadRules(dir); err == nil {
			t.Errorf("expected error for %q", content)
		}
	}
}

func TestIsSuppressed(t *testing.T) {
	rules := &Rules{
		ignoreFile: IgnoreFile{Suppressions: []Suppression{
			{File: "seeds/*.sql"},
			{File: "reports/daily.sql", Finding: "sequential_scan"},
			{File: "legacy/"},
			{File: "scratch_*.sql"},
		}},
		configFindings: []string{"NESTED_LOOP"},
	}

	tests := []struct {
		name    string
		source  string
		text    string
		finding analyzer.Finding
		want    bool
	}{
		{"file glob", "seeds/users.sql", "DELETE FROM users", analyzer.FindingMissingWhereDelete, true},
		{"glob does not cross directories", "seeds/nested/x.sql", "DELETE FROM t", analyzer.FindingMissingWhereDelete, false},
		{"file and finding", "reports/daily.sql", "SELECT * FROM t", analyzer.FindingSequentialScan, true},
		{"file but other finding", "reports/daily.sql", "DELETE FROM t", analyzer.FindingMissingWhereDelete, false},
		{"directory prefix", "legacy/a/b.sql", "DELETE FROM t", analyzer.FindingMissingWhereDelete, true},
		{"base name pattern", "deep/dir/scratch_1.sql", "DELETE FROM t", analyzer.FindingMissingWhereDelete, true},
		{"config finding case-insensitive", "app/q.sql", "SELECT 1", analyzer.FindingNestedLoop, true},
		{"inline ignore", "app/q.sql", "DELETE FROM t -- sqlscorer:ignore", analyzer.FindingMissingWhereDelete, true},
		{"no match", "app/q.sql", "DELETE FROM t", analyzer.FindingMissingWhereDelete, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := scanner.Statement{Source: tt.source, Text: tt.text}
			if got := rules.IsSuppressed(&stmt, tt.finding); got != tt.want {
				t.Errorf("IsSuppressed(%s, %s) = %v, want %v", tt.source, tt.finding, got, tt.want)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	rules := &Rules{}
	rules.WithConfigFindings([]string{"sequential_scan"})

	in := []analyzer.AnalysisResult{
		{
			Statement: scanner.Statement{Source: "a.sql", Text: "SELECT * FROM t"},
			Findings:  []analyzer.Finding{analyzer.FindingNestedLoop, analyzer.FindingSequentialScan},
		},
		{
			Statement: scanner.Statement{Source: "b.sql", Text: "SELECT * FROM u"},
			Findings:  []analyzer.Finding{analyzer.FindingSequentialScan},
		},
		{
			Statement: scanner.Statement{Source: "c.sql", Text: "SELECT 1"},
		},
	}

	out, n := rules.Filter(in)
	if n != 2 {
		t.Errorf("suppressed = %d, want 2", n)
	}
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if len(out[0].Findings) != 1 || out[0].Findings[0] != analyzer.FindingNestedLoop {
		t.Errorf("a.sql findings = %v", out[0].Findings)
	}
	if !out[1].Clean() {
		t.Errorf("b.sql should be clean, got %v", out[1].Findings)
	}
	if len(in[1].Findings) != 1 {
		t.Error("Filter must not modify its input")
	}
}

func TestHasInlineIgnore(t *testing.T) {
	if !HasInlineIgnore("UPDATE t SET x = 1 /* sqlscorer:ignore */") {
		t.Error("expected inline ignore")
	}
	if HasInlineIgnore("UPDATE t SET x = 1") {
		t.Error("unexpected inline ignore")
	}
}
