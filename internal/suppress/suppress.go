// Package suppress applies ignore-file, config and inline suppressions.
package suppress

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/ppiankov/sqlscorer/internal/analyzer"
	"github.com/ppiankov/sqlscorer/internal/scanner"
)

// FileName is the ignore file looked up in the repository root.
const FileName = ".sqlscorer-ignore.yml"

// InlineMarker suppresses every finding of the statement that contains it.
const InlineMarker = "sqlscorer:ignore"

// Suppression is a single rule in the ignore file.
// An empty File matches every file; an empty Finding matches every finding.
type Suppression struct {
	File    string `yaml:"file,omitempty"`
	Finding string `yaml:"finding,omitempty"`
	Reason  string `yaml:"reason,omitempty"`
}

// IgnoreFile is the structure of .sqlscorer-ignore.yml.
type IgnoreFile struct {
	Suppressions []Suppression `yaml:"suppressions"`
}

// Rules holds loaded suppression rules from all sources.
type Rules struct {
	ignoreFile IgnoreFile
	// Finding names from config exclude.findings
	configFindings []string
}

// LoadRules loads suppression rules from .sqlscorer-ignore.yml in the given directory.
func LoadRules(dir string) (*Rules, error) {
	r := &Rules{}

	p := filepath.Join(dir, FileName)
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", FileName, err)
	}

	if err := yaml.Unmarshal(data, &r.ignoreFile); err != nil {
		return nil, fmt.Errorf("parse %s: %w", FileName, err)
	}
	for i, s := range r.ignoreFile.Suppressions {
		if s.File == "" && s.Finding == "" {
			return nil, fmt.Errorf("%s: suppression %d needs a file or a finding", FileName, i)
		}
		if s.File != "" {
			if _, err := path.Match(s.File, ""); err != nil {
				return nil, fmt.Errorf("%s: suppression %d: bad file pattern %q: %w", FileName, i, s.File, err)
			}
		}
	}
	return r, nil
}

// WithConfigFindings adds finding-name suppressions from config.
func (r *Rules) WithConfigFindings(findings []string) {
	r.configFindings = findings
}

// IsSuppressed reports whether finding f on stmt should be dropped.
func (r *Rules) IsSuppressed(stmt *scanner.Statement, f analyzer.Finding) bool {
	if HasInlineIgnore(stmt.Text) {
		return true
	}

	for _, name := range r.configFindings {
		if strings.EqualFold(string(f), name) {
			return true
		}
	}

	for _, s := range r.ignoreFile.Suppressions {
		if s.Finding != "" && !strings.EqualFold(s.Finding, string(f)) {
			continue
		}
		if s.File == "" || matchFile(s.File, stmt.Source) {
			return true
		}
	}

	return false
}

// Filter removes suppressed findings. Results keep their order, and a result
// whose findings are all suppressed is returned clean. Returns the filtered
// results and the number of suppressed findings.
func (r *Rules) Filter(results []analyzer.AnalysisResult) ([]analyzer.AnalysisResult, int) {
	out := make([]analyzer.AnalysisResult, len(results))
	suppressed := 0
	for i := range results {
		out[i] = results[i]
		if len(results[i].Findings) == 0 {
			continue
		}
		kept := make([]analyzer.Finding, 0, len(results[i].Findings))
		for _, f := range results[i].Findings {
			if r.IsSuppressed(&results[i].Statement, f) {
				suppressed++
				continue
			}
			kept = append(kept, f)
		}
		out[i].Findings = kept
	}
	return out, suppressed
}

// matchFile matches a slash-separated source path against a glob. Patterns
// without a slash also match the base name, and a trailing "/" or "/*"
// prefix-matches a directory.
func matchFile(pattern, source string) bool {
	if strings.HasSuffix(pattern, "/") || strings.HasSuffix(pattern, "/*") {
		dir := strings.TrimSuffix(strings.TrimSuffix(pattern, "*"), "/")
		if strings.HasPrefix(source, dir+"/") {
			return true
		}
	}
	if ok, _ := path.Match(pattern, source); ok {
		return true
	}
	if !strings.Contains(pattern, "/") {
		ok, _ := path.Match(pattern, path.Base(source))
		return ok
	}
	return false
}

// HasInlineIgnore returns true if text contains a sqlscorer:ignore comment.
func HasInlineIgnore(text string) bool {
	return strings.Contains(text, InlineMarker)
}
