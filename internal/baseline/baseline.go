// Package baseline records accepted findings so later runs only fail on new ones.
package baseline

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/sqlscorer/internal/analyzer"
	"github.com/ppiankov/sqlscorer/internal/scanner"
)

// Baseline holds fingerprints of previously accepted findings.
type Baseline struct {
	Fingerprints []string `json:"fingerprints"`
	set          map[string]bool
}

// Load reads a baseline file. Returns an empty baseline if the file does not exist.
func Load(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Baseline{set: make(map[string]bool)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse baseline: %w", err)
	}
	b.set = make(map[string]bool, len(b.Fingerprints))
	for _, fp := range b.Fingerprints {
		b.set[fp] = true
	}
	return &b, nil
}

// Save writes the fingerprint of every finding in results to path.
func Save(path string, results []analyzer.AnalysisResult) error {
	fps := make([]string, 0)
	seen := make(map[string]bool)
	for i := range results {
		for _, f := range results[i].Findings {
			fp := Fingerprint(&results[i].Statement, f)
			if !seen[fp] {
				fps = append(fps, fp)
				seen[fp] = true
			}
		}
	}
	sort.Strings(fps)

	b := Baseline{Fingerprints: fps}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// Contains reports whether finding f on stmt is baselined.
func (b *Baseline) Contains(stmt *scanner.Statement, f analyzer.Finding) bool {
	return b.set[Fingerprint(stmt, f)]
}

// Filter removes baselined findings. Results keep their order, and a result
// whose findings are all baselined is returned clean. Returns the filtered
// results and the number of suppressed findings.
func (b *Baseline) Filter(results []analyzer.AnalysisResult) ([]analyzer.AnalysisResult, int) {
	if len(b.set) == 0 {
		return results, 0
	}

	out := make([]analyzer.AnalysisResult, len(results))
	suppressed := 0
	for i := range results {
		out[i] = results[i]
		kept := make([]analyzer.Finding, 0, len(results[i].Findings))
		for _, f := range results[i].Findings {
			if b.Contains(&results[i].Statement, f) {
				suppressed++
				continue
			}
			kept = append(kept, f)
		}
		out[i].Findings = kept
	}
	return out, suppressed
}

// Fingerprint computes a stable identifier for a finding on a statement.
// Line numbers are excluded so edits above a statement do not invalidate it.
func Fingerprint(stmt *scanner.Statement, f analyzer.Finding) string {
	key := fmt.Sprintf("%s|%s|%s", stmt.Source, normalize(stmt.Text), f)
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h[:16])
}

// normalize collapses whitespace runs.
func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
