package analyzer

import "github.com/ppiankov/sqlscorer/internal/scanner"

// Severity indicates the risk level of a finding.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
	SeverityInfo   Severity = "info"
)

// Finding names one detected antipattern, e.g. "missing_where_delete".
type Finding string

const (
	FindingMissingWhereDelete Finding = "missing_where_delete"
	FindingMissingWhereUpdate Finding = "missing_where_update"
	FindingSequentialScan     Finding = "sequential_scan"
	FindingNestedLoop         Finding = "nested_loop"
)

// AnalysisResult holds the findings for one statement, syntactic findings
// first, then plan-derived findings in traversal order.
type AnalysisResult struct {
	Statement scanner.Statement `json:"statement"`
	Findings  []Finding         `json:"findings"`
	// PlanError carries the contained plan failure, if any.
	PlanError string `json:"planError,omitempty"`
}

// Clean reports whether the statement produced no findings.
func (r *AnalysisResult) Clean() bool {
	return len(r.Findings) == 0
}

// Report is the ordered set of dirty results that decides the CI verdict.
type Report struct {
	Results []AnalysisResult `json:"results"`
}

// Clean reports whether no statement has findings.
func (r *Report) Clean() bool {
	return len(r.Results) == 0
}

// FindingCount returns the total number of findings across all results.
func (r *Report) FindingCount() int {
	n := 0
	for i := range r.Results {
		n += len(r.Results[i].Findings)
	}
	return n
}

// ExitCode maps the report verdict to a CLI exit code.
func (r *Report) ExitCode() int {
	if r.Clean() {
		return 0
	}
	return 1
}

// Info describes a finding name for reporting.
type Info struct {
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// Catalog maps finding names to their descriptions.
type Catalog map[Finding]Info

// Lookup returns the info for f. Unknown names default to medium severity
// with the name as the description.
func (c Catalog) Lookup(f Finding) Info {
	if info, ok := c[f]; ok {
		return info
	}
	return Info{Severity: SeverityMedium, Description: string(f)}
}

var severityOrder = map[Severity]int{
	SeverityInfo:   0,
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
}

// MaxSeverity returns the highest severity among the report's findings.
func MaxSeverity(report *Report, catalog Catalog) Severity {
	max := SeverityInfo
	for i := range report.Results {
		for _, f := range report.Results[i].Findings {
			s := catalog.Lookup(f).Severity
			if severityOrder[s] > severityOrder[max] {
				max = s
			}
		}
	}
	return max
}

// ParseSeverity normalizes a severity name. Unknown names return false.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(s)
	_, ok := severityOrder[sev]
	return sev, ok
}
