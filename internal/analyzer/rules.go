package analyzer

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Predicate reports whether a statement's raw text matches a rule.
type Predicate func(text string) bool

// Rule is a named syntactic check over raw statement text.
type Rule struct {
	Name        Finding
	Severity    Severity
	Description string
	Match       Predicate
}

// RuleEvaluationError describes a predicate that panicked.
type RuleEvaluationError struct {
	Rule  Finding
	Panic any
}

func (e *RuleEvaluationError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.Rule, e.Panic)
}

// Registry is an ordered set of rules. Evaluation follows registration order.
type Registry struct {
	rules []Rule
	names map[Finding]bool
}

// NewRegistry returns a registry holding the given rules.
func NewRegistry(rules ...Rule) (*Registry, error) {
	r := &Registry{names: make(map[Finding]bool)}
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry returns a registry with the built-in rules.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(builtinRules()...)
	if err != nil {
		panic(err)
	}
	return r
}

func builtinRules() []Rule {
	return []Rule{
		{
			Name:        FindingMissingWhereDelete,
			Severity:    SeverityHigh,
			Description: "DELETE without a WHERE clause removes every row",
			Match:       missingWhere("DELETE"),
		},
		{
			Name:        FindingMissingWhereUpdate,
			Severity:    SeverityHigh,
			Description: "UPDATE without a WHERE clause rewrites every row",
			Match:       missingWhere("UPDATE"),
		},
	}
}

// missingWhere matches statements starting with keyword that contain no
// WHERE anywhere in the text. String literals are not excluded.
func missingWhere(keyword string) Predicate {
	return func(text string) bool {
		upper := strings.ToUpper(text)
		return strings.HasPrefix(strings.TrimSpace(upper), keyword) && !strings.Contains(upper, "WHERE")
	}
}

// NewPatternRule builds a rule from a regular expression. When prefix is set,
// the statement must also start with it (case-insensitive, whitespace-trimmed).
func NewPatternRule(name, prefix, pattern string, severity Severity, description string) (Rule, error) {
	if name == "" {
		return Rule{}, fmt.Errorf("pattern rule: name is required")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("pattern rule %s: %w", name, err)
	}
	if _, ok := ParseSeverity(string(severity)); !ok {
		severity = SeverityMedium
	}
	if description == "" {
		description = fmt.Sprintf("statement matches %s", pattern)
	}
	prefix = strings.ToUpper(strings.TrimSpace(prefix))

	return Rule{
		Name:        Finding(name),
		Severity:    severity,
		Description: description,
		Match: func(text string) bool {
			if prefix != "" && !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(text)), prefix) {
				return false
			}
			return re.MatchString(text)
		},
	}, nil
}

// Register appends a rule. Names must be unique.
func (r *Registry) Register(rule Rule) error {
	if rule.Name == "" || rule.Match == nil {
		return fmt.Errorf("register rule: name and predicate are required")
	}
	if r.names[rule.Name] {
		return fmt.Errorf("register rule: duplicate rule %q", rule.Name)
	}
	r.names[rule.Name] = true
	r.rules = append(r.rules, rule)
	return nil
}

// Rules returns a copy of the registered rules in evaluation order.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Evaluate runs every rule against text and returns matching names in
// registration order. A panicking predicate counts as a non-match.
func (r *Registry) Evaluate(text string) []Finding {
	findings := make([]Finding, 0)
	for _, rule := range r.rules {
		matched, err := safeMatch(rule, text)
		if err != nil {
			slog.Warn("rule evaluation failed", "rule", rule.Name, "error", err)
			continue
		}
		if matched {
			findings = append(findings, rule.Name)
		}
	}
	return findings
}

func safeMatch(rule Rule, text string) (matched bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			matched = false
			err = &RuleEvaluationError{Rule: rule.Name, Panic: p}
		}
	}()
	return rule.Match(text), nil
}
