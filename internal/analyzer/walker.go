package analyzer

import "github.com/ppiankov/sqlscorer/internal/plan"

// NodeRule maps a plan node type to the finding it produces.
type NodeRule struct {
	NodeType    string
	Finding     Finding
	Severity    Severity
	Description string
}

var defaultNodeRules = []NodeRule{
	{
		NodeType:    "Seq Scan",
		Finding:     FindingSequentialScan,
		Severity:    SeverityMedium,
		Description: "Plan contains a sequential scan over a whole table",
	},
	{
		NodeType:    "Nested Loop",
		Finding:     FindingNestedLoop,
		Severity:    SeverityLow,
		Description: "Plan joins with a nested loop",
	},
}

// Walker traverses plan trees and records findings for costly node types.
type Walker struct {
	rules  []NodeRule
	byType map[string]Finding
}

// NewWalker returns a walker for the given node rules. Later rules for an
// already-mapped node type are ignored.
func NewWalker(rules ...NodeRule) *Walker {
	w := &Walker{byType: make(map[string]Finding, len(rules))}
	for _, r := range rules {
		if r.NodeType == "" || r.Finding == "" {
			continue
		}
		if _, ok := w.byType[r.NodeType]; ok {
			continue
		}
		w.byType[r.NodeType] = r.Finding
		w.rules = append(w.rules, r)
	}
	return w
}

// DefaultWalker returns a walker for the built-in node rules.
func DefaultWalker() *Walker {
	return NewWalker(defaultNodeRules...)
}

// Rules returns the node rules in registration order.
func (w *Walker) Rules() []NodeRule {
	out := make([]NodeRule, len(w.rules))
	copy(out, w.rules)
	return out
}

// Walk returns plan-derived findings in depth-first pre-order.
// A nil node yields nothing.
func (w *Walker) Walk(node *plan.Node) []Finding {
	var findings []Finding
	w.walk(node, &findings)
	return findings
}

func (w *Walker) walk(node *plan.Node, findings *[]Finding) {
	if node == nil {
		return
	}
	if f, ok := w.byType[node.NodeType]; ok {
		*findings = append(*findings, f)
	}
	for i := range node.Plans {
		w.walk(&node.Plans[i], findings)
	}
}
