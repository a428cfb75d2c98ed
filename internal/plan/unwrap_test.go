package plan

import (
	"errors"
	"testing"
)

func TestUnwrap_ValidPlan(t *testing.T) {
	input := `[{
		"Plan": {
			"Node Type": "Nested Loop",
			"Join Type": "Inner",
			"Total Cost": 42.5,
			"Plans": [
				{"Node Type": "Seq Scan", "Relation Name": "users", "Alias": "u", "Plan Rows": 1000},
				{"Node Type": "Index Scan", "Relation Name": "orders", "Index Name": "idx_orders_user_id"}
			]
		},
		"Planning Time": 0.085,
		"Execution Time": 0.523
	}]`

	node, err := Unwrap([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.NodeType != "Nested Loop" {
		t.Errorf("NodeType = %q, want Nested Loop", node.NodeType)
	}
	if node.TotalCost != 42.5 {
		t.Errorf("TotalCost = %f, want 42.5", node.TotalCost)
	}
	if len(node.Plans) != 2 {
		t.Fatalf("expected 2 children, got %d", len(node.Plans))
	}
	if node.Plans[0].RelationName != "users" || node.Plans[0].PlanRows != 1000 {
		t.Errorf("first child = %+v", node.Plans[0])
	}
	if node.Plans[1].IndexName != "idx_orders_user_id" {
		t.Errorf("IndexName = %q", node.Plans[1].IndexName)
	}
}

func TestUnwrap_FractionalRowCounts(t *testing.T) {
	input := `[{"Plan": {
		"Node Type": "Nested Loop",
		"Plan Rows": 4,
		"Actual Rows": 2.50,
		"Actual Loops": 1,
		"Plans": [
			{"Node Type": "Seq Scan", "Relation Name": "users", "Actual Rows": 500.00, "Actual Loops": 1}
		]
	}}]`

	node, err := Unwrap([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.ActualRows != 2.5 {
		t.Errorf("ActualRows = %v, want 2.5", node.ActualRows)
	}
	if len(node.Plans) != 1 || node.Plans[0].NodeType != "Seq Scan" || node.Plans[0].ActualRows != 500 {
		t.Errorf("child = %+v", node.Plans)
	}
}

func TestUnwrap_IgnoresUnknownFields(t *testing.T) {
	input := `[{"Plan": {"Node Type": "Seq Scan", "Shared Hit Blocks": 5, "Output": ["id"]}, "Triggers": []}]`
	node, err := Unwrap([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.NodeType != "Seq Scan" {
		t.Errorf("NodeType = %q", node.NodeType)
	}
}

func TestUnwrap_MissingNodeType(t *testing.T) {
	node, err := Unwrap([]byte(`[{"Plan": {"Total Cost": 1}}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.NodeType != "" {
		t.Errorf("NodeType = %q, want empty", node.NodeType)
	}
}

func TestUnwrap_ShapeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"invalid json", `[{"Plan": `},
		{"empty array", `[]`},
		{"object instead of array", `{"Plan": {"Node Type": "Seq Scan"}}`},
		{"missing plan key", `[{"Planning Time": 0.1}]`},
		{"null plan", `[{"Plan": null}]`},
		{"plan is a string", `[{"Plan": "Seq Scan"}]`},
		{"nested one level too deep", `[[{"Plan": {"Node Type": "Seq Scan"}}]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := Unwrap([]byte(tt.input))
			if err == nil {
				t.Fatalf("expected error, got node %+v", node)
			}
			if !errors.Is(err, ErrShape) {
				t.Errorf("error %v does not wrap ErrShape", err)
			}
			if node != nil {
				t.Errorf("expected nil node on error")
			}
		})
	}
}

func TestParseJSONPlan_Timings(t *testing.T) {
	plans, err := ParseJSONPlan([]byte(`[{"Plan": {"Node Type": "Result"}, "Planning Time": 0.5, "Execution Time": 1.25}]`))
	if err != nil {
		t.Fatal(err)
	}
	if plans[0].PlanningTime != 0.5 || plans[0].ExecutionTime != 1.25 {
		t.Errorf("timings = %v / %v", plans[0].PlanningTime, plans[0].ExecutionTime)
	}
}
