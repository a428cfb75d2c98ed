package plan

// Node is one node of a PostgreSQL EXPLAIN (FORMAT JSON) plan tree.
// Only the fields the analyzer and reporters read are modeled; everything
// else in the engine output is ignored on decode.
type Node struct {
	NodeType           string `json:"Node Type"`
	ParentRelationship string `json:"Parent Relationship,omitempty"`
	JoinType           string `json:"Join Type,omitempty"`

	RelationName string `json:"Relation Name,omitempty"`
	Schema       string `json:"Schema,omitempty"`
	Alias        string `json:"Alias,omitempty"`
	IndexName    string `json:"Index Name,omitempty"`

	// Row counts are float64: PostgreSQL 18 prints actual rows with decimals.
	StartupCost float64 `json:"Startup Cost,omitempty"`
	TotalCost   float64 `json:"Total Cost,omitempty"`
	PlanRows    float64 `json:"Plan Rows,omitempty"`
	ActualRows  float64 `json:"Actual Rows,omitempty"`
	ActualLoops float64 `json:"Actual Loops,omitempty"`

	Filter string `json:"Filter,omitempty"`

	Plans []Node `json:"Plans,omitempty"`
}

// ExplainOutput is one element of the top-level EXPLAIN JSON array.
type ExplainOutput struct {
	Plan          *Node   `json:"Plan"`
	PlanningTime  float64 `json:"Planning Time,omitempty"`
	ExecutionTime float64 `json:"Execution Time,omitempty"`
}
