package plan

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrShape is returned when EXPLAIN output does not have the expected
// [{"Plan": {...}}] layout.
var ErrShape = errors.New("unexpected EXPLAIN output shape")

// ParseJSONPlan decodes the full EXPLAIN (FORMAT JSON) document.
func ParseJSONPlan(data []byte) ([]ExplainOutput, error) {
	var plans []ExplainOutput
	if err := json.Unmarshal(data, &plans); err != nil {
		return nil, fmt.Errorf("%w: invalid EXPLAIN JSON: %w", ErrShape, err)
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("%w: empty EXPLAIN output", ErrShape)
	}
	return plans, nil
}

// Unwrap returns the top-level plan node at the fixed path [0].Plan.
// Any deviation from that path is reported as ErrShape, never as a
// partially filled node.
func Unwrap(data []byte) (*Node, error) {
	plans, err := ParseJSONPlan(data)
	if err != nil {
		return nil, err
	}
	if plans[0].Plan == nil {
		return nil, fmt.Errorf("%w: missing \"Plan\" key", ErrShape)
	}
	return plans[0].Plan, nil
}
