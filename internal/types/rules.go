// internal/types/rules.go
package types

import (
	"encoding/json"
	"fmt"
)

/*
 * Domain types for rule evaluation.
 *
 * Provides RuleSet, Rule, ConditionGroup, and Condition structures used by
 * internal/rules for evaluation. These types are wire-format agnostic and
 * serialize as plain JSON, which is also the storage format for rule
 * expressions in the SQL store.
 *
 * Key types:
 *   - RuleSet: Versioned rule collection scoped to (jurisdiction, category)
 *   - Rule: Outcome declaration guarded by a recursive condition tree
 *   - ConditionGroup: ALL (conjunction) / ANY (disjunction) combinator node
 *   - Condition: Single field comparison with operator and expected value
 *
 * ConditionNode is the tagged union of Condition and ConditionGroup: rule
 * conditions are data walked by an interpreter, never executable code.
 */

// Outcome is the fixed enumeration a rule evaluation always resolves to.
type Outcome string

const (
	OutcomeAllowed     Outcome = "allowed"
	OutcomeConditional Outcome = "conditional"
	OutcomeRestricted  Outcome = "restricted"
	OutcomeProhibited  Outcome = "prohibited"
)

// Severity returns the position of the outcome in the fixed restrictiveness
// order, most restrictive highest. Unknown outcomes rank below Allowed so a
// malformed rule can never win aggregation.
func (o Outcome) Severity() int {
	switch o {
	case OutcomeProhibited:
		return 4
	case OutcomeRestricted:
		return 3
	case OutcomeConditional:
		return 2
	case OutcomeAllowed:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the outcome is a member of the enumeration.
func (o Outcome) Valid() bool {
	return o.Severity() > 0
}

// Operator enumerates condition comparison operators.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNeq      Operator = "neq"
	OpGt       Operator = "gt"
	OpLt       Operator = "lt"
	OpIn       Operator = "in"
	OpNotIn    Operator = "notIn"
	OpContains Operator = "contains"
	OpMatches  Operator = "matches"
)

// Combinator selects boolean semantics for a condition group.
type Combinator string

const (
	CombinatorAll Combinator = "all" // conjunction: every child must pass
	CombinatorAny Combinator = "any" // disjunction: at least one child must pass
)

// Condition is a single field comparison. Value holds the expected scalar
// for comparison operators; Values holds the declared list for in/notIn.
// FailMessage, when set, replaces the generated message in rationale output.
type Condition struct {
	Field       string   `json:"field"`
	Operator    Operator `json:"operator"`
	Value       any      `json:"value,omitempty"`
	Values      []any    `json:"values,omitempty"`
	FailMessage string   `json:"failMessage,omitempty"`
}

// ConditionGroup combines child nodes under ALL/ANY semantics. Children may
// be conditions or nested groups; the tree is acyclic by construction and
// evaluated depth-first in document order.
type ConditionGroup struct {
	Combinator Combinator      `json:"combinator"`
	Children   []ConditionNode `json:"children"`
}

// ConditionNode is the tagged union of Condition and ConditionGroup.
// Exactly one of the two fields is non-nil after unmarshaling.
type ConditionNode struct {
	Condition *Condition
	Group     *ConditionGroup
}

// MarshalJSON flattens the union: a node serializes as its sole member.
func (n ConditionNode) MarshalJSON() ([]byte, error) {
	switch {
	case n.Group != nil:
		return json.Marshal(n.Group)
	case n.Condition != nil:
		return json.Marshal(n.Condition)
	default:
		return nil, fmt.Errorf("condition node has neither condition nor group")
	}
}

// UnmarshalJSON distinguishes the union members by shape: a "combinator"
// key marks a group, a "field" key marks a leaf condition.
func (n *ConditionNode) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if _, ok := probe["combinator"]; ok {
		var g ConditionGroup
		if err := json.Unmarshal(data, &g); err != nil {
			return err
		}
		n.Group = &g
		n.Condition = nil
		return nil
	}
	if _, ok := probe["field"]; ok {
		var c Condition
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		n.Condition = &c
		n.Group = nil
		return nil
	}
	return fmt.Errorf("condition node requires either 'combinator' or 'field'")
}

// Rule declares an outcome guarded by a condition tree. Rules are immutable
// once evaluated against; authoring and editing happen externally.
// Priority orders rules for evaluation but does not affect outcome
// aggregation (first-match-within-winning-category drives rationale).
type Rule struct {
	Key         string         `json:"key"`
	Description string         `json:"description"`
	Outcome     Outcome        `json:"outcome"`
	Conditions  ConditionGroup `json:"conditions"`
	Priority    int            `json:"priority"`
	Citations   []string       `json:"citations,omitempty"`
}

// RuleSet is the versioned collection of rules active for one
// (jurisdiction, category) pair. Exactly one set per pair is active at a
// time; the store enforces that invariant, the engine consumes it read-only.
type RuleSet struct {
	Jurisdiction string `json:"jurisdiction"`
	Category     string `json:"category"`
	Subcategory  string `json:"subcategory,omitempty"`
	Version      int    `json:"version"`
	Rules        []Rule `json:"rules"`
}

// EvaluatedCondition records a single leaf comparison during evaluation.
type EvaluatedCondition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Expected any      `json:"expected,omitempty"`
	Actual   any      `json:"actual,omitempty"`
	Message  string   `json:"message"`
}

// EvaluationResult is the per-rule outcome of a single evaluation call.
// Passed and Failed preserve document order; the rationale generator
// surfaces only the first rule's failed conditions, so ordering matters.
// Ephemeral: produced per call, embedded into decision records by callers,
// never persisted as its own entity.
type EvaluationResult struct {
	RuleKey     string               `json:"ruleKey"`
	Description string               `json:"description"`
	Outcome     Outcome              `json:"outcome"`
	Matched     bool                 `json:"matched"`
	Passed      []EvaluatedCondition `json:"passed,omitempty"`
	Failed      []EvaluatedCondition `json:"failed,omitempty"`
	Citations   []string             `json:"citations,omitempty"`
}
