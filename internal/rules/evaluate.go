// internal/rules/evaluate.go
package rules

import (
	"fmt"
	"sort"

	"github.com/permitwise/permitwise/internal/types"
)

/*
 * Rule evaluation.
 *
 * Evaluates a Rule's recursive condition tree against a collected InputSet
 * and records per-condition diagnostics.
 *
 * Evaluation flow:
 *   1. Validate rule structure (outcome enumeration, combinator, operators)
 *   2. Walk the tree depth-first in document order
 *   3. Per leaf: look up field -> compare operator -> record pass/fail
 *   4. ALL group passes iff every child passes; ANY iff at least one does
 *
 * No short-circuit: every leaf is visited so failed-condition messages
 * bubble up complete and in document order regardless of nesting depth.
 * The rationale generator depends on that ordering, and full walks keep
 * repeated evaluations byte-identical.
 *
 * Failure semantics: a missing input field or a value that cannot be
 * coerced for its operator is a failed condition, never an error. Unknown
 * operators and structurally invalid nodes are configuration errors for
 * the whole rule; the caller decides whether to exclude the rule or abort.
 */

// Evaluate checks the rule's condition tree against the inputs.
// The returned result carries matched state plus ordered passed/failed
// condition diagnostics. A non-nil error marks the rule as misconfigured;
// the result is not meaningful in that case.
func Evaluate(rule *types.Rule, inputs types.InputSet) (types.EvaluationResult, error) {
	result := types.EvaluationResult{
		RuleKey:     rule.Key,
		Description: rule.Description,
		Outcome:     rule.Outcome,
		Citations:   rule.Citations,
	}

	if !rule.Outcome.Valid() {
		return result, fmt.Errorf("rule %q: %w: %q", rule.Key, types.ErrInvalidOutcome, rule.Outcome)
	}

	matched, err := evaluateGroup(&rule.Conditions, inputs, &result)
	if err != nil {
		return result, fmt.Errorf("rule %q: %w", rule.Key, err)
	}

	result.Matched = matched
	return result, nil
}

// EvaluateAll runs every rule in the set in priority order (ascending,
// stable for ties) and returns results in that order. The set is read-only
// during evaluation; ordering happens on a copy.
func EvaluateAll(set *types.RuleSet, inputs types.InputSet) ([]types.EvaluationResult, error) {
	ordered := make([]types.Rule, len(set.Rules))
	copy(ordered, set.Rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	results := make([]types.EvaluationResult, 0, len(ordered))
	for i := range ordered {
		r, err := Evaluate(&ordered[i], inputs)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// evaluateGroup walks one combinator node depth-first, appending leaf
// diagnostics to result in document order.
func evaluateGroup(group *types.ConditionGroup, inputs types.InputSet, result *types.EvaluationResult) (bool, error) {
	var all, any bool
	switch group.Combinator {
	case types.CombinatorAll:
		all = true
	case types.CombinatorAny:
		any = true
	default:
		return false, fmt.Errorf("%w: combinator %q", types.ErrInvalidCondition, group.Combinator)
	}

	passed := all // ALL starts true (vacuous), ANY starts false
	for i := range group.Children {
		child := &group.Children[i]
		var childPassed bool
		var err error

		switch {
		case child.Group != nil:
			childPassed, err = evaluateGroup(child.Group, inputs, result)
		case child.Condition != nil:
			childPassed, err = evaluateCondition(child.Condition, inputs, result)
		default:
			err = fmt.Errorf("%w: empty node", types.ErrInvalidCondition)
		}
		if err != nil {
			return false, err
		}

		if all && !childPassed {
			passed = false
		}
		if any && childPassed {
			passed = true
		}
	}

	return passed, nil
}

// evaluateCondition evaluates a single leaf and records its diagnostic.
// Missing input fields fail the condition (field presence is the collected
// contract; evaluation runs only after collection, so absence means the
// rule's premise does not hold).
func evaluateCondition(cond *types.Condition, inputs types.InputSet, result *types.EvaluationResult) (bool, error) {
	if cond.Field == "" {
		return false, fmt.Errorf("%w: condition missing field", types.ErrInvalidCondition)
	}

	actual, present := inputs[cond.Field]

	var passed bool
	if present {
		var err error
		passed, err = Compare(cond, actual)
		if err != nil {
			return false, err
		}
	}

	record := types.EvaluatedCondition{
		Field:    cond.Field,
		Operator: cond.Operator,
		Expected: expectedValue(cond),
		Actual:   actual,
		Message:  conditionMessage(cond, passed),
	}
	if passed {
		result.Passed = append(result.Passed, record)
	} else {
		result.Failed = append(result.Failed, record)
	}
	return passed, nil
}

// expectedValue returns the declared comparison target for diagnostics.
func expectedValue(cond *types.Condition) any {
	if cond.Operator == types.OpIn || cond.Operator == types.OpNotIn {
		return cond.Values
	}
	return cond.Value
}

// conditionMessage builds the human-readable line for one condition.
// An authored FailMessage wins for failures; otherwise the message is
// generated from the operator.
func conditionMessage(cond *types.Condition, passed bool) string {
	if !passed && cond.FailMessage != "" {
		return cond.FailMessage
	}
	verb := map[types.Operator]string{
		types.OpEq:       "must equal",
		types.OpNeq:      "must not equal",
		types.OpGt:       "must be greater than",
		types.OpLt:       "must be less than",
		types.OpIn:       "must be one of",
		types.OpNotIn:    "must not be one of",
		types.OpContains: "must contain",
		types.OpMatches:  "must match",
	}[cond.Operator]
	if verb == "" {
		verb = "must satisfy"
	}
	return fmt.Sprintf("%s %s %v", cond.Field, verb, expectedValue(cond))
}
