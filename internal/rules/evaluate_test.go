// internal/rules/evaluate_test.go
package rules

import (
	"errors"
	"reflect"
	"testing"

	"github.com/permitwise/permitwise/internal/types"
)

func leaf(field string, op types.Operator, value any) types.ConditionNode {
	return types.ConditionNode{Condition: &types.Condition{Field: field, Operator: op, Value: value}}
}

func leafIn(field string, values ...any) types.ConditionNode {
	return types.ConditionNode{Condition: &types.Condition{Field: field, Operator: types.OpIn, Values: values}}
}

func group(combinator types.Combinator, children ...types.ConditionNode) types.ConditionNode {
	return types.ConditionNode{Group: &types.ConditionGroup{Combinator: combinator, Children: children}}
}

func TestEvaluate_SimpleMatch(t *testing.T) {
	rule := types.Rule{
		Key:     "pitbull-ban",
		Outcome: types.OutcomeProhibited,
		Conditions: types.ConditionGroup{
			Combinator: types.CombinatorAll,
			Children:   []types.ConditionNode{leaf("breed", types.OpEq, "pitbull")},
		},
	}

	result, err := Evaluate(&rule, types.InputSet{"breed": "pitbull"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if !result.Matched {
		t.Errorf("Matched = false, want true")
	}
	if len(result.Passed) != 1 || len(result.Failed) != 0 {
		t.Errorf("Passed/Failed = %d/%d, want 1/0", len(result.Passed), len(result.Failed))
	}
}

func TestEvaluate_SimpleMiss(t *testing.T) {
	rule := types.Rule{
		Key:     "pitbull-ban",
		Outcome: types.OutcomeProhibited,
		Conditions: types.ConditionGroup{
			Combinator: types.CombinatorAll,
			Children:   []types.ConditionNode{leaf("breed", types.OpEq, "pitbull")},
		},
	}

	result, err := Evaluate(&rule, types.InputSet{"breed": "corgi"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if result.Matched {
		t.Errorf("Matched = true, want false")
	}
	if len(result.Failed) != 1 {
		t.Fatalf("len(Failed) = %d, want 1", len(result.Failed))
	}
	if result.Failed[0].Actual != "corgi" {
		t.Errorf("Failed[0].Actual = %v, want corgi", result.Failed[0].Actual)
	}
}

func TestEvaluate_MissingFieldFailsCondition(t *testing.T) {
	rule := types.Rule{
		Key:     "dog-count",
		Outcome: types.OutcomeRestricted,
		Conditions: types.ConditionGroup{
			Combinator: types.CombinatorAll,
			Children:   []types.ConditionNode{leaf("dogCount", types.OpGt, float64(3))},
		},
	}

	result, err := Evaluate(&rule, types.InputSet{})
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if result.Matched {
		t.Errorf("Matched = true, want false")
	}
	if len(result.Failed) != 1 {
		t.Fatalf("len(Failed) = %d, want 1", len(result.Failed))
	}
	if result.Failed[0].Actual != nil {
		t.Errorf("Failed[0].Actual = %v, want nil", result.Failed[0].Actual)
	}
}

func TestEvaluate_NestedGroups(t *testing.T) {
	// ALL(breed in [...], ANY(zone eq residential, zone eq mixed))
	rule := types.Rule{
		Key:     "restricted-breed-zone",
		Outcome: types.OutcomeRestricted,
		Conditions: types.ConditionGroup{
			Combinator: types.CombinatorAll,
			Children: []types.ConditionNode{
				leafIn("breed", "pitbull", "rottweiler"),
				group(types.CombinatorAny,
					leaf("zone", types.OpEq, "residential"),
					leaf("zone", types.OpEq, "mixed"),
				),
			},
		},
	}

	tests := []struct {
		name   string
		inputs types.InputSet
		want   bool
	}{
		{"both satisfied", types.InputSet{"breed": "pitbull", "zone": "mixed"}, true},
		{"inner any misses", types.InputSet{"breed": "pitbull", "zone": "industrial"}, false},
		{"outer leaf misses", types.InputSet{"breed": "corgi", "zone": "residential"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Evaluate(&rule, tt.inputs)
			if err != nil {
				t.Fatalf("Evaluate() error = %v, want nil", err)
			}
			if result.Matched != tt.want {
				t.Errorf("Matched = %v, want %v", result.Matched, tt.want)
			}
		})
	}
}

func TestEvaluate_NoShortCircuit(t *testing.T) {
	// Every leaf is visited even after the group's fate is decided, so
	// diagnostics arrive complete and in document order.
	rule := types.Rule{
		Key:     "ordering",
		Outcome: types.OutcomeConditional,
		Conditions: types.ConditionGroup{
			Combinator: types.CombinatorAll,
			Children: []types.ConditionNode{
				leaf("a", types.OpEq, "x"),
				leaf("b", types.OpEq, "x"),
				leaf("c", types.OpEq, "x"),
			},
		},
	}

	result, err := Evaluate(&rule, types.InputSet{"a": "wrong", "b": "x", "c": "wrong"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if result.Matched {
		t.Errorf("Matched = true, want false")
	}
	var failedFields []string
	for _, c := range result.Failed {
		failedFields = append(failedFields, c.Field)
	}
	if !reflect.DeepEqual(failedFields, []string{"a", "c"}) {
		t.Errorf("failed fields = %v, want [a c]", failedFields)
	}
	if len(result.Passed) != 1 || result.Passed[0].Field != "b" {
		t.Errorf("Passed = %v, want single b", result.Passed)
	}
}

func TestEvaluate_VacuousGroups(t *testing.T) {
	all := types.Rule{
		Key:        "vacuous-all",
		Outcome:    types.OutcomeAllowed,
		Conditions: types.ConditionGroup{Combinator: types.CombinatorAll},
	}
	result, err := Evaluate(&all, types.InputSet{})
	if err != nil {
		t.Fatalf("Evaluate(all) error = %v, want nil", err)
	}
	if !result.Matched {
		t.Errorf("empty ALL Matched = false, want true")
	}

	any := types.Rule{
		Key:        "vacuous-any",
		Outcome:    types.OutcomeAllowed,
		Conditions: types.ConditionGroup{Combinator: types.CombinatorAny},
	}
	result, err = Evaluate(&any, types.InputSet{})
	if err != nil {
		t.Fatalf("Evaluate(any) error = %v, want nil", err)
	}
	if result.Matched {
		t.Errorf("empty ANY Matched = true, want false")
	}
}

func TestEvaluate_FailMessagePrecedence(t *testing.T) {
	rule := types.Rule{
		Key:     "limit",
		Outcome: types.OutcomeRestricted,
		Conditions: types.ConditionGroup{
			Combinator: types.CombinatorAll,
			Children: []types.ConditionNode{
				{Condition: &types.Condition{
					Field:       "dogCount",
					Operator:    types.OpLt,
					Value:       float64(4),
					FailMessage: "no more than 3 dogs per household",
				}},
			},
		},
	}

	result, err := Evaluate(&rule, types.InputSet{"dogCount": float64(5)})
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if got := result.Failed[0].Message; got != "no more than 3 dogs per household" {
		t.Errorf("Message = %q, want authored fail message", got)
	}

	// A pass never uses the authored failure text.
	result, err = Evaluate(&rule, types.InputSet{"dogCount": float64(2)})
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if got := result.Passed[0].Message; got != "dogCount must be less than 4" {
		t.Errorf("Message = %q, want generated message", got)
	}
}

func TestEvaluate_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		rule types.Rule
		want error
	}{
		{
			"invalid outcome",
			types.Rule{Key: "r", Outcome: "forbidden", Conditions: types.ConditionGroup{Combinator: types.CombinatorAll}},
			types.ErrInvalidOutcome,
		},
		{
			"invalid combinator",
			types.Rule{Key: "r", Outcome: types.OutcomeAllowed, Conditions: types.ConditionGroup{Combinator: "XOR"}},
			types.ErrInvalidCondition,
		},
		{
			"empty node",
			types.Rule{Key: "r", Outcome: types.OutcomeAllowed, Conditions: types.ConditionGroup{
				Combinator: types.CombinatorAll,
				Children:   []types.ConditionNode{{}},
			}},
			types.ErrInvalidCondition,
		},
		{
			"condition missing field",
			types.Rule{Key: "r", Outcome: types.OutcomeAllowed, Conditions: types.ConditionGroup{
				Combinator: types.CombinatorAll,
				Children:   []types.ConditionNode{{Condition: &types.Condition{Operator: types.OpEq, Value: "x"}}},
			}},
			types.ErrInvalidCondition,
		},
		{
			"unknown operator",
			types.Rule{Key: "r", Outcome: types.OutcomeAllowed, Conditions: types.ConditionGroup{
				Combinator: types.CombinatorAll,
				Children:   []types.ConditionNode{leaf("breed", "almost-equals", "pitbull")},
			}},
			types.ErrUnknownOperator,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(&tt.rule, types.InputSet{"breed": "pitbull"})
			if !errors.Is(err, tt.want) {
				t.Errorf("Evaluate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEvaluateAll_PriorityOrder(t *testing.T) {
	set := types.RuleSet{
		Jurisdiction: "Denver",
		Category:     "animals",
		Version:      1,
		Rules: []types.Rule{
			{Key: "third", Priority: 20, Outcome: types.OutcomeAllowed, Conditions: types.ConditionGroup{Combinator: types.CombinatorAll}},
			{Key: "first", Priority: 1, Outcome: types.OutcomeAllowed, Conditions: types.ConditionGroup{Combinator: types.CombinatorAll}},
			{Key: "second-a", Priority: 10, Outcome: types.OutcomeAllowed, Conditions: types.ConditionGroup{Combinator: types.CombinatorAll}},
			{Key: "second-b", Priority: 10, Outcome: types.OutcomeAllowed, Conditions: types.ConditionGroup{Combinator: types.CombinatorAll}},
		},
	}

	results, err := EvaluateAll(&set, types.InputSet{})
	if err != nil {
		t.Fatalf("EvaluateAll() error = %v, want nil", err)
	}
	var keys []string
	for _, r := range results {
		keys = append(keys, r.RuleKey)
	}
	want := []string{"first", "second-a", "second-b", "third"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("evaluation order = %v, want %v", keys, want)
	}

	// Sorting must not reorder the set itself.
	if set.Rules[0].Key != "third" {
		t.Errorf("set.Rules[0].Key = %q, want third (set mutated)", set.Rules[0].Key)
	}
}

func TestEvaluateAll_MisconfiguredRuleAborts(t *testing.T) {
	set := types.RuleSet{
		Rules: []types.Rule{
			{Key: "ok", Outcome: types.OutcomeAllowed, Conditions: types.ConditionGroup{Combinator: types.CombinatorAll}},
			{Key: "broken", Outcome: types.OutcomeAllowed, Conditions: types.ConditionGroup{Combinator: "XOR"}},
		},
	}
	results, err := EvaluateAll(&set, types.InputSet{})
	if !errors.Is(err, types.ErrInvalidCondition) {
		t.Errorf("EvaluateAll() error = %v, want ErrInvalidCondition", err)
	}
	if results != nil {
		t.Errorf("results = %v, want nil on error", results)
	}
}
