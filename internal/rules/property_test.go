// internal/rules/property_test.go
package rules

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/permitwise/permitwise/internal/types"
)

// buildTree constructs a deterministic condition tree from a handful of
// integers so gopter can explore many shapes without a recursive generator.
func buildTree(depth, fanout int, useAll bool) *types.ConditionGroup {
	combinator := types.CombinatorAny
	if useAll {
		combinator = types.CombinatorAll
	}
	g := &types.ConditionGroup{Combinator: combinator}
	for i := 0; i < fanout; i++ {
		field := fmt.Sprintf("f%d", i)
		if depth > 0 && i%2 == 0 {
			g.Children = append(g.Children, types.ConditionNode{
				Group: buildTree(depth-1, fanout, !useAll),
			})
			continue
		}
		g.Children = append(g.Children, types.ConditionNode{
			Condition: &types.Condition{Field: field, Operator: types.OpEq, Value: float64(i)},
		})
	}
	return g
}

func buildInputs(n int) types.InputSet {
	inputs := types.InputSet{}
	for i := 0; i < n; i++ {
		inputs[fmt.Sprintf("f%d", i)] = float64(i)
	}
	return inputs
}

func TestEvaluateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("evaluation never crashes regardless of tree shape", prop.ForAll(
		func(depth int, fanout int, useAll bool, present int) bool {
			rule := types.Rule{
				Key:        "generated",
				Outcome:    types.OutcomeRestricted,
				Conditions: *buildTree(depth, fanout, useAll),
			}
			_, err := Evaluate(&rule, buildInputs(present))
			return err == nil
		},
		gen.IntRange(0, 4),
		gen.IntRange(0, 5),
		gen.Bool(),
		gen.IntRange(0, 8),
	))

	properties.Property("evaluation is deterministic for identical inputs", prop.ForAll(
		func(depth int, fanout int, useAll bool, present int) bool {
			rule := types.Rule{
				Key:        "generated",
				Outcome:    types.OutcomeConditional,
				Conditions: *buildTree(depth, fanout, useAll),
			}
			inputs := buildInputs(present)
			first, err1 := Evaluate(&rule, inputs)
			second, err2 := Evaluate(&rule, inputs)
			return err1 == nil && err2 == nil && reflect.DeepEqual(first, second)
		},
		gen.IntRange(0, 4),
		gen.IntRange(0, 5),
		gen.Bool(),
		gen.IntRange(0, 8),
	))

	properties.Property("diagnostic count equals leaf count", prop.ForAll(
		func(depth int, fanout int, useAll bool, present int) bool {
			tree := buildTree(depth, fanout, useAll)
			rule := types.Rule{
				Key:        "generated",
				Outcome:    types.OutcomeAllowed,
				Conditions: *tree,
			}
			result, err := Evaluate(&rule, buildInputs(present))
			if err != nil {
				return false
			}
			return len(result.Passed)+len(result.Failed) == countLeaves(tree)
		},
		gen.IntRange(0, 4),
		gen.IntRange(0, 5),
		gen.Bool(),
		gen.IntRange(0, 8),
	))

	properties.TestingRun(t)
}

func countLeaves(g *types.ConditionGroup) int {
	n := 0
	for i := range g.Children {
		if g.Children[i].Group != nil {
			n += countLeaves(g.Children[i].Group)
			continue
		}
		n++
	}
	return n
}

func TestOutcomeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	outcomes := []types.Outcome{
		types.OutcomeAllowed,
		types.OutcomeConditional,
		types.OutcomeRestricted,
		types.OutcomeProhibited,
	}

	makeResults := func(picks []int, matchBits int) []types.EvaluationResult {
		results := make([]types.EvaluationResult, len(picks))
		for i, p := range picks {
			results[i] = types.EvaluationResult{
				RuleKey: fmt.Sprintf("r%d", i),
				Outcome: outcomes[p%len(outcomes)],
				Matched: matchBits&(1<<i) != 0,
			}
		}
		return results
	}

	properties.Property("a matched prohibited rule always wins", prop.ForAll(
		func(picks []int, matchBits int) bool {
			results := makeResults(picks, matchBits)
			results = append(results, types.EvaluationResult{
				RuleKey: "ban", Outcome: types.OutcomeProhibited, Matched: true,
			})
			return DetermineOutcome(results) == types.OutcomeProhibited
		},
		gen.SliceOf(gen.IntRange(0, 3)),
		gen.IntRange(0, 1<<16),
	))

	properties.Property("no matches means allowed", prop.ForAll(
		func(picks []int) bool {
			results := makeResults(picks, 0)
			return DetermineOutcome(results) == types.OutcomeAllowed
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	properties.Property("outcome severity never below any matched rule", prop.ForAll(
		func(picks []int, matchBits int) bool {
			results := makeResults(picks, matchBits)
			final := DetermineOutcome(results)
			for _, r := range results {
				if r.Matched && r.Outcome.Severity() > final.Severity() {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 3)),
		gen.IntRange(0, 1<<16),
	))

	properties.TestingRun(t)
}
