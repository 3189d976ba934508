// internal/rules/outcome.go
package rules

import "github.com/permitwise/permitwise/internal/types"

/*
 * Outcome aggregation.
 *
 * Folds per-rule evaluation results into a single final outcome using the
 * fixed restrictiveness order Prohibited > Restricted > Conditional >
 * Allowed. No matched rules means the default permissive outcome.
 *
 * Rule priority does not participate here: it orders rules for evaluation
 * only. Within the winning category the first matched rule (in evaluation
 * order) is the governing rule for rationale purposes.
 */

// DetermineOutcome returns the most restrictive outcome among matched
// results, or Allowed when nothing matched.
func DetermineOutcome(results []types.EvaluationResult) types.Outcome {
	outcome := types.OutcomeAllowed
	for _, r := range results {
		if !r.Matched {
			continue
		}
		if r.Outcome.Severity() > outcome.Severity() {
			outcome = r.Outcome
		}
	}
	return outcome
}

// GoverningRule returns the first matched result carrying the final
// outcome, preserving evaluation order. Nil when nothing matched.
func GoverningRule(outcome types.Outcome, results []types.EvaluationResult) *types.EvaluationResult {
	for i := range results {
		if results[i].Matched && results[i].Outcome == outcome {
			return &results[i]
		}
	}
	return nil
}

// MatchedKeys returns the keys of all matched rules in evaluation order.
func MatchedKeys(results []types.EvaluationResult) []string {
	var keys []string
	for _, r := range results {
		if r.Matched {
			keys = append(keys, r.RuleKey)
		}
	}
	return keys
}
