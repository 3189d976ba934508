// internal/rules/rationale.go
package rules

import (
	"fmt"
	"strings"

	"github.com/permitwise/permitwise/internal/types"
)

/*
 * Rationale synthesis.
 *
 * Produces the explanatory string reported with the final outcome,
 * templated per outcome category. The governing rule's description,
 * citations, and failed-condition messages form the explanatory basis.
 *
 * Known simplification: when two rules of the winning category both match,
 * only the first one's rationale is reported. Determinism matters more
 * than completeness here; evaluation order is stable, so the same inputs
 * always produce the same rationale bytes.
 */

// Rationale builds the user-facing explanation for the final outcome.
func Rationale(outcome types.Outcome, results []types.EvaluationResult) string {
	governing := GoverningRule(outcome, results)
	if governing == nil {
		// Only reachable for the default outcome: no rule matched.
		return "No rules matched your situation. This activity is allowed under the current rules for your area."
	}

	var b strings.Builder
	switch outcome {
	case types.OutcomeProhibited:
		b.WriteString("This activity is prohibited. ")
	case types.OutcomeRestricted:
		b.WriteString("This activity is restricted. ")
	case types.OutcomeConditional:
		b.WriteString("This activity is allowed only under specific conditions. ")
	case types.OutcomeAllowed:
		b.WriteString("This activity is allowed. ")
	}

	b.WriteString(governing.Description)

	if msgs := failedMessages(governing); len(msgs) > 0 {
		b.WriteString(" Unmet conditions: ")
		b.WriteString(strings.Join(msgs, "; "))
		b.WriteString(".")
	}

	for _, c := range governing.Citations {
		fmt.Fprintf(&b, " (%s)", c)
	}

	return b.String()
}

// failedMessages extracts the governing rule's failed-condition messages in
// document order. Present even for matched rules: an ANY group can pass
// while some of its branches failed, and those failures explain the "only
// under conditions" phrasing.
func failedMessages(r *types.EvaluationResult) []string {
	var msgs []string
	for _, c := range r.Failed {
		msgs = append(msgs, c.Message)
	}
	return msgs
}
