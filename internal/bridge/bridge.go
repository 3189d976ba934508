// Package bridge connects collected conversation inputs to the rule
// evaluation engine.
//
// The orchestrator never touches rule storage or the evaluator directly; it
// hands this package a resolved (jurisdiction, category) pair plus the
// collected inputs and receives a complete decision back. Keeping the seam
// here means the engine stays callable outside any conversation, e.g. for
// batch re-evaluation when a rule set changes.
package bridge

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/permitwise/permitwise/internal/rules"
	"github.com/permitwise/permitwise/internal/store"
	"github.com/permitwise/permitwise/internal/types"
)

// Decision is the complete answer for one evaluation request.
type Decision struct {
	Outcome        types.Outcome `json:"outcome"`
	Rationale      string        `json:"rationale"`
	MatchedRules   []string      `json:"matchedRules,omitempty"`
	Citations      []string      `json:"citations,omitempty"`
	RuleSetVersion int           `json:"ruleSetVersion"`
}

// Bridge resolves rule sets and runs the evaluation engine over them.
type Bridge struct {
	rules store.RuleSetStore
	log   *zap.Logger
}

// New creates a Bridge over the given rule set store.
func New(ruleStore store.RuleSetStore, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{rules: ruleStore, log: log}
}

// Evaluate loads the active rule set for the pair and evaluates it against
// the inputs. Subcategory narrows rule applicability when the set carries
// one; an empty subcategory evaluates the whole set.
//
// types.ErrRuleSetNotFound means no rules exist for the pair, which is a
// distinct answer from "rules exist and nothing matched" (that one comes
// back as OutcomeAllowed with the no-match rationale).
func (b *Bridge) Evaluate(ctx context.Context, jurisdiction, category, subcategory string, inputs types.InputSet) (*Decision, error) {
	set, err := b.rules.FindActiveRuleSet(ctx, jurisdiction, category)
	if err != nil {
		if errors.Is(err, types.ErrRuleSetNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load rule set %s/%s: %w", jurisdiction, category, err)
	}

	evalSet := set
	if subcategory != "" && set.Subcategory != "" && set.Subcategory != subcategory {
		// The active set is scoped to a different subcategory; treat the
		// request as having no applicable rules.
		return nil, types.ErrRuleSetNotFound
	}

	results, err := rules.EvaluateAll(evalSet, inputs)
	if err != nil {
		b.log.Error("rule set evaluation failed",
			zap.String("jurisdiction", jurisdiction),
			zap.String("category", category),
			zap.Int("version", set.Version),
			zap.Error(err))
		return nil, fmt.Errorf("evaluate rule set %s/%s v%d: %w", jurisdiction, category, set.Version, err)
	}

	outcome := rules.DetermineOutcome(results)
	decision := &Decision{
		Outcome:        outcome,
		Rationale:      rules.Rationale(outcome, results),
		MatchedRules:   rules.MatchedKeys(results),
		RuleSetVersion: set.Version,
	}
	if governing := rules.GoverningRule(outcome, results); governing != nil {
		decision.Citations = governing.Citations
	}

	b.log.Info("evaluation completed",
		zap.String("jurisdiction", jurisdiction),
		zap.String("category", category),
		zap.Int("version", set.Version),
		zap.String("outcome", string(outcome)),
		zap.Int("matchedRules", len(decision.MatchedRules)))

	return decision, nil
}
