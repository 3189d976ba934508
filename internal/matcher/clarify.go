// internal/matcher/clarify.go
package matcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/permitwise/permitwise/internal/provider"
)

const clarifySystemPromptFmt = `You write one short, friendly question asking a resident for a single piece of information.
Ask ONLY about the field: %s
Already answered (do NOT re-ask): %s
Reply with the question text only, one sentence, no preamble.`

// ClarifyingQuestion phrases a natural-language question for exactly one
// missing field, constrained against re-asking collected fields. An
// unusable completion degrades to a canned question so the orchestrator
// always has something to ask.
func (m *Matcher) ClarifyingQuestion(ctx context.Context, field string, collected []string) (string, error) {
	answered := "none yet"
	if len(collected) > 0 {
		answered = strings.Join(collected, ", ")
	}

	completion, err := m.gateway.Complete(ctx, &provider.Request{
		Turns:        userTurn(fmt.Sprintf("Ask the resident for %q.", field)),
		SystemPrompt: fmt.Sprintf(clarifySystemPromptFmt, field, answered),
		Temperature:  0,
		MaxTokens:    maxTokensClarify,
	}, "")
	if err != nil {
		return "", err
	}

	if q := firstLine(completion.Text); q != "" && !isNoneSentinel(q) {
		return q, nil
	}
	return fallbackQuestion(field), nil
}

// fallbackQuestion is the canned clarification used when generation
// produces nothing usable.
func fallbackQuestion(field string) string {
	return fmt.Sprintf("Could you tell me the value for %s?", humanizeField(field))
}

// humanizeField splits a camelCase field name into lowercase words, so
// "hasPermit" asks about "has permit".
func humanizeField(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
