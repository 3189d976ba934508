// internal/conversation/answers.go
package conversation

import (
	"strconv"
	"strings"

	"github.com/permitwise/permitwise/internal/types"
)

// Deterministic parsing for disambiguation answers. These are yes/no and
// pick-a-number replies; routing them through a language model would add a
// provider call and a failure mode to the simplest turns in the system.

type affirmation int

const (
	answerUnclear affirmation = iota
	answerYes
	answerNo
)

var yesWords = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true, "yup": true,
	"correct": true, "right": true, "sure": true, "exactly": true,
}

var noWords = map[string]bool{
	"no": true, "n": true, "nope": true, "nah": true, "incorrect": true,
	"wrong": true,
}

// parseAffirmation classifies a reply to a yes/no question by its leading
// word. "yes, that's it" is a yes; anything that opens with neither kind of
// word is unclear and gets re-asked.
func parseAffirmation(message string) affirmation {
	word := strings.ToLower(strings.TrimSpace(message))
	if i := strings.IndexAny(word, " ,.!"); i >= 0 {
		word = word[:i]
	}
	switch {
	case yesWords[word]:
		return answerYes
	case noWords[word]:
		return answerNo
	default:
		return answerUnclear
	}
}

// parseSelection resolves a pick-list reply to a candidate index. Accepts a
// bare number ("2", "2."), or a case-insensitive substring of a candidate's
// category or question text when it identifies exactly one candidate.
func parseSelection(message string, candidates []types.CategoryMatch) (int, bool) {
	trimmed := strings.TrimSpace(message)

	numeric := strings.TrimRight(trimmed, ".)")
	if n, err := strconv.Atoi(numeric); err == nil {
		if n >= 1 && n <= len(candidates) {
			return n - 1, true
		}
		return 0, false
	}

	lowered := strings.ToLower(trimmed)
	found := -1
	for i, c := range candidates {
		if strings.Contains(strings.ToLower(c.Category), lowered) ||
			strings.Contains(strings.ToLower(c.Question), lowered) {
			if found >= 0 {
				return 0, false // ambiguous
			}
			found = i
		}
	}
	if found >= 0 {
		return found, true
	}
	return 0, false
}
