// internal/matcher/category.go
package matcher

import (
	"context"
	"encoding/json"

	"github.com/permitwise/permitwise/internal/provider"
	"github.com/permitwise/permitwise/internal/types"
	"go.uber.org/zap"
)

const categorySystemPrompt = `You map a resident's compliance question onto rule categories.
Reply with ONLY a JSON array, ranked best match first, each element:
{"category": "...", "subcategory": "...", "question": "<the canonical question this category answers>",
 "confidence": 0.0-1.0, "requiredInputs": ["fieldName", ...]}
Categories cover local ordinances: animals, housing, zoning, business, noise, construction, parking.
Use camelCase field names for requiredInputs. If nothing fits, reply with exactly: NONE`

// MatchCategories ranks candidate rule categories against the question.
// Matches below the confidence floor are discarded; ties keep the order
// the completion returned them. Unparsable completions degrade to an
// empty slice, never an error.
func (m *Matcher) MatchCategories(ctx context.Context, message string) ([]types.CategoryMatch, error) {
	completion, err := m.gateway.Complete(ctx, &provider.Request{
		Turns:        userTurn(message),
		SystemPrompt: categorySystemPrompt,
		Temperature:  0,
		MaxTokens:    maxTokensCategory,
	}, "")
	if err != nil {
		return nil, err
	}

	if isNoneSentinel(completion.Text) {
		return nil, nil
	}
	raw, ok := firstJSONValue(completion.Text)
	if !ok {
		m.log.Debug("category completion had no JSON",
			zap.String("provider", completion.Provider))
		return nil, nil
	}

	var parsed []types.CategoryMatch
	if err := json.Unmarshal(raw, &parsed); err != nil {
		// A single object instead of an array is a common model slip.
		var one types.CategoryMatch
		if err := json.Unmarshal(raw, &one); err != nil {
			m.log.Debug("category completion unparsable",
				zap.String("provider", completion.Provider))
			return nil, nil
		}
		parsed = []types.CategoryMatch{one}
	}

	var matches []types.CategoryMatch
	for _, c := range parsed {
		if c.Category == "" || c.Confidence < confidenceFloor {
			continue
		}
		if len(c.RequiredInputs) > types.MaxRequiredFields {
			c.RequiredInputs = c.RequiredInputs[:types.MaxRequiredFields]
		}
		matches = append(matches, c)
	}
	return matches, nil
}
