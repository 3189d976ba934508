// internal/matcher/extract.go
package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/permitwise/permitwise/internal/provider"
	"github.com/permitwise/permitwise/internal/types"
	"go.uber.org/zap"
)

const extractSystemPromptFmt = `You extract structured field values from a resident's message.
Requested fields: %s
Reply with ONLY a JSON object mapping field names to extracted values
(string, number, boolean, or array). OMIT any field the message does not
clearly answer. Never invent values. If nothing is answered, reply with
exactly: NONE`

// ExtractFields pulls values for the requested fields out of an utterance.
// Only requested fields appear in the result; fields the model cannot
// confidently extract are omitted, never set to null or empty. Unparsable
// completions degrade to an empty set.
func (m *Matcher) ExtractFields(ctx context.Context, message string, fields []string) (types.InputSet, error) {
	if len(fields) == 0 {
		return types.InputSet{}, nil
	}

	completion, err := m.gateway.Complete(ctx, &provider.Request{
		Turns:        userTurn(message),
		SystemPrompt: fmt.Sprintf(extractSystemPromptFmt, strings.Join(fields, ", ")),
		Temperature:  0,
		MaxTokens:    maxTokensExtract,
	}, "")
	if err != nil {
		return nil, err
	}

	if isNoneSentinel(completion.Text) {
		return types.InputSet{}, nil
	}
	raw, ok := firstJSONValue(completion.Text)
	if !ok {
		m.log.Debug("extraction completion had no JSON",
			zap.String("provider", completion.Provider))
		return types.InputSet{}, nil
	}

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		m.log.Debug("extraction completion unparsable",
			zap.String("provider", completion.Provider))
		return types.InputSet{}, nil
	}

	requested := make(map[string]bool, len(fields))
	for _, f := range fields {
		requested[f] = true
	}

	out := types.InputSet{}
	for k, v := range parsed {
		// Discard fields that were not asked for and null non-answers.
		if !requested[k] || v == nil {
			continue
		}
		out[k] = v
	}
	return out, nil
}
