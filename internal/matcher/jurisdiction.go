// internal/matcher/jurisdiction.go
package matcher

import (
	"context"

	"github.com/permitwise/permitwise/internal/provider"
	"go.uber.org/zap"
)

const jurisdictionSystemPrompt = `You identify the city, county, or state a compliance question is about.
Reply with ONLY the jurisdiction in "City, ST" form (or "County, ST" / state name).
If the message names no location, reply with exactly: NONE`

// DetectJurisdiction extracts a jurisdiction name from free text.
// Returns "" when the message names no location or the completion is
// unusable. The caller validates the name against the jurisdiction store;
// an unresolvable name is treated as not found, never a false positive.
func (m *Matcher) DetectJurisdiction(ctx context.Context, message string) (string, error) {
	completion, err := m.gateway.Complete(ctx, &provider.Request{
		Turns:        userTurn(message),
		SystemPrompt: jurisdictionSystemPrompt,
		Temperature:  0,
		MaxTokens:    maxTokensJurisdiction,
	}, "")
	if err != nil {
		return "", err
	}

	if isNoneSentinel(completion.Text) {
		return "", nil
	}
	name := firstLine(completion.Text)
	if name == "" || isNoneSentinel(name) {
		m.log.Debug("jurisdiction completion unusable",
			zap.String("provider", completion.Provider))
		return "", nil
	}
	return name, nil
}
