// Package matcher implements the four language-model request types the
// conversation orchestrator depends on: jurisdiction detection, category
// matching, field extraction, and clarifying-question generation.
//
// Each operation is a narrow, temperature-zero prompt contract with strict
// output parsing. Malformed or unparsable completions degrade to the
// operation's defined empty result; only provider-chain exhaustion
// propagates as an error. The orchestrator always receives a well-typed
// (possibly empty) result, keeping its state machine total.
package matcher

import (
	"go.uber.org/zap"

	"github.com/permitwise/permitwise/internal/provider"
)

// Per-operation token ceilings. Jurisdiction and clarification replies are
// one line; category matching returns a small JSON array.
const (
	maxTokensJurisdiction = 64
	maxTokensCategory     = 512
	maxTokensExtract      = 512
	maxTokensClarify      = 128
)

// confidenceFloor discards category matches the model itself is unsure of.
const confidenceFloor = 0.5

// Matcher runs the four request types over the provider gateway.
// Stateless: it returns data, it never writes conversation state.
type Matcher struct {
	gateway *provider.Gateway
	log     *zap.Logger
}

// New creates a matcher over the given gateway.
func New(gateway *provider.Gateway, log *zap.Logger) *Matcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Matcher{gateway: gateway, log: log}
}

// userTurn wraps a single user message for a completion request.
func userTurn(content string) []provider.Turn {
	return []provider.Turn{{Role: provider.RoleUser, Content: content}}
}
