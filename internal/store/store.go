// Package store defines the persistence interfaces the decision pipeline
// depends on, with in-memory and SQL implementations.
//
// The core treats storage as a record store with explicit contracts:
// RuleSetStore resolves authored rules, ConversationStore owns conversation
// state and transcripts. Any engine can implement them; retry policy for
// transient failures belongs to the implementation, never to the callers.
package store

import (
	"context"

	"github.com/permitwise/permitwise/internal/types"
)

// RuleSetStore resolves jurisdictions and their active rule sets.
// Both lookups are read-only from the core's perspective; authoring and
// activation happen through separate tooling.
type RuleSetStore interface {
	// FindJurisdiction resolves a jurisdiction by name, case-insensitively.
	// Returns types.ErrJurisdictionNotFound on a miss.
	FindJurisdiction(ctx context.Context, name string) (*types.Jurisdiction, error)

	// FindActiveRuleSet returns the single active rule set for the pair.
	// Returns types.ErrRuleSetNotFound when none exists.
	FindActiveRuleSet(ctx context.Context, jurisdiction, category string) (*types.RuleSet, error)
}

// ConversationStore owns conversation state and transcripts.
type ConversationStore interface {
	// CreateConversation persists a new conversation record.
	CreateConversation(ctx context.Context, state *types.ConversationState) error

	// LoadConversation returns the state for an existing conversation.
	// Returns types.ErrConversationNotFound on a miss.
	LoadConversation(ctx context.Context, id types.ConversationID) (*types.ConversationState, error)

	// PersistTurn writes the updated state and appends the turn's new
	// messages as one logical update: both apply or neither does.
	PersistTurn(ctx context.Context, state *types.ConversationState, newMessages []types.Message) error
}
