// internal/store/memstore.go
package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/permitwise/permitwise/internal/types"
)

/*
 * In-memory store.
 *
 * Backs tests and the local chat REPL. Guarded by a single RWMutex; values
 * are deep-copied through JSON round-trips on the conversation path so a
 * caller mutating a returned state cannot corrupt the stored copy. Rule
 * sets are stored as given and returned by pointer to a private copy.
 */

// MemStore implements RuleSetStore and ConversationStore in memory.
type MemStore struct {
	mu            sync.RWMutex
	jurisdictions map[string]types.Jurisdiction        // lowercased name -> record
	ruleSets      map[string]types.RuleSet             // jurisdiction|category -> set
	conversations map[types.ConversationID][]byte      // JSON-encoded state
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		jurisdictions: make(map[string]types.Jurisdiction),
		ruleSets:      make(map[string]types.RuleSet),
		conversations: make(map[types.ConversationID][]byte),
	}
}

func ruleSetKey(jurisdiction, category string) string {
	return strings.ToLower(jurisdiction) + "|" + category
}

// PutJurisdiction registers a jurisdiction for lookup.
func (s *MemStore) PutJurisdiction(j types.Jurisdiction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jurisdictions[strings.ToLower(j.Name)] = j
}

// PutRuleSet installs the active rule set for its (jurisdiction, category)
// pair, replacing any previous one: the single-active invariant holds by
// construction.
func (s *MemStore) PutRuleSet(set types.RuleSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ruleSets[ruleSetKey(set.Jurisdiction, set.Category)] = set
}

// FindJurisdiction implements RuleSetStore.
func (s *MemStore) FindJurisdiction(ctx context.Context, name string) (*types.Jurisdiction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jurisdictions[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, types.ErrJurisdictionNotFound
	}
	out := j
	return &out, nil
}

// FindActiveRuleSet implements RuleSetStore.
func (s *MemStore) FindActiveRuleSet(ctx context.Context, jurisdiction, category string) (*types.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.ruleSets[ruleSetKey(jurisdiction, category)]
	if !ok {
		return nil, types.ErrRuleSetNotFound
	}
	out := set
	return &out, nil
}

// CreateConversation implements ConversationStore.
func (s *MemStore) CreateConversation(ctx context.Context, state *types.ConversationState) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[state.ID] = encoded
	return nil
}

// LoadConversation implements ConversationStore.
func (s *MemStore) LoadConversation(ctx context.Context, id types.ConversationID) (*types.ConversationState, error) {
	s.mu.RLock()
	encoded, ok := s.conversations[id]
	s.mu.RUnlock()
	if !ok {
		return nil, types.ErrConversationNotFound
	}
	var state types.ConversationState
	if err := json.Unmarshal(encoded, &state); err != nil {
		return nil, err
	}
	if state.Inputs == nil {
		state.Inputs = types.InputSet{}
	}
	return &state, nil
}

// PersistTurn implements ConversationStore. The message slice is appended
// to the stored transcript before encoding so state and transcript can
// never desync.
func (s *MemStore) PersistTurn(ctx context.Context, state *types.ConversationState, newMessages []types.Message) error {
	state.Transcript = append(state.Transcript, newMessages...)
	state.UpdatedAt = time.Now().UTC()

	encoded, err := json.Marshal(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[state.ID]; !ok {
		return types.ErrConversationNotFound
	}
	s.conversations[state.ID] = encoded
	return nil
}
