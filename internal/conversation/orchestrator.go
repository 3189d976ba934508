// Package conversation implements the turn orchestrator: the state machine
// that carries a resident from a free-text question to a rule evaluation.
//
// Conversation progress is duck-typed off the state record rather than an
// explicit phase enum: an unset Jurisdiction means the next turn resolves
// jurisdiction, an unset Category means category matching, outstanding
// required fields mean input collection, and a fully collected state goes
// straight to evaluation. Several phases can advance within a single turn
// when one message answers more than one question.
//
// Every successful turn persists state and new transcript messages through
// one PersistTurn call. A turn that fails (provider chain exhausted, store
// unavailable) persists nothing and leaves the conversation active; the
// caller may simply retry the message.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/permitwise/permitwise/internal/bridge"
	"github.com/permitwise/permitwise/internal/store"
	"github.com/permitwise/permitwise/internal/types"
)

// autoAcceptConfidence is the category-match score above which a single
// candidate is accepted without asking the user to confirm.
const autoAcceptConfidence = 0.85

// IntentMatcher is the language-model surface the orchestrator depends on.
// *matcher.Matcher implements it; tests substitute scripted stubs.
type IntentMatcher interface {
	DetectJurisdiction(ctx context.Context, message string) (string, error)
	MatchCategories(ctx context.Context, message string) ([]types.CategoryMatch, error)
	ExtractFields(ctx context.Context, message string, fields []string) (types.InputSet, error)
	ClarifyingQuestion(ctx context.Context, field string, collected []string) (string, error)
}

// Evaluator runs the rule engine for a resolved conversation.
// *bridge.Bridge implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, jurisdiction, category, subcategory string, inputs types.InputSet) (*bridge.Decision, error)
}

// Orchestrator drives conversations turn by turn.
type Orchestrator struct {
	conversations store.ConversationStore
	rules         store.RuleSetStore
	matcher       IntentMatcher
	evaluator     Evaluator
	log           *zap.Logger
}

// New creates an orchestrator over its collaborators.
func New(conversations store.ConversationStore, rules store.RuleSetStore, m IntentMatcher, e Evaluator, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		conversations: conversations,
		rules:         rules,
		matcher:       m,
		evaluator:     e,
		log:           log,
	}
}

// Turn processes one user message. An empty conversationID starts a new
// conversation; otherwise the existing one is loaded and advanced.
func (o *Orchestrator) Turn(ctx context.Context, conversationID types.ConversationID, callerID, message string) (*types.TurnResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, types.ErrEmptyMessage
	}
	if len(message) > types.MaxMessageLength {
		return nil, types.ErrMessageTooLarge
	}

	state, created, err := o.loadOrCreate(ctx, conversationID, callerID)
	if err != nil {
		return nil, err
	}
	if state.Status == types.StatusCompleted {
		return nil, types.ErrConversationCompleted
	}
	if len(state.Transcript) >= types.MaxTranscriptMessages {
		state.Status = types.StatusCompleted
		resp := o.respond(state, types.TurnError,
			"This conversation has reached its length limit. Please start a new one.")
		if err := o.persist(ctx, state, message, resp); err != nil {
			return nil, err
		}
		return resp, nil
	}

	resp, err := o.advance(ctx, state, message)
	if err != nil {
		// The turn made no durable progress; nothing is persisted and the
		// conversation stays exactly where it was.
		o.log.Warn("turn failed",
			zap.String("conversation", string(state.ID)),
			zap.Error(err))
		return nil, err
	}

	if err := o.persist(ctx, state, message, resp); err != nil {
		return nil, err
	}
	if created {
		o.log.Info("conversation started",
			zap.String("conversation", string(state.ID)),
			zap.String("caller", callerID))
	}
	return resp, nil
}

// loadOrCreate returns the conversation for the ID, creating a fresh one
// when the ID is empty.
func (o *Orchestrator) loadOrCreate(ctx context.Context, id types.ConversationID, callerID string) (*types.ConversationState, bool, error) {
	if id != "" {
		state, err := o.conversations.LoadConversation(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return state, false, nil
	}

	now := time.Now().UTC()
	state := &types.ConversationState{
		ID:        types.NewConversationID(),
		CallerID:  callerID,
		Status:    types.StatusActive,
		Inputs:    types.InputSet{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.conversations.CreateConversation(ctx, state); err != nil {
		return nil, false, fmt.Errorf("create conversation: %w", err)
	}
	return state, true, nil
}

// advance runs the state machine for one message. It mutates state but
// performs no persistence; the caller persists on success.
func (o *Orchestrator) advance(ctx context.Context, state *types.ConversationState, message string) (*types.TurnResponse, error) {
	// Pending disambiguation answers take priority over everything else:
	// the previous turn asked a specific question and this message is its
	// answer.
	if state.PendingConfirm != nil {
		return o.resolveConfirm(ctx, state, message)
	}
	if len(state.PendingCandidates) > 0 {
		return o.resolveSelection(ctx, state, message)
	}

	if state.Jurisdiction == "" {
		resp, done, err := o.resolveJurisdiction(ctx, state, message)
		if err != nil || done {
			return resp, err
		}
		// Jurisdiction resolved from this same message; keep going.
	}

	if state.Category == "" {
		return o.resolveCategory(ctx, state, message)
	}

	return o.collectAndEvaluate(ctx, state, message, true)
}

// resolveJurisdiction detects and validates the jurisdiction. done=true
// means a response was produced and the turn ends here.
func (o *Orchestrator) resolveJurisdiction(ctx context.Context, state *types.ConversationState, message string) (*types.TurnResponse, bool, error) {
	name, err := o.matcher.DetectJurisdiction(ctx, message)
	if err != nil {
		return nil, false, err
	}
	if name == "" {
		resp := o.respond(state, types.TurnQuestion,
			"Which city, county, or state is your question about?")
		return resp, true, nil
	}

	j, err := o.rules.FindJurisdiction(ctx, name)
	if errors.Is(err, types.ErrJurisdictionNotFound) {
		// A detected name the store cannot resolve is treated as not
		// found, never as a false positive resolution.
		resp := o.respond(state, types.TurnQuestion, fmt.Sprintf(
			"I don't have rules for %s yet. Is there another city, county, or state I should check?", name))
		return resp, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("resolve jurisdiction %q: %w", name, err)
	}

	state.Jurisdiction = j.Name
	return nil, false, nil
}

// resolveCategory runs category matching and either accepts a match,
// starts a disambiguation sub-state, or reports that nothing fits.
func (o *Orchestrator) resolveCategory(ctx context.Context, state *types.ConversationState, message string) (*types.TurnResponse, error) {
	matches, err := o.matcher.MatchCategories(ctx, message)
	if err != nil {
		return nil, err
	}

	switch {
	case len(matches) == 0:
		// Stays active: the user can rephrase and try again.
		return o.respond(state, types.TurnQuestion,
			"I couldn't find rules matching that question. Could you describe what you're trying to do in different words?"), nil

	case len(matches) == 1 && matches[0].Confidence > autoAcceptConfidence:
		// The original question is informative; mine it for inputs too.
		o.acceptMatch(state, matches[0])
		return o.collectAndEvaluate(ctx, state, message, true)

	case len(matches) == 1:
		// One plausible but uncertain match: confirm before committing.
		m := matches[0]
		state.PendingConfirm = &m
		return o.respond(state, types.TurnQuestion, fmt.Sprintf(
			"Are you asking: %s (yes/no)", m.Question)), nil

	default:
		if len(matches) > types.MaxCategoryCandidates {
			matches = matches[:types.MaxCategoryCandidates]
		}
		state.PendingCandidates = matches
		resp := o.respond(state, types.TurnQuestion,
			"Your question could be about a few different things. Which of these fits best?")
		for i, m := range matches {
			resp.Options = append(resp.Options, fmt.Sprintf("%d. %s", i+1, m.Question))
		}
		return resp, nil
	}
}

// resolveConfirm interprets the answer to a yes/no category confirmation.
func (o *Orchestrator) resolveConfirm(ctx context.Context, state *types.ConversationState, message string) (*types.TurnResponse, error) {
	match := *state.PendingConfirm
	switch parseAffirmation(message) {
	case answerYes:
		state.PendingConfirm = nil
		o.acceptMatch(state, match)
		return o.collectAndEvaluate(ctx, state, message, false)
	case answerNo:
		state.PendingConfirm = nil
		return o.respond(state, types.TurnQuestion,
			"Okay. Could you describe what you're trying to do in different words?"), nil
	default:
		return o.respond(state, types.TurnQuestion, fmt.Sprintf(
			"Sorry, I need a yes or no: are you asking: %s", match.Question)), nil
	}
}

// resolveSelection interprets the answer to a candidate pick list.
func (o *Orchestrator) resolveSelection(ctx context.Context, state *types.ConversationState, message string) (*types.TurnResponse, error) {
	idx, ok := parseSelection(message, state.PendingCandidates)
	if !ok {
		resp := o.respond(state, types.TurnQuestion,
			"Sorry, I didn't catch that. Please pick one of these by number:")
		for i, m := range state.PendingCandidates {
			resp.Options = append(resp.Options, fmt.Sprintf("%d. %s", i+1, m.Question))
		}
		return resp, nil
	}

	match := state.PendingCandidates[idx]
	state.PendingCandidates = nil
	o.acceptMatch(state, match)
	return o.collectAndEvaluate(ctx, state, match.Question, false)
}

// acceptMatch commits a category match onto the state.
func (o *Orchestrator) acceptMatch(state *types.ConversationState, m types.CategoryMatch) {
	state.Category = m.Category
	state.Subcategory = m.Subcategory
	state.Required = m.RequiredInputs
	if len(state.Required) > types.MaxRequiredFields {
		state.Required = state.Required[:types.MaxRequiredFields]
	}
}

// collectAndEvaluate extracts inputs from the message, asks for the next
// missing field, or hands off to evaluation once everything is collected.
// extract=false skips extraction for messages that were disambiguation
// answers rather than informative utterances.
func (o *Orchestrator) collectAndEvaluate(ctx context.Context, state *types.ConversationState, message string, extract bool) (*types.TurnResponse, error) {
	missing := state.Inputs.Missing(state.Required)

	if extract && len(missing) > 0 {
		// Extraction runs over every required field, not just the missing
		// ones; Merge keeps already-answered untargeted fields from being
		// overwritten by an offhand mention.
		found, err := o.matcher.ExtractFields(ctx, message, state.Required)
		if err != nil {
			return nil, err
		}
		var targeted []string
		if state.LastAsked != "" {
			targeted = []string{state.LastAsked}
		}
		state.Inputs.Merge(found, targeted)
		missing = state.Inputs.Missing(state.Required)
	}
	state.LastAsked = ""

	if len(missing) > 0 {
		field := missing[0]
		question, err := o.matcher.ClarifyingQuestion(ctx, field, collectedFields(state))
		if err != nil {
			return nil, err
		}
		state.LastAsked = field
		return o.respond(state, types.TurnClarification, question), nil
	}

	return o.evaluate(ctx, state)
}

// evaluate runs the rule engine and finalizes the conversation.
func (o *Orchestrator) evaluate(ctx context.Context, state *types.ConversationState) (*types.TurnResponse, error) {
	decision, err := o.evaluator.Evaluate(ctx, state.Jurisdiction, state.Category, state.Subcategory, state.Inputs)
	if errors.Is(err, types.ErrRuleSetNotFound) {
		// No rules exist for this pair yet. The conversation stays active:
		// rule sets get loaded out of band, so the user may resubmit and
		// succeed later.
		return o.respond(state, types.TurnError, fmt.Sprintf(
			"I don't have rules covering %s in %s yet, so I can't answer this one.",
			state.Category, state.Jurisdiction)), nil
	}
	if err != nil {
		return nil, err
	}

	state.Status = types.StatusCompleted
	resp := o.respond(state, types.TurnResult, decision.Rationale)
	resp.Outcome = decision.Outcome
	resp.Rationale = decision.Rationale
	resp.Citations = decision.Citations
	return resp, nil
}

// respond builds a TurnResponse bound to the conversation.
func (o *Orchestrator) respond(state *types.ConversationState, t types.TurnResponseType, text string) *types.TurnResponse {
	return &types.TurnResponse{
		Type:           t,
		Text:           text,
		ConversationID: state.ID,
	}
}

// persist writes the turn's state and transcript messages atomically.
func (o *Orchestrator) persist(ctx context.Context, state *types.ConversationState, userMessage string, resp *types.TurnResponse) error {
	now := time.Now().UTC()
	turn := []types.Message{
		{ID: types.NewMessageID(), Role: types.RoleUser, Content: userMessage, CreatedAt: now},
		{ID: types.NewMessageID(), Role: types.RoleAssistant, Content: resp.Text, CreatedAt: now},
	}
	if err := o.conversations.PersistTurn(ctx, state, turn); err != nil {
		return fmt.Errorf("persist turn: %w", err)
	}
	return nil
}

// collectedFields lists the required fields already answered, in required
// order, for the clarifier's do-not-re-ask constraint.
func collectedFields(state *types.ConversationState) []string {
	var collected []string
	for _, f := range state.Required {
		if state.Inputs.Has(f) {
			collected = append(collected, f)
		}
	}
	return collected
}
