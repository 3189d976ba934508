// internal/types/conversation.go
package types

import "time"

/*
 * Conversation state and turn contract.
 *
 * ConversationState is the single mutable record the orchestrator owns.
 * Lifecycle: created on first user message, mutated after every turn,
 * frozen once Status reaches completed. The core assumes single-writer per
 * conversation ID (request-level serialization happens upstream) and
 * provides no internal locking.
 *
 * TurnResponse is the only outbound shape the orchestrator produces; the
 * HTTP layer forwards it verbatim.
 */

// ConversationStatus enumerates conversation lifecycle states.
type ConversationStatus string

const (
	StatusActive    ConversationStatus = "active"
	StatusCompleted ConversationStatus = "completed"
	// StatusAbandoned is set externally on timeout or explicit exit,
	// never by the core.
	StatusAbandoned ConversationStatus = "abandoned"
)

// MessageRole identifies the author of a transcript message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry in the ordered conversation transcript.
type Message struct {
	ID        MessageID   `json:"id" db:"message_id"`
	Role      MessageRole `json:"role" db:"role"`
	Content   string      `json:"content" db:"content"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
}

// CategoryMatch is one ranked candidate from category matching: a rule
// category with the canonical question it answers and the inputs its rules
// require. Confidence is the matcher's score in [0,1].
type CategoryMatch struct {
	Category       string   `json:"category"`
	Subcategory    string   `json:"subcategory,omitempty"`
	Question       string   `json:"question"`
	Confidence     float64  `json:"confidence"`
	RequiredInputs []string `json:"requiredInputs"`
}

// ConversationState carries everything the orchestrator needs between
// turns. Jurisdiction, Category, and Subcategory start unset and are
// resolved in order. PendingCandidates and PendingConfirm hold the
// disambiguation sub-states of category matching: a non-empty candidate
// list means the user was offered a pick list, a non-nil PendingConfirm
// means a single moderate-confidence match awaits a yes/no.
type ConversationState struct {
	ID           ConversationID     `json:"id"`
	CallerID     string             `json:"callerId"`
	Jurisdiction string             `json:"jurisdiction,omitempty"`
	Category     string             `json:"category,omitempty"`
	Subcategory  string             `json:"subcategory,omitempty"`
	Inputs       InputSet           `json:"inputs"`
	Required     []string           `json:"required,omitempty"`
	Status       ConversationStatus `json:"status"`

	// LastAsked is the field named in the most recent clarifying question.
	// Extraction targets it on the next turn so the answer may revise an
	// earlier value; untargeted fields never get overwritten.
	LastAsked string `json:"lastAsked,omitempty"`

	PendingCandidates []CategoryMatch `json:"pendingCandidates,omitempty"`
	PendingConfirm    *CategoryMatch  `json:"pendingConfirm,omitempty"`

	Transcript []Message `json:"transcript"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TurnResponseType classifies what the assistant is asking for or reporting.
type TurnResponseType string

const (
	// TurnQuestion asks for jurisdiction or a category selection.
	TurnQuestion TurnResponseType = "question"
	// TurnClarification asks for one missing input field.
	TurnClarification TurnResponseType = "clarification"
	// TurnResult carries the final outcome and rationale.
	TurnResult TurnResponseType = "result"
	// TurnError reports a turn that could not make progress.
	TurnError TurnResponseType = "error"
)

// TurnResponse is the message-in/response-out contract of the orchestrator.
type TurnResponse struct {
	Type           TurnResponseType `json:"type"`
	Text           string           `json:"text"`
	Options        []string         `json:"options,omitempty"`
	Outcome        Outcome          `json:"outcome,omitempty"`
	Rationale      string           `json:"rationale,omitempty"`
	Citations      []string         `json:"citations,omitempty"`
	ConversationID ConversationID   `json:"conversationId"`
}
