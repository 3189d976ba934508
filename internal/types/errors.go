package types

import "errors"

// Sentinel errors for PermitWise operations.
var (
	// ErrUnknownOperator indicates a condition uses an operator the engine
	// does not implement. Fatal configuration error, never retried.
	ErrUnknownOperator = errors.New("unknown condition operator")

	// ErrInvalidCondition indicates a condition is missing a required
	// structural field (field name or combinator).
	ErrInvalidCondition = errors.New("invalid condition structure")

	// ErrInvalidOutcome indicates a rule declares an outcome outside the
	// fixed enumeration.
	ErrInvalidOutcome = errors.New("invalid rule outcome")

	// ErrRuleSetNotFound indicates no active rule set exists for a
	// (jurisdiction, category) pair. Distinct from an evaluation that
	// produces Allowed with no matches.
	ErrRuleSetNotFound = errors.New("no active rule set for jurisdiction and category")

	// ErrJurisdictionNotFound indicates a jurisdiction lookup miss.
	ErrJurisdictionNotFound = errors.New("jurisdiction not found")

	// ErrConversationNotFound indicates a conversation lookup miss.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrConversationCompleted indicates a turn was submitted for a
	// conversation that already reached completed.
	ErrConversationCompleted = errors.New("conversation already completed")

	// ErrMessageTooLarge indicates a user message exceeds MaxMessageLength.
	ErrMessageTooLarge = errors.New("message exceeds maximum length")

	// ErrEmptyMessage indicates a turn with no user text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrProvidersExhausted indicates every configured provider in the
	// fallback chain failed for one logical completion call.
	ErrProvidersExhausted = errors.New("all completion providers failed")

	// ErrProviderNotConfigured indicates an explicit provider hint named a
	// backend that is absent or lacks credentials.
	ErrProviderNotConfigured = errors.New("provider not configured")

	// ErrQuotaExceeded indicates the caller has no remaining turn budget.
	ErrQuotaExceeded = errors.New("usage quota exceeded")
)
