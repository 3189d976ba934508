// Package types provides domain models shared across PermitWise components.
//
// Zero-dependency design: types.go, rules.go, conversation.go, and errors.go
// use only encoding/json so the evaluation engine and orchestrator can be
// embedded without pulling in storage or transport deps. ID utilities in
// ids.go import uuid but are isolated for selective inclusion.
package types

import "encoding/json"

// ConversationID represents a UUIDv7 conversation identifier.
// String alias enables type safety while maintaining JSON string serialization.
// UUIDv7 time-ordering ensures sequential IDs cluster in B-tree indexes.
type ConversationID string

// MessageID represents a UUIDv7 transcript message identifier.
type MessageID string

// InputSet maps field names to typed scalar or array values collected
// across conversation turns. Field presence, not value, determines
// "collected": a field explicitly set to false counts as answered.
type InputSet map[string]any

// Has reports whether the field has been collected.
func (in InputSet) Has(field string) bool {
	_, ok := in[field]
	return ok
}

// Missing returns the subset of required fields not yet collected,
// preserving the order of the required list. Order is significant: the
// orchestrator asks clarifying questions in this order.
func (in InputSet) Missing(required []string) []string {
	var missing []string
	for _, f := range required {
		if !in.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Merge copies fields from other into the set without overwriting fields
// that are already present, unless the field name is listed in targeted.
// Targeted fields are ones the extraction was explicitly asked for, which
// may legitimately revise an earlier answer.
func (in InputSet) Merge(other InputSet, targeted []string) {
	target := make(map[string]bool, len(targeted))
	for _, f := range targeted {
		target[f] = true
	}
	for k, v := range other {
		if in.Has(k) && !target[k] {
			continue
		}
		in[k] = v
	}
}

// Clone returns a shallow copy of the input set.
func (in InputSet) Clone() InputSet {
	out := make(InputSet, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Jurisdiction identifies a rule-issuing locality. The core treats it as an
// opaque validated lookup key once resolved; authoring happens elsewhere.
type Jurisdiction struct {
	Name   string `json:"name" db:"name"`
	Region string `json:"region" db:"region"`
}

// Resource limits enforced at the API boundary to bound per-turn work.
const (
	// MaxMessageLength caps a single user utterance. 4KB covers multi-sentence
	// questions without letting a caller stuff whole documents into a prompt.
	MaxMessageLength = 4 * 1024

	// MaxTranscriptMessages caps transcript growth for a single conversation.
	MaxTranscriptMessages = 200

	// MaxRequiredFields caps the required-input list accepted from category
	// matching. Prevents a malformed completion from creating an unfinishable
	// conversation.
	MaxRequiredFields = 32

	// MaxCategoryCandidates is the most candidates ever presented to a user
	// when category matching is ambiguous.
	MaxCategoryCandidates = 3
)

// RawJSON preserves original bytes for schema-agnostic storage of rule
// expressions and input sets in SQL columns.
type RawJSON json.RawMessage

// MarshalJSON implements json.Marshaler.
func (r RawJSON) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	return json.RawMessage(r).MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *RawJSON) UnmarshalJSON(data []byte) error {
	return (*json.RawMessage)(r).UnmarshalJSON(data)
}
