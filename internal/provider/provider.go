// Package provider implements the gateway to interchangeable text-completion
// backends.
//
// Every backend normalizes its wire format to plain text plus a token-usage
// count, hiding backend-specific response shapes from the rest of the
// system. The Gateway owns provider selection, fallback ordering, and
// bounded retry; callers never see which vendor answered unless they ask.
package provider

import "context"

// Role values for completion turns.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a completion request.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the uniform completion contract. SystemPrompt travels
// separately because backends disagree on where system text belongs.
type Request struct {
	Turns        []Turn
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// Response is a normalized backend reply.
type Response struct {
	Text       string
	TokensUsed int
}

// Backend is the interface all upstream completion providers implement.
// Implementations must honor context cancellation on the underlying call.
type Backend interface {
	Name() string
	Complete(ctx context.Context, req *Request) (*Response, error)
}
