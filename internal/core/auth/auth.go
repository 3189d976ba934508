// Package auth provides HMAC-based API key authentication for the HTTP
// surface.
//
// Keys are verified without storing them: the database holds only the
// HMAC-SHA256 of the full key under a per-secret-ID signing secret loaded
// from the environment. A verified key resolves to a caller ID; requests
// without a key run as the anonymous caller when anonymous access is
// enabled.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AnonymousCaller identifies unauthenticated requests when anonymous
// access is enabled. Quota still applies to it as a single shared bucket.
const AnonymousCaller = "anonymous"

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

const callerIDKey = contextKey("caller_id")

// Queries is the database surface authentication needs.
// Implemented by *db.Queries.
type Queries interface {
	Get(ctx context.Context, name string, dest interface{}, args ...interface{}) error
	Exec(ctx context.Context, name string, args ...interface{}) (sql.Result, error)
}

// Authenticator validates API keys using HMAC-SHA256 signatures.
// Holds the in-memory secret map for O(1) secret lookup; key records live
// in the database.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
}

// NewAuthenticator creates an authenticator over HMAC secrets and queries.
func NewAuthenticator(secrets map[string][]byte, queries Queries) *Authenticator {
	return &Authenticator{secrets: secrets, queries: queries}
}

// Authenticate validates an API key and returns its caller ID.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (string, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	keyHash := ComputeHMAC(secret, apiKey)

	var result struct {
		APIKeyID   string         `db:"api_key_id"`
		CallerID   string         `db:"caller_id"`
		RevokedAt  sql.NullString `db:"revoked_at"`
		LastUsedAt sql.NullString `db:"last_used_at"`
	}
	err = a.queries.Get(ctx, "get-api-key-by-hash", &result, keyHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("database error: %w", err)
	}

	if result.RevokedAt.Valid && result.RevokedAt.String != "" {
		return "", ErrKeyRevoked
	}

	// The last-used timestamp is throttled to one write per minute per key
	// to keep active callers from hammering the table.
	if shouldUpdateLastUsed(result.LastUsedAt) {
		now := time.Now().UTC().Format(time.RFC3339)
		_, _ = a.queries.Exec(ctx, "update-api-key-last-used", now, result.APIKeyID)
	}

	return result.CallerID, nil
}

func shouldUpdateLastUsed(lastUsed sql.NullString) bool {
	if !lastUsed.Valid || lastUsed.String == "" {
		return true
	}
	t, err := time.Parse(time.RFC3339, lastUsed.String)
	if err != nil {
		return true
	}
	return time.Since(t) > time.Minute
}

// WithCallerID returns a context carrying the authenticated caller ID.
func WithCallerID(ctx context.Context, callerID string) context.Context {
	return context.WithValue(ctx, callerIDKey, callerID)
}

// CallerIDFromContext extracts the caller ID from the context.
// Returns empty string if not set.
func CallerIDFromContext(ctx context.Context) string {
	if callerID, ok := ctx.Value(callerIDKey).(string); ok {
		return callerID
	}
	return ""
}
