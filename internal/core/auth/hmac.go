package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseAPIKey extracts secret_id and random_data from the API key format.
// Format: pw-v1-<secret_id>-<random_data> (102 chars total).
// Returns ErrInvalidKeyFormat if the format doesn't match.
func ParseAPIKey(key string) (secretID, randomData string, err error) {
	parts := strings.Split(key, "-")
	if len(parts) != 4 {
		return "", "", ErrInvalidKeyFormat
	}
	if parts[0] != "pw" || parts[1] != "v1" {
		return "", "", ErrInvalidKeyFormat
	}

	secretID = parts[2]
	randomData = parts[3]

	// secret_id is 32 hex chars (UUID without hyphens), random_data is
	// 64 hex chars (256 bits).
	if len(secretID) != 32 || len(randomData) != 64 {
		return "", "", ErrInvalidKeyFormat
	}
	for _, c := range secretID + randomData {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", "", ErrInvalidKeyFormat
		}
	}

	return secretID, randomData, nil
}

// ComputeHMAC returns the hex-encoded HMAC-SHA256 of the full API key.
// Hex keeps the hash a plain TEXT column across both database drivers.
func ComputeHMAC(secret []byte, apiKey string) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(apiKey))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyHMAC compares two hashes in constant time.
func VerifyHMAC(expected, computed string) bool {
	return hmac.Equal([]byte(expected), []byte(computed))
}

// FormatAPIKey constructs an API key from its components. Used by key
// generation tooling.
func FormatAPIKey(secretID, randomData string) string {
	return fmt.Sprintf("pw-v1-%s-%s", secretID, randomData)
}
