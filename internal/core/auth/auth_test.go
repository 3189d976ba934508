package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
)

const (
	testSecretID = "0190163d8d7e70irrelevant00000000"
	testRandom   = "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9b0c1d2e3f4a5b6c7d8e9f0a1b2"
)

// validSecretID is all-hex; testSecretID above contains non-hex on purpose
// for format tests.
const validSecretID = "0190163d8d7e7000800000000000abcd"

var testSecret = []byte("0123456789abcdef0123456789abcdef") // 32 bytes

func validKey() string {
	return FormatAPIKey(validSecretID, testRandom)
}

func TestParseAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		ok   bool
	}{
		{"valid", validKey(), true},
		{"wrong prefix", "tk-v1-" + validSecretID + "-" + testRandom, false},
		{"wrong version", "pw-v2-" + validSecretID + "-" + testRandom, false},
		{"short secret id", "pw-v1-abc-" + testRandom, false},
		{"non-hex secret id", FormatAPIKey(testSecretID, testRandom), false},
		{"short random", "pw-v1-" + validSecretID + "-abcdef", false},
		{"empty", "", false},
		{"garbage", "not-a-key", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secretID, randomData, err := ParseAPIKey(tt.key)
			if tt.ok {
				if err != nil {
					t.Fatalf("ParseAPIKey(%q): %v", tt.key, err)
				}
				if secretID != validSecretID || randomData != testRandom {
					t.Errorf("ParseAPIKey = (%q, %q), want components back", secretID, randomData)
				}
			} else if !errors.Is(err, ErrInvalidKeyFormat) {
				t.Errorf("ParseAPIKey(%q) error = %v, want ErrInvalidKeyFormat", tt.key, err)
			}
		})
	}
}

func TestComputeHMACDeterministic(t *testing.T) {
	h1 := ComputeHMAC(testSecret, validKey())
	h2 := ComputeHMAC(testSecret, validKey())
	if h1 != h2 {
		t.Errorf("ComputeHMAC not deterministic: %s != %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}
	if !VerifyHMAC(h1, h2) {
		t.Errorf("VerifyHMAC(%s, %s) = false", h1, h2)
	}

	other := ComputeHMAC(testSecret, validKey()+"x")
	if VerifyHMAC(h1, other) {
		t.Errorf("VerifyHMAC accepted differing hashes")
	}
}

// stubQueries scripts the api_keys row Authenticate will find.
type stubQueries struct {
	row     map[string]string
	revoked bool
	getErr  error
	execed  []string
}

func (s *stubQueries) Get(ctx context.Context, name string, dest interface{}, args ...interface{}) error {
	if s.getErr != nil {
		return s.getErr
	}
	d := dest.(*struct {
		APIKeyID   string         `db:"api_key_id"`
		CallerID   string         `db:"caller_id"`
		RevokedAt  sql.NullString `db:"revoked_at"`
		LastUsedAt sql.NullString `db:"last_used_at"`
	})
	d.APIKeyID = s.row["api_key_id"]
	d.CallerID = s.row["caller_id"]
	if s.revoked {
		d.RevokedAt = sql.NullString{String: "2026-01-01T00:00:00Z", Valid: true}
	}
	return nil
}

func (s *stubQueries) Exec(ctx context.Context, name string, args ...interface{}) (sql.Result, error) {
	s.execed = append(s.execed, name)
	return nil, nil
}

func TestAuthenticate(t *testing.T) {
	q := &stubQueries{row: map[string]string{"api_key_id": "key-1", "caller_id": "caller-42"}}
	a := NewAuthenticator(map[string][]byte{validSecretID: testSecret}, q)

	callerID, err := a.Authenticate(context.Background(), validKey())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if callerID != "caller-42" {
		t.Errorf("callerID = %q, want caller-42", callerID)
	}
	// Never-used key gets its last-used timestamp written.
	if len(q.execed) != 1 || q.execed[0] != "update-api-key-last-used" {
		t.Errorf("exec calls = %v, want one last-used update", q.execed)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		queries *stubQueries
		secrets map[string][]byte
		wantErr error
	}{
		{
			name:    "bad format",
			key:     "nope",
			queries: &stubQueries{},
			secrets: map[string][]byte{validSecretID: testSecret},
			wantErr: ErrInvalidKeyFormat,
		},
		{
			name:    "unknown secret id",
			key:     validKey(),
			queries: &stubQueries{},
			secrets: map[string][]byte{},
			wantErr: ErrUnknownKey,
		},
		{
			name:    "no matching key record",
			key:     validKey(),
			queries: &stubQueries{getErr: sql.ErrNoRows},
			secrets: map[string][]byte{validSecretID: testSecret},
			wantErr: ErrInvalidKey,
		},
		{
			name:    "revoked",
			key:     validKey(),
			queries: &stubQueries{row: map[string]string{"api_key_id": "key-1", "caller_id": "c"}, revoked: true},
			secrets: map[string][]byte{validSecretID: testSecret},
			wantErr: ErrKeyRevoked,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthenticator(tt.secrets, tt.queries)
			_, err := a.Authenticate(context.Background(), tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authenticate error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthenticateDatabaseError(t *testing.T) {
	q := &stubQueries{getErr: errors.New("connection refused")}
	a := NewAuthenticator(map[string][]byte{validSecretID: testSecret}, q)

	_, err := a.Authenticate(context.Background(), validKey())
	if err == nil || !strings.Contains(err.Error(), "database error") {
		t.Errorf("Authenticate error = %v, want wrapped database error", err)
	}
}

func TestCallerIDContext(t *testing.T) {
	ctx := WithCallerID(context.Background(), "caller-7")
	if got := CallerIDFromContext(ctx); got != "caller-7" {
		t.Errorf("CallerIDFromContext = %q, want caller-7", got)
	}
	if got := CallerIDFromContext(context.Background()); got != "" {
		t.Errorf("CallerIDFromContext on empty context = %q, want empty", got)
	}
}
