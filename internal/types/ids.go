package types

import (
	"time"

	"github.com/google/uuid"
)

// NewConversationID generates a UUIDv7 conversation identifier.
// Time-ordered IDs ensure sequential inserts cluster in B-tree pages.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewConversationID() ConversationID {
	return ConversationID(uuid.Must(uuid.NewV7()).String())
}

// NewMessageID generates a UUIDv7 transcript message identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewMessageID() MessageID {
	return MessageID(uuid.Must(uuid.NewV7()).String())
}

// ParseConversationID validates and converts a string to ConversationID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the system.
func ParseConversationID(s string) (ConversationID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return ConversationID(s), nil
}

// ConversationIDTime extracts the timestamp embedded in a UUIDv7 ID.
// Enables time-based queries without database lookup.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func ConversationIDTime(id ConversationID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
