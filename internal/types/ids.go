package types

import (
	"time"

	"github.com/google/uuid"
)

// EventID represents a UUIDv7 event identifier.
// String alias enables type safety while maintaining JSON string serialization.
type EventID string

// NewEventID generates a UUIDv7 event identifier.
// Time-ordered IDs keep event streams sortable by creation.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewEventID() EventID {
	return EventID(uuid.Must(uuid.NewV7()).String())
}

// ParseEventID validates and converts a string to EventID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the system.
func ParseEventID(s string) (EventID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return EventID(s), nil
}

// EventIDTime extracts the timestamp embedded in a UUIDv7 ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func EventIDTime(id EventID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
