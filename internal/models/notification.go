package models

import "encoding/json"

// Notification is a queued copy of a personal-room event for an identity that
// had no live connection when the event fired. Stored in Redis with a TTL;
// advisory only, like presence.
type Notification struct {
	ID        string          `json:"id"` // ULID
	UserKey   string          `json:"userKey"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"ts"` // Unix ms
}
