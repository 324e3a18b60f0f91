package chat

import "time"

// RosterEntry is one known contact. Online is owned by the presence
// tracker; the preview fields are owned by whoever maintains the user
// directory.
type RosterEntry struct {
	Username           string    `json:"username"`
	Online             bool      `json:"is_online"`
	LastMessagePreview string    `json:"last_message,omitempty"`
	LastMessageAt      time.Time `json:"last_message_at,omitempty"`
}
