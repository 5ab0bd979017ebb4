package chat

import "time"

// WelcomeID is the fixed identifier of the synthetic greeting seeded into
// every session log. The welcome turn never animates and is excluded from
// the transcript sent to the responder.
const WelcomeID = "welcome"

// Author identifies which side of the conversation produced a turn.
type Author string

const (
	AuthorUser Author = "user"
	AuthorBot  Author = "bot"
)

// DeliveryStatus tracks the outbound fate of a user turn. Bot turns carry
// no status.
type DeliveryStatus string

const (
	StatusSending   DeliveryStatus = "sending"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
)

// Message is one turn in a conversation log.
type Message struct {
	ID        string         `json:"id"`
	Author    Author         `json:"author"`
	Content   string         `json:"content"`
	Status    DeliveryStatus `json:"status,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// TranscriptEntry is the role-tagged form of a turn as the chat backend
// expects it.
type TranscriptEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Transcript maps a log to the backend wire form, dropping the synthetic
// welcome turn.
func Transcript(log []Message) []TranscriptEntry {
	entries := make([]TranscriptEntry, 0, len(log))
	for _, m := range log {
		if m.ID == WelcomeID {
			continue
		}
		role := RoleUser
		if m.Author == AuthorBot {
			role = RoleAssistant
		}
		entries = append(entries, TranscriptEntry{Role: role, Content: m.Content})
	}
	return entries
}
