// Package responder defines the chat backend contract: given the user's
// message, an optional identity, the session token, and the prior
// role-tagged transcript, produce the bot's reply. Implementations cover
// the Ark model via eino chains, OpenAI-compatible endpoints, a remote
// clubchat server, and a deterministic scripted variant for development
// and tests.
package responder

import (
	"context"

	"github.com/clubforge/clubchat/internal/model/chat"
)

// Request is the backend invocation payload.
type Request struct {
	Message          string                 `json:"message"`
	UserID           *string                `json:"userId"`
	SessionID        string                 `json:"sessionId"`
	PreviousMessages []chat.TranscriptEntry `json:"previousMessages"`
}

// Response carries the reply text.
type Response struct {
	Text string `json:"response"`
}

// Responder produces a bot reply for one turn.
type Responder interface {
	Respond(ctx context.Context, req Request) (Response, error)
}
