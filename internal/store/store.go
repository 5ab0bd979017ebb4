// Package store persists server-side conversation transcripts. The
// memory implementation suits a single instance; the redis one survives
// restarts and can be shared.
package store

import (
	"context"
	"errors"

	"github.com/clubforge/clubchat/internal/model/chat"
)

var ErrSessionNotFound = errors.New("session not found")

// TranscriptStore owns session records and their ordered turn history.
type TranscriptStore interface {
	CreateSession(ctx context.Context, identity *chat.Identity) (chat.Session, error)
	GetSession(ctx context.Context, sessionID string) (chat.Session, error)
	AppendMessage(ctx context.Context, sessionID string, message chat.Message) error
	History(ctx context.Context, sessionID string) ([]chat.Message, error)
}
