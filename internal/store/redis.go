package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clubforge/clubchat/internal/model/chat"
)

const (
	sessionKeyPrefix  = "clubchat:session:"
	messagesKeyPrefix = "clubchat:messages:"
)

// Redis stores each session as a JSON blob and its transcript as a list
// of JSON-encoded turns.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (s *Redis) CreateSession(ctx context.Context, identity *chat.Identity) (chat.Session, error) {
	session := chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	if identity != nil {
		session.UserID = identity.ID
		session.UserName = identity.Name
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return chat.Session{}, fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKeyPrefix+session.ID, payload, 0).Err(); err != nil {
		return chat.Session{}, fmt.Errorf("failed to store session %s: %w", session.ID, err)
	}
	return session, nil
}

func (s *Redis) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	raw, err := s.rdb.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return chat.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return chat.Session{}, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	var session chat.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return chat.Session{}, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	return session, nil
}

func (s *Redis) AppendMessage(ctx context.Context, sessionID string, message chat.Message) error {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return err
	}

	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if err := s.rdb.RPush(ctx, messagesKeyPrefix+sessionID, payload).Err(); err != nil {
		return fmt.Errorf("failed to append message to %s: %w", sessionID, err)
	}
	return nil
}

func (s *Redis) History(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	raws, err := s.rdb.LRange(ctx, messagesKeyPrefix+sessionID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", sessionID, err)
	}

	messages := make([]chat.Message, 0, len(raws))
	for _, raw := range raws {
		var m chat.Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("failed to decode message in %s: %w", sessionID, err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}
