package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/clubforge/clubchat/internal/model/chat"
	"github.com/clubforge/clubchat/internal/store"
)

func TestMemoryCreateAndGetSession(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	session, err := s.CreateSession(ctx, &chat.Identity{ID: "m-1", Name: "Amina"})
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	got, err := s.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if got.ID != session.ID || got.UserID != "m-1" || got.UserName != "Amina" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestMemoryGetSessionNotFound(t *testing.T) {
	s := store.NewMemory()
	if _, err := s.GetSession(context.Background(), "missing"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryHistoryOrder(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	session, err := s.CreateSession(ctx, nil)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	turns := []chat.Message{
		{Author: chat.AuthorUser, Content: "first"},
		{Author: chat.AuthorBot, Content: "second"},
		{Author: chat.AuthorUser, Content: "third"},
	}
	for _, m := range turns {
		if err := s.AppendMessage(ctx, session.ID, m); err != nil {
			t.Fatalf("AppendMessage err: %v", err)
		}
	}

	history, err := s.History(ctx, session.ID)
	if err != nil {
		t.Fatalf("History err: %v", err)
	}
	if len(history) != len(turns) {
		t.Fatalf("history size = %d, want %d", len(history), len(turns))
	}
	for i, m := range history {
		if m.Content != turns[i].Content {
			t.Fatalf("history[%d] = %q, want %q", i, m.Content, turns[i].Content)
		}
		if m.ID == "" || m.CreatedAt.IsZero() {
			t.Fatalf("history[%d] missing id/timestamp: %+v", i, m)
		}
	}
}

func TestMemoryAppendToMissingSession(t *testing.T) {
	s := store.NewMemory()
	err := s.AppendMessage(context.Background(), "missing", chat.Message{Content: "x"})
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}
