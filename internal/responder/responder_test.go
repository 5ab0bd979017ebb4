package responder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/clubforge/clubchat/internal/model/chat"
)

func TestScriptedMatchesKeywords(t *testing.T) {
	s := NewScripted()
	ctx := context.Background()

	resp, err := s.Respond(ctx, Request{Message: "When is the next EVENT?"})
	if err != nil {
		t.Fatalf("Respond err: %v", err)
	}
	if resp.Text == s.Fallback {
		t.Fatal("keyword message got the fallback reply")
	}

	resp, err = s.Respond(ctx, Request{Message: "zzz"})
	if err != nil {
		t.Fatalf("Respond err: %v", err)
	}
	if resp.Text != s.Fallback {
		t.Fatalf("unmatched message got %q, want fallback", resp.Text)
	}
}

func TestRemoteRoundTrip(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(Response{Text: "Hi there!"})
	}))
	defer srv.Close()

	userID := "member-7"
	remote := NewRemote(srv.URL, srv.Client())
	resp, err := remote.Respond(context.Background(), Request{
		Message:   "Hello",
		UserID:    &userID,
		SessionID: "session_1700000000000_123456789",
		PreviousMessages: []chat.TranscriptEntry{
			{Role: chat.RoleUser, Content: "earlier"},
			{Role: chat.RoleAssistant, Content: "noted"},
		},
	})
	if err != nil {
		t.Fatalf("Respond err: %v", err)
	}
	if resp.Text != "Hi there!" {
		t.Fatalf("unexpected reply %q", resp.Text)
	}
	if got.Message != "Hello" || got.SessionID != "session_1700000000000_123456789" {
		t.Fatalf("request not forwarded faithfully: %+v", got)
	}
	if got.UserID == nil || *got.UserID != userID {
		t.Fatalf("userId not forwarded: %+v", got.UserID)
	}
	if len(got.PreviousMessages) != 2 {
		t.Fatalf("transcript not forwarded: %+v", got.PreviousMessages)
	}
}

func TestRemoteNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	remote := NewRemote(srv.URL, srv.Client())
	if _, err := remote.Respond(context.Background(), Request{Message: "ping"}); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestOpenAIDefaults(t *testing.T) {
	o := NewOpenAI(nil, OpenAIOptions{})
	if o.opts.Model != "gpt-4o-mini" {
		t.Fatalf("default model = %q, want gpt-4o-mini", o.opts.Model)
	}
	if o.opts.TokenBudget != 4000 {
		t.Fatalf("default token budget = %d, want 4000", o.opts.TokenBudget)
	}
	if o.opts.Counter == nil {
		t.Fatal("default token counter missing")
	}
}

func TestOpenAITrimDropsOldestHistory(t *testing.T) {
	o := NewOpenAI(nil, OpenAIOptions{
		TokenBudget: 30,
		Counter: func(messages []openai.ChatCompletionMessage) (int, error) {
			return len(messages) * 10, nil
		},
	})

	messages := buildMessages(Request{
		Message: "current",
		PreviousMessages: []chat.TranscriptEntry{
			{Role: chat.RoleUser, Content: "oldest"},
			{Role: chat.RoleAssistant, Content: "old reply"},
			{Role: chat.RoleUser, Content: "recent"},
		},
	})

	trimmed := o.trim(messages)
	if len(trimmed) != 3 {
		t.Fatalf("trimmed to %d messages, want 3", len(trimmed))
	}
	if trimmed[0].Role != openai.ChatMessageRoleSystem {
		t.Fatal("system prompt was dropped")
	}
	if trimmed[len(trimmed)-1].Content != "current" {
		t.Fatal("current user message was dropped")
	}
	if trimmed[1].Content == "oldest" {
		t.Fatal("oldest history entry survived trimming")
	}
}
