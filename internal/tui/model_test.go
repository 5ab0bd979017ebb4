package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/clubforge/clubchat/internal/responder"
	"github.com/clubforge/clubchat/internal/session"
	"github.com/clubforge/clubchat/internal/typing"
	"github.com/clubforge/clubchat/internal/view"
)

func testConversation(reply string) *view.View {
	sess := session.New(session.Options{Responder: &responder.Scripted{Fallback: reply}})
	engine := typing.NewEngine(typing.Options{
		Policy:         typing.ConstantPolicy{Base: time.Millisecond},
		Grace:          2 * time.Millisecond,
		CursorInterval: time.Millisecond,
	})
	return view.New(sess, engine, nil)
}

func TestNewModelShowsWelcomeAndQuickReplies(t *testing.T) {
	conversation := testConversation("ok")
	defer conversation.Stop()

	m := New(context.Background(), conversation)
	out := m.View()

	if !strings.Contains(out, "Welcome to the club") {
		t.Fatalf("view missing welcome:\n%s", out)
	}
	if !strings.Contains(out, "dues") {
		t.Fatalf("view missing quick replies:\n%s", out)
	}
}

func TestFrameUpdatesAdvanceReveal(t *testing.T) {
	conversation := testConversation("Hi there!")
	defer conversation.Stop()

	m := New(context.Background(), conversation)

	frames, err := conversation.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send err: %v", err)
	}
	m.frames = frames

	for f := range frames {
		m.current = f
	}

	out := m.View()
	if !strings.Contains(out, "Hi there!") {
		t.Fatalf("final view missing reply:\n%s", out)
	}
	if strings.Contains(out, "▌") {
		t.Fatalf("cursor still visible after completion:\n%s", out)
	}
}
