package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clubforge/clubchat/internal/model/chat"
	"github.com/clubforge/clubchat/internal/responder"
)

// stubResponder records invocations and replies (or fails) on demand.
type stubResponder struct {
	mu       sync.Mutex
	requests []responder.Request
	reply    string
	err      error
	block    chan struct{}
}

func (r *stubResponder) Respond(ctx context.Context, req responder.Request) (responder.Response, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	if r.block != nil {
		<-r.block
	}
	if r.err != nil {
		return responder.Response{}, r.err
	}
	return responder.Response{Text: r.reply}, nil
}

func (r *stubResponder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func newTestSession(r responder.Responder, identity *chat.Identity) *Session {
	seq := 0
	return New(Options{
		Responder: r,
		Identity:  identity,
		Now:       func() time.Time { return time.UnixMilli(1700000000000) },
		NewID: func() string {
			seq++
			return fmt.Sprintf("msg-%d", seq)
		},
		Frac: func() float64 { return 0.123456789 },
	})
}

func TestTokenFormat(t *testing.T) {
	s := newTestSession(&stubResponder{}, nil)
	want := regexp.MustCompile(`^session_\d+_\d+$`)
	if !want.MatchString(s.Token()) {
		t.Fatalf("token %q does not match session_<millis>_<fraction>", s.Token())
	}
	if s.Token() != "session_1700000000000_123456789" {
		t.Fatalf("unexpected token %q", s.Token())
	}
}

func TestInitializeSeedsPersonalizedWelcome(t *testing.T) {
	s := newTestSession(&stubResponder{}, &chat.Identity{ID: "m-1", Name: "Amina"})
	s.Initialize()

	snap := s.Snapshot()
	if len(snap.Log) != 1 {
		t.Fatalf("log size = %d, want 1", len(snap.Log))
	}
	welcome := snap.Log[0]
	if welcome.ID != chat.WelcomeID || welcome.Author != chat.AuthorBot {
		t.Fatalf("unexpected welcome turn: %+v", welcome)
	}
	if !strings.Contains(welcome.Content, "Amina") {
		t.Fatalf("welcome %q does not mention the member", welcome.Content)
	}
	if snap.Pending {
		t.Fatal("fresh session is pending")
	}
	if len(snap.QuickReplies) == 0 {
		t.Fatal("quick replies missing on first turn")
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	s := newTestSession(&stubResponder{}, nil)
	s.Initialize()
	s.Initialize()
	if got := len(s.Snapshot().Log); got != 1 {
		t.Fatalf("log size after double initialize = %d, want 1", got)
	}
}

func TestSendSuccessRound(t *testing.T) {
	stub := &stubResponder{reply: "Hi there!"}
	s := newTestSession(stub, &chat.Identity{ID: "m-1", Name: "Amina"})
	s.Initialize()

	if err := s.Send(context.Background(), "Hello"); err != nil {
		t.Fatalf("Send err: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Log) != 3 {
		t.Fatalf("log size = %d, want 3", len(snap.Log))
	}
	user, bot := snap.Log[1], snap.Log[2]
	if user.Author != chat.AuthorUser || user.Status != chat.StatusDelivered {
		t.Fatalf("user turn = %+v", user)
	}
	if bot.Author != chat.AuthorBot || bot.Content != "Hi there!" {
		t.Fatalf("bot turn = %+v", bot)
	}
	if snap.TypingMessageID != bot.ID {
		t.Fatalf("typingMessageID = %q, want %q", snap.TypingMessageID, bot.ID)
	}
	if snap.Pending {
		t.Fatal("pending not cleared")
	}
	if len(snap.QuickReplies) != 0 {
		t.Fatal("quick replies still shown after first round")
	}

	req := stub.requests[0]
	if req.SessionID != s.Token() {
		t.Fatalf("request sessionId = %q", req.SessionID)
	}
	if req.UserID == nil || *req.UserID != "m-1" {
		t.Fatalf("request userId = %v", req.UserID)
	}
	if len(req.PreviousMessages) != 0 {
		t.Fatalf("welcome leaked into transcript: %+v", req.PreviousMessages)
	}
}

func TestSendBlankIsNoOp(t *testing.T) {
	stub := &stubResponder{reply: "unused"}
	s := newTestSession(stub, nil)
	s.Initialize()

	if err := s.Send(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
	if got := len(s.Snapshot().Log); got != 1 {
		t.Fatalf("log size = %d, want 1", got)
	}
	if stub.calls() != 0 {
		t.Fatal("backend invoked for blank input")
	}
}

func TestSendFailureMapsToApology(t *testing.T) {
	stub := &stubResponder{err: errors.New("backend down")}
	s := newTestSession(stub, nil)
	s.Initialize()

	if err := s.Send(context.Background(), "ping"); err != nil {
		t.Fatalf("Send must swallow backend errors, got %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Log) != 3 {
		t.Fatalf("log size = %d, want 3", len(snap.Log))
	}
	if snap.Log[1].Status != chat.StatusFailed {
		t.Fatalf("user turn status = %q, want failed", snap.Log[1].Status)
	}
	if snap.Log[2].Content != DefaultApology {
		t.Fatalf("apology turn = %q", snap.Log[2].Content)
	}
	if snap.TypingMessageID != "" {
		t.Fatal("error turn must not animate")
	}
	if snap.Pending {
		t.Fatal("pending not cleared after failure")
	}
}

func TestSendSerialization(t *testing.T) {
	release := make(chan struct{})
	stub := &stubResponder{reply: "done", block: release}
	s := newTestSession(stub, nil)
	s.Initialize()

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.Send(context.Background(), "first") }()

	// Wait until the first send is in flight, then try a second.
	for s.Snapshot().Pending == false {
		time.Sleep(time.Millisecond)
	}
	if err := s.Send(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("second send err = %v, want ErrBusy", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first send err: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Log) != 3 {
		t.Fatalf("log grew by more than one round: %d entries", len(snap.Log))
	}
	if stub.calls() != 1 {
		t.Fatalf("backend invoked %d times, want 1", stub.calls())
	}
}

func TestOnTypingCompleteIdempotent(t *testing.T) {
	stub := &stubResponder{reply: "reveal me"}
	s := newTestSession(stub, nil)
	s.Initialize()
	if err := s.Send(context.Background(), "hey"); err != nil {
		t.Fatalf("Send err: %v", err)
	}

	s.OnTypingComplete()
	if got := s.Snapshot().TypingMessageID; got != "" {
		t.Fatalf("typingMessageID = %q after completion", got)
	}
	s.OnTypingComplete()
	if got := s.Snapshot().TypingMessageID; got != "" {
		t.Fatal("repeat completion changed state")
	}
}

func TestTranscriptRolesOnSecondRound(t *testing.T) {
	stub := &stubResponder{reply: "first reply"}
	s := newTestSession(stub, nil)
	s.Initialize()
	if err := s.Send(context.Background(), "first question"); err != nil {
		t.Fatalf("Send err: %v", err)
	}
	stub.reply = "second reply"
	if err := s.Send(context.Background(), "second question"); err != nil {
		t.Fatalf("Send err: %v", err)
	}

	req := stub.requests[1]
	want := []chat.TranscriptEntry{
		{Role: chat.RoleUser, Content: "first question"},
		{Role: chat.RoleAssistant, Content: "first reply"},
	}
	if len(req.PreviousMessages) != len(want) {
		t.Fatalf("transcript = %+v", req.PreviousMessages)
	}
	for i := range want {
		if req.PreviousMessages[i] != want[i] {
			t.Fatalf("transcript[%d] = %+v, want %+v", i, req.PreviousMessages[i], want[i])
		}
	}
}
