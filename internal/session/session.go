// Package session holds the conversational log for one chat widget
// instance: an append-only message list, a single-flight pending guard,
// and the marker for which bot turn is still mid-reveal. The session is a
// passive log; pacing and rendering live in the typing and view packages.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clubforge/clubchat/internal/model/chat"
	"github.com/clubforge/clubchat/internal/responder"
)

var (
	// ErrEmptyMessage rejects blank or whitespace-only input. No state
	// changes; the widget stays quiet about it.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrBusy rejects a send while a previous one is still in flight.
	ErrBusy = errors.New("a send is already in flight")
)

// DefaultApology is the fixed bot line appended when the backend call
// fails. Error turns never animate.
const DefaultApology = "⚠️ I'm having trouble responding. Please try again."

// DefaultQuickReplies are the first-turn suggestion chips.
var DefaultQuickReplies = []string{
	"What events are coming up?",
	"How do I pay my dues?",
	"Tell me about ongoing projects",
	"How do I become a member?",
}

// Options configure a Session. Responder is the only required field.
type Options struct {
	Responder    responder.Responder
	Identity     *chat.Identity
	QuickReplies []string
	Apology      string
	Logger       *zap.Logger

	// Now, NewID, and Frac are injectable for tests; defaults use the
	// system clock, uuid, and math/rand.
	Now   func() time.Time
	NewID func() string
	Frac  func() float64
}

// Session is safe for use from multiple goroutines; the pending flag
// serializes backend calls regardless.
type Session struct {
	mu      sync.Mutex
	log     []chat.Message
	pending bool
	typing  string

	token        string
	identity     *chat.Identity
	responder    responder.Responder
	quickReplies []string
	apology      string
	logger       *zap.Logger

	now   func() time.Time
	newID func() string
}

// Snapshot is a point-in-time copy of the observable session state.
type Snapshot struct {
	Log             []chat.Message
	Pending         bool
	TypingMessageID string
	QuickReplies    []string
}

// New constructs a session and generates its token. The token is stable
// for the session's lifetime and rides along on every backend request.
func New(opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Frac == nil {
		opts.Frac = rand.Float64
	}
	if opts.Apology == "" {
		opts.Apology = DefaultApology
	}
	if opts.QuickReplies == nil {
		opts.QuickReplies = DefaultQuickReplies
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Session{
		token:        NewToken(opts.Now(), opts.Frac()),
		identity:     opts.Identity,
		responder:    opts.Responder,
		quickReplies: opts.QuickReplies,
		apology:      opts.Apology,
		logger:       opts.Logger,
		now:          opts.Now,
		newID:        opts.NewID,
	}
}

// NewToken formats a session token as session_<epoch-millis>_<fraction
// digits>, mirroring what the widget has always sent.
func NewToken(now time.Time, frac float64) string {
	digits := strconv.FormatFloat(frac, 'f', 9, 64)
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), digits[2:])
}

// Token returns the stable per-session identifier.
func (s *Session) Token() string { return s.token }

// Initialize seeds the welcome turn. Idempotent: a non-empty log is left
// untouched, so remounts do not duplicate the greeting.
func (s *Session) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.log) > 0 {
		return
	}
	s.log = append(s.log, chat.Message{
		ID:        chat.WelcomeID,
		Author:    chat.AuthorBot,
		Content:   WelcomeContent(s.identity),
		CreatedAt: s.now(),
	})
}

// WelcomeContent builds the greeting, personalized when an identity with
// a name is present.
func WelcomeContent(identity *chat.Identity) string {
	name := ""
	if identity != nil && strings.TrimSpace(identity.Name) != "" {
		name = " " + strings.TrimSpace(identity.Name)
	}
	return fmt.Sprintf("Hi%s! Welcome to the club. I can help with events, payments, projects, and membership. What would you like to know?", name)
}

// Send appends the user turn, invokes the backend, and maps the outcome
// into the log. Blank input and double-sends are rejected without state
// change. Backend failures never propagate: they become a Failed badge on
// the user turn plus one apology bot turn.
func (s *Session) Send(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return ErrBusy
	}
	s.pending = true

	userMsg := chat.Message{
		ID:        s.newID(),
		Author:    chat.AuthorUser,
		Content:   text,
		Status:    chat.StatusSending,
		CreatedAt: s.now(),
	}
	userIdx := len(s.log)
	s.log = append(s.log, userMsg)

	req := responder.Request{
		Message:          text,
		SessionID:        s.token,
		PreviousMessages: chat.Transcript(s.log[:userIdx]),
	}
	if s.identity != nil && s.identity.ID != "" {
		id := s.identity.ID
		req.UserID = &id
	}
	s.mu.Unlock()

	resp, err := s.responder.Respond(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false

	if err != nil {
		s.logger.Warn("backend call failed", zap.String("session", s.token), zap.Error(err))
		s.log[userIdx].Status = chat.StatusFailed
		s.log = append(s.log, chat.Message{
			ID:        s.newID(),
			Author:    chat.AuthorBot,
			Content:   s.apology,
			CreatedAt: s.now(),
		})
		return nil
	}

	s.log[userIdx].Status = chat.StatusDelivered
	botMsg := chat.Message{
		ID:        s.newID(),
		Author:    chat.AuthorBot,
		Content:   resp.Text,
		CreatedAt: s.now(),
	}
	s.log = append(s.log, botMsg)
	s.typing = botMsg.ID
	return nil
}

// OnTypingComplete clears the animating-message marker. Idempotent.
func (s *Session) OnTypingComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing = ""
}

// Snapshot copies the observable state. Quick replies are exposed only
// while the log holds just the welcome turn.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Log:             append([]chat.Message(nil), s.log...),
		Pending:         s.pending,
		TypingMessageID: s.typing,
	}
	if len(s.log) == 1 {
		snap.QuickReplies = append([]string(nil), s.quickReplies...)
	}
	return snap
}
