// Package view composes the session log with the typing engine: it
// decides which turn, if any, animates, drives the reveal for it, and
// feeds the completion signal back into the session so input affordances
// unlock only after the reveal finishes.
package view

import (
	"context"

	"go.uber.org/zap"

	"github.com/clubforge/clubchat/internal/model/chat"
	"github.com/clubforge/clubchat/internal/session"
	"github.com/clubforge/clubchat/internal/typing"
)

// Frame is one renderable state of the whole conversation.
type Frame struct {
	Log          []chat.Message
	QuickReplies []string
	Pending      bool
	// AnimatingID names the turn being revealed; empty when every turn
	// renders statically.
	AnimatingID string
	Reveal      typing.Frame
}

// View owns one session and one typing engine.
type View struct {
	session *session.Session
	engine  *typing.Engine
	logger  *zap.Logger
}

func New(sess *session.Session, engine *typing.Engine, logger *zap.Logger) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &View{session: sess, engine: engine, logger: logger}
}

// Session exposes the underlying log for callers that need direct access.
func (v *View) Session() *session.Session { return v.session }

// Animating applies the single-animator rule: the turn animates iff it is
// the last log entry, bot-authored, and matches the session's typing
// marker. Everything else, the welcome turn included, renders statically
// no matter how often the log re-renders.
func Animating(snap session.Snapshot) (chat.Message, bool) {
	if len(snap.Log) == 0 || snap.TypingMessageID == "" {
		return chat.Message{}, false
	}
	last := snap.Log[len(snap.Log)-1]
	if last.Author != chat.AuthorBot || last.ID != snap.TypingMessageID {
		return chat.Message{}, false
	}
	return last, true
}

// Send forwards text to the session and returns the frame stream for the
// resulting reveal (or a single static frame when nothing animates, e.g.
// after a backend failure). Input rejections pass through as errors.
func (v *View) Send(ctx context.Context, text string) (<-chan Frame, error) {
	if err := v.session.Send(ctx, text); err != nil {
		return nil, err
	}
	return v.Reveal(ctx), nil
}

// Reveal drives the typing engine for the currently animating turn. The
// stream ends with a static frame taken after the completion signal has
// cleared the typing marker.
func (v *View) Reveal(ctx context.Context) <-chan Frame {
	out := make(chan Frame, 16)
	snap := v.session.Snapshot()

	animating, ok := Animating(snap)
	if !ok {
		out <- v.staticFrame(snap)
		close(out)
		return out
	}

	frames := v.engine.Start(ctx, animating.Content, v.session.OnTypingComplete)
	go func() {
		defer close(out)
		for f := range frames {
			frame := Frame{
				Log:          snap.Log,
				QuickReplies: snap.QuickReplies,
				AnimatingID:  animating.ID,
				Reveal:       f,
			}
			select {
			case out <- frame:
			case <-ctx.Done():
				return
			}
		}
		final := v.session.Snapshot()
		select {
		case out <- v.staticFrame(final):
		case <-ctx.Done():
		}
	}()
	return out
}

// Stop tears down any in-flight reveal. No completion signal fires after
// Stop returns, so a disposed view never mutates session state late.
func (v *View) Stop() { v.engine.Stop() }

func (v *View) staticFrame(snap session.Snapshot) Frame {
	return Frame{
		Log:          snap.Log,
		QuickReplies: snap.QuickReplies,
		Pending:      snap.Pending,
	}
}
