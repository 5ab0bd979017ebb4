package stream

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	chatmodel "github.com/clubforge/clubchat/internal/model/chat"
	"github.com/clubforge/clubchat/internal/responder"
	"github.com/clubforge/clubchat/internal/store"
	"github.com/clubforge/clubchat/internal/typing"
	"github.com/clubforge/clubchat/pkg/httpx"
)

// Handler streams a reply over Server-Sent Events, paced by the typing
// engine so thin clients can render the reveal without any timing logic
// of their own.
type Handler struct {
	store      store.TranscriptStore
	responder  responder.Responder
	typingOpts typing.Options
	logger     *zap.Logger
}

func New(transcripts store.TranscriptStore, r responder.Responder, typingOpts typing.Options, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: transcripts, responder: r, typingOpts: typingOpts, logger: logger}
}

// Event is one streamed chunk.
type Event struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Cursor    bool   `json:"cursor,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest answers one user message for a stored session,
// emitting start, thinking, delta, message, and end events.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	httpx.SetupSSEHeaders(w)

	sess, err := h.store.GetSession(ctx, sessionID)
	if err != nil {
		h.sendError(w, flusher, fmt.Sprintf("session lookup failed: %v", err))
		return err
	}

	history, err := h.store.History(ctx, sess.ID)
	if err != nil {
		h.sendError(w, flusher, fmt.Sprintf("failed to load conversation: %v", err))
		return err
	}

	userTurn := chatmodel.Message{
		Author:  chatmodel.AuthorUser,
		Content: userMessage,
		Status:  chatmodel.StatusDelivered,
	}
	if err := h.store.AppendMessage(ctx, sess.ID, userTurn); err != nil {
		h.logger.Warn("failed to persist user turn", zap.String("session", sess.ID), zap.Error(err))
	}

	h.send(w, flusher, Event{Event: "start", SessionID: sess.ID})

	req := responder.Request{
		Message:          userMessage,
		SessionID:        sess.ID,
		PreviousMessages: chatmodel.Transcript(history),
	}
	if sess.UserID != "" {
		userID := sess.UserID
		req.UserID = &userID
	}

	resp, err := h.responder.Respond(ctx, req)
	if err != nil {
		h.sendError(w, flusher, fmt.Sprintf("failed to generate response: %v", err))
		return err
	}

	if err := h.streamReveal(ctx, w, flusher, sess.ID, resp.Text); err != nil {
		return err
	}

	botTurn := chatmodel.Message{
		Author:  chatmodel.AuthorBot,
		Content: resp.Text,
	}
	if err := h.store.AppendMessage(ctx, sess.ID, botTurn); err != nil {
		h.logger.Warn("failed to persist bot turn", zap.String("session", sess.ID), zap.Error(err))
	}

	h.send(w, flusher, Event{Event: "end", SessionID: sess.ID, Finished: true})
	h.logger.Info("stream completed",
		zap.String("session", sess.ID),
		zap.Int("length", len(resp.Text)))
	return nil
}

// streamReveal paces the reply through the typing engine, emitting a
// thinking event for the composing hold and one delta per newly revealed
// chunk.
func (h *Handler) streamReveal(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID, text string) error {
	engine := typing.NewEngine(h.typingOpts)
	defer engine.Stop()

	frames := engine.Start(ctx, text, nil)
	sentThinking := false
	shown := ""
	cursor := true
	for f := range frames {
		advanced := false
		switch f.Phase {
		case typing.PhaseThinking:
			if !sentThinking {
				h.send(w, flusher, Event{Event: "thinking", SessionID: sessionID, Cursor: f.Cursor})
				sentThinking = true
				advanced = true
			}
		case typing.PhaseRevealing, typing.PhaseDone:
			if len(f.Text) > len(shown) {
				h.send(w, flusher, Event{Event: "delta", SessionID: sessionID, Content: f.Text[len(shown):], Cursor: f.Cursor})
				shown = f.Text
				advanced = true
			}
		}
		if f.Cursor != cursor {
			cursor = f.Cursor
			// Blink-only frames become cursor events; frames that also
			// advanced the text already carried the new cursor state.
			if !advanced {
				h.send(w, flusher, Event{Event: "cursor", SessionID: sessionID, Cursor: cursor})
			}
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	h.send(w, flusher, Event{Event: "message", SessionID: sessionID, Content: text})
	return nil
}

func (h *Handler) send(w http.ResponseWriter, flusher http.Flusher, event Event) {
	if err := httpx.SendSSE(w, flusher, event); err != nil {
		h.logger.Warn("failed to send sse event", zap.Error(err))
	}
}

func (h *Handler) sendError(w http.ResponseWriter, flusher http.Flusher, message string) {
	h.send(w, flusher, Event{Event: "error", Error: message})
}
