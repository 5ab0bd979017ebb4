package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	chatmodel "github.com/clubforge/clubchat/internal/model/chat"
	"github.com/clubforge/clubchat/internal/responder"
	"github.com/clubforge/clubchat/internal/session"
	"github.com/clubforge/clubchat/internal/store"
	"github.com/clubforge/clubchat/internal/typing"
	"github.com/clubforge/clubchat/internal/view"
	"github.com/clubforge/clubchat/pkg/httpx"
)

const pingInterval = 30 * time.Second

// Handler runs a live conversation over a websocket: inbound user turns,
// outbound typing frames. Each connection owns one session and one
// typing engine, torn down together when the socket closes.
type Handler struct {
	store      store.TranscriptStore
	responder  responder.Responder
	typingOpts typing.Options
	apology    string
	logger     *zap.Logger
	upgrader   websocket.Upgrader
}

// New builds the websocket handler. An empty apology keeps the session
// default.
func New(transcripts store.TranscriptStore, r responder.Responder, typingOpts typing.Options, apology string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:      transcripts,
		responder:  r,
		typingOpts: typingOpts,
		apology:    apology,
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleConnection)
}

type inbound struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type outbound struct {
	Type         string              `json:"type"`
	Text         string              `json:"text,omitempty"`
	Cursor       bool                `json:"cursor,omitempty"`
	Log          []chatmodel.Message `json:"log,omitempty"`
	QuickReplies []string            `json:"quickReplies,omitempty"`
	Error        string              `json:"error,omitempty"`
}

func (h *Handler) handleConnection(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	storedSession, err := h.store.GetSession(r.Context(), sessionID)
	if err != nil {
		httpx.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var identity *chatmodel.Identity
	if storedSession.UserID != "" {
		identity = &chatmodel.Identity{ID: storedSession.UserID, Name: storedSession.UserName}
	}

	sess := session.New(session.Options{
		Responder: h.responder,
		Identity:  identity,
		Apology:   h.apology,
		Logger:    h.logger,
	})
	sess.Initialize()

	conversation := view.New(sess, typing.NewEngine(h.typingOpts), h.logger)
	defer conversation.Stop()

	// The keepalive and the turn pump share the socket, so every write
	// goes through writeMu.
	var writeMu sync.Mutex
	write := func(msg outbound) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	var wg conc.WaitGroup
	defer wg.Wait()
	wg.Go(func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				writeMu.Unlock()
				if err != nil {
					cancel()
					return
				}
			}
		}
	})

	snap := sess.Snapshot()
	if err := write(outbound{Type: "log", Log: snap.Log, QuickReplies: snap.QuickReplies}); err != nil {
		return
	}

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.String("session", sessionID), zap.Error(err))
			}
			return
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		h.runTurn(ctx, conversation, sessionID, msg.Text, write)

		if ctx.Err() != nil {
			return
		}
	}
}

// runTurn sends one user message through the conversation and pumps the
// resulting frames to the client.
func (h *Handler) runTurn(ctx context.Context, conversation *view.View, sessionID, text string, write func(outbound) error) {
	frames, err := conversation.Send(ctx, text)
	if err != nil {
		// Blank input and double-sends are silent no-ops.
		return
	}

	shown := ""
	sentThinking := false
	var final view.Frame
	for f := range frames {
		final = f
		if f.AnimatingID == "" {
			continue
		}
		switch f.Reveal.Phase {
		case typing.PhaseThinking:
			if !sentThinking {
				if err := write(outbound{Type: "thinking", Cursor: f.Reveal.Cursor}); err != nil {
					return
				}
				sentThinking = true
			}
		case typing.PhaseRevealing, typing.PhaseDone:
			if len(f.Reveal.Text) > len(shown) {
				if err := write(outbound{Type: "delta", Text: f.Reveal.Text[len(shown):], Cursor: f.Reveal.Cursor}); err != nil {
					return
				}
				shown = f.Reveal.Text
			}
		}
	}

	h.persistUserTurn(ctx, sessionID, final)
	h.persistBotTurn(ctx, sessionID, final)

	if err := write(outbound{Type: "log", Log: final.Log, QuickReplies: final.QuickReplies}); err != nil {
		return
	}
	_ = write(outbound{Type: "end"})
}

// persistUserTurn stores the round's user turn with its settled delivery
// status, so a failed round is recorded as failed server-side too.
func (h *Handler) persistUserTurn(ctx context.Context, sessionID string, final view.Frame) {
	for i := len(final.Log) - 1; i >= 0; i-- {
		turn := final.Log[i]
		if turn.Author != chatmodel.AuthorUser {
			continue
		}
		if err := h.store.AppendMessage(ctx, sessionID, turn); err != nil {
			h.logger.Warn("failed to persist user turn", zap.String("session", sessionID), zap.Error(err))
		}
		return
	}
}

func (h *Handler) persistBotTurn(ctx context.Context, sessionID string, final view.Frame) {
	if len(final.Log) == 0 {
		return
	}
	last := final.Log[len(final.Log)-1]
	if last.Author != chatmodel.AuthorBot {
		return
	}
	if err := h.store.AppendMessage(ctx, sessionID, last); err != nil {
		h.logger.Warn("failed to persist bot turn", zap.String("session", sessionID), zap.Error(err))
	}
}
