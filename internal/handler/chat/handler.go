package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatmodel "github.com/clubforge/clubchat/internal/model/chat"
	"github.com/clubforge/clubchat/internal/responder"
	"github.com/clubforge/clubchat/internal/session"
	"github.com/clubforge/clubchat/internal/store"
	"github.com/clubforge/clubchat/pkg/httpx"
)

// Handler serves session creation and the chat invocation contract.
type Handler struct {
	store     store.TranscriptStore
	responder responder.Responder
	logger    *zap.Logger
}

func New(transcripts store.TranscriptStore, r responder.Responder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: transcripts, responder: r, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Post("/chat", h.handleChat)
}

type createSessionRequest struct {
	Identity *chatmodel.Identity `json:"identity"`
}

type createSessionResponse struct {
	Session      chatmodel.Session `json:"session"`
	Welcome      chatmodel.Message `json:"welcome"`
	QuickReplies []string          `json:"quickReplies"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		httpx.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.store.CreateSession(r.Context(), payload.Identity)
	if err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		httpx.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	welcome := chatmodel.Message{
		ID:        chatmodel.WelcomeID,
		Author:    chatmodel.AuthorBot,
		Content:   session.WelcomeContent(payload.Identity),
		CreatedAt: sess.CreatedAt,
	}
	if err := h.store.AppendMessage(r.Context(), sess.ID, welcome); err != nil {
		h.logger.Warn("failed to persist welcome turn", zap.String("session", sess.ID), zap.Error(err))
	}

	httpx.RespondJSON(w, http.StatusCreated, createSessionResponse{
		Session:      sess,
		Welcome:      welcome,
		QuickReplies: session.DefaultQuickReplies,
	})
}

// handleChat implements the widget's backend contract: the request
// carries the message, optional userId, the session token, and the prior
// role-tagged transcript; the response carries the reply text.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req responder.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		httpx.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		httpx.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	resp, err := h.responder.Respond(r.Context(), req)
	if err != nil {
		h.logger.Warn("responder failed",
			zap.String("session", req.SessionID),
			zap.Error(err))
		httpx.RespondError(w, http.StatusBadGateway, "failed to generate response")
		return
	}

	h.persistTurns(r, req, resp)
	httpx.RespondJSON(w, http.StatusOK, resp)
}

// persistTurns saves the round for sessions registered on this server.
// The widget keeps its own log, so persistence is best-effort and unknown
// session tokens are simply skipped.
func (h *Handler) persistTurns(r *http.Request, req responder.Request, resp responder.Response) {
	ctx := r.Context()
	if _, err := h.store.GetSession(ctx, req.SessionID); err != nil {
		return
	}

	userTurn := chatmodel.Message{
		Author:  chatmodel.AuthorUser,
		Content: req.Message,
		Status:  chatmodel.StatusDelivered,
	}
	if err := h.store.AppendMessage(ctx, req.SessionID, userTurn); err != nil {
		h.logger.Warn("failed to persist user turn", zap.String("session", req.SessionID), zap.Error(err))
	}

	botTurn := chatmodel.Message{
		Author:  chatmodel.AuthorBot,
		Content: resp.Text,
	}
	if err := h.store.AppendMessage(ctx, req.SessionID, botTurn); err != nil {
		h.logger.Warn("failed to persist bot turn", zap.String("session", req.SessionID), zap.Error(err))
	}
}
