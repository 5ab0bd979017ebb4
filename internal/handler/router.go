package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	chatHandler "github.com/clubforge/clubchat/internal/handler/chat"
	streamHandler "github.com/clubforge/clubchat/internal/handler/stream"
	wsHandler "github.com/clubforge/clubchat/internal/handler/ws"
	"github.com/clubforge/clubchat/internal/middleware"
	"github.com/clubforge/clubchat/internal/responder"
	"github.com/clubforge/clubchat/internal/store"
	"github.com/clubforge/clubchat/internal/typing"
	"github.com/clubforge/clubchat/pkg/httpx"
)

// NewRouter wires HTTP routes to core services. An empty apology keeps
// the session default.
func NewRouter(transcripts store.TranscriptStore, r responder.Responder, typingOpts typing.Options, apology string, logger *zap.Logger) http.Handler {
	mux := chi.NewRouter()

	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(chimiddleware.Recoverer)
	mux.Use(middleware.CORS)

	chatH := chatHandler.New(transcripts, r, logger)
	streamH := streamHandler.New(transcripts, r, typingOpts, logger)
	wsH := wsHandler.New(transcripts, r, typingOpts, apology, logger)

	mux.Route("/api", func(api chi.Router) {
		chatH.RegisterRoutes(api)
		wsH.RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, req *http.Request) {
			sessionID := chi.URLParam(req, "sessionID")
			userMessage := req.URL.Query().Get("message")
			if userMessage == "" {
				httpx.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := streamH.HandleStreamRequest(req.Context(), w, sessionID, userMessage); err != nil {
				logger.Warn("stream request failed",
					zap.String("session", sessionID),
					zap.Error(err))
			}
		})
	})

	return mux
}
