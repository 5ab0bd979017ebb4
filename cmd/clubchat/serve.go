package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clubforge/clubchat/internal/config"
	"github.com/clubforge/clubchat/internal/handler"
	"github.com/clubforge/clubchat/internal/responder"
	"github.com/clubforge/clubchat/internal/store"
)

func newServeCmd(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	logger, err := newLogger("")
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	loadEnv(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	transcripts := newStore(cfg, logger)
	reply, err := newResponder(ctx, cfg, logger)
	if err != nil {
		return err
	}

	router := handler.NewRouter(transcripts, reply, cfg.Typing.EngineOptions(), cfg.Chat.Apology, logger)

	addr, err := cfg.Server.Addr()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("clubchat listening", zap.String("addr", addr))
	return runServer(ctx, srv)
}

func newStore(cfg *config.Config, logger *zap.Logger) store.TranscriptStore {
	if cfg.Redis.Enabled() {
		logger.Info("using redis transcript store", zap.String("endpoint", cfg.Redis.Endpoint))
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Endpoint})
		return store.NewRedis(rdb)
	}
	logger.Info("using in-memory transcript store")
	return store.NewMemory()
}

// newResponder picks the reply backend from configuration. Missing
// credentials fall back to the scripted assistant rather than refusing
// to start, so the widget keeps working in development.
func newResponder(ctx context.Context, cfg *config.Config, logger *zap.Logger) (responder.Responder, error) {
	switch cfg.AI.Provider {
	case "ark":
		if !cfg.AI.Ark.Enabled() {
			logger.Warn("ark credentials missing, falling back to scripted responder")
			return responder.NewScripted(), nil
		}
		chatModel, err := cfg.AI.Ark.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create ark model: %w", err)
		}
		return responder.NewArk(ctx, chatModel, cfg.AI.HistoryLimit, logger)

	case "openai":
		if !cfg.AI.OpenAI.Enabled() {
			logger.Warn("openai credentials missing, falling back to scripted responder")
			return responder.NewScripted(), nil
		}
		clientCfg := openai.DefaultConfig(cfg.AI.OpenAI.APIKey)
		if cfg.AI.OpenAI.BaseURL != "" {
			clientCfg.BaseURL = cfg.AI.OpenAI.BaseURL
		}
		return responder.NewOpenAI(openai.NewClientWithConfig(clientCfg), responder.OpenAIOptions{
			Model:       cfg.AI.OpenAI.Model,
			Temperature: cfg.AI.OpenAI.Temperature,
			TokenBudget: cfg.AI.OpenAI.TokenBudget,
			Logger:      logger,
		}), nil

	case "scripted", "":
		return responder.NewScripted(), nil

	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AI.Provider)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
