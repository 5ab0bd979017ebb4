package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/clubforge/clubchat/internal/config"
	chatmodel "github.com/clubforge/clubchat/internal/model/chat"
	"github.com/clubforge/clubchat/internal/responder"
	"github.com/clubforge/clubchat/internal/session"
	"github.com/clubforge/clubchat/internal/tui"
	"github.com/clubforge/clubchat/internal/typing"
	"github.com/clubforge/clubchat/internal/view"
)

func newChatCmd(ctx context.Context) *cobra.Command {
	var serverURL string
	var name string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(ctx, serverURL, name)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "base URL of a running clubchat server; empty runs the local responder")
	cmd.Flags().StringVar(&name, "name", "", "your name, for a personalized greeting")
	return cmd
}

func runChat(ctx context.Context, serverURL, name string) error {
	logger, err := newLogger("clubchat-chat.log")
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	loadEnv(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var reply responder.Responder
	if serverURL != "" {
		reply = responder.NewRemote(serverURL, nil)
	} else if reply, err = newResponder(ctx, cfg, logger); err != nil {
		return err
	}

	var identity *chatmodel.Identity
	if name != "" {
		identity = &chatmodel.Identity{Name: name}
	}

	sess := session.New(session.Options{
		Responder: reply,
		Identity:  identity,
		Apology:   cfg.Chat.Apology,
		Logger:    logger,
	})
	conversation := view.New(sess, typing.NewEngine(cfg.Typing.EngineOptions()), logger)
	defer conversation.Stop()

	program := tea.NewProgram(tui.New(ctx, conversation))
	_, err = program.Run()
	return err
}
