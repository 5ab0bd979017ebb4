package responder

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/clubforge/clubchat/internal/model/chat"
)

const clubSystemPrompt = "You are the membership club's assistant. You help members and visitors " +
	"with events, dues and payments, ongoing projects, blog posts, elections, and how to join. " +
	"Answer briefly and warmly, and point people at the relevant dashboard page when one exists. " +
	"If you do not know an answer, say so and suggest contacting a club admin."

// Ark generates replies through an eino chain over a configured chat
// model (Ark by default).
type Ark struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	historyLimit int
	logger       *zap.Logger
}

// NewArk compiles the prompt/model chain once per process.
func NewArk(ctx context.Context, chatModel model.ChatModel, historyLimit int, logger *zap.Logger) (*Ark, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	if historyLimit <= 0 {
		historyLimit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Ark{chain: runnable, historyLimit: historyLimit, logger: logger}, nil
}

func (a *Ark) Respond(ctx context.Context, req Request) (Response, error) {
	input := map[string]any{
		"system":  clubSystemPrompt,
		"history": a.historyMessages(req.PreviousMessages),
		"query":   req.Message,
	}

	reply, err := a.chain.Invoke(ctx, input)
	if err != nil {
		return Response{}, fmt.Errorf("failed to run chat chain: %w", err)
	}

	a.logger.Info("generated reply",
		zap.String("sessionId", req.SessionID),
		zap.Int("length", len(reply.Content)))
	return Response{Text: reply.Content}, nil
}

func (a *Ark) historyMessages(entries []chat.TranscriptEntry) []*schema.Message {
	if len(entries) == 0 {
		return nil
	}

	start := 0
	if len(entries) > a.historyLimit {
		start = len(entries) - a.historyLimit
	}

	history := make([]*schema.Message, 0, len(entries)-start)
	for _, entry := range entries[start:] {
		switch entry.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(entry.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(entry.Content, nil))
		}
	}
	return history
}
