package responder

import (
	"context"
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/clubforge/clubchat/internal/model/chat"
)

// TokenCounter reports how many prompt tokens a message list costs.
// Injected so tests do not depend on encoding downloads.
type TokenCounter func(messages []openai.ChatCompletionMessage) (int, error)

// OpenAIOptions configure the OpenAI-compatible responder.
type OpenAIOptions struct {
	Model       string
	Temperature float32
	// TokenBudget bounds the prompt size; oldest history entries are
	// dropped until the conversation fits.
	TokenBudget int
	Counter     TokenCounter
	Logger      *zap.Logger
}

// OpenAI generates replies through any OpenAI-compatible chat completion
// endpoint.
type OpenAI struct {
	client *openai.Client
	opts   OpenAIOptions
}

// NewOpenAI wraps an existing client. The zero options pick a sensible
// model and budget.
func NewOpenAI(client *openai.Client, opts OpenAIOptions) *OpenAI {
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if opts.TokenBudget <= 0 {
		opts.TokenBudget = 4000
	}
	if opts.Counter == nil {
		opts.Counter = tiktokenCounter(opts.Model)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &OpenAI{client: client, opts: opts}
}

func (o *OpenAI) Respond(ctx context.Context, req Request) (Response, error) {
	messages := o.trim(buildMessages(req))

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.opts.Model,
		Temperature: o.opts.Temperature,
		Messages:    messages,
	})
	if err != nil {
		return Response{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("chat completion returned no choices")
	}

	o.opts.Logger.Info("generated reply",
		zap.String("sessionId", req.SessionID),
		zap.String("model", o.opts.Model),
		zap.Int("promptMessages", len(messages)))
	return Response{Text: resp.Choices[0].Message.Content}, nil
}

// trim drops the oldest history entries (never the system prompt or the
// current user message) until the prompt fits the token budget. A counter
// failure falls back to a bytes/4 estimate rather than refusing the turn.
func (o *OpenAI) trim(messages []openai.ChatCompletionMessage) []openai.ChatCompletionMessage {
	for len(messages) > 2 {
		count, err := o.opts.Counter(messages)
		if err != nil {
			count = estimateTokens(messages)
		}
		if count <= o.opts.TokenBudget {
			break
		}
		// index 0 is the system prompt; 1 is the oldest history entry
		messages = append(messages[:1], messages[2:]...)
	}
	return messages
}

func buildMessages(req Request) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.PreviousMessages)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: clubSystemPrompt,
	})
	for _, entry := range req.PreviousMessages {
		role := openai.ChatMessageRoleUser
		if entry.Role == chat.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: entry.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})
	return messages
}

func tiktokenCounter(model string) TokenCounter {
	return func(messages []openai.ChatCompletionMessage) (int, error) {
		enc, err := tiktoken.EncodingForModel(model)
		if err != nil {
			return 0, fmt.Errorf("failed to load encoding for %s: %w", model, err)
		}
		total := 0
		for _, m := range messages {
			total += len(enc.Encode(m.Content, nil, nil)) + 4
		}
		return total, nil
	}
}

func estimateTokens(messages []openai.ChatCompletionMessage) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content)/4 + 4
	}
	return total
}
