package inference

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"jan-server/services/plm-chat-api/internal/config"
	"jan-server/services/plm-chat-api/internal/domain/conversation"
	"jan-server/services/plm-chat-api/internal/domain/dialogue"
	"jan-server/services/plm-chat-api/internal/infrastructure/logger"
	"jan-server/services/plm-chat-api/internal/infrastructure/metrics"
	"jan-server/services/plm-chat-api/internal/infrastructure/observability"
	chatclient "jan-server/services/plm-chat-api/internal/utils/httpclients/chat"
	"jan-server/services/plm-chat-api/internal/utils/platformerrors"
)

// ErrNoChoices is returned when the provider answers without a completion.
var ErrNoChoices = errors.New("completion returned no choices")

type Options struct {
	APIKey      string
	Model       string
	Temperature float32
}

// ChatCompleter sends a prompt to an OpenAI-compatible chat completion API.
type ChatCompleter struct {
	client *chatclient.ChatCompletionClient
	opts   Options
}

var _ dialogue.Completer = (*ChatCompleter)(nil)

func NewChatCompleter(client *chatclient.ChatCompletionClient, opts Options) *ChatCompleter {
	return &ChatCompleter{client: client, opts: opts}
}

func (c *ChatCompleter) Complete(ctx context.Context, messages []conversation.Turn) (string, error) {
	model, temperature := c.settings()
	request := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		Messages:    toOpenAIMessages(messages),
	}

	ctx, span := observability.StartSpan(ctx, "inference.Complete",
		trace.WithAttributes(
			attribute.String("llm.model", model),
			attribute.Int("llm.messages", len(messages)),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, c.opts.APIKey, request)
	if err != nil {
		observability.RecordError(ctx, err)
		metrics.RecordProviderError(model, errorType(err))
		log := logger.GetLogger()
		log.Warn().
			Err(err).
			Str("model", model).
			Int("messages", len(messages)).
			Msg("chat completion failed")
		return "", err
	}
	if len(resp.Choices) == 0 {
		metrics.RecordProviderError(model, "empty")
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"language model returned no choices", ErrNoChoices, "6c2e9a4f-0b7d-4f1a-8e3c-5d9b1a7f2e40")
	}

	observability.AddSpanAttributes(ctx,
		attribute.Int("llm.prompt_tokens", resp.Usage.PromptTokens),
		attribute.Int("llm.completion_tokens", resp.Usage.CompletionTokens),
	)
	metrics.RecordCompletion(model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, time.Since(start).Seconds())
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// settings returns the model and temperature of the last loaded config,
// falling back to the values given at construction.
func (c *ChatCompleter) settings() (string, float32) {
	if cfg := config.GetGlobal(); cfg != nil && cfg.DefaultModel != "" {
		return cfg.DefaultModel, cfg.LLMTemperature
	}
	return c.opts.Model, c.opts.Temperature
}

func toOpenAIMessages(turns []conversation.Turn) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, turn := range turns {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openAIRole(turn.Role),
			Content: turn.Content,
		})
	}
	return out
}

func openAIRole(role conversation.Role) string {
	switch role {
	case conversation.RoleSystem:
		return openai.ChatMessageRoleSystem
	case conversation.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case platformerrors.IsErrorType(err, platformerrors.ErrorTypeExternal):
		return "provider"
	default:
		return "transport"
	}
}
