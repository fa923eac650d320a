package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/plm-chat-api/internal/config"
	"jan-server/services/plm-chat-api/internal/domain/conversation"
	"jan-server/services/plm-chat-api/internal/utils/httpclients"
	chatclient "jan-server/services/plm-chat-api/internal/utils/httpclients/chat"
	"jan-server/services/plm-chat-api/internal/utils/platformerrors"
)

func newCompleter(t *testing.T, handler http.HandlerFunc) *ChatCompleter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := chatclient.NewChatCompletionClient(httpclients.NewClient("llm-test", 2*time.Second), "llm-test", srv.URL+"/v1/")
	return NewChatCompleter(client, Options{APIKey: "sk-test", Model: "gpt-test", Temperature: 0.7})
}

func TestComplete_SendsPromptAndReturnsFirstChoice(t *testing.T) {
	var got openai.ChatCompletionRequest
	var auth, path string
	completer := newCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: "assistant", Content: " Part 42 is in stock. "}}},
			Usage:   openai.Usage{PromptTokens: 12, CompletionTokens: 5},
		})
	})

	text, err := completer.Complete(context.Background(), []conversation.Turn{
		{Role: conversation.RoleSystem, Content: "be helpful"},
		{Role: conversation.RoleUser, Content: "hi"},
		{Role: conversation.RoleAssistant, Content: "hello"},
		{Role: conversation.RoleUser, Content: "part 42?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Part 42 is in stock.", text)
	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-test", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 0.001)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, got.Messages[2].Role)
	assert.Equal(t, "part 42?", got.Messages[3].Content)
}

func TestComplete_ProviderError(t *testing.T) {
	completer := newCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	})

	_, err := completer.Complete(context.Background(), []conversation.Turn{{Role: conversation.RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeExternal))
	assert.Contains(t, err.Error(), "rate limited")
}

func TestComplete_NoChoices(t *testing.T) {
	completer := newCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := completer.Complete(context.Background(), []conversation.Turn{{Role: conversation.RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestComplete_HonoursContextDeadline(t *testing.T) {
	completer := newCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := completer.Complete(ctx, []conversation.Turn{{Role: conversation.RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.NotEqual(t, "provider", errorType(err))
}

func TestComplete_UsesReloadedModelSettings(t *testing.T) {
	config.SetGlobal(&config.Config{DefaultModel: "gpt-reloaded", LLMTemperature: 0.2})
	t.Cleanup(func() { config.SetGlobal(nil) })

	var got openai.ChatCompletionRequest
	completer := newCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "ok"}}},
		})
	})

	_, err := completer.Complete(context.Background(), []conversation.Turn{{Role: conversation.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "gpt-reloaded", got.Model)
	assert.InDelta(t, 0.2, got.Temperature, 0.001)
}
