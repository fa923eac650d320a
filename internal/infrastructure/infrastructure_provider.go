package infrastructure

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"
	"resty.dev/v3"

	"jan-server/services/plm-chat-api/internal/config"
	"jan-server/services/plm-chat-api/internal/domain/dialogue"
	"jan-server/services/plm-chat-api/internal/domain/plm"
	"jan-server/services/plm-chat-api/internal/infrastructure/crontab"
	"jan-server/services/plm-chat-api/internal/infrastructure/inference"
	"jan-server/services/plm-chat-api/internal/infrastructure/logger"
	"jan-server/services/plm-chat-api/internal/infrastructure/openbom"
	"jan-server/services/plm-chat-api/internal/utils/httpclients"
	chatclient "jan-server/services/plm-chat-api/internal/utils/httpclients/chat"
	"jan-server/services/plm-chat-api/internal/utils/redact"
)

// ProvideConfig loads and provides the application configuration
func ProvideConfig() (*config.Config, error) {
	return config.Load()
}

// ProvideLogger builds the configured logger and installs it globally
func ProvideLogger(cfg *config.Config) (zerolog.Logger, error) {
	return logger.New(cfg.LogLevel, cfg.LogFormat)
}

// ProvideOpenBOMHTTPClient provides the resty client shared by the OpenBOM
// data calls and the login call.
func ProvideOpenBOMHTTPClient(cfg *config.Config) *resty.Client {
	client := httpclients.NewClient("OpenBOMClient", cfg.OpenBOMHTTPTimeout)
	client.SetBaseURL(cfg.OpenBOMBaseURL)
	return client
}

func ProvideOpenBOMAuthenticator(cfg *config.Config, client *resty.Client) *openbom.Authenticator {
	return openbom.NewAuthenticator(client, cfg.OpenBOMAPIKey, cfg.OpenBOMAccessToken)
}

// ProvideChatCompletionClient builds its own resty client; the LLM endpoint
// has a different base URL and timeout than OpenBOM.
func ProvideChatCompletionClient(cfg *config.Config) *chatclient.ChatCompletionClient {
	client := httpclients.NewClient("LLMClient", cfg.LLMTimeout)
	return chatclient.NewChatCompletionClient(client, "LLMClient", cfg.OpenAIBaseURL)
}

func ProvideChatCompleter(cfg *config.Config, client *chatclient.ChatCompletionClient) *inference.ChatCompleter {
	return inference.NewChatCompleter(client, inference.Options{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.DefaultModel,
		Temperature: cfg.LLMTemperature,
	})
}

// ProvideRedactor provides the PII redactor used by request and dialogue logs
func ProvideRedactor(cfg *config.Config) *redact.Redactor {
	return redact.New(redact.ParseLevel(cfg.LogPIILevel), cfg.ServiceNamespace+"/"+cfg.ServiceName)
}

// InfrastructureProvider provides all infrastructure dependencies
var InfrastructureProvider = wire.NewSet(
	// Config
	ProvideConfig,

	// Logger
	ProvideLogger,
	ProvideRedactor,

	// OpenBOM
	ProvideOpenBOMHTTPClient,
	ProvideOpenBOMAuthenticator,
	openbom.NewClient,
	wire.Bind(new(plm.Client), new(*openbom.Client)),
	wire.Bind(new(plm.CredentialProvider), new(*openbom.Authenticator)),

	// LLM
	ProvideChatCompletionClient,
	ProvideChatCompleter,
	wire.Bind(new(dialogue.Completer), new(*inference.ChatCompleter)),

	// Crontab for idle session sweep and env reload
	crontab.NewCrontab,
	wire.Bind(new(crontab.IdleSweeper), new(*dialogue.SessionManager)),
)
