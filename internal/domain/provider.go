package domain

import (
	"github.com/google/wire"

	"jan-server/services/plm-chat-api/internal/config"
	"jan-server/services/plm-chat-api/internal/domain/dialogue"
	"jan-server/services/plm-chat-api/internal/domain/plm"
	"jan-server/services/plm-chat-api/internal/domain/plmcontext"
	"jan-server/services/plm-chat-api/internal/utils/redact"
)

// ServiceProvider provides all domain services
var ServiceProvider = wire.NewSet(
	// Context assembly
	ProvideAggregatorOptions,
	plmcontext.NewAggregator,
	wire.Bind(new(dialogue.ContextBuilder), new(*plmcontext.Aggregator)),

	// Dialogue
	ProvideDialogueOptions,
	ProvideSessionManager,
)

func ProvideAggregatorOptions(cfg *config.Config) plmcontext.Options {
	return plmcontext.Options{
		LookupTimeout:    cfg.PLMLookupTimeout,
		MaxCandidates:    cfg.PLMMaxCandidates,
		Concurrency:      cfg.PLMLookupConcurrency,
		MaxFragmentChars: cfg.ContextMaxFragmentChars,
	}
}

func ProvideDialogueOptions(cfg *config.Config, redactor *redact.Redactor) dialogue.Options {
	return withConversationLimits(dialogue.Options{
		SystemPrompt: dialogue.DefaultSystemPrompt,
		Redactor:     redactor,
	}, cfg)
}

func withConversationLimits(opts dialogue.Options, cfg *config.Config) dialogue.Options {
	opts.HistoryWindow = cfg.MaxHistoryLength
	opts.LookupTimeout = cfg.PLMLookupTimeout
	opts.LLMTimeout = cfg.LLMTimeout
	return opts
}

// ProvideSessionManager gives every new session its own Orchestrator over
// the shared PLM client, context builder and language model. New sessions
// take their conversation limits from the last loaded config.
func ProvideSessionManager(
	cfg *config.Config,
	plmClient plm.Client,
	credentials plm.CredentialProvider,
	contexts dialogue.ContextBuilder,
	llm dialogue.Completer,
	opts dialogue.Options,
) (*dialogue.SessionManager, error) {
	return dialogue.NewSessionManager(cfg.SessionMax, cfg.SessionIdleTTL, func() *dialogue.Orchestrator {
		sessionOpts := opts
		if live := config.GetGlobal(); live != nil {
			sessionOpts = withConversationLimits(opts, live)
		}
		return dialogue.NewOrchestrator(plmClient, credentials, contexts, llm, sessionOpts)
	})
}
