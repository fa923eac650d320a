// Package dialogue answers chat messages about PLM parts, one session at a time.
package dialogue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"jan-server/services/plm-chat-api/internal/domain/conversation"
	"jan-server/services/plm-chat-api/internal/domain/formatter"
	"jan-server/services/plm-chat-api/internal/domain/plm"
	"jan-server/services/plm-chat-api/internal/domain/plmcontext"
	"jan-server/services/plm-chat-api/internal/infrastructure/logger"
	"jan-server/services/plm-chat-api/internal/infrastructure/metrics"
	"jan-server/services/plm-chat-api/internal/infrastructure/observability"
	"jan-server/services/plm-chat-api/internal/utils/platformerrors"
	"jan-server/services/plm-chat-api/internal/utils/redact"
)

const DefaultSystemPrompt = "You are a helpful assistant specialized in providing information about parts from a PLM system. " +
	"You can search for parts, provide details about specific parts, check availability, and access documentation. " +
	"Always provide clear and concise information, and ask for clarification when needed."

const contextPrefix = "Current part context:\n"

// Source tells where a reply came from.
type Source string

const (
	SourceLLM    Source = "llm"
	SourceDirect Source = "direct"
)

// Reply is the answer to one utterance.
type Reply struct {
	Text   string
	Source Source
	Intent Intent
}

// Completer sends a prompt to the language model and returns its answer.
type Completer interface {
	Complete(ctx context.Context, messages []conversation.Turn) (string, error)
}

// ContextBuilder gathers PLM evidence for an utterance.
type ContextBuilder interface {
	BuildContext(ctx context.Context, utterance string) plmcontext.Block
}

type Options struct {
	SystemPrompt  string
	HistoryWindow int
	LookupTimeout time.Duration
	LLMTimeout    time.Duration
	Redactor      *redact.Redactor
}

// Orchestrator owns one session's conversation. Handle and Clear are
// serialized so concurrent messages of a session never interleave.
type Orchestrator struct {
	mu          sync.Mutex
	plm         plm.Client
	credentials plm.CredentialProvider
	contexts    ContextBuilder
	llm         Completer
	history     *conversation.Conversation
	opts        Options

	lastActive atomic.Int64
	inFlight   atomic.Bool
}

func NewOrchestrator(
	plmClient plm.Client,
	credentials plm.CredentialProvider,
	contexts ContextBuilder,
	llm Completer,
	opts Options,
) *Orchestrator {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.HistoryWindow < 0 {
		opts.HistoryWindow = 0
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 10 * time.Second
	}
	if opts.LLMTimeout <= 0 {
		opts.LLMTimeout = 60 * time.Second
	}
	if opts.Redactor == nil {
		opts.Redactor = redact.New(redact.LevelHashed, "")
	}
	o := &Orchestrator{
		plm:         plmClient,
		credentials: credentials,
		contexts:    contexts,
		llm:         llm,
		history:     conversation.New(),
		opts:        opts,
	}
	o.touch()
	return o
}

// Handle answers one utterance. Only two errors escape: an Unauthorized
// platform error when PLM credentials are missing, and an External one
// when the language model fails. History is extended only after a reply
// was produced and the caller is still waiting for it.
func (o *Orchestrator) Handle(ctx context.Context, utterance string) (*Reply, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inFlight.Store(true)
	defer func() {
		o.touch()
		o.inFlight.Store(false)
	}()

	ctx, span := observability.StartSpan(ctx, "dialogue.Handle")
	defer span.End()
	log := logger.GetLogger()

	if !o.credentials.IsAuthenticated(ctx) {
		err := platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
			"not authenticated with OpenBOM, log in before asking about parts", nil, "0f8f6f1e-4a43-4b9e-9f51-2d7f0c6f9a11")
		observability.RecordError(ctx, err)
		return nil, err
	}

	if reply, ok := o.shortCircuit(ctx, utterance); ok {
		o.remember(ctx, utterance, reply)
		return reply, nil
	}

	block := o.contexts.BuildContext(ctx, utterance)
	messages := o.prompt(block, utterance)

	llmCtx, cancel := context.WithTimeout(ctx, o.opts.LLMTimeout)
	defer cancel()
	text, err := o.llm.Complete(llmCtx, messages)
	if err != nil {
		perr := platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
			"The assistant is temporarily unavailable: "+readableCause(err), err, "6b1d2c55-93a4-4f0e-8d7b-3e0a4d1c2f90")
		observability.RecordError(ctx, perr)
		log.Warn().Err(err).Str("request_id", platformerrors.RequestIDFromContext(ctx)).Msg("llm completion failed")
		return nil, perr
	}

	reply := &Reply{Text: text, Source: SourceLLM, Intent: IntentNone}
	o.remember(ctx, utterance, reply)
	return reply, nil
}

// Clear forgets the session's conversation.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history.Clear()
	o.touch()
}

// History exposes the session's conversation for reading.
func (o *Orchestrator) History() *conversation.Conversation {
	return o.history
}

// LastActive is when the session last started or finished a request.
func (o *Orchestrator) LastActive() time.Time {
	return time.Unix(0, o.lastActive.Load())
}

// Busy reports whether a Handle call is in progress.
func (o *Orchestrator) Busy() bool {
	return o.inFlight.Load()
}

func (o *Orchestrator) touch() {
	o.lastActive.Store(time.Now().UnixNano())
}

// shortCircuit answers list and single-record requests without the LLM.
// Lookups get the same deadline and panic guard as context lookups, and a
// PLM error falls back to the LLM path.
func (o *Orchestrator) shortCircuit(ctx context.Context, utterance string) (*Reply, bool) {
	intent, id := DetectIntent(utterance)
	if intent == IntentNone {
		return nil, false
	}

	var (
		text   string
		status plm.Status
	)
	switch intent {
	case IntentBOMList:
		res := plmcontext.Call(ctx, string(intent), o.opts.LookupTimeout, func(ctx context.Context) plm.LookupResult[[]*plm.Record] {
			return o.plm.GetBOMs(ctx)
		})
		status, text = res.Status, formatter.FormatBOMs(res.Value)
	case IntentBOMDetails:
		res := plmcontext.Call(ctx, string(intent), o.opts.LookupTimeout, func(ctx context.Context) plm.LookupResult[*plm.Record] {
			return o.plm.GetBOMDetails(ctx, id)
		})
		status = res.Status
		if res.IsSuccess() && res.Value.Len() > 0 {
			text = formatter.FormatBOMDetails(res.Value)
		} else {
			text = formatter.BOMNotFound(id)
		}
	case IntentCatalogList:
		res := plmcontext.Call(ctx, string(intent), o.opts.LookupTimeout, func(ctx context.Context) plm.LookupResult[[]*plm.Record] {
			return o.plm.GetCatalogs(ctx)
		})
		status, text = res.Status, formatter.FormatCatalogs(res.Value)
	case IntentCatalogItems:
		res := plmcontext.Call(ctx, string(intent), o.opts.LookupTimeout, func(ctx context.Context) plm.LookupResult[[]*plm.Record] {
			return o.plm.GetCatalogItems(ctx, id)
		})
		status, text = res.Status, formatter.FormatCatalogItems(id, res.Value)
	case IntentPartDetails:
		res := plmcontext.Call(ctx, string(intent), o.opts.LookupTimeout, func(ctx context.Context) plm.LookupResult[*plm.Record] {
			return o.plm.GetPartDetails(ctx, id)
		})
		status = res.Status
		if res.IsSuccess() && res.Value.Len() > 0 {
			text = formatter.FormatPartDetails(res.Value)
		} else {
			text = formatter.PartNotFound(id)
		}
	}

	metrics.RecordLookup(string(intent), status.String())
	observability.AddSpanAttributes(ctx,
		attribute.String("dialogue.intent", string(intent)),
		attribute.String("dialogue.intent_status", status.String()),
	)
	if status == plm.StatusError {
		log := logger.GetLogger()
		log.Debug().Str("intent", string(intent)).Msg("direct lookup failed, asking the assistant instead")
		return nil, false
	}
	return &Reply{Text: text, Source: SourceDirect, Intent: intent}, true
}

func (o *Orchestrator) prompt(block plmcontext.Block, utterance string) []conversation.Turn {
	history := o.history.Window(o.opts.HistoryWindow)
	messages := make([]conversation.Turn, 0, len(history)+3)
	messages = append(messages,
		conversation.Turn{Role: conversation.RoleSystem, Content: o.opts.SystemPrompt},
		conversation.Turn{Role: conversation.RoleSystem, Content: contextPrefix + block.String()},
	)
	messages = append(messages, history...)
	return append(messages, conversation.Turn{Role: conversation.RoleUser, Content: utterance})
}

// remember appends both turns, unless the caller has gone away.
func (o *Orchestrator) remember(ctx context.Context, utterance string, reply *Reply) {
	log := logger.GetLogger()
	if err := ctx.Err(); err != nil {
		log.Info().Err(err).Str("source", string(reply.Source)).Msg("caller left before the reply was delivered, history unchanged")
		return
	}
	o.history.Append(conversation.RoleUser, utterance)
	o.history.Append(conversation.RoleAssistant, reply.Text)
	metrics.RecordReply(string(reply.Source), string(reply.Intent))

	log.Debug().
		Str("source", string(reply.Source)).
		Str("intent", string(reply.Intent)).
		Str("utterance", o.opts.Redactor.Text(utterance)).
		Int("history_len", o.history.Len()).
		Msg("reply recorded")
}

func readableCause(err error) string {
	var perr *platformerrors.PlatformError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "the language model did not answer in time"
	case errors.Is(err, context.Canceled):
		return "the request was cancelled"
	case errors.As(err, &perr):
		return perr.Message
	default:
		return err.Error()
	}
}
