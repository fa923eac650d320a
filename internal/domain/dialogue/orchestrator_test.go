package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/plm-chat-api/internal/domain/conversation"
	"jan-server/services/plm-chat-api/internal/domain/plm"
	"jan-server/services/plm-chat-api/internal/domain/plm/plmtest"
	"jan-server/services/plm-chat-api/internal/domain/plmcontext"
	"jan-server/services/plm-chat-api/internal/utils/platformerrors"
)

type fakeCompleter struct {
	mu       sync.Mutex
	prompts  [][]conversation.Turn
	reply    func(ctx context.Context, messages []conversation.Turn) (string, error)
	inFlight atomic.Int32
	overlaps atomic.Int32
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []conversation.Turn) (string, error) {
	if f.inFlight.Add(1) > 1 {
		f.overlaps.Add(1)
	}
	defer f.inFlight.Add(-1)

	f.mu.Lock()
	f.prompts = append(f.prompts, messages)
	f.mu.Unlock()

	if f.reply != nil {
		return f.reply(ctx, messages)
	}
	return "assistant says hi", nil
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeCompleter) lastPrompt() []conversation.Turn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[len(f.prompts)-1]
}

type staticContext string

func (s staticContext) BuildContext(context.Context, string) plmcontext.Block {
	if s == "" {
		return nil
	}
	return plmcontext.Block{{Label: "Related parts", Payload: string(s)}}
}

func newTestOrchestrator(client *plmtest.FakeClient, llm Completer, authenticated bool, opts Options) *Orchestrator {
	return NewOrchestrator(client, plmtest.StaticCredentials(authenticated), plmcontext.NewAggregator(client, plmcontext.DefaultOptions()), llm, opts)
}

func TestHandle_UnauthorizedBeforeAnyCall(t *testing.T) {
	client := &plmtest.FakeClient{}
	llm := &fakeCompleter{}
	o := newTestOrchestrator(client, llm, false, Options{})

	reply, err := o.Handle(context.Background(), "show me the catalogs")

	assert.Nil(t, reply)
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeUnauthorized))
	assert.Empty(t, client.Calls())
	assert.Equal(t, 0, llm.calls())
	assert.Equal(t, 0, o.History().Len())
}

func TestHandle_LLMPathBuildsPromptAndRecordsTurns(t *testing.T) {
	client := &plmtest.FakeClient{
		PartDetailsFunc: func(context.Context, string) plm.LookupResult[*plm.Record] {
			return plm.Success(plm.NewRecord(plm.Field{Key: "name", Value: "Widget"}))
		},
	}
	llm := &fakeCompleter{}
	o := newTestOrchestrator(client, llm, true, Options{HistoryWindow: 10})
	o.History().Append(conversation.RoleUser, "earlier question")
	o.History().Append(conversation.RoleAssistant, "earlier answer")

	reply, err := o.Handle(context.Background(), "Tell me about part ABC123")
	require.NoError(t, err)

	assert.Equal(t, "assistant says hi", reply.Text)
	assert.Equal(t, SourceLLM, reply.Source)

	prompt := llm.lastPrompt()
	require.Len(t, prompt, 5)
	assert.Equal(t, conversation.Turn{Role: conversation.RoleSystem, Content: DefaultSystemPrompt}, prompt[0])
	assert.Equal(t, conversation.RoleSystem, prompt[1].Role)
	assert.Equal(t, "Current part context:\nPart ABC123 details: {'name': 'Widget'}", prompt[1].Content)
	assert.Equal(t, "earlier question", prompt[2].Content)
	assert.Equal(t, conversation.RoleAssistant, prompt[3].Role)
	assert.Equal(t, conversation.Turn{Role: conversation.RoleUser, Content: "Tell me about part ABC123"}, prompt[4])

	assert.Equal(t, []conversation.Turn{
		{Role: conversation.RoleUser, Content: "earlier question"},
		{Role: conversation.RoleAssistant, Content: "earlier answer"},
		{Role: conversation.RoleUser, Content: "Tell me about part ABC123"},
		{Role: conversation.RoleAssistant, Content: "assistant says hi"},
	}, o.History().Window(10))
}

func TestHandle_HistoryIsWindowed(t *testing.T) {
	llm := &fakeCompleter{}
	o := NewOrchestrator(&plmtest.FakeClient{}, plmtest.StaticCredentials(true), staticContext(""), llm, Options{HistoryWindow: 2})
	for i := 0; i < 3; i++ {
		_, err := o.Handle(context.Background(), fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	prompt := llm.lastPrompt()
	require.Len(t, prompt, 5)
	assert.Equal(t, "Current part context:\nNo specific part information found.", prompt[1].Content)
	assert.Equal(t, "question 1", prompt[2].Content)
	assert.Equal(t, "assistant says hi", prompt[3].Content)
	assert.Equal(t, "question 2", prompt[4].Content)
	assert.Equal(t, 6, o.History().Len())
}

func TestHandle_CatalogShortCircuitBypassesLLM(t *testing.T) {
	client := &plmtest.FakeClient{
		CatalogsFunc: func(context.Context) plm.LookupResult[[]*plm.Record] {
			return plm.Success([]*plm.Record{plm.NewRecord(plm.Field{Key: "name", Value: "Fasteners"}, plm.Field{Key: "id", Value: "C1"})})
		},
	}
	llm := &fakeCompleter{}
	o := newTestOrchestrator(client, llm, true, Options{})

	reply, err := o.Handle(context.Background(), "show me the catalogs")
	require.NoError(t, err)

	assert.Equal(t, "Available catalogs:\n- Fasteners (ID: C1)", reply.Text)
	assert.Equal(t, SourceDirect, reply.Source)
	assert.Equal(t, IntentCatalogList, reply.Intent)
	assert.Equal(t, 0, llm.calls())
	assert.Equal(t, 0, client.CallCount("Search"))
}

func TestHandle_ShortCircuitRepliesAreRecorded(t *testing.T) {
	client := &plmtest.FakeClient{}
	llm := &fakeCompleter{}
	o := newTestOrchestrator(client, llm, true, Options{})

	reply, err := o.Handle(context.Background(), "list boms")
	require.NoError(t, err)
	assert.Equal(t, "No BOMs found.", reply.Text)

	assert.Equal(t, []conversation.Turn{
		{Role: conversation.RoleUser, Content: "list boms"},
		{Role: conversation.RoleAssistant, Content: "No BOMs found."},
	}, o.History().Window(10))
}

func TestHandle_ShortCircuitErrorFallsBackToLLM(t *testing.T) {
	client := &plmtest.FakeClient{
		BOMsFunc: func(context.Context) plm.LookupResult[[]*plm.Record] {
			return plm.Failure[[]*plm.Record](errors.New("503"))
		},
	}
	llm := &fakeCompleter{}
	o := newTestOrchestrator(client, llm, true, Options{})

	reply, err := o.Handle(context.Background(), "what BOMs exist?")
	require.NoError(t, err)

	assert.Equal(t, SourceLLM, reply.Source)
	assert.Equal(t, 1, llm.calls())
	assert.Equal(t, 2, o.History().Len())
}

func TestHandle_PartIntent(t *testing.T) {
	client := &plmtest.FakeClient{
		PartDetailsFunc: func(_ context.Context, id string) plm.LookupResult[*plm.Record] {
			if id == "P100" {
				return plm.Success(plm.NewRecord(
					plm.Field{Key: "id", Value: "P100"},
					plm.Field{Key: "name", Value: "Hinge"},
				))
			}
			return plm.Empty[*plm.Record]()
		},
	}
	llm := &fakeCompleter{}
	o := newTestOrchestrator(client, llm, true, Options{})

	reply, err := o.Handle(context.Background(), "show me part P100")
	require.NoError(t, err)
	assert.Equal(t, "Part Details:\n- name: Hinge", reply.Text)
	assert.Equal(t, IntentPartDetails, reply.Intent)

	reply, err = o.Handle(context.Background(), "part Q7")
	require.NoError(t, err)
	assert.Equal(t, "No details found for part Q7.", reply.Text)
	assert.Equal(t, 0, llm.calls())
}

func TestHandle_BOMDetailsIntent(t *testing.T) {
	client := &plmtest.FakeClient{
		BOMDetailsFunc: func(_ context.Context, id string) plm.LookupResult[*plm.Record] {
			if id == "B-12" {
				return plm.Success(plm.NewRecord(
					plm.Field{Key: "id", Value: "B-12"},
					plm.Field{Key: "name", Value: "Gearbox"},
				))
			}
			return plm.Empty[*plm.Record]()
		},
	}
	llm := &fakeCompleter{}
	o := newTestOrchestrator(client, llm, true, Options{})

	reply, err := o.Handle(context.Background(), "show bom B-12")
	require.NoError(t, err)
	assert.Equal(t, "BOM Details:\n- name: Gearbox", reply.Text)
	assert.Equal(t, IntentBOMDetails, reply.Intent)

	reply, err = o.Handle(context.Background(), "bom 404")
	require.NoError(t, err)
	assert.Equal(t, "No details found for BOM 404.", reply.Text)

	assert.Equal(t, 0, client.CallCount("GetBOMs"))
	assert.Equal(t, 0, llm.calls())
}

func TestHandle_CatalogItemsIntent(t *testing.T) {
	client := &plmtest.FakeClient{
		CatalogItemsFunc: func(_ context.Context, id string) plm.LookupResult[[]*plm.Record] {
			return plm.Success([]*plm.Record{plm.NewRecord(plm.Field{Key: "name", Value: "M3 screw"}, plm.Field{Key: "id", Value: "I1"})})
		},
	}
	llm := &fakeCompleter{}
	o := newTestOrchestrator(client, llm, true, Options{})

	reply, err := o.Handle(context.Background(), "items in catalog C1")
	require.NoError(t, err)
	assert.Equal(t, "Items in catalog C1:\n- M3 screw (ID: I1)", reply.Text)
	assert.Equal(t, IntentCatalogItems, reply.Intent)
	assert.Equal(t, []plmtest.Call{{Method: "GetCatalogItems", Arg: "C1"}}, client.Calls())
}

func TestHandle_ShortCircuitLookupIsGuarded(t *testing.T) {
	stuck := make(chan struct{})
	t.Cleanup(func() { close(stuck) })

	tests := []struct {
		name   string
		client *plmtest.FakeClient
	}{
		{
			name: "panicking lookup",
			client: &plmtest.FakeClient{
				BOMsFunc: func(context.Context) plm.LookupResult[[]*plm.Record] {
					panic("decoder bug")
				},
			},
		},
		{
			name: "lookup ignoring its deadline",
			client: &plmtest.FakeClient{
				BOMsFunc: func(context.Context) plm.LookupResult[[]*plm.Record] {
					<-stuck
					return plm.Empty[[]*plm.Record]()
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeCompleter{}
			o := newTestOrchestrator(tt.client, llm, true, Options{LookupTimeout: 20 * time.Millisecond})

			start := time.Now()
			reply, err := o.Handle(context.Background(), "list boms")
			require.NoError(t, err)

			assert.Equal(t, SourceLLM, reply.Source)
			assert.Equal(t, 1, llm.calls())
			assert.Less(t, time.Since(start), time.Second)
		})
	}
}

func TestHandle_LLMFailureIsReadableAndNotRecorded(t *testing.T) {
	llm := &fakeCompleter{reply: func(context.Context, []conversation.Turn) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	o := NewOrchestrator(&plmtest.FakeClient{}, plmtest.StaticCredentials(true), staticContext("x"), llm, Options{})

	reply, err := o.Handle(context.Background(), "hello")

	assert.Nil(t, reply)
	require.Error(t, err)
	var perr *platformerrors.PlatformError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, platformerrors.ErrorTypeExternal, perr.Type)
	assert.Equal(t, "The assistant is temporarily unavailable: quota exceeded", perr.Message)
	assert.Equal(t, 0, o.History().Len())
}

func TestHandle_LLMTimeout(t *testing.T) {
	llm := &fakeCompleter{reply: func(ctx context.Context, _ []conversation.Turn) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	o := NewOrchestrator(&plmtest.FakeClient{}, plmtest.StaticCredentials(true), staticContext("x"), llm, Options{LLMTimeout: 20 * time.Millisecond})

	_, err := o.Handle(context.Background(), "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not answer in time")
	assert.Equal(t, 0, o.History().Len())
}

func TestHandle_AbandonedRequestLeavesHistoryUntouched(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	llm := &fakeCompleter{reply: func(context.Context, []conversation.Turn) (string, error) {
		cancel()
		return "nobody will read this", nil
	}}
	o := NewOrchestrator(&plmtest.FakeClient{}, plmtest.StaticCredentials(true), staticContext("x"), llm, Options{})

	reply, err := o.Handle(ctx, "hello")

	require.NoError(t, err)
	assert.Equal(t, "nobody will read this", reply.Text)
	assert.Equal(t, 0, o.History().Len())
}

func TestHandle_SameSessionIsSerialized(t *testing.T) {
	llm := &fakeCompleter{reply: func(context.Context, []conversation.Turn) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	}}
	o := NewOrchestrator(&plmtest.FakeClient{}, plmtest.StaticCredentials(true), staticContext("x"), llm, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Handle(context.Background(), "hello")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), llm.overlaps.Load())
	turns := o.History().Window(100)
	require.Len(t, turns, 10)
	for i, turn := range turns {
		if i%2 == 0 {
			assert.Equal(t, conversation.RoleUser, turn.Role)
		} else {
			assert.Equal(t, conversation.RoleAssistant, turn.Role)
		}
	}
}

func TestClear(t *testing.T) {
	o := NewOrchestrator(&plmtest.FakeClient{}, plmtest.StaticCredentials(true), staticContext("x"), &fakeCompleter{}, Options{})
	_, err := o.Handle(context.Background(), "hello")
	require.NoError(t, err)

	o.Clear()

	assert.Empty(t, o.History().Window(5))
}

func TestReadableCause(t *testing.T) {
	perr := platformerrors.NewError(context.Background(), platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "llm returned 429", nil, "")
	assert.Equal(t, "llm returned 429", readableCause(fmt.Errorf("wrap: %w", perr)))
	assert.Equal(t, "the request was cancelled", readableCause(context.Canceled))
	assert.True(t, strings.HasPrefix(readableCause(errors.New("dial tcp: refused")), "dial tcp"))
}
