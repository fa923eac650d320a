package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/plm-chat-api/internal/config"
	"jan-server/services/plm-chat-api/internal/domain/conversation"
	"jan-server/services/plm-chat-api/internal/domain/dialogue"
	"jan-server/services/plm-chat-api/internal/domain/plm"
	"jan-server/services/plm-chat-api/internal/domain/plm/plmtest"
	"jan-server/services/plm-chat-api/internal/domain/plmcontext"
	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/handlers/authhandler"
	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/handlers/chathandler"
	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/middlewares"
	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/responses"
	authroute "jan-server/services/plm-chat-api/internal/interfaces/httpserver/routes/auth"
	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/routes/chat"
	v1 "jan-server/services/plm-chat-api/internal/interfaces/httpserver/routes/v1"
	"jan-server/services/plm-chat-api/internal/utils/redact"
)

type completerFunc func(ctx context.Context, messages []conversation.Turn) (string, error)

func (f completerFunc) Complete(ctx context.Context, messages []conversation.Turn) (string, error) {
	return f(ctx, messages)
}

type fakeLogin struct {
	password string
}

func (f fakeLogin) Login(_ context.Context, _, password string) error {
	if password != f.password {
		return errors.New("rejected")
	}
	return nil
}

func (f fakeLogin) Logout(context.Context) error {
	return nil
}

type testServer struct {
	server   *HTTPServer
	sessions *dialogue.SessionManager
}

func newTestServer(t *testing.T, client plm.Client, authenticated bool, llm dialogue.Completer) *testServer {
	t.Helper()
	cfg := &config.Config{
		ServiceName:        "plm-chat-api-test",
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	}
	credentials := plmtest.StaticCredentials(authenticated)
	redactor := redact.New(redact.LevelHashed, "test")
	aggregator := plmcontext.NewAggregator(client, plmcontext.DefaultOptions())

	sessions, err := dialogue.NewSessionManager(10, time.Hour, func() *dialogue.Orchestrator {
		return dialogue.NewOrchestrator(client, credentials, aggregator, llm, dialogue.Options{
			HistoryWindow: 10,
			LookupTimeout: time.Second,
			LLMTimeout:    time.Second,
			Redactor:      redactor,
		})
	})
	require.NoError(t, err)

	chatRoute := chat.NewChatRoute(chathandler.NewChatHandler(sessions, redactor, zerolog.Nop()))
	authRoute := authroute.NewAuthRoute(authhandler.NewAuthHandler(fakeLogin{password: "secret"}))
	server := NewHttpServer(chatRoute, v1.NewV1Route(chatRoute, authRoute), credentials, cfg, zerolog.Nop(), redactor)
	return &testServer{server: server, sessions: sessions}
}

func (ts *testServer) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&out))
	return out
}

type chatBody struct {
	Response  string `json:"response"`
	Source    string `json:"source"`
	SessionID string `json:"session_id"`
}

func TestChat_DirectReply(t *testing.T) {
	client := &plmtest.FakeClient{
		BOMsFunc: func(ctx context.Context) plm.LookupResult[[]*plm.Record] {
			return plm.Success([]*plm.Record{plm.NewRecord(plm.Field{Key: "id", Value: "b1"}, plm.Field{Key: "name", Value: "Main Assembly"})})
		},
	}
	ts := newTestServer(t, client, true, completerFunc(func(context.Context, []conversation.Turn) (string, error) {
		t.Fatal("language model must not be called for a BOM list")
		return "", nil
	}))

	w := ts.do(t, http.MethodPost, "/chat", `{"content":"show me all BOMs"}`, map[string]string{middlewares.SessionHeader: "s1"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[chatBody](t, w)
	assert.Equal(t, "direct", body.Source)
	assert.Equal(t, "s1", body.SessionID)
	assert.Contains(t, body.Response, "Main Assembly")
	assert.Equal(t, 2, ts.sessions.Session("s1").History().Len())
}

func TestChat_LLMReplyAndSessionCookie(t *testing.T) {
	ts := newTestServer(t, &plmtest.FakeClient{}, true, completerFunc(func(context.Context, []conversation.Turn) (string, error) {
		return "Hello there", nil
	}))

	w := ts.do(t, http.MethodPost, "/v1/chat", `{"content":"hello"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[chatBody](t, w)
	assert.Equal(t, "llm", body.Source)
	assert.Equal(t, "Hello there", body.Response)
	require.NotEmpty(t, body.SessionID)
	assert.Equal(t, body.SessionID, w.Header().Get(middlewares.SessionHeader))
	assert.Contains(t, w.Header().Get("Set-Cookie"), middlewares.SessionCookie+"="+body.SessionID)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestChat_SessionFromCookie(t *testing.T) {
	ts := newTestServer(t, &plmtest.FakeClient{}, true, completerFunc(func(context.Context, []conversation.Turn) (string, error) {
		return "ok", nil
	}))

	w := ts.do(t, http.MethodPost, "/chat", `{"content":"hello"}`, map[string]string{"Cookie": "session_id=from-cookie"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "from-cookie", decode[chatBody](t, w).SessionID)
}

func TestChat_InvalidBody(t *testing.T) {
	ts := newTestServer(t, &plmtest.FakeClient{}, true, completerFunc(func(context.Context, []conversation.Turn) (string, error) {
		return "unused", nil
	}))

	for _, body := range []string{`not json`, `{}`, `{"content":"   "}`} {
		w := ts.do(t, http.MethodPost, "/chat", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestChat_Unauthorized(t *testing.T) {
	client := &plmtest.FakeClient{}
	ts := newTestServer(t, client, false, completerFunc(func(context.Context, []conversation.Turn) (string, error) {
		return "unused", nil
	}))

	w := ts.do(t, http.MethodPost, "/chat", `{"content":"part 123"}`, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode[responses.ErrorResponse](t, w)
	assert.NotEmpty(t, body.Code)
	assert.NotEmpty(t, body.RequestID)
	assert.Empty(t, client.Calls())
}

func TestChat_ProviderFailure(t *testing.T) {
	ts := newTestServer(t, &plmtest.FakeClient{}, true, completerFunc(func(context.Context, []conversation.Turn) (string, error) {
		return "", errors.New("connection refused")
	}))

	w := ts.do(t, http.MethodPost, "/chat", `{"content":"what is new?"}`, map[string]string{middlewares.SessionHeader: "s2"})
	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decode[responses.ErrorResponse](t, w)
	assert.Contains(t, body.Error, "temporarily unavailable")
	assert.Equal(t, 0, ts.sessions.Session("s2").History().Len())
}

func TestClear(t *testing.T) {
	ts := newTestServer(t, &plmtest.FakeClient{}, true, completerFunc(func(context.Context, []conversation.Turn) (string, error) {
		return "ok", nil
	}))
	headers := map[string]string{middlewares.SessionHeader: "s3"}

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/chat", `{"content":"hi"}`, headers).Code)
	require.Equal(t, 2, ts.sessions.Session("s3").History().Len())

	w := ts.do(t, http.MethodPost, "/clear", "", headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","message":"Conversation history cleared"}`, w.Body.String())
	assert.Equal(t, 0, ts.sessions.Session("s3").History().Len())
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t, &plmtest.FakeClient{}, true, completerFunc(func(context.Context, []conversation.Turn) (string, error) {
		return "ok", nil
	}))

	w := ts.do(t, http.MethodPost, "/v1/auth/login", `{"username":"u","password":"secret"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"authenticated"}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/v1/auth/login", `{"username":"u"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t, &plmtest.FakeClient{}, true, completerFunc(func(context.Context, []conversation.Turn) (string, error) {
		return "ok", nil
	}))

	w := ts.do(t, http.MethodPost, "/v1/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"logged_out"}`, w.Body.String())
}

func TestHealthAndReadiness(t *testing.T) {
	noLLM := completerFunc(func(context.Context, []conversation.Turn) (string, error) { return "", nil })

	ready := newTestServer(t, &plmtest.FakeClient{}, true, noLLM)
	assert.Equal(t, http.StatusOK, ready.do(t, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, ready.do(t, http.MethodGet, "/readyz", "", nil).Code)

	notReady := newTestServer(t, &plmtest.FakeClient{}, false, noLLM)
	assert.Equal(t, http.StatusOK, notReady.do(t, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, notReady.do(t, http.MethodGet, "/readyz", "", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, &plmtest.FakeClient{}, true, completerFunc(func(context.Context, []conversation.Turn) (string, error) {
		return "", nil
	}))

	w := ts.do(t, http.MethodOptions, "/chat", "", map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
