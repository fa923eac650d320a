package observability

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/plm-chat-api/internal/config"
)

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		raw      string
		endpoint string
		insecure bool
	}{
		{"otel-collector:4318", "otel-collector:4318", true},
		{"http://otel-collector:4318", "otel-collector:4318", true},
		{"https://otel.example.com", "otel.example.com", false},
	}
	for _, tt := range tests {
		endpoint, insecure := splitEndpoint(tt.raw)
		assert.Equal(t, tt.endpoint, endpoint, tt.raw)
		assert.Equal(t, tt.insecure, insecure, tt.raw)
	}
}

func TestParseHeaders(t *testing.T) {
	assert.Equal(t,
		map[string]string{"authorization": "Basic abc", "x-scope": "jan"},
		parseHeaders(" authorization=Basic abc , x-scope=jan, broken, =empty"),
	)
	assert.Empty(t, parseHeaders(""))
}

func TestSetupWithoutExporterStillTraces(t *testing.T) {
	cfg, err := config.LoadFromMap(map[string]string{"SERVICE_NAME": "plm-chat-test"})
	require.NoError(t, err)

	shutdown, err := Setup(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	ctx, span := StartSpan(context.Background(), "test-span")
	defer span.End()

	assert.True(t, span.IsRecording())
	assert.NotEmpty(t, GetTraceID(ctx))
	assert.Empty(t, GetTraceID(context.Background()))
}
