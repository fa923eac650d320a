package httpclients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/plm-chat-api/internal/utils/platformerrors"
)

func TestNewClient_ForwardsRequestID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(requestIDHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient("test", time.Second)
	ctx := platformerrors.WithRequestID(context.Background(), "req-7")
	resp, err := client.R().SetContext(ctx).Get(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())
	assert.Equal(t, "req-7", got)
}

func TestNewClient_NoRequestIDWithoutContextValue(t *testing.T) {
	var present bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header[requestIDHeader]
	}))
	defer srv.Close()

	_, err := NewClient("test", time.Second).R().Get(srv.URL)
	require.NoError(t, err)
	assert.False(t, present)
}
