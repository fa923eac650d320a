package platformerrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorCarriesRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	err := NewError(ctx, LayerDomain, ErrorTypeUnauthorized, "not logged in", nil, "uuid-1")

	assert.Equal(t, "req-1", err.GetRequestID())
	assert.Equal(t, "uuid-1", err.GetUUID())
	assert.Equal(t, ErrorTypeUnauthorized, err.GetErrorType())
	assert.Equal(t, "[domain][UNAUTHORIZED][uuid-1] not logged in", err.Error())
}

func TestAsErrorKeepsTypeAndUUID(t *testing.T) {
	ctx := context.Background()
	inner := NewError(ctx, LayerInfrastructure, ErrorTypeExternal, "upstream 500", nil, "uuid-inner")
	wrapped := AsError(ctx, LayerHandler, fmt.Errorf("call: %w", inner), "chat failed")

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrorTypeExternal, wrapped.Type)
	assert.Equal(t, "uuid-inner", wrapped.UUID)
	assert.Equal(t, LayerHandler, wrapped.Layer)
	assert.True(t, errors.Is(wrapped, inner))
}

func TestAsErrorClassifiesPlainErrors(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, AsError(ctx, LayerDomain, nil, "nothing"))
	assert.Equal(t, ErrorTypeInternal, AsError(ctx, LayerDomain, errors.New("boom"), "x").Type)
	assert.Equal(t, ErrorTypeTimeout, AsError(ctx, LayerDomain, context.DeadlineExceeded, "x").Type)
}

func TestErrorTypeToHTTPStatus(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		want      int
	}{
		{ErrorTypeNotFound, http.StatusNotFound},
		{ErrorTypeValidation, http.StatusBadRequest},
		{ErrorTypeUnauthorized, http.StatusUnauthorized},
		{ErrorTypeTimeout, http.StatusGatewayTimeout},
		{ErrorTypeExternal, http.StatusBadGateway},
		{ErrorTypeInternal, http.StatusInternalServerError},
		{ErrorType("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorTypeToHTTPStatus(tt.errorType))
		})
	}
}

func TestIsErrorType(t *testing.T) {
	err := NewError(context.Background(), LayerDomain, ErrorTypeValidation, "bad", nil, "")
	assert.True(t, IsErrorType(fmt.Errorf("wrap: %w", err), ErrorTypeValidation))
	assert.False(t, IsErrorType(err, ErrorTypeExternal))
	assert.False(t, IsErrorType(errors.New("plain"), ErrorTypeValidation))
	assert.False(t, IsErrorType(nil, ErrorTypeValidation))
}
