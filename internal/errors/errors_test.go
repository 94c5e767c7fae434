package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	cause := stderrors.New("boom")
	tests := []struct {
		name       string
		err        *AppError
		wantType   ErrorType
		wantStatus int
	}{
		{"load", NewLoadError("model missing", cause), ErrorTypeLoad, http.StatusServiceUnavailable},
		{"decode", NewDecodeError("bad image", cause), ErrorTypeDecode, http.StatusUnprocessableEntity},
		{"input", NewInputError("bad field", cause), ErrorTypeInput, http.StatusBadRequest},
		{"inference", NewInferenceError("run failed", cause), ErrorTypeInference, http.StatusInternalServerError},
		{"validation", NewValidationError("bad url", nil), ErrorTypeValidation, http.StatusBadRequest},
		{"network", NewNetworkError("fetch failed", cause), ErrorTypeNetwork, http.StatusBadGateway},
		{"timeout", NewTimeoutError("too slow", cause), ErrorTypeTimeout, http.StatusGatewayTimeout},
		{"internal", NewInternalError("panic", nil), ErrorTypeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantStatus, GetStatusCode(tt.err))
			assert.True(t, IsType(tt.err, tt.wantType))
		})
	}
}

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	err := NewDecodeError("failed to decode image", context.DeadlineExceeded)
	assert.Equal(t, "decode: failed to decode image (caused by: context deadline exceeded)", err.Error())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	bare := NewValidationError("URL cannot be empty", nil)
	assert.Equal(t, "validation: URL cannot be empty", bare.Error())
}

func TestIsType_WrappedChain(t *testing.T) {
	wrapped := fmt.Errorf("classify: %w", NewLoadError("model unavailable", nil))

	assert.True(t, IsType(wrapped, ErrorTypeLoad))
	assert.False(t, IsType(wrapped, ErrorTypeDecode))
	assert.Equal(t, ErrorTypeLoad, TypeOf(wrapped))
	assert.Equal(t, http.StatusServiceUnavailable, GetStatusCode(wrapped))
}

func TestPlainErrors(t *testing.T) {
	plain := stderrors.New("plain")
	assert.False(t, IsType(plain, ErrorTypeInternal))
	assert.Equal(t, ErrorTypeInternal, TypeOf(plain))
	assert.Equal(t, http.StatusInternalServerError, GetStatusCode(plain))
}
