package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		kind string
	}{
		{"invalid input", fmt.Errorf("bad body: %w", ErrInvalidInput), http.StatusBadRequest, KindInvalidRequest},
		{"missing document", fmt.Errorf("a.txt: %w", ErrDocumentNotFound), http.StatusNotFound, KindDocumentNotFound},
		{"unsupported", fmt.Errorf("a.exe: %w", ErrUnsupportedDocument), http.StatusUnsupportedMediaType, KindUnsupportedDocument},
		{"backend failure", fmt.Errorf("gemini: %w", ErrExtraction), http.StatusBadGateway, KindExtractionFailed},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, KindTimeout},
		{"serialization", fmt.Errorf("marshal: %w", ErrSerialization), http.StatusInternalServerError, KindSerializationFailed},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := MapError(tt.err)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.kind, appErr.Kind)
			assert.ErrorIs(t, appErr, tt.err)
		})
	}
}

func TestMapErrorPassesThroughAppError(t *testing.T) {
	orig := NewAppError(http.StatusTeapot, "custom", "short and stout", nil)
	wrapped := fmt.Errorf("handler: %w", orig)

	assert.Same(t, orig, MapError(wrapped))
	assert.Nil(t, MapError(nil))
	assert.Equal(t, "short and stout", orig.Error())
}
