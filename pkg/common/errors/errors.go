package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Common sentinel errors
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrUnsupportedDocument = errors.New("unsupported document type")
	ErrExtraction          = errors.New("extraction failed")
	ErrSerialization       = errors.New("result is not JSON-serializable")
	ErrInternal            = errors.New("internal error")
)

// Error kinds reported in structured error bodies.
const (
	KindInvalidRequest      = "invalid_request"
	KindDocumentNotFound    = "document_not_found"
	KindUnsupportedDocument = "unsupported_document"
	KindExtractionFailed    = "extraction_failed"
	KindTimeout             = "timeout"
	KindSerializationFailed = "serialization_failed"
	KindInternal            = "internal"
)

// AppError represents an application-specific error with an HTTP status code.
type AppError struct {
	Code    int
	Kind    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code int, kind, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// MapError maps a common error to an AppError with an appropriate HTTP status code.
func MapError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return NewAppError(http.StatusBadRequest, KindInvalidRequest, "Invalid request", err)
	case errors.Is(err, ErrDocumentNotFound):
		return NewAppError(http.StatusNotFound, KindDocumentNotFound, "Document not found", err)
	case errors.Is(err, ErrUnsupportedDocument):
		return NewAppError(http.StatusUnsupportedMediaType, KindUnsupportedDocument, "Unsupported document type", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewAppError(http.StatusGatewayTimeout, KindTimeout, "Extraction timed out", err)
	case errors.Is(err, ErrExtraction):
		return NewAppError(http.StatusBadGateway, KindExtractionFailed, "Extraction failed", err)
	case errors.Is(err, ErrSerialization):
		return NewAppError(http.StatusInternalServerError, KindSerializationFailed, "Failed to serialize extraction result", err)
	}

	// Default to internal server error
	return NewAppError(http.StatusInternalServerError, KindInternal, "Internal server error", err)
}
