// Package errors defines the error taxonomy of the chat pipeline and its
// mapping onto HTTP responses.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code is a stable, client-visible error identifier.
type Code string

const (
	CodeValidation                    Code = "validation_error"
	CodeRetrieval                     Code = "retrieval_error"
	CodeEmbedding                     Code = "embedding_error"
	CodeGenerationAuth                Code = "generation_auth_error"
	CodeGenerationRateLimited         Code = "generation_rate_limited"
	CodeGenerationUpstreamUnavailable Code = "generation_upstream_unavailable"
	CodeGenerationTransport           Code = "generation_transport_error"
	CodeInternal                      Code = "internal_error"
	CodeConflict                      Code = "conflict"
	CodeUnauthorized                  Code = "unauthorized"
)

// AppError carries a Code alongside a user-safe message. Err holds the
// underlying cause for logging and is never rendered to clients.
type AppError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError without a cause.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError around err.
func Wrap(code Code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

func Retrieval(err error) *AppError {
	return Wrap(CodeRetrieval, "catalog retrieval failed", err)
}

func Embedding(id string, err error) *AppError {
	return Wrap(CodeEmbedding, "embedding failed for "+id, err)
}

func Internal(err error) *AppError {
	return Wrap(CodeInternal, "unexpected error while handling the request", err)
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message)
}

// CodeOf returns the Code of the first AppError in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// MessageOf returns the user-safe message of err.
func MessageOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return "unexpected error while handling the request"
}

// HTTPStatus maps a Code to the status used when it escapes to a handler.
// Generation failures never reach a handler as errors; they are answered
// by the fallback responder with 200.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeConflict:
		return http.StatusConflict
	case CodeRetrieval, CodeEmbedding:
		return http.StatusServiceUnavailable
	case CodeGenerationAuth, CodeGenerationRateLimited, CodeGenerationUpstreamUnavailable, CodeGenerationTransport:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
